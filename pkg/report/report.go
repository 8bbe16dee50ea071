// Package report derives utilization, changeover and distribution views
// from allocation records. Nothing here makes scheduling decisions.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cyclo/millplan/internal/model"
)

// Utilization returns one row per line per plan date: every configured
// line is reported for every date that has any allocation.
func Utilization(records []model.AllocationRecord, lines []model.LineConfig) []model.LineUtilization {
	dates := Dates(records)
	used := make(map[string]map[time.Time]float64, len(lines))
	for _, r := range records {
		m, ok := used[r.Line]
		if !ok {
			m = make(map[time.Time]float64)
			used[r.Line] = m
		}
		m[r.Date] += r.AllocatedKg
	}

	out := make([]model.LineUtilization, 0, len(lines)*len(dates))
	for _, l := range lines {
		for _, d := range dates {
			kg := used[l.Name][d]
			var pct float64
			if l.DailyCapacityKg > 0 {
				pct = Round(kg/l.DailyCapacityKg*100, 2)
			}
			out = append(out, model.LineUtilization{
				Line:       l.Name,
				Date:       d,
				CapacityKg: l.DailyCapacityKg,
				UsedKg:     Round(kg, 2),
				UtilPct:    pct,
			})
		}
	}
	return out
}

// Changeovers scans each line's records in (date, shift index) order and
// emits an event whenever the color family differs from the previous record.
func Changeovers(records []model.AllocationRecord, lines []model.LineConfig) []model.ColorChangeover {
	var out []model.ColorChangeover
	for _, l := range lines {
		onLine := byLine(records, l.Name)
		sort.SliceStable(onLine, func(i, j int) bool {
			if !onLine[i].Date.Equal(onLine[j].Date) {
				return onLine[i].Date.Before(onLine[j].Date)
			}
			return onLine[i].ShiftIndex < onLine[j].ShiftIndex
		})

		prev := ""
		for _, r := range onLine {
			if prev != "" && prev != r.ColorFamily {
				out = append(out, model.ColorChangeover{
					Line:      l.Name,
					Date:      r.Date,
					Shift:     r.Shift,
					FromColor: prev,
					ToColor:   r.ColorFamily,
				})
			}
			prev = r.ColorFamily
		}
	}
	return out
}

// ColorDistribution returns each color family's share of each line's
// output. Lines without records are omitted; families are sorted by name.
func ColorDistribution(records []model.AllocationRecord, lines []model.LineConfig) []model.LineColorShare {
	var out []model.LineColorShare
	for _, l := range lines {
		onLine := byLine(records, l.Name)
		if len(onLine) == 0 {
			continue
		}

		var total float64
		perFamily := make(map[string]float64)
		for _, r := range onLine {
			total += r.AllocatedKg
			perFamily[r.ColorFamily] += r.AllocatedKg
		}

		families := make([]string, 0, len(perFamily))
		for f := range perFamily {
			families = append(families, f)
		}
		sort.Strings(families)

		for _, f := range families {
			var pct float64
			if total > 0 {
				pct = Round(perFamily[f]/total*100, 2)
			}
			out = append(out, model.LineColorShare{
				Line:        l.Name,
				ColorFamily: f,
				TotalKg:     Round(perFamily[f], 2),
				Percentage:  pct,
			})
		}
	}
	return out
}

// BatchStatuses summarizes placed quantity, completion time and hours per
// batch ID, sorted by ID. Batches with no records are omitted.
func BatchStatuses(records []model.AllocationRecord, batches []model.Batch) []model.BatchStatus {
	meta := make(map[string]model.Batch, len(batches))
	for _, b := range batches {
		if _, ok := meta[b.ID]; !ok {
			meta[b.ID] = b
		}
	}

	type agg struct {
		kg, hours float64
		end       time.Time
	}
	totals := make(map[string]*agg)
	var ids []string
	for _, r := range records {
		a, ok := totals[r.BatchID]
		if !ok {
			a = &agg{}
			totals[r.BatchID] = a
			ids = append(ids, r.BatchID)
		}
		a.kg += r.AllocatedKg
		a.hours += r.Hours
		if r.End.After(a.end) {
			a.end = r.End
		}
	}
	sort.Strings(ids)

	out := make([]model.BatchStatus, 0, len(ids))
	for _, id := range ids {
		a, b := totals[id], meta[id]
		out = append(out, model.BatchStatus{
			BatchID:      id,
			Orders:       b.Orders,
			Count:        b.Key.Count,
			Blend:        b.Key.Blend,
			YarnType:     b.Key.YarnType,
			ColorCode:    b.Key.ColorCode,
			ColorFamily:  b.Key.ColorFamily,
			TotalQty:     Round(a.kg, 2),
			CompletionAt: a.end,
			HoursTaken:   Round(a.hours, 3),
		})
	}
	return out
}

// Unscheduled returns the batches whose placed quantity falls short of the
// required quantity by more than epsilon, in batch order.
func Unscheduled(batches []model.Batch, records []model.AllocationRecord, epsilon float64) []model.UnscheduledQuantity {
	placed := make(map[string]float64)
	for _, r := range records {
		placed[r.BatchID] += r.AllocatedKg
	}

	// Batch IDs are not guaranteed unique, so placed kg is consumed in
	// batch order.
	var out []model.UnscheduledQuantity
	for _, b := range batches {
		got := placed[b.ID]
		if got > b.RequiredQty {
			got = b.RequiredQty
		}
		placed[b.ID] -= got

		if rest := b.RequiredQty - got; rest > epsilon {
			out = append(out, model.UnscheduledQuantity{
				BatchID:      b.ID,
				Orders:       b.Orders,
				RequiredQty:  Round(b.RequiredQty, 2),
				AllocatedQty: Round(got, 2),
				RemainingQty: Round(rest, 2),
			})
		}
	}
	return out
}

// Dates returns the distinct allocation dates in ascending order.
func Dates(records []model.AllocationRecord) []time.Time {
	seen := make(map[time.Time]bool)
	var dates []time.Time
	for _, r := range records {
		if !seen[r.Date] {
			seen[r.Date] = true
			dates = append(dates, r.Date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Round rounds v half away from zero to places decimals.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func byLine(records []model.AllocationRecord, line string) []model.AllocationRecord {
	var out []model.AllocationRecord
	for _, r := range records {
		if r.Line == line {
			out = append(out, r)
		}
	}
	return out
}
