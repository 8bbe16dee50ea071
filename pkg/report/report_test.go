package report

import (
	"testing"
	"time"

	"github.com/cyclo/millplan/internal/model"
)

var (
	day0 = time.Date(2025, 11, 4, 0, 0, 0, 0, time.UTC)
	day1 = day0.AddDate(0, 0, 1)
)

var testLines = []model.LineConfig{
	{Name: "Line 1", Machines: 4, SpindlesPerMachine: 460, DailyCapacityKg: 5000},
	{Name: "Line 4", Machines: 2, SpindlesPerMachine: 240, DailyCapacityKg: 2000},
}

func rec(batch, line string, date time.Time, shift string, kg float64, family string) model.AllocationRecord {
	idx := int(shift[0] - 'A')
	start := date.Add(time.Duration(idx) * 8 * time.Hour)
	return model.AllocationRecord{
		BatchID: batch, Line: line, Date: date, Shift: shift, ShiftIndex: idx,
		AllocatedKg: kg, Start: start, End: start.Add(4 * time.Hour), Hours: 4,
		ColorFamily: family,
	}
}

func sampleRecords() []model.AllocationRecord {
	return []model.AllocationRecord{
		rec("b1", "Line 1", day0, "A", 1666.666, "Red"),
		rec("b1", "Line 1", day0, "B", 833.334, "Red"),
		rec("b2", "Line 1", day0, "B", 833.332, "Blue"),
		rec("b3", "Line 1", day1, "A", 1000, "Red"),
		rec("b4", "Line 4", day1, "A", 500, "Grey"),
	}
}

func TestUtilization(t *testing.T) {
	rows := Utilization(sampleRecords(), testLines)
	if len(rows) != 4 {
		t.Fatalf("len(rows) = %d, want 4 (2 lines x 2 dates)", len(rows))
	}

	tests := []struct {
		i    int
		line string
		date time.Time
		used float64
		pct  float64
	}{
		{0, "Line 1", day0, 3333.33, 66.67},
		{1, "Line 1", day1, 1000, 20},
		{2, "Line 4", day0, 0, 0},
		{3, "Line 4", day1, 500, 25},
	}
	for _, tt := range tests {
		r := rows[tt.i]
		if r.Line != tt.line || !r.Date.Equal(tt.date) {
			t.Errorf("row %d = %s/%v, want %s/%v", tt.i, r.Line, r.Date, tt.line, tt.date)
		}
		if r.UsedKg != tt.used || r.UtilPct != tt.pct {
			t.Errorf("row %d used/pct = %v/%v, want %v/%v", tt.i, r.UsedKg, r.UtilPct, tt.used, tt.pct)
		}
	}
}

func TestChangeovers(t *testing.T) {
	events := Changeovers(sampleRecords(), testLines)
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2: %+v", len(events), events)
	}
	if events[0].FromColor != "Red" || events[0].ToColor != "Blue" || events[0].Shift != "B" {
		t.Errorf("events[0] = %+v", events[0])
	}
	if events[1].FromColor != "Blue" || events[1].ToColor != "Red" || !events[1].Date.Equal(day1) {
		t.Errorf("events[1] = %+v", events[1])
	}
}

func TestChangeovers_SortsByDateAndShift(t *testing.T) {
	records := []model.AllocationRecord{
		rec("x", "Line 1", day1, "A", 10, "Blue"),
		rec("y", "Line 1", day0, "C", 10, "Blue"),
		rec("z", "Line 1", day0, "A", 10, "Red"),
	}
	events := Changeovers(records, testLines)
	if len(events) != 1 || events[0].FromColor != "Red" || events[0].Shift != "C" {
		t.Errorf("events = %+v, want one Red→Blue at shift C", events)
	}
}

func TestChangeovers_ShiftIndexNotName(t *testing.T) {
	named := func(idx int, name, family string) model.AllocationRecord {
		return model.AllocationRecord{
			BatchID: family, Line: "Line 1", Date: day0, Shift: name, ShiftIndex: idx,
			AllocatedKg: 10, ColorFamily: family,
		}
	}
	records := []model.AllocationRecord{
		named(0, "Morning", "Red"),
		named(1, "Evening", "Blue"),
		named(2, "Night", "Red"),
	}

	events := Changeovers(records, testLines)
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2: %+v", len(events), events)
	}
	if events[0].Shift != "Evening" || events[0].FromColor != "Red" || events[0].ToColor != "Blue" {
		t.Errorf("events[0] = %+v, want Red→Blue at Evening", events[0])
	}
	if events[1].Shift != "Night" || events[1].FromColor != "Blue" || events[1].ToColor != "Red" {
		t.Errorf("events[1] = %+v, want Blue→Red at Night", events[1])
	}
}

func TestColorDistribution(t *testing.T) {
	shares := ColorDistribution(sampleRecords(), testLines)
	if len(shares) != 3 {
		t.Fatalf("len(shares) = %d, want 3", len(shares))
	}

	// Families are sorted within a line.
	if shares[0].ColorFamily != "Blue" || shares[1].ColorFamily != "Red" {
		t.Errorf("family order = %s, %s", shares[0].ColorFamily, shares[1].ColorFamily)
	}
	if shares[1].TotalKg != 3500 {
		t.Errorf("Red total = %v, want 3500", shares[1].TotalKg)
	}
	if shares[0].Percentage+shares[1].Percentage < 99.99 {
		t.Errorf("line 1 shares do not add up: %v + %v", shares[0].Percentage, shares[1].Percentage)
	}
	if shares[2].Line != "Line 4" || shares[2].Percentage != 100 {
		t.Errorf("shares[2] = %+v", shares[2])
	}
}

func TestBatchStatuses(t *testing.T) {
	batches := []model.Batch{
		{ID: "b1", Orders: "PI-1, PI-2", Key: model.BatchKey{Count: 20, ColorFamily: "red"}},
		{ID: "b2", Orders: "PI-3"},
	}
	statuses := BatchStatuses(sampleRecords(), batches)
	if len(statuses) != 4 {
		t.Fatalf("len(statuses) = %d, want 4", len(statuses))
	}

	b1 := statuses[0]
	if b1.BatchID != "b1" || b1.Orders != "PI-1, PI-2" || b1.Count != 20 {
		t.Errorf("b1 = %+v", b1)
	}
	if b1.TotalQty != 2500 {
		t.Errorf("TotalQty = %v, want 2500", b1.TotalQty)
	}
	if b1.HoursTaken != 8 {
		t.Errorf("HoursTaken = %v, want 8", b1.HoursTaken)
	}
	if want := day0.Add(12 * time.Hour); !b1.CompletionAt.Equal(want) {
		t.Errorf("CompletionAt = %v, want %v", b1.CompletionAt, want)
	}
}

func TestUnscheduled(t *testing.T) {
	batches := []model.Batch{
		{ID: "b1", RequiredQty: 2500},
		{ID: "b3", RequiredQty: 4000},
		{ID: "never", RequiredQty: 300},
	}
	got := Unscheduled(batches, sampleRecords(), 1e-6)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(got), got)
	}
	if got[0].BatchID != "b3" || got[0].RemainingQty != 3000 || got[0].AllocatedQty != 1000 {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].BatchID != "never" || got[1].RemainingQty != 300 {
		t.Errorf("got[1] = %+v", got[1])
	}
}

func TestSummarize(t *testing.T) {
	records := sampleRecords()
	p := &model.Plan{
		RunID:       "run-1",
		TotalOrders: 3,
		Allocations: records,
		Utilization: Utilization(records, testLines),
		Changeovers: Changeovers(records, testLines),
		Samples:     []model.Order{{ID: "S1", Quantity: 50}, {ID: "S2", Quantity: 150}},
		Unscheduled: []model.UnscheduledQuantity{{BatchID: "x", RemainingQty: 10}},
	}

	s := Summarize(p)
	if s.AllocatedKg != 4833.33 {
		t.Errorf("AllocatedKg = %v, want 4833.33", s.AllocatedKg)
	}
	if s.Samples != 2 || s.SampleKg != 200 {
		t.Errorf("samples = %d/%v, want 2/200", s.Samples, s.SampleKg)
	}
	if s.Changeovers != 2 || s.UnscheduledKg != 10 {
		t.Errorf("changeovers/unscheduled = %d/%v", s.Changeovers, s.UnscheduledKg)
	}
	if !s.FirstDay.Equal(day0) || !s.LastDay.Equal(day1) {
		t.Errorf("days = %v..%v", s.FirstDay, s.LastDay)
	}
	// (66.67 + 20 + 0 + 25) / 4
	if s.AvgUtilization != 27.92 {
		t.Errorf("AvgUtilization = %v, want 27.92", s.AvgUtilization)
	}
}

func TestLineAverages(t *testing.T) {
	avg := LineAverages(Utilization(sampleRecords(), testLines))
	if len(avg) != 2 || avg[0].Line != "Line 1" || avg[0].UtilPct != 43.34 {
		t.Errorf("LineAverages = %+v", avg)
	}
}

func TestRound(t *testing.T) {
	if got := Round(66.66666, 2); got != 66.67 {
		t.Errorf("Round = %v, want 66.67", got)
	}
	if got := Round(2.0005, 3); got != 2.001 {
		t.Errorf("Round = %v, want 2.001", got)
	}
}
