package report

import (
	"time"

	"github.com/cyclo/millplan/internal/model"
)

// Summary is the headline view of a plan.
type Summary struct {
	RunID          string    `json:"run_id"`
	TotalOrders    int       `json:"total_pi"`
	Batches        int       `json:"batches"`
	Records        int       `json:"records"`
	AllocatedKg    float64   `json:"allocated_kg"`
	UnscheduledKg  float64   `json:"unscheduled_kg"`
	Unmatched      int       `json:"unmatched"`
	Samples        int       `json:"samples"`
	SampleKg       float64   `json:"sample_kg"`
	Changeovers    int       `json:"changeovers"`
	AvgUtilization float64   `json:"avg_util_pct"`
	FirstDay       time.Time `json:"first_day"`
	LastDay        time.Time `json:"last_day"`
	Completion     time.Time `json:"completion"`
}

// Summarize computes headline figures from a finished plan.
func Summarize(p *model.Plan) Summary {
	s := Summary{
		RunID:       p.RunID,
		TotalOrders: p.TotalOrders,
		Batches:     len(p.Batches),
		Records:     len(p.Allocations),
		AllocatedKg: Round(p.TotalAllocatedKg(), 2),
		Unmatched:   len(p.Unmatched),
		Samples:     len(p.Samples),
		Changeovers: len(p.Changeovers),
	}

	for _, o := range p.Samples {
		s.SampleKg += o.Quantity
	}
	s.SampleKg = Round(s.SampleKg, 2)

	for _, u := range p.Unscheduled {
		s.UnscheduledKg += u.RemainingQty
	}
	s.UnscheduledKg = Round(s.UnscheduledKg, 2)

	if len(p.Utilization) > 0 {
		var total float64
		for _, u := range p.Utilization {
			total += u.UtilPct
		}
		s.AvgUtilization = Round(total/float64(len(p.Utilization)), 2)
	}

	if dates := Dates(p.Allocations); len(dates) > 0 {
		s.FirstDay, s.LastDay = dates[0], dates[len(dates)-1]
	}
	for _, b := range p.BatchStatus {
		if b.CompletionAt.After(s.Completion) {
			s.Completion = b.CompletionAt
		}
	}
	return s
}

// LineAverages returns the mean utilization per line in line order.
func LineAverages(rows []model.LineUtilization) []model.LineUtilization {
	type acc struct {
		sum      float64
		n        int
		capacity float64
	}
	var order []string
	byLine := make(map[string]*acc)
	for _, r := range rows {
		a, ok := byLine[r.Line]
		if !ok {
			a = &acc{capacity: r.CapacityKg}
			byLine[r.Line] = a
			order = append(order, r.Line)
		}
		a.sum += r.UtilPct
		a.n++
	}

	out := make([]model.LineUtilization, 0, len(order))
	for _, line := range order {
		a := byLine[line]
		out = append(out, model.LineUtilization{
			Line:       line,
			CapacityKg: a.capacity,
			UtilPct:    Round(a.sum/float64(a.n), 2),
		})
	}
	return out
}
