// Package diff compares two production plans.
package diff

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/cyclo/millplan/internal/model"
	"github.com/cyclo/millplan/pkg/report"
)

// Significance labels.
const (
	New       = "new"
	Removed   = "removed"
	Stable    = "stable"
	Increased = "increased"
	Decreased = "decreased"
)

// stablePct is the load change below which a line counts as stable.
const stablePct = 1.0

// Report contains the differences between a baseline plan (left) and a
// newer one (right).
type Report struct {
	LeftRunID  string
	RightRunID string

	LeftOrders  int
	RightOrders int

	LeftKg  float64
	RightKg float64

	LeftCompletion  time.Time
	RightCompletion time.Time

	LineChanges  []LineChange
	BatchChanges []BatchChange

	NewBatches        []string
	RemovedBatches    []string
	NewUnmatched      []string
	ResolvedUnmatched []string
}

// LineChange is the change in total load of one line.
type LineChange struct {
	Line         string
	LeftKg       float64
	RightKg      float64
	DeltaKg      float64
	PercentDelta float64
	Significance string
}

// BatchChange records a batch present in both plans whose quantity or
// completion moved.
type BatchChange struct {
	BatchID       string
	LeftKg        float64
	RightKg       float64
	LeftDone      time.Time
	RightDone     time.Time
	CompletionLag time.Duration // positive means the batch finishes later
}

// Compare builds the report. Either plan may be nil, which is treated as
// an empty plan.
func Compare(left, right *model.Plan) *Report {
	if left == nil {
		left = &model.Plan{}
	}
	if right == nil {
		right = &model.Plan{}
	}

	ls, rs := report.Summarize(left), report.Summarize(right)
	r := &Report{
		LeftRunID:       left.RunID,
		RightRunID:      right.RunID,
		LeftOrders:      left.TotalOrders,
		RightOrders:     right.TotalOrders,
		LeftKg:          ls.AllocatedKg,
		RightKg:         rs.AllocatedKg,
		LeftCompletion:  ls.Completion,
		RightCompletion: rs.Completion,
	}

	r.LineChanges = lineChanges(left.Allocations, right.Allocations)
	r.compareBatches(left.BatchStatus, right.BatchStatus)
	r.NewUnmatched, r.ResolvedUnmatched = setDiff(unmatchedIDs(left), unmatchedIDs(right))
	return r
}

// Changed reports whether the plans differ in anything the report tracks.
func (r *Report) Changed() bool {
	if r.LeftOrders != r.RightOrders || r.LeftKg != r.RightKg || !r.LeftCompletion.Equal(r.RightCompletion) {
		return true
	}
	if len(r.BatchChanges) > 0 || len(r.NewBatches) > 0 || len(r.RemovedBatches) > 0 {
		return true
	}
	if len(r.NewUnmatched) > 0 || len(r.ResolvedUnmatched) > 0 {
		return true
	}
	for _, c := range r.LineChanges {
		if c.DeltaKg != 0 {
			return true
		}
	}
	return false
}

func lineChanges(left, right []model.AllocationRecord) []LineChange {
	lk, order := loadByLine(left, nil)
	rk, order := loadByLine(right, order)

	changes := make([]LineChange, 0, len(order))
	for _, line := range order {
		l, r := report.Round(lk[line], 2), report.Round(rk[line], 2)
		c := LineChange{
			Line:    line,
			LeftKg:  l,
			RightKg: r,
			DeltaKg: report.Round(r-l, 2),
		}
		if l > 0 {
			c.PercentDelta = report.Round((r-l)/l*100, 2)
		}

		switch {
		case l == 0:
			c.Significance = New
		case r == 0:
			c.Significance = Removed
		case math.Abs(c.PercentDelta) < stablePct:
			c.Significance = Stable
		case c.DeltaKg > 0:
			c.Significance = Increased
		default:
			c.Significance = Decreased
		}
		changes = append(changes, c)
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return math.Abs(changes[i].DeltaKg) > math.Abs(changes[j].DeltaKg)
	})
	return changes
}

// loadByLine sums kg per line, extending order with lines not yet seen.
func loadByLine(records []model.AllocationRecord, order []string) (map[string]float64, []string) {
	seen := make(map[string]bool, len(order))
	for _, l := range order {
		seen[l] = true
	}
	kg := make(map[string]float64)
	for _, rec := range records {
		kg[rec.Line] += rec.AllocatedKg
		if !seen[rec.Line] {
			seen[rec.Line] = true
			order = append(order, rec.Line)
		}
	}
	return kg, order
}

func (r *Report) compareBatches(left, right []model.BatchStatus) {
	lb := make(map[string]model.BatchStatus, len(left))
	for _, b := range left {
		lb[b.BatchID] = b
	}
	rb := make(map[string]model.BatchStatus, len(right))
	for _, b := range right {
		rb[b.BatchID] = b
	}

	for _, b := range right {
		prev, ok := lb[b.BatchID]
		if !ok {
			r.NewBatches = append(r.NewBatches, b.BatchID)
			continue
		}
		if prev.TotalQty == b.TotalQty && prev.CompletionAt.Equal(b.CompletionAt) {
			continue
		}
		r.BatchChanges = append(r.BatchChanges, BatchChange{
			BatchID:       b.BatchID,
			LeftKg:        prev.TotalQty,
			RightKg:       b.TotalQty,
			LeftDone:      prev.CompletionAt,
			RightDone:     b.CompletionAt,
			CompletionLag: b.CompletionAt.Sub(prev.CompletionAt),
		})
	}
	for _, b := range left {
		if _, ok := rb[b.BatchID]; !ok {
			r.RemovedBatches = append(r.RemovedBatches, b.BatchID)
		}
	}

	sort.SliceStable(r.BatchChanges, func(i, j int) bool {
		return absDuration(r.BatchChanges[i].CompletionLag) > absDuration(r.BatchChanges[j].CompletionLag)
	})
}

func unmatchedIDs(p *model.Plan) []string {
	ids := make([]string, 0, len(p.Unmatched))
	for _, u := range p.Unmatched {
		ids = append(ids, u.OrderID)
	}
	return ids
}

// setDiff returns the values only in right and the values only in left,
// both sorted.
func setDiff(left, right []string) (added, removed []string) {
	in := func(xs []string) map[string]bool {
		m := make(map[string]bool, len(xs))
		for _, x := range xs {
			m[x] = true
		}
		return m
	}
	lm, rm := in(left), in(right)
	for x := range rm {
		if !lm[x] {
			added = append(added, x)
		}
	}
	for x := range lm {
		if !rm[x] {
			removed = append(removed, x)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// String renders the report for a terminal.
func (r *Report) String() string {
	var b strings.Builder
	b.WriteString("=== Plan Diff ===\n\n")

	fmt.Fprintf(&b, "Orders:     %d -> %d (%+d)\n", r.LeftOrders, r.RightOrders, r.RightOrders-r.LeftOrders)
	fmt.Fprintf(&b, "Allocated:  %.2f -> %.2f kg (%+.2f)\n", r.LeftKg, r.RightKg, r.RightKg-r.LeftKg)
	if !r.LeftCompletion.IsZero() || !r.RightCompletion.IsZero() {
		fmt.Fprintf(&b, "Completion: %s -> %s\n", stamp(r.LeftCompletion), stamp(r.RightCompletion))
	}

	if len(r.NewBatches) > 0 {
		fmt.Fprintf(&b, "\nNew batches: %s\n", strings.Join(r.NewBatches, ", "))
	}
	if len(r.RemovedBatches) > 0 {
		fmt.Fprintf(&b, "Removed batches: %s\n", strings.Join(r.RemovedBatches, ", "))
	}
	if len(r.NewUnmatched) > 0 {
		fmt.Fprintf(&b, "Newly unmatched: %s\n", strings.Join(r.NewUnmatched, ", "))
	}
	if len(r.ResolvedUnmatched) > 0 {
		fmt.Fprintf(&b, "Resolved: %s\n", strings.Join(r.ResolvedUnmatched, ", "))
	}

	if len(r.LineChanges) > 0 {
		b.WriteString("\nLine load:\n")
		fmt.Fprintf(&b, "  %-10s %12s %12s %12s %10s\n", "Line", "Before", "After", "Delta", "Status")
		for _, c := range r.LineChanges {
			fmt.Fprintf(&b, "  %-10s %12.2f %12.2f %+12.2f %10s\n", c.Line, c.LeftKg, c.RightKg, c.DeltaKg, c.Significance)
		}
	}

	if len(r.BatchChanges) > 0 {
		b.WriteString("\nBatch moves (top 10):\n")
		for i, c := range r.BatchChanges {
			if i >= 10 {
				break
			}
			fmt.Fprintf(&b, "  %-24s %10.2f -> %-10.2f %s -> %s (%+.1fh)\n",
				c.BatchID, c.LeftKg, c.RightKg, stamp(c.LeftDone), stamp(c.RightDone), c.CompletionLag.Hours())
		}
	}

	return b.String()
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}
