package model

import (
	"strings"
	"time"
	"unicode"
)

// BatchKey is the aggregation key shared by all orders in a batch.
type BatchKey struct {
	Count       int
	YarnType    string
	Blend       string
	ColorCode   string
	ColorFamily string
}

// Batch is the schedulable unit produced by the aggregator.
type Batch struct {
	Key BatchKey `json:"-"`

	ID string `json:"batch_id"`

	// Orders is the comma-joined list of constituent order IDs.
	Orders string `json:"orders"`

	RequiredQty    float64 `json:"required_qty"`
	EstimatedHours float64 `json:"calculated_hours"`

	// ColorFamilyNorm is the title-cased family, "Unknown" when absent.
	ColorFamilyNorm string `json:"color_family_norm"`

	// DuePriority orders batches within a color. MaxDue when unused.
	DuePriority time.Time `json:"-"`

	// EarliestDue is the earliest due date among constituent orders, if any.
	EarliestDue *time.Time `json:"earliest_due,omitempty"`

	// Rank is the position assigned by the sequencer.
	Rank int `json:"rank"`
}

// MaxDue is the sentinel due priority for batches without due dates.
var MaxDue = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// SlotKey addresses one (date, line, shift) capacity unit.
type SlotKey struct {
	Date  time.Time
	Line  string
	Shift int
}

// AllocationRecord is one slice of a batch placed into one slot.
type AllocationRecord struct {
	BatchID     string    `json:"batch_id"`
	Orders      string    `json:"orders"`
	Line        string    `json:"line"`
	Date        time.Time `json:"date"`
	Shift       string    `json:"shift"`
	ShiftIndex  int       `json:"-"`
	AllocatedKg float64   `json:"allocated_kg"`
	Start       time.Time `json:"start_dt"`
	End         time.Time `json:"end_dt"`
	Hours       float64   `json:"no_of_hours"`
	ColorCode   string    `json:"color_code"`
	ColorFamily string    `json:"color_family"`
	Count       int       `json:"count"`
	Blend       string    `json:"blend"`
	YarnType    string    `json:"yarn_type"`
}

// Slot returns the capacity slot the record consumed.
func (r AllocationRecord) Slot() SlotKey {
	return SlotKey{Date: r.Date, Line: r.Line, Shift: r.ShiftIndex}
}

// BatchStatus summarizes the allocation of one batch.
type BatchStatus struct {
	BatchID      string    `json:"batch_id"`
	Orders       string    `json:"orders"`
	Count        int       `json:"count"`
	Blend        string    `json:"blend"`
	YarnType     string    `json:"yarn_type"`
	ColorCode    string    `json:"color_code"`
	ColorFamily  string    `json:"color_family"`
	TotalQty     float64   `json:"total_qty"`
	CompletionAt time.Time `json:"completion_dt"`
	HoursTaken   float64   `json:"hours_taken"`
}

// LineUtilization is the load of one line on one day.
type LineUtilization struct {
	Line       string    `json:"line"`
	Date       time.Time `json:"date"`
	CapacityKg float64   `json:"capacity_kg"`
	UsedKg     float64   `json:"used_kg"`
	UtilPct    float64   `json:"util_pct"`
}

// ColorChangeover records a color family switch on a line.
type ColorChangeover struct {
	Line      string    `json:"line"`
	Date      time.Time `json:"date"`
	Shift     string    `json:"shift"`
	FromColor string    `json:"from_color"`
	ToColor   string    `json:"to_color"`
}

// LineColorShare is the share of a color family in a line's output.
type LineColorShare struct {
	Line        string  `json:"line"`
	ColorFamily string  `json:"color_family"`
	TotalKg     float64 `json:"total_kg"`
	Percentage  float64 `json:"percentage"`
}

// UnscheduledQuantity is batch quantity left over when the horizon ran out.
type UnscheduledQuantity struct {
	BatchID      string  `json:"batch_id"`
	Orders       string  `json:"orders"`
	RequiredQty  float64 `json:"required_qty"`
	AllocatedQty float64 `json:"allocated_qty"`
	RemainingQty float64 `json:"remaining_qty"`
}

// Plan is the full output of one planning run.
type Plan struct {
	RunID       string    `json:"run_id"`
	Fingerprint string    `json:"fingerprint"`
	Start       time.Time `json:"start"`
	GeneratedAt time.Time `json:"generated_at"`

	Allocations  []AllocationRecord    `json:"production_plan"`
	Batches      []Batch               `json:"batches"`
	BatchStatus  []BatchStatus         `json:"batch_status"`
	Utilization  []LineUtilization     `json:"line_utilization"`
	Changeovers  []ColorChangeover     `json:"color_changeover"`
	ColorShares  []LineColorShare      `json:"line_color_summary"`
	Unmatched    []UnmatchedOrder      `json:"not_matched"`
	Unscheduled  []UnscheduledQuantity `json:"unscheduled"`
	Samples      []Order               `json:"samples"`
	TotalOrders  int                   `json:"total_pi"`
}

// TotalAllocatedKg sums allocated kg across all records.
func (p *Plan) TotalAllocatedKg() float64 {
	var total float64
	for _, r := range p.Allocations {
		total += r.AllocatedKg
	}
	return total
}

// UnknownFamily labels batches whose color family is blank.
const UnknownFamily = "Unknown"

// NormalizeColorFamily trims and title-cases a color family name, so
// "RED", "red " and "Red" compare equal. Blank names become UnknownFamily.
func NormalizeColorFamily(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnknownFamily
	}
	var sb strings.Builder
	sb.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				sb.WriteRune(unicode.ToLower(r))
			} else {
				sb.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		sb.WriteRune(r)
		prevLetter = false
	}
	return sb.String()
}
