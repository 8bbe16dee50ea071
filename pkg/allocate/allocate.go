// Package allocate places sequenced batches into time-sliced line capacity.
//
// Allocation is greedy and sequential: batches claim capacity in the order
// they are given, day by day from the plan start, until either the batch is
// fully placed or the horizon ends.
package allocate

import (
	"math"
	"time"

	"github.com/cyclo/millplan/internal/model"
)

// Config is the static mill layout the allocator works against.
type Config struct {
	Lines     []model.LineConfig
	MainPool  []string
	SmallPool []string
	Shifts    []model.Shift

	// HorizonDays bounds the walk; the last day planned is start+HorizonDays.
	HorizonDays int

	// Batches with required quantity in [BandMinKg, BandMaxKg] are small.
	BandMinKg float64
	BandMaxKg float64

	// Epsilon is the remaining quantity treated as fully placed.
	Epsilon float64
}

// Allocator assigns batches to slots. It holds no per-run state: every call
// to Allocate works on a fresh Grid and LineCache.
type Allocator struct {
	cfg   Config
	lines map[string]model.LineConfig
	all   []string
}

// New returns an Allocator for cfg.
func New(cfg Config) *Allocator {
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = 1e-6
	}
	a := &Allocator{
		cfg:   cfg,
		lines: make(map[string]model.LineConfig, len(cfg.Lines)),
	}
	for _, l := range cfg.Lines {
		a.lines[l.Name] = l
		a.all = append(a.all, l.Name)
	}
	return a
}

// InBand reports whether qty falls inside the small order-size band.
func (a *Allocator) InBand(qty float64) bool {
	return qty >= a.cfg.BandMinKg && qty <= a.cfg.BandMaxKg
}

// AllSmall reports whether every batch is inside the small band, in which
// case every line is eligible for every batch.
func (a *Allocator) AllSmall(batches []model.Batch) bool {
	if len(batches) == 0 {
		return false
	}
	for _, b := range batches {
		if !a.InBand(b.RequiredQty) {
			return false
		}
	}
	return true
}

// Pool returns the name and lines of the pool a batch of qty kg draws from.
func (a *Allocator) Pool(qty float64, allSmall bool) (string, []string) {
	switch {
	case allSmall:
		return model.PoolAll, a.all
	case a.InBand(qty):
		return model.PoolSmall, a.cfg.SmallPool
	default:
		return model.PoolMain, a.cfg.MainPool
	}
}

// run is the mutable state of one Allocate call.
type run struct {
	*Allocator
	grid     *Grid
	cache    *LineCache
	records  []model.AllocationRecord
	allSmall bool
}

// Allocate places batches in order starting on the calendar day of start.
// Records are appended in placement order. Quantity that does not fit in
// the horizon is left unplaced.
func (a *Allocator) Allocate(batches []model.Batch, start time.Time) []model.AllocationRecord {
	r := &run{
		Allocator: a,
		grid:      NewGrid(a.cfg.Lines, len(a.cfg.Shifts)),
		cache:     NewLineCache(),
		allSmall:  a.AllSmall(batches),
	}

	y, m, d := start.Date()
	day0 := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	for _, b := range batches {
		r.place(b, day0)
	}
	return r.records
}

func (r *run) place(b model.Batch, day0 time.Time) {
	poolName, pool := r.Pool(b.RequiredQty, r.allSmall)
	assigned := r.cache.Assign(poolName, pool, b.ColorFamilyNorm)
	overflow := r.overflowLines(b, pool)

	eps := r.cfg.Epsilon
	remaining := b.RequiredQty
	last := day0.AddDate(0, 0, r.cfg.HorizonDays)

	for date := day0; remaining > eps && !date.After(last); {
		before := remaining

		remaining = r.fill(b, date, r.visitOrder(pool, assigned, remaining), remaining)
		if remaining > eps && len(overflow) > 0 {
			remaining = r.fill(b, date, overflow, remaining)
		}

		if remaining == before {
			date = date.AddDate(0, 0, 1)
		}
	}
}

// visitOrder puts the assigned line first, unless remaining exceeds the
// pool's whole day, in which case the pool is walked in its own order.
func (r *run) visitOrder(pool []string, assigned string, remaining float64) []string {
	var dayCap float64
	for _, name := range pool {
		dayCap += r.lines[name].DailyCapacityKg
	}
	if remaining > dayCap || assigned == "" {
		return pool
	}
	order := make([]string, 0, len(pool))
	order = append(order, assigned)
	for _, name := range pool {
		if name != assigned {
			order = append(order, name)
		}
	}
	return order
}

// overflowLines returns the main lines a small-band batch may spill onto
// when its own pool is full for the day.
func (r *run) overflowLines(b model.Batch, pool []string) []string {
	if r.allSmall || !r.InBand(b.RequiredQty) {
		return nil
	}
	inPool := make(map[string]bool, len(pool))
	for _, name := range pool {
		inPool[name] = true
	}
	var out []string
	for _, name := range r.cfg.MainPool {
		if !inPool[name] {
			out = append(out, name)
		}
	}
	return out
}

// fill consumes shift capacity on lines for date and returns what is left.
func (r *run) fill(b model.Batch, date time.Time, lines []string, remaining float64) float64 {
	eps := r.cfg.Epsilon
	for _, line := range lines {
		if remaining <= eps {
			break
		}
		shiftCap := r.grid.ShiftCapacity(line)
		for i, shift := range r.cfg.Shifts {
			if remaining <= eps {
				break
			}
			key := model.SlotKey{Date: date, Line: line, Shift: i}
			usedBefore, used := r.grid.Consume(key, remaining)
			if used == 0 {
				continue
			}

			shiftStart := date.Add(time.Duration(shift.StartMinute) * time.Minute)
			startAt := shiftStart.Add(minutes(usedBefore / shiftCap * float64(shift.DurationMinutes)))
			endAt := startAt.Add(minutes(used / shiftCap * float64(shift.DurationMinutes)))

			r.records = append(r.records, model.AllocationRecord{
				BatchID:     b.ID,
				Orders:      b.Orders,
				Line:        line,
				Date:        date,
				Shift:       shift.Name,
				ShiftIndex:  i,
				AllocatedKg: used,
				Start:       startAt,
				End:         endAt,
				Hours:       used / shiftCap * float64(shift.DurationMinutes) / 60.0,
				ColorCode:   b.Key.ColorCode,
				ColorFamily: b.ColorFamilyNorm,
				Count:       b.Key.Count,
				Blend:       b.Key.Blend,
				YarnType:    b.Key.YarnType,
			})
			remaining -= used
		}
	}
	return remaining
}

// minutes converts fractional minutes to a Duration at microsecond
// resolution.
func minutes(m float64) time.Duration {
	return time.Duration(math.Round(m*60e6)) * time.Microsecond
}
