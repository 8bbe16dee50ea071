package allocate

import "github.com/cyclo/millplan/internal/model"

// slotEpsilon is the remaining slot capacity treated as full.
const slotEpsilon = 1e-9

// Grid tracks remaining and used kg per (date, line, shift) slot. Slots are
// initialized to the line's per-shift capacity on first touch. A Grid
// belongs to exactly one allocation run.
type Grid struct {
	shiftCap  map[string]float64
	remaining map[model.SlotKey]float64
	used      map[model.SlotKey]float64
}

// NewGrid creates an empty grid for lines split into shifts equal shifts.
func NewGrid(lines []model.LineConfig, shifts int) *Grid {
	g := &Grid{
		shiftCap:  make(map[string]float64, len(lines)),
		remaining: make(map[model.SlotKey]float64),
		used:      make(map[model.SlotKey]float64),
	}
	for _, l := range lines {
		g.shiftCap[l.Name] = l.ShiftCapacity(shifts)
	}
	return g
}

// ShiftCapacity returns the full capacity of one shift on line.
func (g *Grid) ShiftCapacity(line string) float64 {
	return g.shiftCap[line]
}

// Available returns the remaining kg in slot k.
func (g *Grid) Available(k model.SlotKey) float64 {
	if r, ok := g.remaining[k]; ok {
		return r
	}
	c := g.shiftCap[k.Line]
	g.remaining[k] = c
	return c
}

// Used returns the kg already consumed in slot k.
func (g *Grid) Used(k model.SlotKey) float64 {
	return g.used[k]
}

// Consume takes up to qty kg from slot k and returns the slot usage before
// the call and the amount taken.
func (g *Grid) Consume(k model.SlotKey, qty float64) (before, taken float64) {
	avail := g.Available(k)
	if avail <= slotEpsilon || qty <= 0 {
		return g.used[k], 0
	}
	taken = qty
	if avail < taken {
		taken = avail
	}
	before = g.used[k]
	g.remaining[k] = avail - taken
	g.used[k] = before + taken
	return before, taken
}

// Slots returns the number of touched slots.
func (g *Grid) Slots() int {
	return len(g.remaining)
}
