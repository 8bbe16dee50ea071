package allocate

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/cyclo/millplan/internal/model"
	"github.com/cyclo/millplan/pkg/config"
)

var planStart = time.Date(2025, 11, 4, 0, 0, 0, 0, time.UTC)

func testConfig() Config {
	cfg := config.Default()
	return Config{
		Lines:       cfg.Lines,
		MainPool:    cfg.Pools.Main,
		SmallPool:   cfg.Pools.Small,
		Shifts:      cfg.Shifts,
		HorizonDays: cfg.Planning.HorizonDays,
		BandMinKg:   cfg.Planning.SmallBandMinKg,
		BandMaxKg:   cfg.Planning.SmallBandMaxKg,
		Epsilon:     cfg.Planning.Epsilon,
	}
}

func batch(id, family string, qty float64) model.Batch {
	return model.Batch{
		Key:             model.BatchKey{Count: 20, YarnType: "Carded", Blend: "70/30 CYL Cot/poly", ColorCode: id, ColorFamily: family},
		ID:              id,
		Orders:          "PI-" + id,
		RequiredQty:     qty,
		ColorFamilyNorm: family,
		DuePriority:     model.MaxDue,
	}
}

func sumByBatch(records []model.AllocationRecord) map[string]float64 {
	out := make(map[string]float64)
	for _, r := range records {
		out[r.BatchID] += r.AllocatedKg
	}
	return out
}

func TestAllocate_SingleBatchFullyPlaced(t *testing.T) {
	a := New(testConfig())
	records := a.Allocate([]model.Batch{batch("b1", "Red", 5000)}, planStart)

	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3 (one per shift)", len(records))
	}
	if got := sumByBatch(records)["b1"]; math.Abs(got-5000) > 1e-6 {
		t.Errorf("allocated = %v, want 5000", got)
	}
	for i, r := range records {
		if r.Line != "Line 1" {
			t.Errorf("record %d on %s, want Line 1", i, r.Line)
		}
		if !r.Date.Equal(planStart) {
			t.Errorf("record %d date = %v, want %v", i, r.Date, planStart)
		}
		if math.Abs(r.Hours-8) > 1e-9 {
			t.Errorf("record %d hours = %v, want 8", i, r.Hours)
		}
	}

	wantStarts := []time.Duration{0, 8 * time.Hour, 16 * time.Hour}
	for i, r := range records {
		if got := r.Start.Sub(planStart); got != wantStarts[i] {
			t.Errorf("record %d start offset = %v, want %v", i, got, wantStarts[i])
		}
		if got := r.End.Sub(r.Start); got != 8*time.Hour {
			t.Errorf("record %d duration = %v, want 8h", i, got)
		}
	}
}

func TestAllocate_FallsThroughToPoolLines(t *testing.T) {
	a := New(testConfig())
	records := a.Allocate([]model.Batch{
		batch("b1", "Red", 5000),
		batch("b2", "Red", 3000),
	}, planStart)

	// b1 fills Line 1 for the day, so b2 moves on to the next pool line
	// rather than waiting for tomorrow.
	var first *model.AllocationRecord
	for i := range records {
		if records[i].BatchID == "b2" {
			first = &records[i]
			break
		}
	}
	if first == nil {
		t.Fatal("no records for b2")
	}
	if first.Line != "Line 2" || !first.Date.Equal(planStart) {
		t.Errorf("b2 first record %s on %v, want Line 2 on day 0", first.Line, first.Date)
	}
}

func TestAllocate_PackingOffsets(t *testing.T) {
	a := New(testConfig())
	records := a.Allocate([]model.Batch{
		batch("b1", "Red", 2500),
		batch("b2", "Red", 3000),
	}, planStart)

	// b1: shift A full, 833.33 kg into shift B. b2 starts where b1 stopped.
	var b2 model.AllocationRecord
	for _, r := range records {
		if r.BatchID == "b2" {
			b2 = r
			break
		}
	}
	if b2.Line != "Line 1" || b2.Shift != "B" {
		t.Fatalf("b2 first slot = %s/%s, want Line 1/B", b2.Line, b2.Shift)
	}
	want := planStart.Add(8*time.Hour + 4*time.Hour)
	if d := b2.Start.Sub(want); d < -time.Millisecond || d > time.Millisecond {
		t.Errorf("b2 start = %v, want %v", b2.Start, want)
	}
}

func TestAllocate_SlotCapacityNeverExceeded(t *testing.T) {
	cfg := testConfig()
	a := New(cfg)
	batches := []model.Batch{
		batch("m1", "Red", 12000),
		batch("m2", "Blue", 26000),
		batch("m3", "Red", 7000),
		batch("s1", "Grey", 1800),
		batch("s2", "Grey", 900),
		batch("s3", "Pink", 2000),
		batch("s4", "Black", 1500),
		batch("m4", "Green", 40000),
	}
	records := a.Allocate(batches, planStart)

	grid := NewGrid(cfg.Lines, len(cfg.Shifts))
	perSlot := make(map[model.SlotKey]float64)
	for _, r := range records {
		perSlot[r.Slot()] += r.AllocatedKg
	}
	for slot, kg := range perSlot {
		if limit := grid.ShiftCapacity(slot.Line); kg > limit+1e-6 {
			t.Errorf("slot %v holds %v kg, capacity %v", slot, kg, limit)
		}
	}

	sums := sumByBatch(records)
	for _, b := range batches {
		if math.Abs(sums[b.ID]-b.RequiredQty) > 1e-6 {
			t.Errorf("%s allocated %v, want %v", b.ID, sums[b.ID], b.RequiredQty)
		}
	}
}

func TestAllocate_SameFamilySameLine(t *testing.T) {
	a := New(testConfig())
	records := a.Allocate([]model.Batch{
		batch("red1", "Red", 3000),
		batch("blue", "Blue", 3000),
		batch("red2", "Red", 3000),
	}, planStart)

	firstLine := make(map[string]string)
	for _, r := range records {
		if _, ok := firstLine[r.BatchID]; !ok {
			firstLine[r.BatchID] = r.Line
		}
	}
	if firstLine["red1"] != firstLine["red2"] {
		t.Errorf("red batches on %s and %s, want the same line", firstLine["red1"], firstLine["red2"])
	}
	if firstLine["blue"] != "Line 2" {
		t.Errorf("blue on %s, want Line 2 (round robin)", firstLine["blue"])
	}
}

func TestAllocate_SpreadsAcrossPoolSameDay(t *testing.T) {
	a := New(testConfig())
	records := a.Allocate([]model.Batch{batch("huge", "Red", 20000)}, planStart)

	day0 := make(map[string]bool)
	for _, r := range records {
		if r.Date.Equal(planStart) {
			day0[r.Line] = true
		}
	}
	for _, line := range []string{"Line 1", "Line 2", "Line 3"} {
		if !day0[line] {
			t.Errorf("%s unused on day 0", line)
		}
	}
	if day0["Line 4"] || day0["Line 5"] {
		t.Error("main-pool batch should not touch the small pool")
	}
	if got := sumByBatch(records)["huge"]; math.Abs(got-20000) > 1e-6 {
		t.Errorf("allocated = %v, want 20000", got)
	}
}

func TestAllocate_SmallOverflowToMainLines(t *testing.T) {
	a := New(testConfig())
	records := a.Allocate([]model.Batch{
		batch("main", "Grey", 5000),
		batch("s1", "Red", 2000),
		batch("s2", "Blue", 2000),
		batch("s3", "Green", 1500),
	}, planStart)

	var s3 []model.AllocationRecord
	for _, r := range records {
		if r.BatchID == "s3" {
			s3 = append(s3, r)
		}
	}
	if len(s3) == 0 {
		t.Fatal("s3 not placed")
	}
	if s3[0].Line != "Line 2" || !s3[0].Date.Equal(planStart) {
		t.Errorf("s3 first record %s on %v, want Line 2 on day 0", s3[0].Line, s3[0].Date)
	}
}

func TestAllocate_AllSmallUsesEveryLine(t *testing.T) {
	a := New(testConfig())
	batches := []model.Batch{
		batch("a", "Red", 1500),
		batch("b", "Blue", 1500),
		batch("c", "Green", 1500),
		batch("d", "Pink", 1500),
	}
	if !a.AllSmall(batches) {
		t.Fatal("AllSmall() = false")
	}
	records := a.Allocate(batches, planStart)

	want := map[string]string{"a": "Line 1", "b": "Line 2", "c": "Line 3", "d": "Line 4"}
	for _, r := range records {
		if want[r.BatchID] != r.Line {
			t.Errorf("%s on %s, want %s", r.BatchID, r.Line, want[r.BatchID])
		}
	}
}

func TestAllocate_HorizonExhausted(t *testing.T) {
	cfg := testConfig()
	cfg.HorizonDays = 1
	a := New(cfg)

	records := a.Allocate([]model.Batch{batch("big", "Red", 40000)}, planStart)

	got := sumByBatch(records)["big"]
	if math.Abs(got-30000) > 1e-6 {
		t.Errorf("allocated = %v, want 30000 (two days of main pool)", got)
	}
	last := planStart.AddDate(0, 0, 1)
	for _, r := range records {
		if r.Date.After(last) {
			t.Errorf("record on %v beyond horizon %v", r.Date, last)
		}
	}
}

func TestAllocate_Idempotent(t *testing.T) {
	a := New(testConfig())
	batches := []model.Batch{
		batch("m1", "Red", 12000),
		batch("s1", "Grey", 1800),
		batch("m2", "Blue", 9000),
	}
	first := a.Allocate(batches, planStart)
	second := a.Allocate(batches, planStart)
	if !reflect.DeepEqual(first, second) {
		t.Error("Allocate() is not idempotent")
	}
}

func TestAllocate_Empty(t *testing.T) {
	a := New(testConfig())
	if got := a.Allocate(nil, planStart); len(got) != 0 {
		t.Errorf("Allocate(nil) = %d records, want 0", len(got))
	}
}

func TestLineCache(t *testing.T) {
	c := NewLineCache()
	pool := []string{"Line 4", "Line 5"}

	if got := c.Assign(model.PoolSmall, pool, "Red"); got != "Line 4" {
		t.Errorf("Red → %s, want Line 4", got)
	}
	if got := c.Assign(model.PoolSmall, pool, "Blue"); got != "Line 5" {
		t.Errorf("Blue → %s, want Line 5", got)
	}
	if got := c.Assign(model.PoolSmall, pool, "Green"); got != "Line 4" {
		t.Errorf("Green → %s, want Line 4 (wrap)", got)
	}
	if got := c.Assign(model.PoolSmall, pool, "Red"); got != "Line 4" {
		t.Errorf("Red rebound to %s", got)
	}
	// Pools are independent.
	if got := c.Assign(model.PoolMain, []string{"Line 1"}, "Blue"); got != "Line 1" {
		t.Errorf("main Blue → %s, want Line 1", got)
	}
	if _, ok := c.Lookup(model.PoolMain, "Red"); ok {
		t.Error("Red should not be bound in the main pool")
	}
	if got := c.Assign(model.PoolMain, nil, "Red"); got != "" {
		t.Errorf("empty pool → %q, want empty", got)
	}
}

func TestGrid_Consume(t *testing.T) {
	g := NewGrid([]model.LineConfig{{Name: "L", Machines: 1, SpindlesPerMachine: 1, DailyCapacityKg: 300}}, 3)
	k := model.SlotKey{Date: planStart, Line: "L", Shift: 0}

	if got := g.Available(k); got != 100 {
		t.Fatalf("Available() = %v, want 100", got)
	}
	before, taken := g.Consume(k, 60)
	if before != 0 || taken != 60 {
		t.Errorf("Consume(60) = (%v, %v), want (0, 60)", before, taken)
	}
	before, taken = g.Consume(k, 60)
	if before != 60 || taken != 40 {
		t.Errorf("Consume(60) = (%v, %v), want (60, 40)", before, taken)
	}
	if _, taken = g.Consume(k, 10); taken != 0 {
		t.Errorf("full slot gave %v kg", taken)
	}
	if g.Used(k) != 100 {
		t.Errorf("Used() = %v, want 100", g.Used(k))
	}
}
