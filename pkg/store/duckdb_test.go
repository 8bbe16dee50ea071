package store

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cyclo/millplan/internal/model"
)

func testPlan(runID string, generated time.Time) *model.Plan {
	day := time.Date(2025, 11, 4, 0, 0, 0, 0, time.UTC)
	rec := func(line, shift string, offset time.Duration, kg float64) model.AllocationRecord {
		return model.AllocationRecord{
			BatchID: "20-70/30-C1", Orders: "PI-1", Line: line, Date: day, Shift: shift,
			AllocatedKg: kg, Start: day.Add(offset), End: day.Add(offset + 8*time.Hour), Hours: 8,
			ColorCode: "C1", ColorFamily: "Red", Count: 20, Blend: "70/30 CYL Cot/poly", YarnType: "Carded",
		}
	}
	return &model.Plan{
		RunID:       runID,
		Fingerprint: "fp-" + runID,
		Start:       day,
		GeneratedAt: generated,
		TotalOrders: 2,
		Batches:     []model.Batch{{ID: "20-70/30-C1"}},
		Allocations: []model.AllocationRecord{
			rec("Line 1", "A", 0, 1666.67),
			rec("Line 1", "B", 8*time.Hour, 1666.67),
			rec("Line 2", "A", 0, 1000),
		},
		Unmatched: []model.UnmatchedOrder{{OrderID: "PI-2", Code: "E601", Reason: "Blend not mapped: x"}},
	}
}

func TestStore_SaveAndQuery(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	older := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	if err := s.Save(ctx, testPlan("r1", older)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Save(ctx, testPlan("r2", newer)); err != nil {
		t.Fatal(err)
	}
	// Saving again replaces rather than duplicates.
	if err := s.Save(ctx, testPlan("r1", older)); err != nil {
		t.Fatal(err)
	}

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].RunID != "r2" {
		t.Errorf("newest run = %s, want r2", runs[0].RunID)
	}
	if math.Abs(runs[1].AllocatedKg-4333.34) > 1e-6 {
		t.Errorf("AllocatedKg = %v, want 4333.34", runs[1].AllocatedKg)
	}

	loads, err := s.LineLoads(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if len(loads) != 2 {
		t.Fatalf("len(loads) = %d, want 2", len(loads))
	}
	if loads[0].Line != "Line 1" || loads[0].Days != 1 || loads[0].Hours != 16 {
		t.Errorf("Line 1 load = %+v", loads[0])
	}
}

func TestStore_ExportParquet(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "plans.duckdb"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Save(ctx, testPlan("r1", time.Now())); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "r1.parquet")
	if err := s.ExportParquet(ctx, "r1", out, ""); err != nil {
		t.Fatalf("ExportParquet() error = %v", err)
	}
	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		t.Errorf("parquet file missing or empty: %v", err)
	}
}

func TestQuote(t *testing.T) {
	if got := quote("it's"); got != "it''s" {
		t.Errorf("quote = %q", got)
	}
}
