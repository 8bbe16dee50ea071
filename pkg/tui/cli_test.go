package tui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cyclo/millplan/internal/model"
	"github.com/cyclo/millplan/pkg/config"
)

func TestPrintSummary(t *testing.T) {
	day := time.Date(2025, 11, 4, 0, 0, 0, 0, time.UTC)
	plan := &model.Plan{
		RunID:       "run-7",
		TotalOrders: 3,
		Allocations: []model.AllocationRecord{{BatchID: "b1", Line: "Line 1", Date: day, AllocatedKg: 5000}},
		Utilization: []model.LineUtilization{{Line: "Line 1", Date: day, CapacityKg: 5000, UsedKg: 5000, UtilPct: 100}},
		Unmatched:   []model.UnmatchedOrder{{OrderID: "PI-9", Reason: "No machine data"}},
		Unscheduled: []model.UnscheduledQuantity{{BatchID: "b2", RemainingQty: 250}},
	}

	var buf bytes.Buffer
	PrintSummary(&buf, plan, 1500*time.Millisecond)
	out := buf.String()

	for _, want := range []string{"run-7", "5.00 t", "PLAN INCOMPLETE", "250.00 kg", "Line 1", "100.00%", "PI-9", "No machine data", "1.5s"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestPrintSummary_Complete(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, &model.Plan{RunID: "r"}, 0)
	if !strings.Contains(buf.String(), "PLAN COMPLETE") {
		t.Errorf("empty plan should report complete:\n%s", buf.String())
	}
}

func TestPrintLines(t *testing.T) {
	var buf bytes.Buffer
	PrintLines(&buf, config.Default())
	out := buf.String()

	for _, want := range []string{"Line 1", "1840", "1666.67", "main", "Line 5", "small", "16:00 - 24:00"} {
		if !strings.Contains(out, want) {
			t.Errorf("lines table missing %q:\n%s", want, out)
		}
	}
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, "RUNS", []string{"Run", "PI"}, [][]string{{"run-1", "12"}, {"run-2", "7"}})
	out := buf.String()

	for _, want := range []string{"RUNS", "Run", "PI", "run-1", "12", "run-2", "7", "│"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "run-1") > strings.Index(out, "run-2") {
		t.Errorf("rows out of order:\n%s", out)
	}
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	PrintError(&buf, errors.New("boom"))
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("PrintError = %q", buf.String())
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		pct    float64
		filled int
	}{
		{0, 0},
		{50, 10},
		{100, 20},
		{140, 20},
	}
	for _, tt := range tests {
		if got := strings.Count(bar(tt.pct), "█"); got != tt.filled {
			t.Errorf("bar(%v) filled = %d, want %d", tt.pct, got, tt.filled)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[time.Duration]string{
		250 * time.Millisecond:  "250ms",
		2500 * time.Millisecond: "2.5s",
		95 * time.Second:        "1m35s",
	}
	for d, want := range tests {
		if got := formatDuration(d); got != want {
			t.Errorf("formatDuration(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestShowProgress(t *testing.T) {
	var buf bytes.Buffer
	bar := ShowProgress(&buf, 3, "exporting")
	for i := 0; i < 3; i++ {
		_ = bar.Add(1)
	}
	if !bar.IsFinished() {
		t.Error("progress bar should be finished")
	}
}
