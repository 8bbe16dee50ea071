package estimate

import (
	"math"
	"testing"

	"github.com/cyclo/millplan/internal/model"
	"github.com/cyclo/millplan/pkg/blend"
	perrors "github.com/cyclo/millplan/pkg/errors"
)

const composition = "70% CYCLO® Recycled Cotton 30% Recycled Polyester"

func newTestEstimator() *Estimator {
	blends := blend.New(map[string]string{composition: "70/30 CYL Cot/poly"})
	machines := []model.MachineProfile{
		{Count: 20, Blend: "70/30 CYL Cot/poly", YarnType: "Carded", TwistFactor: 3.8, RotorRPM: 90000},
		{Count: 20, Blend: "70/30 CYL Cot/poly", YarnType: "Carded", TwistFactor: 4.2, RotorRPM: 90000},
		{Count: 10, Blend: "70/30 CYL Cot/poly", YarnType: "Carded", TwistFactor: 0, RotorRPM: 90000},
	}
	return New(blends, machines, Config{
		Lines: []model.LineConfig{
			{Name: "Line 1", Machines: 4, SpindlesPerMachine: 460, DailyCapacityKg: 5000},
			{Name: "Line 2", Machines: 3, SpindlesPerMachine: 460, DailyCapacityKg: 5000},
			{Name: "Line 4", Machines: 2, SpindlesPerMachine: 240, DailyCapacityKg: 2000},
		},
		MainPool:  []string{"Line 2", "Line 1"},
		SmallPool: []string{"Line 4"},
		BandMinKg: 500,
		BandMaxKg: 2000,
	})
}

func order(qty float64) model.Order {
	return model.Order{ID: "PI-1", Count: 20, Composition: composition, YarnType: "Carded", ColorCode: "C1", ColorFamily: "Red", Quantity: qty}
}

func TestEstimate_FastestLine(t *testing.T) {
	e := newTestEstimator()

	// Line 1 has the most spindles and wins within the main pool.
	hours, err := e.Estimate(order(5000), []string{"Line 2", "Line 1"})
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if hours != 14.18 {
		t.Errorf("hours = %v, want 14.18", hours)
	}
}

func TestEstimate_HighestTwistFactorWins(t *testing.T) {
	e := newTestEstimator()
	p, ok := e.Profile(20, "70/30 CYL Cot/poly", "Carded")
	if !ok {
		t.Fatal("profile missing")
	}
	if p.TwistFactor != 4.2 {
		t.Errorf("TwistFactor = %v, want 4.2", p.TwistFactor)
	}
}

func TestEstimateOrder_PoolBySize(t *testing.T) {
	e := newTestEstimator()

	tests := []struct {
		qty  float64
		want float64
	}{
		{5000, 14.18}, // main pool, Line 1
		{1000, 10.87}, // small pool, Line 4
	}
	for _, tt := range tests {
		got, err := e.EstimateOrder(order(tt.qty))
		if err != nil {
			t.Fatalf("EstimateOrder(%v) error = %v", tt.qty, err)
		}
		if got.Hours != tt.want {
			t.Errorf("EstimateOrder(%v).Hours = %v, want %v", tt.qty, got.Hours, tt.want)
		}
		if got.Blend != "70/30 CYL Cot/poly" {
			t.Errorf("Blend = %q", got.Blend)
		}
	}
}

func TestEstimate_Monotonic(t *testing.T) {
	e := newTestEstimator()
	pool := []string{"Line 1"}

	for _, qty := range []float64{2500, 3000, 7777, 12000} {
		h1, err := e.Estimate(order(qty), pool)
		if err != nil {
			t.Fatal(err)
		}
		h2, err := e.Estimate(order(2*qty), pool)
		if err != nil {
			t.Fatal(err)
		}
		if h2 <= h1 || math.Abs(h2-2*h1) >= 0.02 {
			t.Errorf("qty %v: hours %v, doubled %v", qty, h1, h2)
		}
	}
}

func TestEstimate_Failures(t *testing.T) {
	e := newTestEstimator()

	tests := []struct {
		name   string
		mutate func(*model.Order)
		pool   []string
		code   perrors.Code
	}{
		{"blend not mapped", func(o *model.Order) { o.Composition = "100% Hemp" }, []string{"Line 1"}, perrors.CodeBlendNotMapped},
		{"no machine data", func(o *model.Order) { o.YarnType = "Combed" }, []string{"Line 1"}, perrors.CodeNoMachineData},
		{"zero twist factor", func(o *model.Order) { o.Count = 10 }, []string{"Line 1"}, perrors.CodeZeroThroughput},
		{"empty pool", func(o *model.Order) {}, nil, perrors.CodeZeroThroughput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := order(5000)
			tt.mutate(&o)
			_, err := e.Estimate(o, tt.pool)
			if !perrors.IsCode(err, tt.code) {
				t.Errorf("Estimate() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Order)
		reason string
	}{
		{"count", func(o *model.Order) { o.Count = 0 }, "Missing field: Yarn Count"},
		{"composition", func(o *model.Order) { o.Composition = " " }, "Missing field: Composition"},
		{"yarn type", func(o *model.Order) { o.YarnType = "" }, "Missing field: Yarn Type"},
		{"quantity", func(o *model.Order) { o.Quantity = 0 }, "Missing field: Quantity"},
	}

	for _, tt := range tests {
		o := order(5000)
		tt.mutate(&o)
		err := Validate(o)
		if got := perrors.Reason(err); got != tt.reason {
			t.Errorf("%s: Reason = %q, want %q", tt.name, got, tt.reason)
		}
	}
	if err := Validate(order(1)); err != nil {
		t.Errorf("Validate(valid) = %v", err)
	}
}

func TestRoundUp(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1.1, 1.1},
		{1.101, 1.11},
		{2.0, 2.0},
		{14.175257901957979, 14.18},
	}
	for _, tt := range tests {
		if got := RoundUp(tt.in); got != tt.want {
			t.Errorf("RoundUp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
