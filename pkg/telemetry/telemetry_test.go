package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cyclo/millplan/pkg/config"
)

func TestMetrics_Summary(t *testing.T) {
	m := NewMetrics()
	m.RecordPlan(10*time.Millisecond, 4, 5000, false)
	m.RecordPlan(30*time.Millisecond, 4, 5000, true)
	m.RecordPlan(20*time.Millisecond, 2, 1000.7, false)
	m.IncrementErrors()

	s := m.Summary()
	if s.PlansBuilt != 2 || s.CacheHits != 1 {
		t.Errorf("built/hits = %d/%d, want 2/1", s.PlansBuilt, s.CacheHits)
	}
	if s.OrdersSeen != 10 {
		t.Errorf("OrdersSeen = %d, want 10", s.OrdersSeen)
	}
	if s.AllocatedKg != 11000 {
		t.Errorf("AllocatedKg = %d, want 11000", s.AllocatedKg)
	}
	if s.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", s.ErrorCount)
	}
	if s.P50Latency != 20*time.Millisecond {
		t.Errorf("P50 = %v, want 20ms", s.P50Latency)
	}
	if s.P99Latency != 30*time.Millisecond {
		t.Errorf("P99 = %v, want 30ms", s.P99Latency)
	}
}

func TestMetrics_LatencyWindow(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < maxLatencySamples+10; i++ {
		m.RecordLatency(time.Duration(i))
	}
	if got := len(m.latencies); got != maxLatencySamples {
		t.Errorf("samples = %d, want %d", got, maxLatencySamples)
	}
	if m.Percentile(0) != 10 {
		t.Errorf("oldest samples should be dropped, min = %v", m.Percentile(0))
	}
}

func TestPercentile_Empty(t *testing.T) {
	if got := NewMetrics().Percentile(0.5); got != 0 {
		t.Errorf("Percentile on empty = %v, want 0", got)
	}
}

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TelemetryConfig{}, "test")
	if err != nil {
		t.Fatal(err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() = %v", err)
	}

	// Spans on the no-op provider must be safe to use.
	ctx, span := StartSpan(context.Background(), "noop", Attr("orders", 3))
	RecordError(ctx, errors.New("boom"))
	span.End()
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		if got := sampler(tt.ratio).Description(); got != tt.want {
			t.Errorf("sampler(%v) = %q, want %q", tt.ratio, got, tt.want)
		}
	}
}

func TestAttr(t *testing.T) {
	if kv := Attr("n", 3); kv.Value.AsInt64() != 3 {
		t.Errorf("Attr int = %v", kv.Value)
	}
	if kv := Attr("s", struct{}{}); kv.Value.AsString() != "{}" {
		t.Errorf("Attr fallback = %q", kv.Value.AsString())
	}
}
