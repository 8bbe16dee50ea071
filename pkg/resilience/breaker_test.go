package resilience

import (
	"errors"
	"testing"
	"time"
)

var errPlan = errors.New("plan failed")

func TestBreaker_TripsAfterFailures(t *testing.T) {
	now := time.Date(2025, 11, 4, 8, 0, 0, 0, time.UTC)
	b := NewBreaker().WithMaxFailures(2).WithCooldown(time.Minute)
	b.now = func() time.Time { return now }

	fail := func() error { return errPlan }
	for i := 0; i < 2; i++ {
		if err := b.Do(fail); err != errPlan {
			t.Fatalf("Do() #%d = %v, want errPlan", i, err)
		}
	}
	if b.State() != Open {
		t.Fatalf("State() = %v, want open", b.State())
	}
	if err := b.Do(func() error { return nil }); err != ErrOpen {
		t.Errorf("Do() while open = %v, want ErrOpen", err)
	}

	// After the cooldown one probe is admitted.
	now = now.Add(2 * time.Minute)
	if err := b.Acquire(); err != nil {
		t.Fatalf("probe Acquire() = %v", err)
	}
	if err := b.Acquire(); err != ErrOpen {
		t.Errorf("second Acquire() during probe = %v, want ErrOpen", err)
	}
	b.Release(true)
	if b.State() != Closed {
		t.Errorf("State() after good probe = %v, want closed", b.State())
	}
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	now := time.Date(2025, 11, 4, 8, 0, 0, 0, time.UTC)
	b := NewBreaker().WithMaxFailures(1).WithCooldown(time.Minute)
	b.now = func() time.Time { return now }

	b.Do(func() error { return errPlan })
	now = now.Add(2 * time.Minute)
	if err := b.Do(func() error { return errPlan }); err != errPlan {
		t.Fatalf("probe Do() = %v", err)
	}
	if b.State() != Open {
		t.Errorf("State() = %v, want open", b.State())
	}
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := NewBreaker().WithMaxFailures(2)
	b.Do(func() error { return errPlan })
	b.Do(func() error { return nil })
	b.Do(func() error { return errPlan })
	if b.State() != Closed {
		t.Errorf("State() = %v, want closed", b.State())
	}
}

func TestBreaker_ConcurrencyLimit(t *testing.T) {
	b := NewBreaker().WithMaxConcurrent(1)
	if err := b.Acquire(); err != nil {
		t.Fatal(err)
	}
	if err := b.Acquire(); err != ErrBusy {
		t.Errorf("Acquire() at limit = %v, want ErrBusy", err)
	}
	b.Release(true)
	if err := b.Acquire(); err != nil {
		t.Errorf("Acquire() after release = %v", err)
	}
	if b.State() != Closed {
		t.Errorf("busy rejections must not trip the breaker")
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		Closed:   "closed",
		Open:     "open",
		HalfOpen: "half-open",
		State(9): "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
