package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	cb := New(Config{MaxFailures: 3, ResetTimeout: time.Hour})
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return boom }); err != boom {
			t.Fatalf("call %d: expected boom, got %v", i, err)
		}
	}

	if cb.State() != StateOpen {
		t.Fatalf("expected open after %d consecutive failures, got %v", 3, cb.State())
	}

	if err := cb.Execute(func() error { return nil }); err != ErrCircuitOpen {
		t.Fatalf("expected ErrCircuitOpen while open, got %v", err)
	}
}

func TestBreakerHalfOpenClosesAfterSuccessfulProbes(t *testing.T) {
	cb := New(Config{MaxFailures: 1, ResetTimeout: time.Millisecond, HalfOpenMax: 2})
	cb.Execute(func() error { return errors.New("boom") })
	if cb.State() != StateOpen {
		t.Fatal("expected open after first failure with MaxFailures=1")
	}

	time.Sleep(5 * time.Millisecond)

	for i := 0; i < 2; i++ {
		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Fatalf("probe %d: expected success, got %v", i, err)
		}
	}

	if cb.State() != StateClosed {
		t.Fatalf("expected closed after successful half-open probes, got %v", cb.State())
	}
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb := New(Config{MaxFailures: 1, ResetTimeout: time.Millisecond, HalfOpenMax: 2})
	cb.Execute(func() error { return errors.New("boom") })
	time.Sleep(5 * time.Millisecond)

	cb.Execute(func() error { return errors.New("still broken") })
	if cb.State() != StateOpen {
		t.Fatalf("expected re-open after a half-open probe failure, got %v", cb.State())
	}
}

func TestBreakerResetForcesClosed(t *testing.T) {
	cb := New(Config{MaxFailures: 1, ResetTimeout: time.Hour})
	cb.Execute(func() error { return errors.New("boom") })
	cb.Reset()
	if cb.State() != StateClosed {
		t.Fatal("expected Reset to force closed state")
	}
}
