package redis

import (
	"errors"
	"testing"
	"time"
)

var errProbe = errors.New("publish failed")

func TestCircuitBreakerStartsClosed(t *testing.T) {
	cb := NewCircuitBreaker(3, 100*time.Millisecond)
	if cb.CurrentState() != StateClosed {
		t.Errorf("state = %v, want closed", cb.CurrentState())
	}
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker(3, 100*time.Millisecond)

	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return errProbe }); err != errProbe {
			t.Fatalf("call %d: err = %v, want errProbe", i+1, err)
		}
	}
	if cb.CurrentState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.CurrentState())
	}

	var ran bool
	if err := cb.Execute(func() error { ran = true; return nil }); err != ErrCircuitOpen {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
	if ran {
		t.Error("call executed while open")
	}
}

func TestCircuitBreakerProbeClosesOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker(2, 50*time.Millisecond)
	cb.Execute(func() error { return errProbe })
	cb.Execute(func() error { return errProbe })

	time.Sleep(60 * time.Millisecond)

	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if cb.CurrentState() != StateClosed {
		t.Errorf("state = %v, want closed after successful probe", cb.CurrentState())
	}
}

func TestCircuitBreakerProbeReopensOnFailure(t *testing.T) {
	cb := NewCircuitBreaker(2, 50*time.Millisecond)
	cb.Execute(func() error { return errProbe })
	cb.Execute(func() error { return errProbe })

	time.Sleep(60 * time.Millisecond)
	cb.Execute(func() error { return errProbe })

	if cb.CurrentState() != StateOpen {
		t.Errorf("state = %v, want open after failed probe", cb.CurrentState())
	}
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(3, 100*time.Millisecond)

	cb.Execute(func() error { return errProbe })
	cb.Execute(func() error { return errProbe })
	cb.Execute(func() error { return nil })
	cb.Execute(func() error { return errProbe })
	cb.Execute(func() error { return errProbe })

	if cb.CurrentState() != StateClosed {
		t.Errorf("state = %v, want closed after counter reset", cb.CurrentState())
	}
}

func TestCircuitBreakerStateChangeCallback(t *testing.T) {
	var transitions []State
	cb := NewCircuitBreaker(1, 50*time.Millisecond)
	cb.OnStateChange = func(from, to State) {
		transitions = append(transitions, to)
	}

	cb.Execute(func() error { return errProbe })
	time.Sleep(60 * time.Millisecond)
	cb.Execute(func() error { return nil })

	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", transitions, want)
		}
	}
}
