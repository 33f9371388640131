package ledger

import (
	"testing"
	"time"
)

func TestLimiterAllowsUpToLimit(t *testing.T) {
	l := NewLimiter(5, time.Second)
	base := time.Unix(0, 0)
	l.SetClock(func() time.Time { return base })

	for i := 0; i < 5; i++ {
		if !l.Allow("p1", "trade") {
			t.Fatalf("action %d denied within limit", i+1)
		}
	}
	if l.Allow("p1", "trade") {
		t.Error("sixth action in window allowed")
	}
}

func TestLimiterWindowReset(t *testing.T) {
	l := NewLimiter(5, time.Second)
	now := time.Unix(0, 0)
	l.SetClock(func() time.Time { return now })

	for i := 0; i < 5; i++ {
		l.Allow("p1", "trade")
	}
	if l.Allow("p1", "trade") {
		t.Fatal("window not enforced")
	}

	now = now.Add(999 * time.Millisecond)
	if l.Allow("p1", "trade") {
		t.Error("allowed before window elapsed")
	}

	now = now.Add(time.Millisecond)
	if !l.Allow("p1", "trade") {
		t.Error("denied after window elapsed")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := NewLimiter(1, time.Second)
	base := time.Unix(0, 0)
	l.SetClock(func() time.Time { return base })

	if !l.Allow("p1", "trade") {
		t.Fatal("first action denied")
	}
	if !l.Allow("p1", "rig") {
		t.Error("different kind shares window")
	}
	if !l.Allow("p2", "trade") {
		t.Error("different player shares window")
	}
	if l.Allow("p1", "trade") {
		t.Error("same key not limited")
	}
}

func TestLimiterForget(t *testing.T) {
	l := NewLimiter(1, time.Second)
	base := time.Unix(0, 0)
	l.SetClock(func() time.Time { return base })

	l.Allow("p1", "trade")
	if l.Allow("p1", "trade") {
		t.Fatal("limit not enforced")
	}
	l.Forget("p1")
	if !l.Allow("p1", "trade") {
		t.Error("state survived Forget")
	}
}
