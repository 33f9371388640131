package ledger

import "time"

// Limiter is a fixed-window action rate limiter keyed by (player, kind).
// The first action in a window starts it; subsequent actions within the
// window count against the limit, and the window resets once it elapses.
// Not safe for concurrent use: the session lock serializes callers.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	windows map[limiterKey]*actionWindow
}

type limiterKey struct {
	playerID string
	kind     string
}

type actionWindow struct {
	start time.Time
	count int
}

// NewLimiter returns a limiter allowing limit actions per window per
// (player, kind) pair.
func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: make(map[limiterKey]*actionWindow),
	}
}

// SetClock overrides the time source. Test hook.
func (l *Limiter) SetClock(now func() time.Time) { l.now = now }

// Allow records one action and reports whether it fits in the current
// window. A denied action still counts nothing toward future windows.
func (l *Limiter) Allow(playerID, kind string) bool {
	key := limiterKey{playerID, kind}
	t := l.now()

	w, ok := l.windows[key]
	if !ok || t.Sub(w.start) >= l.window {
		l.windows[key] = &actionWindow{start: t, count: 1}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Forget drops all state for a player, e.g. on disconnect cleanup.
func (l *Limiter) Forget(playerID string) {
	for key := range l.windows {
		if key.playerID == playerID {
			delete(l.windows, key)
		}
	}
}
