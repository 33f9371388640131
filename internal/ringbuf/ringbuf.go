// Package ringbuf provides a fixed-capacity ring that overwrites its oldest
// element once full. It backs the bounded feeds of the simulation: the news
// feed and the admin audit log, where only the most recent entries matter.
package ringbuf

// Ring holds the last Cap() pushed values. It is not safe for concurrent
// use; callers serialize access under their own lock.
type Ring[T any] struct {
	buf  []T
	head int // next write position
	n    int // number of live elements, <= len(buf)
}

// New creates a ring with the given capacity. Minimum capacity is 1.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends a value, evicting the oldest one when the ring is full.
func (r *Ring[T]) Push(v T) {
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	if r.n < len(r.buf) {
		r.n++
	}
}

// Len returns the number of live elements.
func (r *Ring[T]) Len() int {
	return r.n
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Newest returns up to limit elements, most recent first. limit <= 0 means
// all live elements. The returned slice is freshly allocated.
func (r *Ring[T]) Newest(limit int) []T {
	if limit <= 0 || limit > r.n {
		limit = r.n
	}
	out := make([]T, limit)
	for i := 0; i < limit; i++ {
		idx := (r.head - 1 - i + len(r.buf)) % len(r.buf)
		out[i] = r.buf[idx]
	}
	return out
}
