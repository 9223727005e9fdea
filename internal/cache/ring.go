package cache

import "machine-metrics/internal/domain"

// ring is a fixed-capacity circular store of points for one key. The backing
// slice is allocated once and never resized.
type ring struct {
	points []domain.MetricPoint
	next   int
	size   int
}

func newRing(capacity int) *ring {
	return &ring{points: make([]domain.MetricPoint, capacity)}
}

// push stores p, overwriting the oldest point once the ring is full.
func (r *ring) push(p domain.MetricPoint) {
	r.points[r.next] = p
	r.next++
	if r.next == len(r.points) {
		r.next = 0
	}
	if r.size < len(r.points) {
		r.size++
	}
}

// last copies out the newest min(n, size) points, oldest first.
func (r *ring) last(n int) []domain.MetricPoint {
	if n < 0 {
		n = 0
	}
	if n > r.size {
		n = r.size
	}
	out := make([]domain.MetricPoint, n)
	if n == 0 {
		return out
	}

	start := r.next - n
	if start < 0 {
		start += len(r.points)
	}
	copied := copy(out, r.points[start:min(start+n, len(r.points))])
	copy(out[copied:], r.points[:n-copied])
	return out
}
