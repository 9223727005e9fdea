package cache

import (
	"sync"

	"machine-metrics/internal/domain"
)

type shard struct {
	sync.RWMutex
	rings    map[domain.MetricKey]*ring
	capacity int
}

func newShard(capacity int) *shard {
	return &shard{
		rings:    make(map[domain.MetricKey]*ring),
		capacity: capacity,
	}
}

func (s *shard) push(key domain.MetricKey, point domain.MetricPoint) {
	s.Lock()
	r, ok := s.rings[key]
	if !ok {
		r = newRing(s.capacity)
		s.rings[key] = r
	}
	r.push(point)
	s.Unlock()
}

// read never creates a ring for an unseen key.
func (s *shard) read(key domain.MetricKey, n int) ([]domain.MetricPoint, bool) {
	s.RLock()
	defer s.RUnlock()
	r, ok := s.rings[key]
	if !ok {
		return nil, false
	}
	return r.last(n), true
}

func (s *shard) keys() []domain.MetricKey {
	s.RLock()
	defer s.RUnlock()
	keys := make([]domain.MetricKey, 0, len(s.rings))
	for k := range s.rings {
		keys = append(keys, k)
	}
	return keys
}
