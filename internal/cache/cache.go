// Package cache holds recent metric history in memory.
//
// A Cache is a fixed set of shards, each an RWMutex-guarded map from metric
// key to a fixed-capacity ring of points. Every key is routed to exactly one
// shard by hashing the whole key, so per-core series spread across shards.
// No operation ever holds more than one shard lock.
package cache

import (
	"cmp"
	"encoding/binary"
	"hash/fnv"
	"slices"

	"emperror.dev/errors"

	"machine-metrics/internal/domain"
)

var (
	ErrInvalidShardCount   = errors.NewPlain("shard count must be at least 1")
	ErrInvalidRingCapacity = errors.NewPlain("ring capacity must be at least 1")
)

// Cache is safe for concurrent use. Rings are created on the first push to a
// key and are never removed or resized.
type Cache struct {
	shards   []*shard
	capacity int
}

// New allocates shardCount shards whose rings each hold ringCapacity points.
func New(shardCount, ringCapacity int) (*Cache, error) {
	if shardCount < 1 {
		return nil, errors.WithDetails(ErrInvalidShardCount, "shardCount", shardCount)
	}
	if ringCapacity < 1 {
		return nil, errors.WithDetails(ErrInvalidRingCapacity, "ringCapacity", ringCapacity)
	}

	c := &Cache{
		shards:   make([]*shard, shardCount),
		capacity: ringCapacity,
	}
	for i := range c.shards {
		c.shards[i] = newShard(ringCapacity)
	}
	return c, nil
}

// Push appends point to the series for key, evicting the oldest point when
// the series is at capacity.
func (c *Cache) Push(key domain.MetricKey, point domain.MetricPoint) {
	c.getShard(key).push(key, point)
}

// Read returns up to count of the newest points for key, oldest first. The
// boolean is false when key has never been pushed.
func (c *Cache) Read(key domain.MetricKey, count int) ([]domain.MetricPoint, bool) {
	return c.getShard(key).read(key, count)
}

// Keys lists every key with history, ordered by kind then core.
func (c *Cache) Keys() []domain.MetricKey {
	var keys []domain.MetricKey
	for _, s := range c.shards {
		keys = append(keys, s.keys()...)
	}
	slices.SortFunc(keys, func(a, b domain.MetricKey) int {
		if a.Kind != b.Kind {
			return cmp.Compare(a.Kind, b.Kind)
		}
		return cmp.Compare(a.Core, b.Core)
	})
	return keys
}

// ShardCount is the number of shards fixed at construction.
func (c *Cache) ShardCount() int {
	return len(c.shards)
}

// RingCapacity is the number of points each key retains.
func (c *Cache) RingCapacity() int {
	return c.capacity
}

func (c *Cache) getShard(key domain.MetricKey) *shard {
	return c.shards[shardIndex(key, len(c.shards))]
}

// shardIndex hashes the kind and the core id together with FNV-1a.
func shardIndex(key domain.MetricKey, shardCount int) int {
	var buf [9]byte
	buf[0] = byte(key.Kind)
	binary.LittleEndian.PutUint64(buf[1:], uint64(key.Core))
	h := fnv.New64a()
	h.Write(buf[:])
	return int(h.Sum64() % uint64(shardCount))
}
