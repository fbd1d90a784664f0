// Package tesscache is a shared cache of per-primitive evaluation data.
//
// Entries are keyed by owner (one mesh), primitive, buffer slot and time
// step, and tagged with the owner's generation at build time. A lookup with
// a newer generation treats the entry as stale: while one caller rebuilds
// it, concurrent callers are served the stale value instead of waiting.
// At most one build per key runs at a time and a value is only visible
// once its build has returned.
package tesscache

import (
	"encoding/binary"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Faultbox/subdiv/internal/logger"
)

const (
	// ShardCount is the number of independently locked shards.
	ShardCount = 16

	// DefaultCapacity is the default number of entries per shard.
	DefaultCapacity = 256

	shardMask = ShardCount - 1
)

// ErrBuildPanicked is returned to callers waiting on a build that panicked.
var ErrBuildPanicked = errors.New("tesscache: build panicked")

// Key identifies one cached value.
type Key struct {
	Owner uuid.UUID
	Prim  uint32
	Slot  uint32
	Time  uint32
}

func (k Key) hash() uint64 {
	var buf [28]byte
	copy(buf[:16], k.Owner[:])
	binary.LittleEndian.PutUint32(buf[16:], k.Prim)
	binary.LittleEndian.PutUint32(buf[20:], k.Slot)
	binary.LittleEndian.PutUint32(buf[24:], k.Time)
	h := fnv.New64a()
	_, _ = h.Write(buf[:]) // fnv.Write never returns an error
	return h.Sum64()
}

// Options configures a cache.
type Options struct {
	// Capacity is the number of entries per shard; DefaultCapacity if <= 0.
	Capacity int
	// Namespace prefixes the metric names.
	Namespace string
}

// Cache is a sharded LRU cache with generation tags. It is safe for
// concurrent use.
type Cache[V any] struct {
	shards   [ShardCount]*shard[V]
	capacity int
	metrics  *metrics
	log      *zap.Logger

	hits      atomic.Uint64
	misses    atomic.Uint64
	stale     atomic.Uint64
	builds    atomic.Uint64
	evictions atomic.Uint64
}

type shard[V any] struct {
	mu       sync.Mutex
	entries  map[Key]*entry[V]
	lru      lruList[Key]
	inflight map[Key]*call[V]
}

type entry[V any] struct {
	value V
	gen   uint64
	node  *lruNode[Key]
}

// call is a build in progress. value and err are written before done is
// closed.
type call[V any] struct {
	gen   uint64
	done  chan struct{}
	value V
	err   error
}

// New returns an empty cache.
func New[V any](opts Options) *Cache[V] {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	c := &Cache[V]{
		capacity: capacity,
		log:      logger.Named("tesscache"),
	}
	for i := range c.shards {
		c.shards[i] = &shard[V]{
			entries:  make(map[Key]*entry[V]),
			inflight: make(map[Key]*call[V]),
		}
	}
	c.metrics = newMetrics(opts.Namespace, func() float64 { return float64(c.Len()) })
	return c
}

func (c *Cache[V]) shard(k Key) *shard[V] {
	return c.shards[k.hash()&shardMask]
}

// Get returns the value published for key and its generation, which may be
// older than the owner's current one.
func (c *Cache[V]) Get(key Key) (V, uint64, bool) {
	s := c.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		var zero V
		return zero, 0, false
	}
	s.lru.MoveToFront(e.node)
	return e.value, e.gen, true
}

// Publish stores value for key unless a newer generation is already stored.
// It reports whether the value was stored.
func (c *Cache[V]) Publish(key Key, value V, gen uint64) bool {
	s := c.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.publishLocked(s, key, value, gen)
}

func (c *Cache[V]) publishLocked(s *shard[V], key Key, value V, gen uint64) bool {
	if e, ok := s.entries[key]; ok {
		if e.gen > gen {
			return false
		}
		e.value = value
		e.gen = gen
		s.lru.MoveToFront(e.node)
		return true
	}

	for s.lru.Len() >= c.capacity {
		oldest, ok := s.lru.RemoveOldest()
		if !ok {
			break
		}
		delete(s.entries, oldest)
		c.evictions.Add(1)
		c.metrics.evictions.Inc()
	}

	s.entries[key] = &entry[V]{value: value, gen: gen, node: s.lru.PushFront(key)}
	return true
}

// GetOrBuild returns the value for key at generation gen, building it with
// build if needed.
//
// A current entry is returned directly. If another caller is already
// building the key, a stale entry is returned when one exists; otherwise
// GetOrBuild waits for that build. Failed builds publish nothing and their
// error is returned to the builder and to every waiter.
func (c *Cache[V]) GetOrBuild(key Key, gen uint64, build func() (V, error)) (V, error) {
	s := c.shard(key)
	for {
		s.mu.Lock()
		e, cached := s.entries[key]
		if cached && e.gen >= gen {
			s.lru.MoveToFront(e.node)
			v := e.value
			s.mu.Unlock()
			c.count(&c.hits, resultHit)
			return v, nil
		}

		if cl, busy := s.inflight[key]; busy {
			if cached {
				v := e.value
				s.mu.Unlock()
				c.count(&c.stale, resultStale)
				return v, nil
			}
			s.mu.Unlock()
			c.metrics.lookups.WithLabelValues(resultWait).Inc()
			<-cl.done
			if cl.err != nil {
				var zero V
				return zero, cl.err
			}
			if cl.gen >= gen {
				return cl.value, nil
			}
			// the finished build was for an older generation
			continue
		}

		cl := &call[V]{gen: gen, done: make(chan struct{})}
		s.inflight[key] = cl
		s.mu.Unlock()
		c.count(&c.misses, resultMiss)

		return c.run(s, key, cl, build)
	}
}

func (c *Cache[V]) run(s *shard[V], key Key, cl *call[V], build func() (V, error)) (V, error) {
	start := time.Now()
	defer func() {
		s.mu.Lock()
		delete(s.inflight, key)
		if cl.err == nil {
			c.publishLocked(s, key, cl.value, cl.gen)
		}
		s.mu.Unlock()
		close(cl.done)
	}()

	cl.err = ErrBuildPanicked
	cl.value, cl.err = build()
	c.builds.Add(1)
	c.metrics.buildDuration.Observe(time.Since(start).Seconds())
	if cl.err != nil {
		c.metrics.builds.WithLabelValues("error").Inc()
		c.log.Debug("build failed",
			zap.Stringer("owner", key.Owner),
			zap.Uint32("prim", key.Prim),
			zap.Error(cl.err),
		)
	} else {
		c.metrics.builds.WithLabelValues("ok").Inc()
	}
	return cl.value, cl.err
}

func (c *Cache[V]) count(ctr *atomic.Uint64, result string) {
	ctr.Add(1)
	c.metrics.lookups.WithLabelValues(result).Inc()
}

// InvalidateOwner drops every entry of owner and returns how many were
// removed. Builds in flight for owner still publish when they finish.
func (c *Cache[V]) InvalidateOwner(owner uuid.UUID) int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for k, e := range s.entries {
			if k.Owner == owner {
				s.lru.Remove(e.node)
				delete(s.entries, k)
				n++
			}
		}
		s.mu.Unlock()
	}
	c.log.Debug("owner invalidated", zap.Stringer("owner", owner), zap.Int("entries", n))
	return n
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.entries = make(map[Key]*entry[V])
		s.lru.Clear()
		s.mu.Unlock()
	}
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.Lock()
		total += len(s.entries)
		s.mu.Unlock()
	}
	return total
}

// Capacity returns the total capacity across all shards.
func (c *Cache[V]) Capacity() int {
	return c.capacity * ShardCount
}

// Stats is a snapshot of the cache counters.
type Stats struct {
	Len       int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Stale     uint64
	Builds    uint64
	Evictions uint64
	HitRate   float64
}

// Stats returns the current counters.
func (c *Cache[V]) Stats() Stats {
	st := Stats{
		Len:       c.Len(),
		Capacity:  c.Capacity(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Stale:     c.stale.Load(),
		Builds:    c.builds.Load(),
		Evictions: c.evictions.Load(),
	}
	if total := st.Hits + st.Misses + st.Stale; total > 0 {
		st.HitRate = float64(st.Hits+st.Stale) / float64(total)
	}
	return st
}

// Collectors returns the prometheus collectors of the cache.
func (c *Cache[V]) Collectors() []prometheus.Collector {
	return c.metrics.collectors()
}

// Register registers the cache metrics with reg.
func (c *Cache[V]) Register(reg prometheus.Registerer) error {
	for _, col := range c.Collectors() {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}
