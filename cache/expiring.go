/*
Package cache provides a small, size-bounded, time-expiring loading map.

PURPOSE:
  Keeps a handful of slow-to-load values (ledger balances) for a short time
  so that one unit of work sees a consistent snapshot without repeated round
  trips to the source.

POLICIES:
  Expiration: time since CREATION, not since last access. An entry older
              than TTL is dropped on read and the next Get reloads it.
  Admission:  at most MaxSize entries. When full, expired entries are purged
              first, then the oldest-created entry is evicted. Reads never
              reorder entries.
  Loading:    at most one in-flight load per key. Concurrent callers for the
              same key wait for that load; the value is stored before any of
              them returns. A fresh entry is never overwritten by a load.
              The load ignores cancellation; a caller whose ctx ends stops
              waiting without failing the others.

SCOPE:
  A map belongs to one owner (one evaluation). It is not a process-wide
  cache and runs no goroutine except an in-flight load; dropping the map is
  enough to release it.

USAGE:
  m := cache.NewExpiringMap(func(ctx context.Context, key string) (decimal.Decimal, error) {
      return ledger.CurrentAccountBalance(ctx, key)
  }, cache.WithMaxSize(20), cache.WithTTL(30*time.Second))

  balance, err := m.Get(ctx, "customer-loan-principal")
*/
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultMaxSize = 20
	DefaultTTL     = 30 * time.Second
)

// Loader produces the value for a key on a miss.
type Loader[V any] func(ctx context.Context, key string) (V, error)

// ExpiringMap is a loading map with creation-time expiry and a size bound.
type ExpiringMap[V any] struct {
	mu      sync.Mutex
	entries map[string]*list.Element // -> *entry[V]
	order   *list.List               // front = oldest created

	group  singleflight.Group
	loader Loader[V]

	maxSize int
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

type entry[V any] struct {
	key     string
	value   V
	created time.Time
}

// Option configures an ExpiringMap.
type Option func(*options)

type options struct {
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// WithMaxSize bounds the number of entries. Values below 1 are ignored.
func WithMaxSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSize = n
		}
	}
}

// WithTTL sets the time-since-creation after which an entry expires.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func NewExpiringMap[V any](loader Loader[V], opts ...Option) *ExpiringMap[V] {
	o := options{
		maxSize: DefaultMaxSize,
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &ExpiringMap[V]{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		loader:  loader,
		maxSize: o.maxSize,
		ttl:     o.ttl,
		now:     o.now,
		logger:  o.logger,
	}
}

// Get returns the cached value for key, loading it on a miss or after expiry.
// Loader errors are returned as-is and nothing is cached.
func (m *ExpiringMap[V]) Get(ctx context.Context, key string) (V, error) {
	if v, ok := m.lookup(key); ok {
		m.logger.Debug("cache hit", zap.String("key", key))
		return v, nil
	}
	m.logger.Debug("cache miss", zap.String("key", key))

	// The shared load outlives any one caller: a caller that gives up
	// returns its own ctx.Err() and leaves the load to the others.
	loadCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (any, error) {
		// A load for this key may have completed between lookup and DoChan.
		if v, ok := m.lookup(key); ok {
			return v, nil
		}
		v, err := m.loader(loadCtx, key)
		if err != nil {
			return nil, err
		}
		m.store(key, v)
		return v, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		m.logger.Debug("cache wait abandoned", zap.String("key", key))
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if res.Shared {
			m.logger.Debug("cache load shared", zap.String("key", key))
		}
		return res.Val.(V), nil
	}
}

// Len returns the number of entries, expired ones included until they are
// next touched.
func (m *ExpiringMap[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// Contains reports whether key holds an unexpired entry, without loading.
func (m *ExpiringMap[V]) Contains(key string) bool {
	_, ok := m.lookup(key)
	return ok
}

func (m *ExpiringMap[V]) lookup(key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	el, ok := m.entries[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[V])
	if m.expired(e) {
		m.removeLocked(el)
		return zero, false
	}
	return e.value, true
}

func (m *ExpiringMap[V]) store(key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[key]; ok {
		if !m.expired(el.Value.(*entry[V])) {
			return
		}
		m.removeLocked(el)
	}

	if m.order.Len() >= m.maxSize {
		m.purgeExpiredLocked()
	}
	for m.order.Len() >= m.maxSize {
		oldest := m.order.Front()
		m.logger.Debug("cache evict", zap.String("key", oldest.Value.(*entry[V]).key))
		m.removeLocked(oldest)
	}

	m.entries[key] = m.order.PushBack(&entry[V]{key: key, value: value, created: m.now()})
}

func (m *ExpiringMap[V]) expired(e *entry[V]) bool {
	return m.now().Sub(e.created) >= m.ttl
}

func (m *ExpiringMap[V]) purgeExpiredLocked() {
	for el := m.order.Front(); el != nil; {
		next := el.Next()
		if m.expired(el.Value.(*entry[V])) {
			m.removeLocked(el)
		}
		el = next
	}
}

func (m *ExpiringMap[V]) removeLocked(el *list.Element) {
	delete(m.entries, el.Value.(*entry[V]).key)
	m.order.Remove(el)
}
