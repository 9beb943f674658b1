package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memEntry struct {
	key      string
	data     []byte
	expireAt time.Time
}

func (e *memEntry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

type memLease struct {
	token    string
	expireAt time.Time
}

// MemoryCache is a bounded LRU for values with a ttl. Expired entries are
// dropped on read and by a background sweep. Values stored with a zero ttl
// are pinned: they sit outside the LRU and are only removed by Delete.
type MemoryCache struct {
	mu         sync.Mutex
	order      *list.List
	items      map[string]*list.Element
	pinned     map[string][]byte
	leases     map[string]memLease
	maxEntries int
	now        func() time.Time

	stop chan struct{}
	once sync.Once
}

type MemoryOption func(*MemoryCache)

// WithMaxEntries bounds the entries that have a ttl; the least recently used
// goes first.
func WithMaxEntries(n int) MemoryOption {
	return func(m *MemoryCache) {
		if n > 0 {
			m.maxEntries = n
		}
	}
}

func withClock(now func() time.Time) MemoryOption {
	return func(m *MemoryCache) { m.now = now }
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	m := &MemoryCache{
		order:      list.New(),
		items:      make(map[string]*list.Element),
		pinned:     make(map[string][]byte),
		leases:     make(map[string]memLease),
		maxEntries: 10000,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.sweep(time.Minute)
	return m
}

func (m *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	data, ok := m.getRaw(key)
	if !ok {
		return ErrCacheMiss
	}
	return decode(data, dest)
}

func (m *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	m.setRaw(key, data, ttl)
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		if el, ok := m.items[k]; ok {
			m.removeElement(el)
		}
		delete(m.pinned, k)
	}
	return nil
}

func (m *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (Unlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if l, ok := m.leases[key]; ok && now.Before(l.expireAt) {
		return nil, ErrLockHeld
	}
	token := uuid.NewString()
	m.leases[key] = memLease{token: token, expireAt: now.Add(ttl)}
	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if l, ok := m.leases[key]; ok && l.token == token {
			delete(m.leases, key)
		}
		return nil
	}, nil
}

// Len counts pinned, live and not yet swept entries.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len() + len(m.pinned)
}

func (m *MemoryCache) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

func (m *MemoryCache) getRaw(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if data, ok := m.pinned[key]; ok {
		return data, true
	}
	el, ok := m.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*memEntry)
	if e.expired(m.now()) {
		m.removeElement(el)
		return nil, false
	}
	m.order.MoveToFront(el)
	return e.data, true
}

func (m *MemoryCache) setRaw(key string, data []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ttl <= 0 {
		if el, ok := m.items[key]; ok {
			m.removeElement(el)
		}
		m.pinned[key] = data
		return
	}
	delete(m.pinned, key)
	exp := m.now().Add(ttl)
	if el, ok := m.items[key]; ok {
		e := el.Value.(*memEntry)
		e.data, e.expireAt = data, exp
		m.order.MoveToFront(el)
		return
	}
	m.items[key] = m.order.PushFront(&memEntry{key: key, data: data, expireAt: exp})
	for m.order.Len() > m.maxEntries {
		m.removeElement(m.order.Back())
	}
}

func (m *MemoryCache) removeElement(el *list.Element) {
	m.order.Remove(el)
	delete(m.items, el.Value.(*memEntry).key)
}

func (m *MemoryCache) sweep(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-t.C:
			m.purge()
		}
	}
}

func (m *MemoryCache) purge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for el := m.order.Back(); el != nil; {
		prev := el.Prev()
		if el.Value.(*memEntry).expired(now) {
			m.removeElement(el)
		}
		el = prev
	}
	for k, l := range m.leases {
		if !now.Before(l.expireAt) {
			delete(m.leases, k)
		}
	}
}
