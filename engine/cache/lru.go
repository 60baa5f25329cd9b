package cache

import (
	"container/list"
	"sync"
	"time"
)

// lru is a fixed-capacity LRU with per-entry expiry. It backs reads when the
// KV store is unreachable.
type lru struct {
	mu    sync.Mutex
	cap   int
	ttl   time.Duration
	order *list.List
	items map[string]*list.Element
	now   func() time.Time
}

type lruEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

func newLRU(capacity int, ttl time.Duration) *lru {
	return &lru{
		cap:   capacity,
		ttl:   ttl,
		order: list.New(),
		items: make(map[string]*list.Element),
		now:   time.Now,
	}
}

func (l *lru) Get(key string) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	el, ok := l.items[key]
	if !ok {
		return nil, false
	}
	ent := el.Value.(*lruEntry)
	if l.ttl > 0 && l.now().After(ent.expiresAt) {
		l.order.Remove(el)
		delete(l.items, key)
		return nil, false
	}
	l.order.MoveToFront(el)
	return ent.value, true
}

func (l *lru) Set(key string, value []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if el, ok := l.items[key]; ok {
		ent := el.Value.(*lruEntry)
		ent.value = value
		ent.expiresAt = l.now().Add(l.ttl)
		l.order.MoveToFront(el)
		return
	}

	ent := &lruEntry{key: key, value: value, expiresAt: l.now().Add(l.ttl)}
	l.items[key] = l.order.PushFront(ent)

	for l.order.Len() > l.cap {
		oldest := l.order.Back()
		l.order.Remove(oldest)
		delete(l.items, oldest.Value.(*lruEntry).key)
	}
}

func (l *lru) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}
