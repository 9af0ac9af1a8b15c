package cache

import (
	"container/list"
	"sync"
	"time"
)

// SimpleEngineFactory creates simple engine instances.
type SimpleEngineFactory struct {
	capacity int
	tti      time.Duration
}

// NewSimpleEngineFactory creates a new simple engine factory.
func NewSimpleEngineFactory(capacity int, tti time.Duration) EngineFactory {
	return &SimpleEngineFactory{capacity: capacity, tti: tti}
}

// Create creates a new simple engine instance.
func (sef *SimpleEngineFactory) Create() (Engine, error) {
	return NewSimpleEngine(sef.capacity, sef.tti), nil
}

type simpleEntry struct {
	key       string
	value     any
	expiresAt time.Time
	idleAt    time.Time
	elem      *list.Element
}

func (e *simpleEntry) expired(now time.Time) bool {
	if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
		return true
	}
	if !e.idleAt.IsZero() && now.After(e.idleAt) {
		return true
	}
	return false
}

// SimpleEngine is the dependency-free reference engine: a map plus an
// intrusive recency list under one mutex. It trades throughput for exact
// LRU order, exact counts and full key enumeration, which makes it the
// engine the contract tests are written against.
type SimpleEngine struct {
	mu        sync.Mutex
	capacity  int
	tti       time.Duration
	items     map[string]*simpleEntry
	order     *list.List // front is most recently used
	evictions int64
}

// NewSimpleEngine creates a simple engine holding at most capacity entries.
func NewSimpleEngine(capacity int, tti time.Duration) *SimpleEngine {
	return &SimpleEngine{
		capacity: capacity,
		tti:      tti,
		items:    make(map[string]*simpleEntry),
		order:    list.New(),
	}
}

// Get returns the live value for key, marking it most recently used and
// pushing its idle deadline forward.
func (se *SimpleEngine) Get(key string) (any, bool) {
	se.mu.Lock()
	defer se.mu.Unlock()

	ent, found := se.items[key]
	if !found {
		return nil, false
	}
	now := time.Now()
	if ent.expired(now) {
		se.removeLocked(ent)
		return nil, false
	}
	se.order.MoveToFront(ent.elem)
	if se.tti > 0 {
		ent.idleAt = now.Add(se.tti)
	}
	return ent.value, true
}

// Set stores value under key, evicting the least recently used entry when
// the engine is full.
func (se *SimpleEngine) Set(key string, value any, ttl time.Duration) {
	se.mu.Lock()
	defer se.mu.Unlock()

	now := time.Now()
	if ent, found := se.items[key]; found {
		ent.value = value
		ent.expiresAt = time.Time{}
		if ttl > 0 {
			ent.expiresAt = now.Add(ttl)
		}
		ent.idleAt = time.Time{}
		if se.tti > 0 {
			ent.idleAt = now.Add(se.tti)
		}
		se.order.MoveToFront(ent.elem)
		return
	}

	if se.order.Len() >= se.capacity {
		if oldest := se.order.Back(); oldest != nil {
			se.removeLocked(oldest.Value.(*simpleEntry))
			se.evictions++
		}
	}

	ent := &simpleEntry{key: key, value: value}
	if ttl > 0 {
		ent.expiresAt = now.Add(ttl)
	}
	if se.tti > 0 {
		ent.idleAt = now.Add(se.tti)
	}
	ent.elem = se.order.PushFront(ent)
	se.items[key] = ent
}

// Delete removes key if present.
func (se *SimpleEngine) Delete(key string) {
	se.mu.Lock()
	defer se.mu.Unlock()

	if ent, found := se.items[key]; found {
		se.removeLocked(ent)
	}
}

// Contains reports whether key holds a live value without touching recency
// or the idle deadline.
func (se *SimpleEngine) Contains(key string) bool {
	se.mu.Lock()
	defer se.mu.Unlock()

	ent, found := se.items[key]
	if !found {
		return false
	}
	if ent.expired(time.Now()) {
		se.removeLocked(ent)
		return false
	}
	return true
}

// Purge removes all entries.
func (se *SimpleEngine) Purge() {
	se.mu.Lock()
	defer se.mu.Unlock()

	se.items = make(map[string]*simpleEntry)
	se.order.Init()
}

// Len returns the number of resident entries, counting expired entries not
// yet observed by a read.
func (se *SimpleEngine) Len() int {
	se.mu.Lock()
	defer se.mu.Unlock()

	return se.order.Len()
}

// Evictions returns the number of capacity evictions so far.
func (se *SimpleEngine) Evictions() int64 {
	se.mu.Lock()
	defer se.mu.Unlock()

	return se.evictions
}

// Keys returns resident keys, most recently used first.
func (se *SimpleEngine) Keys() []string {
	se.mu.Lock()
	defer se.mu.Unlock()

	keys := make([]string, 0, se.order.Len())
	for elem := se.order.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*simpleEntry).key)
	}
	return keys
}

// Kind names the engine in stats reports.
func (se *SimpleEngine) Kind() string {
	return EngineSimple
}

// Close releases the engine's resources.
func (se *SimpleEngine) Close() {
	se.Purge()
}

func (se *SimpleEngine) removeLocked(ent *simpleEntry) {
	se.order.Remove(ent.elem)
	delete(se.items, ent.key)
}
