// Package cache provides namespaced, TTL-bounded, size-bounded LRU memoization.
//
// Each namespace has its own lock, so traffic in one namespace never blocks another.
// Expired entries are hidden from Get immediately and physically removed either on
// access or by the periodic background sweep.
package cache

import (
	"container/list"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrNamespaceNotFound = errors.New("cache namespace not found")
	ErrNamespaceExists   = errors.New("cache namespace already exists")
	ErrClosed            = errors.New("cache closed")
)

// entry is one cached value. A zero expiresAt never expires.
type entry struct {
	key        string
	value      any
	expiresAt  time.Time
	lastAccess time.Time
	element    *list.Element
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

type namespace struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	items      map[string]*entry
	lru        *list.List // most recently used at front

	hits      uint64
	misses    uint64
	evictions uint64
	expired   uint64
}

// Stats is a point-in-time view of one namespace.
type Stats struct {
	Entries    int           `json:"entries"`
	MaxEntries int           `json:"max_entries"`
	TTL        time.Duration `json:"ttl"`
	Hits       uint64        `json:"hits"`
	Misses     uint64        `json:"misses"`
	Evictions  uint64        `json:"evictions"`
	Expired    uint64        `json:"expired"`
}

// Cache holds a set of independent namespaces.
type Cache struct {
	mu         sync.RWMutex
	namespaces map[string]*namespace
	now        func() time.Time
	done       chan struct{}
	closed     bool
	wg         sync.WaitGroup
}

// New creates a cache. A positive sweepInterval starts a background goroutine that
// removes expired entries; Close stops it.
func New(sweepInterval time.Duration) *Cache {
	c := &Cache{
		namespaces: make(map[string]*namespace),
		now:        time.Now,
		done:       make(chan struct{}),
	}
	if sweepInterval > 0 {
		c.wg.Add(1)
		go c.sweepLoop(sweepInterval)
	}
	return c
}

// CreateNamespace registers a namespace. ttl 0 means entries never expire.
func (c *Cache) CreateNamespace(name string, ttl time.Duration, maxEntries int) error {
	if name == "" {
		return fmt.Errorf("namespace name is required")
	}
	if maxEntries <= 0 {
		return fmt.Errorf("namespace %q: maxEntries must be positive", name)
	}
	if ttl < 0 {
		return fmt.Errorf("namespace %q: ttl must not be negative", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if _, exists := c.namespaces[name]; exists {
		return fmt.Errorf("%w: %s", ErrNamespaceExists, name)
	}
	c.namespaces[name] = &namespace{
		ttl:        ttl,
		maxEntries: maxEntries,
		items:      make(map[string]*entry),
		lru:        list.New(),
	}
	return nil
}

// Get returns the value if present and not expired.
func (c *Cache) Get(key, ns string) (any, bool) {
	n, err := c.namespace(ns)
	if err != nil {
		return nil, false
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	e, ok := n.items[key]
	if !ok {
		n.misses++
		return nil, false
	}
	now := c.now()
	if e.expired(now) {
		n.remove(e)
		n.expired++
		n.misses++
		return nil, false
	}
	e.lastAccess = now
	n.lru.MoveToFront(e.element)
	n.hits++
	return e.value, true
}

// Set stores value under key. An optional ttlOverride replaces the namespace TTL
// for this entry (0 = never expire). At capacity the least recently used entry is
// evicted first.
func (c *Cache) Set(key string, value any, ns string, ttlOverride ...time.Duration) error {
	n, err := c.namespace(ns)
	if err != nil {
		return err
	}

	ttl := n.ttl
	if len(ttlOverride) > 0 {
		ttl = ttlOverride[0]
		if ttl < 0 {
			return fmt.Errorf("ttl must not be negative")
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	now := c.now()
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}

	if e, exists := n.items[key]; exists {
		e.value = value
		e.expiresAt = expiresAt
		e.lastAccess = now
		n.lru.MoveToFront(e.element)
		return nil
	}

	// Prefer dropping something already dead over a live LRU victim.
	if len(n.items) >= n.maxEntries {
		n.purgeExpired(now)
	}
	for len(n.items) >= n.maxEntries {
		n.evictOldest()
	}

	e := &entry{key: key, value: value, expiresAt: expiresAt, lastAccess: now}
	e.element = n.lru.PushFront(e)
	n.items[key] = e
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (c *Cache) Delete(key, ns string) error {
	n, err := c.namespace(ns)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if e, ok := n.items[key]; ok {
		n.remove(e)
	}
	return nil
}

// Clear empties the namespace but keeps its configuration.
func (c *Cache) Clear(ns string) error {
	n, err := c.namespace(ns)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.items = make(map[string]*entry)
	n.lru.Init()
	return nil
}

// Stats reports counters for one namespace.
func (c *Cache) Stats(ns string) (Stats, error) {
	n, err := c.namespace(ns)
	if err != nil {
		return Stats{}, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	return Stats{
		Entries:    len(n.items),
		MaxEntries: n.maxEntries,
		TTL:        n.ttl,
		Hits:       n.hits,
		Misses:     n.misses,
		Evictions:  n.evictions,
		Expired:    n.expired,
	}, nil
}

// Namespaces returns the registered namespace names.
func (c *Cache) Namespaces() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.namespaces))
	for name := range c.namespaces {
		names = append(names, name)
	}
	return names
}

// Sweep removes expired entries from every namespace and returns how many were dropped.
func (c *Cache) Sweep() int {
	c.mu.RLock()
	spaces := make([]*namespace, 0, len(c.namespaces))
	for _, n := range c.namespaces {
		spaces = append(spaces, n)
	}
	c.mu.RUnlock()

	removed := 0
	now := c.now()
	for _, n := range spaces {
		n.mu.Lock()
		removed += n.purgeExpired(now)
		n.mu.Unlock()
	}
	return removed
}

// Close stops the background sweep. It is safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	if !c.closed {
		close(c.done)
		c.closed = true
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Cache) namespace(name string) (*namespace, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, ErrClosed
	}
	n, ok := c.namespaces[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNamespaceNotFound, name)
	}
	return n, nil
}

func (c *Cache) sweepLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.done:
			return
		}
	}
}

// remove, evictOldest and purgeExpired must be called with n.mu held.
func (n *namespace) remove(e *entry) {
	n.lru.Remove(e.element)
	delete(n.items, e.key)
}

func (n *namespace) evictOldest() {
	back := n.lru.Back()
	if back == nil {
		return
	}
	e, _ := back.Value.(*entry)
	n.remove(e)
	n.evictions++
}

func (n *namespace) purgeExpired(now time.Time) int {
	removed := 0
	for _, e := range n.items {
		if e.expired(now) {
			n.remove(e)
			n.expired++
			removed++
		}
	}
	return removed
}
