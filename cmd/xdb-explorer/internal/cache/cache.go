package cache

import (
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultMaxSize bounds the number of live entries.
	DefaultMaxSize = 50
	// DefaultTTL is how long a stored response stays servable.
	DefaultTTL = 5 * time.Minute
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is a time-bounded memoization of API responses, keyed by request URL
// plus parameters. Eviction is by insertion order, not access order: when the
// cache is full, the earliest-inserted surviving key is dropped even if it was
// read recently. Expired entries are removed lazily on lookup, there is no
// background sweep.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	order   []string
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

func New(maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]entry),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// GenerateKey derives a deterministic cache key from a URL and a parameter
// mapping. Parameters are ordered lexicographically by name so that two
// logically identical requests always collide to the same key regardless of
// the order the caller assembled them in.
func GenerateKey(url string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+params[name])
	}
	return url + "?" + strings.Join(pairs, "&")
}

// Get returns the stored value for key if it is present and not expired.
// An expired entry is deleted and reported as absent.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.remove(key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with the configured TTL. If the cache is at
// capacity the earliest-inserted entry is evicted first.
func (c *Cache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		if len(c.order) > 0 {
			c.remove(c.order[0])
		}
	}

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = entry{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Clear drops all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	c.order = c.order[:0]
}

// Len reports the number of live (possibly expired but not yet collected)
// entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// remove must be called with the lock held.
func (c *Cache) remove(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
