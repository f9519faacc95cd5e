package validate

import "sync"

// Verdict is the string-derived portion of a validation result. Everything
// score-related that depends on the individual observation (OCR confidence,
// inversion, alternative rank) stays outside the cache so memoization can
// never change an outcome.
type Verdict struct {
	Valid             bool
	Reason            Reason
	InvalidChars      string
	Pattern           string
	PatternConfidence float64
}

// Cache memoizes verdicts keyed on cleaned text. Implementations must be
// transparent: a hit returns exactly what the miss path would compute.
type Cache interface {
	Get(key string) (Verdict, bool)
	Put(key string, v Verdict)
	Reset()
}

// NewBoundedCache returns an evict-oldest cache holding at most size
// entries. Size <= 0 yields a no-op cache.
func NewBoundedCache(size int) Cache {
	if size <= 0 {
		return NopCache{}
	}
	return &boundedCache{
		max:     size,
		entries: make(map[string]Verdict, size),
	}
}

type boundedCache struct {
	mu      sync.Mutex
	max     int
	entries map[string]Verdict
	order   []string
}

func (c *boundedCache) Get(key string) (Verdict, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *boundedCache) Put(key string, v Verdict) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = v
	for len(c.entries) > c.max && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

func (c *boundedCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Verdict, c.max)
	c.order = c.order[:0]
}

// NopCache never stores anything. Used in tests to verify the pure-function
// property and as the disabled-cache configuration.
type NopCache struct{}

func (NopCache) Get(string) (Verdict, bool) { return Verdict{}, false }

func (NopCache) Put(string, Verdict) {}

func (NopCache) Reset() {}
