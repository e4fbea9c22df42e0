// Package cache keeps compiled statements so repeated queries skip compilation.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/baltrad/bdb-go/query/expr"
	"github.com/baltrad/bdb-go/query/sqlgen"
)

// Stats represents cache statistics
type Stats struct {
	Hits      int64
	Misses    int64
	Size      int
	MaxSize   int
	Evictions int64
	HitRate   float64
}

// LRUCache is a size bounded statement cache with optional expiry.
// Cached statements are shared; callers must not modify them.
type LRUCache struct {
	mu   sync.Mutex
	data map[string]*entry
	ttl  time.Duration
	head *entry
	tail *entry
	now  func() time.Time

	stats Stats
}

type entry struct {
	key       string
	stmt      *sqlgen.Statement
	expiresAt time.Time
	prev      *entry
	next      *entry
}

// NewLRUCache creates a cache holding at most maxSize statements.
// A zero ttl keeps entries until they are evicted.
func NewLRUCache(maxSize int, ttl time.Duration) *LRUCache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LRUCache{
		data:  make(map[string]*entry),
		ttl:   ttl,
		now:   time.Now,
		stats: Stats{MaxSize: maxSize},
	}
}

// Key derives the cache key of x compiled for dialect
func Key(dialect string, x expr.Expression) string {
	sum := sha256.Sum256([]byte(x.String()))
	return dialect + ":" + hex.EncodeToString(sum[:16])
}

// Get returns the statement stored under key
func (c *LRUCache) Get(key string) (*sqlgen.Statement, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.remove(e)
		c.stats.Misses++
		return nil, false
	}

	c.moveToFront(e)
	c.stats.Hits++
	return e.stmt, true
}

// Set stores stmt under key, evicting the least recently used entry when full
func (c *LRUCache) Set(key string, stmt *sqlgen.Statement) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	if e, ok := c.data[key]; ok {
		e.stmt = stmt
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return
	}

	if len(c.data) >= c.stats.MaxSize && c.tail != nil {
		c.remove(c.tail)
		c.stats.Evictions++
	}

	e := &entry{key: key, stmt: stmt, expiresAt: expiresAt}
	c.pushFront(e)
	c.data[key] = e
}

// GetOrCompile returns the cached statement for x or compiles and caches it
func (c *LRUCache) GetOrCompile(compiler *sqlgen.Compiler, x expr.Expression) (*sqlgen.Statement, error) {
	key := Key(compiler.Dialect().Name(), x)
	if stmt, ok := c.Get(key); ok {
		return stmt, nil
	}
	stmt, err := compiler.Compile(x)
	if err != nil {
		return nil, err
	}
	c.Set(key, stmt)
	return stmt, nil
}

// Stats returns cache statistics
func (c *LRUCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Size = len(c.data)
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total) * 100
	}
	return s
}

func (c *LRUCache) pushFront(e *entry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *LRUCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

func (c *LRUCache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (c *LRUCache) remove(e *entry) {
	c.unlink(e)
	delete(c.data, e.key)
}
