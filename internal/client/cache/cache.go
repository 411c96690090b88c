package cache

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// Tag names a piece of server state that cached results depend on.
type Tag string

const (
	// NoteListTag is provided by every note listing.
	NoteListTag Tag = "Note:LIST"
	// ProfileTag is provided by the profile query.
	ProfileTag Tag = "Profile"
)

// NoteTag is provided by any result that contains the note.
func NoteTag(id string) Tag {
	return Tag("Note:" + id)
}

type entry struct {
	value   any
	tags    []Tag
	expires time.Time
}

// Cache maps query keys to results. A nil *Cache is a valid, always-empty
// cache.
type Cache struct {
	mu   sync.Mutex
	lru  *lru.Cache
	tags map[Tag]map[string]struct{}
	ttl  time.Duration
	now  func() time.Time
	// gen counts Invalidate and Purge calls.
	gen uint64
}

// New returns a cache holding at most size entries for ttl each. A size of
// zero disables caching and returns nil. A ttl of zero means entries only
// leave by eviction or invalidation.
func New(size int, ttl time.Duration) (*Cache, error) {
	if size <= 0 {
		return nil, nil
	}

	c := &Cache{
		tags: make(map[Tag]map[string]struct{}),
		ttl:  ttl,
		now:  time.Now,
	}
	l, err := lru.NewWithEvict(size, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	c.lru = l
	return c, nil
}

// onEvict runs inside lru calls made while c.mu is held.
func (c *Cache) onEvict(key, value interface{}) {
	e := value.(*entry)
	for _, t := range e.tags {
		keys := c.tags[t]
		delete(keys, key.(string))
		if len(keys) == 0 {
			delete(c.tags, t)
		}
	}
}

// Get returns the cached value for key.
func (c *Cache) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	e := v.(*entry)
	if !e.expires.IsZero() && c.now().After(e.expires) {
		c.lru.Remove(key)
		return nil, false
	}
	return e.value, true
}

// Generation returns a token to pass to PutIfCurrent. Take it before
// fetching the value to be cached.
func (c *Cache) Generation() uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// PutIfCurrent stores value like Put unless an Invalidate or Purge ran
// after gen was taken, in which case the value may already be stale and
// is dropped. It reports whether the value was stored.
func (c *Cache) PutIfCurrent(gen uint64, key string, value any, tags ...Tag) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.put(key, value, tags)
	return true
}

// Put stores value under key and indexes it by tags.
func (c *Cache) Put(key string, value any, tags ...Tag) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, value, tags)
}

func (c *Cache) put(key string, value any, tags []Tag) {
	// Drop the previous entry first so its tags are unindexed.
	c.lru.Remove(key)

	e := &entry{value: value, tags: tags}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}
	for _, t := range tags {
		keys := c.tags[t]
		if keys == nil {
			keys = make(map[string]struct{})
			c.tags[t] = keys
		}
		keys[key] = struct{}{}
	}
	c.lru.Add(key, e)
}

// Invalidate drops every entry that provided any of tags.
func (c *Cache) Invalidate(tags ...Tag) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	for _, t := range tags {
		for key := range c.tags[t] {
			c.lru.Remove(key)
		}
	}
}

// Purge drops everything.
func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.lru.Purge()
	c.tags = make(map[Tag]map[string]struct{})
}

// Len returns the number of entries, including expired ones not yet
// collected.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Lookup is a typed Get.
func Lookup[T any](c *Cache, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
