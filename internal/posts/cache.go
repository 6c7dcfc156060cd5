package posts

import (
	"sync"
	"time"

	"github.com/coocood/freecache"
)

var listCacheKey = []byte("posts-list")

// ListCache holds the serialized GET /posts response body.
// Writes go through the same process, so invalidating on every insert
// keeps served bodies consistent with the store. The generation counter
// closes the list-then-insert race: a Set carrying a generation older
// than the last Invalidate is dropped, so a concurrent insert can not
// be overwritten by a stale list body.
type ListCache struct {
	cache      *freecache.Cache
	ttlSeconds int

	mutex      sync.Mutex
	generation uint64
}

func NewListCache(sizeBytes int, ttl time.Duration) *ListCache {
	return &ListCache{
		cache:      freecache.NewCache(sizeBytes),
		ttlSeconds: int(ttl.Seconds()),
	}
}

func (c *ListCache) Get() ([]byte, bool) {
	body, err := c.cache.Get(listCacheKey)
	if err != nil {
		// freecache returns ErrNotFound for both missing and expired entries
		return nil, false
	}
	return body, true
}

// Generation returns the value a caller must snapshot before reading the
// store and pass back to Set.
func (c *ListCache) Generation() uint64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.generation
}

func (c *ListCache) Set(body []byte, generation uint64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	// an Invalidate happened since this body was read, drop it
	if generation != c.generation {
		return
	}

	// a failed set just means the next list request hits the store again
	_ = c.cache.Set(listCacheKey, body, c.ttlSeconds)
}

func (c *ListCache) Invalidate() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.generation++
	c.cache.Del(listCacheKey)
}
