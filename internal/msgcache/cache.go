// Package msgcache remembers recent messages so the gateway can ask for their
// content again when it needs to re-encrypt or retry a delivery.
package msgcache

import (
	"container/list"
	"context"
	"encoding/json"
	"sync"

	"github.com/vburojevic/lurk/internal/domain"
)

// DefaultCapacity bounds the cache when no capacity is configured.
const DefaultCapacity = 5000

type entry struct {
	key     string
	content json.RawMessage
}

// Cache is a bounded LRU of message contents. A nil *Cache is a valid,
// always-empty cache.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[string]*list.Element
}

// New returns a cache holding at most capacity messages.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

func cacheKey(chat domain.JID, id string) string {
	return string(chat.Normalized()) + "/" + id
}

// Record stores every message of an upsert that carries content.
func (c *Cache) Record(up domain.MessagesUpsert) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range up.Messages {
		if len(m.Content) == 0 || m.Key.ID == "" {
			continue
		}
		k := cacheKey(m.Key.RemoteJID, m.Key.ID)
		if el, ok := c.items[k]; ok {
			el.Value.(*entry).content = m.Content
			c.order.MoveToFront(el)
			continue
		}
		c.items[k] = c.order.PushFront(&entry{key: k, content: m.Content})
		if c.order.Len() > c.capacity {
			oldest := c.order.Back()
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}
}

// Lookup returns the content recorded for key, or nil when it is unknown.
// It never fails.
func (c *Cache) Lookup(_ context.Context, key domain.MessageKey) (json.RawMessage, error) {
	if c == nil {
		return nil, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[cacheKey(key.RemoteJID, key.ID)]
	if !ok {
		return nil, nil
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).content, nil
}

// Len returns the number of cached messages.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
