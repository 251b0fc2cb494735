package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// Resource groups invalidated after a streamed reply completes.
const (
	GroupConversation     = "conversation"
	GroupConversationList = "conversation_list"
	GroupNotes            = "notes"
)

// QueryCache holds fetched read models (conversation history, conversation
// list, note collections) so the UI layer does not re-fetch on every render.
// Entries are keyed by resource group plus an identifier, which lets a
// whole group be invalidated when a stream finishes.
type QueryCache struct {
	cache *cache.Cache
}

func NewQueryCache() *QueryCache {
	// Default expiration of 5 minutes with a purge sweep every minute;
	// invalidation usually beats expiration.
	c := cache.New(5*time.Minute, 1*time.Minute)
	return &QueryCache{cache: c}
}

func (q *QueryCache) Set(group, id string, value interface{}) {
	q.cache.Set(q.key(group, id), value, cache.DefaultExpiration)
}

func (q *QueryCache) Get(group, id string) (interface{}, bool) {
	return q.cache.Get(q.key(group, id))
}

// InvalidateGroup drops every entry in the group.
func (q *QueryCache) InvalidateGroup(group string) int {
	prefix := group + ":"
	removed := 0
	for key := range q.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			q.cache.Delete(key)
			removed++
		}
	}
	return removed
}

// Invalidate drops a single entry.
func (q *QueryCache) Invalidate(group, id string) {
	q.cache.Delete(q.key(group, id))
}

func (q *QueryCache) key(group, id string) string {
	return fmt.Sprintf("%s:%s", group, id)
}
