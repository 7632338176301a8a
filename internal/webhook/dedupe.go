package webhook

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// deliveryCache remembers recently processed delivery ids so provider
// redeliveries do not trigger a second sync.
type deliveryCache struct {
	mu   sync.Mutex
	seen *expirable.LRU[string, struct{}]
}

func newDeliveryCache(ttl time.Duration) *deliveryCache {
	if ttl <= 0 {
		ttl = DefaultDedupeTTL
	}
	return &deliveryCache{seen: expirable.NewLRU[string, struct{}](dedupeSize, nil, ttl)}
}

// Seen records id and reports whether it was already present.
func (d *deliveryCache) Seen(id string) bool {
	if id == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen.Contains(id) {
		return true
	}
	d.seen.Add(id, struct{}{})
	return false
}
