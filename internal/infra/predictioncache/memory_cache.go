package predictioncache

import (
	"context"
	"sync"
	"time"

	"github.com/urbansims/microgreens/internal/domain/cultivation"
	"github.com/urbansims/microgreens/internal/domain/tracker"
)

type entry struct {
	prediction cultivation.Prediction
	expiresAt  time.Time
}

// MemoryCache keeps predictions in process memory for tests/dev.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[int64]entry
	now     func() time.Time
}

// NewMemoryCache constructs an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[int64]entry), now: time.Now}
}

// Get implements tracker.PredictionCache.
func (c *MemoryCache) Get(_ context.Context, cropID int64) (cultivation.Prediction, bool, error) {
	c.mu.RLock()
	item, ok := c.entries[cropID]
	c.mu.RUnlock()
	if !ok {
		return cultivation.Prediction{}, false, nil
	}
	if !item.expiresAt.IsZero() && c.now().After(item.expiresAt) {
		c.mu.Lock()
		delete(c.entries, cropID)
		c.mu.Unlock()
		return cultivation.Prediction{}, false, nil
	}
	return item.prediction, true, nil
}

// Set stores a prediction. A non-positive ttl never expires.
func (c *MemoryCache) Set(_ context.Context, cropID int64, prediction cultivation.Prediction, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp := time.Time{}
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.entries[cropID] = entry{prediction: prediction, expiresAt: exp}
	return nil
}

// Invalidate drops a cached prediction.
func (c *MemoryCache) Invalidate(_ context.Context, cropID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cropID)
	return nil
}

var _ tracker.PredictionCache = (*MemoryCache)(nil)
