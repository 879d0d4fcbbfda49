package predictioncache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/urbansims/microgreens/internal/domain/cultivation"
	"github.com/urbansims/microgreens/internal/domain/tracker"
)

// ValkeyCache stores predictions in a Valkey-compatible database.
type ValkeyCache struct {
	client valkey.Client
	prefix string
}

// NewValkeyCache constructs a cache backed by Valkey.
func NewValkeyCache(client valkey.Client, prefix string) *ValkeyCache {
	if prefix == "" {
		prefix = "prediction"
	}
	return &ValkeyCache{client: client, prefix: prefix}
}

func (c *ValkeyCache) Get(ctx context.Context, cropID int64) (cultivation.Prediction, bool, error) {
	payload, err := c.client.Do(ctx, c.client.B().Get().Key(c.key(cropID)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return cultivation.Prediction{}, false, nil
		}
		return cultivation.Prediction{}, false, err
	}
	var prediction cultivation.Prediction
	if err := json.Unmarshal([]byte(payload), &prediction); err != nil {
		// a stale entry with an outdated shape is treated as a miss
		_ = c.Invalidate(ctx, cropID)
		return cultivation.Prediction{}, false, nil
	}
	return prediction, true, nil
}

func (c *ValkeyCache) Set(ctx context.Context, cropID int64, prediction cultivation.Prediction, ttl time.Duration) error {
	payload, err := json.Marshal(prediction)
	if err != nil {
		return err
	}
	builder := c.client.B().Set().Key(c.key(cropID)).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return c.client.Do(ctx, cmd).Error()
}

func (c *ValkeyCache) Invalidate(ctx context.Context, cropID int64) error {
	return c.client.Do(ctx, c.client.B().Del().Key(c.key(cropID)).Build()).Error()
}

func (c *ValkeyCache) key(cropID int64) string {
	return fmt.Sprintf("%s:crop:%d", c.prefix, cropID)
}

var _ tracker.PredictionCache = (*ValkeyCache)(nil)
