// Package rediscache caches the grading scales in Redis in front of their repository.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/grading"
)

const (
	scaleKeyTpl = "grading_scale:%s" // grading_scale:${schoolID}
	// stored for schools using the default scale; an empty scale is never valid
	noScale = "[]"
)

// Open connects to the Redis server at url ("redis://<user>:<pass>@localhost:6379/<db>").
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis url")
	}
	client := redis.NewClient(opts)
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

type scaleCache struct {
	redis  *redis.Client
	next   grading.ScaleRepository
	ttl    time.Duration
	logger core.Logger
}

var _ grading.ScaleRepository = (*scaleCache)(nil)

// NewScaleCache wraps next. Cache failures are logged and the request goes to next.
func NewScaleCache(client *redis.Client, next grading.ScaleRepository, ttl time.Duration, logger core.Logger) grading.ScaleRepository {
	return &scaleCache{redis: client, next: next, ttl: ttl, logger: logger}
}

func scaleKey(schoolID string) string {
	return fmt.Sprintf(scaleKeyTpl, schoolID)
}

func (c *scaleCache) GetScale(ctx context.Context, schoolID string) (grading.Scale, error) {
	key := scaleKey(schoolID)

	data, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		if data == noScale {
			return nil, grading.ErrScaleNotFound
		}
		var scale grading.Scale
		if err = json.Unmarshal([]byte(data), &scale); err == nil {
			return scale, nil
		}
		c.logger.Warn(fmt.Sprintf("decoding cached scale %s: %v", key, err))
	case err != redis.Nil:
		c.logger.Warn(fmt.Sprintf("reading cached scale %s: %v", key, err))
	}

	scale, err := c.next.GetScale(ctx, schoolID)
	switch {
	case err == nil:
		c.fill(ctx, key, scale)
	case errors.Cause(err) == grading.ErrScaleNotFound:
		c.fill(ctx, key, nil)
	}
	return scale, err
}

func (c *scaleCache) encode(key string, scale grading.Scale) (string, bool) {
	if len(scale) == 0 {
		return noScale, true
	}
	b, err := json.Marshal(scale)
	if err != nil {
		c.logger.Warn(fmt.Sprintf("encoding scale %s: %v", key, err))
		return "", false
	}
	return string(b), true
}

// fill caches a scale read from the repository unless the key is already set:
// a concurrent ReplaceScale may have stored a newer version since the read.
func (c *scaleCache) fill(ctx context.Context, key string, scale grading.Scale) {
	data, ok := c.encode(key, scale)
	if !ok {
		return
	}
	if err := c.redis.SetNX(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn(fmt.Sprintf("caching scale %s: %v", key, err))
	}
}

// ReplaceScale replaces the scale then caches the new version over any older one.
// The replacement is committed once next succeeds: cache failures are only logged.
func (c *scaleCache) ReplaceScale(ctx context.Context, schoolID string, scale grading.Scale) error {
	if err := c.next.ReplaceScale(ctx, schoolID, scale); err != nil {
		return err
	}
	key := scaleKey(schoolID)
	if data, ok := c.encode(key, scale); ok {
		err := c.redis.Set(ctx, key, data, c.ttl).Err()
		if err == nil {
			return nil
		}
		c.logger.Warn(fmt.Sprintf("caching scale %s: %v", key, err))
	}
	if err := c.redis.Del(ctx, key).Err(); err != nil {
		c.logger.Error(fmt.Sprintf("evicting cached scale %s: %v", key, err), errors.Wrap(err, "evicting cached scale"))
	}
	return nil
}
