package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ChristianRende22/ClinicaDental-sub000/internal/appointment"
)

// CachedProvider is a read-through cache over a ReferenceProvider. Misses
// and lookup errors are never cached; cache failures fall back to the
// underlying provider.
type CachedProvider struct {
	next   appointment.ReferenceProvider
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewCachedProvider(next appointment.ReferenceProvider, client *redis.Client, ttl time.Duration, log *zap.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedProvider{next: next, client: client, ttl: ttl, log: log}
}

func (c *CachedProvider) GetPatient(ctx context.Context, id string) (*appointment.Patient, error) {
	return cached(ctx, c, "patient", id, c.next.GetPatient)
}

func (c *CachedProvider) GetDoctor(ctx context.Context, id string) (*appointment.Doctor, error) {
	return cached(ctx, c, "doctor", id, c.next.GetDoctor)
}

func (c *CachedProvider) GetTreatment(ctx context.Context, id string) (*appointment.Treatment, error) {
	return cached(ctx, c, "treatment", id, c.next.GetTreatment)
}

// Invalidate drops one cached record, e.g. after it was edited by the seed
// tool.
func (c *CachedProvider) Invalidate(ctx context.Context, entity, id string) error {
	return c.client.Del(ctx, cacheKey(entity, id)).Err()
}

func cacheKey(entity, id string) string {
	return fmt.Sprintf("ref:%s:%s", entity, id)
}

func cached[T any](ctx context.Context, c *CachedProvider, entity, id string, load func(context.Context, string) (*T, error)) (*T, error) {
	key := cacheKey(entity, id)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v T
		if jerr := json.Unmarshal(raw, &v); jerr == nil {
			return &v, nil
		}
		c.log.Warn("discarding corrupt cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("reference cache read failed", zap.String("key", key), zap.Error(err))
	}

	v, err := load(ctx, id)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(v); err == nil {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.log.Warn("reference cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return v, nil
}
