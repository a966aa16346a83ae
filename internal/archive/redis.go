package archive

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"brand-workflow-service/internal/entity"
)

const defaultKeyPrefix = "brand_job:"

// RedisArchive keeps one JSON value per terminal job under
// "<prefix><job_id>", optionally expiring.
type RedisArchive struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

type RedisOption func(*RedisArchive)

func WithKeyPrefix(prefix string) RedisOption {
	return func(a *RedisArchive) {
		if prefix != "" {
			a.prefix = prefix
		}
	}
}

// WithTTL expires archived records after d. Zero means keep forever.
func WithTTL(d time.Duration) RedisOption {
	return func(a *RedisArchive) { a.ttl = d }
}

func NewRedisArchive(rdb *redis.Client, opts ...RedisOption) *RedisArchive {
	a := &RedisArchive{rdb: rdb, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *RedisArchive) Save(ctx context.Context, job entity.Job) error {
	data, err := encode(job)
	if err != nil {
		return err
	}
	return a.rdb.Set(ctx, a.key(job.ID), data, a.ttl).Err()
}

func (a *RedisArchive) Load(ctx context.Context, id uuid.UUID) (entity.Job, error) {
	data, err := a.rdb.Get(ctx, a.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entity.Job{}, ErrNotArchived
		}
		return entity.Job{}, err
	}
	return decode(data)
}

func (a *RedisArchive) key(id uuid.UUID) string {
	return a.prefix + id.String()
}
