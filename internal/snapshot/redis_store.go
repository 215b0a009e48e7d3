package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/spellduel/internal/combat"
	"github.com/annel0/spellduel/internal/config"
	"github.com/annel0/spellduel/internal/logging"
)

// RedisStore публикует снимки в Redis с TTL: ключ <prefix><match_id>.
// Наблюдатели читают последний снимок, запись перезаписывает предыдущий.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	codec  Codec
}

// NewRedisStore подключается к Redis и проверяет соединение
func NewRedisStore(cfg config.SnapshotConfig) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Info("🗄️ Снимки: Redis %s, префикс %s", cfg.GetRedisAddr(), cfg.KeyPrefix)
	return newRedisStore(rdb, cfg), nil
}

func newRedisStore(rdb *redis.Client, cfg config.SnapshotConfig) *RedisStore {
	return &RedisStore{
		client: rdb,
		prefix: cfg.KeyPrefix,
		ttl:    time.Duration(cfg.TTLSeconds) * time.Second,
	}
}

func (r *RedisStore) key(matchID string) string { return r.prefix + matchID }

func (r *RedisStore) Save(ctx context.Context, matchID string, s combat.Snapshot) error {
	data, err := r.codec.Encode(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(matchID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

func (r *RedisStore) Latest(ctx context.Context, matchID string) (combat.Snapshot, error) {
	data, err := r.client.Get(ctx, r.key(matchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return combat.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return combat.Snapshot{}, fmt.Errorf("redis get error: %w", err)
	}
	return r.codec.Decode(data)
}

func (r *RedisStore) Close() error { return r.client.Close() }
