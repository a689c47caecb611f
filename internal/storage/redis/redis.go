package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lostmyescape/opsconsole/internal/config"
)

func NewClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	const op = "storage.redis.NewClient"

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.GetRedisPassword(),
		DB:       cfg.RedisStorage.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rdb, nil
}

// DispatchMarks records which ticket resolutions already had their one
// notification attempt.
type DispatchMarks struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDispatchMarks(rdb *redis.Client, ttl time.Duration) *DispatchMarks {
	return &DispatchMarks{rdb: rdb, ttl: ttl}
}

// Mark reports true when this call claimed the mark, false when it already existed.
func (m *DispatchMarks) Mark(ctx context.Context, ticketID int64) (bool, error) {
	const op = "storage.redis.Mark"

	ok, err := m.rdb.SetNX(ctx, markKey(ticketID), time.Now().UTC().Format(time.RFC3339), m.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return ok, nil
}

func markKey(ticketID int64) string {
	return "notify:ticket_resolved:" + strconv.FormatInt(ticketID, 10)
}
