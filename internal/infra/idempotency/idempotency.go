// Package idempotency drops already-processed Telegram updates before they
// reach the conversation engine. Redis holds a short-lived marker per
// (chat, message) pair; the durable per-job guard lives in the jobs repo.
package idempotency

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const markerTTL = 24 * time.Hour

type Filter struct {
	rdb *redis.Client
	log *slog.Logger
}

func New(addr string, log *slog.Logger) (*Filter, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &Filter{rdb: rdb, log: log}, nil
}

func (f *Filter) Close() error { return f.rdb.Close() }

// SeenOrMark atomically records the update and reports whether it was
// already processed. Redis being down never blocks the pipeline: the
// update passes through and the downstream per-job guard catches repeats.
func (f *Filter) SeenOrMark(ctx context.Context, chatID int64, messageID int) bool {
	key := fmt.Sprintf("dedup:%d:%d", chatID, messageID)
	set, err := f.rdb.SetNX(ctx, key, 1, markerTTL).Result()
	if err != nil {
		f.log.Warn("dedup store unavailable, letting update through", "err", err)
		return false
	}
	return !set
}
