package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Spok95/tool-requests-bot/internal/domain/requests"
)

// Recent is the per-chat "my recent requests" list, newest first.
type Recent struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRecent(rdb *redis.Client, ttl time.Duration) *Recent {
	return &Recent{rdb: rdb, ttl: ttl}
}

func recentKey(chatID int64) string { return fmt.Sprintf("toolbot:recent:%d", chatID) }

func (c *Recent) Prepend(ctx context.Context, chatID int64, r requests.Request) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	k := recentKey(chatID)
	_, err = c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, k, raw)
		p.Expire(ctx, k, c.ttl)
		return nil
	})
	return err
}

// Replace swaps the whole list for the server's view.
func (c *Recent) Replace(ctx context.Context, chatID int64, list []requests.Request) error {
	values := make([]any, 0, len(list))
	for _, r := range list {
		raw, err := json.Marshal(r)
		if err != nil {
			return err
		}
		values = append(values, raw)
	}
	k := recentKey(chatID)
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, k)
		if len(values) > 0 {
			p.RPush(ctx, k, values...)
			p.Expire(ctx, k, c.ttl)
		}
		return nil
	})
	return err
}

func (c *Recent) List(ctx context.Context, chatID int64) ([]requests.Request, error) {
	raws, err := c.rdb.LRange(ctx, recentKey(chatID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("recent list: %w", err)
	}
	out := make([]requests.Request, 0, len(raws))
	for _, raw := range raws {
		var r requests.Request
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("recent decode: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}
