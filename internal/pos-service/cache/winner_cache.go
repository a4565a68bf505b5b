package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/numbers-lottery-pos/internal/lottery"
)

// WinnerCache guarda o número ganhador por dia+sorteio no Redis.
// O banco continua sendo a fonte; registros removem a chave e leituras preenchem.
type WinnerCache struct {
	R   *redis.Client
	TTL time.Duration
}

func New(r *redis.Client, ttl time.Duration) *WinnerCache { return &WinnerCache{R: r, TTL: ttl} }

func keyWinner(day, slot string) string { return "winner:" + day + "|" + slot }

func (c *WinnerCache) Get(ctx context.Context, day, slot string) (string, bool, error) {
	n, err := c.R.Get(ctx, keyWinner(day, slot)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return n, true, nil
}

func (c *WinnerCache) Set(ctx context.Context, res lottery.DrawResult) error {
	return c.R.Set(ctx, keyWinner(res.Day, res.Slot), res.Number, c.TTL).Err()
}

func (c *WinnerCache) Delete(ctx context.Context, day, slot string) error {
	return c.R.Del(ctx, keyWinner(day, slot)).Err()
}
