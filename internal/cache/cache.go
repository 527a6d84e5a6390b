package cache

import (
	"context"
	"time"
)

// BytesCache — снапшот-кэш нормализованных записей. Best effort:
// зеркало обязано работать и без кэша (nil или TTL<=0 его выключают).
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}
