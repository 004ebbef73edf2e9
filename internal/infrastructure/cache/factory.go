package cache

import (
	"context"
	"fmt"

	"github.com/schoolfund/backend/internal/domain/shared"
	"github.com/schoolfund/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// OpenIdempotencyStore connects the shared idempotency store. With
// requireRedis unset an unreachable Redis degrades to a process-local store,
// which only detects replays that land on the same instance.
func OpenIdempotencyStore(ctx context.Context, cfg config.RedisConfig, requireRedis bool, log *zap.Logger) (shared.IdempotencyStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	store, err := NewRedisIdempotencyStore(ctx, cfg)
	switch {
	case err == nil:
		log.Info("Idempotency store: redis", zap.String("host", cfg.Host), zap.Int("port", cfg.Port))
		return store, nil
	case requireRedis:
		return nil, fmt.Errorf("idempotency store requires redis: %w", err)
	default:
		log.Warn("Idempotency store: redis unreachable, using in-memory store", zap.Error(err))
		return NewInMemoryIdempotencyStore(), nil
	}
}
