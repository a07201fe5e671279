package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/zhouzirui/job-voice/backend/internal/config"
)

// Open selects the store backend once at startup. In auto mode an unreachable
// Redis degrades to the in-process store; in redis mode it is an error.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("store")

	if cfg.Backend == config.StoreBackendMemory {
		logger.Info("using in-memory store")
		return NewMemoryStore(WithMemoryLogger(logger)), nil
	}

	rs, err := NewRedisStore(cfg.RedisURL)
	if err == nil {
		pingCtx := ctx
		if cfg.ConnectTimeout > 0 {
			var cancel context.CancelFunc
			pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
			defer cancel()
		}
		if err = rs.Ping(pingCtx); err == nil {
			logger.Info("connected to redis")
			return rs, nil
		}
		_ = rs.Close()
	}

	if cfg.Backend == config.StoreBackendRedis {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	logger.Warn("redis unavailable, falling back to in-memory store", zap.Error(err))
	return NewMemoryStore(WithMemoryLogger(logger)), nil
}
