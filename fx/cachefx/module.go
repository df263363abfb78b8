// Package cachefx provides an fx module for a configured cache instance.
package cachefx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fireae/milvus"
	"github.com/fireae/milvus/internal/stats"
	"github.com/fireae/milvus/internal/stats/logger"
)

// Config holds configuration for the cache.
type Config struct {
	// CapacityBytes is the byte limit on cached payloads. Required.
	CapacityBytes int64

	// ThresholdFraction is the eviction threshold as a fraction of capacity.
	// Zero means the default (0.85).
	ThresholdFraction float64

	// MaxEntries bounds the entry count. Zero means unbounded.
	MaxEntries int
}

// Module provides a *milvus.Cache.
// Requires a Config and a *zap.Logger to be provided.
var Module = fx.Module("cache",
	fx.Provide(
		newStatsCollector,
		newCache,
	),
)

func newStatsCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("cache.stats"))
}

// Params holds dependencies for creating the cache.
type Params struct {
	fx.In

	Config    Config
	Logger    *zap.Logger
	Collector stats.Collector
	Lifecycle fx.Lifecycle
}

// Result holds the provided cache.
type Result struct {
	fx.Out

	Cache *milvus.Cache
}

func newCache(p Params) (Result, error) {
	opts := []milvus.Option{
		milvus.WithMaxEntries(p.Config.MaxEntries),
		milvus.WithStats(p.Collector),
		milvus.WithLogger(p.Logger.Named("cache")),
	}
	if p.Config.ThresholdFraction > 0 {
		opts = append(opts, milvus.WithThresholdFraction(p.Config.ThresholdFraction))
	}

	cache, err := milvus.NewCache(p.Config.CapacityBytes, opts...)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			cache.Clear()
			return nil
		},
	})

	return Result{Cache: cache}, nil
}
