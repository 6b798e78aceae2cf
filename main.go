package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"energy-trading-bot/config"
	"energy-trading-bot/internal/allocation"
	"energy-trading-bot/internal/api"
	"energy-trading-bot/internal/bot"
	"energy-trading-bot/internal/cache"
	"energy-trading-bot/internal/circuit"
	"energy-trading-bot/internal/clock"
	"energy-trading-bot/internal/database"
	"energy-trading-bot/internal/engine"
	"energy-trading-bot/internal/events"
	"energy-trading-bot/internal/logging"
	"energy-trading-bot/internal/market"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Level:   cfg.LoggingConfig.Level,
		Console: cfg.LoggingConfig.Console,
	})
	logger.Info().Str("mode", cfg.BotConfig.Mode).Bool("dry_run", cfg.EngineConfig.DryRun).
		Msg("starting energy trading engine")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poolRegistry, allocStore, dbClose := buildStores(ctx, cfg, logger)
	defer dbClose()

	var snapshotCache *cache.SnapshotCache
	if cfg.RedisConfig.Enabled {
		snapshotCache, err = cache.New(cache.Config{
			Enabled:  true,
			Address:  cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
			PoolSize: cfg.RedisConfig.PoolSize,
		}, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("snapshot cache unavailable, serving uncached")
		} else {
			defer snapshotCache.Close()
		}
	}

	bus := events.NewBus()
	clk := clock.Real{}

	eng := engine.New(engine.Options{
		Assets:          market.DefaultAssets(),
		Feed:            market.NewSyntheticFeed(cfg.FeedConfig.Seed, clk),
		PoolRegistry:    poolRegistry,
		AllocationStore: allocStore,
		Bus:             bus,
		Clock:           clk,
		UserID:          cfg.EngineConfig.UserID,
		HistoryCapacity: cfg.EngineConfig.HistoryCapacity,
		ValueSeriesCap:  cfg.EngineConfig.ValueSeriesCap,
		RiskFreeRatePct: cfg.RiskConfig.RiskFreeRatePct,
		BreakerConfig:   circuit.DefaultConfig(),
		TickMinInterval: cfg.BotConfig.TickMinInterval,
		MaxCandidates:   cfg.BotConfig.MaxCandidates,
		Logger:          logger,
	})

	if mode := bot.Mode(cfg.BotConfig.Mode); mode != bot.ModeOff {
		if err := eng.ActivateBot(mode); err != nil {
			logger.Warn().Err(err).Str("mode", cfg.BotConfig.Mode).Msg("configured bot mode rejected, staying OFF")
		}
	}

	go runTicker(ctx, eng, cfg.EngineConfig.TickInterval, logger)

	server := api.NewServer(eng, bus, snapshotCache, cfg.EngineConfig.UserID, logger)
	go func() {
		if err := server.Run(cfg.ServerConfig.Host, cfg.ServerConfig.Port); err != nil {
			logger.Error().Err(err).Msg("API server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
}

// runTicker drives the engine on the configured interval. Feed
// failures are logged and retried on the next tick.
func runTicker(ctx context.Context, eng *engine.Engine, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := eng.Tick(ctx); err != nil {
				logger.Warn().Err(err).Msg("tick failed, retrying next interval")
			}
		}
	}
}

// buildStores returns the pool registry and allocation store, backed
// by PostgreSQL unless dry-run is set or the connection fails.
func buildStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (allocation.PoolRegistry, allocation.AllocationStore, func()) {
	if cfg.EngineConfig.DryRun {
		logger.Info().Msg("dry run, using in-memory stores")
		return database.NewMemoryPoolRegistry(nil), database.NewMemoryAllocationStore(), func() {}
	}

	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("database unavailable, falling back to in-memory stores")
		return database.NewMemoryPoolRegistry(nil), database.NewMemoryAllocationStore(), func() {}
	}

	if err := db.RunMigrations(ctx); err != nil {
		logger.Error().Err(err).Msg("migrations failed, falling back to in-memory stores")
		db.Close()
		return database.NewMemoryPoolRegistry(nil), database.NewMemoryAllocationStore(), func() {}
	}

	poolRepo := database.NewPoolRepository(db)
	if err := poolRepo.Seed(ctx, allocation.DefaultPools()); err != nil {
		logger.Warn().Err(err).Msg("pool seeding failed")
	}

	return poolRepo, database.NewAllocationRepository(db), db.Close
}
