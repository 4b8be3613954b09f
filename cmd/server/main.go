package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ksmlabs/ksmserver/internal/api"
	"github.com/ksmlabs/ksmserver/internal/cache"
	"github.com/ksmlabs/ksmserver/internal/ksm"
	"github.com/ksmlabs/ksmserver/internal/pool"
	"github.com/ksmlabs/ksmserver/internal/server"
	"github.com/ksmlabs/ksmserver/pkg/config"
	"github.com/ksmlabs/ksmserver/pkg/logging"
)

var (
	configFile = flag.String("config", "configs/config.yaml", "Path to configuration file")
	version    = "dev"
	buildTime  = "unknown"
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ksmserver",
		zap.String("version", version),
		zap.String("build_time", buildTime),
	)

	// Initialize asset pools. An invalid root is logged once here; requests
	// against that pool report 503 from then on, without re-probing.
	pools := initPools(cfg, logger)

	// Initialize caches
	contentCache := cache.New(cache.Config{
		MaxWeight:       cfg.Cache.MaxWeightBytes,
		InlineThreshold: cfg.Cache.InlineThresholdBytes,
	})
	parsed := ksm.NewStore(cfg.Cache.ParsedMaxEntries)

	// Initialize HTTP surface
	handlers := api.NewHandlers(pools, contentCache, parsed, logger)
	srv := server.New(cfg, handlers, logger)
	srv.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func initPools(cfg *config.Config, logger *zap.Logger) *pool.Set {
	art := pool.New(pool.Art, cfg.Pools.ArtRoot)
	if art.Available() {
		logger.Info("Pool ready", zap.String("pool", "art"), zap.String("root", art.Root()))
	} else {
		logger.Warn("Pool unavailable, requests against it will return 503",
			zap.String("pool", "art"),
			zap.String("root", cfg.Pools.ArtRoot))
	}

	dat := pool.New(pool.Dat, cfg.Pools.DatRoot)
	if dat.Available() {
		logger.Info("Pool ready", zap.String("pool", "dat"), zap.String("root", dat.Root()))
	} else {
		logger.Warn("Pool unavailable, requests against it will return 503",
			zap.String("pool", "dat"),
			zap.String("root", cfg.Pools.DatRoot))
	}

	return pool.NewSet(art, dat)
}
