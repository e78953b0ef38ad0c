package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/phambaophuc/webp-converter/internal/config"
	"github.com/phambaophuc/webp-converter/internal/http/handlers"
	"github.com/phambaophuc/webp-converter/internal/http/routes"
	"github.com/phambaophuc/webp-converter/internal/services/assets"
	"github.com/phambaophuc/webp-converter/internal/services/converter"
	"github.com/phambaophuc/webp-converter/internal/services/processor"
	"github.com/phambaophuc/webp-converter/internal/services/queue"
	"github.com/phambaophuc/webp-converter/internal/services/storage"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := assets.Connect(cfg.Database.DSN)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		if err := assets.AutoMigrate(ctx, db, logger); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	repository := assets.NewRepository(db)

	// Initialize services
	cache := newCache(ctx, cfg, logger)

	bucket, err := newBucket(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize storage service", zap.Error(err))
	}
	fileStore := storage.NewStorageService(bucket, logger)

	pingers := map[string]storage.Pinger{
		"cache":    cache,
		"storage":  storage.PingerFunc(fileStore.HealthCheck),
		"database": repository,
		"queue":    nil,
	}

	var (
		events converter.EventPublisher
		purges handlers.PurgeQueue
	)
	queueService, err := queue.NewQueueService(cfg.RabbitMQ, logger)
	if err != nil {
		logger.Warn("Failed to initialize queue service", zap.Error(err))
		// Continue without queue service for basic functionality
	} else {
		defer queueService.Close()
		events = queueService
		purges = queueService
		pingers["queue"] = queueService
	}

	converterService := converter.NewService(
		processor.NewImageProcessor(),
		repository,
		fileStore,
		cache,
		events,
		logger,
		cfg.Converter.Workers,
	)

	if queueService != nil {
		queueService.SetPurger(converterService)
		for i := 1; i <= cfg.RabbitMQ.Workers; i++ {
			if err := queueService.StartWorker(ctx, i); err != nil {
				logger.Error("Failed to start purge worker", zap.Int("worker_id", i), zap.Error(err))
			}
		}
	}

	// Initialize handlers
	converterHandler := handlers.NewConverterHandler(converterService, purges, pingers, logger, cfg)
	converterHandler.RegisterStats("cache", cache.GetCacheStats)
	if queueService != nil {
		converterHandler.RegisterStats("queue", func(ctx context.Context) (map[string]interface{}, error) {
			return queueService.GetQueueStats()
		})
	}

	router := routes.NewRouter(converterHandler, cfg, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Handler:      router.SetupRoutes(),
	}

	// Start server
	go func() {
		logger.Info("Starting server", zap.String("addr", server.Addr), zap.String("env", cfg.Server.Env))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	<-ctx.Done()

	logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Info("Server exited")
}

type resultCache interface {
	converter.ResultCache
	Ping(ctx context.Context) error
	GetCacheStats(ctx context.Context) (map[string]interface{}, error)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newCache prefers Redis and falls back to an in-process cache when Redis
// is not reachable.
func newCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) resultCache {
	if cfg.Storage.CacheBackend != config.CacheMemory {
		client := storage.NewRedisClient(cfg.Redis)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		err := client.Ping(pingCtx).Err()
		if err == nil {
			return storage.NewRedisCache(client, cfg.Storage.CacheDuration)
		}
		logger.Warn("Redis unavailable, using in-memory cache", zap.Error(err))
		client.Close()
	}

	cache, err := storage.NewMemoryCache(cfg.Storage.CacheSize, cfg.Storage.CacheDuration)
	if err != nil {
		logger.Fatal("Failed to initialize memory cache", zap.Error(err))
	}
	return cache
}

func newBucket(ctx context.Context, cfg *config.Config) (storage.Bucket, error) {
	switch cfg.Storage.Backend {
	case config.BackendSupabase:
		bucket, err := storage.NewSupabaseBucket(cfg.Supabase)
		if err != nil {
			return nil, err
		}
		return bucket, nil
	case config.BackendS3:
		bucket, err := storage.NewS3Bucket(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return bucket, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
