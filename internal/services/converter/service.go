package converter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/phambaophuc/webp-converter/internal/apperror"
	"github.com/phambaophuc/webp-converter/internal/metrics"
	"github.com/phambaophuc/webp-converter/internal/models"
	"github.com/phambaophuc/webp-converter/internal/services/assets"
	"github.com/phambaophuc/webp-converter/internal/services/processor"
	"github.com/phambaophuc/webp-converter/internal/services/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type AssetStore interface {
	AssetExists(ctx context.Context, userID string) (bool, error)
	DeleteAsset(ctx context.Context, userID string) error
	GetOrCreateAsset(ctx context.Context, userID string) (*assets.Asset, error)
	CreateAssetFile(ctx context.Context, kind string, info *processor.ImageFileInfo, fileURL string, asset *assets.Asset) (*assets.AssetFile, error)
}

type FileStore interface {
	Upload(ctx context.Context, userID, relativePath string, data []byte, contentType string) (string, error)
	DeleteFiles(ctx context.Context, userID, relativePath string) error
	ZipFolder(ctx context.Context, userID, relativePath string) (string, error)
	ListFiles(ctx context.Context, userID, relativePath string) ([]storage.FileRef, error)
}

// ResultCache stores encoded batch results. Get returns nil on a miss.
type ResultCache interface {
	Get(ctx context.Context, cacheKey string) ([]byte, error)
	Set(ctx context.Context, cacheKey string, data []byte) error
	InvalidateUser(ctx context.Context, userID string) error
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, event *models.ConversionEvent) error
}

type Service struct {
	processor  *processor.ImageProcessor
	assets     AssetStore
	files      FileStore
	cache      ResultCache
	events     EventPublisher
	logger     *zap.Logger
	numWorkers int
	inflight   singleflight.Group
}

// NewService wires the orchestrator. events may be nil.
func NewService(
	imageProcessor *processor.ImageProcessor,
	assetStore AssetStore,
	fileStore FileStore,
	cache ResultCache,
	events EventPublisher,
	logger *zap.Logger,
	numWorkers int,
) *Service {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return &Service{
		processor:  imageProcessor,
		assets:     assetStore,
		files:      fileStore,
		cache:      cache,
		events:     events,
		logger:     logger,
		numWorkers: numWorkers,
	}
}

// Convert runs a conversion request for userID. Validation and cleanup
// failures are returned as errors; per-file failures are reported in the
// BatchResult.
func (s *Service) Convert(ctx context.Context, userID string, req *models.ConversionRequest) (*BatchResult, error) {
	if err := s.processor.ValidateRequest(req); err != nil {
		metrics.ConversionsTotal.WithLabelValues(req.Options.OutputFormat, "invalid").Inc()
		return nil, err
	}

	cacheKey := storage.GenerateCacheKey(userID, req.Options, req.Files)

	// Followers share the leader's result, so the work must not depend on
	// the leader's request staying alive.
	detached := context.WithoutCancel(ctx)
	value, err, shared := s.inflight.Do(cacheKey, func() (interface{}, error) {
		return s.convert(detached, userID, cacheKey, req)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("Shared in-flight conversion", zap.String("user_id", userID))
	}
	return value.(*BatchResult), nil
}

func (s *Service) convert(ctx context.Context, userID, cacheKey string, req *models.ConversionRequest) (*BatchResult, error) {
	start := time.Now()
	format := req.Options.OutputFormat

	if cached := s.lookup(ctx, cacheKey); cached != nil {
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		s.publish(ctx, userID, format, cached, time.Since(start))
		return cached, nil
	}
	metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()

	if err := s.cleanup(ctx, userID); err != nil {
		s.logger.Error("Failed to clean up previous conversion",
			zap.String("user_id", userID),
			zap.Error(err))
		metrics.ConversionsTotal.WithLabelValues(format, "failed").Inc()
		return nil, err
	}

	asset, err := s.assets.GetOrCreateAsset(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to get conversion asset",
			zap.String("user_id", userID),
			zap.Error(err))
		metrics.ConversionsTotal.WithLabelValues(format, "failed").Inc()
		return nil, err
	}

	batch := &BatchResult{Results: s.processFiles(ctx, userID, asset, req)}
	elapsed := time.Since(start)

	for _, result := range batch.Results {
		status := "success"
		if result.Error != nil {
			status = "failed"
		}
		metrics.FilesTotal.WithLabelValues(format, status).Inc()
	}
	metrics.ConversionsTotal.WithLabelValues(format, batch.outcome()).Inc()
	metrics.ConversionDuration.WithLabelValues(format).Observe(elapsed.Seconds())

	if batch.Failed() {
		s.logger.Warn("Failed to convert images",
			zap.String("user_id", userID),
			zap.Int("files", len(batch.Results)),
			zap.Int("failed", len(batch.Errors())))
	} else {
		s.logger.Info(fmt.Sprintf("Successfully converted %d image(s) for User '%s'", len(batch.Results), userID),
			zap.String("format", format),
			zap.Duration("duration", elapsed))
	}

	s.store(ctx, cacheKey, batch)
	s.publish(ctx, userID, format, batch, elapsed)

	return batch, nil
}

// lookup returns nil on a miss. Cache failures are treated as misses.
func (s *Service) lookup(ctx context.Context, cacheKey string) *BatchResult {
	data, err := s.cache.Get(ctx, cacheKey)
	if err != nil {
		s.logger.Warn("Cache lookup failed", zap.Error(err))
		return nil
	}
	if data == nil {
		return nil
	}

	var batch BatchResult
	if err := json.Unmarshal(data, &batch); err != nil {
		s.logger.Warn("Discarding unreadable cache entry", zap.String("key", cacheKey), zap.Error(err))
		return nil
	}
	batch.CacheHit = true
	return &batch
}

func (s *Service) store(ctx context.Context, cacheKey string, batch *BatchResult) {
	data, err := json.Marshal(batch)
	if err != nil {
		s.logger.Warn("Failed to encode conversion result", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, cacheKey, data); err != nil {
		s.logger.Warn("Failed to cache conversion result", zap.Error(err))
	}
}

// cleanup removes the previous asset of userID together with its files.
// Cached results point at those files and are dropped too.
func (s *Service) cleanup(ctx context.Context, userID string) error {
	exists, err := s.assets.AssetExists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	if err := s.assets.DeleteAsset(ctx, userID); err != nil {
		return err
	}
	if err := s.files.DeleteFiles(ctx, userID, assets.KindOriginal); err != nil {
		return err
	}
	if err := s.files.DeleteFiles(ctx, userID, assets.KindConverted); err != nil {
		return err
	}

	if err := s.cache.InvalidateUser(ctx, userID); err != nil {
		s.logger.Warn("Failed to invalidate cached results",
			zap.String("user_id", userID),
			zap.Error(err))
	}
	return nil
}

func (s *Service) publish(ctx context.Context, userID, format string, batch *BatchResult, elapsed time.Duration) {
	if s.events == nil {
		return
	}

	event := &models.ConversionEvent{
		Type:       models.EventConversionCompleted,
		UserID:     userID,
		Format:     format,
		Files:      len(batch.Results),
		Failed:     len(batch.Errors()),
		CacheHit:   batch.CacheHit,
		DurationMs: elapsed.Milliseconds(),
		OccurredAt: time.Now(),
	}
	if err := s.events.PublishEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish conversion event", zap.Error(err))
	}
}

// GetZip archives the converted files of userID.
func (s *Service) GetZip(ctx context.Context, userID string) (*models.ZipResponse, error) {
	exists, err := s.assets.AssetExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.NotFound("No converted images found", fmt.Sprintf("User '%s' has no conversion asset", userID))
	}

	zipURL, err := s.files.ZipFolder(ctx, userID, assets.KindConverted)
	if err != nil {
		return nil, err
	}
	return &models.ZipResponse{ZipURL: zipURL}, nil
}

// Purge deletes every converter artifact of userID. It backs the purge queue
// worker.
func (s *Service) Purge(ctx context.Context, userID string) error {
	if err := s.cleanup(ctx, userID); err != nil {
		metrics.PurgesTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to purge user %s: %w", userID, err)
	}
	if err := s.cache.InvalidateUser(ctx, userID); err != nil {
		s.logger.Warn("Failed to invalidate cached results",
			zap.String("user_id", userID),
			zap.Error(err))
	}

	metrics.PurgesTotal.WithLabelValues("success").Inc()
	s.logger.Info("Purged converter assets", zap.String("user_id", userID))
	return nil
}
