package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/webp-converter/internal/apperror"
	"github.com/phambaophuc/webp-converter/internal/config"
	"github.com/phambaophuc/webp-converter/internal/http/middleware"
	"github.com/phambaophuc/webp-converter/internal/models"
	"github.com/phambaophuc/webp-converter/internal/services/converter"
	"github.com/phambaophuc/webp-converter/internal/services/storage"
	"go.uber.org/zap"
)

const (
	filesParamKey = "files"
	healthTimeout = 5 * time.Second
)

type ConverterService interface {
	Convert(ctx context.Context, userID string, req *models.ConversionRequest) (*converter.BatchResult, error)
	GetZip(ctx context.Context, userID string) (*models.ZipResponse, error)
	Purge(ctx context.Context, userID string) error
}

// StatsSource reports runtime statistics of one collaborator.
type StatsSource func(ctx context.Context) (map[string]interface{}, error)

// PurgeQueue schedules asynchronous purges.
type PurgeQueue interface {
	PublishPurge(ctx context.Context, userID string) (*models.PurgeJob, error)
}

type ConverterHandler struct {
	converter ConverterService
	purges    PurgeQueue
	pingers   map[string]storage.Pinger
	stats     map[string]StatsSource
	logger    *zap.Logger
	config    *config.Config
}

// NewConverterHandler builds the API handler. purges may be nil, in which
// case purges run inline.
func NewConverterHandler(
	converter ConverterService,
	purges PurgeQueue,
	pingers map[string]storage.Pinger,
	logger *zap.Logger,
	config *config.Config,
) *ConverterHandler {
	return &ConverterHandler{
		converter: converter,
		purges:    purges,
		pingers:   pingers,
		stats:     make(map[string]StatsSource),
		logger:    logger,
		config:    config,
	}
}

func (h *ConverterHandler) RegisterStats(name string, source StatsSource) {
	h.stats[name] = source
}

// === MAIN API ENDPOINTS ===

func (h *ConverterHandler) Convert(c *gin.Context) {
	req, err := h.parseConversionRequest(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	userID := middleware.GetUserID(c)
	batch, err := h.converter.Convert(c.Request.Context(), userID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respondBatch(c, batch)
}

func (h *ConverterHandler) GetZip(c *gin.Context) {
	zip, err := h.converter.GetZip(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ActionResult{Ok: zip})
}

func (h *ConverterHandler) Purge(c *gin.Context) {
	userID := middleware.GetUserID(c)

	if h.purges == nil {
		if err := h.converter.Purge(c.Request.Context(), userID); err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.ActionResult{Ok: models.PurgeJob{
			UserID:    userID,
			Status:    models.StatusCompleted,
			CreatedAt: time.Now(),
		}})
		return
	}

	job, err := h.purges.PublishPurge(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to enqueue purge", zap.String("user_id", userID), zap.Error(err))
		h.respondError(c, apperror.ServerError("Failed to schedule purge"))
		return
	}

	c.JSON(http.StatusAccepted, models.ActionResult{Ok: job})
}

// HealthCheck
func (h *ConverterHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	services := storage.HealthCheck(ctx, h.pingers)
	overall := storage.OverallHealth(services)

	statusCode := http.StatusOK
	if overall != storage.StatusHealthy {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, models.ActionResult{
		Ok: models.HealthCheck{
			Status:      overall,
			Environment: h.config.Server.Env,
			Timestamp:   time.Now(),
			Services:    services,
		},
	})
}

func (h *ConverterHandler) GetStats(c *gin.Context) {
	stats := make(map[string]interface{}, len(h.stats)+1)
	for name, source := range h.stats {
		values, err := source(c.Request.Context())
		if err != nil {
			h.logger.Error("Failed to get stats", zap.String("source", name), zap.Error(err))
			stats[name] = gin.H{"error": "unavailable"}
			continue
		}
		stats[name] = values
	}
	stats["timestamp"] = time.Now()

	c.JSON(http.StatusOK, models.ActionResult{Ok: stats})
}
