package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/webp-converter/internal/config"
	"github.com/phambaophuc/webp-converter/internal/http/handlers"
	"github.com/phambaophuc/webp-converter/internal/http/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Router struct {
	converterHandler *handlers.ConverterHandler
	config           *config.Config
	logger           *zap.Logger
}

func NewRouter(
	converterHandler *handlers.ConverterHandler,
	config *config.Config,
	logger *zap.Logger,
) *Router {
	return &Router{
		converterHandler: converterHandler,
		config:           config,
		logger:           logger,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	if !r.config.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Logger(r.logger))
	router.Use(middleware.ErrorHandler(r.logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS(r.config.Server.AllowedOrigins))
	router.Use(middleware.SecurityHeaders())

	// API version 1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", r.converterHandler.HealthCheck)
		v1.GET("/stats", r.converterHandler.GetStats)

		converter := v1.Group("/converter", middleware.UserID(!r.config.IsDevelopment()))
		{
			converter.POST("/convert", middleware.RequireMultipart(), r.converterHandler.Convert)
			converter.GET("/zip", r.converterHandler.GetZip)
			converter.POST("/purge", r.converterHandler.Purge)
		}
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/", handlers.Root)

	return router
}
