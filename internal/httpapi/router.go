// Package httpapi exposes discovery, moderation and search over HTTP with gin.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/docs" // Swagger docs
)

// HealthFunc reports whether a backing dependency is reachable.
type HealthFunc func(ctx context.Context) error

// APIConfig wires the scholarship-service router.
type APIConfig struct {
	Moderation *ModerationHandler
	Search     *SearchHandler
	// RateLimit is requests per minute per client on search; 0 disables it.
	RateLimit int
	Health    HealthFunc
	Logger    *zap.Logger
}

func newEngine(log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	router.Use(Recovery(log))
	router.Use(RequestLogger(log))
	return router
}

// NewAPIRouter builds the moderation and search API.
func NewAPIRouter(cfg APIConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	router := newEngine(log)
	router.GET("/health", healthHandler(cfg.Health))
	router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json"))))

	api := router.Group("/api")

	admin := api.Group("/admin/pending-scholarships")
	admin.Use(cfg.Moderation.RequirePrincipal())
	{
		admin.GET("", cfg.Moderation.List)
		admin.POST("/:id/approve", cfg.Moderation.Approve)
		admin.POST("/:id/reject", cfg.Moderation.Reject)
	}

	api.GET("/scholarships/search", RateLimit(cfg.RateLimit, time.Minute, log), cfg.Search.Search)
	return router
}

// NewDiscoveryRouter builds the discovery-service router.
func NewDiscoveryRouter(h *DiscoveryHandler, health HealthFunc, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	router := newEngine(log)
	router.GET("/health", healthHandler(health))
	router.POST("/discovery/run", h.Run)
	return router
}

func healthHandler(check HealthFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}
