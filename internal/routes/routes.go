package routes

import (
	"net/http"
	"slices"
	"time"

	"floorshop_back_end/internal/cache"
	"floorshop_back_end/internal/handlers/payement"
	"floorshop_back_end/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps regroupe ce dont les routes ont besoin. RateLimiter et Idempotency sont optionnels (Redis).
type Deps struct {
	Checkout       *payement.CheckoutHandler
	RateLimiter    *cache.RateLimiter
	Idempotency    *cache.IdempotencyStore
	AllowedOrigins []string
	Gatherer       prometheus.Gatherer
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	r.Use(corsMiddleware(deps.AllowedOrigins))

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// Supervision
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Checkout
	checkoutGroup := r.Group("/api/checkout")
	if deps.RateLimiter != nil {
		checkoutGroup.Use(middleware.CheckoutRateLimit(deps.RateLimiter))
	}
	if deps.Idempotency != nil {
		checkoutGroup.Use(middleware.Idempotency(deps.Idempotency))
	}
	checkoutGroup.POST("/orders", deps.Checkout.CreateOrder)
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", middleware.IdempotencyHeader},
		ExposeHeaders: []string{"Retry-After", "Idempotent-Replayed"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
