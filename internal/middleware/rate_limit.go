package middleware

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"floorshop_back_end/internal/cache"

	"github.com/gin-gonic/gin"
)

const (
	// CheckoutMaxRequests par IP et par fenêtre
	CheckoutMaxRequests = 10
	CheckoutWindow      = 1 * time.Minute
)

// CheckoutRateLimit limite les soumissions de commande par IP.
// Si Redis ne répond pas, la requête passe.
func CheckoutRateLimit(limiter *cache.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Printf("⚠️ Rate limit indisponible: %v", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", decision.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", decision.Remaining))

		if !decision.Allowed {
			seconds := int(decision.RetryAfter.Seconds())
			c.Header("Retry-After", fmt.Sprintf("%d", seconds))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success":     false,
				"message":     fmt.Sprintf("Trop de commandes envoyées. Réessayez dans %d secondes", seconds),
				"retry_after": seconds,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
