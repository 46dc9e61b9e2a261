package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kesbangpol-dev/perizinan-api/pkg/config"
	appErrors "github.com/kesbangpol-dev/perizinan-api/pkg/errors"
	"github.com/kesbangpol-dev/perizinan-api/pkg/response"
)

const msgRateLimited = "Terlalu banyak permintaan, coba lagi nanti"

// RateLimit throttles submissions per client IP using a fixed Redis window.
// When Redis is unavailable the limiter fails open: a public intake form must
// not go down with the cache.
func RateLimit(client *redis.Client, cfg config.RateLimitConfig, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled || client == nil {
		return func(c *gin.Context) { c.Next() }
	}

	maxRequests := int64(cfg.MaxRequests)
	if maxRequests <= 0 {
		maxRequests = 30
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := fmt.Sprintf("ratelimit:intake:%s", c.ClientIP())

		count, err := client.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			if err := client.Expire(ctx, key, cfg.Window).Err(); err != nil {
				logger.Warn("rate limiter expire failed", zap.Error(err))
			}
		}
		if count > maxRequests {
			response.Error(c, appErrors.Clone(appErrors.ErrTooManyRequests, msgRateLimited))
			c.Abort()
			return
		}

		c.Next()
	}
}
