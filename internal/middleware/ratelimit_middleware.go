package middleware

import (
	"context"
	"net/http"
	"strconv"

	"guest-snapper/internal/redis"
	"guest-snapper/internal/transport/httpdto"
	"guest-snapper/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UploadLimiter is satisfied by *redis.RateLimiter.
type UploadLimiter interface {
	AllowUpload(ctx context.Context, ip string) (*redis.RateLimitResult, error)
}

// UploadRateLimitMiddleware caps URL-issuance requests per client IP. When the
// limiter itself is unreachable the request is let through.
func UploadRateLimitMiddleware(limiter UploadLimiter, l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := limiter.AllowUpload(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.OrGlobal(l).Ctx(c.Request.Context()).Logger.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("upload rate limit exceeded", httpdto.CodeRateLimited))
			return
		}

		c.Next()
	}
}

func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}
