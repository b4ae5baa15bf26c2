package middleware

import (
	"guest-snapper/internal/transport/httpdto"
	"guest-snapper/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler renders the last error a handler attached with c.Error.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status, code := httpdto.StatusFor(err)
		if status >= 500 {
			logger.OrGlobal(l).Ctx(c.Request.Context()).Logger.Error("request error",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
		}
		c.JSON(status, httpdto.NewErrorResponse(err.Error(), code))
	}
}
