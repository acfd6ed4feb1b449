package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"podreseller_back_end/internal/apperr"
	"podreseller_back_end/internal/logger"
)

// ErrorHandler renders the first error a handler attached with c.Error.
// Register it before the routes so it runs after them.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors[0].Err
		status, msg := apperr.Status(err)
		log := logger.WithCtx(c.Request.Context())
		if status >= http.StatusInternalServerError {
			log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		} else {
			log.Debug("request rejected", "status", status, "error", err)
		}

		c.AbortWithStatusJSON(status, gin.H{"message": msg})
	}
}

// Recovery turns panics into the same 500 body the error boundary uses.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.WithCtx(c.Request.Context()).Error("panic recovered",
			"error", fmt.Sprintf("%v", recovered),
			"stack", string(debug.Stack()),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": apperr.ServerErrorMessage})
	})
}
