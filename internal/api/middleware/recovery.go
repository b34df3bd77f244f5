package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Conceptual-Machines/workplan-api/internal/apperror"
	"github.com/Conceptual-Machines/workplan-api/internal/logger"
	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

const sentryFlushTimeout = 2 * time.Second

// SentryMiddleware attaches a per-request hub and re-panics so recovery
// below still answers the client
func SentryMiddleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{
		Repanic: true,
		Timeout: sentryFlushTimeout,
	})
}

// RecoverWithSentry turns a handler panic into a 500 with the standard error
// body and reports it to the request's hub
func RecoverWithSentry() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			requestID := c.GetString("request_id")

			if hub := sentrygin.GetHubFromContext(c); hub != nil {
				hub.WithScope(func(scope *sentry.Scope) {
					scope.SetRequest(c.Request)
					scope.SetTag("request_id", requestID)
					hub.RecoverWithContext(c.Request.Context(), recovered)
				})
			}

			fields := logger.WithContext(c)
			fields["panic"] = fmt.Sprint(recovered)
			logger.Error("Panic recovered", nil, fields)

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":      apperror.MessageInternal,
				"error_code": apperror.CodeInternal,
				"request_id": requestID,
			})
		}()
		c.Next()
	}
}
