package middleware

import (
	"time"

	"github.com/Conceptual-Machines/workplan-api/internal/logger"
	"github.com/Conceptual-Machines/workplan-api/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const headerRequestID = "X-Request-ID"

var sentryMetrics = metrics.NewSentryMetrics()

// APIRequestRecorder receives one metric per completed request
type APIRequestRecorder interface {
	RecordAPIRequest(endpoint string, statusCode int, duration time.Duration)
}

// RequestTracking assigns a request ID, logs the outcome and records
// per-route metrics. api may be nil.
func RequestTracking(api APIRequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := requestIDFrom(c)
		c.Set("request_id", requestID)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), requestID))
		c.Header(headerRequestID, requestID)

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		endpoint := routeOf(c)

		logger.LogAPIRequest(c, duration, status, logger.Fields{"endpoint": endpoint})

		sentryMetrics.RecordAPIRequest(c.Request.Context(), endpoint, status, duration)
		if api != nil {
			api.RecordAPIRequest(endpoint, status, duration)
		}
	}
}

// requestIDFrom keeps a caller-supplied UUID and mints one otherwise
func requestIDFrom(c *gin.Context) string {
	if id, err := uuid.Parse(c.GetHeader(headerRequestID)); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// routeOf returns the matched route pattern so curriculum codes stay out of
// metric dimensions
func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return c.Request.URL.Path
}
