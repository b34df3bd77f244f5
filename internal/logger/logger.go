package logger

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Fields represents structured log fields
type Fields map[string]interface{}

var base = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Init configures the output: human-readable console at debug level outside
// production, JSON at info level in production.
func Init(environment string) {
	if environment == "production" {
		base = zerolog.New(os.Stdout).With().Timestamp().Logger().Level(zerolog.InfoLevel)
		return
	}
	base = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger().Level(zerolog.DebugLevel)
}

// SetOutput redirects logs to w as JSON. Used by tests and the CLI.
func SetOutput(w io.Writer, level zerolog.Level) {
	base = zerolog.New(w).With().Timestamp().Logger().Level(level)
}

// WithContext extracts request context for logging
func WithContext(c *gin.Context) Fields {
	fields := Fields{
		"request_id": c.GetString("request_id"),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
	}

	if runID, exists := c.Get("bulk_run_id"); exists {
		fields["bulk_run_id"] = runID
	}

	return fields
}

// Info logs an informational message with structured fields
func Info(msg string, fields Fields) {
	base.Info().Fields(map[string]interface{}(fields)).Msg(msg)
	addBreadcrumb("info", sentry.LevelInfo, msg, fields)
}

// Warn logs a warning message with structured fields
func Warn(msg string, fields Fields) {
	base.Warn().Fields(map[string]interface{}(fields)).Msg(msg)
	addBreadcrumb("warning", sentry.LevelWarning, msg, fields)
}

// Debug logs a debug message with structured fields
func Debug(msg string, fields Fields) {
	base.Debug().Fields(map[string]interface{}(fields)).Msg(msg)
	addBreadcrumb("debug", sentry.LevelDebug, msg, fields)
}

// Error logs an error message with structured fields and sends to Sentry
func Error(msg string, err error, fields Fields) {
	base.Error().Err(err).Fields(map[string]interface{}(fields)).Msg(msg)

	if err == nil {
		return
	}
	if hub := sentry.CurrentHub(); hub.Client() != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			for key, value := range fields {
				scope.SetContext(key, map[string]interface{}{
					"value": value,
				})
			}

			// Tags for filtering in Sentry
			if requestID, ok := fields["request_id"].(string); ok {
				scope.SetTag("request_id", requestID)
			}
			if model, ok := fields["model"].(string); ok {
				scope.SetTag("model", model)
			}
			if code, ok := fields["error_code"].(string); ok {
				scope.SetTag("error_code", code)
			}

			hub.CaptureException(err)
		})
	}
}

// Fatal logs the error and exits the process
func Fatal(msg string, err error) {
	if err != nil {
		sentry.CaptureException(err)
		sentry.Flush(2 * time.Second)
	}
	base.Fatal().Err(err).Msg(msg)
}

// LogAPIRequest logs a completed request at a level matching its status class
func LogAPIRequest(c *gin.Context, duration time.Duration, statusCode int, fields Fields) {
	entry := WithContext(c)
	for k, v := range fields {
		entry[k] = v
	}
	entry["duration_ms"] = duration.Milliseconds()
	entry["status_code"] = statusCode
	entry["client_ip"] = c.ClientIP()

	switch {
	case statusCode >= http.StatusInternalServerError:
		Error("Request failed with server error", nil, entry)
	case statusCode >= http.StatusBadRequest:
		Warn("Request failed with client error", entry)
	default:
		Info("Request completed", entry)
	}
}

// LogGenerationRequest logs one completed gateway call with its token counts
// and the request or bulk run it belongs to
func LogGenerationRequest(ctx context.Context, model string, duration time.Duration, tokenUsage map[string]interface{}, fields Fields) {
	entry := FromContext(ctx)
	for k, v := range tokenUsage {
		entry[k] = v
	}
	for k, v := range fields {
		entry[k] = v
	}
	entry["model"] = model
	entry["duration_ms"] = duration.Milliseconds()

	Info("Generation request completed", entry)
}

func addBreadcrumb(kind string, level sentry.Level, msg string, fields Fields) {
	if hub := sentry.CurrentHub(); hub.Client() != nil {
		hub.AddBreadcrumb(&sentry.Breadcrumb{
			Type:     kind,
			Category: "log",
			Message:  msg,
			Data:     convertFieldsToMap(fields),
			Level:    level,
		}, nil)
	}
}

func convertFieldsToMap(fields Fields) map[string]interface{} {
	result := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		result[k] = v
	}
	return result
}

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	bulkRunIDKey contextKey = "bulk_run_id"
)

// ContextWithRequestID attaches the request id to ctx for downstream logs and traces
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id set by ContextWithRequestID
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ContextWithBulkRunID attaches the bulk run id to ctx
func ContextWithBulkRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, bulkRunIDKey, id)
}

// BulkRunIDFromContext returns the bulk run id set by ContextWithBulkRunID
func BulkRunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(bulkRunIDKey).(string)
	return id
}

// FromContext returns the request and bulk run ids in ctx as log fields
func FromContext(ctx context.Context) Fields {
	fields := Fields{}
	if id := RequestIDFromContext(ctx); id != "" {
		fields["request_id"] = id
	}
	if id := BulkRunIDFromContext(ctx); id != "" {
		fields["bulk_run_id"] = id
	}
	return fields
}
