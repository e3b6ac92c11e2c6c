package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/logger"
)

// RequestIDKey is the gin context key holding the per-request ID.
const RequestIDKey = "request_id"

const sentryFlushTimeout = 2 * time.Second

// RequestRecorder receives one timing per finished request.
type RequestRecorder interface {
	RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration)
}

// requestFields describes the request for logs and Sentry scopes. command_id is included
// for the path-addressed command routes.
func requestFields(c *gin.Context) logger.Fields {
	fields := logger.Fields{
		RequestIDKey: c.GetString(RequestIDKey),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"client_ip":  c.ClientIP(),
	}
	if callerID := c.GetString(CallerIDKey); callerID != "" {
		fields["caller_id"] = callerID
	}
	if id := c.Param("command_id"); id != "" {
		fields["command_id"] = id
	}
	return fields
}

// RequestTracking tags each request with an ID, logs its outcome and reports its latency
// to recorder when one is given.
func RequestTracking(recorder RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()

		fields := requestFields(c).With(logger.Fields{
			"duration_ms": duration.Milliseconds(),
			"status_code": status,
		})
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("Request failed with server error", nil, fields)
		case status >= http.StatusBadRequest:
			logger.Warn("Request failed with client error", fields)
		default:
			logger.Info("Request completed", fields)
		}

		if recorder == nil {
			return
		}
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		recorder.RecordAPIRequest(c.Request.Context(), endpoint, status, duration)
	}
}

func SentryMiddleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{
		Repanic: true,
		Timeout: sentryFlushTimeout,
	})
}

// RecoverWithSentry turns a handler panic into a 500 in the API's error shape.
func RecoverWithSentry() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := requestFields(c)
			if hub := sentrygin.GetHubFromContext(c); hub != nil {
				hub.WithScope(func(scope *sentry.Scope) {
					scope.SetRequest(c.Request)
					scope.SetContext("request", map[string]interface{}(fields))
					if callerID := c.GetString(CallerIDKey); callerID != "" {
						scope.SetUser(sentry.User{ID: callerID})
					}
					hub.RecoverWithContext(c.Request.Context(), rec)
				})
			}

			logger.Error("Panic recovered", nil, fields.With(logger.Fields{"panic": rec}))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":      "Internal server error",
				"error_type": "internal",
				"request_id": c.GetString(RequestIDKey),
			})
		}()
		c.Next()
	}
}
