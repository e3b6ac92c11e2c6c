package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
)

const (
	// HTTP status code threshold for considering a request successful
	successStatusCodeThreshold = http.StatusBadRequest
)

// SentryMetrics handles custom metrics for Sentry
type SentryMetrics struct {
	enabled bool
}

// NewSentryMetrics creates a new Sentry metrics client
func NewSentryMetrics(enabled bool) *SentryMetrics {
	return &SentryMetrics{enabled: enabled}
}

// RecordAPIRequest records API request metrics
func (m *SentryMetrics) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	if m == nil || !m.enabled {
		return
	}

	span := sentry.StartSpan(ctx, "api.request")
	defer span.Finish()

	span.SetTag("endpoint", endpoint)
	span.SetTag("status_code", fmt.Sprintf("%d", statusCode))
	span.SetTag("success", fmt.Sprintf("%t", statusCode < successStatusCodeThreshold))

	span.SetData("duration_ms", duration.Milliseconds())
	span.SetData("endpoint", endpoint)
	span.SetData("status_code", statusCode)

	if statusCode < successStatusCodeThreshold {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}

	span.Description = fmt.Sprintf("API Request: %s", endpoint)
}

// RecordCommandFinished records a span for the terminal outcome of a command
func (m *SentryMetrics) RecordCommandFinished(ctx context.Context, commandType models.CommandType, outcome string, duration time.Duration) {
	if m == nil || !m.enabled {
		return
	}

	span := sentry.StartSpan(ctx, "command.finish")
	defer span.Finish()

	span.SetTag("command_type", string(commandType))
	span.SetTag("outcome", outcome)
	span.SetData("duration_ms", duration.Milliseconds())

	switch outcome {
	case OutcomeCompleted, OutcomeCacheHit:
		span.Status = sentry.SpanStatusOK
	case OutcomeCancelled:
		span.Status = sentry.SpanStatusCanceled
	case OutcomeTimeout:
		span.Status = sentry.SpanStatusDeadlineExceeded
	default:
		span.Status = sentry.SpanStatusInternalError
	}

	span.Description = fmt.Sprintf("Command %s: %s", commandType, outcome)
}

// RecordQueueRejection reports a full work queue; it usually means workers are stuck
// or undersized.
func (m *SentryMetrics) RecordQueueRejection(depth int) {
	if m == nil || !m.enabled {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("metric_type", "custom")
		scope.SetTag("metric_name", "queue_full")
		scope.SetContext("queue", map[string]interface{}{"depth": depth})
		scope.SetLevel(sentry.LevelWarning)

		sentry.CaptureMessage("Command queue full")
	})
}
