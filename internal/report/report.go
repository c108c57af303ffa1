package report

import (
	"context"
	"log/slog"

	"github.com/ghlove/clientcore/internal/logging"
)

// Failure describes a recoverable error worth surfacing for observability.
type Failure struct {
	Component string
	Operation string
	UserID    string
	Err       error
}

// Reporter receives failures that were handled locally. Implementations must not block.
type Reporter interface {
	Report(ctx context.Context, failure Failure)
}

// Nop discards every failure.
type Nop struct{}

// Report implements Reporter.
func (Nop) Report(context.Context, Failure) {}

// LoggerReporter writes failures to the structured logger.
type LoggerReporter struct {
	logger *slog.Logger
}

// NewLoggerReporter constructs a reporter backed by logger.
func NewLoggerReporter(logger *slog.Logger) *LoggerReporter {
	return &LoggerReporter{logger: logging.Component(logger, "report")}
}

// Report writes the failure at warn level.
func (r *LoggerReporter) Report(ctx context.Context, failure Failure) {
	if r == nil || r.logger == nil {
		return
	}
	attrs := []any{
		slog.String("source", failure.Component),
		slog.String("operation", failure.Operation),
		slog.Any("error", failure.Err),
	}
	if failure.UserID != "" {
		attrs = append(attrs, slog.String("user_id", failure.UserID))
	}
	if id := logging.RequestID(ctx); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	r.logger.WarnContext(ctx, "handled failure", attrs...)
}
