package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for structured logging.
// Use these constants instead of raw strings.
const (
	// Identity
	FieldJobID = "job_id"
	FieldRunID = "run_id"

	// Components
	FieldComponent = "component"

	// Round processing
	FieldRound    = "round"
	FieldEndRound = "end_round"
	FieldCursor   = "cursor"
	FieldPageID   = "page_id"
	FieldTitle    = "title"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount     = "count"
	FieldUpdated   = "updated"
	FieldBatchSize = "batch_size"
	FieldIssues    = "issues"

	// Storage
	FieldDriver = "driver"
	FieldPath   = "path"
)

type contextKey string

const (
	jobIDKey     contextKey = "logger_job_id"
	runIDKey     contextKey = "logger_run_id"
	componentKey contextKey = "logger_component"
)

// WithJobID adds a job ID to the context for logging
func WithJobID(ctx context.Context, jobID int) context.Context {
	return context.WithValue(ctx, jobIDKey, jobID)
}

// WithRunID adds the run correlation ID to the context for logging
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if jobID, ok := ctx.Value(jobIDKey).(int); ok && jobID != 0 {
		fields = append(fields, FieldJobID, jobID)
	}
	if runID, ok := ctx.Value(runIDKey).(string); ok && runID != "" {
		fields = append(fields, FieldRunID, runID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// LoggerFromContext returns a logger carrying the job and run IDs found in ctx.
func LoggerFromContext(ctx context.Context) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return Logger
	}
	return Logger.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
//
// Example:
//
//	type Runner struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func NewRunner() *Runner {
//	    return &Runner{logger: logger.ComponentLogger("pulse.rounds")}
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
