package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType names the pipeline event being handled (file_created, generation_complete, ...).
	FieldEventType = "event_type"
	// FieldImagePath is the standardized key for absolute image paths.
	FieldImagePath = "image_path"
	// FieldRegistrationID is the standardized key for registration identifiers.
	FieldRegistrationID = "registration_id"
	// FieldSource identifies which pipeline fed a registration (conduit, file_service, scan).
	FieldSource = "source"
	// FieldTemplate is the standardized key for workflow template names.
	FieldTemplate = "template"
	// FieldSubscriber is the standardized key for external subscriber names.
	FieldSubscriber = "subscriber"
	// FieldExtractor is the standardized key for extraction hook names.
	FieldExtractor = "extractor"
	// FieldCorrelationID is the standardized key for event correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldCount is the standardized key for result counts.
	FieldCount = "count"
)

type correlationIDKey struct{}

// WithCorrelationID stores an event correlation identifier on the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFromContext returns the correlation identifier attached to ctx, if any.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(correlationIDKey{}).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	if id, ok := CorrelationIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
