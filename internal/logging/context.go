package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldHousehold is the standardized structured logging key for household keys.
	FieldHousehold = "household"
	// FieldDecisionID is the standardized structured logging key for decision event identifiers.
	FieldDecisionID = "decision_id"
	// FieldDecisionType is the standardized structured logging key for cook/order/zero_cook.
	FieldDecisionType = "decision_type"
	// FieldReason is the standardized structured logging key for closed-enum reasons.
	FieldReason = "reason"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

type contextKey string

const (
	householdKey contextKey = "household"
	requestIDKey contextKey = "request_id"
)

// WithHousehold annotates context with the household key.
func WithHousehold(ctx context.Context, household string) context.Context {
	if household == "" {
		return ctx
	}
	return context.WithValue(ctx, householdKey, household)
}

// HouseholdFromContext returns the household key if present.
func HouseholdFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(householdKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if household, ok := HouseholdFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldHousehold, household))
	}
	if rid, ok := RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
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
	return logger.With(Args(fields...)...)
}
