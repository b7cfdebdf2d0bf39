package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// contextKey keys the log scope values a context carries.
type contextKey string

const (
	// TraceIDContextKey holds the request or job trace ID.
	TraceIDContextKey    contextKey = "trace_id"
	sessionIDContextKey  contextKey = "session_id"
	surveyFileContextKey contextKey = "survey_file"
)

// WithTraceID returns ctx carrying traceID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDContextKey, traceID)
}

// GetTraceID returns the trace ID of ctx, or "".
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(TraceIDContextKey).(string)
	return id
}

// EnsureTraceID returns ctx with a fresh trace ID unless it already has one.
// Jobs that do not start from an HTTP request use it to correlate their logs.
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) != "" {
		return ctx
	}
	return WithTraceID(ctx, uuid.NewString())
}

// WithSessionID returns ctx scoped to a viewer session.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, id)
}

// SessionID returns the viewer session of ctx, or "".
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDContextKey).(string)
	return id
}

// WithSurveyFile returns ctx scoped to a survey file of the archive.
func WithSurveyFile(ctx context.Context, file string) context.Context {
	return context.WithValue(ctx, surveyFileContextKey, file)
}

// SurveyFile returns the survey file of ctx, or "".
func SurveyFile(ctx context.Context) string {
	file, _ := ctx.Value(surveyFileContextKey).(string)
	return file
}

// scopeAttrs lists the scope values present in ctx. A request trace ID wins
// over the span trace ID.
func scopeAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	traceID := GetTraceID(ctx)
	if traceID == "" {
		traceID = TraceIDFromContext(ctx)
	}
	if traceID != "" {
		attrs = append(attrs, slog.String(string(TraceIDContextKey), traceID))
	}
	if id := SessionID(ctx); id != "" {
		attrs = append(attrs, slog.String(string(sessionIDContextKey), id))
	}
	if file := SurveyFile(ctx); file != "" {
		attrs = append(attrs, slog.String(string(surveyFileContextKey), file))
	}
	return attrs
}
