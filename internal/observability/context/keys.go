package context

import "context"

type contextKey string

const (
	requestIDKey contextKey = "observability_request_id"
	languageKey  contextKey = "observability_language"
	flowKey      contextKey = "observability_flow"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

// WithLanguage records the negotiated UI language for log correlation.
func WithLanguage(ctx context.Context, lang string) context.Context {
	if ctx == nil || lang == "" {
		return ctx
	}
	return context.WithValue(ctx, languageKey, lang)
}

func LanguageFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(languageKey).(string)
	return value
}

func WithFlow(ctx context.Context, flow string) context.Context {
	if ctx == nil || flow == "" {
		return ctx
	}
	return context.WithValue(ctx, flowKey, flow)
}

func FlowFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(flowKey).(string)
	return value
}
