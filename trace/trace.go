// Package trace carries request correlation identifiers through contexts and
// onto outbound provider requests.
package trace

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const (
	traceIDKey     contextKey = "trace_id"
	traceParentKey contextKey = "traceparent"
	traceStateKey  contextKey = "tracestate"

	// HeaderXRequestID is the default correlation header sent to the provider
	HeaderXRequestID = "X-Request-ID"
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = "traceparent"
	// HeaderTraceState is the W3C tracestate header name
	HeaderTraceState = "tracestate"
)

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// IDFromContext returns the trace ID stored in ctx.
func IDFromContext(ctx context.Context) (string, bool) {
	if traceID, ok := ctx.Value(traceIDKey).(string); ok && traceID != "" {
		return traceID, true
	}
	return "", false
}

// EnsureTraceID returns the trace ID from ctx or a fresh UUID.
func EnsureTraceID(ctx context.Context) string {
	if traceID, ok := IDFromContext(ctx); ok {
		return traceID
	}
	return uuid.New().String()
}

// WithTraceParent adds a W3C traceparent value to the context
func WithTraceParent(ctx context.Context, traceParent string) context.Context {
	return context.WithValue(ctx, traceParentKey, traceParent)
}

// ParentFromContext returns the traceparent stored in ctx.
func ParentFromContext(ctx context.Context) (string, bool) {
	if tp, ok := ctx.Value(traceParentKey).(string); ok && tp != "" {
		return tp, true
	}
	return "", false
}

// WithTraceState adds a W3C tracestate value to the context
func WithTraceState(ctx context.Context, traceState string) context.Context {
	return context.WithValue(ctx, traceStateKey, traceState)
}

// StateFromContext returns the tracestate stored in ctx.
func StateFromContext(ctx context.Context) (string, bool) {
	if ts, ok := ctx.Value(traceStateKey).(string); ok && ts != "" {
		return ts, true
	}
	return "", false
}

// Inject writes correlation headers onto h and returns the trace ID used.
// Headers already present on h win over context values. When w3c is set a
// traceparent is propagated from ctx or generated.
func Inject(ctx context.Context, h http.Header, idHeader string, w3c bool) string {
	if idHeader == "" {
		idHeader = HeaderXRequestID
	}

	traceID := h.Get(idHeader)
	if traceID == "" {
		traceID = EnsureTraceID(ctx)
		h.Set(idHeader, traceID)
	}

	if !w3c || h.Get(HeaderTraceParent) != "" {
		return traceID
	}
	if tp, ok := ParentFromContext(ctx); ok {
		h.Set(HeaderTraceParent, tp)
	} else {
		h.Set(HeaderTraceParent, GenerateTraceParent())
	}
	if ts, ok := StateFromContext(ctx); ok {
		h.Set(HeaderTraceState, ts)
	}
	return traceID
}

// GenerateTraceParent creates a W3C traceparent value of the form
// version-traceid-spanid-flags, e.g. "00-<32 hex>-<16 hex>-01".
func GenerateTraceParent() string {
	traceID := randomNonZero(16)
	spanID := randomNonZero(8)
	return "00-" + hex.EncodeToString(traceID) + "-" + hex.EncodeToString(spanID) + "-01"
}

func randomNonZero(n int) []byte {
	b := make([]byte, n)
	if _, err := crand.Read(b); err != nil {
		b = []byte(strings.Repeat("\x00", n))
	}
	for _, v := range b {
		if v != 0 {
			return b
		}
	}
	b[n-1] = 0x01
	return b
}
