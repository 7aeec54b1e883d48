package httpclient

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/gaborage/go-enrich/trace"
)

const (
	// HeaderXRequestID is the default header used for trace ID propagation
	HeaderXRequestID = trace.HeaderXRequestID
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = trace.HeaderTraceParent
)

// Client issues calls against the provider API. A Client is safe for
// concurrent use; each call owns its own retry state.
type Client interface {
	Get(ctx context.Context, path string, query Query) (Result, error)
	Post(ctx context.Context, path string, body map[string]any) (Result, error)
	Put(ctx context.Context, path string, body map[string]any) (Result, error)
	Delete(ctx context.Context, path string, query Query) (Result, error)
	Do(ctx context.Context, call *Call) (Result, error)
}

// Query holds query parameters. Values are scalars (string, bool, numbers,
// fmt.Stringer), slices of scalars or nested map[string]any.
type Query map[string]any

// Call describes one logical request against the provider.
type Call struct {
	Method string
	Path   string
	Query  Query
	// Body is JSON encoded for POST, PUT and PATCH. Ignored otherwise.
	Body map[string]any
}

// Result is the decoded JSON object returned by a successful call, or the
// not-found sentinel {"not_found": true, "message": ...}.
type Result map[string]any

const (
	notFoundKey     = "not_found"
	notFoundMessage = "message"
)

// DurationPtr returns a pointer to d.
func DurationPtr(d time.Duration) *time.Duration {
	return &d
}

// NotFoundResult builds the sentinel returned for 404 responses.
func NotFoundResult(message string) Result {
	return Result{notFoundKey: true, notFoundMessage: message}
}

// NotFound reports whether r is the not-found sentinel.
func (r Result) NotFound() bool {
	v, _ := r[notFoundKey].(bool)
	return v
}

// Message returns the sentinel message, if any.
func (r Result) Message() string {
	v, _ := r[notFoundMessage].(string)
	return v
}

// Header is a single request header. Headers are sent in the order given.
type Header struct {
	Key   string
	Value string
}

// RequestInterceptor is called before each attempt is sent
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called after each attempt's response headers arrive
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

// Config holds the provider client configuration. It is copied when the
// client is built and never changes afterwards.
type Config struct {
	BaseURL string
	// Timeout bounds a whole attempt (default 30s)
	Timeout time.Duration
	// ConnectTimeout bounds connection establishment (default 10s)
	ConnectTimeout time.Duration
	// SkipTLSVerify disables certificate verification. Off by default.
	SkipTLSVerify bool
	Headers       []Header
	// MaxRetries is the maximum number of attempts per call, including the first (default 3)
	MaxRetries int
	// RetryDelay is the base of the exponential backoff for server and network
	// failures. Nil means 1s; zero retries immediately.
	RetryDelay *time.Duration
	// RateLimit paces outgoing attempts in requests per second. Zero disables pacing.
	RateLimit float64
	RateBurst int

	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor

	// LogPayloads enables debug-level logging of headers and bodies
	LogPayloads bool
	// MaxPayloadLogBytes caps logged body size when LogPayloads is enabled
	MaxPayloadLogBytes int
	// TraceIDHeader names the header carrying the trace ID (default X-Request-ID)
	TraceIDHeader string
	// EnableW3CTrace propagates or generates traceparent/tracestate
	EnableW3CTrace bool
}
