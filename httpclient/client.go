package httpclient

import (
	"context"
	"errors"
	nethttp "net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/gaborage/go-enrich/httpclient/internal/tracking"
	"github.com/gaborage/go-enrich/logger"
	"github.com/gaborage/go-enrich/trace"
)

const defaultMaxPayloadLogBytes = 4096

type client struct {
	config    Config
	logger    logger.Logger
	transport Transport
	limiter   *rate.Limiter
	sleep     sleeper
	callCount int64
}

// New builds a client from cfg. Configuration problems are reported here as
// ConfigurationError and never during calls.
func New(cfg Config, log logger.Logger) (Client, error) {
	c, err := newClient(cfg, log, nil)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newClient(cfg Config, log logger.Logger, transport Transport) (*client, error) {
	normalized, err := normalizeConfig(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	if transport == nil {
		transport = NewHTTPTransport(&normalized)
	}

	c := &client{
		config:    normalized,
		logger:    log,
		transport: transport,
		sleep:     sleepContext,
	}
	if normalized.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(normalized.RateLimit), normalized.RateBurst)
	}
	return c, nil
}

// normalizeConfig validates cfg, fills defaults and copies every slice so the
// caller cannot mutate the client afterwards.
func normalizeConfig(cfg Config) (Config, error) {
	if err := validateBaseURL(cfg.BaseURL); err != nil {
		return Config{}, err
	}

	switch {
	case cfg.MaxRetries < 0:
		return Config{}, NewConfigurationError("max retries cannot be negative", "max_retries")
	case cfg.RetryDelay != nil && *cfg.RetryDelay < 0:
		return Config{}, NewConfigurationError("retry delay cannot be negative", "retry_delay")
	case cfg.Timeout < 0:
		return Config{}, NewConfigurationError("timeout cannot be negative", "timeout")
	case cfg.ConnectTimeout < 0:
		return Config{}, NewConfigurationError("connect timeout cannot be negative", "connect_timeout")
	case cfg.RateLimit < 0:
		return Config{}, NewConfigurationError("rate limit cannot be negative", "rate_limit")
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	delay := DefaultRetryDelay
	if cfg.RetryDelay != nil {
		delay = *cfg.RetryDelay
	}
	cfg.RetryDelay = &delay
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.RateLimit > 0 && cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	if cfg.MaxPayloadLogBytes <= 0 {
		cfg.MaxPayloadLogBytes = defaultMaxPayloadLogBytes
	}
	if cfg.TraceIDHeader == "" {
		cfg.TraceIDHeader = HeaderXRequestID
	}

	cfg.Headers = slices.Clone(cfg.Headers)
	cfg.RequestInterceptors = append(
		[]RequestInterceptor{traceInterceptor(cfg.TraceIDHeader, cfg.EnableW3CTrace)},
		cfg.RequestInterceptors...,
	)
	cfg.ResponseInterceptors = slices.Clone(cfg.ResponseInterceptors)
	return cfg, nil
}

func traceInterceptor(header string, w3c bool) RequestInterceptor {
	return func(ctx context.Context, req *nethttp.Request) error {
		trace.Inject(ctx, req.Header, header, w3c)
		return nil
	}
}

// Builder provides a fluent interface for configuring the client
type Builder struct {
	config    Config
	logger    logger.Logger
	transport Transport
}

// NewBuilder creates a builder for a client rooted at baseURL.
func NewBuilder(baseURL string, log logger.Logger) *Builder {
	return &Builder{config: Config{BaseURL: baseURL}, logger: log}
}

// WithTimeout sets the per-attempt timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithConnectTimeout sets the connection establishment timeout
func (b *Builder) WithConnectTimeout(timeout time.Duration) *Builder {
	b.config.ConnectTimeout = timeout
	return b
}

// WithRetries sets the maximum attempts per call and the backoff base
func (b *Builder) WithRetries(maxRetries int, retryDelay time.Duration) *Builder {
	b.config.MaxRetries = maxRetries
	b.config.RetryDelay = &retryDelay
	return b
}

// WithHeader appends a header sent with every request
func (b *Builder) WithHeader(key, value string) *Builder {
	b.config.Headers = append(b.config.Headers, Header{Key: key, Value: value})
	return b
}

// WithRateLimit paces attempts to rps requests per second with the given burst
func (b *Builder) WithRateLimit(rps float64, burst int) *Builder {
	b.config.RateLimit = rps
	b.config.RateBurst = burst
	return b
}

// WithSkipTLSVerify disables certificate verification
func (b *Builder) WithSkipTLSVerify(skip bool) *Builder {
	b.config.SkipTLSVerify = skip
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithPayloadLogging logs headers and bodies at debug level, truncated to maxBytes
func (b *Builder) WithPayloadLogging(maxBytes int) *Builder {
	b.config.LogPayloads = true
	b.config.MaxPayloadLogBytes = maxBytes
	return b
}

// WithTraceIDHeader changes the header used to propagate the trace ID
func (b *Builder) WithTraceIDHeader(header string) *Builder {
	b.config.TraceIDHeader = header
	return b
}

// WithW3CTrace enables traceparent/tracestate propagation
func (b *Builder) WithW3CTrace() *Builder {
	b.config.EnableW3CTrace = true
	return b
}

// WithTransport replaces the net/http transport. Interceptors are only run by
// the default transport.
func (b *Builder) WithTransport(t Transport) *Builder {
	b.transport = t
	return b
}

// Build validates the configuration and creates the client
func (b *Builder) Build() (Client, error) {
	c, err := newClient(b.config, b.logger, b.transport)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Get performs a GET request
func (c *client) Get(ctx context.Context, path string, query Query) (Result, error) {
	return c.Do(ctx, &Call{Method: nethttp.MethodGet, Path: path, Query: query})
}

// Post performs a POST request
func (c *client) Post(ctx context.Context, path string, body map[string]any) (Result, error) {
	return c.Do(ctx, &Call{Method: nethttp.MethodPost, Path: path, Body: body})
}

// Put performs a PUT request
func (c *client) Put(ctx context.Context, path string, body map[string]any) (Result, error) {
	return c.Do(ctx, &Call{Method: nethttp.MethodPut, Path: path, Body: body})
}

// Delete performs a DELETE request
func (c *client) Delete(ctx context.Context, path string, query Query) (Result, error) {
	return c.Do(ctx, &Call{Method: nethttp.MethodDelete, Path: path, Query: query})
}

// Do executes call, retrying transient failures. It returns the decoded
// payload, the not-found sentinel, or a ClientError.
func (c *client) Do(ctx context.Context, call *Call) (Result, error) {
	if err := validateCall(call); err != nil {
		return nil, err
	}

	method := strings.ToUpper(call.Method)
	target, err := BuildURL(c.config.BaseURL, call.Path, call.Query)
	if err != nil {
		return nil, err
	}

	req := &TransportRequest{Method: method, URL: target, Headers: c.config.Headers}
	if sendsBody(method) && call.Body != nil {
		req.Body = call.Body
	}

	traceID := trace.EnsureTraceID(ctx)
	ctx = trace.WithTraceID(ctx, traceID)
	ctx, span := tracking.StartCall(ctx, method, call.Path)

	start := time.Now()
	callCount := atomic.AddInt64(&c.callCount, 1)
	state := newRetryState(c.config.MaxRetries, *c.config.RetryDelay)

	result, err := c.run(ctx, req, state, traceID)

	elapsed := time.Since(start)
	label := resultLabel(result, err)
	status := 0
	if state.last != nil {
		status = state.last.StatusCode
	}
	tracking.RecordCallDuration(ctx, method, label, elapsed)
	tracking.EndCall(span, label, state.attempt, status, err)
	if err != nil {
		c.logFailure(req, err, traceID, state, elapsed, callCount)
	}
	return result, err
}

func (c *client) run(ctx context.Context, req *TransportRequest, state *retryState, traceID string) (Result, error) {
	for {
		if err := c.waitTurn(ctx); err != nil {
			return nil, newCancelledError(err, state.attempt, state.last)
		}

		state.attempt++
		c.logRequest(req, traceID, state.attempt)

		attemptStart := time.Now()
		res, err := c.transport.Execute(ctx, req)
		attemptElapsed := time.Since(attemptStart)
		logger.IncrementCallCounter(ctx)
		logger.AddCallElapsed(ctx, attemptElapsed)

		if err != nil && ctx.Err() != nil {
			return nil, newCancelledError(ctx.Err(), state.attempt, state.last)
		}

		outcome := Classify(res, err)
		tracking.RecordAttempt(ctx, req.Method, outcome.StatusCode, outcome.Kind.String())
		c.logResponse(req, res, &outcome, traceID, state.attempt, attemptElapsed)

		d := state.decide(outcome)
		switch d.kind {
		case decisionReturn:
			return d.result, nil
		case decisionFail:
			return nil, d.err
		}

		c.logRetry(req, &outcome, d.delay, traceID, state)
		tracking.RecordRetry(ctx, req.Method, string(outcome.Failure))
		if err := c.sleep(ctx, d.delay); err != nil {
			return nil, newCancelledError(err, state.attempt, state.last)
		}
	}
}

// waitTurn checks for cancellation and applies client-side pacing.
func (c *client) waitTurn(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func validateCall(call *Call) error {
	if call == nil {
		return NewValidationError("call cannot be nil", "call")
	}
	if strings.TrimSpace(call.Path) == "" {
		return NewValidationError("path cannot be empty", "path")
	}
	switch strings.ToUpper(call.Method) {
	case nethttp.MethodGet, nethttp.MethodPost, nethttp.MethodPut, nethttp.MethodPatch, nethttp.MethodDelete:
		return nil
	default:
		return NewValidationError("unsupported method "+call.Method, "method")
	}
}

func sendsBody(method string) bool {
	return method == nethttp.MethodPost || method == nethttp.MethodPut || method == nethttp.MethodPatch
}

func resultLabel(result Result, err error) string {
	if err != nil {
		var ce ClientError
		if errors.As(err, &ce) {
			return string(ce.Type())
		}
		return "error"
	}
	if result.NotFound() {
		return "not_found"
	}
	return "success"
}
