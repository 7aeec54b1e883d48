package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"time"
)

const (
	// DefaultTimeout bounds a whole attempt
	DefaultTimeout = 30 * time.Second
	// DefaultConnectTimeout bounds connection establishment
	DefaultConnectTimeout = 10 * time.Second
	// MaxRedirects is the number of redirects followed per attempt
	MaxRedirects = 3
)

// TransportRequest is one fully assembled attempt.
type TransportRequest struct {
	Method  string
	URL     string
	Headers []Header
	// Body is JSON encoded when non-nil
	Body map[string]any
}

// TransportResult is the raw outcome of one attempt that produced a response.
type TransportResult struct {
	StatusCode int
	RawBody    []byte
	// ParsedBody is nil when the body was empty or JSON null. Non-object JSON
	// values are wrapped as {"data": value}.
	ParsedBody map[string]any
	Headers    nethttp.Header
}

// Transport performs exactly one HTTP exchange. It never retries.
type Transport interface {
	Execute(ctx context.Context, req *TransportRequest) (*TransportResult, error)
}

type httpTransport struct {
	httpClient           *nethttp.Client
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewHTTPTransport builds the default net/http backed transport from cfg.
func NewHTTPTransport(cfg *Config) Transport {
	return &httpTransport{
		httpClient:           newHTTPClient(cfg),
		requestInterceptors:  cfg.RequestInterceptors,
		responseInterceptors: cfg.ResponseInterceptors,
	}
}

// connectTimeout is the bound for both dialing and the TLS handshake.
func connectTimeout(cfg *Config) time.Duration {
	if cfg.ConnectTimeout <= 0 {
		return DefaultConnectTimeout
	}
	return cfg.ConnectTimeout
}

func newDialer(cfg *Config) *net.Dialer {
	return &net.Dialer{Timeout: connectTimeout(cfg), KeepAlive: 30 * time.Second}
}

func newHTTPClient(cfg *Config) *nethttp.Client {
	rt := &nethttp.Transport{
		Proxy:               nethttp.ProxyFromEnvironment,
		DialContext:         newDialer(cfg).DialContext,
		TLSHandshakeTimeout: connectTimeout(cfg),
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		// #nosec G402 -- opt-in through SkipTLSVerify only
		TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.SkipTLSVerify, MinVersion: tls.VersionTLS12},
	}

	return &nethttp.Client{
		Timeout:   cfg.Timeout,
		Transport: rt,
		CheckRedirect: func(_ *nethttp.Request, via []*nethttp.Request) error {
			if len(via) > MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", MaxRedirects)
			}
			return nil
		},
	}
}

// Execute sends one request and decodes the response body.
func (t *httpTransport) Execute(ctx context.Context, req *TransportRequest) (*TransportResult, error) {
	httpReq, err := t.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewTransportError("request execution failed", err, isTimeout(err))
	}
	defer httpResp.Body.Close()

	if err := t.runResponseInterceptors(ctx, httpReq, httpResp); err != nil {
		return nil, NewInterceptorError("response interceptor failed", "response", err)
	}

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewTransportError("failed to read response body", err, isTimeout(err))
	}

	parsed, err := decodeBody(raw)
	if err != nil {
		return nil, NewTransportError(fmt.Sprintf("invalid JSON response (status %d)", httpResp.StatusCode), err, false)
	}

	return &TransportResult{
		StatusCode: httpResp.StatusCode,
		RawBody:    raw,
		ParsedBody: parsed,
		Headers:    httpResp.Header,
	}, nil
}

func (t *httpTransport) buildRequest(ctx context.Context, req *TransportRequest) (*nethttp.Request, error) {
	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, NewTransportError("failed to encode request body", err, false)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, NewTransportError("failed to create HTTP request", err, false)
	}
	for _, h := range req.Headers {
		httpReq.Header.Add(h.Key, h.Value)
	}

	for _, interceptor := range t.requestInterceptors {
		if err := interceptor(ctx, httpReq); err != nil {
			return nil, NewInterceptorError("request interceptor failed", "request", err)
		}
	}
	return httpReq, nil
}

func (t *httpTransport) runResponseInterceptors(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error {
	for _, interceptor := range t.responseInterceptors {
		if err := interceptor(ctx, req, resp); err != nil {
			return err
		}
	}
	return nil
}

func decodeBody(raw []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, err
	}
	switch doc := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return doc, nil
	default:
		return map[string]any{"data": doc}, nil
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
