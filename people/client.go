// Package people is a typed SDK for the people-data provider: person lookup,
// people search and person+company enrichment, all on top of httpclient.
package people

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gaborage/go-enrich/httpclient"
	"github.com/gaborage/go-enrich/logger"
)

const (
	// DefaultBaseURL is the provider's production API root
	DefaultBaseURL = "https://api.rocketreach.co/api/v2"
	// DefaultUserAgent identifies this SDK to the provider
	DefaultUserAgent = "go-enrich/1.0.0"

	pathLookup = "/person/lookup"
	pathSearch = "/person/search"
	pathEnrich = "/profile-company/lookup"
)

// Config configures a provider Client.
type Config struct {
	APIKey         string
	BaseURL        string
	UserAgent      string
	Timeout        time.Duration
	ConnectTimeout time.Duration
	SkipTLSVerify  bool
	MaxRetries     int
	RetryDelay     *time.Duration // nil uses the client default of 1s
	RateLimit      float64
	RateBurst      int
	// Headers are sent after the provider's own headers
	Headers     []httpclient.Header
	LogPayloads bool
}

// HTTPConfig builds the transport level configuration. The provider headers
// come first: Api-Key, Content-Type, User-Agent.
func (c Config) HTTPConfig() (httpclient.Config, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return httpclient.Config{}, httpclient.NewConfigurationError("API key cannot be empty", "api_key")
	}
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	agent := c.UserAgent
	if agent == "" {
		agent = DefaultUserAgent
	}

	headers := []httpclient.Header{
		{Key: "Api-Key", Value: c.APIKey},
		{Key: "Content-Type", Value: "application/json"},
		{Key: "User-Agent", Value: agent},
	}
	headers = append(headers, c.Headers...)

	return httpclient.Config{
		BaseURL:        base,
		Timeout:        c.Timeout,
		ConnectTimeout: c.ConnectTimeout,
		SkipTLSVerify:  c.SkipTLSVerify,
		Headers:        headers,
		MaxRetries:     c.MaxRetries,
		RetryDelay:     c.RetryDelay,
		RateLimit:      c.RateLimit,
		RateBurst:      c.RateBurst,
		LogPayloads:    c.LogPayloads,
	}, nil
}

// Client calls the provider's person endpoints. It is safe for concurrent use.
type Client struct {
	http httpclient.Client
	log  logger.Logger
}

// NewClient validates cfg and builds a Client. An empty API key or a bad
// base URL is reported as an httpclient ConfigurationError.
func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	httpCfg, err := cfg.HTTPConfig()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	hc, err := httpclient.New(httpCfg, log)
	if err != nil {
		return nil, err
	}
	return &Client{http: hc, log: log}, nil
}

// NewWithHTTPClient wraps an existing httpclient.Client.
func NewWithHTTPClient(hc httpclient.Client, log logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{http: hc, log: log}
}

// Lookup fetches one person profile. A missing person is not an error: the
// returned Person has NotFound set.
func (c *Client) Lookup(ctx context.Context, q LookupQuery) (*Person, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	res, err := c.http.Get(ctx, pathLookup, q.Query())
	if err != nil {
		return nil, fmt.Errorf("person lookup: %w", err)
	}
	if res.NotFound() {
		resp, err := newEnrichResponse(res)
		if err != nil {
			return nil, err
		}
		return &resp.Person, nil
	}

	var p Person
	if err := decodeResult(res, &p); err != nil {
		return nil, fmt.Errorf("person lookup: %w", err)
	}
	return &p, nil
}

// Search runs a people search. Only non-empty filters are sent.
func (c *Client) Search(ctx context.Context, q SearchQuery) (*SearchResponse, error) {
	res, err := c.http.Post(ctx, pathSearch, q.Payload())
	if err != nil {
		return nil, fmt.Errorf("people search: %w", err)
	}
	if res.NotFound() {
		return &SearchResponse{}, nil
	}

	var sr SearchResponse
	if err := decodeResult(res, &sr); err != nil {
		return nil, fmt.Errorf("people search: %w", err)
	}
	return &sr, nil
}

// Enrich fetches a person together with their current employer.
func (c *Client) Enrich(ctx context.Context, q LookupQuery) (*EnrichResponse, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	res, err := c.http.Get(ctx, pathEnrich, q.Query())
	if err != nil {
		return nil, fmt.Errorf("person enrich: %w", err)
	}
	resp, err := newEnrichResponse(res)
	if err != nil {
		return nil, fmt.Errorf("person enrich: %w", err)
	}
	if resp.NotFound() {
		c.log.Debug().Str("message", resp.Person.Message).Msg("Provider has no match for enrichment query")
	}
	return resp, nil
}

// decodeResult re-decodes a generic result into a typed model.
func decodeResult(res httpclient.Result, v any) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode provider payload: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}
	return nil
}
