package httpclient

import (
	"errors"
	"math"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultRetryAfter is used for 429 responses that carry no usable hint
	DefaultRetryAfter = 60 * time.Second

	defaultNotFoundMessage = "Resource not found"
	defaultErrorMessage    = "API request failed"
	personNotFoundMarker   = "Could not find the person"
)

// OutcomeKind is the verdict for one attempt.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeNotFound
	OutcomeRetryable
	OutcomeTerminal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// FailureKind refines Retryable and Terminal outcomes.
type FailureKind string

const (
	FailureNone            FailureKind = ""
	FailureRateLimited     FailureKind = "rate_limited"
	FailureServerOrNetwork FailureKind = "server_or_network"
	FailureClientError     FailureKind = "client_error"
	FailureInterceptor     FailureKind = "interceptor"
)

// Outcome is the classified result of one attempt.
type Outcome struct {
	Kind       OutcomeKind
	Failure    FailureKind
	StatusCode int
	// Payload is the parsed body. Never nil for successes.
	Payload map[string]any
	Message string
	// RetryAfter is the wait requested by a 429
	RetryAfter time.Duration
	Cause      error
	rawBody    []byte
}

// PersonNotFound reports whether a 404 came from the provider's own
// "no such person" answer rather than an unknown route.
func (o Outcome) PersonNotFound() bool {
	return o.Kind == OutcomeNotFound && strings.Contains(o.Message, personNotFoundMarker)
}

// Classify maps one attempt to an Outcome. It has no side effects: the same
// inputs always yield the same verdict.
func Classify(result *TransportResult, err error) Outcome {
	return classifyAt(result, err, time.Now())
}

func classifyAt(result *TransportResult, err error, now time.Time) Outcome {
	if err != nil {
		if IsErrorType(err, InterceptorError) {
			return Outcome{Kind: OutcomeTerminal, Failure: FailureInterceptor, Message: err.Error(), Cause: err}
		}
		return Outcome{Kind: OutcomeRetryable, Failure: FailureServerOrNetwork, Message: err.Error(), Cause: err}
	}
	if result == nil {
		cause := errors.New("transport returned no result")
		return Outcome{Kind: OutcomeRetryable, Failure: FailureServerOrNetwork, Message: cause.Error(), Cause: cause}
	}

	status := result.StatusCode
	body := result.ParsedBody

	switch {
	case status < 400:
		if body == nil {
			body = map[string]any{}
		}
		return Outcome{Kind: OutcomeSuccess, StatusCode: status, Payload: body, rawBody: result.RawBody}

	case status == nethttp.StatusNotFound:
		msg := stringField(body, "detail")
		if msg == "" {
			msg = defaultNotFoundMessage
		}
		return Outcome{Kind: OutcomeNotFound, StatusCode: status, Payload: body, Message: msg, rawBody: result.RawBody}

	case status == nethttp.StatusTooManyRequests:
		return Outcome{
			Kind:       OutcomeRetryable,
			Failure:    FailureRateLimited,
			StatusCode: status,
			Payload:    body,
			Message:    errorMessage(body),
			RetryAfter: retryAfter(result.Headers, body, now),
			rawBody:    result.RawBody,
		}

	case status < 500:
		return Outcome{
			Kind:       OutcomeTerminal,
			Failure:    FailureClientError,
			StatusCode: status,
			Payload:    body,
			Message:    errorMessage(body),
			rawBody:    result.RawBody,
		}

	default:
		return Outcome{
			Kind:       OutcomeRetryable,
			Failure:    FailureServerOrNetwork,
			StatusCode: status,
			Payload:    body,
			Message:    errorMessage(body),
			rawBody:    result.RawBody,
		}
	}
}

// errorMessage picks message, then detail, then a generic fallback.
func errorMessage(body map[string]any) string {
	if msg := stringField(body, "message"); msg != "" {
		return msg
	}
	if msg := stringField(body, "detail"); msg != "" {
		return msg
	}
	return defaultErrorMessage
}

func stringField(body map[string]any, key string) string {
	s, _ := body[key].(string)
	return s
}

// retryAfter reads the Retry-After header (seconds or HTTP date), then the
// body's retry_after field, then falls back to DefaultRetryAfter. An explicit
// zero is honored.
func retryAfter(h nethttp.Header, body map[string]any, now time.Time) time.Duration {
	if v := strings.TrimSpace(h.Get("Retry-After")); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			if d, ok := secondsToDuration(secs); ok {
				return d
			}
		} else if t, err := nethttp.ParseTime(v); err == nil {
			if d := t.Sub(now); d > 0 {
				return d.Round(time.Second)
			}
			return 0
		}
	}

	switch v := body["retry_after"].(type) {
	case float64:
		if d, ok := secondsToDuration(v); ok {
			return d
		}
	case string:
		if secs, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			if d, ok := secondsToDuration(secs); ok {
				return d
			}
		}
	}
	return DefaultRetryAfter
}

func secondsToDuration(secs float64) (time.Duration, bool) {
	if secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) || secs > math.MaxInt64/float64(time.Second) {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}
