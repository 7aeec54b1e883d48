package httpclient

import (
	"errors"
	"fmt"
	"time"
)

// ClientError is implemented by every error returned from this package.
type ClientError interface {
	error
	Type() ErrorType
}

// ErrorType defines the category of client error
type ErrorType string

const (
	// ConfigurationError is raised once, when a client is constructed.
	ConfigurationError ErrorType = "configuration"
	// TransportError describes a single failed attempt (connect, timeout, bad JSON).
	TransportError ErrorType = "transport"
	// ClientRequestError is a 4xx other than 404 and 429. Never retried.
	ClientRequestError ErrorType = "client_request"
	// RateLimitError is a 429 that persisted through every attempt.
	RateLimitError ErrorType = "rate_limit"
	// NetworkFailure is a 5xx or transport failure that persisted through every attempt.
	NetworkFailure ErrorType = "network"
	// CancelledError is returned when the caller's context ends the call.
	CancelledError ErrorType = "cancelled"
	// ValidationError rejects a malformed Call before any attempt.
	ValidationError ErrorType = "validation"
	// InterceptorError is a failing request or response interceptor. Never retried.
	InterceptorError ErrorType = "interceptor"
)

type configurationError struct {
	message string
	field   string
}

func (e *configurationError) Error() string {
	if e.field != "" {
		return fmt.Sprintf("configuration error: %s (field: %s)", e.message, e.field)
	}
	return fmt.Sprintf("configuration error: %s", e.message)
}

func (e *configurationError) Type() ErrorType {
	return ConfigurationError
}

func (e *configurationError) Field() string {
	return e.field
}

type transportError struct {
	message string
	wrapped error
	timeout bool
}

func (e *transportError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("transport error: %s: %v", e.message, e.wrapped)
	}
	return fmt.Sprintf("transport error: %s", e.message)
}

func (e *transportError) Type() ErrorType {
	return TransportError
}

func (e *transportError) Unwrap() error {
	return e.wrapped
}

// Timeout reports whether the attempt ran out of time.
func (e *transportError) Timeout() bool {
	return e.timeout
}

// callError holds what every call-level failure carries: the attempt count
// and the last classified outcome.
type callError struct {
	attempts int
	outcome  *Outcome
}

func (e *callError) Attempts() int {
	return e.attempts
}

func (e *callError) LastOutcome() *Outcome {
	return e.outcome
}

type clientRequestError struct {
	callError
	message    string
	statusCode int
	payload    map[string]any
	body       []byte
}

func (e *clientRequestError) Error() string {
	return fmt.Sprintf("client request error: %s (status: %d)", e.message, e.statusCode)
}

func (e *clientRequestError) Type() ErrorType {
	return ClientRequestError
}

func (e *clientRequestError) StatusCode() int {
	return e.statusCode
}

func (e *clientRequestError) Payload() map[string]any {
	return e.payload
}

func (e *clientRequestError) Body() []byte {
	return e.body
}

type rateLimitError struct {
	callError
	retryAfter time.Duration
	message    string
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded after %d attempts: %s (retry after: %v)", e.attempts, e.message, e.retryAfter)
}

func (e *rateLimitError) Type() ErrorType {
	return RateLimitError
}

func (e *rateLimitError) StatusCode() int {
	return 429
}

func (e *rateLimitError) RetryAfter() time.Duration {
	return e.retryAfter
}

type networkFailure struct {
	callError
	wrapped error
}

func (e *networkFailure) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("network failure after %d attempts: %v", e.attempts, e.wrapped)
	}
	return fmt.Sprintf("network failure after %d attempts", e.attempts)
}

func (e *networkFailure) Type() ErrorType {
	return NetworkFailure
}

func (e *networkFailure) Unwrap() error {
	return e.wrapped
}

// StatusCode is the last server status, or 0 when the last attempt never got one.
func (e *networkFailure) StatusCode() int {
	if e.outcome == nil {
		return 0
	}
	return e.outcome.StatusCode
}

type cancelledError struct {
	callError
	wrapped error
}

func (e *cancelledError) Error() string {
	return fmt.Sprintf("request cancelled after %d attempts: %v", e.attempts, e.wrapped)
}

func (e *cancelledError) Type() ErrorType {
	return CancelledError
}

func (e *cancelledError) Unwrap() error {
	return e.wrapped
}

type validationError struct {
	message string
	field   string
}

func (e *validationError) Error() string {
	if e.field != "" {
		return fmt.Sprintf("validation error: %s (field: %s)", e.message, e.field)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

func (e *validationError) Type() ErrorType {
	return ValidationError
}

type interceptorError struct {
	callError
	message string
	wrapped error
	stage   string
}

func (e *interceptorError) Error() string {
	return fmt.Sprintf("interceptor error: %s (stage: %s): %v", e.message, e.stage, e.wrapped)
}

func (e *interceptorError) Type() ErrorType {
	return InterceptorError
}

func (e *interceptorError) Unwrap() error {
	return e.wrapped
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(message, field string) ClientError {
	return &configurationError{message: message, field: field}
}

// NewTransportError creates a new transport error
func NewTransportError(message string, wrapped error, timeout bool) ClientError {
	return &transportError{message: message, wrapped: wrapped, timeout: timeout}
}

// NewValidationError creates a new validation error
func NewValidationError(message, field string) ClientError {
	return &validationError{message: message, field: field}
}

// NewInterceptorError creates a new interceptor error
func NewInterceptorError(message, stage string, wrapped error) ClientError {
	return &interceptorError{message: message, stage: stage, wrapped: wrapped}
}

func newClientRequestError(o *Outcome, attempts int, body []byte) ClientError {
	return &clientRequestError{
		callError:  callError{attempts: attempts, outcome: o},
		message:    o.Message,
		statusCode: o.StatusCode,
		payload:    o.Payload,
		body:       body,
	}
}

func newRateLimitError(o *Outcome, attempts int) ClientError {
	return &rateLimitError{
		callError:  callError{attempts: attempts, outcome: o},
		retryAfter: o.RetryAfter,
		message:    o.Message,
	}
}

func newNetworkFailure(o *Outcome, attempts int) ClientError {
	wrapped := o.Cause
	if wrapped == nil {
		wrapped = fmt.Errorf("server responded with status %d", o.StatusCode)
	}
	return &networkFailure{callError: callError{attempts: attempts, outcome: o}, wrapped: wrapped}
}

func newCancelledError(cause error, attempts int, last *Outcome) ClientError {
	return &cancelledError{callError: callError{attempts: attempts, outcome: last}, wrapped: cause}
}

func withCallContext(err error, o *Outcome, attempts int) error {
	var ie *interceptorError
	if errors.As(err, &ie) {
		ie.attempts = attempts
		ie.outcome = o
	}
	return err
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}

// IsHTTPStatusError reports whether err carries the given provider status code.
func IsHTTPStatusError(err error, statusCode int) bool {
	return StatusCodeOf(err) == statusCode && statusCode != 0
}

// IsTimeout reports whether err is, or wraps, a timed out attempt.
func IsTimeout(err error) bool {
	var te *transportError
	return errors.As(err, &te) && te.timeout
}

// StatusCodeOf returns the provider status code carried by err, or 0.
func StatusCodeOf(err error) int {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}

// RetryAfterOf returns the provider's requested wait carried by a RateLimitError.
func RetryAfterOf(err error) (time.Duration, bool) {
	var rl *rateLimitError
	if errors.As(err, &rl) {
		return rl.retryAfter, true
	}
	return 0, false
}

// PayloadOf returns the parsed error body of a ClientRequestError.
func PayloadOf(err error) map[string]any {
	var cr *clientRequestError
	if errors.As(err, &cr) {
		return cr.payload
	}
	return nil
}

// LastOutcomeOf returns the final classified outcome of a failed call.
func LastOutcomeOf(err error) (*Outcome, bool) {
	var ce interface{ LastOutcome() *Outcome }
	if errors.As(err, &ce) && ce.LastOutcome() != nil {
		return ce.LastOutcome(), true
	}
	return nil, false
}

// AttemptsOf returns how many transport attempts a failed call made.
func AttemptsOf(err error) int {
	var ce interface{ Attempts() int }
	if errors.As(err, &ce) {
		return ce.Attempts()
	}
	return 0
}
