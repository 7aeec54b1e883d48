package httpclient

import (
	"context"
	"time"
)

const (
	// DefaultMaxRetries is the default number of attempts per call, including the first
	DefaultMaxRetries = 3
	// DefaultRetryDelay is the base backoff for server and network failures
	DefaultRetryDelay = 1 * time.Second

	maxBackoffShift = 30
)

type decisionKind int

const (
	decisionReturn decisionKind = iota
	decisionRetry
	decisionFail
)

type decision struct {
	kind   decisionKind
	result Result
	delay  time.Duration
	err    error
}

// retryState belongs to exactly one call.
type retryState struct {
	attempt     int
	maxAttempts int
	baseDelay   time.Duration
	last        *Outcome
}

func newRetryState(maxAttempts int, baseDelay time.Duration) *retryState {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &retryState{maxAttempts: maxAttempts, baseDelay: baseDelay}
}

func (s *retryState) attemptsRemain() bool {
	return s.attempt < s.maxAttempts
}

// decide records o as the latest outcome of the current attempt and returns
// what the call does next.
func (s *retryState) decide(o Outcome) decision {
	s.last = &o

	switch o.Kind {
	case OutcomeSuccess:
		return decision{kind: decisionReturn, result: Result(o.Payload)}
	case OutcomeNotFound:
		return decision{kind: decisionReturn, result: NotFoundResult(o.Message)}
	case OutcomeTerminal:
		if o.Failure == FailureInterceptor {
			return decision{kind: decisionFail, err: withCallContext(o.Cause, s.last, s.attempt)}
		}
		return decision{kind: decisionFail, err: newClientRequestError(s.last, s.attempt, o.rawBody)}
	}

	if o.Failure == FailureRateLimited {
		if !s.attemptsRemain() {
			return decision{kind: decisionFail, err: newRateLimitError(s.last, s.attempt)}
		}
		return decision{kind: decisionRetry, delay: o.RetryAfter}
	}

	if !s.attemptsRemain() {
		return decision{kind: decisionFail, err: newNetworkFailure(s.last, s.attempt)}
	}
	return decision{kind: decisionRetry, delay: backoff(s.baseDelay, s.attempt)}
}

// backoff returns base * 2^(attempt-1).
func backoff(base time.Duration, attempt int) time.Duration {
	shift := attempt - 1
	if shift < 0 {
		shift = 0
	}
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	d := base * time.Duration(1<<shift)
	if d < 0 {
		return base
	}
	return d
}

// sleeper waits for d or until ctx is done.
type sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
