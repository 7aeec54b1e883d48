package logger

import (
	"context"
	"sync/atomic"
	"time"
)

type contextKey string

const (
	// providerCounterKey tracks physical provider HTTP attempts per unit of work
	providerCounterKey contextKey = "provider_call_counter"
	// providerElapsedKey tracks total time spent waiting on the provider
	providerElapsedKey contextKey = "provider_elapsed_nanos"
)

// WithCallCounter returns a context carrying a provider call counter and
// elapsed time tracker. Calls made with the returned context are accounted.
func WithCallCounter(ctx context.Context) context.Context {
	counter := int64(0)
	elapsed := int64(0)
	ctx = context.WithValue(ctx, providerCounterKey, &counter)
	ctx = context.WithValue(ctx, providerElapsedKey, &elapsed)
	return ctx
}

// IncrementCallCounter increments the provider call counter in ctx.
func IncrementCallCounter(ctx context.Context) {
	if counter, ok := ctx.Value(providerCounterKey).(*int64); ok && counter != nil {
		atomic.AddInt64(counter, 1)
	}
}

// GetCallCounter returns the provider call count tracked in ctx.
func GetCallCounter(ctx context.Context) int64 {
	if counter, ok := ctx.Value(providerCounterKey).(*int64); ok && counter != nil {
		return atomic.LoadInt64(counter)
	}
	return 0
}

// AddCallElapsed adds d to the provider elapsed time tracked in ctx.
func AddCallElapsed(ctx context.Context, d time.Duration) {
	if elapsed, ok := ctx.Value(providerElapsedKey).(*int64); ok && elapsed != nil {
		atomic.AddInt64(elapsed, int64(d))
	}
}

// GetCallElapsed returns the provider elapsed time tracked in ctx.
func GetCallElapsed(ctx context.Context) time.Duration {
	if elapsed, ok := ctx.Value(providerElapsedKey).(*int64); ok && elapsed != nil {
		return time.Duration(atomic.LoadInt64(elapsed))
	}
	return 0
}
