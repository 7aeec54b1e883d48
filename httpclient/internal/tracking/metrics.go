// Package tracking records OpenTelemetry metrics and spans for provider calls.
package tracking

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/gaborage/go-enrich/observability"
)

const (
	// InstrumentationName names both the meter and the tracer
	InstrumentationName = "go-enrich/httpclient"

	MetricAttempts     = "provider.client.attempts"
	MetricRetries      = "provider.client.retries"
	MetricCallDuration = "provider.client.call.duration"

	AttrMethod     = "http.request.method"
	AttrStatusCode = "http.response.status_code"
	AttrOutcome    = "provider.outcome"
	AttrFailure    = "provider.failure"
	AttrResult     = "provider.result"
	AttrPath       = "url.path"
	AttrAttempts   = "provider.attempts"
)

var callDurationBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

var (
	meter       metric.Meter
	meterOnce   sync.Once
	meterInitMu sync.Mutex

	attemptCounter    metric.Int64Counter
	retryCounter      metric.Int64Counter
	durationHistogram metric.Float64Histogram
)

func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize provider client metric %s: %v\n", metricName, err)
	}
}

func initMeter() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	if meter != nil {
		return
	}
	meter = otel.Meter(InstrumentationName)

	var err error
	attemptCounter, err = observability.CreateCounter(meter, MetricAttempts,
		"Physical HTTP attempts made against the provider",
		metric.WithUnit("{attempt}"),
	)
	logMetricError(MetricAttempts, err)

	retryCounter, err = observability.CreateCounter(meter, MetricRetries,
		"Retries scheduled after a retryable outcome",
		metric.WithUnit("{retry}"),
	)
	logMetricError(MetricRetries, err)

	durationHistogram, err = observability.CreateHistogram(meter, MetricCallDuration,
		"Duration of logical provider calls including retries",
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(callDurationBuckets...),
	)
	logMetricError(MetricCallDuration, err)
}

func ensureMeter() {
	meterOnce.Do(initMeter)
}

// RecordAttempt counts one transport attempt and its verdict.
func RecordAttempt(ctx context.Context, method string, status int, outcome string) {
	ensureMeter()
	if attemptCounter == nil {
		return
	}
	attemptCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrMethod, method),
		attribute.String(AttrStatusCode, statusLabel(status)),
		attribute.String(AttrOutcome, outcome),
	))
}

// RecordRetry counts one scheduled retry.
func RecordRetry(ctx context.Context, method, failure string) {
	ensureMeter()
	if retryCounter == nil {
		return
	}
	retryCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrMethod, method),
		attribute.String(AttrFailure, failure),
	))
}

// RecordCallDuration records the wall time of a logical call.
func RecordCallDuration(ctx context.Context, method, result string, d time.Duration) {
	ensureMeter()
	if durationHistogram == nil {
		return
	}
	durationHistogram.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String(AttrMethod, method),
		attribute.String(AttrResult, result),
	))
}

// StartCall opens a client span covering every attempt of one call.
func StartCall(ctx context.Context, method, path string) (context.Context, oteltrace.Span) {
	return otel.Tracer(InstrumentationName).Start(ctx, "provider "+method+" "+path,
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(
			attribute.String(AttrMethod, method),
			attribute.String(AttrPath, path),
		),
	)
}

// EndCall annotates and closes the span opened by StartCall.
func EndCall(span oteltrace.Span, result string, attempts, status int, err error) {
	span.SetAttributes(
		attribute.String(AttrResult, result),
		attribute.Int(AttrAttempts, attempts),
	)
	if status != 0 {
		span.SetAttributes(attribute.Int(AttrStatusCode, status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func statusLabel(status int) string {
	if status == 0 {
		return "none"
	}
	return strconv.Itoa(status)
}

// ResetForTesting drops the cached meter so a test provider can be installed.
func ResetForTesting() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	meter = nil
	attemptCounter = nil
	retryCounter = nil
	durationHistogram = nil
	meterOnce = sync.Once{}
}
