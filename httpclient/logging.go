package httpclient

import (
	"errors"
	"strings"
	"time"
)

var redactedHeaders = map[string]struct{}{
	"api-key":       {},
	"x-api-key":     {},
	"authorization": {},
	"cookie":        {},
}

const redactedValue = "***"

// logRequest logs an outgoing attempt
func (c *client) logRequest(req *TransportRequest, traceID string, attempt int) {
	c.logger.Info().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL).
		Str("request_id", traceID).
		Int("attempt", attempt).
		Int("header_count", len(req.Headers)).
		Msg("REST client request")

	if !c.config.LogPayloads {
		return
	}
	event := c.logger.Debug().
		Str("direction", "outbound").
		Str("request_id", traceID).
		Interface("headers", redactHeaders(req.Headers))
	if req.Body != nil {
		event = event.Interface("body", req.Body)
	}
	event.Msg("REST client request payload")
}

// logResponse logs the verdict of one attempt
func (c *client) logResponse(req *TransportRequest, res *TransportResult, outcome *Outcome, traceID string, attempt int, elapsed time.Duration) {
	event := c.logger.Info().
		Str("direction", "inbound").
		Str("method", req.Method).
		Str("url", req.URL).
		Str("request_id", traceID).
		Int("attempt", attempt).
		Int("status", outcome.StatusCode).
		Str("outcome", outcome.Kind.String()).
		Dur("elapsed", elapsed)
	if outcome.Failure != FailureNone {
		event = event.Str("failure", string(outcome.Failure))
	}
	if outcome.Kind == OutcomeNotFound {
		event = event.Bool("person_not_found", outcome.PersonNotFound())
	}
	if outcome.Cause != nil {
		event = event.Err(outcome.Cause)
	}
	event.Msg("REST client response")

	if !c.config.LogPayloads || res == nil || len(res.RawBody) == 0 {
		return
	}
	c.logger.Debug().
		Str("direction", "inbound").
		Str("request_id", traceID).
		Int("body_size", len(res.RawBody)).
		Str("body", truncate(res.RawBody, c.config.MaxPayloadLogBytes)).
		Msg("REST client response payload")
}

// logRetry logs a scheduled retry
func (c *client) logRetry(req *TransportRequest, outcome *Outcome, delay time.Duration, traceID string, state *retryState) {
	c.logger.Warn().
		Str("method", req.Method).
		Str("url", req.URL).
		Str("request_id", traceID).
		Str("failure", string(outcome.Failure)).
		Int("status", outcome.StatusCode).
		Int("attempt", state.attempt).
		Int("max_attempts", state.maxAttempts).
		Dur("delay", delay).
		Msg("REST client retry")
}

// logFailure logs a call that ended in an error
func (c *client) logFailure(req *TransportRequest, err error, traceID string, state *retryState, elapsed time.Duration, callCount int64) {
	event := c.logger.Error().
		Err(err).
		Str("method", req.Method).
		Str("url", req.URL).
		Str("request_id", traceID).
		Int("attempts", state.attempt).
		Dur("elapsed", elapsed).
		Int64("call_count", callCount)
	var ce ClientError
	if errors.As(err, &ce) {
		event = event.Str("error_type", string(ce.Type()))
	}
	if status := StatusCodeOf(err); status != 0 {
		event = event.Int("status", status)
	}
	event.Msg("REST client failure")
}

func redactHeaders(headers []Header) map[string]string {
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		if _, ok := redactedHeaders[strings.ToLower(h.Key)]; ok {
			out[h.Key] = redactedValue
			continue
		}
		out[h.Key] = h.Value
	}
	return out
}

func truncate(b []byte, limit int) string {
	if limit <= 0 || len(b) <= limit {
		return string(b)
	}
	return string(b[:limit]) + "...(truncated)"
}
