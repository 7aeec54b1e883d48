// Package httpclient is a resilient JSON client for the people-data provider
// API. A call flows through four steps: the request is assembled, one attempt
// is sent, the attempt is classified, and the retry loop decides whether to
// return, wait and retry, or fail.
//
// Classification
//   - Status below 400: success. An empty body yields an empty Result.
//   - Any 404: the not-found sentinel {"not_found": true, "message": ...}.
//     No error is returned.
//   - 429: retryable. The wait comes from Retry-After, then the body's
//     retry_after field, then DefaultRetryAfter.
//   - Other 4xx: terminal ClientRequestError, sent exactly once.
//   - 5xx and transport failures: retryable with exponential backoff.
//
// Retries
//   - MaxRetries bounds the total number of attempts, including the first.
//   - Server and network failures wait RetryDelay * 2^(attempt-1). No jitter
//     is applied.
//   - Exhausted 429s fail with RateLimitError, exhausted 5xx and transport
//     failures with NetworkFailure wrapping the last cause.
//   - The context is checked before every attempt and while waiting.
//
// Notes
//   - Headers are sent in configuration order.
//   - Request bodies are re-encoded on each attempt.
//   - Interceptor errors are not retried and are surfaced immediately.
package httpclient
