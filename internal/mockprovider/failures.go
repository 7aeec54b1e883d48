package mockprovider

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
)

// Failure is a scripted response served instead of the real handler. Each
// queued failure answers exactly one provider request.
type Failure struct {
	Status int `json:"status"`
	// RetryAfter is the throttle wait in seconds. A 429 carries it in the body
	// and, when positive, in the Retry-After header.
	RetryAfter int `json:"retry_after,omitempty"`
	// Body overrides the default JSON error document.
	Body string `json:"body,omitempty"`
	// Malformed answers 200 with a body that is not valid JSON.
	Malformed bool `json:"malformed,omitempty"`
}

// RateLimited is a 429 with a Retry-After header.
func RateLimited(retryAfterSeconds int) Failure {
	return Failure{Status: http.StatusTooManyRequests, RetryAfter: retryAfterSeconds}
}

// ServerError is a 500 with a detail document.
func ServerError() Failure {
	return Failure{Status: http.StatusInternalServerError}
}

// MalformedJSON is a 200 whose body cannot be decoded.
func MalformedJSON() Failure {
	return Failure{Malformed: true}
}

const malformedBody = `{"id": 1001, "name": "Jane Doe"`

// write sends the scripted response.
func (f Failure) write(c echo.Context) error {
	if f.Malformed {
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, []byte(malformedBody))
	}
	status := f.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if f.RetryAfter > 0 {
		c.Response().Header().Set("Retry-After", strconv.Itoa(f.RetryAfter))
	}
	if f.Body != "" {
		return c.Blob(status, echo.MIMEApplicationJSON, []byte(f.Body))
	}
	doc := errorDocument(status)
	if status == http.StatusTooManyRequests {
		doc["retry_after"] = f.RetryAfter
	}
	return c.JSON(status, doc)
}

func errorDocument(status int) map[string]any {
	switch status {
	case http.StatusTooManyRequests:
		return map[string]any{"detail": "Request was throttled."}
	case http.StatusUnauthorized:
		return map[string]any{"detail": "Invalid API key."}
	case http.StatusNotFound:
		return map[string]any{"detail": notFoundMessage}
	default:
		return map[string]any{"detail": http.StatusText(status)}
	}
}

// failureQueue is a FIFO of scripted failures shared by all requests.
type failureQueue struct {
	mu    sync.Mutex
	queue []Failure
}

func (q *failureQueue) push(fs ...Failure) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queue = append(q.queue, fs...)
}

func (q *failureQueue) pop() (Failure, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queue) == 0 {
		return Failure{}, false
	}
	f := q.queue[0]
	q.queue = q.queue[1:]
	return f, true
}

func (q *failureQueue) reset() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.queue)
	q.queue = nil
	return n
}

func (q *failureQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}
