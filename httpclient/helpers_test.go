package httpclient

import (
	"context"
	"maps"
	nethttp "net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-enrich/logger"
)

const testBaseURL = "https://api.example.test/api/v2"

// fakeLogEvent implements logger.LogEvent for testing
type fakeLogEvent struct {
	logger *fakeLogger
	level  string
	fields map[string]any
}

func (e *fakeLogEvent) Msg(msg string) {
	e.logger.mu.Lock()
	defer e.logger.mu.Unlock()
	e.logger.events = append(e.logger.events, loggedEvent{level: e.level, fields: maps.Clone(e.fields), message: msg})
}

func (e *fakeLogEvent) Msgf(format string, _ ...any) { e.Msg(format) }

func (e *fakeLogEvent) Err(err error) logger.LogEvent {
	e.fields["error"] = err
	return e
}

func (e *fakeLogEvent) Str(key, value string) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Int(key string, value int) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Int64(key string, value int64) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Uint64(key string, value uint64) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Bool(key string, value bool) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Dur(key string, d time.Duration) logger.LogEvent {
	e.fields[key] = d
	return e
}

func (e *fakeLogEvent) Interface(key string, i any) logger.LogEvent {
	e.fields[key] = i
	return e
}

func (e *fakeLogEvent) Bytes(key string, val []byte) logger.LogEvent {
	e.fields[key] = val
	return e
}

// fakeLogger implements logger.Logger for testing
type fakeLogger struct {
	mu     sync.Mutex
	events []loggedEvent
}

type loggedEvent struct {
	level   string
	fields  map[string]any
	message string
}

func (l *fakeLogger) event(level string) logger.LogEvent {
	return &fakeLogEvent{logger: l, level: level, fields: make(map[string]any)}
}

func (l *fakeLogger) Info() logger.LogEvent                  { return l.event("info") }
func (l *fakeLogger) Error() logger.LogEvent                 { return l.event("error") }
func (l *fakeLogger) Debug() logger.LogEvent                 { return l.event("debug") }
func (l *fakeLogger) Warn() logger.LogEvent                  { return l.event("warn") }
func (l *fakeLogger) Fatal() logger.LogEvent                 { return l.event("fatal") }
func (l *fakeLogger) WithContext(_ any) logger.Logger        { return l }
func (l *fakeLogger) WithFields(_ map[string]any) logger.Logger { return l }

func (l *fakeLogger) messages(msg string) []loggedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []loggedEvent
	for _, e := range l.events {
		if e.message == msg {
			out = append(out, e)
		}
	}
	return out
}

type step struct {
	result *TransportResult
	err    error
}

// scriptedTransport replays steps in order and repeats the last one.
type scriptedTransport struct {
	mu    sync.Mutex
	steps []step
	calls []*TransportRequest
}

func newScript(steps ...step) *scriptedTransport {
	return &scriptedTransport{steps: steps}
}

func (s *scriptedTransport) Execute(_ context.Context, req *TransportRequest) (*TransportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	i := len(s.calls) - 1
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	return s.steps[i].result, s.steps[i].err
}

func (s *scriptedTransport) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func respond(status int, body string, headerPairs ...string) step {
	parsed, err := decodeBody([]byte(body))
	if err != nil {
		panic(err)
	}
	h := nethttp.Header{}
	for i := 0; i+1 < len(headerPairs); i += 2 {
		h.Set(headerPairs[i], headerPairs[i+1])
	}
	return step{result: &TransportResult{StatusCode: status, RawBody: []byte(body), ParsedBody: parsed, Headers: h}}
}

func fail(err error) step {
	return step{err: err}
}

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func newScriptedClient(t *testing.T, transport Transport, maxRetries int, delay time.Duration) (*client, *recordingSleeper, *fakeLogger) {
	t.Helper()
	log := &fakeLogger{}
	c, err := newClient(Config{BaseURL: testBaseURL, MaxRetries: maxRetries, RetryDelay: &delay}, log, transport)
	require.NoError(t, err)
	s := &recordingSleeper{}
	c.sleep = s.sleep
	return c, s, log
}
