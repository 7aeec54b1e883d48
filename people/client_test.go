package people

import (
	"context"
	"encoding/json"
	"io"
	"net"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-enrich/httpclient"
)

type recordedCall struct {
	method string
	path   string
	query  httpclient.Query
	body   map[string]any
}

// stubHTTP is an httpclient.Client returning canned results.
type stubHTTP struct {
	calls  []recordedCall
	result httpclient.Result
	err    error
}

func (s *stubHTTP) record(method, path string, q httpclient.Query, body map[string]any) (httpclient.Result, error) {
	s.calls = append(s.calls, recordedCall{method: method, path: path, query: q, body: body})
	return s.result, s.err
}

func (s *stubHTTP) Get(_ context.Context, path string, q httpclient.Query) (httpclient.Result, error) {
	return s.record(nethttp.MethodGet, path, q, nil)
}

func (s *stubHTTP) Post(_ context.Context, path string, body map[string]any) (httpclient.Result, error) {
	return s.record(nethttp.MethodPost, path, nil, body)
}

func (s *stubHTTP) Put(_ context.Context, path string, body map[string]any) (httpclient.Result, error) {
	return s.record(nethttp.MethodPut, path, nil, body)
}

func (s *stubHTTP) Delete(_ context.Context, path string, q httpclient.Query) (httpclient.Result, error) {
	return s.record(nethttp.MethodDelete, path, q, nil)
}

func (s *stubHTTP) Do(_ context.Context, call *httpclient.Call) (httpclient.Result, error) {
	return s.record(call.Method, call.Path, call.Query, call.Body)
}

func resultFromJSON(t *testing.T, raw string) httpclient.Result {
	t.Helper()
	var r httpclient.Result
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	return r
}

func newIPv4TestServer(t *testing.T, handler nethttp.Handler) *httptest.Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	srv := httptest.NewUnstartedServer(handler)
	srv.Listener = ln
	srv.Start()
	t.Cleanup(srv.Close)
	return srv
}

func TestConfigRequiresAPIKey(t *testing.T) {
	for _, key := range []string{"", "   "} {
		_, err := NewClient(Config{APIKey: key}, nil)
		require.Error(t, err)
		assert.True(t, httpclient.IsErrorType(err, httpclient.ConfigurationError))
		assert.Contains(t, err.Error(), "API key cannot be empty")
	}
}

func TestHTTPConfigDefaultsAndHeaderOrder(t *testing.T) {
	cfg, err := Config{
		APIKey:  "secret",
		Headers: []httpclient.Header{{Key: "X-Tenant", Value: "acme"}},
	}.HTTPConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	require.Len(t, cfg.Headers, 4)
	assert.Equal(t, httpclient.Header{Key: "Api-Key", Value: "secret"}, cfg.Headers[0])
	assert.Equal(t, httpclient.Header{Key: "Content-Type", Value: "application/json"}, cfg.Headers[1])
	assert.Equal(t, httpclient.Header{Key: "User-Agent", Value: DefaultUserAgent}, cfg.Headers[2])
	assert.Equal(t, "X-Tenant", cfg.Headers[3].Key)
}

func TestLookupSendsQueryAndDecodesPerson(t *testing.T) {
	stub := &stubHTTP{result: resultFromJSON(t, `{
		"id": 42, "name": "Jane Doe", "current_title": "CTO", "current_employer": "Acme",
		"emails": ["jane@acme.io", {"email": "j@home.me", "type": "personal"}],
		"phones": [{"number": "+1 555 0100"}], "status": "complete"}`)}
	c := NewWithHTTPClient(stub, nil)

	p, err := c.Lookup(context.Background(), LookupQuery{Email: "jane@acme.io"})
	require.NoError(t, err)

	require.Len(t, stub.calls, 1)
	assert.Equal(t, nethttp.MethodGet, stub.calls[0].method)
	assert.Equal(t, "/person/lookup", stub.calls[0].path)
	assert.Equal(t, httpclient.Query{"email": "jane@acme.io"}, stub.calls[0].query)

	assert.Equal(t, int64(42), p.ID)
	assert.True(t, p.IsComplete())
	assert.False(t, p.IsSearching())
	assert.Equal(t, "jane@acme.io", p.PrimaryEmail())
	assert.Equal(t, "personal", p.Emails[1].Type)
	assert.Equal(t, "+1 555 0100", p.PrimaryPhone())
}

func TestLookupNotFoundIsNotAnError(t *testing.T) {
	stub := &stubHTTP{result: httpclient.NotFoundResult("")}
	p, err := NewWithHTTPClient(stub, nil).Lookup(context.Background(), LookupQuery{ID: 7})
	require.NoError(t, err)
	assert.True(t, p.NotFound)
	assert.Equal(t, "Person not found", p.Message)
}

func TestLookupRejectsInvalidQueryWithoutCalling(t *testing.T) {
	stub := &stubHTTP{}
	c := NewWithHTTPClient(stub, nil)

	_, err := c.Lookup(context.Background(), LookupQuery{})
	require.Error(t, err)
	assert.True(t, httpclient.IsErrorType(err, httpclient.ValidationError))

	_, err = c.Lookup(context.Background(), LookupQuery{Email: "not-an-email"})
	require.Error(t, err)
	assert.True(t, httpclient.IsErrorType(err, httpclient.ValidationError))
	assert.Empty(t, stub.calls)
}

func TestLookupWrapsClientErrors(t *testing.T) {
	stub := &stubHTTP{err: httpclient.NewTransportError("boom", nil, false)}
	_, err := NewWithHTTPClient(stub, nil).Lookup(context.Background(), LookupQuery{ID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "person lookup")
	assert.True(t, httpclient.IsErrorType(err, httpclient.TransportError))
}

func TestSearchDecodesPagination(t *testing.T) {
	stub := &stubHTTP{result: resultFromJSON(t, `{
		"profiles": [{"id": 1, "name": "A"}, {"id": 2, "name": "B"}],
		"pagination": {"total": 25, "start": 1, "next": 11}}`)}

	resp, err := NewWithHTTPClient(stub, nil).Search(context.Background(), SearchQuery{CurrentEmployer: []string{"Acme"}})
	require.NoError(t, err)

	assert.Equal(t, nethttp.MethodPost, stub.calls[0].method)
	assert.Equal(t, "/person/search", stub.calls[0].path)
	assert.Equal(t, 2, resp.Count())
	assert.Equal(t, 25, resp.Total())
	assert.Equal(t, 1, resp.CurrentPage())
	next, ok := resp.NextPage()
	assert.True(t, ok)
	assert.Equal(t, 11, next)
	assert.True(t, resp.HasNextPage())
}

func TestSearchEmptyPageDefaults(t *testing.T) {
	stub := &stubHTTP{result: httpclient.Result{}}
	resp, err := NewWithHTTPClient(stub, nil).Search(context.Background(), SearchQuery{})
	require.NoError(t, err)
	assert.True(t, resp.IsEmpty())
	assert.Equal(t, 1, resp.CurrentPage())
	assert.False(t, resp.HasNextPage())
}

func TestEnrichSplitsPersonAndCompany(t *testing.T) {
	stub := &stubHTTP{result: resultFromJSON(t, `{
		"id": 9, "name": "Jane", "current_title": "VP Sales", "current_employer": "Acme",
		"current_employer_id": 77, "current_employer_domain": "acme.io",
		"current_employer_website": "https://acme.io", "current_employer_linkedin_url": "https://linkedin.com/company/acme",
		"current_employer_industry": "Software", "current_employer_size": 250}`)}

	resp, err := NewWithHTTPClient(stub, nil).Enrich(context.Background(), LookupQuery{Name: "Jane", CurrentEmployer: "Acme"})
	require.NoError(t, err)

	assert.Equal(t, "/profile-company/lookup", stub.calls[0].path)
	assert.False(t, resp.NotFound())
	assert.Equal(t, "VP Sales", resp.Person.CurrentTitle)
	assert.Equal(t, Company{
		ID:            77,
		Name:          "Acme",
		Domain:        "acme.io",
		Website:       "https://acme.io",
		LinkedInURL:   "https://linkedin.com/company/acme",
		Industry:      "Software",
		EmployeeCount: 250,
	}, resp.Company)
}

func TestEnrichNotFound(t *testing.T) {
	stub := &stubHTTP{result: httpclient.NotFoundResult("Could not find the person")}
	resp, err := NewWithHTTPClient(stub, nil).Enrich(context.Background(), LookupQuery{Email: "x@y.io"})
	require.NoError(t, err)
	assert.True(t, resp.NotFound())
	assert.Equal(t, StatusNotFound, resp.Person.Status)
	assert.Equal(t, "Could not find the person", resp.Person.Message)
	assert.True(t, resp.Company.IsZero())
}

func TestClientOverHTTP(t *testing.T) {
	var gotKey, gotAgent, gotBody string
	srv := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		gotKey = r.Header.Get("Api-Key")
		gotAgent = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/person/lookup":
			if r.URL.Query().Get("email") == "missing@acme.io" {
				w.WriteHeader(nethttp.StatusNotFound)
				_, _ = io.WriteString(w, `{"detail":"Could not find the person"}`)
				return
			}
			_, _ = io.WriteString(w, `{"id": 5, "name": "Jane", "status": "searching"}`)
		case "/person/search":
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
			_, _ = io.WriteString(w, `{"profiles": [], "pagination": {"total": 0}}`)
		default:
			w.WriteHeader(nethttp.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"bad key"}`)
		}
	}))

	c, err := NewClient(Config{
		APIKey:     "k-123",
		BaseURL:    srv.URL,
		UserAgent:  "enrich-test/0.1",
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	p, err := c.Lookup(ctx, LookupQuery{Email: "jane@acme.io"})
	require.NoError(t, err)
	assert.True(t, p.IsSearching())
	assert.Equal(t, "k-123", gotKey)
	assert.Equal(t, "enrich-test/0.1", gotAgent)

	p, err = c.Lookup(ctx, LookupQuery{Email: "missing@acme.io"})
	require.NoError(t, err)
	assert.True(t, p.NotFound)

	_, err = c.Search(ctx, SearchQuery{Name: []string{"Jane"}, PageSize: 5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"query":{"name":["Jane"]},"page":1,"page_size":5,"order_by":"relevance"}`, gotBody)

	_, err = c.Enrich(ctx, LookupQuery{ID: 5})
	require.Error(t, err)
	assert.True(t, httpclient.IsErrorType(err, httpclient.ClientRequestError))
	assert.Equal(t, nethttp.StatusUnauthorized, httpclient.StatusCodeOf(err))
}

func TestEnrichPrefersNestedCompany(t *testing.T) {
	stub := &stubHTTP{result: resultFromJSON(t, `{
		"id": 3, "name": "Max", "current_employer": "Flat Co",
		"company": {"id": 8, "name": "Nested GmbH", "domain": "nested.de", "industry": "Logistics", "employee_count": 40, "location": "Hamburg"}}`)}

	resp, err := NewWithHTTPClient(stub, nil).Enrich(context.Background(), LookupQuery{ID: 3})
	require.NoError(t, err)
	assert.Equal(t, "Nested GmbH", resp.Company.Name)
	assert.Equal(t, "Hamburg", resp.Company.Location)
	assert.Equal(t, 40, resp.Company.EmployeeCount)
}
