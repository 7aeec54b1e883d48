package mockprovider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-enrich/httpclient"
	"github.com/gaborage/go-enrich/people"
)

const testAPIKey = "test-key"

func newTestServer() *Server {
	return New(Config{APIKey: testAPIKey}, nil, nil)
}

func serve(t *testing.T, s *Server, method, target, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, http.NoBody)
	}
	if authed {
		req.Header.Set(APIKeyHeader, testAPIKey)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func lookupPath(params url.Values) string {
	return DefaultBasePath + "/person/lookup?" + params.Encode()
}

func TestHealth(t *testing.T) {
	rec := serve(t, newTestServer(), http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestAPIKeyRequired(t *testing.T) {
	s := newTestServer()

	rec := serve(t, s, http.MethodGet, lookupPath(url.Values{"id": {"1001"}}), "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid API key.", decode(t, rec)["detail"])

	open := New(Config{}, nil, nil)
	rec = serve(t, open, http.MethodGet, lookupPath(url.Values{"id": {"1001"}}), "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLookupIdentifiers(t *testing.T) {
	tests := []struct {
		name   string
		params url.Values
		wantID float64
	}{
		{name: "id", params: url.Values{"id": {"1003"}}, wantID: 1003},
		{name: "email_case_insensitive", params: url.Values{"email": {"JANE@acme-analytics.io"}}, wantID: 1001},
		{name: "secondary_email", params: url.Values{"email": {"jane.doe@example.com"}}, wantID: 1001},
		{name: "linkedin_normalized", params: url.Values{"linkedin_url": {"linkedin.com/in/johnroe/"}}, wantID: 1002},
		{name: "name_and_employer", params: url.Values{"name": {"maria jansen"}, "current_employer": {"Northwind Logistics"}}, wantID: 1003},
	}

	s := newTestServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, s, http.MethodGet, lookupPath(tt.params), "", true)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantID, decode(t, rec)["id"])
		})
	}
}

func TestLookupNotFound(t *testing.T) {
	rec := serve(t, newTestServer(), http.MethodGet, lookupPath(url.Values{"email": {"nobody@example.com"}}), "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, notFoundMessage, decode(t, rec)["detail"])
}

func TestLookupBadRequests(t *testing.T) {
	s := newTestServer()

	rec := serve(t, s, http.MethodGet, lookupPath(url.Values{"name": {"Jane Doe"}}), "", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, missingIdentifiers, decode(t, rec)["detail"])

	rec = serve(t, s, http.MethodGet, lookupPath(url.Values{"id": {"abc"}}), "", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["detail"], "id must be a positive integer")
}

func TestEnrichIncludesCompany(t *testing.T) {
	target := DefaultBasePath + "/profile-company/lookup?email=m.jansen%40northwind.example"
	rec := serve(t, newTestServer(), http.MethodGet, target, "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	doc := decode(t, rec)
	assert.Equal(t, "Maria Jansen", doc["name"])
	company, ok := doc["company"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "northwind.example", company["domain"])
	assert.Equal(t, float64(2300), company["employee_count"])
}

func TestSearchPagination(t *testing.T) {
	s := newTestServer()
	body := `{"query": {"current_employer": ["acme"]}, "page": 1, "page_size": 1, "order_by": "relevance"}`

	rec := serve(t, s, http.MethodPost, DefaultBasePath+"/person/search", body, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var page people.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Total())
	assert.Equal(t, 1, page.CurrentPage())
	require.Equal(t, 1, page.Count())
	assert.Equal(t, "Jane Doe", page.Profiles[0].Name)
	next, ok := page.NextPage()
	require.True(t, ok)
	assert.Equal(t, 2, next)

	body = `{"query": {"current_employer": ["acme"]}, "page": 2, "page_size": 1}`
	rec = serve(t, s, http.MethodPost, DefaultBasePath+"/person/search", body, true)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, "John Roe", page.Profiles[0].Name)
	assert.False(t, page.HasNextPage())
}

func TestSearchFilters(t *testing.T) {
	s := newTestServer()

	rec := serve(t, s, http.MethodPost, DefaultBasePath+"/person/search",
		`{"query": {"location": ["rotterdam"], "current_title": ["engineer", "cto"]}}`, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var page people.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 1, page.Count())
	assert.Equal(t, "Sam Patel", page.Profiles[0].Name)

	rec = serve(t, s, http.MethodPost, DefaultBasePath+"/person/search",
		`{"query": {"name": ["nobody"]}, "page": 3}`, true)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.True(t, page.IsEmpty())
	assert.Zero(t, page.Total())
}

func TestPaginateBeyondLastPage(t *testing.T) {
	resp := paginate(nil, 5, 10)
	assert.NotNil(t, resp.Profiles)
	assert.Equal(t, 5, resp.Pagination.Start)
	assert.Nil(t, resp.Pagination.Next)
}

func TestScriptedFailures(t *testing.T) {
	s := newTestServer()
	s.Enqueue(RateLimited(3), ServerError(), MalformedJSON())
	target := lookupPath(url.Values{"id": {"1001"}})

	rec := serve(t, s, http.MethodGet, target, "", true)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("Retry-After"))
	assert.Equal(t, float64(3), decode(t, rec)["retry_after"])

	rec = serve(t, s, http.MethodGet, target, "", true)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = serve(t, s, http.MethodGet, target, "", true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, json.Valid(rec.Body.Bytes()))

	rec = serve(t, s, http.MethodGet, target, "", true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1001), decode(t, rec)["id"])

	assert.Equal(t, int64(4), s.Requests())
}

func TestAdminEndpoints(t *testing.T) {
	s := newTestServer()

	rec := serve(t, s, http.MethodPost, adminPath+"/failures", `[{"status": 503}, {"malformed": true}]`, false)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["pending"])

	rec = serve(t, s, http.MethodGet, lookupPath(url.Values{"id": {"1001"}}), "", true)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(t, s, http.MethodGet, adminPath+"/stats", "", false)
	stats := decode(t, rec)
	assert.Equal(t, float64(1), stats["requests"])
	assert.Equal(t, float64(1), stats["pending_failures"])

	rec = serve(t, s, http.MethodDelete, adminPath+"/failures", "", false)
	assert.Equal(t, float64(1), decode(t, rec)["dropped"])

	rec = serve(t, s, http.MethodPost, adminPath+"/failures", `{"status": 500}`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRouteUsesDetailDocument(t *testing.T) {
	rec := serve(t, newTestServer(), http.MethodGet, DefaultBasePath+"/company/lookup", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode(t, rec), "detail")
}

func TestLatencyHonorsCancellation(t *testing.T) {
	s := New(Config{Latency: time.Minute}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodGet, lookupPath(url.Values{"id": {"1001"}}), http.NoBody).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		s.Handler().ServeHTTP(rec, req)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("latency simulation ignored request cancellation")
	}
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func newPeopleClient(t *testing.T, baseURL string, maxAttempts int) *people.Client {
	t.Helper()
	client, err := people.NewClient(people.Config{
		APIKey:     testAPIKey,
		BaseURL:    baseURL + DefaultBasePath,
		Timeout:    5 * time.Second,
		MaxRetries: maxAttempts,
		RetryDelay: httpclient.DurationPtr(time.Millisecond),
	}, nil)
	require.NoError(t, err)
	return client
}

func TestClientRetriesThroughScriptedFailures(t *testing.T) {
	s := newTestServer()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	s.Enqueue(RateLimited(0), ServerError(), MalformedJSON())
	client := newPeopleClient(t, srv.URL, 4)

	resp, err := client.Enrich(context.Background(), people.LookupQuery{Email: "jane@acme-analytics.io"})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", resp.Person.Name)
	assert.Equal(t, "acme-analytics.io", resp.Company.Domain)
	assert.Equal(t, "jane@acme-analytics.io", resp.Person.PrimaryEmail())
	assert.Equal(t, int64(4), s.Requests())
}

func TestClientExhaustsAttempts(t *testing.T) {
	s := newTestServer()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	s.Enqueue(ServerError(), ServerError())
	client := newPeopleClient(t, srv.URL, 2)

	_, err := client.Lookup(context.Background(), people.LookupQuery{ID: 1001})
	require.Error(t, err)
	assert.True(t, httpclient.IsErrorType(err, httpclient.NetworkFailure))
	assert.Equal(t, 2, httpclient.AttemptsOf(err))
	assert.Equal(t, int64(2), s.Requests())
}

func TestClientNotFoundAndSearch(t *testing.T) {
	s := newTestServer()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	client := newPeopleClient(t, srv.URL, 1)

	resp, err := client.Enrich(context.Background(), people.LookupQuery{Email: "ghost@example.com"})
	require.NoError(t, err)
	assert.True(t, resp.NotFound())
	assert.Equal(t, notFoundMessage, resp.Person.Message)

	page, err := client.Search(context.Background(), people.SearchQuery{Location: []string{"Austin"}})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total())
	assert.False(t, page.HasNextPage())
}

func TestClientRejectedKey(t *testing.T) {
	srv := httptest.NewServer(newTestServer().Handler())
	defer srv.Close()

	client, err := people.NewClient(people.Config{APIKey: "wrong", BaseURL: srv.URL + DefaultBasePath, MaxRetries: 1}, nil)
	require.NoError(t, err)

	_, err = client.Lookup(context.Background(), people.LookupQuery{ID: 1001})
	require.Error(t, err)
	assert.True(t, httpclient.IsErrorType(err, httpclient.ClientRequestError))
	assert.True(t, httpclient.IsHTTPStatusError(err, http.StatusUnauthorized))
}
