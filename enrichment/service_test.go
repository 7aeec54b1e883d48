package enrichment_test

import (
	"context"
	"errors"
	"io"
	"net"
	nethttp "net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-enrich/enrichment"
	"github.com/gaborage/go-enrich/httpclient"
	"github.com/gaborage/go-enrich/people"
	"github.com/gaborage/go-enrich/testing/fixtures"
	"github.com/gaborage/go-enrich/testing/mocks"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newService(store enrichment.Store, enricher enrichment.Enricher, opts ...enrichment.Option) *enrichment.Service {
	return enrichment.NewService(store, enricher, append([]enrichment.Option{enrichment.WithClock(fixedClock)}, opts...)...)
}

func TestEnrichContactFillsEmptyFields(t *testing.T) {
	store := enrichment.NewMemoryStore(fixtures.ContactJane(1))
	enricher := fixtures.NewWorkingEnricher(fixtures.EnrichJane())
	svc := newService(store, enricher)

	res, err := svc.EnrichContact(context.Background(), 1, enrichment.StrategyAuto)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.Skipped)
	require.NotNil(t, res.Data)

	enricher.AssertCalled(t, "Enrich", mock.Anything, people.LookupQuery{Email: "jane@acme-analytics.io"})

	c, err := store.GetContact(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "jane@acme-analytics.io", c.Email)
	assert.Equal(t, "+1 512 555 0142", c.Phone)
	assert.Equal(t, "Head of Growth", c.Position)
	assert.Equal(t, "https://www.linkedin.com/in/janedoe", c.LinkedInProfile)
	assert.Equal(t, "Austin, Texas, United States", c.Address)
	assert.Equal(t, "Acme Analytics", c.Company)
	assert.Equal(t, "https://acme-analytics.io", c.Website)
	assert.Equal(t, "Met at SaaStr\n\n--- Enriched Data ---\nIndustry: Software\nEmployees: 120\nLocation: Austin, TX", c.Notes)

	assert.Equal(t, enrichment.StatusEnriched, c.EnrichmentStatus)
	assert.Equal(t, 1, c.EnrichmentAttempts)
	assert.Empty(t, c.EnrichmentError)
	require.NotNil(t, c.EnrichedAt)
	assert.Equal(t, testNow, *c.EnrichedAt)
	assert.Equal(t, enrichment.SourceProvider, c.EnrichmentSource)
	assert.Contains(t, string(c.EnrichmentData), `"title":"Head of Growth"`)
	assert.Contains(t, string(c.EnrichmentData), `"domain":"acme-analytics.io"`)
}

func TestEnrichContactMarksProcessingBeforeCallingProvider(t *testing.T) {
	store := &mocks.MockStore{}
	store.On("GetContact", mock.Anything, int64(5)).Return(fixtures.ContactJane(5), nil)
	store.On("UpdateContact", mock.Anything, mock.Anything).Return(nil)
	svc := newService(store, fixtures.NewWorkingEnricher(fixtures.EnrichJane()))

	_, err := svc.EnrichContact(context.Background(), 5, enrichment.StrategyEmail)
	require.NoError(t, err)
	assert.Equal(t, []enrichment.Status{enrichment.StatusProcessing, enrichment.StatusEnriched}, store.UpdatedStatuses())
}

func TestEnrichContactSkipsPreviouslyNotFound(t *testing.T) {
	c := fixtures.ContactJane(2)
	c.EnrichmentStatus = enrichment.StatusNotFound
	enricher := &mocks.MockEnricher{}
	svc := newService(enrichment.NewMemoryStore(c), enricher)

	res, err := svc.EnrichContact(context.Background(), 2, enrichment.StrategyAuto)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.Skipped)
	assert.Equal(t, "Contact previously marked as not found in RocketReach database", res.Message)
	enricher.AssertNotCalled(t, "Enrich", mock.Anything, mock.Anything)
}

func TestEnrichContactFreshnessWindow(t *testing.T) {
	store := enrichment.NewMemoryStore(
		fixtures.ContactEnrichedAt(1, testNow.Add(-time.Hour)),
		fixtures.ContactEnrichedAt(2, testNow.Add(-25*time.Hour)),
	)
	enricher := fixtures.NewWorkingEnricher(fixtures.EnrichJane())
	svc := newService(store, enricher)
	ctx := context.Background()

	res, err := svc.EnrichContact(ctx, 1, enrichment.StrategyAuto)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Skipped)
	assert.Equal(t, "Contact already enriched recently", res.Message)
	enricher.AssertNumberOfCalls(t, "Enrich", 0)

	res, err = svc.EnrichContact(ctx, 2, enrichment.StrategyAuto)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 2, res.Contact.EnrichmentAttempts)
	enricher.AssertNumberOfCalls(t, "Enrich", 1)
}

func TestEnrichContactCustomFreshness(t *testing.T) {
	store := enrichment.NewMemoryStore(fixtures.ContactEnrichedAt(1, testNow.Add(-2*time.Hour)))
	enricher := fixtures.NewWorkingEnricher(fixtures.EnrichJane())
	svc := newService(store, enricher, enrichment.WithFreshness(time.Hour))

	res, err := svc.EnrichContact(context.Background(), 1, enrichment.StrategyAuto)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	enricher.AssertNumberOfCalls(t, "Enrich", 1)
}

func TestEnrichContactNotFound(t *testing.T) {
	for _, tc := range []struct {
		name    string
		message string
		want    string
	}{
		{name: "provider message", message: "Could not find the person", want: "Could not find the person"},
		{name: "default message", message: "", want: "Person not found in RocketReach database"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			store := enrichment.NewMemoryStore(fixtures.ContactJane(3))
			svc := newService(store, fixtures.NewWorkingEnricher(fixtures.NotFoundResponse(tc.message)))

			res, err := svc.EnrichContact(context.Background(), 3, enrichment.StrategyAuto)
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, tc.want, res.Message)

			c, err := store.GetContact(context.Background(), 3)
			require.NoError(t, err)
			assert.Equal(t, enrichment.StatusNotFound, c.EnrichmentStatus)
			assert.Equal(t, tc.want, c.EnrichmentError)
			assert.Nil(t, c.EnrichedAt)
			assert.Equal(t, "Met at SaaStr", c.Notes)
		})
	}
}

func TestEnrichContactProviderFailure(t *testing.T) {
	cause := httpclient.NewTransportError("dial tcp: connection refused", errors.New("refused"), false)
	store := enrichment.NewMemoryStore(fixtures.ContactJane(4))
	svc := newService(store, fixtures.NewFailingEnricher(cause))

	_, err := svc.EnrichContact(context.Background(), 4, enrichment.StrategyAuto)
	require.Error(t, err)

	var eerr *enrichment.Error
	require.True(t, errors.As(err, &eerr))
	assert.Equal(t, int64(4), eerr.ContactID)
	assert.Contains(t, err.Error(), "Network error connecting to RocketReach: ")
	assert.True(t, httpclient.IsErrorType(err, httpclient.TransportError))

	c, _ := store.GetContact(context.Background(), 4)
	assert.Equal(t, enrichment.StatusFailed, c.EnrichmentStatus)
	assert.Equal(t, err.Error(), c.EnrichmentError)
	assert.Equal(t, 1, c.EnrichmentAttempts)
}

func TestEnrichContactStrategyFailureIsRecorded(t *testing.T) {
	store := enrichment.NewMemoryStore(&enrichment.Contact{ID: 6, FirstName: "Solo"})
	enricher := &mocks.MockEnricher{}
	svc := newService(store, enricher)

	_, err := svc.EnrichContact(context.Background(), 6, enrichment.StrategyAuto)
	require.Error(t, err)
	assert.ErrorIs(t, err, enrichment.ErrInsufficientData)
	assert.Equal(t, "Enrichment failed: insufficient data for enrichment. Need email, LinkedIn profile, or name+company", err.Error())
	enricher.AssertNotCalled(t, "Enrich", mock.Anything, mock.Anything)

	status, err := svc.Status(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, enrichment.StatusFailed, status.Status)
	assert.Equal(t, 1, status.Attempts)
}

func TestEnrichContactFailureSurvivesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	written := make(chan context.Context, 1)
	store := &mocks.MockStore{}
	store.On("GetContact", mock.Anything, int64(8)).Return(fixtures.ContactJane(8), nil)
	store.On("UpdateContact", mock.Anything, mock.MatchedBy(func(c *enrichment.Contact) bool {
		return c.EnrichmentStatus == enrichment.StatusProcessing
	})).Return(nil).Once()
	store.On("UpdateContact", mock.Anything, mock.MatchedBy(func(c *enrichment.Contact) bool {
		return c.EnrichmentStatus == enrichment.StatusFailed
	})).Run(func(args mock.Arguments) {
		written <- args.Get(0).(context.Context)
	}).Return(nil).Once()

	enricher := &mocks.MockEnricher{}
	enricher.On("Enrich", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, context.Canceled)
	svc := newService(store, enricher)

	_, err := svc.EnrichContact(ctx, 8, enrichment.StrategyAuto)
	require.ErrorIs(t, err, context.Canceled)

	select {
	case writeCtx := <-written:
		assert.NoError(t, writeCtx.Err())
	case <-time.After(5 * time.Second):
		t.Fatal("failure status was never written")
	}
	store.AssertExpectations(t)
	assert.Equal(t, []enrichment.Status{enrichment.StatusProcessing, enrichment.StatusFailed}, store.UpdatedStatuses())
}

func TestEnrichContactStoreErrors(t *testing.T) {
	svc := newService(enrichment.NewMemoryStore(), fixtures.NewWorkingEnricher(fixtures.EnrichJane()))
	_, err := svc.EnrichContact(context.Background(), 404, enrichment.StrategyAuto)
	assert.ErrorIs(t, err, enrichment.ErrContactNotFound)

	store := &mocks.MockStore{}
	store.On("GetContact", mock.Anything, int64(1)).Return(fixtures.ContactJane(1), nil)
	store.On("UpdateContact", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	enricher := &mocks.MockEnricher{}
	_, err = newService(store, enricher).EnrichContact(context.Background(), 1, enrichment.StrategyAuto)
	assert.ErrorContains(t, err, "disk full")
	enricher.AssertNotCalled(t, "Enrich", mock.Anything, mock.Anything)
}

func TestEnrichContactDisabled(t *testing.T) {
	svc := newService(enrichment.NewMemoryStore(fixtures.ContactJane(1)), nil)
	assert.False(t, svc.Enabled())
	_, err := svc.EnrichContact(context.Background(), 1, enrichment.StrategyAuto)
	assert.ErrorIs(t, err, enrichment.ErrNotEnabled)
}

type blockingEnricher struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (b *blockingEnricher) Enrich(ctx context.Context, _ people.LookupQuery) (*people.EnrichResponse, error) {
	if b.calls.Add(1) == 1 {
		close(b.started)
	}
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return fixtures.EnrichJane(), nil
}

func TestEnrichContactCollapsesConcurrentCalls(t *testing.T) {
	enricher := &blockingEnricher{started: make(chan struct{}), release: make(chan struct{})}
	svc := newService(enrichment.NewMemoryStore(fixtures.ContactJane(1)), enricher)

	var wg sync.WaitGroup
	results := make([]*enrichment.Result, 3)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.EnrichContact(context.Background(), 1, enrichment.StrategyAuto)
			assert.NoError(t, err)
			results[i] = res
		}()
	}

	<-enricher.started
	time.Sleep(50 * time.Millisecond)
	close(enricher.release)
	wg.Wait()

	assert.Equal(t, int32(1), enricher.calls.Load())
	for _, res := range results {
		require.NotNil(t, res)
		assert.True(t, res.Success)
	}
}

func TestEnrichContactJoinedCallerSurvivesFirstCallerCancellation(t *testing.T) {
	enricher := &blockingEnricher{started: make(chan struct{}), release: make(chan struct{})}
	svc := newService(enrichment.NewMemoryStore(fixtures.ContactJane(1)), enricher)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.EnrichContact(firstCtx, 1, enrichment.StrategyAuto)
		firstErr <- err
	}()
	<-enricher.started

	type outcome struct {
		res *enrichment.Result
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		res, err := svc.EnrichContact(context.Background(), 1, enrichment.StrategyAuto)
		second <- outcome{res, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(enricher.release)
	select {
	case got := <-second:
		require.NoError(t, got.err)
		require.NotNil(t, got.res)
		assert.True(t, got.res.Success)
		assert.Equal(t, enrichment.StatusEnriched, got.res.Contact.EnrichmentStatus)
	case <-time.After(5 * time.Second):
		t.Fatal("joined caller never received the result")
	}
	assert.Equal(t, int32(1), enricher.calls.Load())
}

func TestEnrichContacts(t *testing.T) {
	store := enrichment.NewMemoryStore(
		&enrichment.Contact{ID: 1, Email: "jane@acme-analytics.io"},
		&enrichment.Contact{ID: 2, FirstName: "No", LastName: "Data"},
		&enrichment.Contact{ID: 3, Email: "ghost@nowhere.io"},
	)
	enricher := &mocks.MockEnricher{}
	enricher.On("Enrich", mock.Anything, people.LookupQuery{Email: "jane@acme-analytics.io"}).Return(fixtures.EnrichJane(), nil)
	enricher.On("Enrich", mock.Anything, people.LookupQuery{Email: "ghost@nowhere.io"}).Return(fixtures.NotFoundResponse(""), nil)
	svc := newService(store, enricher, enrichment.WithConcurrency(2))

	out := svc.EnrichContacts(context.Background(), []int64{1, 2, 3, 99}, enrichment.StrategyAuto)

	assert.Equal(t, 2, out.Successful)
	assert.Equal(t, 2, out.Failed)
	require.Len(t, out.Enriched, 2)
	assert.Equal(t, int64(1), out.Enriched[0].ID)
	assert.Equal(t, enrichment.StatusEnriched, out.Enriched[0].Status)
	require.NotNil(t, out.Enriched[0].EnrichedAt)
	assert.Equal(t, int64(3), out.Enriched[1].ID)
	assert.Equal(t, enrichment.StatusNotFound, out.Enriched[1].Status)

	require.Len(t, out.Errors, 2)
	assert.Equal(t, int64(2), out.Errors[0].ContactID)
	assert.Contains(t, out.Errors[0].Error, "Enrichment failed: insufficient data")
	assert.Equal(t, int64(99), out.Errors[1].ContactID)
	assert.Contains(t, out.Errors[1].Error, "contact not found")
}

func TestEnrichContactsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	enricher := &mocks.MockEnricher{}
	svc := newService(enrichment.NewMemoryStore(fixtures.ContactJane(1), fixtures.ContactJane(2)), enricher)

	out := svc.EnrichContacts(ctx, []int64{1, 2}, enrichment.StrategyAuto)
	assert.Equal(t, 0, out.Successful)
	assert.Equal(t, 2, out.Failed)
	assert.Empty(t, out.Enriched)
	enricher.AssertNotCalled(t, "Enrich", mock.Anything, mock.Anything)
}

func TestStatus(t *testing.T) {
	svc := newService(enrichment.NewMemoryStore(
		fixtures.ContactEnrichedAt(1, testNow),
		&enrichment.Contact{ID: 2},
	), nil)
	ctx := context.Background()

	st, err := svc.Status(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, enrichment.StatusEnriched, st.Status)
	assert.Equal(t, 1, st.Attempts)
	assert.Equal(t, enrichment.SourceProvider, st.Source)
	assert.Equal(t, testNow, *st.EnrichedAt)

	st, err = svc.Status(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, enrichment.StatusPending, st.Status)
	assert.Zero(t, st.Attempts)

	_, err = svc.Status(ctx, 3)
	assert.ErrorIs(t, err, enrichment.ErrContactNotFound)
}

func TestStats(t *testing.T) {
	store := &mocks.MockStore{}
	store.On("CountByStatus", mock.Anything).Return(map[enrichment.Status]int{
		enrichment.StatusEnriched:   1,
		enrichment.StatusFailed:     1,
		enrichment.StatusPending:    0,
		"":                          1,
		enrichment.StatusProcessing: 0,
	}, nil).Once()
	store.On("CountByStatus", mock.Anything).Return(map[enrichment.Status]int{}, nil).Once()
	store.On("CountByStatus", mock.Anything).Return(nil, errors.New("db down")).Once()
	svc := newService(store, nil)
	ctx := context.Background()

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &enrichment.Stats{Total: 3, Enriched: 1, Failed: 1, Pending: 1, Rate: 33.33}, st)

	st, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Rate)

	_, err = svc.Stats(ctx)
	assert.ErrorContains(t, err, "db down")
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

func TestEnrichContactWrapsProviderErrorsOverHTTP(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		header  map[string]string
		body    string
		want    string
		errType httpclient.ErrorType
	}{
		{
			name:    "rate limited",
			status:  nethttp.StatusTooManyRequests,
			header:  map[string]string{"Retry-After": "0"},
			body:    fixtures.RateLimitedBody,
			want:    "RocketReach rate limit exceeded. Please try again later.",
			errType: httpclient.RateLimitError,
		},
		{
			name:    "server error",
			status:  nethttp.StatusBadGateway,
			body:    `{"detail":"upstream"}`,
			want:    "Network error connecting to RocketReach: ",
			errType: httpclient.NetworkFailure,
		},
		{
			name:    "client error",
			status:  nethttp.StatusForbidden,
			body:    `{"detail":"quota exhausted"}`,
			want:    "RocketReach API error: ",
			errType: httpclient.ClientRequestError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			client, err := people.NewClient(people.Config{
				APIKey:     "test-key",
				BaseURL:    srv.URL,
				MaxRetries: 2,
				RetryDelay: httpclient.DurationPtr(time.Millisecond),
			}, nil)
			require.NoError(t, err)

			store := enrichment.NewMemoryStore(fixtures.ContactJane(1))
			_, err = newService(store, client).EnrichContact(context.Background(), 1, enrichment.StrategyEmail)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.True(t, httpclient.IsErrorType(err, tt.errType))

			c, _ := store.GetContact(context.Background(), 1)
			assert.Equal(t, enrichment.StatusFailed, c.EnrichmentStatus)
		})
	}
}
