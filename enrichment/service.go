// Package enrichment fills CRM contacts with data from the people-data
// provider and tracks each contact's enrichment lifecycle.
package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/gaborage/go-enrich/logger"
	"github.com/gaborage/go-enrich/people"
)

const (
	// DefaultFreshness is how long an enrichment is considered current.
	DefaultFreshness = 24 * time.Hour
	// DefaultConcurrency bounds parallel provider calls in a batch.
	DefaultConcurrency = 4
)

// Enricher resolves a lookup into a person and company. *people.Client
// implements it.
type Enricher interface {
	Enrich(ctx context.Context, q people.LookupQuery) (*people.EnrichResponse, error)
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithFreshness sets how long enriched contacts are skipped.
func WithFreshness(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.freshness = d
		}
	}
}

// WithConcurrency bounds parallel enrichments in EnrichContacts.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service enriches stored contacts. It is safe for concurrent use; concurrent
// requests for the same contact share one provider call.
type Service struct {
	store       Store
	enricher    Enricher
	log         logger.Logger
	now         func() time.Time
	freshness   time.Duration
	concurrency int

	sf singleflight.Group
}

// NewService creates a Service. A nil enricher yields a service whose
// enrichment calls fail with ErrNotEnabled while Status and Stats still work.
func NewService(store Store, enricher Enricher, opts ...Option) *Service {
	s := &Service{
		store:       store,
		enricher:    enricher,
		log:         logger.Nop(),
		now:         time.Now,
		freshness:   DefaultFreshness,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled reports whether a provider client is configured.
func (s *Service) Enabled() bool {
	return s.enricher != nil
}

// Result is the outcome of enriching one contact.
type Result struct {
	// Success is false for not-found and previously-not-found contacts
	Success bool
	// Skipped is set when no provider call was made
	Skipped bool
	Message string
	Contact *Contact
	Data    *Data
}

// EnrichContact enriches one contact. Contacts already marked not found and
// contacts enriched within the freshness window are returned unchanged.
// Provider failures mark the contact failed and are returned as *Error.
//
// Concurrent calls for the same id share one enrichment. The shared work is
// not cancelled by any caller; a caller whose ctx ends stops waiting and
// gets ctx.Err() while the others still receive the result.
func (s *Service) EnrichContact(ctx context.Context, id int64, strategy Strategy) (*Result, error) {
	if !s.Enabled() {
		return nil, ErrNotEnabled
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := s.sf.DoChan(strconv.FormatInt(id, 10), func() (any, error) {
		return s.enrichContact(context.WithoutCancel(ctx), id, strategy)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			s.log.Debug().Int64("contact_id", id).Msg("Joined in-flight contact enrichment")
		}
		return r.Val.(*Result), nil
	}
}

func (s *Service) enrichContact(ctx context.Context, id int64, strategy Strategy) (*Result, error) {
	c, err := s.store.GetContact(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load contact %d: %w", id, err)
	}

	if c.CurrentStatus() == StatusNotFound {
		s.log.Debug().Int64("contact_id", id).Msg("Skipping contact previously not found")
		return &Result{Skipped: true, Message: msgPreviouslyMissing, Contact: c}, nil
	}
	if s.isFresh(c) {
		s.log.Debug().Int64("contact_id", id).Msg("Skipping recently enriched contact")
		return &Result{Success: true, Skipped: true, Message: msgRecentlyEnriched, Contact: c}, nil
	}

	c.EnrichmentAttempts++
	c.EnrichmentStatus = StatusProcessing
	c.EnrichmentError = ""
	if err := s.store.UpdateContact(ctx, c); err != nil {
		return nil, fmt.Errorf("mark contact %d processing: %w", id, err)
	}

	resp, err := s.lookup(ctx, c, strategy)
	if err != nil {
		return nil, s.fail(ctx, c, err)
	}

	now := s.now()
	if resp.NotFound() {
		msg := resp.Person.Message
		if msg == "" {
			msg = msgNotFoundDefault
		}
		c.EnrichmentStatus = StatusNotFound
		c.EnrichmentError = msg
		c.UpdatedAt = now
		if err := s.store.UpdateContact(ctx, c); err != nil {
			return nil, fmt.Errorf("save contact %d: %w", id, err)
		}
		s.log.Info().Int64("contact_id", id).Str("message", msg).Msg("Contact not found by provider")
		return &Result{Message: msg, Contact: c}, nil
	}

	data := extractData(resp)
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, s.fail(ctx, c, fmt.Errorf("encode enrichment data: %w", err))
	}
	applyData(c, data)
	c.EnrichmentStatus = StatusEnriched
	c.EnrichedAt = &now
	c.EnrichmentSource = SourceProvider
	c.EnrichmentData = raw
	c.UpdatedAt = now
	if err := s.store.UpdateContact(ctx, c); err != nil {
		return nil, fmt.Errorf("save contact %d: %w", id, err)
	}

	s.log.Info().
		Int64("contact_id", id).
		Int("attempts", c.EnrichmentAttempts).
		Msg("Contact enriched")
	return &Result{Success: true, Contact: c, Data: data}, nil
}

func (s *Service) lookup(ctx context.Context, c *Contact, strategy Strategy) (*people.EnrichResponse, error) {
	q, err := BuildQuery(c, strategy)
	if err != nil {
		return nil, err
	}
	return s.enricher.Enrich(ctx, q)
}

// fail records the failure on the contact. The status write outlives a
// cancelled caller so the contact never stays in processing.
func (s *Service) fail(ctx context.Context, c *Contact, cause error) error {
	werr := wrapFailure(c.ID, cause)
	c.EnrichmentStatus = StatusFailed
	c.EnrichmentError = werr.Message
	c.UpdatedAt = s.now()
	if err := s.store.UpdateContact(context.WithoutCancel(ctx), c); err != nil {
		s.log.Error().Err(err).Int64("contact_id", c.ID).Msg("Failed to record enrichment failure")
	}
	s.log.Warn().Err(cause).Int64("contact_id", c.ID).Msg("Contact enrichment failed")
	return werr
}

func (s *Service) isFresh(c *Contact) bool {
	return c.CurrentStatus() == StatusEnriched &&
		c.EnrichedAt != nil &&
		s.now().Sub(*c.EnrichedAt) < s.freshness
}

// BatchResult summarises EnrichContacts.
type BatchResult struct {
	Successful int               `json:"successful"`
	Failed     int               `json:"failed"`
	Enriched   []EnrichedContact `json:"enriched_contacts"`
	Errors     []ContactError    `json:"errors"`
}

// EnrichedContact is a contact processed without error.
type EnrichedContact struct {
	ID         int64      `json:"id"`
	Status     Status     `json:"enrichment_status"`
	EnrichedAt *time.Time `json:"enriched_at,omitempty"`
}

// ContactError is a contact whose enrichment failed.
type ContactError struct {
	ContactID int64  `json:"contact_id"`
	Error     string `json:"error"`
}

// EnrichContacts enriches ids with bounded concurrency. One contact failing
// never stops the others; results keep the input order.
func (s *Service) EnrichContacts(ctx context.Context, ids []int64, strategy Strategy) *BatchResult {
	results := make([]*Result, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			results[i], errs[i] = s.EnrichContact(ctx, id, strategy)
			return nil
		})
	}
	_ = g.Wait()

	out := &BatchResult{Enriched: []EnrichedContact{}, Errors: []ContactError{}}
	for i, id := range ids {
		if errs[i] != nil {
			out.Failed++
			out.Errors = append(out.Errors, ContactError{ContactID: id, Error: errs[i].Error()})
			continue
		}
		out.Successful++
		entry := EnrichedContact{ID: id, Status: StatusEnriched}
		if c := results[i].Contact; c != nil {
			entry.Status = c.CurrentStatus()
			entry.EnrichedAt = c.EnrichedAt
		}
		out.Enriched = append(out.Enriched, entry)
	}

	s.log.Info().
		Int("successful", out.Successful).
		Int("failed", out.Failed).
		Msg("Contact batch enrichment finished")
	return out
}

// StatusReport is a contact's enrichment state.
type StatusReport struct {
	Status     Status     `json:"status"`
	Attempts   int        `json:"attempts"`
	LastError  string     `json:"last_error,omitempty"`
	EnrichedAt *time.Time `json:"enriched_at,omitempty"`
	Source     string     `json:"source,omitempty"`
}

// Status returns the enrichment state of one contact.
func (s *Service) Status(ctx context.Context, id int64) (*StatusReport, error) {
	c, err := s.store.GetContact(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load contact %d: %w", id, err)
	}
	return &StatusReport{
		Status:     c.CurrentStatus(),
		Attempts:   c.EnrichmentAttempts,
		LastError:  c.EnrichmentError,
		EnrichedAt: c.EnrichedAt,
		Source:     c.EnrichmentSource,
	}, nil
}

// Stats aggregates enrichment progress across all contacts.
type Stats struct {
	Total    int     `json:"total_contacts"`
	Enriched int     `json:"enriched_count"`
	Failed   int     `json:"failed_count"`
	Pending  int     `json:"pending_count"`
	Rate     float64 `json:"enrichment_rate"`
}

// Stats returns totals and the enriched percentage rounded to two decimals.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count contacts: %w", err)
	}

	st := &Stats{
		Enriched: counts[StatusEnriched],
		Failed:   counts[StatusFailed],
		Pending:  counts[StatusPending] + counts[""],
	}
	for _, n := range counts {
		st.Total += n
	}
	if st.Total > 0 {
		st.Rate = math.Round(float64(st.Enriched)/float64(st.Total)*100*100) / 100
	}
	return st, nil
}
