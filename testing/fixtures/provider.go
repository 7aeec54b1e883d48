package fixtures

import (
	"encoding/json"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/gaborage/go-enrich/enrichment"
	"github.com/gaborage/go-enrich/httpclient"
	"github.com/gaborage/go-enrich/people"
	"github.com/gaborage/go-enrich/testing/mocks"
)

// Canned provider documents.
const (
	// EnrichJaneJSON is a profile-company lookup payload with flat employer fields.
	EnrichJaneJSON = `{
		"id": 1001,
		"name": "Jane Doe",
		"current_title": "Head of Growth",
		"current_employer": "Acme Analytics",
		"current_employer_id": 501,
		"current_employer_domain": "acme-analytics.io",
		"current_employer_website": "https://acme-analytics.io",
		"current_employer_linkedin_url": "https://www.linkedin.com/company/acme-analytics",
		"current_employer_industry": "Software",
		"current_employer_size": 120,
		"current_employer_location": "Austin, TX",
		"linkedin_url": "https://www.linkedin.com/in/janedoe",
		"location": "Austin, Texas, United States",
		"emails": [{"email": "jane@acme-analytics.io", "type": "professional", "grade": "A"}, "jane.doe@example.com"],
		"phones": ["+1 512 555 0142"],
		"status": "complete"
	}`

	// SearchPageJSON is a people search page with a next page.
	SearchPageJSON = `{
		"profiles": [
			{"id": 1001, "name": "Jane Doe", "current_title": "Head of Growth", "current_employer": "Acme Analytics"},
			{"id": 1002, "name": "John Roe", "current_title": "CTO", "current_employer": "Acme Analytics"}
		],
		"pagination": {"total": 12, "start": 1, "next": 3}
	}`

	// NotFoundBody is the provider's 404 document.
	NotFoundBody = `{"detail": "Could not find the person"}`

	// RateLimitedBody is the provider's 429 document.
	RateLimitedBody = `{"detail": "Request was throttled.", "retry_after": 2}`
)

// Result decodes a canned document into an httpclient.Result.
func Result(raw string) httpclient.Result {
	var r httpclient.Result
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		panic(err)
	}
	return r
}

// EnrichJane returns the typed form of EnrichJaneJSON.
func EnrichJane() *people.EnrichResponse {
	return &people.EnrichResponse{
		Person: people.Person{
			ID:              1001,
			Name:            "Jane Doe",
			CurrentTitle:    "Head of Growth",
			CurrentEmployer: "Acme Analytics",
			LinkedInURL:     "https://www.linkedin.com/in/janedoe",
			Location:        "Austin, Texas, United States",
			Emails: []people.Email{
				{Email: "jane@acme-analytics.io", Type: "professional", Grade: "A"},
				{Email: "jane.doe@example.com"},
			},
			Phones: []people.Phone{{Number: "+1 512 555 0142"}},
			Status: people.StatusComplete,
		},
		Company: people.Company{
			ID:            501,
			Name:          "Acme Analytics",
			Domain:        "acme-analytics.io",
			Website:       "https://acme-analytics.io",
			LinkedInURL:   "https://www.linkedin.com/company/acme-analytics",
			Industry:      "Software",
			EmployeeCount: 120,
			Location:      "Austin, TX",
		},
	}
}

// NotFoundResponse is an enrichment miss.
func NotFoundResponse(message string) *people.EnrichResponse {
	return &people.EnrichResponse{Person: people.Person{NotFound: true, Message: message, Status: people.StatusNotFound}}
}

// ContactJane is a sparse CRM contact matching EnrichJane by email.
func ContactJane(id int64) *enrichment.Contact {
	return &enrichment.Contact{
		ID:               id,
		FirstName:        "Jane",
		LastName:         "Doe",
		Email:            "jane@acme-analytics.io",
		Notes:            "Met at SaaStr",
		EnrichmentStatus: enrichment.StatusPending,
	}
}

// ContactEnrichedAt is a contact already enriched at the given time.
func ContactEnrichedAt(id int64, at time.Time) *enrichment.Contact {
	c := ContactJane(id)
	c.EnrichmentStatus = enrichment.StatusEnriched
	c.EnrichedAt = &at
	c.EnrichmentSource = enrichment.SourceProvider
	c.EnrichmentAttempts = 1
	return c
}

// NewWorkingEnricher returns a mock enricher answering every lookup with resp.
func NewWorkingEnricher(resp *people.EnrichResponse) *mocks.MockEnricher {
	m := &mocks.MockEnricher{}
	m.On("Enrich", mock.Anything, mock.Anything).Return(resp, nil)
	return m
}

// NewFailingEnricher returns a mock enricher failing every lookup with err.
func NewFailingEnricher(err error) *mocks.MockEnricher {
	m := &mocks.MockEnricher{}
	m.On("Enrich", mock.Anything, mock.Anything).Return(nil, err)
	return m
}
