package enrichment

import (
	"encoding/json"
	"strings"
	"time"
)

// Status is a contact's enrichment lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusEnriched   Status = "enriched"
	StatusFailed     Status = "failed"
	StatusNotFound   Status = "not_found"
)

// SourceProvider is recorded on contacts enriched by the people-data provider.
const SourceProvider = "rocketreach"

// Contact is a CRM contact as seen by the enrichment service.
type Contact struct {
	ID              int64  `json:"id"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	Email           string `json:"email,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Position        string `json:"position,omitempty"`
	Company         string `json:"company,omitempty"`
	Website         string `json:"website,omitempty"`
	LinkedInProfile string `json:"linkedin_profile,omitempty"`
	Address         string `json:"address,omitempty"`
	Notes           string `json:"notes,omitempty"`

	EnrichmentStatus   Status          `json:"enrichment_status,omitempty"`
	EnrichmentAttempts int             `json:"enrichment_attempts,omitempty"`
	EnrichmentError    string          `json:"enrichment_error,omitempty"`
	EnrichedAt         *time.Time      `json:"enriched_at,omitempty"`
	EnrichmentSource   string          `json:"enrichment_source,omitempty"`
	EnrichmentData     json.RawMessage `json:"enrichment_data,omitempty"`
	UpdatedAt          time.Time       `json:"updated_at,omitempty"`
}

// CurrentStatus returns the enrichment status, treating unset as pending.
func (c *Contact) CurrentStatus() Status {
	if c.EnrichmentStatus == "" {
		return StatusPending
	}
	return c.EnrichmentStatus
}

// FullName joins first and last name.
func (c *Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

func (c *Contact) hasNameAndCompany() bool {
	return notBlank(c.FirstName) && notBlank(c.LastName) && notBlank(c.Company)
}

// Clone returns a deep copy.
func (c *Contact) Clone() *Contact {
	if c == nil {
		return nil
	}
	out := *c
	if c.EnrichedAt != nil {
		t := *c.EnrichedAt
		out.EnrichedAt = &t
	}
	if c.EnrichmentData != nil {
		out.EnrichmentData = append(json.RawMessage(nil), c.EnrichmentData...)
	}
	return &out
}

func notBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}
