package people

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gaborage/go-enrich/httpclient"
)

// Profile lookup states reported by the provider.
const (
	StatusComplete  = "complete"
	StatusSearching = "searching"
	StatusNotFound  = "not_found"
)

const defaultNotFoundMessage = "Person not found"

// Email is one address on a profile. The provider sends either a bare string
// or an object.
type Email struct {
	Email string `json:"email"`
	Type  string `json:"type,omitempty"`
	Grade string `json:"grade,omitempty"`
}

func (e *Email) UnmarshalJSON(data []byte) error {
	if s, ok := unquote(data); ok {
		*e = Email{Email: s}
		return nil
	}
	type plain Email
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	*e = Email(p)
	return nil
}

// Phone is one number on a profile, either a bare string or an object.
type Phone struct {
	Number string `json:"number"`
	Type   string `json:"type,omitempty"`
}

func (p *Phone) UnmarshalJSON(data []byte) error {
	if s, ok := unquote(data); ok {
		*p = Phone{Number: s}
		return nil
	}
	type plain Phone
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("phone: %w", err)
	}
	*p = Phone(v)
	return nil
}

func unquote(data []byte) (string, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", false
	}
	return s, true
}

// Person is a provider profile.
type Person struct {
	ID              int64   `json:"id,omitempty"`
	Name            string  `json:"name,omitempty"`
	CurrentTitle    string  `json:"current_title,omitempty"`
	CurrentEmployer string  `json:"current_employer,omitempty"`
	LinkedInURL     string  `json:"linkedin_url,omitempty"`
	Location        string  `json:"location,omitempty"`
	Emails          []Email `json:"emails,omitempty"`
	Phones          []Phone `json:"phones,omitempty"`
	Status          string  `json:"status,omitempty"`

	// set when the provider had no match
	NotFound bool   `json:"not_found,omitempty"`
	Message  string `json:"message,omitempty"`
}

// IsComplete reports whether the provider finished resolving the profile.
func (p *Person) IsComplete() bool { return p.Status == StatusComplete }

// IsSearching reports whether the provider is still resolving the profile.
func (p *Person) IsSearching() bool { return p.Status == StatusSearching }

// PrimaryEmail returns the first listed address, or "".
func (p *Person) PrimaryEmail() string {
	for _, e := range p.Emails {
		if e.Email != "" {
			return e.Email
		}
	}
	return ""
}

// PrimaryPhone returns the first listed number, or "".
func (p *Person) PrimaryPhone() string {
	for _, ph := range p.Phones {
		if ph.Number != "" {
			return ph.Number
		}
	}
	return ""
}

// Company is a person's employer as returned by enrichment.
type Company struct {
	ID            int64  `json:"id,omitempty"`
	Name          string `json:"name,omitempty"`
	Domain        string `json:"domain,omitempty"`
	Website       string `json:"website,omitempty"`
	LinkedInURL   string `json:"linkedin_url,omitempty"`
	Industry      string `json:"industry,omitempty"`
	EmployeeCount int    `json:"employee_count,omitempty"`
	Location      string `json:"location,omitempty"`
}

// IsZero reports whether no company data was returned.
func (c Company) IsZero() bool { return c == Company{} }

// Pagination describes a search result page.
type Pagination struct {
	Total int  `json:"total"`
	Start int  `json:"start"`
	Next  *int `json:"next"`
}

// SearchResponse is one page of people search results.
type SearchResponse struct {
	Profiles   []Person   `json:"profiles"`
	Pagination Pagination `json:"pagination"`
}

// Total is the number of matches across all pages.
func (r *SearchResponse) Total() int { return r.Pagination.Total }

// CurrentPage defaults to 1 when the provider omits it.
func (r *SearchResponse) CurrentPage() int {
	if r.Pagination.Start == 0 {
		return 1
	}
	return r.Pagination.Start
}

// NextPage returns the next page start, if any.
func (r *SearchResponse) NextPage() (int, bool) {
	if r.Pagination.Next == nil {
		return 0, false
	}
	return *r.Pagination.Next, true
}

// HasNextPage reports whether more results exist.
func (r *SearchResponse) HasNextPage() bool { return r.Pagination.Next != nil }

// Count is the number of profiles on this page.
func (r *SearchResponse) Count() int { return len(r.Profiles) }

// IsEmpty reports whether this page has no profiles.
func (r *SearchResponse) IsEmpty() bool { return len(r.Profiles) == 0 }

// EnrichResponse pairs a person with their current employer.
type EnrichResponse struct {
	Person  Person  `json:"person"`
	Company Company `json:"company"`
}

// NotFound reports whether the provider had no match.
func (r *EnrichResponse) NotFound() bool { return r.Person.NotFound }

// enrichPayload is the provider document: person fields plus either a nested
// company object or flat current_employer_* fields.
type enrichPayload struct {
	Person
	Company             *Company `json:"company"`
	EmployerID          int64    `json:"current_employer_id"`
	EmployerDomain      string   `json:"current_employer_domain"`
	EmployerWebsite     string   `json:"current_employer_website"`
	EmployerLinkedInURL string   `json:"current_employer_linkedin_url"`
	EmployerIndustry    string   `json:"current_employer_industry"`
	EmployerSize        int      `json:"current_employer_size"`
	EmployerLocation    string   `json:"current_employer_location"`
}

func newEnrichResponse(res httpclient.Result) (*EnrichResponse, error) {
	if res.NotFound() {
		msg := res.Message()
		if msg == "" {
			msg = defaultNotFoundMessage
		}
		return &EnrichResponse{Person: Person{NotFound: true, Message: msg, Status: StatusNotFound}}, nil
	}

	var p enrichPayload
	if err := decodeResult(res, &p); err != nil {
		return nil, err
	}
	if p.Company != nil {
		return &EnrichResponse{Person: p.Person, Company: *p.Company}, nil
	}
	return &EnrichResponse{
		Person: p.Person,
		Company: Company{
			ID:            p.EmployerID,
			Name:          p.CurrentEmployer,
			Domain:        p.EmployerDomain,
			Website:       p.EmployerWebsite,
			LinkedInURL:   p.EmployerLinkedInURL,
			Industry:      p.EmployerIndustry,
			EmployeeCount: p.EmployerSize,
			Location:      p.EmployerLocation,
		},
	}, nil
}
