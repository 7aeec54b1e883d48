package enrichment

import (
	"strconv"
	"strings"

	"github.com/gaborage/go-enrich/people"
)

const notesHeader = "\n\n--- Enriched Data ---\n"

// Data is the provider snapshot stored on an enriched contact.
type Data struct {
	Person  *PersonData  `json:"person,omitempty"`
	Company *CompanyData `json:"company,omitempty"`
}

// PersonData is the subset of a profile kept after enrichment.
type PersonData struct {
	ID          int64          `json:"id,omitempty"`
	Name        string         `json:"name,omitempty"`
	Emails      []people.Email `json:"emails"`
	Phones      []people.Phone `json:"phones"`
	Title       string         `json:"title,omitempty"`
	Location    string         `json:"location,omitempty"`
	LinkedInURL string         `json:"linkedin_url,omitempty"`
}

// CompanyData is the subset of employer facts kept after enrichment.
type CompanyData struct {
	ID            int64  `json:"id,omitempty"`
	Name          string `json:"name,omitempty"`
	Domain        string `json:"domain,omitempty"`
	Industry      string `json:"industry,omitempty"`
	EmployeeCount int    `json:"employee_count,omitempty"`
	Location      string `json:"location,omitempty"`
}

func extractData(resp *people.EnrichResponse) *Data {
	p := resp.Person
	d := &Data{
		Person: &PersonData{
			ID:          p.ID,
			Name:        p.Name,
			Emails:      nonNil(p.Emails),
			Phones:      nonNil(p.Phones),
			Title:       p.CurrentTitle,
			Location:    p.Location,
			LinkedInURL: p.LinkedInURL,
		},
	}
	if c := resp.Company; !c.IsZero() {
		d.Company = &CompanyData{
			ID:            c.ID,
			Name:          c.Name,
			Domain:        c.Domain,
			Industry:      c.Industry,
			EmployeeCount: c.EmployeeCount,
			Location:      c.Location,
		}
	}
	return d
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// applyData fills only the contact fields that are still empty and appends
// company facts to the notes. It reports whether anything changed.
func applyData(c *Contact, d *Data) bool {
	changed := false
	fill := func(dst *string, value string) {
		value = sanitize(value)
		if notBlank(*dst) || value == "" {
			return
		}
		*dst = value
		changed = true
	}

	if p := d.Person; p != nil {
		if len(p.Emails) > 0 {
			fill(&c.Email, p.Emails[0].Email)
		}
		if len(p.Phones) > 0 {
			fill(&c.Phone, p.Phones[0].Number)
		}
		fill(&c.Position, p.Title)
		fill(&c.LinkedInProfile, p.LinkedInURL)
		fill(&c.Address, p.Location)
	}

	if co := d.Company; co != nil {
		fill(&c.Company, co.Name)
		if domain := sanitize(co.Domain); domain != "" {
			fill(&c.Website, "https://"+domain)
		}
		if facts := companyFacts(co); len(facts) > 0 {
			c.Notes += notesHeader + strings.Join(facts, "\n")
			changed = true
		}
	}
	return changed
}

func companyFacts(co *CompanyData) []string {
	var facts []string
	if co.Industry != "" {
		facts = append(facts, "Industry: "+co.Industry)
	}
	if co.EmployeeCount > 0 {
		facts = append(facts, "Employees: "+strconv.Itoa(co.EmployeeCount))
	}
	if co.Location != "" {
		facts = append(facts, "Location: "+co.Location)
	}
	return facts
}

// sanitize trims whitespace and drops control characters from provider text.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
