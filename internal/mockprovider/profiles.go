package mockprovider

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/gaborage/go-enrich/people"
)

// Profile is one person known to the emulator together with their employer.
type Profile struct {
	Person  people.Person  `json:"person"`
	Company people.Company `json:"company"`
}

// lookupDocument is the shape served by /person/lookup.
func (p Profile) lookupDocument() people.Person {
	return p.Person
}

// enrichDocument is the shape served by /profile-company/lookup: the person
// fields with a nested company object.
func (p Profile) enrichDocument() enrichDocument {
	return enrichDocument{Person: p.Person, Company: p.Company}
}

type enrichDocument struct {
	people.Person
	Company people.Company `json:"company"`
}

// LoadProfiles reads a JSON array of profiles from path.
func LoadProfiles(path string) ([]Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	var profiles []Profile
	if err := json.Unmarshal(raw, &profiles); err != nil {
		return nil, fmt.Errorf("decode profiles %s: %w", path, err)
	}
	return profiles, nil
}

// DefaultProfiles is the built-in dataset.
func DefaultProfiles() []Profile {
	acme := people.Company{
		ID:            501,
		Name:          "Acme Analytics",
		Domain:        "acme-analytics.io",
		Website:       "https://acme-analytics.io",
		LinkedInURL:   "https://www.linkedin.com/company/acme-analytics",
		Industry:      "Software",
		EmployeeCount: 120,
		Location:      "Austin, TX",
	}
	northwind := people.Company{
		ID:            502,
		Name:          "Northwind Logistics",
		Domain:        "northwind.example",
		Industry:      "Transportation",
		EmployeeCount: 2300,
		Location:      "Rotterdam, NL",
	}

	return []Profile{
		{
			Person: people.Person{
				ID:              1001,
				Name:            "Jane Doe",
				CurrentTitle:    "Head of Growth",
				CurrentEmployer: acme.Name,
				LinkedInURL:     "https://www.linkedin.com/in/janedoe",
				Location:        "Austin, Texas, United States",
				Emails: []people.Email{
					{Email: "jane@acme-analytics.io", Type: "professional", Grade: "A"},
					{Email: "jane.doe@example.com", Type: "personal"},
				},
				Phones: []people.Phone{{Number: "+1 512 555 0142", Type: "mobile"}},
				Status: people.StatusComplete,
			},
			Company: acme,
		},
		{
			Person: people.Person{
				ID:              1002,
				Name:            "John Roe",
				CurrentTitle:    "CTO",
				CurrentEmployer: acme.Name,
				LinkedInURL:     "https://www.linkedin.com/in/johnroe",
				Location:        "Austin, Texas, United States",
				Emails:          []people.Email{{Email: "john@acme-analytics.io", Type: "professional", Grade: "B"}},
				Status:          people.StatusComplete,
			},
			Company: acme,
		},
		{
			Person: people.Person{
				ID:              1003,
				Name:            "Maria Jansen",
				CurrentTitle:    "VP Operations",
				CurrentEmployer: northwind.Name,
				LinkedInURL:     "https://www.linkedin.com/in/mariajansen",
				Location:        "Rotterdam, South Holland, Netherlands",
				Emails:          []people.Email{{Email: "m.jansen@northwind.example", Type: "professional", Grade: "A"}},
				Phones:          []people.Phone{{Number: "+31 10 555 0199", Type: "work"}},
				Status:          people.StatusComplete,
			},
			Company: northwind,
		},
		{
			Person: people.Person{
				ID:              1004,
				Name:            "Sam Patel",
				CurrentTitle:    "Data Engineer",
				CurrentEmployer: northwind.Name,
				Location:        "Rotterdam, South Holland, Netherlands",
				Status:          people.StatusSearching,
			},
			Company: northwind,
		},
	}
}

// dataset answers lookups and searches over a fixed profile list.
type dataset struct {
	profiles []Profile
}

// find applies the lookup identifiers in provider priority: id, linkedin_url,
// email, then name with current_employer.
func (d *dataset) find(q lookupParams) (Profile, bool) {
	for _, p := range d.profiles {
		if q.id != 0 && p.Person.ID == q.id {
			return p, true
		}
	}
	if q.linkedinURL != "" {
		want := normalizeURL(q.linkedinURL)
		for _, p := range d.profiles {
			if p.Person.LinkedInURL != "" && normalizeURL(p.Person.LinkedInURL) == want {
				return p, true
			}
		}
	}
	if q.email != "" {
		for _, p := range d.profiles {
			for _, e := range p.Person.Emails {
				if strings.EqualFold(e.Email, q.email) {
					return p, true
				}
			}
		}
	}
	if q.name != "" && q.employer != "" {
		for _, p := range d.profiles {
			if strings.EqualFold(p.Person.Name, q.name) && strings.EqualFold(p.Person.CurrentEmployer, q.employer) {
				return p, true
			}
		}
	}
	return Profile{}, false
}

// search keeps profiles where every supported filter has at least one value
// contained in the matching field. Unsupported filters are ignored.
func (d *dataset) search(filters map[string][]string) []people.Person {
	out := make([]people.Person, 0, len(d.profiles))
	for _, p := range d.profiles {
		if matchesAll(p, filters) {
			out = append(out, p.Person)
		}
	}
	return out
}

func matchesAll(p Profile, filters map[string][]string) bool {
	for key, values := range filters {
		field, ok := searchField(p, key)
		if !ok || len(values) == 0 {
			continue
		}
		if !containsAny(field, values) {
			return false
		}
	}
	return true
}

func searchField(p Profile, key string) (string, bool) {
	switch key {
	case "name":
		return p.Person.Name, true
	case "current_title":
		return p.Person.CurrentTitle, true
	case "current_employer":
		return p.Person.CurrentEmployer, true
	case "current_employer_domain":
		return p.Company.Domain, true
	case "location":
		return p.Person.Location, true
	case "linkedin_url":
		return normalizeURL(p.Person.LinkedInURL), true
	case "industry":
		return p.Company.Industry, true
	default:
		return "", false
	}
}

func containsAny(field string, values []string) bool {
	field = strings.ToLower(field)
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" && strings.Contains(field, v) {
			return true
		}
	}
	return false
}

func normalizeURL(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	return strings.TrimRight(u, "/")
}
