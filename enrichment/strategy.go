package enrichment

import (
	"errors"
	"fmt"

	"github.com/gaborage/go-enrich/people"
)

// Strategy selects which contact fields identify the person.
type Strategy string

const (
	StrategyEmail       Strategy = "email"
	StrategyLinkedIn    Strategy = "linkedin"
	StrategyNameCompany Strategy = "name_company"
	// StrategyAuto tries email, then LinkedIn, then name and company.
	StrategyAuto Strategy = "auto"
)

var (
	// ErrInsufficientData means no strategy can identify the contact.
	ErrInsufficientData = errors.New("insufficient data for enrichment. Need email, LinkedIn profile, or name+company")
	// ErrEmailRequired is returned by the email strategy for contacts without one.
	ErrEmailRequired = errors.New("email required for email strategy")
	// ErrLinkedInRequired is returned by the linkedin strategy for contacts without a profile.
	ErrLinkedInRequired = errors.New("LinkedIn profile required for linkedin strategy")
	// ErrNameCompanyRequired is returned by the name_company strategy for incomplete contacts.
	ErrNameCompanyRequired = errors.New("name and company required for name_company strategy")
)

// ParseStrategy maps a user supplied name to a Strategy. Empty means auto.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyAuto:
		return StrategyAuto, nil
	case StrategyEmail, StrategyLinkedIn, StrategyNameCompany:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown enrichment strategy %q", s)
	}
}

// CanEnrich reports whether the contact carries enough data for any strategy.
func CanEnrich(c *Contact) bool {
	if c == nil {
		return false
	}
	return notBlank(c.Email) || notBlank(c.LinkedInProfile) || c.hasNameAndCompany()
}

// BuildQuery turns a contact into a provider lookup for the given strategy.
// Unknown strategies behave like auto.
func BuildQuery(c *Contact, strategy Strategy) (people.LookupQuery, error) {
	switch strategy {
	case StrategyEmail:
		if !notBlank(c.Email) {
			return people.LookupQuery{}, ErrEmailRequired
		}
		return people.LookupQuery{Email: c.Email}, nil
	case StrategyLinkedIn:
		if !notBlank(c.LinkedInProfile) {
			return people.LookupQuery{}, ErrLinkedInRequired
		}
		return people.LookupQuery{LinkedInURL: c.LinkedInProfile}, nil
	case StrategyNameCompany:
		if !c.hasNameAndCompany() {
			return people.LookupQuery{}, ErrNameCompanyRequired
		}
		return nameCompanyQuery(c), nil
	}

	switch {
	case notBlank(c.Email):
		return people.LookupQuery{Email: c.Email}, nil
	case notBlank(c.LinkedInProfile):
		return people.LookupQuery{LinkedInURL: c.LinkedInProfile}, nil
	case c.hasNameAndCompany():
		return nameCompanyQuery(c), nil
	default:
		return people.LookupQuery{}, ErrInsufficientData
	}
}

func nameCompanyQuery(c *Contact) people.LookupQuery {
	return people.LookupQuery{Name: c.FullName(), CurrentEmployer: c.Company}
}
