package people

import (
	"errors"

	"github.com/gaborage/go-enrich/httpclient"
	"github.com/gaborage/go-enrich/validation"
)

// LookupQuery identifies a single person. At least one of ID, LinkedInURL,
// Email, NPINumber or Name (with CurrentEmployer) is required.
type LookupQuery struct {
	ID              int64  `json:"id" validate:"omitempty,gt=0"`
	LinkedInURL     string `json:"linkedin_url" validate:"omitempty,url"`
	Name            string `json:"name" validate:"required_without_all=ID LinkedInURL Email NPINumber"`
	CurrentEmployer string `json:"current_employer" validate:"required_with=Name"`
	Title           string `json:"title"`
	Email           string `json:"email" validate:"omitempty,email"`
	NPINumber       int64  `json:"npi_number" validate:"omitempty,gt=0"`
}

// Validate checks the query before it is sent. Failures are httpclient
// ValidationErrors naming the first bad field.
func (q LookupQuery) Validate() error {
	err := validation.Default().Struct(q)
	if err == nil {
		return nil
	}
	var verr *validation.Error
	if errors.As(err, &verr) {
		if fe, ok := verr.First(); ok {
			return httpclient.NewValidationError(verr.Error(), fe.Field)
		}
	}
	return httpclient.NewValidationError(err.Error(), "")
}

// Query returns the set fields as query parameters.
func (q LookupQuery) Query() httpclient.Query {
	out := httpclient.Query{}
	if q.ID != 0 {
		out["id"] = q.ID
	}
	if q.LinkedInURL != "" {
		out["linkedin_url"] = q.LinkedInURL
	}
	if q.Name != "" {
		out["name"] = q.Name
	}
	if q.CurrentEmployer != "" {
		out["current_employer"] = q.CurrentEmployer
	}
	if q.Title != "" {
		out["title"] = q.Title
	}
	if q.Email != "" {
		out["email"] = q.Email
	}
	if q.NPINumber != 0 {
		out["npi_number"] = q.NPINumber
	}
	return out
}

const (
	// DefaultPage is the first result page
	DefaultPage = 1
	// DefaultPageSize is the number of profiles per page
	DefaultPageSize = 10
	// DefaultOrderBy sorts results by relevance
	DefaultOrderBy = "relevance"
)

// SearchQuery holds people search filters. Every filter is a list of values
// the provider ORs together.
type SearchQuery struct {
	Name                  []string
	CurrentTitle          []string
	CurrentEmployer       []string
	CurrentEmployerDomain []string
	Location              []string
	LinkedInURL           []string
	ContactMethod         []string
	Industry              []string
	CompanySize           []string
	CompanyFunding        []string
	CompanyRevenue        []string
	Seniority             []string
	Skills                []string
	Education             []string

	OrderBy  string
	Page     int
	PageSize int
}

// Payload builds the request body: {query: {...}, page, page_size, order_by}.
func (q SearchQuery) Payload() map[string]any {
	filters := map[string]any{}
	add := func(key string, values []string) {
		if len(values) > 0 {
			filters[key] = values
		}
	}
	add("name", q.Name)
	add("current_title", q.CurrentTitle)
	add("current_employer", q.CurrentEmployer)
	add("current_employer_domain", q.CurrentEmployerDomain)
	add("location", q.Location)
	add("linkedin_url", q.LinkedInURL)
	add("contact_method", q.ContactMethod)
	add("industry", q.Industry)
	add("company_size", q.CompanySize)
	add("company_funding", q.CompanyFunding)
	add("company_revenue", q.CompanyRevenue)
	add("seniority", q.Seniority)
	add("skills", q.Skills)
	add("education", q.Education)

	page := q.Page
	if page <= 0 {
		page = DefaultPage
	}
	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	order := q.OrderBy
	if order == "" {
		order = DefaultOrderBy
	}

	return map[string]any{
		"query":     filters,
		"page":      page,
		"page_size": size,
		"order_by":  order,
	}
}
