package mockprovider

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/go-enrich/people"
)

const (
	notFoundMessage    = "Could not find the person"
	missingIdentifiers = "Must specify at least one of id, linkedin_url, email, npi_number or name with current_employer"
	maxPageSize        = 100
)

type lookupParams struct {
	id          int64
	linkedinURL string
	email       string
	name        string
	employer    string
	npi         int64
}

func (p lookupParams) empty() bool {
	return p.id == 0 && p.linkedinURL == "" && p.email == "" && p.npi == 0 && (p.name == "" || p.employer == "")
}

func parseLookup(c echo.Context) (lookupParams, error) {
	p := lookupParams{
		linkedinURL: strings.TrimSpace(c.QueryParam("linkedin_url")),
		email:       strings.TrimSpace(c.QueryParam("email")),
		name:        strings.TrimSpace(c.QueryParam("name")),
		employer:    strings.TrimSpace(c.QueryParam("current_employer")),
	}
	var err error
	if p.id, err = optionalInt(c, "id"); err != nil {
		return p, err
	}
	if p.npi, err = optionalInt(c, "npi_number"); err != nil {
		return p, err
	}
	if p.empty() {
		return p, echo.NewHTTPError(http.StatusBadRequest, missingIdentifiers)
	}
	return p, nil
}

func optionalInt(c echo.Context, name string) (int64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a positive integer")
	}
	return n, nil
}

func (s *Server) lookup(c echo.Context) error {
	q, err := parseLookup(c)
	if err != nil {
		return err
	}
	p, ok := s.data.find(q)
	if !ok {
		return c.JSON(http.StatusNotFound, errorDocument(http.StatusNotFound))
	}
	return c.JSON(http.StatusOK, p.lookupDocument())
}

func (s *Server) enrich(c echo.Context) error {
	q, err := parseLookup(c)
	if err != nil {
		return err
	}
	p, ok := s.data.find(q)
	if !ok {
		return c.JSON(http.StatusNotFound, errorDocument(http.StatusNotFound))
	}
	return c.JSON(http.StatusOK, p.enrichDocument())
}

type searchRequest struct {
	Query    map[string][]string `json:"query"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
	OrderBy  string              `json:"order_by"`
}

func (s *Server) search(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid search payload")
	}
	if req.Page <= 0 {
		req.Page = people.DefaultPage
	}
	if req.PageSize <= 0 {
		req.PageSize = people.DefaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	matches := s.data.search(req.Query)
	return c.JSON(http.StatusOK, paginate(matches, req.Page, req.PageSize))
}

// paginate slices one page. Start is the page number and Next is set only
// while more matches remain.
func paginate(matches []people.Person, page, size int) people.SearchResponse {
	resp := people.SearchResponse{
		Profiles:   []people.Person{},
		Pagination: people.Pagination{Total: len(matches), Start: page},
	}
	from := (page - 1) * size
	if from >= len(matches) {
		return resp
	}
	to := min(from+size, len(matches))
	resp.Profiles = matches[from:to]
	if to < len(matches) {
		next := page + 1
		resp.Pagination.Next = &next
	}
	return resp
}
