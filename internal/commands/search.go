package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/gaborage/go-enrich/people"
)

// NewSearchCommand creates the search command. Repeating a filter flag, or
// passing comma separated values, ORs the values together.
func NewSearchCommand(root *RootOptions) *cobra.Command {
	q := &people.SearchQuery{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search people profiles",
		Example: `  enrich search --employer "Acme Analytics" --title cto,founder
  enrich search --location Austin --page 2 --page-size 25`,
		Args: cobra.NoArgs,
		RunE: runWithSession(root, func(ctx context.Context, s *session, _ []string) error {
			client, err := s.peopleClient()
			if err != nil {
				return err
			}
			resp, err := client.Search(ctx, *q)
			if err != nil {
				return err
			}
			s.log.Debug().
				Int("total", resp.Total()).
				Int("count", resp.Count()).
				Bool("has_next", resp.HasNextPage()).
				Msg("Search page received")
			return s.print(resp)
		}),
	}

	f := cmd.Flags()
	f.StringSliceVarP(&q.Name, "name", "n", nil, "Name")
	f.StringSliceVar(&q.CurrentTitle, "title", nil, "Current title")
	f.StringSliceVar(&q.CurrentEmployer, "employer", nil, "Current employer")
	f.StringSliceVar(&q.CurrentEmployerDomain, "domain", nil, "Current employer domain")
	f.StringSliceVar(&q.Location, "location", nil, "Location")
	f.StringSliceVar(&q.LinkedInURL, "linkedin", nil, "LinkedIn profile URL")
	f.StringSliceVar(&q.ContactMethod, "contact-method", nil, "Available contact method")
	f.StringSliceVar(&q.Industry, "industry", nil, "Employer industry")
	f.StringSliceVar(&q.CompanySize, "company-size", nil, "Employer size range")
	f.StringSliceVar(&q.CompanyFunding, "company-funding", nil, "Employer funding range")
	f.StringSliceVar(&q.CompanyRevenue, "company-revenue", nil, "Employer revenue range")
	f.StringSliceVar(&q.Seniority, "seniority", nil, "Seniority")
	f.StringSliceVar(&q.Skills, "skills", nil, "Skills")
	f.StringSliceVar(&q.Education, "education", nil, "Education")
	f.StringVar(&q.OrderBy, "order-by", people.DefaultOrderBy, "Result ordering")
	f.IntVar(&q.Page, "page", people.DefaultPage, "Page number")
	f.IntVar(&q.PageSize, "page-size", people.DefaultPageSize, "Profiles per page")

	return cmd
}
