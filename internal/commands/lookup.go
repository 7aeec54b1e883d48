package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/gaborage/go-enrich/people"
)

// LookupOptions maps flags onto people.LookupQuery.
type LookupOptions struct {
	ID          int64
	Email       string
	LinkedInURL string
	Name        string
	Employer    string
	Title       string
	NPINumber   int64
}

func (o *LookupOptions) query() people.LookupQuery {
	return people.LookupQuery{
		ID:              o.ID,
		LinkedInURL:     o.LinkedInURL,
		Name:            o.Name,
		CurrentEmployer: o.Employer,
		Title:           o.Title,
		Email:           o.Email,
		NPINumber:       o.NPINumber,
	}
}

func (o *LookupOptions) bind(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&o.ID, "id", 0, "Provider profile id")
	cmd.Flags().StringVarP(&o.Email, "email", "e", "", "Email address")
	cmd.Flags().StringVarP(&o.LinkedInURL, "linkedin", "l", "", "LinkedIn profile URL")
	cmd.Flags().StringVarP(&o.Name, "name", "n", "", "Full name (requires --employer)")
	cmd.Flags().StringVar(&o.Employer, "employer", "", "Current employer")
	cmd.Flags().StringVar(&o.Title, "title", "", "Current title")
	cmd.Flags().Int64Var(&o.NPINumber, "npi", 0, "NPI number")
}

// NewLookupCommand creates the lookup command.
func NewLookupCommand(root *RootOptions) *cobra.Command {
	opts := &LookupOptions{}

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Look up one person profile",
		Example: `  enrich lookup --email jane@acme-analytics.io
  enrich lookup --name "Jane Doe" --employer "Acme Analytics"`,
		Args: cobra.NoArgs,
		RunE: runWithSession(root, func(ctx context.Context, s *session, _ []string) error {
			client, err := s.peopleClient()
			if err != nil {
				return err
			}
			person, err := client.Lookup(ctx, opts.query())
			if err != nil {
				return err
			}
			return s.print(person)
		}),
	}
	opts.bind(cmd)
	return cmd
}

// NewPersonCommand creates the person command, which returns the profile
// together with the current employer.
func NewPersonCommand(root *RootOptions) *cobra.Command {
	opts := &LookupOptions{}

	cmd := &cobra.Command{
		Use:     "person",
		Aliases: []string{"enrich"},
		Short:   "Enrich one person with their current employer",
		Example: `  enrich person --linkedin https://www.linkedin.com/in/janedoe`,
		Args:    cobra.NoArgs,
		RunE: runWithSession(root, func(ctx context.Context, s *session, _ []string) error {
			client, err := s.peopleClient()
			if err != nil {
				return err
			}
			resp, err := client.Enrich(ctx, opts.query())
			if err != nil {
				return err
			}
			if resp.NotFound() {
				return s.print(resp.Person)
			}
			return s.print(resp)
		}),
	}
	opts.bind(cmd)
	return cmd
}
