// Package commands implements the enrich command line interface.
package commands

import (
	"github.com/spf13/cobra"
)

// RootOptions holds flags shared by every command.
type RootOptions struct {
	ConfigFile string
	Verbose    bool
}

// NewRootCommand assembles the enrich command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Query the people-data provider and enrich CRM contacts",
		Long: `enrich talks to the people-data provider through a retrying, rate-limit aware client.

Configuration is read from config.yaml (or --config), config.<env>.yaml and
ENRICH_ prefixed environment variables. ENRICH_PROVIDER_APIKEY sets the API key.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "Config file (default: ./config.yaml when present)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Debug logging")

	cmd.AddCommand(
		NewLookupCommand(opts),
		NewPersonCommand(opts),
		NewSearchCommand(opts),
		NewContactsCommand(opts),
		NewConfigCommand(opts),
		NewVersionCommand(version),
	)
	return cmd
}
