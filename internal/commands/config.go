package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gaborage/go-enrich/config"
)

// NewConfigCommand groups configuration inspection commands.
func NewConfigCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration keys and effective values",
	}
	cmd.AddCommand(newConfigKeysCommand(), newConfigShowCommand(root))
	return cmd
}

func newConfigKeysCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List configuration keys, their environment variables and rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys := config.Keys()
			if asJSON {
				s := &session{out: cmd.OutOrStdout()}
				return s.print(keys)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tENV\tTYPE\tDEFAULT\tRULES")
			for _, k := range keys {
				def := ""
				if k.Default != nil {
					def = fmt.Sprint(k.Default)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", k.Key, k.Env, k.Type, def, k.Rules)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newConfigShowCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with credentials masked",
		Args:  cobra.NoArgs,
		RunE: runWithSession(root, func(_ context.Context, s *session, _ []string) error {
			return s.print(s.cfg.Redacted())
		}),
	}
}
