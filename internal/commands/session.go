package commands

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/gaborage/go-enrich/config"
	"github.com/gaborage/go-enrich/logger"
	"github.com/gaborage/go-enrich/observability"
	"github.com/gaborage/go-enrich/people"
)

// session is the per-invocation runtime: configuration, logger and the
// telemetry provider.
type session struct {
	cfg *config.Config
	log logger.Logger
	obs observability.Provider
	out io.Writer
}

func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigFile != "" {
		cfg, err = config.LoadFile(opts.ConfigFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	log := logger.NewWithOutput(cmd.ErrOrStderr(), level, cfg.Log.Pretty)

	obsCfg := cfg.Observability
	if obsCfg.Service.Version == "" {
		obsCfg.Service.Version = cfg.App.Version
	}
	if obsCfg.Environment == "" {
		obsCfg.Environment = cfg.App.Env
	}
	provider, err := observability.NewProvider(&obsCfg, observability.WithLogger(log))
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, log: log, obs: provider, out: cmd.OutOrStdout()}, nil
}

func (s *session) close() {
	if err := observability.Shutdown(s.obs, 0); err != nil {
		s.log.Warn().Err(err).Msg("Observability shutdown failed")
	}
}

// peopleClient requires an API key.
func (s *session) peopleClient() (*people.Client, error) {
	if err := s.cfg.RequireProviderKey(); err != nil {
		return nil, err
	}
	return people.NewClient(s.cfg.PeopleConfig(), s.log)
}

func (s *session) print(v any) error {
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// runWithSession adapts a session aware function to cobra's RunE.
func runWithSession(opts *RootOptions, fn func(ctx context.Context, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, opts)
		if err != nil {
			return err
		}
		defer s.close()
		return fn(cmd.Context(), s, args)
	}
}
