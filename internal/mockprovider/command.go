package mockprovider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gaborage/go-enrich/config"
	"github.com/gaborage/go-enrich/logger"
	"github.com/gaborage/go-enrich/observability"
)

const shutdownTimeout = 10 * time.Second

// CommandOptions holds the mockprovider command flags.
type CommandOptions struct {
	ConfigFile   string
	ProfilesFile string
	Failures     []string
}

// NewCommand creates the mockprovider root command. It serves until ctx is
// cancelled.
func NewCommand(version string) *cobra.Command {
	opts := &CommandOptions{}

	cmd := &cobra.Command{
		Use:   "mockprovider",
		Short: "Run a local emulator of the people-data provider API",
		Example: `  mockprovider
  mockprovider --profiles profiles.json --fail 429:2,500,malformed`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "Config file (default: ./config.yaml when present)")
	cmd.Flags().StringVarP(&opts.ProfilesFile, "profiles", "p", "", "JSON profiles dataset (default: built-in)")
	cmd.Flags().StringSliceVar(&opts.Failures, "fail", nil, "Failures to serve first: 429[:seconds], any status code, or malformed")
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, opts *CommandOptions) error {
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
		return err
	}
	log := logger.NewWithOutput(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Pretty)

	failures, err := ParseFailures(opts.Failures)
	if err != nil {
		return err
	}
	var profiles []Profile
	if opts.ProfilesFile != "" {
		if profiles, err = LoadProfiles(opts.ProfilesFile); err != nil {
			return err
		}
	}

	obsCfg := cfg.Observability
	obsCfg.Service.Name = defaultServiceName
	if obsCfg.Service.Version == "" {
		obsCfg.Service.Version = cfg.App.Version
	}
	provider, err := observability.NewProvider(&obsCfg, observability.WithLogger(log))
	if err != nil {
		return err
	}
	defer func() {
		if err := observability.Shutdown(provider, shutdownTimeout); err != nil {
			log.Warn().Err(err).Msg("Observability shutdown failed")
		}
	}()

	srv := New(Config{
		Host:        cfg.MockProvider.Host,
		Port:        cfg.MockProvider.Port,
		APIKey:      cfg.MockProvider.APIKey,
		Latency:     cfg.MockProvider.Latency,
		ServiceName: defaultServiceName,
	}, profiles, log)
	srv.Enqueue(failures...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down mock provider...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("mock provider shutdown: %w", err)
	}
	return <-errCh
}

// ParseFailures reads --fail values: "429" or "429:<seconds>" for throttling,
// "malformed" for an undecodable body, or any other HTTP status code.
func ParseFailures(specs []string) ([]Failure, error) {
	out := make([]Failure, 0, len(specs))
	for _, raw := range specs {
		spec := strings.ToLower(strings.TrimSpace(raw))
		if spec == "" {
			continue
		}
		if spec == "malformed" {
			out = append(out, MalformedJSON())
			continue
		}

		code, wait, hasWait := strings.Cut(spec, ":")
		status, err := strconv.Atoi(code)
		if err != nil || status < http.StatusBadRequest || status > 599 {
			return nil, fmt.Errorf("invalid failure %q: want a 4xx/5xx status or malformed", raw)
		}
		f := Failure{Status: status}
		if hasWait {
			if status != http.StatusTooManyRequests {
				return nil, errors.New("only 429 failures take a retry-after value")
			}
			if f.RetryAfter, err = strconv.Atoi(wait); err != nil || f.RetryAfter < 0 {
				return nil, fmt.Errorf("invalid retry-after in %q", raw)
			}
		}
		out = append(out, f)
	}
	return out, nil
}
