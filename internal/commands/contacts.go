package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gaborage/go-enrich/config"
	"github.com/gaborage/go-enrich/enrichment"
	"github.com/gaborage/go-enrich/enrichment/sqlstore"
	"github.com/gaborage/go-enrich/people"
)

// ContactsOptions selects the contact source.
type ContactsOptions struct {
	File string
}

// NewContactsCommand groups the contact enrichment commands.
func NewContactsCommand(root *RootOptions) *cobra.Command {
	opts := &ContactsOptions{}

	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Enrich stored CRM contacts",
		Long: `Contacts come from a JSON file (enrichment.store: memory) or from a SQL table
(enrichment.store: sql, PostgreSQL or Oracle).`,
	}
	cmd.PersistentFlags().StringVarP(&opts.File, "file", "f", "", "Contacts JSON file (overrides enrichment.contactsfile)")

	cmd.AddCommand(
		newContactsEnrichCommand(root, opts),
		newContactsStatusCommand(root, opts),
		newContactsStatsCommand(root, opts),
	)
	return cmd
}

type contactsEnrichOptions struct {
	Strategy string
	All      bool
	Save     bool
}

// resultView is the printed form of a single contact enrichment.
type resultView struct {
	Success bool                `json:"success"`
	Skipped bool                `json:"skipped,omitempty"`
	Message string              `json:"message,omitempty"`
	Contact *enrichment.Contact `json:"contact,omitempty"`
	Data    *enrichment.Data    `json:"data,omitempty"`
}

func newContactsEnrichCommand(root *RootOptions, contacts *ContactsOptions) *cobra.Command {
	opts := &contactsEnrichOptions{}

	cmd := &cobra.Command{
		Use:   "enrich [id...]",
		Short: "Enrich contacts by id",
		Example: `  enrich contacts enrich 42 --strategy email
  enrich contacts enrich --all --file contacts.json --save`,
		RunE: runWithSession(root, func(ctx context.Context, s *session, args []string) error {
			src, err := s.openContacts(ctx, contacts.File)
			if err != nil {
				return err
			}
			defer src.close()

			strategyName := opts.Strategy
			if strategyName == "" {
				strategyName = s.cfg.Enrichment.Strategy
			}
			strategy, err := enrichment.ParseStrategy(strategyName)
			if err != nil {
				return err
			}

			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if opts.All {
				if src.memory == nil {
					return fmt.Errorf("--all is only supported for the memory store")
				}
				ids = ids[:0]
				for _, c := range src.memory.Contacts() {
					ids = append(ids, c.ID)
				}
			}
			if len(ids) == 0 {
				return fmt.Errorf("no contact ids given")
			}

			svc, err := s.enrichmentService(src.store)
			if err != nil {
				return err
			}

			if err := enrichIDs(ctx, s, svc, ids, strategy); err != nil {
				return err
			}
			if opts.Save {
				return src.save()
			}
			return nil
		}),
	}

	cmd.Flags().StringVarP(&opts.Strategy, "strategy", "s", "", "email, linkedin, name_company or auto (default: enrichment.strategy)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "Enrich every contact in the file")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "Write enriched contacts back to the file")
	return cmd
}

func enrichIDs(ctx context.Context, s *session, svc *enrichment.Service, ids []int64, strategy enrichment.Strategy) error {
	if len(ids) == 1 {
		res, err := svc.EnrichContact(ctx, ids[0], strategy)
		if err != nil {
			return err
		}
		return s.print(resultView{
			Success: res.Success,
			Skipped: res.Skipped,
			Message: res.Message,
			Contact: res.Contact,
			Data:    res.Data,
		})
	}

	batch := svc.EnrichContacts(ctx, ids, strategy)
	if err := s.print(batch); err != nil {
		return err
	}
	if batch.Failed > 0 {
		return fmt.Errorf("%d of %d contacts failed", batch.Failed, len(ids))
	}
	return nil
}

func newContactsStatusCommand(root *RootOptions, contacts *ContactsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>",
		Short: "Show a contact's enrichment status",
		Args:  cobra.ExactArgs(1),
		RunE: runWithSession(root, func(ctx context.Context, s *session, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			src, err := s.openContacts(ctx, contacts.File)
			if err != nil {
				return err
			}
			defer src.close()

			report, err := enrichment.NewService(src.store, nil).Status(ctx, ids[0])
			if err != nil {
				return err
			}
			return s.print(report)
		}),
	}
}

func newContactsStatsCommand(root *RootOptions, contacts *ContactsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show enrichment totals",
		Args:  cobra.NoArgs,
		RunE: runWithSession(root, func(ctx context.Context, s *session, _ []string) error {
			src, err := s.openContacts(ctx, contacts.File)
			if err != nil {
				return err
			}
			defer src.close()

			stats, err := enrichment.NewService(src.store, nil).Stats(ctx)
			if err != nil {
				return err
			}
			return s.print(stats)
		}),
	}
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid contact id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// contactSource is an opened contact store.
type contactSource struct {
	store  enrichment.Store
	memory *enrichment.MemoryStore
	path   string
	closer func() error
}

func (c *contactSource) close() {
	if c.closer != nil {
		_ = c.closer()
	}
}

func (c *contactSource) save() error {
	if c.memory == nil {
		return nil
	}
	return writeContacts(c.path, c.memory.Contacts())
}

func (s *session) openContacts(ctx context.Context, file string) (*contactSource, error) {
	if s.cfg.Enrichment.Store == config.StoreSQL {
		db, err := sqlstore.Open(ctx, &s.cfg.Database, s.log)
		if err != nil {
			return nil, err
		}
		store := sqlstore.New(db, s.cfg.Database.Vendor, s.cfg.Database.Table, s.log)
		return &contactSource{store: store, closer: db.Close}, nil
	}

	path := file
	if path == "" {
		path = s.cfg.Enrichment.ContactsFile
	}
	if path == "" {
		return nil, config.NewMissingFieldError("enrichment.contactsfile",
			config.EnvName("enrichment.contactsfile"), "enrichment.contactsfile")
	}
	contacts, err := readContacts(path)
	if err != nil {
		return nil, err
	}
	mem := enrichment.NewMemoryStore(contacts...)
	s.log.Debug().Str("path", path).Int("contacts", len(contacts)).Msg("Loaded contacts file")
	return &contactSource{store: mem, memory: mem, path: path}, nil
}

// enrichmentService builds a Service. Without an API key the service still
// answers status queries but enrichment fails with ErrNotEnabled.
func (s *session) enrichmentService(store enrichment.Store) (*enrichment.Service, error) {
	opts := []enrichment.Option{
		enrichment.WithLogger(s.log),
		enrichment.WithFreshness(s.cfg.Enrichment.Freshness),
		enrichment.WithConcurrency(s.cfg.Enrichment.Concurrency),
	}
	if s.cfg.Provider.APIKey == "" {
		return enrichment.NewService(store, nil, opts...), nil
	}
	client, err := people.NewClient(s.cfg.PeopleConfig(), s.log)
	if err != nil {
		return nil, err
	}
	return enrichment.NewService(store, client, opts...), nil
}

func readContacts(path string) ([]*enrichment.Contact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read contacts: %w", err)
	}
	var contacts []*enrichment.Contact
	if err := json.Unmarshal(raw, &contacts); err != nil {
		return nil, fmt.Errorf("decode contacts %s: %w", path, err)
	}
	return contacts, nil
}

func writeContacts(path string, contacts []*enrichment.Contact) error {
	raw, err := json.MarshalIndent(contacts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode contacts: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o600); err != nil {
		return fmt.Errorf("write contacts: %w", err)
	}
	return nil
}
