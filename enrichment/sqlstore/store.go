// Package sqlstore persists enrichment contacts in PostgreSQL or Oracle.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/gaborage/go-enrich/enrichment"
	"github.com/gaborage/go-enrich/logger"
)

// DefaultTable is the contact table name.
const DefaultTable = "contacts"

var contactColumns = []string{
	"id", "first_name", "last_name", "email", "phone", "position", "company",
	"website", "linkedin_profile", "address", "notes",
	"enrichment_status", "enrichment_attempts", "enrichment_error",
	"enriched_at", "enrichment_source", "enrichment_data", "updated_at",
}

// Store is an enrichment.Store over database/sql.
type Store struct {
	db    *sql.DB
	sb    squirrel.StatementBuilderType
	table string
	log   logger.Logger
}

var _ enrichment.Store = (*Store)(nil)

// New creates a Store for the given vendor. An empty table selects DefaultTable.
func New(db *sql.DB, vendor, table string, log logger.Logger) *Store {
	if table == "" {
		table = DefaultTable
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Store{db: db, sb: statementBuilder(vendor), table: table, log: log}
}

func statementBuilder(vendor string) squirrel.StatementBuilderType {
	switch vendor {
	case PostgreSQL:
		return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	case Oracle:
		return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Colon)
	default:
		return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
	}
}

func (s *Store) GetContact(ctx context.Context, id int64) (*enrichment.Contact, error) {
	query, args, err := s.sb.Select(contactColumns...).
		From(s.table).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build contact query: %w", err)
	}

	var (
		c                                                     enrichment.Contact
		first, last, email, phone, position, company, website sql.NullString
		linkedin, address, notes, status, enrichErr, source   sql.NullString
		data                                                  sql.NullString
		attempts                                              sql.NullInt64
		enrichedAt, updatedAt                                 sql.NullTime
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&c.ID, &first, &last, &email, &phone, &position, &company,
		&website, &linkedin, &address, &notes,
		&status, &attempts, &enrichErr,
		&enrichedAt, &source, &data, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, enrichment.ErrContactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load contact %d: %w", id, err)
	}

	c.FirstName = first.String
	c.LastName = last.String
	c.Email = email.String
	c.Phone = phone.String
	c.Position = position.String
	c.Company = company.String
	c.Website = website.String
	c.LinkedInProfile = linkedin.String
	c.Address = address.String
	c.Notes = notes.String
	c.EnrichmentStatus = enrichment.Status(status.String)
	c.EnrichmentAttempts = int(attempts.Int64)
	c.EnrichmentError = enrichErr.String
	c.EnrichmentSource = source.String
	if enrichedAt.Valid {
		t := enrichedAt.Time
		c.EnrichedAt = &t
	}
	if data.Valid && data.String != "" {
		c.EnrichmentData = []byte(data.String)
	}
	if updatedAt.Valid {
		c.UpdatedAt = updatedAt.Time
	}
	return &c, nil
}

func (s *Store) UpdateContact(ctx context.Context, c *enrichment.Contact) error {
	query, args, err := s.sb.Update(s.table).
		SetMap(map[string]any{
			"email":               nullable(c.Email),
			"phone":               nullable(c.Phone),
			"position":            nullable(c.Position),
			"company":             nullable(c.Company),
			"website":             nullable(c.Website),
			"linkedin_profile":    nullable(c.LinkedInProfile),
			"address":             nullable(c.Address),
			"notes":               nullable(c.Notes),
			"enrichment_status":   string(c.CurrentStatus()),
			"enrichment_attempts": c.EnrichmentAttempts,
			"enrichment_error":    nullable(c.EnrichmentError),
			"enriched_at":         c.EnrichedAt,
			"enrichment_source":   nullable(c.EnrichmentSource),
			"enrichment_data":     nullable(string(c.EnrichmentData)),
			"updated_at":          c.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": c.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build contact update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update contact %d: %w", c.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update contact %d: %w", c.ID, err)
	}
	if n == 0 {
		return enrichment.ErrContactNotFound
	}
	s.log.Debug().Int64("contact_id", c.ID).Str("status", string(c.CurrentStatus())).Msg("Contact updated")
	return nil
}

func (s *Store) CountByStatus(ctx context.Context) (map[enrichment.Status]int, error) {
	query, args, err := s.sb.Select("enrichment_status", "COUNT(*)").
		From(s.table).
		GroupBy("enrichment_status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build status count: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count contacts by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[enrichment.Status]int)
	for rows.Next() {
		var (
			status sql.NullString
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("count contacts by status: %w", err)
		}
		key := enrichment.Status(status.String)
		if key == "" {
			key = enrichment.StatusPending
		}
		counts[key] += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count contacts by status: %w", err)
	}
	return counts, nil
}

// nullable maps empty strings to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
