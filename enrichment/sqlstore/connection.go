package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	go_ora "github.com/sijms/go-ora/v2"

	"github.com/gaborage/go-enrich/logger"
)

// Supported database vendors.
const (
	PostgreSQL = "postgresql"
	Oracle     = "oracle"
)

const defaultPingTimeout = 10 * time.Second

// Config describes a contact database connection.
type Config struct {
	Vendor           string        `koanf:"vendor" validate:"omitempty,oneof=postgresql oracle"`
	ConnectionString string        `koanf:"connectionstring"`
	Host             string        `koanf:"host"`
	Port             int           `koanf:"port" validate:"omitempty,min=1,max=65535"`
	Database         string        `koanf:"database"`
	ServiceName      string        `koanf:"servicename"`
	SID              string        `koanf:"sid"`
	Username         string        `koanf:"username"`
	Password         string        `koanf:"password"`
	SSLMode          string        `koanf:"sslmode"`
	Table            string        `koanf:"table"`
	MaxConns         int           `koanf:"maxconns" validate:"min=0"`
	MaxIdleConns     int           `koanf:"maxidleconns" validate:"min=0"`
	ConnMaxLifetime  time.Duration `koanf:"connmaxlifetime"`
	ConnMaxIdleTime  time.Duration `koanf:"connmaxidletime"`
}

// IsConfigured reports whether a database backs the contact store.
func (c *Config) IsConfigured() bool {
	return c.Vendor != "" && (c.ConnectionString != "" || c.Host != "")
}

var (
	openPostgresDB = func(cfg *pgx.ConnConfig) *sql.DB {
		return stdlib.OpenDB(*cfg)
	}
	openOracleDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("oracle", dsn)
	}
	pingDB = func(ctx context.Context, db *sql.DB) error {
		return db.PingContext(ctx)
	}
)

// Open connects to the configured database and verifies it with a ping.
func Open(ctx context.Context, cfg *Config, log logger.Logger) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Vendor {
	case PostgreSQL:
		db, err = openPostgres(cfg)
	case Oracle:
		db, err = openOracleDB(oracleDSN(cfg))
		if err != nil {
			err = fmt.Errorf("failed to open Oracle connection: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported database vendor %q", cfg.Vendor)
	}
	if err != nil {
		return nil, err
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if err := pingDB(pingCtx, db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Failed to close contact database after ping failure")
		}
		return nil, fmt.Errorf("failed to ping %s database: %w", cfg.Vendor, err)
	}

	log.Info().
		Str("vendor", cfg.Vendor).
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Msg("Connected to contact database")
	return db, nil
}

func openPostgres(cfg *Config) (*sql.DB, error) {
	pgxConfig, err := pgx.ParseConfig(postgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL config: %w", err)
	}
	return openPostgresDB(pgxConfig), nil
}

func postgresDSN(cfg *Config) string {
	if cfg.ConnectionString != "" {
		return cfg.ConnectionString
	}
	parts := []string{
		fmt.Sprintf("host=%s", quoteDSN(cfg.Host)),
		fmt.Sprintf("port=%d", cfg.Port),
		fmt.Sprintf("user=%s", quoteDSN(cfg.Username)),
		fmt.Sprintf("password=%s", quoteDSN(cfg.Password)),
		fmt.Sprintf("dbname=%s", quoteDSN(cfg.Database)),
	}
	if cfg.SSLMode != "" {
		parts = append(parts, fmt.Sprintf("sslmode=%s", cfg.SSLMode))
	}
	return strings.Join(parts, " ")
}

func oracleDSN(cfg *Config) string {
	switch {
	case cfg.ConnectionString != "":
		return cfg.ConnectionString
	case cfg.ServiceName != "":
		return go_ora.BuildUrl(cfg.Host, cfg.Port, cfg.ServiceName, cfg.Username, cfg.Password, nil)
	case cfg.SID != "":
		return go_ora.BuildUrl(cfg.Host, cfg.Port, "", cfg.Username, cfg.Password, map[string]string{"SID": cfg.SID})
	default:
		return go_ora.BuildUrl(cfg.Host, cfg.Port, cfg.Database, cfg.Username, cfg.Password, nil)
	}
}

// quoteDSN quotes a libpq keyword value when it contains anything besides
// letters, digits, '.', '_' and '-'.
func quoteDSN(value string) string {
	if value == "" {
		return "''"
	}
	plain := true
	for _, r := range value {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') &&
			(r < '0' || r > '9') && r != '.' && r != '_' && r != '-' {
			plain = false
			break
		}
	}
	if plain {
		return value
	}
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "'", `\'`)
	return "'" + escaped + "'"
}
