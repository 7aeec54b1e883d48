package config

import (
	"errors"
	"fmt"

	"github.com/gaborage/go-enrich/enrichment/sqlstore"
	"github.com/gaborage/go-enrich/validation"
)

// Validate checks struct constraints first, then the rules spanning sections.
func Validate(cfg *Config) error {
	if err := validation.Default().Struct(cfg); err != nil {
		return toConfigError(err)
	}

	if cfg.Enrichment.Store == StoreSQL {
		if err := validateDatabase(&cfg.Database); err != nil {
			return err
		}
	}

	if err := cfg.Observability.Validate(); err != nil {
		return &ConfigError{
			Category: CategoryInvalid,
			Field:    "observability",
			Message:  err.Error(),
		}
	}
	return nil
}

func validateDatabase(db *sqlstore.Config) error {
	if db.Vendor == "" {
		return NewMissingFieldError("database.vendor", EnvName("database.vendor"), "database.vendor")
	}
	if db.ConnectionString != "" {
		return nil
	}
	if db.Host == "" {
		return NewMissingFieldError("database.host", EnvName("database.host"), "database.host")
	}
	if db.Port == 0 {
		return NewMissingFieldError("database.port", EnvName("database.port"), "database.port")
	}
	if db.Vendor == sqlstore.Oracle && db.ServiceName == "" && db.SID == "" && db.Database == "" {
		return &ConfigError{
			Category: CategoryMissing,
			Field:    "database.servicename",
			Message:  "oracle requires a service name, SID or database",
			Action:   "set one of database.servicename, database.sid or database.database",
		}
	}
	if db.Vendor == sqlstore.PostgreSQL && db.Database == "" {
		return NewMissingFieldError("database.database", EnvName("database.database"), "database.database")
	}
	return nil
}

// toConfigError reports the first failed field as a ConfigError and keeps the
// remaining failures as details.
func toConfigError(err error) error {
	var verr *validation.Error
	if !errors.As(err, &verr) {
		return err
	}
	first, ok := verr.First()
	if !ok {
		return err
	}

	cfgErr := &ConfigError{
		Category: CategoryInvalid,
		Field:    first.Path,
		Message:  first.Message,
	}
	if first.Tag == "required" {
		cfgErr.Category = CategoryMissing
		cfgErr.Action = fmt.Sprintf("set %s env var or add %s to config.yaml", EnvName(first.Path), first.Path)
	}
	for _, fe := range verr.Errors[1:] {
		cfgErr.Details = append(cfgErr.Details, fmt.Sprintf("%s: %s", fe.Path, fe.Message))
	}
	return cfgErr
}
