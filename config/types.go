package config

import (
	"time"

	"github.com/knadh/koanf/v2"

	"github.com/gaborage/go-enrich/enrichment/sqlstore"
	"github.com/gaborage/go-enrich/observability"
)

// Config is the configuration shared by the enrich CLI and the mock provider.
// The koanf instance stays attached so callers can read keys the struct does
// not model.
type Config struct {
	App           AppConfig            `koanf:"app"`
	Log           LogConfig            `koanf:"log"`
	Provider      ProviderConfig       `koanf:"provider"`
	Enrichment    EnrichmentConfig     `koanf:"enrichment"`
	Database      sqlstore.Config      `koanf:"database"`
	Observability observability.Config `koanf:"observability"`
	MockProvider  MockProviderConfig   `koanf:"mockprovider"`

	k *koanf.Koanf
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name    string `koanf:"name" validate:"required"`
	Version string `koanf:"version" validate:"required"`
	Env     string `koanf:"env" validate:"oneof=development staging production"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `koanf:"pretty"`
}

// ProviderConfig configures the people-data provider client.
type ProviderConfig struct {
	APIKey         string         `koanf:"apikey"`
	BaseURL        string         `koanf:"baseurl" validate:"required,http_url"`
	UserAgent      string         `koanf:"useragent"`
	Timeout        time.Duration  `koanf:"timeout" validate:"gt=0"`
	ConnectTimeout time.Duration  `koanf:"connecttimeout" validate:"gt=0"`
	SkipTLSVerify  bool           `koanf:"skiptlsverify"`
	Retry          RetryConfig    `koanf:"retry"`
	Rate           RateConfig     `koanf:"rate"`
	Headers        []HeaderConfig `koanf:"headers" validate:"dive"`
	LogPayloads    bool           `koanf:"logpayloads"`
}

// RetryConfig bounds provider attempts. Max counts every attempt, including the first.
type RetryConfig struct {
	Max   int           `koanf:"max" validate:"min=1"`
	Delay time.Duration `koanf:"delay" validate:"min=0"`
}

// RateConfig paces outgoing provider requests. A zero limit disables pacing.
type RateConfig struct {
	Limit float64 `koanf:"limit" validate:"min=0"`
	Burst int     `koanf:"burst" validate:"min=0"`
}

// HeaderConfig is an extra header sent after the provider's own headers.
type HeaderConfig struct {
	Name  string `koanf:"name" validate:"required"`
	Value string `koanf:"value"`
}

// Store backends for enrichment contacts.
const (
	StoreMemory = "memory"
	StoreSQL    = "sql"
)

// EnrichmentConfig configures the contact enrichment service.
type EnrichmentConfig struct {
	Strategy    string        `koanf:"strategy" validate:"oneof=auto email linkedin name_company"`
	Freshness   time.Duration `koanf:"freshness" validate:"min=0"`
	Concurrency int           `koanf:"concurrency" validate:"min=1"`
	Store       string        `koanf:"store" validate:"oneof=memory sql"`
	// ContactsFile seeds the memory store from a JSON array of contacts.
	ContactsFile string `koanf:"contactsfile"`
}

// MockProviderConfig configures the local provider emulator.
type MockProviderConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	APIKey  string        `koanf:"apikey"`
	Latency time.Duration `koanf:"latency" validate:"min=0"`
}
