// Package config loads go-enrich configuration from defaults, YAML files and
// ENRICH_ prefixed environment variables using koanf.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/gaborage/go-enrich/httpclient"
	"github.com/gaborage/go-enrich/people"
)

// EnvPrefix scopes environment overrides. ENRICH_PROVIDER_APIKEY sets provider.apikey.
const EnvPrefix = "ENRICH_"

// Environment names accepted in app.env.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

const defaultConfigFile = "config.yaml"

// Load reads configuration with priority, highest first:
//  1. ENRICH_ environment variables
//  2. config.<app.env>.yaml
//  3. config.yaml
//  4. defaults
//
// Missing YAML files are skipped.
func Load() (*Config, error) {
	return load(defaultConfigFile, true)
}

// LoadFile is like Load but reads path instead of config.yaml. Unlike Load,
// a missing file is an error.
func LoadFile(path string) (*Config, error) {
	return load(path, false)
}

// LoadFromBytes reads YAML content on top of the defaults. Environment
// variables still take precedence.
func LoadFromBytes(data []byte) (*Config, error) {
	k := koanf.New(".")
	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := loadEnv(k); err != nil {
		return nil, err
	}
	return finish(k)
}

func load(path string, optional bool) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := loadYAML(k, path, optional); err != nil {
		return nil, err
	}

	if appEnv := envOverride("app.env", k.String("app.env")); appEnv != "" {
		if err := loadYAML(k, fmt.Sprintf("config.%s.yaml", appEnv), true); err != nil {
			return nil, err
		}
	}

	if err := loadEnv(k); err != nil {
		return nil, err
	}
	return finish(k)
}

func loadYAML(k *koanf.Koanf, path string, optional bool) error {
	if _, err := os.Stat(path); err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func loadEnv(k *koanf.Koanf) error {
	err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
	}), nil)
	if err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	return nil
}

// envKey maps ENRICH_PROVIDER_APIKEY to provider.apikey.
func envKey(k, v string) (string, any) {
	key := strings.TrimPrefix(k, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "_", "."), v
}

// envOverride returns the environment value for key, or fallback.
func envOverride(key, fallback string) string {
	if v, ok := os.LookupEnv(EnvName(key)); ok {
		return v
	}
	return fallback
}

func finish(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	return k.Load(confmap.Provider(defaultValues(), "."), nil)
}

func defaultValues() map[string]any {
	return map[string]any{
		"app.name":    "go-enrich",
		"app.version": "v1.0.0",
		"app.env":     EnvDevelopment,

		"log.level":  "info",
		"log.pretty": false,

		"provider.baseurl":        people.DefaultBaseURL,
		"provider.useragent":      people.DefaultUserAgent,
		"provider.timeout":        "30s",
		"provider.connecttimeout": "10s",
		"provider.retry.max":      3,
		"provider.retry.delay":    "1s",
		"provider.rate.limit":     0,
		"provider.rate.burst":     1,
		"provider.logpayloads":    false,

		"enrichment.strategy":    "auto",
		"enrichment.freshness":   "24h",
		"enrichment.concurrency": 4,
		"enrichment.store":       StoreMemory,

		// the database section is only read when enrichment.store is sql
		"database.table": "contacts",

		"observability.enabled":      false,
		"observability.service.name": "go-enrich",

		"mockprovider.host":   "127.0.0.1",
		"mockprovider.port":   8089,
		"mockprovider.apikey": "local-dev-key",
	}
}

// PeopleConfig converts the provider section into a people.Config.
func (c *Config) PeopleConfig() people.Config {
	p := c.Provider
	pc := people.Config{
		APIKey:         p.APIKey,
		BaseURL:        p.BaseURL,
		UserAgent:      p.UserAgent,
		Timeout:        p.Timeout,
		ConnectTimeout: p.ConnectTimeout,
		SkipTLSVerify:  p.SkipTLSVerify,
		MaxRetries:     p.Retry.Max,
		RetryDelay:     httpclient.DurationPtr(p.Retry.Delay),
		RateLimit:      p.Rate.Limit,
		RateBurst:      p.Rate.Burst,
		LogPayloads:    p.LogPayloads,
	}
	for _, h := range p.Headers {
		pc.Headers = append(pc.Headers, httpclient.Header{Key: h.Name, Value: h.Value})
	}
	return pc
}

// RequireProviderKey reports a missing provider API key as a ConfigError.
func (c *Config) RequireProviderKey() error {
	if strings.TrimSpace(c.Provider.APIKey) == "" {
		return NewMissingFieldError("provider.apikey", EnvName("provider.apikey"), "provider.apikey")
	}
	return nil
}
