package config

import (
	"reflect"
	"strings"

	"github.com/gaborage/go-enrich/logger"
	"github.com/gaborage/go-enrich/validation"
)

// KeyInfo documents one configuration key.
type KeyInfo struct {
	Key     string `json:"key"`
	Env     string `json:"env"`
	Type    string `json:"type"`
	Default any    `json:"default,omitempty"`
	Rules   string `json:"rules,omitempty"`
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Keys lists every modelled configuration key in declaration order.
func Keys() []KeyInfo {
	defaults := defaultValues()
	rules := validation.Describe(reflect.TypeOf(Config{}))

	out := make([]KeyInfo, 0, len(rules))
	for _, r := range rules {
		out = append(out, KeyInfo{
			Key:     r.Path,
			Env:     EnvName(r.Path),
			Type:    r.Type,
			Default: defaults[r.Path],
			Rules:   r.String(),
		})
	}
	return out
}

// Redacted returns the effective flattened configuration with credentials
// masked.
func (c *Config) Redacted() map[string]any {
	all := c.All()
	if all == nil {
		return nil
	}
	fc := logger.DefaultFilterConfig()
	fc.SensitiveFields = append(fc.SensitiveFields, "connectionstring")
	filter := logger.NewSensitiveDataFilter(fc)

	for k, v := range all {
		all[k] = filter.FilterValue(k, v)
	}
	return all
}
