package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var errNotInitialized = errors.New("configuration not initialized")

// GetString returns the value at key, or the first default when unset.
func (c *Config) GetString(key string, def ...string) string {
	if !c.Exists(key) {
		return first(def)
	}
	return c.k.String(key)
}

// GetInt returns the value at key as an int. Unset or unconvertible values
// yield the first default.
func (c *Config) GetInt(key string, def ...int) int {
	return typed(c, key, toInt, def)
}

// GetFloat64 is GetInt for floats.
func (c *Config) GetFloat64(key string, def ...float64) float64 {
	return typed(c, key, toFloat64, def)
}

// GetBool accepts booleans, strconv.ParseBool strings and numbers.
func (c *Config) GetBool(key string, def ...bool) bool {
	return typed(c, key, toBool, def)
}

// GetDuration accepts time.ParseDuration strings; bare numbers are seconds.
func (c *Config) GetDuration(key string, def ...time.Duration) time.Duration {
	return typed(c, key, toDuration, def)
}

// GetRequiredString returns the trimmed value at key and fails when it is
// unset or blank.
func (c *Config) GetRequiredString(key string) (string, error) {
	if !c.Exists(key) {
		return "", missingKey(key)
	}
	s := strings.TrimSpace(c.k.String(key))
	if s == "" {
		return "", fmt.Errorf("configuration key %q is empty", key)
	}
	return s, nil
}

// GetRequiredInt returns the int at key and fails when it is unset or not an
// integer.
func (c *Config) GetRequiredInt(key string) (int, error) {
	if c == nil || c.k == nil {
		return 0, errNotInitialized
	}
	if !c.k.Exists(key) {
		return 0, missingKey(key)
	}
	n, err := toInt(c.k.Get(key))
	if err != nil {
		return 0, fmt.Errorf("configuration key %q is invalid: %w", key, err)
	}
	return n, nil
}

// Unmarshal decodes the section at key into out.
func (c *Config) Unmarshal(key string, out any) error {
	if c == nil || c.k == nil {
		return errNotInitialized
	}
	return c.k.Unmarshal(key, out)
}

// Exists reports whether key is set.
func (c *Config) Exists(key string) bool {
	return c != nil && c.k != nil && c.k.Exists(key)
}

// All returns every loaded key with dotted names.
func (c *Config) All() map[string]any {
	if c == nil || c.k == nil {
		return nil
	}
	return c.k.All()
}

func typed[T any](c *Config, key string, conv func(any) (T, error), def []T) T {
	if !c.Exists(key) {
		return first(def)
	}
	v, err := conv(c.k.Get(key))
	if err != nil {
		return first(def)
	}
	return v
}

func first[T any](values []T) T {
	var zero T
	if len(values) == 0 {
		return zero
	}
	return values[0]
}

func missingKey(key string) error {
	return fmt.Errorf("configuration key %q is missing", key)
}
