package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// largest float64 strictly below 2^63
var maxExactInt64 = math.Nextafter(math.MaxInt64, 0)

var errEmptyString = errors.New("empty string")

func unsupported(v any) error {
	return fmt.Errorf("cannot convert %T", v)
}

// trimmed returns the non-blank content of a string value.
func trimmed(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errEmptyString
	}
	return s, nil
}

func toInt(v any) (int, error) {
	n, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	if n < math.MinInt || n > math.MaxInt {
		return 0, fmt.Errorf("%d does not fit in int", n)
	}
	return int(n), nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("%d does not fit in int64", n)
		}
		return int64(n), nil //#nosec G115 -- bounds checked
	case float64:
		return floatToInt64(n)
	case string:
		s, err := trimmed(n)
		if err != nil {
			return 0, err
		}
		return strconv.ParseInt(s, 10, 64)
	}
	return 0, unsupported(v)
}

func floatToInt64(f float64) (int64, error) {
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return 0, fmt.Errorf("%v is not a finite number", f)
	case f != math.Trunc(f):
		return 0, fmt.Errorf("%v has a fractional part", f)
	case f < math.MinInt64 || f > maxExactInt64:
		return 0, fmt.Errorf("%v does not fit in int64", f)
	}
	return int64(f), nil
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		s, err := trimmed(n)
		if err != nil {
			return 0, err
		}
		return strconv.ParseFloat(s, 64)
	}
	return 0, unsupported(v)
}

// toBool treats non-zero integers as true.
func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		s, err := trimmed(b)
		if err != nil {
			return false, err
		}
		return strconv.ParseBool(s)
	case int, int64, float64:
		n, err := toInt64(b)
		return n != 0, err
	}
	return false, unsupported(v)
}

func toDuration(v any) (time.Duration, error) {
	var secs float64
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case string:
		s, err := trimmed(d)
		if err != nil {
			return 0, err
		}
		if parsed, err := time.ParseDuration(s); err == nil {
			return parsed, nil
		}
		if secs, err = strconv.ParseFloat(s, 64); err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
	case int, int64, float64:
		f, err := toFloat64(d)
		if err != nil {
			return 0, err
		}
		secs = f
	default:
		return 0, unsupported(v)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
