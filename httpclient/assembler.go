package httpclient

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// BuildURL joins base and path with exactly one slash and appends the encoded
// query when it is non-empty. Sequences encode as repeated keys, nested maps as
// key[sub], booleans as 1/0. Nil values are skipped.
func BuildURL(base, path string, query Query) (string, error) {
	u := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")

	values, err := encodeQuery(query)
	if err != nil {
		return "", err
	}
	if len(values) == 0 {
		return u, nil
	}
	return u + "?" + values.Encode(), nil
}

// BuildHeaders flattens headers into "Key: Value" lines, preserving order.
func BuildHeaders(headers []Header) []string {
	lines := make([]string, 0, len(headers))
	for _, h := range headers {
		lines = append(lines, h.Key+": "+h.Value)
	}
	return lines
}

// HeadersFromMap converts a map into headers sorted by key.
func HeadersFromMap(m map[string]string) []Header {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	headers := make([]Header, 0, len(m))
	for _, k := range keys {
		headers = append(headers, Header{Key: k, Value: m[k]})
	}
	return headers
}

// validateBaseURL rejects base URLs that cannot address a provider.
func validateBaseURL(base string) error {
	if strings.TrimSpace(base) == "" {
		return NewConfigurationError("base URL is required", "base_url")
	}
	u, err := url.Parse(base)
	if err != nil {
		return NewConfigurationError(fmt.Sprintf("base URL is malformed: %v", err), "base_url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return NewConfigurationError("base URL must use http or https", "base_url")
	}
	if u.Host == "" {
		return NewConfigurationError("base URL must include a host", "base_url")
	}
	return nil
}

func encodeQuery(query Query) (url.Values, error) {
	values := url.Values{}
	for key, v := range query {
		if err := addQueryValue(values, key, v); err != nil {
			return nil, err
		}
	}
	return values, nil
}

func addQueryValue(values url.Values, key string, v any) error {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		values.Add(key, val)
		return nil
	case bool:
		if val {
			values.Add(key, "1")
		} else {
			values.Add(key, "0")
		}
		return nil
	case fmt.Stringer:
		values.Add(key, val.String())
		return nil
	case map[string]any:
		for sub, item := range val {
			if err := addQueryValue(values, key+"["+sub+"]", item); err != nil {
				return err
			}
		}
		return nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		values.Add(key, strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		values.Add(key, strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		values.Add(key, strconv.FormatFloat(rv.Float(), 'f', -1, 64))
	case reflect.Slice, reflect.Array:
		for i := range rv.Len() {
			item := rv.Index(i)
			if item.Kind() == reflect.Interface && !item.IsNil() {
				item = item.Elem()
			}
			if k := item.Kind(); k == reflect.Slice || k == reflect.Array {
				return NewValidationError("nested sequences are not supported in query", key)
			}
			if err := addQueryValue(values, key, item.Interface()); err != nil {
				return err
			}
		}
	default:
		return NewValidationError(fmt.Sprintf("unsupported query value type %T", v), key)
	}
	return nil
}
