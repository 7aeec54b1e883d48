package validation

import (
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

const trueValue = "true"

var (
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
)

// Rule describes the validation constraints of one leaf field of a struct.
type Rule struct {
	Path        string            // dotted location, named like FieldError.Path
	Type        string            // value kind: string, int, float, bool, duration, list
	Required    bool              // validate tag contains required
	Constraints map[string]string // validate tag as key=value; bare flags map to "true"
}

// Describe walks t and returns one Rule per exported leaf field. Nested
// structs are flattened into dotted paths; pointers are followed.
func Describe(t reflect.Type) []Rule {
	var rules []Rule
	describe(t, "", &rules)
	return rules
}

func describe(t reflect.Type, prefix string, rules *[]Rule) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := tagName(field)
		if name == "" {
			continue
		}
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		ft := field.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && ft != timeType {
			describe(ft, path, rules)
			continue
		}

		constraints := make(map[string]string)
		parseValidateTag(field.Tag.Get("validate"), constraints)
		_, required := constraints["required"]
		*rules = append(*rules, Rule{
			Path:        path,
			Type:        kindName(ft),
			Required:    required,
			Constraints: constraints,
		})
	}
}

// parseValidateTag splits a validate tag into constraints. Structural
// markers (omitempty, dive) are dropped.
func parseValidateTag(validate string, constraints map[string]string) {
	for _, part := range strings.Split(validate, ",") {
		part = strings.TrimSpace(part)
		switch part {
		case "", "omitempty", "dive":
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			constraints[part] = trueValue
			continue
		}
		constraints[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"`)
	}
}

func kindName(t reflect.Type) string {
	if t == durationType {
		return "duration"
	}
	if t == timeType {
		return "time"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "int"
	case reflect.Float32, reflect.Float64:
		return "float"
	case reflect.Slice, reflect.Array:
		return "list"
	case reflect.Map:
		return "map"
	default:
		return t.Kind().String()
	}
}

// Min returns the min (or gte) constraint.
func (r Rule) Min() (float64, bool) {
	return r.number("min", "gte")
}

// Max returns the max (or lte) constraint.
func (r Rule) Max() (float64, bool) {
	return r.number("max", "lte")
}

func (r Rule) number(keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := r.Constraints[k]; ok {
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// Enum returns the oneof values.
func (r Rule) Enum() ([]string, bool) {
	values := strings.Fields(r.Constraints["oneof"])
	return values, len(values) > 0
}

// String renders the constraints in a stable order, e.g. "required,http_url".
func (r Rule) String() string {
	keys := make([]string, 0, len(r.Constraints))
	for k := range r.Constraints {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		// required first, the rest alphabetical
		if (keys[i] == "required") != (keys[j] == "required") {
			return keys[i] == "required"
		}
		return keys[i] < keys[j]
	})

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if v := r.Constraints[k]; v != trueValue {
			parts = append(parts, k+"="+v)
		} else {
			parts = append(parts, k)
		}
	}
	return strings.Join(parts, ",")
}
