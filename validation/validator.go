// Package validation wraps go-playground/validator with the rules and error
// formatting shared by provider queries and configuration.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator with custom rules registered.
type Validator struct {
	validate *validator.Validate
}

var (
	defaultValidator *Validator
	defaultOnce      sync.Once
)

// Default returns a process-wide Validator.
func Default() *Validator {
	defaultOnce.Do(func() {
		defaultValidator = New()
	})
	return defaultValidator
}

// New creates a Validator. Field names in errors follow json, then koanf tags.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(tagName)
	// registration only fails for empty tags or nil funcs
	_ = v.RegisterValidation("linkedin_url", validateLinkedInURL)
	return &Validator{validate: v}
}

// Struct validates s and returns *Error for field failures.
func (v *Validator) Struct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return newError(validationErrors)
		}
		return err
	}
	return nil
}

// Error lists every failed field.
type Error struct {
	Errors []FieldError `json:"errors"`
}

// FieldError describes one failed field.
// Path is the dotted location of the field below the validated struct.
type FieldError struct {
	Field   string `json:"field"`
	Path    string `json:"path,omitempty"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func newError(errs validator.ValidationErrors) *Error {
	fieldErrors := make([]FieldError, 0, len(errs))
	for _, fe := range errs {
		fieldErrors = append(fieldErrors, FieldError{
			Field:   fe.Field(),
			Path:    fieldPath(fe.Namespace()),
			Tag:     fe.Tag(),
			Message: message(fe),
			Value:   fmt.Sprintf("%v", fe.Value()),
		})
	}
	return &Error{Errors: fieldErrors}
}

func (e *Error) Error() string {
	switch len(e.Errors) {
	case 0:
		return "validation failed"
	case 1:
		return fmt.Sprintf("validation failed: %s", e.Errors[0].Message)
	default:
		msgs := make([]string, 0, len(e.Errors))
		for _, fe := range e.Errors {
			msgs = append(msgs, fe.Message)
		}
		return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
	}
}

// First returns the first failed field, if any.
func (e *Error) First() (FieldError, bool) {
	if len(e.Errors) == 0 {
		return FieldError{}, false
	}
	return e.Errors[0], true
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "required_with":
		return fmt.Sprintf("%s is required when %s is set", fe.Field(), paramNames(fe.Param()))
	case "required_without_all":
		return fmt.Sprintf("%s is required when none of %s is set", fe.Field(), paramNames(fe.Param()))
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "url", "http_url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	case "linkedin_url":
		return fmt.Sprintf("%s must be a LinkedIn profile URL", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func paramNames(param string) string {
	return strings.Join(strings.Fields(param), ", ")
}

func tagName(field reflect.StructField) string {
	for _, key := range []string{"json", "koanf"} {
		name, _, _ := strings.Cut(field.Tag.Get(key), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return field.Name
}

// validateLinkedInURL accepts http(s) URLs on linkedin.com or a subdomain.
func validateLinkedInURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "linkedin.com" || strings.HasSuffix(host, ".linkedin.com")
}
