package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Profile  string `json:"linkedin_url" validate:"omitempty,linkedin_url"`
	Name     string `json:"name" validate:"required_without_all=Email Profile"`
	Employer string `koanf:"current_employer" validate:"required_with=Name"`
	Level    string `validate:"omitempty,oneof=debug info"`
}

func TestStructValid(t *testing.T) {
	assert.NoError(t, Default().Struct(sample{Email: "jane@example.com"}))
	assert.NoError(t, Default().Struct(sample{Profile: "https://www.linkedin.com/in/jane"}))
	assert.NoError(t, Default().Struct(sample{Name: "Jane", Employer: "Acme"}))
}

func TestStructFieldErrorsUseTagNames(t *testing.T) {
	err := New().Struct(sample{Email: "nope", Profile: "https://example.com/in/jane", Level: "trace"})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))

	fields := map[string]string{}
	for _, fe := range verr.Errors {
		fields[fe.Field] = fe.Tag
	}
	assert.Equal(t, "email", fields["email"])
	assert.Equal(t, "linkedin_url", fields["linkedin_url"])
	assert.Equal(t, "oneof", fields["Level"])
	assert.Contains(t, err.Error(), "must be a LinkedIn profile URL")
}

func TestStructConditionalRequirements(t *testing.T) {
	err := New().Struct(sample{})
	var verr *Error
	require.True(t, errors.As(err, &verr))
	first, ok := verr.First()
	require.True(t, ok)
	assert.Equal(t, "name", first.Field)
	assert.Equal(t, "name is required when none of Email, Profile is set", first.Message)

	err = New().Struct(sample{Name: "Jane"})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "current_employer", verr.Errors[0].Field)
}

func TestErrorFormatting(t *testing.T) {
	assert.Equal(t, "validation failed", (&Error{}).Error())
	_, ok := (&Error{}).First()
	assert.False(t, ok)

	e := &Error{Errors: []FieldError{{Message: "a is required"}, {Message: "b is required"}}}
	assert.Equal(t, "validation failed: a is required; b is required", e.Error())
}

func TestNonStructInput(t *testing.T) {
	err := New().Struct("not a struct")
	require.Error(t, err)
	var verr *Error
	assert.False(t, errors.As(err, &verr))
}
