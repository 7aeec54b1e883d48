package enrichment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-enrich/people"
)

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{
		"":             StrategyAuto,
		"auto":         StrategyAuto,
		"email":        StrategyEmail,
		"linkedin":     StrategyLinkedIn,
		"name_company": StrategyNameCompany,
	} {
		got, err := ParseStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseStrategy("phone")
	assert.ErrorContains(t, err, `unknown enrichment strategy "phone"`)
}

func TestCanEnrich(t *testing.T) {
	assert.False(t, CanEnrich(nil))
	assert.False(t, CanEnrich(&Contact{}))
	assert.False(t, CanEnrich(&Contact{FirstName: "Jane", Company: "Acme"}))
	assert.False(t, CanEnrich(&Contact{Email: "   "}))
	assert.True(t, CanEnrich(&Contact{Email: "jane@acme.io"}))
	assert.True(t, CanEnrich(&Contact{LinkedInProfile: "https://linkedin.com/in/jane"}))
	assert.True(t, CanEnrich(&Contact{FirstName: "Jane", LastName: "Doe", Company: "Acme"}))
}

func TestBuildQuery(t *testing.T) {
	full := &Contact{
		FirstName:       "Jane",
		LastName:        "Doe",
		Company:         "Acme",
		Email:           "jane@acme.io",
		LinkedInProfile: "https://www.linkedin.com/in/jane",
	}
	nameOnly := &Contact{FirstName: "Jane", LastName: "Doe", Company: "Acme"}
	linkedInOnly := &Contact{LinkedInProfile: "https://www.linkedin.com/in/jane"}

	tests := []struct {
		name     string
		contact  *Contact
		strategy Strategy
		want     people.LookupQuery
		wantErr  error
	}{
		{name: "auto prefers email", contact: full, strategy: StrategyAuto, want: people.LookupQuery{Email: "jane@acme.io"}},
		{name: "auto falls back to linkedin", contact: linkedInOnly, strategy: StrategyAuto, want: people.LookupQuery{LinkedInURL: "https://www.linkedin.com/in/jane"}},
		{name: "auto falls back to name and company", contact: nameOnly, strategy: StrategyAuto, want: people.LookupQuery{Name: "Jane Doe", CurrentEmployer: "Acme"}},
		{name: "auto without data", contact: &Contact{FirstName: "Jane"}, strategy: StrategyAuto, wantErr: ErrInsufficientData},
		{name: "unknown behaves like auto", contact: nameOnly, strategy: "fuzzy", want: people.LookupQuery{Name: "Jane Doe", CurrentEmployer: "Acme"}},
		{name: "explicit linkedin", contact: full, strategy: StrategyLinkedIn, want: people.LookupQuery{LinkedInURL: "https://www.linkedin.com/in/jane"}},
		{name: "explicit name company", contact: full, strategy: StrategyNameCompany, want: people.LookupQuery{Name: "Jane Doe", CurrentEmployer: "Acme"}},
		{name: "email missing", contact: nameOnly, strategy: StrategyEmail, wantErr: ErrEmailRequired},
		{name: "linkedin missing", contact: nameOnly, strategy: StrategyLinkedIn, wantErr: ErrLinkedInRequired},
		{name: "name company missing", contact: linkedInOnly, strategy: StrategyNameCompany, wantErr: ErrNameCompanyRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildQuery(tt.contact, tt.strategy)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, got.Validate())
		})
	}
}
