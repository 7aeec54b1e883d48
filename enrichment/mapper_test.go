package enrichment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gaborage/go-enrich/people"
)

func TestExtractData(t *testing.T) {
	d := extractData(&people.EnrichResponse{
		Person: people.Person{ID: 7, Name: "Jane", CurrentTitle: "CTO"},
	})
	assert.Equal(t, "CTO", d.Person.Title)
	assert.NotNil(t, d.Person.Emails)
	assert.NotNil(t, d.Person.Phones)
	assert.Nil(t, d.Company)

	d = extractData(&people.EnrichResponse{Company: people.Company{Name: "Acme", Domain: "acme.io", Website: "https://www.acme.io"}})
	assert.Equal(t, &CompanyData{Name: "Acme", Domain: "acme.io"}, d.Company)
}

func TestApplyDataFillsOnlyEmptyFields(t *testing.T) {
	c := &Contact{
		Email:   "kept@acme.io",
		Company: "Kept Inc",
		Notes:   "existing",
	}
	d := &Data{
		Person: &PersonData{
			Emails:      []people.Email{{Email: "new@acme.io"}},
			Phones:      []people.Phone{{Number: " +49 30 1234\n"}},
			Title:       "CTO",
			LinkedInURL: "https://www.linkedin.com/in/jane",
			Location:    "Berlin",
		},
		Company: &CompanyData{Name: "Acme", Domain: "acme.io", Industry: "Software", EmployeeCount: 42, Location: "Berlin"},
	}

	assert.True(t, applyData(c, d))
	assert.Equal(t, "kept@acme.io", c.Email)
	assert.Equal(t, "+49 30 1234", c.Phone)
	assert.Equal(t, "CTO", c.Position)
	assert.Equal(t, "https://www.linkedin.com/in/jane", c.LinkedInProfile)
	assert.Equal(t, "Berlin", c.Address)
	assert.Equal(t, "Kept Inc", c.Company)
	assert.Equal(t, "https://acme.io", c.Website)
	assert.Equal(t, "existing\n\n--- Enriched Data ---\nIndustry: Software\nEmployees: 42\nLocation: Berlin", c.Notes)
}

func TestApplyDataWithoutCompanyFacts(t *testing.T) {
	c := &Contact{Website: "https://mine.example", Notes: "n"}
	changed := applyData(c, &Data{Company: &CompanyData{Domain: "acme.io"}})
	assert.False(t, changed)
	assert.Equal(t, "https://mine.example", c.Website)
	assert.Equal(t, "n", c.Notes)
}

func TestApplyDataIgnoresBlankProviderValues(t *testing.T) {
	c := &Contact{}
	changed := applyData(c, &Data{Person: &PersonData{
		Emails: []people.Email{{Email: "  "}},
		Phones: []people.Phone{{}},
	}})
	assert.False(t, changed)
	assert.Empty(t, c.Email)
	assert.Empty(t, c.Phone)
}
