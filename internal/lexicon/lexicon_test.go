package lexicon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
)

func TestDefaultCoversEveryAllergen(t *testing.T) {
	lex := Default()
	for _, a := range domain.Allergens {
		set, _ := lex.TermSet(a)
		assert.NotEmpty(t, set.Terms, "allergen %s has no terms", a)
	}
}

func TestParseOverridesSingleAllergen(t *testing.T) {
	data := []byte("soy:\n  terms: [shoyu, tamari]\n  stems: [soy]\n")
	lex, err := Parse(data)
	require.NoError(t, err)

	soy, _ := lex.TermSet(domain.AllergenSoy)
	assert.Equal(t, []string{"shoyu", "tamari"}, soy.Terms)

	// Allergens absent from the file keep their defaults.
	dairy, _ := lex.TermSet(domain.AllergenDairy)
	assert.Contains(t, dairy.Terms, "milk")
}

func TestParseRejectsUnknownAllergen(t *testing.T) {
	_, err := Parse([]byte("peanut_oil:\n  terms: [oil]\n"))
	assert.Error(t, err)
}

func TestParseLowercasesTerms(t *testing.T) {
	lex, err := Parse([]byte("fish:\n  terms: [Tuna, SALMON]\n"))
	require.NoError(t, err)
	fish, _ := lex.TermSet(domain.AllergenFish)
	assert.Equal(t, []string{"tuna", "salmon"}, fish.Terms)
}
