package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/lexicon"
)

func TestMatch(t *testing.T) {
	m := New(lexicon.Default())
	all := domain.MustAllergenSet("gluten", "dairy", "nuts", "egg", "soy", "fish")

	tests := []struct {
		ingredient string
		want       []domain.Allergen
	}{
		{"milk chocolate", []domain.Allergen{domain.AllergenDairy}},
		{"soy sauce", []domain.Allergen{domain.AllergenSoy}},
		{"almond milk", []domain.Allergen{domain.AllergenDairy, domain.AllergenNuts}},
		{"caramel", nil},
		{"whole wheat bread", []domain.Allergen{domain.AllergenGluten}},
		{"scrambled eggs", []domain.Allergen{domain.AllergenEgg}},
		{"eggplant parmesan", []domain.Allergen{domain.AllergenDairy}},
		{"breadsticks", []domain.Allergen{domain.AllergenGluten}},
		{"tuna salad", []domain.Allergen{domain.AllergenFish}},
		// Recall wins over precision here: butter flags dairy even
		// though peanut butter contains none. Reviewers see both.
		{"Peanut Butter", []domain.Allergen{domain.AllergenDairy, domain.AllergenNuts}},
	}
	for _, tc := range tests {
		t.Run(tc.ingredient, func(t *testing.T) {
			assert.Equal(t, tc.want, m.Match(tc.ingredient, all))
		})
	}
}

func TestMatchHonorsRequestedAllergensOnly(t *testing.T) {
	m := New(lexicon.Default())

	hits := m.Match("almond milk", domain.MustAllergenSet("nuts"))
	assert.Equal(t, []domain.Allergen{domain.AllergenNuts}, hits,
		"dairy term present but dairy was not requested")

	assert.Nil(t, m.Match("milk", domain.AllergenSet{}))
	assert.Nil(t, m.Match("grilled salmon", domain.MustAllergenSet("nuts")),
		"terms match whole tokens, almond must not fire inside salmon")
}

func TestMatchHitsFollowRequestOrder(t *testing.T) {
	m := New(lexicon.Default())

	got := m.Match("almond milk", domain.MustAllergenSet("nuts", "dairy"))
	assert.Equal(t, []domain.Allergen{domain.AllergenNuts, domain.AllergenDairy}, got)

	got = m.Match("almond milk", domain.MustAllergenSet("dairy", "nuts"))
	assert.Equal(t, []domain.Allergen{domain.AllergenDairy, domain.AllergenNuts}, got)
}

func TestMatchPhraseNeedsConsecutiveTokens(t *testing.T) {
	m := New(lexicon.Default())

	// "flour tortilla" is a gluten phrase; tokens out of order or
	// separated must not trip it, plain "flour" still does.
	assert.Equal(t, []domain.Allergen{domain.AllergenGluten},
		m.Match("flour tortilla wrap", domain.MustAllergenSet("gluten")))
	assert.Equal(t, []domain.Allergen{domain.AllergenGluten},
		m.Match("tortilla made with rice flour", domain.MustAllergenSet("gluten")))
	assert.Nil(t, m.Match("corn tortilla", domain.MustAllergenSet("gluten")))
}
