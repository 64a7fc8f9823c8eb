package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
)

func TestSnapshotServesDefaults(t *testing.T) {
	s := NewRuleSnapshot(nil, zap.NewNop().Sugar())

	rule, ok := s.Lookup(domain.AllergenGluten, "bread")
	require.True(t, ok)
	assert.Equal(t, "gluten-free bread", rule.Replacement)

	// Lookup normalizes the ingredient the same way keys are stored.
	_, ok = s.Lookup(domain.AllergenDairy, "  MILK ")
	assert.True(t, ok)
}

func TestSnapshotMatchesWholeIngredientOnly(t *testing.T) {
	s := NewRuleSnapshot(nil, zap.NewNop().Sugar())

	_, ok := s.Lookup(domain.AllergenDairy, "almond milk")
	assert.False(t, ok, "rules key on the whole normalized ingredient, not substrings")
}

func TestSnapshotStoredRuleShadowsDefault(t *testing.T) {
	stored := []domain.SubstitutionRule{{
		Allergen:    domain.AllergenDairy,
		Original:    "milk",
		Replacement: "oat milk",
		CreatedAt:   time.Now(),
	}}
	s := NewRuleSnapshot(stored, zap.NewNop().Sugar())

	rule, ok := s.Lookup(domain.AllergenDairy, "milk")
	require.True(t, ok)
	assert.Equal(t, "oat milk", rule.Replacement)
}

func TestSnapshotNewerRuleWinsRegardlessOfOrder(t *testing.T) {
	older := domain.SubstitutionRule{
		Allergen:    domain.AllergenDairy,
		Original:    "milk",
		Replacement: "rice milk",
		CreatedAt:   time.Now().Add(-time.Hour),
	}
	newer := domain.SubstitutionRule{
		Allergen:    domain.AllergenDairy,
		Original:    "milk",
		Replacement: "oat milk",
		CreatedAt:   time.Now(),
	}

	for name, stored := range map[string][]domain.SubstitutionRule{
		"older first": {older, newer},
		"newer first": {newer, older},
	} {
		t.Run(name, func(t *testing.T) {
			s := NewRuleSnapshot(stored, zap.NewNop().Sugar())
			rule, ok := s.Lookup(domain.AllergenDairy, "milk")
			require.True(t, ok)
			assert.Equal(t, "oat milk", rule.Replacement)
		})
	}
}

func TestSnapshotKeysPerAllergen(t *testing.T) {
	s := NewRuleSnapshot(nil, zap.NewNop().Sugar())

	_, ok := s.Lookup(domain.AllergenSoy, "milk")
	assert.False(t, ok, "a dairy rule never answers a soy lookup")
	assert.Greater(t, s.Len(), 20, "the built-in table ships with every allergen covered")
}
