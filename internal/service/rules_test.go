package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/repo"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/store/memory"
)

func newRuleService() *RuleService {
	return NewRuleService(memory.NewRuleStore(), zap.NewNop().Sugar())
}

func TestRuleCreateNormalizesOriginal(t *testing.T) {
	svc := newRuleService()

	rule, err := svc.Create(context.Background(), RuleInput{
		Allergen:    "dairy",
		Original:    "  Whole   MILK ",
		Replacement: " oat milk ",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.AllergenDairy, rule.Allergen)
	assert.Equal(t, "whole milk", rule.Original)
	assert.Equal(t, "oat milk", rule.Replacement)
	assert.False(t, rule.ID.IsZero())
	assert.False(t, rule.CreatedAt.IsZero())
}

func TestRuleCreateRejectsBadInput(t *testing.T) {
	svc := newRuleService()

	cases := map[string]RuleInput{
		"unknown allergen":  {Allergen: "sesame", Original: "tahini", Replacement: "pumpkin butter"},
		"empty original":    {Allergen: "dairy", Original: "   ", Replacement: "oat milk"},
		"empty replacement": {Allergen: "dairy", Original: "milk", Replacement: "  "},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), in)
			require.ErrorIs(t, err, ErrInvalidRule)
		})
	}
}

func TestRuleUpdateRoundTrip(t *testing.T) {
	svc := newRuleService()

	rule, err := svc.Create(context.Background(), RuleInput{
		Allergen: "gluten", Original: "pasta", Replacement: "rice noodles",
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), rule.ID, RuleInput{
		Allergen: "gluten", Original: "Pasta", Replacement: "quinoa pasta",
	})
	require.NoError(t, err)
	assert.Equal(t, rule.ID, updated.ID)
	assert.Equal(t, "quinoa pasta", updated.Replacement)

	got, err := svc.Get(context.Background(), rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "quinoa pasta", got.Replacement)
}

func TestRuleUpdateMissingRule(t *testing.T) {
	svc := newRuleService()

	_, err := svc.Update(context.Background(), primitive.NewObjectID(), RuleInput{
		Allergen: "gluten", Original: "pasta", Replacement: "rice noodles",
	})
	require.ErrorIs(t, err, repo.ErrNotFound)
}

func TestRuleListByAllergen(t *testing.T) {
	svc := newRuleService()
	ctx := context.Background()

	_, err := svc.Create(ctx, RuleInput{Allergen: "dairy", Original: "milk", Replacement: "oat milk"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, RuleInput{Allergen: "soy", Original: "miso", Replacement: "chickpea miso"})
	require.NoError(t, err)

	dairy, err := svc.ListByAllergen(ctx, "dairy")
	require.NoError(t, err)
	require.Len(t, dairy, 1)
	assert.Equal(t, "milk", dairy[0].Original)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.ListByAllergen(ctx, "sugar")
	require.ErrorIs(t, err, ErrInvalidRule)
}

func TestRuleDelete(t *testing.T) {
	svc := newRuleService()
	ctx := context.Background()

	rule, err := svc.Create(ctx, RuleInput{Allergen: "egg", Original: "mayo", Replacement: "vegan mayo"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, rule.ID))
	require.ErrorIs(t, svc.Delete(ctx, rule.ID), repo.ErrNotFound)

	_, err = svc.Get(ctx, rule.ID)
	require.ErrorIs(t, err, repo.ErrNotFound)
}

func TestRuleDefaultsCoverEveryAllergen(t *testing.T) {
	svc := newRuleService()

	defaults := svc.Defaults()
	require.NotEmpty(t, defaults)

	seen := map[domain.Allergen]bool{}
	for _, rule := range defaults {
		seen[rule.Allergen] = true
		assert.NotEmpty(t, rule.Replacement)
		assert.True(t, rule.CreatedAt.IsZero(), "defaults must lose ties against stored rules")
	}
	for _, allergen := range domain.Allergens {
		assert.Truef(t, seen[allergen], "no default substitutions for %s", allergen)
	}
}
