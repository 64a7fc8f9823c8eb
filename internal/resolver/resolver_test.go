package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/lexicon"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/matcher"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/parser"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/repo"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/store/memory"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/suggest"
)

type fakeSuggester struct {
	mu      sync.Mutex
	batches []domain.SuggestionBatch
	fail    map[string]error
}

func (f *fakeSuggester) Suggest(_ context.Context, batch domain.SuggestionBatch, _ domain.AllergenSet) (*domain.SuggestionResult, error) {
	f.mu.Lock()
	f.batches = append(f.batches, batch)
	f.mu.Unlock()
	if err, ok := f.fail[batch.Period]; ok {
		return nil, err
	}
	out := map[string]domain.Suggestion{}
	for _, item := range batch.Items {
		out[item.Tag] = domain.Suggestion{Replacement: "safe " + item.Ingredient, Rationale: "stubbed"}
	}
	return &domain.SuggestionResult{BatchTag: batch.Tag, Suggestions: out}, nil
}

func (f *fakeSuggester) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func parseMenu(t *testing.T, input string) *domain.MenuDocument {
	t.Helper()
	doc, err := parser.New(parser.DefaultLayout()).Parse([]byte(input), parser.FormatText)
	require.NoError(t, err)
	return doc
}

func newResolver(rules repo.RuleRepository, s suggest.Suggester, cfg Config) *Resolver {
	return New(matcher.New(lexicon.Default()), rules, s, cfg, zap.NewNop().Sugar())
}

func TestResolveEmptySelectionIsNoop(t *testing.T) {
	doc := parseMenu(t, "B: milk, toast\n")
	fake := &fakeSuggester{}

	res, err := newResolver(memory.NewRuleStore(), fake, Config{}).
		Resolve(context.Background(), doc, domain.AllergenSet{})
	require.NoError(t, err)

	assert.Empty(t, res.Outcomes)
	assert.Empty(t, res.Changes)
	assert.Equal(t, doc.Periods, res.Document.Periods)
	assert.Equal(t, 0, fake.calls())
}

func TestResolveAppliesCustomRuleWithoutSuggester(t *testing.T) {
	doc := parseMenu(t, "B: milk, apple slices\n")

	// No suggester configured: fine as long as rules cover every flag.
	res, err := newResolver(memory.NewRuleStore(), nil, Config{}).
		Resolve(context.Background(), doc, domain.MustAllergenSet("dairy"))
	require.NoError(t, err)

	require.Len(t, res.Outcomes, 1)
	o := res.Outcomes[0]
	assert.Equal(t, domain.OutcomeCustomRule, o.Status)
	assert.Equal(t, "almond milk", o.Replacement)
	assert.False(t, o.NeedsReview)
	require.NotNil(t, o.Rule)

	assert.Equal(t, []string{"almond milk", "apple slices"}, res.Document.Periods[0].Dishes[0].Ingredients)
	assert.Equal(t, []string{"Changed 'milk' to 'almond milk' in breakfast"}, res.Changes)
}

func TestResolveStoredRuleBeatsDefault(t *testing.T) {
	rules := memory.NewRuleStore()
	require.NoError(t, rules.Create(context.Background(), &domain.SubstitutionRule{
		Allergen:    domain.AllergenDairy,
		Original:    "Milk",
		Replacement: "oat milk",
	}))
	doc := parseMenu(t, "B: milk\n")

	res, err := newResolver(rules, nil, Config{}).
		Resolve(context.Background(), doc, domain.MustAllergenSet("dairy"))
	require.NoError(t, err)

	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, "oat milk", res.Outcomes[0].Replacement,
		"stored rules shadow the built-in table, keying on normalized text")
}

func TestResolveRuleCoveredFlagsNeverReachSuggester(t *testing.T) {
	doc := parseMenu(t, "B: milk, cheese\nL: yogurt\n")
	fake := &fakeSuggester{}

	res, err := newResolver(memory.NewRuleStore(), fake, Config{}).
		Resolve(context.Background(), doc, domain.MustAllergenSet("dairy"))
	require.NoError(t, err)

	assert.Equal(t, 0, fake.calls())
	assert.Len(t, res.Changes, 3)
	assert.Empty(t, res.Unresolved())
}

func TestResolveUncoveredFlagGoesToSuggester(t *testing.T) {
	doc := parseMenu(t, "B: couscous\n")
	fake := &fakeSuggester{}

	res, err := newResolver(memory.NewRuleStore(), fake, Config{}).
		Resolve(context.Background(), doc, domain.MustAllergenSet("gluten"))
	require.NoError(t, err)

	require.Len(t, res.Outcomes, 1)
	o := res.Outcomes[0]
	assert.Equal(t, domain.OutcomeAISuggestion, o.Status)
	assert.Equal(t, "safe couscous", o.Replacement)
	assert.Equal(t, "stubbed", o.Rationale)
	assert.True(t, o.NeedsReview, "suggestions always carry the review flag")
	assert.Equal(t, []string{"safe couscous"}, res.Document.Periods[0].Dishes[0].Ingredients)
	assert.Equal(t, 1, fake.calls())
}

func TestResolveWithoutSuggesterFailsWhenFlagsRemain(t *testing.T) {
	doc := parseMenu(t, "B: couscous\n")

	_, err := newResolver(memory.NewRuleStore(), nil, Config{}).
		Resolve(context.Background(), doc, domain.MustAllergenSet("gluten"))
	assert.ErrorIs(t, err, ErrNoSuggester)
}

func TestResolveBatchFailureLeavesItemsUnresolved(t *testing.T) {
	doc := parseMenu(t, "B: couscous\n\nL: barley\n")
	fake := &fakeSuggester{fail: map[string]error{
		"lunch": &suggest.UnavailableError{Attempts: 3, Last: errors.New("boom")},
	}}

	res, err := newResolver(memory.NewRuleStore(), fake, Config{}).
		Resolve(context.Background(), doc, domain.MustAllergenSet("gluten"))
	require.NoError(t, err, "one failed batch must not fail the conversion")

	require.Len(t, res.Outcomes, 2)
	assert.Equal(t, domain.OutcomeAISuggestion, res.Outcomes[0].Status)
	assert.Equal(t, domain.OutcomeUnresolved, res.Outcomes[1].Status)
	assert.Equal(t, []string{"barley"}, res.Document.Periods[1].Dishes[0].Ingredients,
		"unresolved ingredients keep their original text")
	require.Len(t, res.Unresolved(), 1)
	assert.Equal(t, "barley", res.Unresolved()[0].Flag.Text)
}

func TestResolveUnauthorizedAbortsConversion(t *testing.T) {
	doc := parseMenu(t, "B: couscous\n")
	fake := &fakeSuggester{fail: map[string]error{
		"breakfast": fmt.Errorf("status 401: %w", suggest.ErrUnauthorized),
	}}

	_, err := newResolver(memory.NewRuleStore(), fake, Config{}).
		Resolve(context.Background(), doc, domain.MustAllergenSet("gluten"))
	assert.ErrorIs(t, err, suggest.ErrUnauthorized)
}

func TestResolveFlagsMultiAllergenIngredientOnce(t *testing.T) {
	doc := parseMenu(t, "B: soy milk\n")

	res, err := newResolver(memory.NewRuleStore(), nil, Config{}).
		Resolve(context.Background(), doc, domain.MustAllergenSet("soy", "dairy"))
	require.NoError(t, err)

	require.Len(t, res.Outcomes, 1, "one flag per ingredient, not per allergen")
	o := res.Outcomes[0]
	assert.Equal(t, []domain.Allergen{domain.AllergenSoy, domain.AllergenDairy}, o.Flag.Allergens)
	assert.Equal(t, domain.OutcomeCustomRule, o.Status)
	assert.Equal(t, "oat milk", o.Replacement)
}

func TestResolveKeepsDocumentOrderAcrossBatches(t *testing.T) {
	doc := parseMenu(t, "B: couscous, barley\n\nL: rye, couscous\n")
	fake := &fakeSuggester{}

	// BatchSize 1 forces one batch per item, all racing each other.
	res, err := newResolver(memory.NewRuleStore(), fake, Config{BatchSize: 1, MaxConcurrency: 4}).
		Resolve(context.Background(), doc, domain.MustAllergenSet("gluten"))
	require.NoError(t, err)

	require.Len(t, res.Outcomes, 4)
	var texts []string
	for _, o := range res.Outcomes {
		texts = append(texts, o.Flag.Text)
	}
	assert.Equal(t, []string{"couscous", "barley", "rye", "couscous"}, texts)
	assert.Equal(t, 4, fake.calls())

	for _, b := range fake.batches {
		assert.Len(t, b.Items, 1)
	}
}

func TestResolveBatchesNeverMixPeriods(t *testing.T) {
	doc := parseMenu(t, "B: couscous, barley, rye\n\nL: couscous\n")
	fake := &fakeSuggester{}

	_, err := newResolver(memory.NewRuleStore(), fake, Config{BatchSize: 2}).
		Resolve(context.Background(), doc, domain.MustAllergenSet("gluten"))
	require.NoError(t, err)

	require.Equal(t, 3, fake.calls(), "3 breakfast items chunk into 2 batches, lunch gets its own")
	perPeriod := map[string]int{}
	for _, b := range fake.batches {
		assert.LessOrEqual(t, len(b.Items), 2)
		perPeriod[b.Period] += len(b.Items)
	}
	assert.Equal(t, map[string]int{"breakfast": 3, "lunch": 1}, perPeriod)
}

func TestResolveIsDeterministic(t *testing.T) {
	rules := memory.NewRuleStore()
	require.NoError(t, rules.Create(context.Background(), &domain.SubstitutionRule{
		Allergen:    domain.AllergenDairy,
		Original:    "cheese",
		Replacement: "vegan cheese",
	}))
	doc := parseMenu(t, "B: milk, couscous\nL: cheese, barley\n")
	r := newResolver(rules, &fakeSuggester{}, Config{BatchSize: 1, MaxConcurrency: 4})

	first, err := r.Resolve(context.Background(), doc, domain.MustAllergenSet("dairy", "gluten"))
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), doc, domain.MustAllergenSet("dairy", "gluten"))
	require.NoError(t, err)

	assert.Equal(t, first.Document, second.Document)
	assert.Equal(t, first.Changes, second.Changes)
	assert.Equal(t, first.Outcomes, second.Outcomes)
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	doc := parseMenu(t, "B: milk\n")

	_, err := newResolver(memory.NewRuleStore(), nil, Config{}).
		Resolve(context.Background(), doc, domain.MustAllergenSet("dairy"))
	require.NoError(t, err)

	assert.Equal(t, []string{"milk"}, doc.Periods[0].Dishes[0].Ingredients)
}

func TestResolvePreservesStructure(t *testing.T) {
	doc := parseMenu(t, "B: milk, toast\nL: cheese pizza\n\nB: yogurt\nS: crackers\n")

	res, err := newResolver(memory.NewRuleStore(), &fakeSuggester{}, Config{}).
		Resolve(context.Background(), doc, domain.MustAllergenSet("dairy", "gluten"))
	require.NoError(t, err)

	require.Len(t, res.Document.Periods, len(doc.Periods))
	for i, period := range doc.Periods {
		require.Len(t, res.Document.Periods[i].Dishes, len(period.Dishes), period.Name)
		for j, dish := range period.Dishes {
			assert.Len(t, res.Document.Periods[i].Dishes[j].Ingredients, len(dish.Ingredients))
		}
	}
	assert.Equal(t, doc.Grid, res.Document.Grid)
}
