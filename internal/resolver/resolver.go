package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/matcher"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/repo"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/suggest"
)

// ErrNoSuggester means flagged ingredients were left after the rule
// pass but no suggestion client is configured. The caller must either
// configure one or convert with rules that cover the menu.
var ErrNoSuggester = errors.New("suggestion client is not configured")

type Config struct {
	BatchSize      int
	MaxConcurrency int
}

// Resolver turns a parsed menu plus an allergen selection into a
// rewritten menu. Custom rules always win; the suggestion client only
// sees ingredients no rule covered; whatever neither settles stays in
// the output unchanged and is reported as unresolved.
type Resolver struct {
	matcher   *matcher.Matcher
	rules     repo.RuleRepository
	suggester suggest.Suggester
	cfg       Config
	logger    *zap.SugaredLogger
}

func New(m *matcher.Matcher, rules repo.RuleRepository, suggester suggest.Suggester, cfg Config, logger *zap.SugaredLogger) *Resolver {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	return &Resolver{
		matcher:   m,
		rules:     rules,
		suggester: suggester,
		cfg:       cfg,
		logger:    logger,
	}
}

// Resolve runs the full pipeline against a copy of the document: flag,
// rule pass, suggestion pass, rewrite. The input document is never
// mutated, and an empty allergen selection returns an untouched copy.
func (r *Resolver) Resolve(ctx context.Context, doc *domain.MenuDocument, allergens domain.AllergenSet) (*domain.ResolvedMenu, error) {
	res := &domain.ResolvedMenu{Document: doc.Clone()}
	if allergens.IsEmpty() {
		return res, nil
	}

	flags := r.Flag(res.Document, allergens)
	if len(flags) == 0 {
		return res, nil
	}

	snapshot, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	outcomes := make([]domain.ResolutionOutcome, len(flags))
	var pending []int
	for i, f := range flags {
		if rule, ok := lookupAny(snapshot, f); ok {
			outcomes[i] = domain.ResolutionOutcome{
				Flag:        f,
				Status:      domain.OutcomeCustomRule,
				Replacement: rule.Replacement,
				Rule:        &rule,
			}
			continue
		}
		outcomes[i] = domain.ResolutionOutcome{
			Flag:        f,
			Status:      domain.OutcomeUnresolved,
			NeedsReview: true,
		}
		pending = append(pending, i)
	}

	if len(pending) > 0 {
		if r.suggester == nil {
			return nil, ErrNoSuggester
		}
		if err := r.suggest(ctx, allergens, flags, outcomes, pending); err != nil {
			return nil, err
		}
	}

	r.apply(res, outcomes)

	r.logger.Infow("menu resolved",
		"allergens", allergens.Strings(),
		"flags", len(flags),
		"rules", snapshot.Len(),
		"changes", len(res.Changes),
		"unresolved", len(res.Unresolved()),
	)
	return res, nil
}

// Flag scans the document for the requested allergens. One flag per
// flagged ingredient occurrence, in document order: period by period,
// dish by dish, ingredient by ingredient.
func (r *Resolver) Flag(doc *domain.MenuDocument, allergens domain.AllergenSet) []domain.Flag {
	var flags []domain.Flag
	for _, period := range doc.Periods {
		for di, dish := range period.Dishes {
			for ii, ing := range dish.Ingredients {
				hits := r.matcher.Match(ing, allergens)
				if len(hits) == 0 {
					continue
				}
				flags = append(flags, domain.Flag{
					Period:          period.Name,
					DishIndex:       di,
					IngredientIndex: ii,
					Allergens:       hits,
					Text:            ing,
				})
			}
		}
	}
	return flags
}

// Snapshot loads stored rules and merges them over the defaults. With
// no repository configured the defaults still apply.
func (r *Resolver) Snapshot(ctx context.Context) (*RuleSnapshot, error) {
	if r.rules == nil {
		return NewRuleSnapshot(nil, r.logger), nil
	}
	stored, err := r.rules.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading substitution rules: %w", err)
	}
	return NewRuleSnapshot(stored, r.logger), nil
}

// lookupAny tries the flag's matched allergens in order and returns
// the first rule hit. A rule under any matched allergen beats sending
// the ingredient out for a suggestion.
func lookupAny(snapshot *RuleSnapshot, f domain.Flag) (domain.SubstitutionRule, bool) {
	for _, a := range f.Allergens {
		if rule, ok := snapshot.Lookup(a, f.Text); ok {
			return rule, true
		}
	}
	return domain.SubstitutionRule{}, false
}

type batchRef struct {
	batch   domain.SuggestionBatch
	flagIdx []int
}

// batches groups pending flags by meal period and chunks each group by
// BatchSize, preserving document order inside every batch.
func (r *Resolver) batches(flags []domain.Flag, pending []int) []batchRef {
	var out []batchRef
	for _, i := range pending {
		f := flags[i]
		if len(out) == 0 ||
			out[len(out)-1].batch.Period != f.Period ||
			len(out[len(out)-1].batch.Items) >= r.cfg.BatchSize {
			out = append(out, batchRef{batch: domain.SuggestionBatch{
				Tag:    uuid.NewString(),
				Period: f.Period,
			}})
		}
		cur := &out[len(out)-1]
		cur.batch.Items = append(cur.batch.Items, domain.SuggestionItem{
			Tag:        uuid.NewString(),
			Allergen:   f.Allergens[0],
			Ingredient: f.Text,
		})
		cur.flagIdx = append(cur.flagIdx, i)
	}
	return out
}

// suggest fans batches out to the suggestion client with bounded
// concurrency and writes results back by flag index, so outcome order
// stays deterministic no matter which batch lands first. A failed
// batch leaves its items unresolved and the conversion running;
// credential rejections and context cancellation abort the whole run.
func (r *Resolver) suggest(ctx context.Context, avoid domain.AllergenSet, flags []domain.Flag, outcomes []domain.ResolutionOutcome, pending []int) error {
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.MaxConcurrency)

	for _, b := range r.batches(flags, pending) {
		b := b
		g.Go(func() error {
			result, err := r.suggester.Suggest(ctx, b.batch, avoid)
			if err != nil {
				if errors.Is(err, suggest.ErrUnauthorized) ||
					errors.Is(err, context.Canceled) ||
					errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				r.logger.Warnw("suggestion batch failed, its items stay unresolved",
					"batch", b.batch.Tag,
					"period", b.batch.Period,
					"items", len(b.batch.Items),
					"error", err,
				)
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			for pos, flagIdx := range b.flagIdx {
				item := b.batch.Items[pos]
				s, ok := result.Suggestions[item.Tag]
				if !ok {
					continue
				}
				outcomes[flagIdx] = domain.ResolutionOutcome{
					Flag:        flags[flagIdx],
					Status:      domain.OutcomeAISuggestion,
					Replacement: s.Replacement,
					Rationale:   s.Rationale,
					NeedsReview: true,
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// apply rewrites resolved ingredients in the cloned document and
// builds the change log, both in document order.
func (r *Resolver) apply(res *domain.ResolvedMenu, outcomes []domain.ResolutionOutcome) {
	res.Outcomes = outcomes
	for _, o := range outcomes {
		if o.Status == domain.OutcomeUnresolved {
			continue
		}
		period := res.Document.Period(o.Flag.Period)
		if period == nil || o.Flag.DishIndex >= len(period.Dishes) {
			continue
		}
		dish := &period.Dishes[o.Flag.DishIndex]
		if o.Flag.IngredientIndex >= len(dish.Ingredients) {
			continue
		}
		dish.Ingredients[o.Flag.IngredientIndex] = o.Replacement
		res.Changes = append(res.Changes, domain.ChangeNote(o.Flag.Text, o.Replacement, o.Flag.Period))
	}
}
