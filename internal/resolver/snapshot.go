package resolver

import (
	"go.uber.org/zap"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
)

// RuleSnapshot is the immutable rule view a single conversion runs
// against: stored rules merged over the built-in defaults, taken once
// before resolution starts. Rule edits that land mid-conversion affect
// the next conversion, never the running one.
type RuleSnapshot struct {
	rules map[domain.Allergen]map[string]domain.SubstitutionRule
}

func NewRuleSnapshot(stored []domain.SubstitutionRule, logger *zap.SugaredLogger) *RuleSnapshot {
	s := &RuleSnapshot{rules: map[domain.Allergen]map[string]domain.SubstitutionRule{}}
	for _, rule := range domain.DefaultRules() {
		s.put(rule, nil)
	}
	for _, rule := range stored {
		s.put(rule, logger)
	}
	return s
}

// put keeps the newer rule on key conflict. Defaults carry a zero
// CreatedAt, so any stored rule displaces them silently; two stored
// rules clashing is worth an operator's attention.
func (s *RuleSnapshot) put(rule domain.SubstitutionRule, logger *zap.SugaredLogger) {
	key := domain.NormalizeIngredient(rule.Original)
	if key == "" {
		return
	}
	byKey, ok := s.rules[rule.Allergen]
	if !ok {
		byKey = map[string]domain.SubstitutionRule{}
		s.rules[rule.Allergen] = byKey
	}
	if existing, clash := byKey[key]; clash {
		if !existing.CreatedAt.IsZero() && logger != nil {
			logger.Warnw("conflicting substitution rules, keeping the newer one",
				"allergen", rule.Allergen,
				"original", key,
			)
		}
		if rule.CreatedAt.Before(existing.CreatedAt) {
			return
		}
	}
	byKey[key] = rule
}

// Lookup finds the rule for an ingredient, normalizing the text the
// same way rules are keyed.
func (s *RuleSnapshot) Lookup(allergen domain.Allergen, ingredient string) (domain.SubstitutionRule, bool) {
	rule, ok := s.rules[allergen][domain.NormalizeIngredient(ingredient)]
	return rule, ok
}

func (s *RuleSnapshot) Len() int {
	n := 0
	for _, byKey := range s.rules {
		n += len(byKey)
	}
	return n
}
