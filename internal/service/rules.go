package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/repo"
)

var ErrInvalidRule = errors.New("invalid substitution rule")

// RuleService manages user-defined substitution rules. Originals are
// normalized at write time so lookups against normalized menu text hit.
type RuleService struct {
	rules  repo.RuleRepository
	logger *zap.SugaredLogger
}

func NewRuleService(rules repo.RuleRepository, logger *zap.SugaredLogger) *RuleService {
	return &RuleService{rules: rules, logger: logger}
}

type RuleInput struct {
	Allergen    string
	Original    string
	Replacement string
}

func (s *RuleService) Create(ctx context.Context, in RuleInput) (*domain.SubstitutionRule, error) {
	rule, err := ruleFromInput(in)
	if err != nil {
		return nil, err
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("creating substitution rule: %w", err)
	}
	s.logger.Infow("substitution rule created", "allergen", rule.Allergen, "original", rule.Original)
	return rule, nil
}

func (s *RuleService) Update(ctx context.Context, id primitive.ObjectID, in RuleInput) (*domain.SubstitutionRule, error) {
	rule, err := ruleFromInput(in)
	if err != nil {
		return nil, err
	}
	rule.ID = id
	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, fmt.Errorf("updating substitution rule: %w", err)
	}
	return s.rules.GetByID(ctx, id)
}

func (s *RuleService) Get(ctx context.Context, id primitive.ObjectID) (*domain.SubstitutionRule, error) {
	return s.rules.GetByID(ctx, id)
}

func (s *RuleService) List(ctx context.Context) ([]domain.SubstitutionRule, error) {
	return s.rules.List(ctx)
}

func (s *RuleService) ListByAllergen(ctx context.Context, name string) ([]domain.SubstitutionRule, error) {
	allergen, err := domain.ParseAllergen(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return s.rules.ListByAllergen(ctx, allergen)
}

func (s *RuleService) Delete(ctx context.Context, id primitive.ObjectID) error {
	return s.rules.Delete(ctx, id)
}

// Defaults returns the built-in substitutions that apply when no stored
// rule covers an ingredient.
func (s *RuleService) Defaults() []domain.SubstitutionRule {
	return domain.DefaultRules()
}

func ruleFromInput(in RuleInput) (*domain.SubstitutionRule, error) {
	allergen, err := domain.ParseAllergen(in.Allergen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	original := domain.NormalizeIngredient(in.Original)
	replacement := strings.TrimSpace(in.Replacement)
	if original == "" || replacement == "" {
		return nil, fmt.Errorf("%w: original and replacement are required", ErrInvalidRule)
	}
	return &domain.SubstitutionRule{
		Allergen:    allergen,
		Original:    original,
		Replacement: replacement,
	}, nil
}
