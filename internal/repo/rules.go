package repo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
)

// RuleRepository stores operator-defined substitution rules. Stored
// rules take precedence over the built-in defaults during resolution.
type RuleRepository interface {
	Create(ctx context.Context, rule *domain.SubstitutionRule) error
	List(ctx context.Context) ([]domain.SubstitutionRule, error)
	ListByAllergen(ctx context.Context, allergen domain.Allergen) ([]domain.SubstitutionRule, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.SubstitutionRule, error)
	Update(ctx context.Context, rule *domain.SubstitutionRule) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}
