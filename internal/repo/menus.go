package repo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
)

type MenuRepository interface {
	Create(ctx context.Context, menu *domain.ConvertedMenu) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ConvertedMenu, error)
	List(ctx context.Context, limit int64) ([]domain.ConvertedMenu, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}
