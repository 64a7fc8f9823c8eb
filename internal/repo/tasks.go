package repo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
)

type TaskRepository interface {
	Create(ctx context.Context, task *domain.ConversionTask) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ConversionTask, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.ConversionTaskStatus, errorMessage string) error
	AttachMenu(ctx context.Context, id primitive.ObjectID, menuID primitive.ObjectID) error
	IncrementRetryCount(ctx context.Context, id primitive.ObjectID) (int, error)
}
