package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/repo"
)

const menusCollection = "menus"

type MenuRepository struct {
	collection *mongo.Collection
}

func NewMenuRepository(db *mongo.Database) *MenuRepository {
	return &MenuRepository{collection: db.Collection(menusCollection)}
}

func (r *MenuRepository) Create(ctx context.Context, menu *domain.ConvertedMenu) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	now := time.Now().UTC()
	menu.CreatedAt = now
	menu.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, menu)
	if err != nil {
		return fmt.Errorf("failed to create converted menu: %w", err)
	}
	menu.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *MenuRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ConvertedMenu, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var menu domain.ConvertedMenu
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&menu)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get converted menu: %w", err)
	}
	return &menu, nil
}

func (r *MenuRepository) List(ctx context.Context, limit int64) ([]domain.ConvertedMenu, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list converted menus: %w", err)
	}
	defer cursor.Close(ctx)

	var menus []domain.ConvertedMenu
	if err := cursor.All(ctx, &menus); err != nil {
		return nil, fmt.Errorf("failed to decode converted menus: %w", err)
	}
	return menus, nil
}

func (r *MenuRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete converted menu: %w", err)
	}
	if result.DeletedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}
