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

const rulesCollection = "substitution_rules"

type RuleRepository struct {
	collection *mongo.Collection
}

func NewRuleRepository(db *mongo.Database) *RuleRepository {
	return &RuleRepository{collection: db.Collection(rulesCollection)}
}

func (r *RuleRepository) Create(ctx context.Context, rule *domain.SubstitutionRule) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, rule)
	if err != nil {
		return fmt.Errorf("failed to create substitution rule: %w", err)
	}
	rule.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *RuleRepository) List(ctx context.Context) ([]domain.SubstitutionRule, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list substitution rules: %w", err)
	}
	defer cursor.Close(ctx)

	var rules []domain.SubstitutionRule
	if err := cursor.All(ctx, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode substitution rules: %w", err)
	}
	return rules, nil
}

func (r *RuleRepository) ListByAllergen(ctx context.Context, allergen domain.Allergen) ([]domain.SubstitutionRule, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"allergen": allergen}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list substitution rules by allergen: %w", err)
	}
	defer cursor.Close(ctx)

	var rules []domain.SubstitutionRule
	if err := cursor.All(ctx, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode substitution rules: %w", err)
	}
	return rules, nil
}

func (r *RuleRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.SubstitutionRule, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rule domain.SubstitutionRule
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rule)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get substitution rule: %w", err)
	}
	return &rule, nil
}

func (r *RuleRepository) Update(ctx context.Context, rule *domain.SubstitutionRule) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"allergen":    rule.Allergen,
		"original":    rule.Original,
		"replacement": rule.Replacement,
	}}
	result, err := r.collection.UpdateByID(ctx, rule.ID, update)
	if err != nil {
		return fmt.Errorf("failed to update substitution rule: %w", err)
	}
	if result.MatchedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *RuleRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete substitution rule: %w", err)
	}
	if result.DeletedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}
