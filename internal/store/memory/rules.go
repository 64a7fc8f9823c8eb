package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/repo"
)

// RuleStore keeps substitution rules in memory. Tests run against it,
// and so do deployments started without mongo, where rules simply do
// not survive a restart.
type RuleStore struct {
	mu    sync.RWMutex
	rules map[primitive.ObjectID]domain.SubstitutionRule
}

func NewRuleStore() *RuleStore {
	return &RuleStore{rules: map[primitive.ObjectID]domain.SubstitutionRule{}}
}

func (s *RuleStore) Create(_ context.Context, rule *domain.SubstitutionRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rule.ID.IsZero() {
		rule.ID = primitive.NewObjectID()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	s.rules[rule.ID] = *rule
	return nil
}

func (s *RuleStore) List(_ context.Context) ([]domain.SubstitutionRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SubstitutionRule, 0, len(s.rules))
	for _, rule := range s.rules {
		out = append(out, rule)
	}
	sortRules(out)
	return out, nil
}

func (s *RuleStore) ListByAllergen(_ context.Context, allergen domain.Allergen) ([]domain.SubstitutionRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.SubstitutionRule
	for _, rule := range s.rules {
		if rule.Allergen == allergen {
			out = append(out, rule)
		}
	}
	sortRules(out)
	return out, nil
}

func (s *RuleStore) GetByID(_ context.Context, id primitive.ObjectID) (*domain.SubstitutionRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rule, ok := s.rules[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &rule, nil
}

func (s *RuleStore) Update(_ context.Context, rule *domain.SubstitutionRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.rules[rule.ID]
	if !ok {
		return repo.ErrNotFound
	}
	// Update never rewrites created_at, matching the mongo repository.
	updated := *rule
	updated.CreatedAt = existing.CreatedAt
	s.rules[rule.ID] = updated
	return nil
}

func (s *RuleStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.rules, id)
	return nil
}

func sortRules(rules []domain.SubstitutionRule) {
	sort.Slice(rules, func(i, j int) bool {
		if !rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].CreatedAt.Before(rules[j].CreatedAt)
		}
		return rules[i].ID.Hex() < rules[j].ID.Hex()
	})
}
