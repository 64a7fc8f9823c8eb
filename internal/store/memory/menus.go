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

type MenuStore struct {
	mu    sync.RWMutex
	menus map[primitive.ObjectID]domain.ConvertedMenu
}

func NewMenuStore() *MenuStore {
	return &MenuStore{menus: map[primitive.ObjectID]domain.ConvertedMenu{}}
}

func (s *MenuStore) Create(_ context.Context, menu *domain.ConvertedMenu) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if menu.ID.IsZero() {
		menu.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	menu.CreatedAt = now
	menu.UpdatedAt = now
	s.menus[menu.ID] = *menu
	return nil
}

func (s *MenuStore) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ConvertedMenu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	menu, ok := s.menus[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &menu, nil
}

func (s *MenuStore) List(_ context.Context, limit int64) ([]domain.ConvertedMenu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ConvertedMenu, 0, len(s.menus))
	for _, menu := range s.menus {
		out = append(out, menu)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MenuStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.menus[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.menus, id)
	return nil
}
