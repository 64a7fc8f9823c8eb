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

type TaskStore struct {
	mu    sync.RWMutex
	tasks map[primitive.ObjectID]domain.ConversionTask
}

func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: map[primitive.ObjectID]domain.ConversionTask{}}
}

func (s *TaskStore) Create(_ context.Context, task *domain.ConversionTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = domain.StatusQueued
	}
	s.tasks[task.ID] = *task
	return nil
}

// List returns every stored task ordered by creation time. The Mongo
// repository has no equivalent; this exists for inspection in tests and
// the in-memory dev mode.
func (s *TaskStore) List(_ context.Context) ([]domain.ConversionTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ConversionTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out, nil
}

func (s *TaskStore) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ConversionTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &task, nil
}

func (s *TaskStore) UpdateStatus(_ context.Context, id primitive.ObjectID, status domain.ConversionTaskStatus, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return repo.ErrNotFound
	}
	task.Status = status
	task.ErrorMessage = errorMessage
	task.UpdatedAt = time.Now().UTC()
	s.tasks[id] = task
	return nil
}

func (s *TaskStore) AttachMenu(_ context.Context, id primitive.ObjectID, menuID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return repo.ErrNotFound
	}
	task.MenuID = &menuID
	task.UpdatedAt = time.Now().UTC()
	s.tasks[id] = task
	return nil
}

func (s *TaskStore) IncrementRetryCount(_ context.Context, id primitive.ObjectID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return 0, repo.ErrNotFound
	}
	task.RetryCount++
	task.UpdatedAt = time.Now().UTC()
	s.tasks[id] = task
	return task.RetryCount, nil
}
