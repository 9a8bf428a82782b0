package inmemory

import (
	"context"
	"sort"
	"sync"
	"taskcraft/internal/logger"
	"taskcraft/internal/models/task"
	repo "taskcraft/internal/repository"
	"time"

	"github.com/google/uuid"
)

// TaskStorage хранит копии задач, наружу тоже отдаёт копии
type TaskStorage struct {
	storage map[uuid.UUID]*task.Task
	mtx     *sync.RWMutex
	ids     []uuid.UUID
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		storage: make(map[uuid.UUID]*task.Task),
		mtx:     &sync.RWMutex{},
		ids:     []uuid.UUID{},
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.storage[taskToCreate.ID] = taskToCreate.Clone()
	s.ids = append(s.ids, taskToCreate.ID)
	return nil
}

func (s *TaskStorage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existed, ok := s.storage[taskToUpdate.ID]
	if !ok {
		return repo.ErrNotFound
	}

	updated := taskToUpdate.Clone()
	updated.CreatedAt = existed.CreatedAt
	s.storage[taskToUpdate.ID] = updated
	return nil
}

func (s *TaskStorage) SetCompleted(ctx context.Context, id uuid.UUID, completed bool, at time.Time) (*task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existed, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	existed.IsCompleted = completed
	existed.UpdatedAt = at
	return existed.Clone(), nil
}

func (s *TaskStorage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return taskToGet.Clone(), nil
}

func (s *TaskStorage) Delete(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[id]; !ok {
		return repo.ErrNotFound
	}

	delete(s.storage, id)
	for ind, val := range s.ids {
		if val == id {
			s.ids = append(s.ids[:ind], s.ids[ind+1:]...)
			break
		}
	}
	return nil
}

// Find фильтрует и сортирует задачи; limit <= 0 означает без ограничения
func (s *TaskStorage) Find(ctx context.Context, filter task.Filter, ordering task.Ordering, limit, offset int) ([]*task.Task, error) {
	s.mtx.RLock()
	matched := []*task.Task{}
	for _, id := range s.ids {
		t := s.storage[id]
		if filter.Match(t) {
			matched = append(matched, t.Clone())
		}
	}
	s.mtx.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return ordering.Less(matched[i], matched[j])
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []*task.Task{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *TaskStorage) Count(ctx context.Context, filter task.Filter) (int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	count := 0
	for _, id := range s.ids {
		if filter.Match(s.storage[id]) {
			count++
		}
	}
	return count, nil
}
