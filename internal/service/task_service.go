package service

import (
	"context"
	"errors"
	"strings"
	"taskcraft/internal/logger"
	"taskcraft/internal/models/task"
	rep "taskcraft/internal/repository"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// здесь происходит проверка ошибок бизнес-логики

const (
	DefaultPageSize    = 5
	DefaultMaxPageSize = 100
)

type TaskRepository interface {
	HealthCheck(ctx context.Context) error
	Create(ctx context.Context, t *task.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error)
	Update(ctx context.Context, t *task.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetCompleted(ctx context.Context, id uuid.UUID, completed bool, at time.Time) (*task.Task, error)
	Find(ctx context.Context, filter task.Filter, ordering task.Ordering, limit, offset int) ([]*task.Task, error)
	Count(ctx context.Context, filter task.Filter) (int, error)
}

type TaskService struct {
	repo        TaskRepository
	now         func() time.Time
	pageSize    int
	maxPageSize int
}

type Option func(*TaskService)

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithPageSize(pageSize, maxPageSize int) Option {
	return func(s *TaskService) {
		if maxPageSize > 0 {
			s.maxPageSize = maxPageSize
		}
		if pageSize > 0 {
			s.pageSize = min(pageSize, s.maxPageSize)
		}
	}
}

func NewTaskService(repo TaskRepository, options ...Option) *TaskService {
	s := &TaskService{
		repo:        repo,
		now:         time.Now,
		pageSize:    DefaultPageSize,
		maxPageSize: DefaultMaxPageSize,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Now отдаёт текущее время сервиса: UTC с точностью до микросекунд, как хранит база
func (s *TaskService) Now() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *TaskService) PageSize() int {
	return s.pageSize
}

type CreateInput struct {
	Title       string
	Description *string
	IsCompleted bool
	// nil означает значение по умолчанию, пустая строка отклоняется
	Priority *task.Priority
	Category *task.Category
	DueDate  *time.Time
}

type ListParams struct {
	Search   string
	Ordering task.Ordering
	Page     int
	PageSize int
}

type TaskPage struct {
	Tasks    []*task.Task
	Total    int
	Page     int
	PageSize int
}

func (p *TaskPage) HasNext() bool {
	return p.Page*p.PageSize < p.Total
}

func (p *TaskPage) HasPrevious() bool {
	return p.Page > 1
}

type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Overdue   int `json:"overdue"`
	Today     int `json:"today"`
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return NewUnavailable("проверка здоровья сервиса", err)
	}
	return nil
}

// validate нормализует и проверяет задачу перед записью
func validate(t *task.Task) error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return NewValidationError("title", "поле не может быть пустым")
	}
	if utf8.RuneCountInString(t.Title) > task.TitleMaxLength {
		return NewValidationError("title", "длина не должна превышать 255 символов")
	}
	if _, err := task.ParsePriority(string(t.Priority)); err != nil {
		return NewValidationError("priority", err.Error())
	}
	if _, err := task.ParseCategory(string(t.Category)); err != nil {
		return NewValidationError("category", err.Error())
	}
	return nil
}

// repoError переводит ошибку хранилища в бизнес-ошибку
func repoError(operation string, id uuid.UUID, err error) error {
	if errors.Is(err, rep.ErrNotFound) {
		logger.Info("Service: Задача не найдена", zap.String("target_id", id.String()))
		return NewNotFound("task", id.String())
	}
	logger.Error("Service: Ошибка хранилища", err, zap.String("operation", operation))
	return NewUnavailable(operation, err)
}

func (s *TaskService) Create(ctx context.Context, in CreateInput) (*task.Task, error) {
	options := []task.Option{
		task.WithDescription(in.Description),
		task.WithCompleted(in.IsCompleted),
		task.WithDueDate(in.DueDate),
	}
	if in.Priority != nil {
		options = append(options, task.WithPriority(*in.Priority))
	}
	if in.Category != nil {
		options = append(options, task.WithCategory(*in.Category))
	}

	t := task.New(in.Title, s.Now(), options...)
	if err := validate(t); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, repoError("создание задачи", t.ID, err)
	}

	logger.Info("Service: Задача создана", zap.String("id", t.ID.String()))
	return t, nil
}

// List отдаёт страницу невыполненных задач
func (s *TaskService) List(ctx context.Context, params ListParams) (*TaskPage, error) {
	if params.Page < 1 {
		return nil, NewValidationError("page", "номер страницы должен быть положительным")
	}

	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = s.pageSize
	}
	pageSize = min(pageSize, s.maxPageSize)

	ordering := params.Ordering
	if len(ordering) == 0 {
		ordering = task.DefaultOrdering
	}

	filter := task.Uncompleted()
	filter.Search = strings.TrimSpace(params.Search)

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, repoError("подсчёт задач", uuid.Nil, err)
	}

	offset := (params.Page - 1) * pageSize
	if params.Page > 1 && offset >= total {
		return nil, NewBusinessError(CodeNotFound, "Неверная страница",
			ToDetail("page", params.Page))
	}

	tasks, err := s.repo.Find(ctx, filter, ordering.WithTieBreakers(), pageSize, offset)
	if err != nil {
		return nil, repoError("получение задач", uuid.Nil, err)
	}

	return &TaskPage{
		Tasks:    tasks,
		Total:    total,
		Page:     params.Page,
		PageSize: pageSize,
	}, nil
}

func (s *TaskService) Get(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError("получение задачи", id, err)
	}
	return t, nil
}

// Update применяет опции к текущему состоянию задачи и обновляет updated_at
func (s *TaskService) Update(ctx context.Context, id uuid.UUID, options ...task.Option) (*task.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError("получение задачи", id, err)
	}

	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}
	if err := validate(t); err != nil {
		return nil, err
	}
	t.UpdatedAt = s.Now()

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, repoError("обновление задачи", id, err)
	}

	logger.Info("Service: Задача обновлена", zap.String("id", id.String()))
	return t, nil
}

func (s *TaskService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return repoError("удаление задачи", id, err)
	}
	logger.Info("Service: Задача удалена", zap.String("id", id.String()))
	return nil
}

// Done и Undo идемпотентны, updated_at обновляется при каждом вызове
func (s *TaskService) Done(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	return s.setCompleted(ctx, id, true)
}

func (s *TaskService) Undo(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	return s.setCompleted(ctx, id, false)
}

func (s *TaskService) setCompleted(ctx context.Context, id uuid.UUID, completed bool) (*task.Task, error) {
	t, err := s.repo.SetCompleted(ctx, id, completed, s.Now())
	if err != nil {
		return nil, repoError("изменение статуса", id, err)
	}
	logger.Info("Service: Статус задачи изменён",
		zap.String("id", id.String()),
		zap.Bool("is_completed", completed))
	return t, nil
}

// Completed отдаёт выполненные задачи, последние изменённые первыми
func (s *TaskService) Completed(ctx context.Context) ([]*task.Task, error) {
	ordering := task.Ordering{{Field: task.FieldUpdatedAt, Desc: true}}.WithTieBreakers()
	tasks, err := s.repo.Find(ctx, task.CompletedOnly(), ordering, 0, 0)
	if err != nil {
		return nil, repoError("получение выполненных задач", uuid.Nil, err)
	}
	return tasks, nil
}

// Overdue отдаёт просроченные задачи, самые старые сроки первыми
func (s *TaskService) Overdue(ctx context.Context) ([]*task.Task, error) {
	tasks, err := s.repo.Find(ctx, s.overdueFilter(), task.Ordering{{Field: task.FieldDueDate}}.WithTieBreakers(), 0, 0)
	if err != nil {
		return nil, repoError("получение просроченных задач", uuid.Nil, err)
	}
	return tasks, nil
}

func (s *TaskService) overdueFilter() task.Filter {
	now := s.Now()
	filter := task.Uncompleted()
	filter.DueBefore = &now
	return filter
}

// Stats считает сводку параллельно, каждый счётчик отдельным запросом
func (s *TaskService) Stats(ctx context.Context) (*Stats, error) {
	now := s.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	today := task.Uncompleted()
	today.DueFrom = &dayStart
	today.DueUntil = &dayEnd

	stats := &Stats{}
	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int, filter task.Filter) func() error {
		return func() error {
			n, err := s.repo.Count(gctx, filter)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		}
	}
	g.Go(count(&stats.Total, task.Uncompleted()))
	g.Go(count(&stats.Completed, task.CompletedOnly()))
	g.Go(count(&stats.Overdue, s.overdueFilter()))
	g.Go(count(&stats.Today, today))

	if err := g.Wait(); err != nil {
		return nil, repoError("подсчёт статистики", uuid.Nil, err)
	}
	return stats, nil
}
