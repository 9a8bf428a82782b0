// Package sqlite реализует хранилище задач во встраиваемой SQLite базе через GORM.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"taskcraft/internal/logger"
	"taskcraft/internal/models/task"
	repo "taskcraft/internal/repository"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQuery = 50 * time.Millisecond

// driverName - sqlite3 с LOWER, понимающим не только ASCII
const driverName = "sqlite3_taskcraft"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("lower", strings.ToLower, true)
		},
	})
}

// taskRow - строка таблицы tasks
type taskRow struct {
	ID          string     `gorm:"primarykey;size:36"`
	Title       string     `gorm:"size:255;not null"`
	Description *string    `gorm:"type:text"`
	IsCompleted bool       `gorm:"not null;default:false;index:idx_tasks_is_completed_created_at,priority:1"`
	Priority    string     `gorm:"size:10;not null;default:medium"`
	Category    string     `gorm:"size:20;not null;default:other"`
	DueDate     *time.Time `gorm:"index"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime:false;index:idx_tasks_is_completed_created_at,priority:2"`
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime:false;index"`
}

func (taskRow) TableName() string {
	return "tasks"
}

func toRow(t *task.Task) *taskRow {
	row := &taskRow{
		ID:          t.ID.String(),
		Title:       t.Title,
		Description: t.Description,
		IsCompleted: t.IsCompleted,
		Priority:    string(t.Priority),
		Category:    string(t.Category),
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	}
	if t.DueDate != nil {
		d := t.DueDate.UTC()
		row.DueDate = &d
	}
	return row
}

func (r *taskRow) toTask() (*task.Task, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("некорректный id %q: %w", r.ID, err)
	}
	t := &task.Task{
		ID:          id,
		Title:       r.Title,
		Description: r.Description,
		IsCompleted: r.IsCompleted,
		Priority:    task.Priority(r.Priority),
		Category:    task.Category(r.Category),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.DueDate != nil {
		d := r.DueDate.UTC()
		t.DueDate = &d
	}
	return t, nil
}

type Storage struct {
	db *gorm.DB
}

// New открывает базу по пути (":memory:" для временной) и создаёт схему
func New(path string) (*Storage, error) {
	dialector := sqlite.New(sqlite.Config{DriverName: driverName, DSN: path})
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Error("Repository: Не удалось открыть SQLite", err, zap.String("path", path))
		return nil, fmt.Errorf("открытие sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("получение sql.DB: %w", err)
	}
	// одно соединение: ":memory:" живёт в рамках соединения, а запись в SQLite всё равно последовательная
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&taskRow{}); err != nil {
		logger.Error("Repository: Не удалось создать схему SQLite", err)
		return nil, fmt.Errorf("миграция sqlite: %w", err)
	}

	logger.Info("Repository: Успешное открытие SQLite", zap.String("path", path))
	return &Storage{db: db}, nil
}

func (s *Storage) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("Repository: Закрытие SQLite")
}

func warnIfSlow(op string, start time.Time) {
	if elapsed := time.Since(start); elapsed > slowQuery {
		logger.Warn("Repository: Медленный запрос",
			zap.String("operation", op),
			zap.Duration("ms", elapsed))
	}
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("получение sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func (s *Storage) Create(ctx context.Context, taskToCreate *task.Task) error {
	defer warnIfSlow("create", time.Now())

	if err := s.db.WithContext(ctx).Create(toRow(taskToCreate)).Error; err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err)
		return fmt.Errorf("добавление задачи: %w", err)
	}
	return nil
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	defer warnIfSlow("get_by_id", time.Now())

	var row taskRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err)
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return row.toTask()
}

func (s *Storage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	defer warnIfSlow("update", time.Now())

	row := toRow(taskToUpdate)
	// map, чтобы GORM записал и nil, и false
	result := s.db.WithContext(ctx).Model(&taskRow{}).Where("id = ?", row.ID).Updates(map[string]any{
		"title":        row.Title,
		"description":  row.Description,
		"is_completed": row.IsCompleted,
		"priority":     row.Priority,
		"category":     row.Category,
		"due_date":     row.DueDate,
		"updated_at":   row.UpdatedAt,
	})
	if err := result.Error; err != nil {
		logger.Error("Repository: Не удалось обновить задачу", err)
		return fmt.Errorf("обновление задачи: %w", err)
	}
	if result.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) SetCompleted(ctx context.Context, id uuid.UUID, completed bool, at time.Time) (*task.Task, error) {
	defer warnIfSlow("set_completed", time.Now())

	var updated *task.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&taskRow{}).Where("id = ?", id.String()).Updates(map[string]any{
			"is_completed": completed,
			"updated_at":   at.UTC(),
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repo.ErrNotFound
		}

		var row taskRow
		if err := tx.First(&row, "id = ?", id.String()).Error; err != nil {
			return err
		}
		t, err := row.toTask()
		if err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось изменить статус задачи", err)
		return nil, fmt.Errorf("изменение статуса: %w", err)
	}
	return updated, nil
}

func (s *Storage) Delete(ctx context.Context, id uuid.UUID) error {
	defer warnIfSlow("delete", time.Now())

	result := s.db.WithContext(ctx).Delete(&taskRow{}, "id = ?", id.String())
	if err := result.Error; err != nil {
		logger.Error("Repository: Удаление задачи", err)
		return fmt.Errorf("удаление задачи: %w", err)
	}
	if result.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) scoped(ctx context.Context, filter task.Filter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&taskRow{})
	if conds, args := repo.Conditions(filter, repo.Question); conds != "" {
		q = q.Where(conds, args...)
	}
	return q
}

func (s *Storage) Find(ctx context.Context, filter task.Filter, ordering task.Ordering, limit, offset int) ([]*task.Task, error) {
	defer warnIfSlow("find", time.Now())

	q := s.scoped(ctx, filter)
	for _, term := range repo.OrderTerms(ordering) {
		q = q.Order(term)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	var rows []taskRow
	if err := q.Find(&rows).Error; err != nil {
		logger.Error("Repository: Не удалось получить задачи", err)
		return nil, fmt.Errorf("получение задач: %w", err)
	}

	tasks := make([]*task.Task, 0, len(rows))
	for i := range rows {
		t, err := rows[i].toTask()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (s *Storage) Count(ctx context.Context, filter task.Filter) (int, error) {
	defer warnIfSlow("count", time.Now())

	var count int64
	if err := s.scoped(ctx, filter).Count(&count).Error; err != nil {
		logger.Error("Repository: Не удалось посчитать задачи", err)
		return 0, fmt.Errorf("подсчёт задач: %w", err)
	}
	return int(count), nil
}
