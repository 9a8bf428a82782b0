package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"taskcraft/internal/models/task"
	"taskcraft/internal/service"
	"time"

	"github.com/google/uuid"
)

// Nullable различает отсутствующее поле, явный null и значение
type Nullable[T any] struct {
	Set   bool
	Valid bool
	Value T
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Valid = false
		return nil
	}
	if err := json.Unmarshal(data, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// Ptr отдаёт nil для null и указатель на значение иначе
func (n Nullable[T]) Ptr() *T {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

var dueDateLayouts = []struct {
	layout string
	zoned  bool
}{
	{time.RFC3339Nano, true},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02T15:04", false},
	{"2006-01-02 15:04:05", false},
	{"2006-01-02", false},
}

// ParseDueDate понимает RFC3339 и локальные форматы без зоны, которые считаются UTC
func ParseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range dueDateLayouts {
		if l.zoned {
			if t, err := time.Parse(l.layout, s); err == nil {
				return t.UTC(), nil
			}
			continue
		}
		if t, err := time.ParseInLocation(l.layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("неверный формат даты %q", s)
}

// DueDate - срок задачи в запросе. Пустая строка равносильна null.
type DueDate struct {
	Set  bool
	Time *time.Time
}

func (d *DueDate) UnmarshalJSON(data []byte) error {
	d.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		d.Time = nil
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("due_date должен быть строкой: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		d.Time = nil
		return nil
	}

	t, err := ParseDueDate(raw)
	if err != nil {
		return fmt.Errorf("due_date: %w", err)
	}
	d.Time = &t
	return nil
}

// id, created_at, updated_at, is_overdue и priority_color только для чтения
// и при декодировании просто отбрасываются

type CreateTaskRequest struct {
	Title       string           `json:"title" validate:"required,max=255"`
	Description Nullable[string] `json:"description"`
	IsCompleted *bool            `json:"is_completed"`
	Priority    *string          `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Category    *string          `json:"category" validate:"omitempty,oneof=work personal health finance learning other"`
	DueDate     DueDate          `json:"due_date"`
}

// Input переводит запрос во вход сервиса. Отсутствующие priority и category
// получат значения по умолчанию, пустую строку отклонит сервис.
func (r CreateTaskRequest) Input() service.CreateInput {
	input := service.CreateInput{
		Title:       r.Title,
		Description: r.Description.Ptr(),
		DueDate:     r.DueDate.Time,
	}
	if r.IsCompleted != nil {
		input.IsCompleted = *r.IsCompleted
	}
	if r.Priority != nil {
		p := task.Priority(*r.Priority)
		input.Priority = &p
	}
	if r.Category != nil {
		c := task.Category(*r.Category)
		input.Category = &c
	}
	return input
}

type UpdateTaskRequest struct {
	// null для title недопустим, длину проверяет сервис
	Title       Nullable[string] `json:"title"`
	Description Nullable[string] `json:"description"`
	IsCompleted *bool            `json:"is_completed"`
	Priority    *string          `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Category    *string          `json:"category" validate:"omitempty,oneof=work personal health finance learning other"`
	DueDate     DueDate          `json:"due_date"`
}

// Options переводит переданные поля в опции обновления, отсутствующие поля не трогаются
func (r UpdateTaskRequest) Options() []task.Option {
	var options []task.Option
	if r.Title.Valid {
		options = append(options, task.WithTitle(r.Title.Value))
	}
	if r.Description.Set {
		options = append(options, task.WithDescription(r.Description.Ptr()))
	}
	if r.IsCompleted != nil {
		options = append(options, task.WithCompleted(*r.IsCompleted))
	}
	if r.Priority != nil {
		options = append(options, task.WithPriority(task.Priority(*r.Priority)))
	}
	if r.Category != nil {
		options = append(options, task.WithCategory(task.Category(*r.Category)))
	}
	if r.DueDate.Set {
		options = append(options, task.WithDueDate(r.DueDate.Time))
	}
	return options
}

type TaskResponse struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Description   *string    `json:"description"`
	IsCompleted   bool       `json:"is_completed"`
	Priority      string     `json:"priority"`
	Category      string     `json:"category"`
	DueDate       *time.Time `json:"due_date"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	IsOverdue     bool       `json:"is_overdue"`
	PriorityColor string     `json:"priority_color"`
}

func FromTask(t *task.Task, now time.Time) TaskResponse {
	return TaskResponse{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		IsCompleted:   t.IsCompleted,
		Priority:      string(t.Priority),
		Category:      string(t.Category),
		DueDate:       t.DueDate,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		IsOverdue:     t.IsOverdue(now),
		PriorityColor: t.PriorityColor(),
	}
}

func FromTaskList(tasks []*task.Task, now time.Time) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t, now)
	}
	return result
}

type PageResponse struct {
	Count    int            `json:"count"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
	Results  []TaskResponse `json:"results"`
}
