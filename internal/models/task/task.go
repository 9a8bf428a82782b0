package task

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const TitleMaxLength = 255

type Task struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description" db:"description"`
	IsCompleted bool       `json:"is_completed" db:"is_completed"`
	Priority    Priority   `json:"priority" db:"priority"`
	Category    Category   `json:"category" db:"category"`
	DueDate     *time.Time `json:"due_date" db:"due_date"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// New собирает задачу со значениями по умолчанию
func New(title string, now time.Time, options ...Option) *Task {
	t := &Task{
		ID:        uuid.New(),
		Title:     title,
		Priority:  PriorityMedium,
		Category:  CategoryOther,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// IsOverdue: срок задан, задача не выполнена и срок уже прошёл
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.IsCompleted {
		return false
	}
	return now.After(*t.DueDate)
}

func (t *Task) PriorityColor() string {
	return t.Priority.Color()
}

func (t *Task) Clone() *Task {
	c := *t
	if t.Description != nil {
		d := *t.Description
		c.Description = &d
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	return &c
}

type Priority string
type Category string

const PriorityLow Priority = "low"
const PriorityMedium Priority = "medium"
const PriorityHigh Priority = "high"
const PriorityUrgent Priority = "urgent"

const CategoryWork Category = "work"
const CategoryPersonal Category = "personal"
const CategoryHealth Category = "health"
const CategoryFinance Category = "finance"
const CategoryLearning Category = "learning"
const CategoryOther Category = "other"

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
var Categories = []Category{CategoryWork, CategoryPersonal, CategoryHealth, CategoryFinance, CategoryLearning, CategoryOther}

func ParsePriority(s string) (Priority, error) {
	for _, p := range Priorities {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("неизвестный приоритет %q", s)
}

func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("неизвестная категория %q", s)
}

// Rank задаёт порядок сортировки: urgent > high > medium > low
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

func (p Priority) Color() string {
	switch p {
	case PriorityLow:
		return "text-green-600"
	case PriorityMedium:
		return "text-yellow-600"
	case PriorityHigh:
		return "text-orange-600"
	case PriorityUrgent:
		return "text-red-600"
	default:
		return "text-gray-600"
	}
}
