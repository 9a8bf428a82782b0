package task

import (
	"time"
)

type Option func(*Task)

func WithTitle(title string) Option {
	return func(task *Task) {
		task.Title = title
	}
}

// nil очищает описание
func WithDescription(description *string) Option {
	return func(task *Task) {
		if description == nil {
			task.Description = nil
			return
		}
		d := *description
		task.Description = &d
	}
}

func WithCompleted(completed bool) Option {
	return func(task *Task) {
		task.IsCompleted = completed
	}
}

// значение не проверяется, это делает сервис перед записью
func WithPriority(priority Priority) Option {
	return func(task *Task) {
		task.Priority = priority
	}
}

func WithCategory(category Category) Option {
	return func(task *Task) {
		task.Category = category
	}
}

// nil очищает срок
func WithDueDate(dueDate *time.Time) Option {
	return func(task *Task) {
		if dueDate == nil {
			task.DueDate = nil
			return
		}
		d := dueDate.UTC()
		task.DueDate = &d
	}
}
