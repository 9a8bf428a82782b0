package task

import (
	"strings"
	"time"
	"unicode"
)

// Filter описывает выборку задач. Пустые поля не ограничивают выборку.
type Filter struct {
	Completed *bool
	// строго раньше
	DueBefore *time.Time
	// полуинтервал [DueFrom, DueUntil)
	DueFrom  *time.Time
	DueUntil *time.Time
	// слова через пробел или запятую, каждое должно встретиться
	// в title или description без учёта регистра
	Search string
}

func Uncompleted() Filter {
	completed := false
	return Filter{Completed: &completed}
}

func CompletedOnly() Filter {
	completed := true
	return Filter{Completed: &completed}
}

func (f Filter) Match(t *Task) bool {
	if f.Completed != nil && t.IsCompleted != *f.Completed {
		return false
	}
	if f.DueBefore != nil && (t.DueDate == nil || !t.DueDate.Before(*f.DueBefore)) {
		return false
	}
	if f.DueFrom != nil && (t.DueDate == nil || t.DueDate.Before(*f.DueFrom)) {
		return false
	}
	if f.DueUntil != nil && (t.DueDate == nil || !t.DueDate.Before(*f.DueUntil)) {
		return false
	}
	for _, term := range f.SearchTerms() {
		if !matchesTerm(t, strings.ToLower(term)) {
			return false
		}
	}
	return true
}

// SearchTerms делит строку поиска на слова по пробелам и запятым
func (f Filter) SearchTerms() []string {
	return strings.FieldsFunc(f.Search, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

func matchesTerm(t *Task, needle string) bool {
	if strings.Contains(strings.ToLower(t.Title), needle) {
		return true
	}
	return t.Description != nil && strings.Contains(strings.ToLower(*t.Description), needle)
}
