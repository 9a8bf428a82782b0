package repository

import (
	"fmt"
	"strconv"
	"strings"
	"taskcraft/internal/models/task"
)

// общие куски SQL для postgres и sqlite хранилищ

// Placeholder возвращает плейсхолдер для n-го аргумента, считая с 1
type Placeholder func(n int) string

func Dollar(n int) string { return "$" + strconv.Itoa(n) }

func Question(int) string { return "?" }

// PriorityRankSQL повторяет task.Priority.Rank
var PriorityRankSQL = func() string {
	var b strings.Builder
	b.WriteString("CASE priority")
	for _, p := range task.Priorities {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", p, p.Rank())
	}
	b.WriteString(" ELSE 0 END")
	return b.String()
}()

// LikePattern экранирует спецсимволы LIKE и оборачивает строку в %...%
func LikePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(search)) + "%"
}

// Conditions строит условия фильтра, соединённые через AND, без ключевого слова WHERE
func Conditions(f task.Filter, ph Placeholder) (string, []any) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return ph(len(args))
	}

	if f.Completed != nil {
		conds = append(conds, "is_completed = "+arg(*f.Completed))
	}
	if f.DueBefore != nil {
		conds = append(conds, "due_date IS NOT NULL AND due_date < "+arg(f.DueBefore.UTC()))
	}
	if f.DueFrom != nil {
		conds = append(conds, "due_date IS NOT NULL AND due_date >= "+arg(f.DueFrom.UTC()))
	}
	if f.DueUntil != nil {
		conds = append(conds, "due_date IS NOT NULL AND due_date < "+arg(f.DueUntil.UTC()))
	}
	// по группе на слово, все группы обязательны
	for _, term := range f.SearchTerms() {
		pattern := LikePattern(term)
		conds = append(conds, fmt.Sprintf(
			`(LOWER(title) LIKE %s ESCAPE '\' OR LOWER(COALESCE(description, '')) LIKE %s ESCAPE '\')`,
			arg(pattern), arg(pattern)))
	}

	return strings.Join(conds, " AND "), args
}

// WhereClause строит "WHERE ..." по фильтру. Пустой фильтр даёт пустую строку.
func WhereClause(f task.Filter, ph Placeholder) (string, []any) {
	conds, args := Conditions(f, ph)
	if conds == "" {
		return "", nil
	}
	return "WHERE " + conds, args
}

// OrderTerms переводит порядок в выражения ORDER BY без самого ключевого слова
func OrderTerms(o task.Ordering) []string {
	terms := make([]string, 0, len(o)+1)
	for _, f := range o {
		dir := "ASC"
		if f.Desc {
			dir = "DESC"
		}
		switch f.Field {
		case task.FieldPriority:
			terms = append(terms, PriorityRankSQL+" "+dir)
		case task.FieldDueDate:
			// NULL в конце при любом направлении
			terms = append(terms, "due_date IS NULL ASC", "due_date "+dir)
		case task.FieldCreatedAt, task.FieldUpdatedAt, task.FieldID:
			terms = append(terms, string(f.Field)+" "+dir)
		}
	}
	return terms
}

func OrderClause(o task.Ordering) string {
	terms := OrderTerms(o)
	if len(terms) == 0 {
		return ""
	}
	return "ORDER BY " + strings.Join(terms, ", ")
}
