package task

import (
	"strings"
)

type Field string

const FieldCreatedAt Field = "created_at"
const FieldUpdatedAt Field = "updated_at"
const FieldDueDate Field = "due_date"
const FieldPriority Field = "priority"
const FieldID Field = "id"

// поля, по которым клиент может сортировать список
var clientOrderable = map[string]Field{
	"created_at": FieldCreatedAt,
	"due_date":   FieldDueDate,
	"priority":   FieldPriority,
}

type OrderField struct {
	Field Field
	Desc  bool
}

type Ordering []OrderField

var DefaultOrdering = Ordering{
	{Field: FieldPriority, Desc: true},
	{Field: FieldCreatedAt, Desc: true},
}

// ParseOrdering разбирает строку вида "-priority,created_at".
// Неизвестные и повторяющиеся поля пропускаются, пустой результат означает nil.
func ParseOrdering(raw string) Ordering {
	var res Ordering
	seen := map[Field]bool{}
	for _, term := range strings.Split(raw, ",") {
		term = strings.TrimSpace(term)
		desc := strings.HasPrefix(term, "-")
		field, ok := clientOrderable[strings.TrimPrefix(term, "-")]
		if !ok || seen[field] {
			continue
		}
		seen[field] = true
		res = append(res, OrderField{Field: field, Desc: desc})
	}
	return res
}

// WithTieBreakers дополняет порядок полями created_at DESC и id, чтобы страницы были стабильными
func (o Ordering) WithTieBreakers() Ordering {
	res := make(Ordering, 0, len(o)+2)
	hasCreated, hasID := false, false
	for _, f := range o {
		hasCreated = hasCreated || f.Field == FieldCreatedAt
		hasID = hasID || f.Field == FieldID
		res = append(res, f)
	}
	if !hasCreated {
		res = append(res, OrderField{Field: FieldCreatedAt, Desc: true})
	}
	if !hasID {
		res = append(res, OrderField{Field: FieldID})
	}
	return res
}

func (o Ordering) String() string {
	terms := make([]string, 0, len(o))
	for _, f := range o {
		if f.Desc {
			terms = append(terms, "-"+string(f.Field))
		} else {
			terms = append(terms, string(f.Field))
		}
	}
	return strings.Join(terms, ",")
}

// Less сравнивает задачи так же, как ORDER BY в SQL хранилищах
func (o Ordering) Less(a, b *Task) bool {
	for _, f := range o {
		c := compareField(f, a, b)
		if c != 0 {
			return c < 0
		}
	}
	return false
}

func compareField(f OrderField, a, b *Task) int {
	var c int
	switch f.Field {
	case FieldCreatedAt:
		c = a.CreatedAt.Compare(b.CreatedAt)
	case FieldUpdatedAt:
		c = a.UpdatedAt.Compare(b.UpdatedAt)
	case FieldPriority:
		c = a.Priority.Rank() - b.Priority.Rank()
	case FieldID:
		c = strings.Compare(a.ID.String(), b.ID.String())
	case FieldDueDate:
		// задачи без срока всегда в конце
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return 0
		case a.DueDate == nil:
			return 1
		case b.DueDate == nil:
			return -1
		}
		c = a.DueDate.Compare(*b.DueDate)
	}
	if f.Desc {
		return -c
	}
	return c
}
