package task_test

import (
	"sort"
	"taskcraft/internal/models/task"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

// TestNew проверяет значения по умолчанию
func TestNew(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tk := task.New("Buy milk", now)

	assert.Equal(t, "Buy milk", tk.Title)
	assert.Nil(t, tk.Description)
	assert.False(t, tk.IsCompleted)
	assert.Equal(t, task.PriorityMedium, tk.Priority)
	assert.Equal(t, task.CategoryOther, tk.Category)
	assert.Nil(t, tk.DueDate)
	assert.Equal(t, now, tk.CreatedAt)
	assert.Equal(t, now, tk.UpdatedAt)
	assert.NotEqual(t, uuid.Nil, tk.ID)
}

func TestNew_WithOptions(t *testing.T) {
	now := time.Now()
	due := now.Add(time.Hour)
	tk := task.New("Report", now,
		task.WithDescription(ptr("quarterly")),
		task.WithPriority(task.PriorityUrgent),
		task.WithCategory(task.CategoryWork),
		task.WithDueDate(&due),
		nil, // nil-опция пропускается
	)

	require.NotNil(t, tk.Description)
	assert.Equal(t, "quarterly", *tk.Description)
	assert.Equal(t, task.PriorityUrgent, tk.Priority)
	assert.Equal(t, task.CategoryWork, tk.Category)
	require.NotNil(t, tk.DueDate)
	assert.True(t, due.Equal(*tk.DueDate))
}

func TestWithPriority_KeepsEmptyValue(t *testing.T) {
	tk := task.New("Report", time.Now(), task.WithPriority(""), task.WithCategory(""))

	assert.Equal(t, task.Priority(""), tk.Priority)
	assert.Equal(t, task.Category(""), tk.Category)
}

func TestTask_IsOverdue(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name     string
		task     task.Task
		expected bool
	}{
		{name: "no due date", task: task.Task{}, expected: false},
		{name: "due in future", task: task.Task{DueDate: &future}, expected: false},
		{name: "due in past", task: task.Task{DueDate: &past}, expected: true},
		{name: "due in past but completed", task: task.Task{DueDate: &past, IsCompleted: true}, expected: false},
		{name: "due exactly now", task: task.Task{DueDate: &now}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.task.IsOverdue(now))
		})
	}
}

func TestPriority_Color(t *testing.T) {
	assert.Equal(t, "text-green-600", task.PriorityLow.Color())
	assert.Equal(t, "text-yellow-600", task.PriorityMedium.Color())
	assert.Equal(t, "text-orange-600", task.PriorityHigh.Color())
	assert.Equal(t, "text-red-600", task.PriorityUrgent.Color())
	assert.Equal(t, "text-gray-600", task.Priority("unknown").Color())
}

func TestParseEnums(t *testing.T) {
	p, err := task.ParsePriority("high")
	require.NoError(t, err)
	assert.Equal(t, task.PriorityHigh, p)

	_, err = task.ParsePriority("HIGH")
	assert.Error(t, err)

	_, err = task.ParsePriority("critical")
	assert.Error(t, err)

	c, err := task.ParseCategory("learning")
	require.NoError(t, err)
	assert.Equal(t, task.CategoryLearning, c)

	_, err = task.ParseCategory("shopping")
	assert.Error(t, err)
}

func TestTask_Clone(t *testing.T) {
	due := time.Now()
	orig := task.New("Original", time.Now(), task.WithDescription(ptr("desc")), task.WithDueDate(&due))

	c := orig.Clone()
	*c.Description = "changed"
	*c.DueDate = due.Add(time.Hour)

	assert.Equal(t, "desc", *orig.Description)
	assert.True(t, due.UTC().Equal(*orig.DueDate))
}

func TestFilter_Match(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	open := &task.Task{Title: "Write Report", DueDate: &past}
	done := &task.Task{Title: "Gym", Description: ptr("leg DAY"), IsCompleted: true, DueDate: &future}
	noDue := &task.Task{Title: "Read"}

	t.Run("completed flag", func(t *testing.T) {
		assert.True(t, task.Uncompleted().Match(open))
		assert.False(t, task.Uncompleted().Match(done))
		assert.True(t, task.CompletedOnly().Match(done))
	})

	t.Run("due before", func(t *testing.T) {
		f := task.Filter{DueBefore: &now}
		assert.True(t, f.Match(open))
		assert.False(t, f.Match(done))
		assert.False(t, f.Match(noDue))
	})

	t.Run("due window", func(t *testing.T) {
		from := now
		until := now.Add(2 * time.Hour)
		f := task.Filter{DueFrom: &from, DueUntil: &until}
		assert.False(t, f.Match(open))
		assert.True(t, f.Match(done))
		assert.False(t, f.Match(noDue))
	})

	t.Run("every search word must match title or description", func(t *testing.T) {
		desc := "about milk"
		call := &task.Task{Title: "call mom", Description: &desc}
		buy := &task.Task{Title: "buy fresh milk"}

		f := task.Filter{Search: "buy milk"}
		assert.True(t, f.Match(buy))
		assert.False(t, f.Match(call))

		f = task.Filter{Search: "call,milk"}
		assert.True(t, f.Match(call))
		assert.False(t, f.Match(buy))

		assert.False(t, task.Filter{Search: "call bread"}.Match(call))
		assert.Equal(t, []string{"call", "milk", "now"}, task.Filter{Search: " call, milk  now "}.SearchTerms())
		assert.Empty(t, task.Filter{Search: " , "}.SearchTerms())
	})

	t.Run("search is case insensitive over title and description", func(t *testing.T) {
		assert.True(t, task.Filter{Search: "report"}.Match(open))
		assert.True(t, task.Filter{Search: "day"}.Match(done))
		assert.False(t, task.Filter{Search: "day"}.Match(noDue))
	})
}

func TestParseOrdering(t *testing.T) {
	tests := []struct {
		raw      string
		expected task.Ordering
	}{
		{raw: "", expected: nil},
		{raw: "priority", expected: task.Ordering{{Field: task.FieldPriority}}},
		{raw: "-due_date, created_at", expected: task.Ordering{
			{Field: task.FieldDueDate, Desc: true},
			{Field: task.FieldCreatedAt},
		}},
		{raw: "title,-priority,priority", expected: task.Ordering{{Field: task.FieldPriority, Desc: true}}},
		{raw: "updated_at", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, task.ParseOrdering(tt.raw))
		})
	}
}

func TestOrdering_WithTieBreakers(t *testing.T) {
	o := task.Ordering{{Field: task.FieldDueDate}}.WithTieBreakers()
	assert.Equal(t, "due_date,-created_at,id", o.String())

	o = task.Ordering{{Field: task.FieldCreatedAt}}.WithTieBreakers()
	assert.Equal(t, "created_at,id", o.String())
}

func TestOrdering_Less(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	due1 := base.Add(24 * time.Hour)
	due2 := base.Add(48 * time.Hour)

	low := &task.Task{Title: "low", Priority: task.PriorityLow, CreatedAt: base.Add(4 * time.Minute)}
	urgentOld := &task.Task{Title: "urgent-old", Priority: task.PriorityUrgent, CreatedAt: base, DueDate: &due2}
	urgentNew := &task.Task{Title: "urgent-new", Priority: task.PriorityUrgent, CreatedAt: base.Add(time.Minute)}
	high := &task.Task{Title: "high", Priority: task.PriorityHigh, CreatedAt: base.Add(2 * time.Minute), DueDate: &due1}
	medium := &task.Task{Title: "medium", Priority: task.PriorityMedium, CreatedAt: base.Add(3 * time.Minute)}

	titles := func(ts []*task.Task) []string {
		res := make([]string, len(ts))
		for i, t := range ts {
			res[i] = t.Title
		}
		return res
	}

	t.Run("default ordering ranks priority then newest first", func(t *testing.T) {
		ts := []*task.Task{low, medium, urgentOld, high, urgentNew}
		o := task.DefaultOrdering.WithTieBreakers()
		sort.SliceStable(ts, func(i, j int) bool { return o.Less(ts[i], ts[j]) })
		assert.Equal(t, []string{"urgent-new", "urgent-old", "high", "medium", "low"}, titles(ts))
	})

	t.Run("due date nulls last in both directions", func(t *testing.T) {
		ts := []*task.Task{low, urgentOld, high}

		asc := task.Ordering{{Field: task.FieldDueDate}}.WithTieBreakers()
		sort.SliceStable(ts, func(i, j int) bool { return asc.Less(ts[i], ts[j]) })
		assert.Equal(t, []string{"high", "urgent-old", "low"}, titles(ts))

		desc := task.Ordering{{Field: task.FieldDueDate, Desc: true}}.WithTieBreakers()
		sort.SliceStable(ts, func(i, j int) bool { return desc.Less(ts[i], ts[j]) })
		assert.Equal(t, []string{"urgent-old", "high", "low"}, titles(ts))
	})
}
