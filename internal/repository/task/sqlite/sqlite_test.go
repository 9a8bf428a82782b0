package sqlite_test

import (
	"context"
	"fmt"
	"path/filepath"
	"taskcraft/internal/models/task"
	"taskcraft/internal/repository"
	"taskcraft/internal/repository/task/sqlite"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTask(title string, minute int, options ...task.Option) *task.Task {
	return task.New(title, base.Add(time.Duration(minute)*time.Minute), options...)
}

func newStorage(t *testing.T) *sqlite.Storage {
	t.Helper()
	storage, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(storage.Close)
	return storage
}

func TestStorage_HealthCheck(t *testing.T) {
	storage := newStorage(t)
	assert.NoError(t, storage.HealthCheck(context.Background()))
}

func TestStorage_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t)

	desc := "Test Description"
	due := base.Add(48*time.Hour + 1500*time.Microsecond)
	taskToCreate := newTask("Test Task", 0,
		task.WithDescription(&desc),
		task.WithPriority(task.PriorityHigh),
		task.WithCategory(task.CategoryFinance),
		task.WithDueDate(&due))
	require.NoError(t, storage.Create(ctx, taskToCreate))

	retrieved, err := storage.GetByID(ctx, taskToCreate.ID)
	require.NoError(t, err)
	assert.Equal(t, taskToCreate, retrieved)

	noDesc := newTask("Without description", 1)
	require.NoError(t, storage.Create(ctx, noDesc))
	retrieved, err = storage.GetByID(ctx, noDesc.ID)
	require.NoError(t, err)
	assert.Nil(t, retrieved.Description)
	assert.Nil(t, retrieved.DueDate)

	_, err = storage.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStorage_Update(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t)

	desc := "to be cleared"
	taskToCreate := newTask("Original", 0, task.WithDescription(&desc))
	require.NoError(t, storage.Create(ctx, taskToCreate))

	changed := taskToCreate.Clone()
	changed.Title = "Updated"
	changed.Description = nil
	changed.Category = task.CategoryHealth
	changed.UpdatedAt = base.Add(time.Hour)
	require.NoError(t, storage.Update(ctx, changed))

	retrieved, err := storage.GetByID(ctx, taskToCreate.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated", retrieved.Title)
	assert.Nil(t, retrieved.Description)
	assert.Equal(t, task.CategoryHealth, retrieved.Category)
	assert.Equal(t, base, retrieved.CreatedAt)
	assert.Equal(t, base.Add(time.Hour), retrieved.UpdatedAt)

	err = storage.Update(ctx, newTask("ghost", 0))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStorage_SetCompleted(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t)

	tk := newTask("Complete me", 0)
	require.NoError(t, storage.Create(ctx, tk))

	done, err := storage.SetCompleted(ctx, tk.ID, true, base.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, done.IsCompleted)
	assert.Equal(t, base.Add(time.Minute), done.UpdatedAt)

	// повторный вызов только обновляет updated_at
	again, err := storage.SetCompleted(ctx, tk.ID, true, base.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, again.IsCompleted)
	assert.Equal(t, base.Add(2*time.Minute), again.UpdatedAt)

	undone, err := storage.SetCompleted(ctx, tk.ID, false, base.Add(3*time.Minute))
	require.NoError(t, err)
	assert.False(t, undone.IsCompleted)

	_, err = storage.SetCompleted(ctx, uuid.New(), true, base)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStorage_Delete(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t)

	tk := newTask("Delete me", 0)
	require.NoError(t, storage.Create(ctx, tk))

	require.NoError(t, storage.Delete(ctx, tk.ID))
	_, err := storage.GetByID(ctx, tk.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.ErrorIs(t, storage.Delete(ctx, tk.ID), repository.ErrNotFound)
}

func TestStorage_Find(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t)

	for i := 1; i <= 6; i++ {
		require.NoError(t, storage.Create(ctx, newTask(fmt.Sprintf("Task %d", i), i)))
	}
	require.NoError(t, storage.Create(ctx, newTask("Urgent", 0, task.WithPriority(task.PriorityUrgent))))
	require.NoError(t, storage.Create(ctx, newTask("Low", 20, task.WithPriority(task.PriorityLow))))
	require.NoError(t, storage.Create(ctx, newTask("Done", 10, task.WithCompleted(true))))

	ordering := task.DefaultOrdering.WithTieBreakers()

	page1, err := storage.Find(ctx, task.Uncompleted(), ordering, 5, 0)
	require.NoError(t, err)
	require.Len(t, page1, 5)
	assert.Equal(t, "Urgent", page1[0].Title)
	assert.Equal(t, "Task 6", page1[1].Title)

	page2, err := storage.Find(ctx, task.Uncompleted(), ordering, 5, 5)
	require.NoError(t, err)
	require.Len(t, page2, 3)
	assert.Equal(t, "Low", page2[2].Title)

	count, err := storage.Count(ctx, task.Uncompleted())
	require.NoError(t, err)
	assert.Equal(t, 8, count)

	count, err = storage.Count(ctx, task.CompletedOnly())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	search, err := storage.Find(ctx, task.Filter{Search: "TASK 1"}, ordering, 0, 0)
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, "Task 1", search[0].Title)
}

func TestStorage_FindSearchEscapesWildcards(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t)

	require.NoError(t, storage.Create(ctx, newTask("50% off", 0)))
	require.NoError(t, storage.Create(ctx, newTask("500 items", 1)))

	found, err := storage.Find(ctx, task.Filter{Search: "50%"}, task.DefaultOrdering.WithTieBreakers(), 0, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "50% off", found[0].Title)
}

func TestStorage_FindSearchWords(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t)

	about := "about milk"
	require.NoError(t, storage.Create(ctx, newTask("buy fresh milk", 0)))
	require.NoError(t, storage.Create(ctx, newTask("call mom", 1, task.WithDescription(&about))))
	require.NoError(t, storage.Create(ctx, newTask("Купить Молоко", 2)))

	ordering := task.DefaultOrdering.WithTieBreakers()
	cases := map[string][]string{
		"buy milk":  {"buy fresh milk"},
		"call milk": {"call mom"},
		"milk":      {"call mom", "buy fresh milk"},
		"молоко":    {"Купить Молоко"},
		"mom bread": nil,
	}
	for search, want := range cases {
		found, err := storage.Find(ctx, task.Filter{Search: search}, ordering, 0, 0)
		require.NoError(t, err)
		titles := make([]string, 0, len(found))
		for _, tk := range found {
			titles = append(titles, tk.Title)
		}
		assert.ElementsMatch(t, want, titles, search)

		count, err := storage.Count(ctx, task.Filter{Search: search})
		require.NoError(t, err)
		assert.Equal(t, len(want), count, search)
	}
}

func TestStorage_FindOverdue(t *testing.T) {
	ctx := context.Background()
	storage := newStorage(t)
	now := base.Add(24 * time.Hour)

	dueLong := now.Add(-72 * time.Hour)
	dueRecent := now.Add(-time.Hour)
	dueFuture := now.Add(time.Hour)

	require.NoError(t, storage.Create(ctx, newTask("recent", 0, task.WithDueDate(&dueRecent))))
	require.NoError(t, storage.Create(ctx, newTask("long ago", 1, task.WithDueDate(&dueLong))))
	require.NoError(t, storage.Create(ctx, newTask("future", 2, task.WithDueDate(&dueFuture))))
	require.NoError(t, storage.Create(ctx, newTask("done", 3, task.WithDueDate(&dueLong), task.WithCompleted(true))))
	require.NoError(t, storage.Create(ctx, newTask("no due", 4)))

	filter := task.Uncompleted()
	filter.DueBefore = &now
	overdue, err := storage.Find(ctx, filter, task.Ordering{{Field: task.FieldDueDate}}.WithTieBreakers(), 0, 0)
	require.NoError(t, err)
	require.Len(t, overdue, 2)
	assert.Equal(t, "long ago", overdue[0].Title)
	assert.Equal(t, "recent", overdue[1].Title)

	byDueDesc, err := storage.Find(ctx, task.Uncompleted(), task.Ordering{{Field: task.FieldDueDate, Desc: true}}.WithTieBreakers(), 0, 0)
	require.NoError(t, err)
	require.Len(t, byDueDesc, 4)
	assert.Equal(t, "future", byDueDesc[0].Title)
	assert.Equal(t, "no due", byDueDesc[3].Title)
}

func TestStorage_PersistsToFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.db")

	storage, err := sqlite.New(path)
	require.NoError(t, err)
	tk := newTask("Persisted", 0)
	require.NoError(t, storage.Create(ctx, tk))
	storage.Close()

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	defer reopened.Close()

	retrieved, err := reopened.GetByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Persisted", retrieved.Title)
}
