package app_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"taskcraft/internal/app"
	"taskcraft/internal/config"
	"taskcraft/internal/middleware"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T, mutate func(*config.Config)) *app.App {
	t.Helper()
	cfg := config.Default()
	cfg.Repository.Type = config.RepositoryInMemory
	cfg.Logging.Development = true
	if mutate != nil {
		mutate(cfg)
	}

	a, err := app.New(cfg).Init(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() {
		for _, op := range a.Shutdowns() {
			_ = op(context.Background())
		}
	})
	return a
}

func TestApp_InMemoryRoundTrip(t *testing.T) {
	a := newApp(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/tasks/", bytes.NewBufferString(`{"title": "Buy milk"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "99", w.Header().Get("X-RateLimit-Remaining"))

	w = httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestApp_CORSPreflight(t *testing.T) {
	a := newApp(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/tasks/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestApp_SQLiteBackend(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tasks.db")
	a := newApp(t, func(cfg *config.Config) {
		cfg.Repository.Type = config.RepositorySQLite
		cfg.Repository.SQLitePath = dbPath
	})

	req := httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewBufferString(`{"title": "Persist me", "due_date": "2030-01-01"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total": 1, "completed": 0, "overdue": 0, "today": 0}`, w.Body.String())
}

func TestApp_UnknownRepository(t *testing.T) {
	cfg := config.Default()
	cfg.Repository.Type = "redis"

	_, err := app.New(cfg).Init(context.Background())
	assert.Error(t, err)
}
