package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"taskcraft/internal/config"
	"taskcraft/internal/handlers"
	"taskcraft/internal/logger"
	"taskcraft/internal/middleware"
	"taskcraft/internal/migrations"
	"taskcraft/internal/repository/task/inmemory"
	"taskcraft/internal/repository/task/postgres"
	"taskcraft/internal/repository/task/sqlite"
	"taskcraft/internal/service"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const serviceName = "taskcraft"

type App struct {
	config     *config.Config
	server     *http.Server
	router     *chi.Mux
	repository service.TaskRepository // интерфейс!
	service    handlers.Service
	shutdowns  map[string]gfshutdown.Operation // функции для graceful shutdown
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make(map[string]gfshutdown.Operation),
	}
}

func (a *App) Init(ctx context.Context) (*App, error) {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return nil, fmt.Errorf("инициализация логгера: %w", err)
	}

	a.shutdowns["logger"] = func(ctx context.Context) error {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
		return nil
	}

	if err := a.initRepository(ctx); err != nil {
		return nil, err
	}

	a.service = service.NewTaskService(a.repository,
		service.WithPageSize(a.config.Pagination.PageSize, a.config.Pagination.MaxPageSize))

	a.initRouter()

	a.server = &http.Server{
		Addr:              a.config.GetServerAddr(),
		Handler:           otelhttp.NewHandler(a.router, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.shutdowns["http-server"] = func(ctx context.Context) error {
		logger.Info("Остановка HTTP сервера...")
		return a.server.Shutdown(ctx)
	}

	logger.Info("Приложение инициализировано",
		zap.String("repository", a.config.Repository.Type),
		zap.String("addr", a.server.Addr))
	return a, nil
}

func (a *App) initRepository(ctx context.Context) error {
	switch a.config.Repository.Type {
	case config.RepositoryPostgres:
		if err := migrations.Up(a.config.Database.URL); err != nil {
			return fmt.Errorf("миграции: %w", err)
		}
		storage, err := postgres.New(ctx, a.config.Database.URL,
			postgres.WithMaxConns(a.config.Database.MaxConnections),
			postgres.WithMinConns(a.config.Database.MinConnections),
			postgres.WithMaxConnIdleTime(a.config.Database.IdleTimeout))
		if err != nil {
			return fmt.Errorf("подключение к postgres: %w", err)
		}
		a.repository = storage
		a.shutdowns["postgres"] = func(ctx context.Context) error {
			storage.Close()
			return nil
		}

	case config.RepositorySQLite:
		storage, err := sqlite.New(a.config.Repository.SQLitePath)
		if err != nil {
			return fmt.Errorf("открытие sqlite: %w", err)
		}
		a.repository = storage
		a.shutdowns["sqlite"] = func(ctx context.Context) error {
			storage.Close()
			return nil
		}

	case config.RepositoryInMemory:
		logger.Warn("Данные хранятся в памяти и пропадут после перезапуска")
		a.repository = inmemory.NewTaskStorage()

	default:
		return fmt.Errorf("неизвестный тип репозитория %q", a.config.Repository.Type)
	}
	return nil
}

func (a *App) initRouter() {
	r := chi.NewRouter()

	r.Use(chimw.StripSlashes)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.config.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{"Location", middleware.RequestIDHeader, "X-RateLimit-Remaining"},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.RateLimit(a.config.RateLimit.RequestsPerMinute))
	r.Use(middleware.Timeout(a.config.Server.RequestTimeout))

	handlers.NewTaskHandler(a.service).Register(r)

	a.router = r
}

// Handler отдаёт собранный роутер без обёртки трассировки
func (a *App) Handler() http.Handler {
	return a.router
}

// Run блокируется до остановки сервера. Штатная остановка ошибкой не считается.
func (a *App) Run() error {
	logger.Info("Сервер запущен", zap.String("addr", a.server.Addr))
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http сервер: %w", err)
	}
	return nil
}

// Shutdowns отдаёт операции остановки для gfshutdown
func (a *App) Shutdowns() map[string]gfshutdown.Operation {
	return a.shutdowns
}
