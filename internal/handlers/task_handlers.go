package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"taskcraft/internal/handlers/dto"
	"taskcraft/internal/logger"
	"taskcraft/internal/models/task"
	"taskcraft/internal/service"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type TaskHandler struct {
	TaskService Service
}

func NewTaskHandler(taskService Service) *TaskHandler {
	return &TaskHandler{
		TaskService: taskService,
	}
}

// Routes описывает ресурс задач; монтируется и на /tasks, и на /api/tasks
func (h *TaskHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListTasks)  // GET /tasks
	r.Post("/", h.PostTask) // POST /tasks

	r.Get("/completed", h.GetCompletedTasks) // GET /tasks/completed
	r.Get("/overdue", h.GetOverdueTasks)     // GET /tasks/overdue
	r.Get("/stats", h.GetStats)              // GET /tasks/stats

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetTaskByID)       // GET /tasks/{id}
		r.Put("/", h.PutTask)           // PUT /tasks/{id}
		r.Patch("/", h.PatchTask)       // PATCH /tasks/{id}
		r.Delete("/", h.DeleteTaskByID) // DELETE /tasks/{id}

		r.Patch("/done", h.DoneTask) // PATCH /tasks/{id}/done
		r.Patch("/undo", h.UndoTask) // PATCH /tasks/{id}/undo
	})

	return r
}

// Register вешает ресурс и проверку здоровья на общий роутер.
// Хвостовой слэш снимает chi middleware.StripSlashes на уровне роутера.
func (h *TaskHandler) Register(r chi.Router) {
	r.Mount("/tasks", h.Routes())
	r.Mount("/api/tasks", h.Routes())
	r.Get("/health", h.HealthCheck)
}

// parseID: нечитаемый id для клиента ничем не отличается от отсутствующей задачи
func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idParam := chi.URLParam(r, "id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		logger.Warn("HTTP: Не удалось получить id",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		handleError(w, r, service.NewNotFound("task", idParam))
		return uuid.Nil, false
	}
	return id, true
}

// decodeBody проверяет тип контента и читает JSON в req
func decodeBody(w http.ResponseWriter, r *http.Request, req any) bool {
	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: Неверный тип контента",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE",
			"Content-Type должен быть application/json")
		return false
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	defer r.Body.Close()

	if err := decoder.Decode(req); err != nil {
		logger.Warn("HTTP: Ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		reason := err.Error()
		if errors.Is(err, io.EOF) {
			reason = "пустое тело запроса"
		}
		handleError(w, r, service.NewValidationError("body", reason))
		return false
	}

	if err := validateRequest(req); err != nil {
		handleError(w, r, err)
		return false
	}
	return true
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	query := r.URL.Query()

	page := 1
	if raw := query.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			logger.Warn("HTTP: Ошибка получения параметра",
				zap.String("query", "page"),
				zap.Error(err),
				zap.String("client_ip", r.RemoteAddr))

			handleError(w, r, service.NewValidationError("page", "номер страницы должен быть целым числом"))
			return
		}
		page = n
	}

	// некорректный page_size молча заменяется размером по умолчанию
	pageSize, _ := strconv.Atoi(query.Get("page_size"))

	result, err := h.TaskService.List(r.Context(), service.ListParams{
		Search:   query.Get("search"),
		Ordering: task.ParseOrdering(query.Get("ordering")),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	response := dto.PageResponse{
		Count:   result.Total,
		Results: dto.FromTaskList(result.Tasks, h.TaskService.Now()),
	}
	if result.HasNext() {
		next := pageURL(r, result.Page+1)
		response.Next = &next
	}
	if result.HasPrevious() {
		prev := pageURL(r, result.Page-1)
		response.Previous = &prev
	}

	logger.Info("HTTP_OUT: Задачи получены",
		zap.Int("count", len(result.Tasks)),
		zap.Int("page", result.Page),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, response)
}

// pageURL собирает абсолютную ссылку на страницу с сохранением остальных параметров
func pageURL(r *http.Request, page int) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	query := r.URL.Query()
	if page <= 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(page))
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: query.Encode(),
	}
	return u.String()
}

func (h *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.CreateTaskRequest
	if !decodeBody(w, r, &request) {
		return
	}

	logger.Info("HTTP: Вызов сервиса создания задач")
	created, err := h.TaskService.Create(r.Context(), request.Input())
	if err != nil {
		handleError(w, r, err)
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.String("task_id", created.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	w.Header().Set("Location", strings.TrimSuffix(r.URL.Path, "/")+"/"+created.ID.String())
	responseWithBody(w, http.StatusCreated, dto.FromTask(created, h.TaskService.Now()))
}

func (h *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	found, err := h.TaskService.Get(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}

	logger.Info("HTTP_OUT: Задача получена",
		zap.String("task_id", found.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromTask(found, h.TaskService.Now()))
}

// PutTask требует title, остальные поля как в PATCH
func (h *TaskHandler) PutTask(w http.ResponseWriter, r *http.Request) {
	h.updateTask(w, r, true)
}

func (h *TaskHandler) PatchTask(w http.ResponseWriter, r *http.Request) {
	h.updateTask(w, r, false)
}

func (h *TaskHandler) updateTask(w http.ResponseWriter, r *http.Request, full bool) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var request dto.UpdateTaskRequest
	if !decodeBody(w, r, &request) {
		return
	}
	if full && !request.Title.Set {
		handleError(w, r, service.NewValidationError("title", "обязательное поле"))
		return
	}
	if request.Title.Set && !request.Title.Valid {
		handleError(w, r, service.NewValidationError("title", "поле не может быть null"))
		return
	}

	logger.Info("HTTP: Запрос к сервису обновления данных")
	updated, err := h.TaskService.Update(r.Context(), id, request.Options()...)
	if err != nil {
		handleError(w, r, err)
		return
	}

	logger.Info("HTTP_OUT: Задача обновлена",
		zap.String("task_id", id.String()),
		zap.Bool("partial", !full),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromTask(updated, h.TaskService.Now()))
}

func (h *TaskHandler) DeleteTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	logger.Info("HTTP: Обращение к сервису для удаления задачи")
	if err := h.TaskService.Delete(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}

	logger.Info("HTTP_OUT: Задача удалена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusNoContent))

	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) DoneTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if _, err := h.TaskService.Done(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}

	logger.Info("HTTP_OUT: Задача выполнена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("status", "task completed"))
}

func (h *TaskHandler) UndoTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if _, err := h.TaskService.Undo(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}

	logger.Info("HTTP_OUT: Выполнение задачи отменено",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("status", "task undone"))
}

func (h *TaskHandler) GetCompletedTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	tasks, err := h.TaskService.Completed(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}

	logger.Info("HTTP_OUT: Выполненные задачи получены",
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromTaskList(tasks, h.TaskService.Now()))
}

func (h *TaskHandler) GetOverdueTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	tasks, err := h.TaskService.Overdue(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}

	logger.Info("HTTP_OUT: Просроченные задачи получены",
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromTaskList(tasks, h.TaskService.Now()))
}

func (h *TaskHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	stats, err := h.TaskService.Stats(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}

	responseWithBody(w, http.StatusOK, stats)
}

func (h *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")

	if err := h.TaskService.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: Сервис нездоров", err)
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "unavailable"),
			toPayload("service", "taskcraft"))
		return
	}

	responseWithJSON(w, http.StatusOK,
		toPayload("status", "ok"),
		toPayload("service", "taskcraft"))
}
