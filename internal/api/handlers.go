package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rossigee/todostore/internal/backup"
	"github.com/rossigee/todostore/internal/notify"
	"github.com/rossigee/todostore/internal/storage"
	"github.com/rossigee/todostore/pkg/types"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Store is the storage surface the API exposes
type Store interface {
	ListTasks(ctx context.Context) ([]storage.Task, error)
	AddTask(ctx context.Context, in storage.NewTask) (storage.Task, error)
	UpdateTask(ctx context.Context, task storage.Task) error
	DeleteTask(ctx context.Context, id int64) error
	ClearTasks(ctx context.Context) error
	ListPrompts(ctx context.Context) (map[string]storage.Prompt, error)
	UpsertPrompt(ctx context.Context, p storage.Prompt) error
	IsOpen() bool
}

// Exporter uploads database backups
type Exporter interface {
	Export(ctx context.Context) (*backup.Result, error)
}

// Handler handles HTTP API requests
type Handler struct {
	store    Store
	toaster  notify.Toaster
	exporter Exporter
	started  time.Time
}

// NewHandler creates a new API handler. exporter may be nil when backups are
// not configured.
func NewHandler(store Store, toaster notify.Toaster, exporter Exporter) *Handler {
	return &Handler{
		store:    store,
		toaster:  toaster,
		exporter: exporter,
		started:  time.Now(),
	}
}

// SetupRoutes configures the API routes. middleware guards the /api/v1 group.
func SetupRoutes(router *gin.Engine, handler *Handler, middleware ...gin.HandlerFunc) {
	api := router.Group("/api/v1", middleware...)
	{
		api.GET("/tasks", handler.ListTasks)
		api.POST("/tasks", handler.AddTask)
		api.DELETE("/tasks", handler.ClearTasks)
		api.PUT("/tasks/:id", handler.UpdateTask)
		api.DELETE("/tasks/:id", handler.DeleteTask)

		api.GET("/prompts", handler.ListPrompts)
		api.PUT("/prompts/:slug", handler.UpsertPrompt)

		api.GET("/toaster", handler.Toaster)
		api.POST("/backup", handler.Backup)
	}

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)
}

// ListTasks returns every task in key order
func (h *Handler) ListTasks(c *gin.Context) {
	tasks, err := h.store.ListTasks(c.Request.Context())
	if err != nil {
		storageError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// AddTask creates a task and returns it with its id and creation time
func (h *Handler) AddTask(c *gin.Context) {
	var req types.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	task, err := h.store.AddTask(c.Request.Context(), storage.NewTask{
		Task:   req.Task,
		IsDone: req.IsDone,
	})
	if err != nil {
		storageError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// UpdateTask writes the full task under the id in the path
func (h *Handler) UpdateTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	var req types.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	err := h.store.UpdateTask(c.Request.Context(), storage.Task{
		ID:        id,
		Task:      req.Task,
		IsDone:    req.IsDone,
		CreatedAt: req.CreatedAt,
	})
	if err != nil {
		storageError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.StatusResponse{Status: "updated", ID: id})
}

// DeleteTask removes one task; unknown ids succeed
func (h *Handler) DeleteTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	if err := h.store.DeleteTask(c.Request.Context(), id); err != nil {
		storageError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.StatusResponse{Status: "deleted", ID: id})
}

// ClearTasks removes every task
func (h *Handler) ClearTasks(c *gin.Context) {
	if err := h.store.ClearTasks(c.Request.Context()); err != nil {
		storageError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.StatusResponse{Status: "cleared"})
}

// ListPrompts returns prompts keyed by slug
func (h *Handler) ListPrompts(c *gin.Context) {
	prompts, err := h.store.ListPrompts(c.Request.Context())
	if err != nil {
		storageError(c, err)
		return
	}
	c.JSON(http.StatusOK, prompts)
}

// UpsertPrompt stores the prompt under the slug in the path
func (h *Handler) UpsertPrompt(c *gin.Context) {
	slug := c.Param("slug")

	var req types.PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.store.UpsertPrompt(c.Request.Context(), storage.Prompt{Slug: slug, Prompt: req.Prompt}); err != nil {
		storageError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.StatusResponse{Status: "saved", Slug: slug})
}

// Toaster returns the notification display configuration
func (h *Handler) Toaster(c *gin.Context) {
	c.JSON(http.StatusOK, h.toaster)
}

// Backup uploads a snapshot of both collections
func (h *Handler) Backup(c *gin.Context) {
	if h.exporter == nil {
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{
			Error:   "backup not configured",
			Message: "set MINIO_ENDPOINT and BACKUP_BUCKET to enable backups",
			Code:    http.StatusServiceUnavailable,
		})
		return
	}

	result, err := h.exporter.Export(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, types.ErrorResponse{
			Error:   "backup failed",
			Message: err.Error(),
			Code:    http.StatusBadGateway,
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

// HealthCheck provides service health information
func (h *Handler) HealthCheck(c *gin.Context) {
	database := "closed"
	if h.store.IsOpen() {
		database = "open"
	}

	c.JSON(http.StatusOK, types.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   Version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Database:  database,
	})
}

func taskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, types.ErrorResponse{
		Error:   "invalid request",
		Message: message,
		Code:    http.StatusBadRequest,
	})
}

// storageError maps the storage error taxonomy onto HTTP statuses
func storageError(c *gin.Context, err error) {
	var connErr *storage.ConnectionError
	var readErr *storage.ReadError

	switch {
	case errors.Is(err, storage.ErrMissingKey):
		badRequest(c, err.Error())
	case errors.As(err, &connErr):
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{
			Error:   "database unavailable",
			Message: err.Error(),
			Code:    http.StatusServiceUnavailable,
		})
	case errors.As(err, &readErr):
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error:   "read failed",
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
	default:
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error:   "write failed",
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
	}
}
