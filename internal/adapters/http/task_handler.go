package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/tracker/internal/application/services"
	"github.com/taskmaster/tracker/internal/application/validation"
	"github.com/taskmaster/tracker/internal/domain/entities"
	"github.com/taskmaster/tracker/internal/infrastructure/logger"
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskService *services.TaskService
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *services.TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
	}
}

// CreateTask godoc
// @Summary Create a task
// @Description The task is owned by the caller; any owner in the body is ignored.
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body validation.TaskPayload true "Task fields"
// @Success 201 {object} Response{data=entities.Task}
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks [post]
func (h *TaskHandler) CreateTask(c echo.Context) error {
	var payload validation.TaskPayload
	if err := validation.Decode(c.Request().Body, &payload, false); err != nil {
		return err
	}

	in, err := validation.CreateTask(payload)
	if err != nil {
		return err
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), in, UserID(c))
	if err != nil {
		return err
	}

	return ok(c, http.StatusCreated, "Task created successfully", task)
}

// ListTasks godoc
// @Summary List the caller's tasks
// @Tags tasks
// @Produce json
// @Param search query string false "Case-insensitive title substring"
// @Param status query string false "pending, in-progress or completed"
// @Param priority query string false "low, medium or high"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} Response{data=[]entities.Task}
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks [get]
func (h *TaskHandler) ListTasks(c echo.Context) error {
	opts := entities.ListOptions{
		Search:   c.QueryParam("search"),
		Status:   c.QueryParam("status"),
		Priority: c.QueryParam("priority"),
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
	}

	page, err := h.taskService.ListTasks(c.Request().Context(), UserID(c), opts)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, Response{
		Success:    true,
		Message:    "Tasks retrieved successfully",
		Data:       page.Tasks,
		Pagination: &page.Pagination,
	})
}

// GetStats godoc
// @Summary Count the caller's tasks by status and priority
// @Tags tasks
// @Produce json
// @Success 200 {object} Response{data=entities.TaskStats}
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks/stats [get]
func (h *TaskHandler) GetStats(c echo.Context) error {
	stats, err := h.taskService.GetStats(c.Request().Context(), UserID(c))
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "Task statistics retrieved successfully", stats)
}

// GetTask godoc
// @Summary Get one of the caller's tasks
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} Response{data=entities.Task}
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [get]
func (h *TaskHandler) GetTask(c echo.Context) error {
	task, err := h.taskService.GetTask(c.Request().Context(), c.Param("id"), UserID(c))
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "Task retrieved successfully", task)
}

// UpdateTask godoc
// @Summary Update fields of one of the caller's tasks
// @Description Only supplied fields change. A null dueDate clears it.
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body validation.TaskPayload true "Fields to change"
// @Success 200 {object} Response{data=entities.Task}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [put]
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	var payload validation.TaskPayload
	if err := validation.Decode(c.Request().Body, &payload, true); err != nil {
		return err
	}

	patch, err := validation.UpdateTask(payload)
	if err != nil {
		return err
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), c.Param("id"), UserID(c), patch)
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "Task updated successfully", task)
}

// DeleteTask godoc
// @Summary Delete one of the caller's tasks
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} Response
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	if err := h.taskService.DeleteTask(c.Request().Context(), c.Param("id"), UserID(c)); err != nil {
		return err
	}

	return ok(c, http.StatusOK, "Task deleted successfully", nil)
}

// queryInt returns 0 for a missing or non-numeric parameter, which the
// query builder replaces with the default.
func queryInt(c echo.Context, name string) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return n
}
