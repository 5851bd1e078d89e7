package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/taskmaster/tracker/internal/domain/entities"
	"github.com/taskmaster/tracker/internal/infrastructure/logger"
	"github.com/taskmaster/tracker/internal/ports"
)

// TaskService is the owner-scoped access layer over the task store. Every
// operation takes the authenticated owner id; there is no other way in.
type TaskService struct {
	taskRepo ports.TaskRepository
	enricher *OwnerEnricher
	metrics  *TaskMetrics
	logger   *logger.Logger
}

// NewTaskService creates a new task service. metrics may be nil.
func NewTaskService(taskRepo ports.TaskRepository, enricher *OwnerEnricher, metrics *TaskMetrics, logger *logger.Logger) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		enricher: enricher,
		metrics:  metrics,
		logger:   logger.WithComponent("tasks"),
	}
}

// CreateTask stores a new task owned by ownerID
func (s *TaskService) CreateTask(ctx context.Context, in entities.TaskInput, ownerID string) (*entities.Task, error) {
	task := in.NewTask(ownerID)

	err := s.taskRepo.Create(ctx, task)
	s.metrics.observe("create", err)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.enricher.Enrich(ctx, task)
	s.logger.LogUserAction(ownerID, "task_created", map[string]interface{}{"task_id": task.ID})

	return task, nil
}

// ListTasks returns one page of the owner's tasks matching opts
func (s *TaskService) ListTasks(ctx context.Context, ownerID string, opts entities.ListOptions) (*ports.TaskPage, error) {
	q := entities.NewTaskQuery(ownerID, opts)

	tasks, total, err := s.taskRepo.List(ctx, q)
	s.metrics.observe("list", err)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []*entities.Task{}
	}

	s.enricher.Enrich(ctx, tasks...)

	return &ports.TaskPage{
		Tasks:      tasks,
		Pagination: entities.NewPagination(total, q),
	}, nil
}

// GetTask retrieves one of the owner's tasks
func (s *TaskService) GetTask(ctx context.Context, id, ownerID string) (*entities.Task, error) {
	task, err := s.taskRepo.GetForOwner(ctx, id, ownerID)
	s.metrics.observe("get", err)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	s.enricher.Enrich(ctx, task)
	return task, nil
}

// UpdateTask applies patch to one of the owner's tasks
func (s *TaskService) UpdateTask(ctx context.Context, id, ownerID string, patch entities.TaskPatch) (*entities.Task, error) {
	task, err := s.taskRepo.UpdateForOwner(ctx, id, ownerID, patch)
	s.metrics.observe("update", err)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.enricher.Enrich(ctx, task)
	s.logger.LogUserAction(ownerID, "task_updated", map[string]interface{}{"task_id": task.ID})

	return task, nil
}

// DeleteTask permanently removes one of the owner's tasks
func (s *TaskService) DeleteTask(ctx context.Context, id, ownerID string) error {
	err := s.taskRepo.DeleteForOwner(ctx, id, ownerID)
	s.metrics.observe("delete", err)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	s.logger.LogUserAction(ownerID, "task_deleted", map[string]interface{}{"task_id": id})
	return nil
}

// GetStats counts the owner's tasks by status and priority
func (s *TaskService) GetStats(ctx context.Context, ownerID string) (*entities.TaskStats, error) {
	stats, err := s.taskRepo.Stats(ctx, ownerID)
	s.metrics.observe("stats", err)
	if err != nil {
		return nil, fmt.Errorf("failed to get task stats: %w", err)
	}
	return stats, nil
}

// TaskMetrics counts task operations by outcome
type TaskMetrics struct {
	operations *prometheus.CounterVec
}

// NewTaskMetrics registers the task operation counter with reg
func NewTaskMetrics(reg prometheus.Registerer) *TaskMetrics {
	operations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_operations_total",
			Help: "Total number of task operations by outcome",
		},
		[]string{"operation", "result"},
	)
	reg.MustRegister(operations)

	return &TaskMetrics{operations: operations}
}

func (m *TaskMetrics) observe(operation string, err error) {
	if m == nil {
		return
	}

	result := "ok"
	switch {
	case errors.Is(err, entities.ErrTaskNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	m.operations.WithLabelValues(operation, result).Inc()
}
