package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/tracker/internal/domain/entities"
	"github.com/taskmaster/tracker/internal/ports"
)

// TaskRepositoryImpl implements the TaskRepository interface
type TaskRepositoryImpl struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sqlx.DB) ports.TaskRepository {
	return &TaskRepositoryImpl{db: db}
}

func (r *TaskRepositoryImpl) Create(ctx context.Context, task *entities.Task) error {
	owner, ok := parseID(task.OwnerID())
	if !ok {
		return fmt.Errorf("create task: invalid owner id %q", task.OwnerID())
	}

	query := `
		INSERT INTO tasks (id, title, description, status, priority, due_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	id := uuid.New()
	var due sql.NullTime
	if task.DueDate != nil {
		due = sql.NullTime{Time: task.DueDate.UTC(), Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		id, task.Title, task.Description, string(task.Status), string(task.Priority), due, owner,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	task.ID = id.String()
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	return nil
}

func (r *TaskRepositoryImpl) GetForOwner(ctx context.Context, id, ownerID string) (*entities.Task, error) {
	taskID, owner, ok := parseOwned(id, ownerID)
	if !ok {
		return nil, entities.ErrTaskNotFound
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND created_by = $2`

	var row taskRow
	if err := r.db.GetContext(ctx, &row, query, taskID, owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return row.toEntity(), nil
}

func (r *TaskRepositoryImpl) UpdateForOwner(ctx context.Context, id, ownerID string, patch entities.TaskPatch) (*entities.Task, error) {
	taskID, owner, ok := parseOwned(id, ownerID)
	if !ok {
		return nil, entities.ErrTaskNotFound
	}

	query, args := updateTaskQuery(taskID, owner, patch)

	var row taskRow
	if err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	return row.toEntity(), nil
}

func (r *TaskRepositoryImpl) DeleteForOwner(ctx context.Context, id, ownerID string) error {
	taskID, owner, ok := parseOwned(id, ownerID)
	if !ok {
		return entities.ErrTaskNotFound
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND created_by = $2`, taskID, owner)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entities.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepositoryImpl) List(ctx context.Context, q entities.TaskQuery) ([]*entities.Task, int64, error) {
	owner, ok := parseID(q.OwnerID)
	if !ok {
		return []*entities.Task{}, 0, nil
	}
	where := taskWhere(q, owner)

	countQuery, countArgs := countTasksQuery(where)
	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}
	if q.PastEnd(total) {
		return []*entities.Task{}, total, nil
	}

	listQuery, listArgs := listTasksQuery(where, q)
	var rows []taskRow
	if err := r.db.SelectContext(ctx, &rows, listQuery, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}

	tasks := make([]*entities.Task, 0, len(rows))
	for i := range rows {
		tasks = append(tasks, rows[i].toEntity())
	}
	return tasks, total, nil
}

func (r *TaskRepositoryImpl) Stats(ctx context.Context, ownerID string) (*entities.TaskStats, error) {
	stats := entities.NewTaskStats()
	owner, ok := parseID(ownerID)
	if !ok {
		return stats, nil
	}

	query := `
		SELECT status, priority, COUNT(*) AS count
		FROM tasks
		WHERE created_by = $1
		GROUP BY status, priority`

	var groups []struct {
		Status   string `db:"status"`
		Priority string `db:"priority"`
		Count    int64  `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &groups, query, owner); err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}

	for _, g := range groups {
		stats.Total += g.Count
		stats.ByStatus[entities.TaskStatus(g.Status)] += g.Count
		stats.ByPriority[entities.Priority(g.Priority)] += g.Count
	}
	return stats, nil
}

func parseOwned(id, ownerID string) (uuid.UUID, uuid.UUID, bool) {
	taskID, ok := parseID(id)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	owner, ok := parseID(ownerID)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return taskID, owner, true
}
