package postgres

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/tracker/internal/domain/entities"
)

const taskColumns = `id, title, description, status, priority, due_date, created_by, created_at, updated_at`

type taskRow struct {
	ID          uuid.UUID    `db:"id"`
	Title       string       `db:"title"`
	Description string       `db:"description"`
	Status      string       `db:"status"`
	Priority    string       `db:"priority"`
	DueDate     sql.NullTime `db:"due_date"`
	CreatedBy   uuid.UUID    `db:"created_by"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

func (r *taskRow) toEntity() *entities.Task {
	task := &entities.Task{
		ID:          r.ID.String(),
		Title:       r.Title,
		Description: r.Description,
		Status:      entities.TaskStatus(r.Status),
		Priority:    entities.Priority(r.Priority),
		CreatedBy:   entities.OwnerRef{ID: r.CreatedBy.String()},
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.DueDate.Valid {
		due := r.DueDate.Time.UTC()
		task.DueDate = &due
	}
	return task
}

// parseID parses a uuid. Ids that cannot be parsed can never match a row,
// so callers treat them as not found.
func parseID(id string) (uuid.UUID, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, false
	}
	return parsed, true
}

// whereClause accumulates AND-ed conditions with positional arguments.
type whereClause struct {
	conditions []string
	args       []interface{}
}

func (w *whereClause) add(format string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conditions = append(w.conditions, fmt.Sprintf(format, len(w.args)))
}

func (w *whereClause) String() string {
	return "WHERE " + strings.Join(w.conditions, " AND ")
}

// taskWhere translates a query into a WHERE clause. The owner condition is
// always first and always present.
func taskWhere(q entities.TaskQuery, owner uuid.UUID) *whereClause {
	w := &whereClause{}
	w.add("created_by = $%d", owner)

	if q.Search != "" {
		w.add("title ILIKE $%d", "%"+escapeLike(q.Search)+"%")
	}
	if q.Status != nil {
		w.add("status = $%d", string(*q.Status))
	}
	if q.Priority != nil {
		w.add("priority = $%d", string(*q.Priority))
	}

	return w
}

// escapeLike makes LIKE wildcards in s match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func listTasksQuery(w *whereClause, q entities.TaskQuery) (string, []interface{}) {
	args := append(append([]interface{}{}, w.args...), q.Limit, q.Skip())
	query := fmt.Sprintf(
		`SELECT %s FROM tasks %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		taskColumns, w, len(args)-1, len(args),
	)
	return query, args
}

func countTasksQuery(w *whereClause) (string, []interface{}) {
	return `SELECT COUNT(*) FROM tasks ` + w.String(), w.args
}

// updateTaskQuery builds an UPDATE of the patched columns for one owner's
// task. $1 is the task id and $2 the owner.
func updateTaskQuery(id, owner uuid.UUID, patch entities.TaskPatch) (string, []interface{}) {
	args := []interface{}{id, owner}
	var sets []string
	set := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Status != nil {
		set("status", string(*patch.Status))
	}
	if patch.Priority != nil {
		set("priority", string(*patch.Priority))
	}
	if patch.ClearDueDate {
		sets = append(sets, "due_date = NULL")
	} else if patch.DueDate != nil {
		set("due_date", patch.DueDate.UTC())
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(
		`UPDATE tasks SET %s WHERE id = $1 AND created_by = $2 RETURNING %s`,
		strings.Join(sets, ", "), taskColumns,
	)
	return query, args
}
