package postgres

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/taskmaster/tracker/internal/domain/entities"
)

func TestTaskWhere(t *testing.T) {
	owner := uuid.New()
	pending := entities.TaskStatusPending
	low := entities.PriorityLow

	tests := []struct {
		name     string
		query    entities.TaskQuery
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:     "owner only",
			query:    entities.TaskQuery{},
			wantSQL:  "WHERE created_by = $1",
			wantArgs: []interface{}{owner},
		},
		{
			name:     "search",
			query:    entities.TaskQuery{Search: "Report"},
			wantSQL:  "WHERE created_by = $1 AND title ILIKE $2",
			wantArgs: []interface{}{owner, "%Report%"},
		},
		{
			name:     "all predicates",
			query:    entities.TaskQuery{Search: "a", Status: &pending, Priority: &low},
			wantSQL:  "WHERE created_by = $1 AND title ILIKE $2 AND status = $3 AND priority = $4",
			wantArgs: []interface{}{owner, "%a%", "pending", "low"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := taskWhere(tt.query, owner)
			if w.String() != tt.wantSQL {
				t.Errorf("sql = %q, want %q", w.String(), tt.wantSQL)
			}
			if fmt.Sprint(w.args) != fmt.Sprint(tt.wantArgs) {
				t.Errorf("args = %v, want %v", w.args, tt.wantArgs)
			}
		})
	}
}

func TestEscapeLike(t *testing.T) {
	tests := map[string]string{
		"plain":   "plain",
		"100%":    `100\%`,
		"a_b":     `a\_b`,
		`back\sl`: `back\\sl`,
	}
	for in, want := range tests {
		if got := escapeLike(in); got != want {
			t.Errorf("escapeLike(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestListTasksQueryAppendsPaging(t *testing.T) {
	owner := uuid.New()
	q := entities.NewTaskQuery(owner.String(), entities.ListOptions{Page: 3, Limit: 5, Search: "x"})
	where := taskWhere(q, owner)

	query, args := listTasksQuery(where, q)

	if !strings.HasSuffix(query, "ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4") {
		t.Errorf("query = %q", query)
	}
	if len(args) != 4 || args[2] != 5 || args[3] != 10 {
		t.Errorf("args = %v", args)
	}
	if len(where.args) != 2 {
		t.Errorf("where args mutated: %v", where.args)
	}
}

func TestUpdateTaskQuery(t *testing.T) {
	id, owner := uuid.New(), uuid.New()
	title := "New title"
	status := entities.TaskStatusCompleted

	query, args := updateTaskQuery(id, owner, entities.TaskPatch{Title: &title, Status: &status})

	want := "UPDATE tasks SET title = $3, status = $4, updated_at = NOW() WHERE id = $1 AND created_by = $2"
	if !strings.HasPrefix(query, want) {
		t.Errorf("query = %q, want prefix %q", query, want)
	}
	if len(args) != 4 || args[0] != id || args[1] != owner || args[2] != "New title" || args[3] != "completed" {
		t.Errorf("args = %v", args)
	}
}

func TestUpdateTaskQueryDueDate(t *testing.T) {
	id, owner := uuid.New(), uuid.New()
	due := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	query, args := updateTaskQuery(id, owner, entities.TaskPatch{DueDate: &due})
	if !strings.Contains(query, "due_date = $3") || len(args) != 3 {
		t.Errorf("set due date: %q %v", query, args)
	}

	query, args = updateTaskQuery(id, owner, entities.TaskPatch{DueDate: &due, ClearDueDate: true})
	if !strings.Contains(query, "due_date = NULL") || len(args) != 2 {
		t.Errorf("clear due date: %q %v", query, args)
	}
}

func TestParseOwnedRejectsMalformed(t *testing.T) {
	if _, _, ok := parseOwned("not-a-uuid", uuid.NewString()); ok {
		t.Error("malformed task id accepted")
	}
	if _, _, ok := parseOwned(uuid.NewString(), ""); ok {
		t.Error("empty owner accepted")
	}
	if _, _, ok := parseOwned(uuid.NewString(), uuid.NewString()); !ok {
		t.Error("valid ids rejected")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})
	if !isUniqueViolation(dup) {
		t.Error("wrapped unique violation not detected")
	}
	if isUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Error("foreign key violation reported as unique")
	}
	if isUniqueViolation(errors.New("boom")) {
		t.Error("plain error reported as unique")
	}
}

func TestTaskRowToEntity(t *testing.T) {
	row := taskRow{ID: uuid.New(), CreatedBy: uuid.New(), Title: "t", Status: "pending", Priority: "high"}
	task := row.toEntity()

	if task.ID != row.ID.String() || task.OwnerID() != row.CreatedBy.String() {
		t.Errorf("ids = %q / %q", task.ID, task.OwnerID())
	}
	if task.DueDate != nil {
		t.Errorf("dueDate = %v, want nil", task.DueDate)
	}
}
