package entities

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
)

// Enums and types
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// TaskStatuses lists every status in display order.
var TaskStatuses = []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// IsValid reports whether s is one of the known statuses.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// IsValid reports whether p is one of the known priorities.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// User represents a registered account
type User struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Summary returns the public fields embedded into task responses.
func (u *User) Summary() OwnerRef {
	return OwnerRef{ID: u.ID, Name: u.Name, Email: u.Email}
}

// OwnerRef references the owning user of a task. Name and Email are only
// populated after enrichment.
type OwnerRef struct {
	ID    string `json:"_id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Task represents a task owned by exactly one user
type Task struct {
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	CreatedBy   OwnerRef   `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// OwnerID returns the id of the owning user.
func (t *Task) OwnerID() string {
	return t.CreatedBy.ID
}

// IsOverdue reports whether the task has a due date in the past and is not completed.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	return now.After(*t.DueDate) && t.Status != TaskStatusCompleted
}

// TaskInput holds validated fields for a new task. There is deliberately no
// owner field: the owner always comes from the authenticated caller.
type TaskInput struct {
	Title       string
	Description string
	Status      TaskStatus
	Priority    Priority
	DueDate     *time.Time
}

// WithDefaults fills unset status and priority.
func (in TaskInput) WithDefaults() TaskInput {
	if in.Status == "" {
		in.Status = TaskStatusPending
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	return in
}

// NewTask builds the task that Create persists for ownerID.
func (in TaskInput) NewTask(ownerID string) *Task {
	in = in.WithDefaults()
	return &Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		CreatedBy:   OwnerRef{ID: ownerID},
	}
}

// TaskPatch holds the fields of a partial update. Nil means unchanged.
// ClearDueDate removes the due date and takes precedence over DueDate.
type TaskPatch struct {
	Title        *string
	Description  *string
	Status       *TaskStatus
	Priority     *Priority
	DueDate      *time.Time
	ClearDueDate bool
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.DueDate == nil && !p.ClearDueDate
}

// Apply copies the patched fields onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
}

// TaskStats summarizes one owner's tasks
type TaskStats struct {
	Total      int64                `json:"total"`
	ByStatus   map[TaskStatus]int64 `json:"byStatus"`
	ByPriority map[Priority]int64   `json:"byPriority"`
}

// NewTaskStats returns stats with every status and priority present at zero.
func NewTaskStats() *TaskStats {
	stats := &TaskStats{
		ByStatus:   make(map[TaskStatus]int64, len(TaskStatuses)),
		ByPriority: make(map[Priority]int64, len(Priorities)),
	}
	for _, s := range TaskStatuses {
		stats.ByStatus[s] = 0
	}
	for _, p := range Priorities {
		stats.ByPriority[p] = 0
	}
	return stats
}
