package ports

import (
	"context"
	"time"

	"github.com/taskmaster/tracker/internal/domain/entities"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create stores user and fills its id and timestamps. It returns
	// entities.ErrEmailTaken when the email is already registered.
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id string) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	// GetByIDs returns the users that exist among ids, keyed by id.
	GetByIDs(ctx context.Context, ids []string) (map[string]*entities.User, error)
}

// TaskRepository defines the interface for task data operations. Every
// lookup and mutation is keyed on the (id, owner) pair; a task owned by
// someone else is reported as entities.ErrTaskNotFound.
type TaskRepository interface {
	// Create stores task and fills its id and timestamps.
	Create(ctx context.Context, task *entities.Task) error
	GetForOwner(ctx context.Context, id, ownerID string) (*entities.Task, error)
	// UpdateForOwner atomically applies patch and returns the updated task.
	UpdateForOwner(ctx context.Context, id, ownerID string, patch entities.TaskPatch) (*entities.Task, error)
	// DeleteForOwner atomically removes the task.
	DeleteForOwner(ctx context.Context, id, ownerID string) error
	// List returns one page of matches ordered by creation time, newest
	// first, together with the total number of matches.
	List(ctx context.Context, q entities.TaskQuery) ([]*entities.Task, int64, error)
	Stats(ctx context.Context, ownerID string) (*entities.TaskStats, error)
}

// OwnerCache defines the interface for caching owner summaries
type OwnerCache interface {
	Get(ctx context.Context, id string) (*entities.OwnerRef, error)
	Set(ctx context.Context, owner entities.OwnerRef, expiration time.Duration) error
}

// HealthChecker is implemented by stores that can report readiness
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
