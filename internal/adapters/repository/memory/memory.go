// Package memory provides process-local stores for development runs and
// tests. Data is lost on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/tracker/internal/domain/entities"
	"github.com/taskmaster/tracker/internal/ports"
)

// TaskRepository is an in-memory ports.TaskRepository
type TaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]*entities.Task
	now   func() time.Time
}

// NewTaskRepository creates an empty task store
func NewTaskRepository() *TaskRepository {
	return &TaskRepository{
		tasks: make(map[string]*entities.Task),
		now:   monotonicClock(),
	}
}

var _ ports.TaskRepository = (*TaskRepository)(nil)

// monotonicClock returns UTC times that strictly increase between calls, so
// creation order is total even within one clock tick.
func monotonicClock() func() time.Time {
	var (
		mu   sync.Mutex
		last time.Time
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()

		t := time.Now().UTC()
		if !t.After(last) {
			t = last.Add(time.Microsecond)
		}
		last = t
		return t
	}
}

func cloneTask(t *entities.Task) *entities.Task {
	c := *t
	c.CreatedBy = entities.OwnerRef{ID: t.OwnerID()}
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	return &c
}

func (r *TaskRepository) Create(ctx context.Context, task *entities.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := r.now()
	task.ID = uuid.NewString()
	task.CreatedAt = at
	task.UpdatedAt = at
	r.tasks[task.ID] = cloneTask(task)
	return nil
}

func (r *TaskRepository) owned(id, ownerID string) (*entities.Task, bool) {
	t, ok := r.tasks[id]
	if !ok || t.OwnerID() != ownerID {
		return nil, false
	}
	return t, true
}

func (r *TaskRepository) GetForOwner(ctx context.Context, id, ownerID string) (*entities.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.owned(id, ownerID)
	if !ok {
		return nil, entities.ErrTaskNotFound
	}
	return cloneTask(t), nil
}

func (r *TaskRepository) UpdateForOwner(ctx context.Context, id, ownerID string, patch entities.TaskPatch) (*entities.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.owned(id, ownerID)
	if !ok {
		return nil, entities.ErrTaskNotFound
	}
	patch.Apply(t)
	t.UpdatedAt = r.now()
	return cloneTask(t), nil
}

func (r *TaskRepository) DeleteForOwner(ctx context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.owned(id, ownerID); !ok {
		return entities.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *TaskRepository) List(ctx context.Context, q entities.TaskQuery) ([]*entities.Task, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := make([]*entities.Task, 0)
	for _, t := range r.tasks {
		if q.Matches(t) {
			matches = append(matches, cloneTask(t))
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID > matches[j].ID
	})

	total := int64(len(matches))
	if q.PastEnd(total) {
		return []*entities.Task{}, total, nil
	}
	start := q.Skip()
	end := len(matches)
	if q.Limit < end-start {
		end = start + q.Limit
	}
	return matches[start:end], total, nil
}

func (r *TaskRepository) Stats(ctx context.Context, ownerID string) (*entities.TaskStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := entities.NewTaskStats()
	for _, t := range r.tasks {
		if t.OwnerID() != ownerID {
			continue
		}
		stats.Total++
		stats.ByStatus[t.Status]++
		stats.ByPriority[t.Priority]++
	}
	return stats, nil
}

// UserRepository is an in-memory ports.UserRepository
type UserRepository struct {
	mu      sync.RWMutex
	users   map[string]*entities.User
	byEmail map[string]string
}

// NewUserRepository creates an empty user store
func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:   make(map[string]*entities.User),
		byEmail: make(map[string]string),
	}
}

var _ ports.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[user.Email]; taken {
		return entities.ErrEmailTaken
	}

	at := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = at
	user.UpdatedAt = at

	c := *user
	r.users[user.ID] = &c
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	c := *r.users[id]
	return &c, nil
}

func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make(map[string]*entities.User, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			c := *u
			users[id] = &c
		}
	}
	return users, nil
}

// HealthCheck always succeeds
func (r *UserRepository) HealthCheck(ctx context.Context) error {
	return nil
}
