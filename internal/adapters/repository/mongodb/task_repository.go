package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskmaster/tracker/internal/domain/entities"
	"github.com/taskmaster/tracker/internal/ports"
)

// TaskRepository implements ports.TaskRepository on a MongoDB collection
type TaskRepository struct {
	tasks *mongo.Collection
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *mongo.Database) *TaskRepository {
	return &TaskRepository{tasks: db.Collection(tasksCollection)}
}

var _ ports.TaskRepository = (*TaskRepository)(nil)

func (r *TaskRepository) Create(ctx context.Context, task *entities.Task) error {
	owner, ok := objectID(task.OwnerID())
	if !ok {
		return fmt.Errorf("create task: invalid owner id %q", task.OwnerID())
	}

	at := now()
	doc := taskDocument{
		ID:          primitive.NewObjectID(),
		Title:       task.Title,
		Description: task.Description,
		Status:      string(task.Status),
		Priority:    string(task.Priority),
		CreatedBy:   owner,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	if task.DueDate != nil {
		due := task.DueDate.UTC()
		doc.DueDate = &due
	}

	if _, err := r.tasks.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	task.ID = doc.ID.Hex()
	task.CreatedAt = at
	task.UpdatedAt = at
	return nil
}

func (r *TaskRepository) GetForOwner(ctx context.Context, id, ownerID string) (*entities.Task, error) {
	filter, ok := ownedFilter(id, ownerID)
	if !ok {
		return nil, entities.ErrTaskNotFound
	}

	var doc taskDocument
	if err := r.tasks.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return doc.toEntity(), nil
}

func (r *TaskRepository) UpdateForOwner(ctx context.Context, id, ownerID string, patch entities.TaskPatch) (*entities.Task, error) {
	filter, ok := ownedFilter(id, ownerID)
	if !ok {
		return nil, entities.ErrTaskNotFound
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc taskDocument
	if err := r.tasks.FindOneAndUpdate(ctx, filter, taskUpdate(patch, now()), opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	return doc.toEntity(), nil
}

func (r *TaskRepository) DeleteForOwner(ctx context.Context, id, ownerID string) error {
	filter, ok := ownedFilter(id, ownerID)
	if !ok {
		return entities.ErrTaskNotFound
	}

	if err := r.tasks.FindOneAndDelete(ctx, filter).Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return entities.ErrTaskNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (r *TaskRepository) List(ctx context.Context, q entities.TaskQuery) ([]*entities.Task, int64, error) {
	owner, ok := objectID(q.OwnerID)
	if !ok {
		return []*entities.Task{}, 0, nil
	}
	filter := taskFilter(q, owner)

	total, err := r.tasks.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}
	if q.PastEnd(total) {
		return []*entities.Task{}, total, nil
	}

	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(int64(q.Skip())).
		SetLimit(int64(q.Limit))

	cursor, err := r.tasks.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}

	var docs []taskDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode tasks: %w", err)
	}

	tasks := make([]*entities.Task, 0, len(docs))
	for i := range docs {
		tasks = append(tasks, docs[i].toEntity())
	}
	return tasks, total, nil
}

func (r *TaskRepository) Stats(ctx context.Context, ownerID string) (*entities.TaskStats, error) {
	owner, ok := objectID(ownerID)
	if !ok {
		return entities.NewTaskStats(), nil
	}

	cursor, err := r.tasks.Aggregate(ctx, statsPipeline(owner))
	if err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}

	var results []statsResult
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode task stats: %w", err)
	}
	if len(results) == 0 {
		return entities.NewTaskStats(), nil
	}
	return results[0].toEntity(), nil
}

// EnsureIndexes creates the index backing owner-scoped listings.
func (r *TaskRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.tasks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdBy", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("createdBy_createdAt"),
	})
	if err != nil {
		return fmt.Errorf("create task indexes: %w", err)
	}
	return nil
}

func ownedFilter(id, ownerID string) (bson.D, bool) {
	oid, ok := objectID(id)
	if !ok {
		return nil, false
	}
	owner, ok := objectID(ownerID)
	if !ok {
		return nil, false
	}
	return ownedBy(oid, owner), true
}
