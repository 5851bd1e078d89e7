package mongodb

import (
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskmaster/tracker/internal/domain/entities"
)

const (
	usersCollection = "users"
	tasksCollection = "tasks"
)

type userDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Name         string             `bson:"name"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func (d *userDocument) toEntity() *entities.User {
	return &entities.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type taskDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Status      string             `bson:"status"`
	Priority    string             `bson:"priority"`
	DueDate     *time.Time         `bson:"dueDate,omitempty"`
	CreatedBy   primitive.ObjectID `bson:"createdBy"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *taskDocument) toEntity() *entities.Task {
	task := &entities.Task{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Status:      entities.TaskStatus(d.Status),
		Priority:    entities.Priority(d.Priority),
		CreatedBy:   entities.OwnerRef{ID: d.CreatedBy.Hex()},
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	if d.DueDate != nil {
		due := d.DueDate.UTC()
		task.DueDate = &due
	}
	return task
}

// objectID parses a hex id. Ids that cannot be parsed can never match a
// stored document, so callers treat them as not found.
func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

// now truncates to the millisecond precision BSON dates store.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// taskFilter translates a query into a filter document. The owner key is
// always first and always present.
func taskFilter(q entities.TaskQuery, owner primitive.ObjectID) bson.D {
	filter := bson.D{{Key: "createdBy", Value: owner}}

	if q.Search != "" {
		filter = append(filter, bson.E{
			Key:   "title",
			Value: primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"},
		})
	}
	if q.Status != nil {
		filter = append(filter, bson.E{Key: "status", Value: string(*q.Status)})
	}
	if q.Priority != nil {
		filter = append(filter, bson.E{Key: "priority", Value: string(*q.Priority)})
	}

	return filter
}

// ownedBy matches exactly one task of one owner.
func ownedBy(id, owner primitive.ObjectID) bson.D {
	return bson.D{{Key: "_id", Value: id}, {Key: "createdBy", Value: owner}}
}

// taskUpdate translates a patch into an update document.
func taskUpdate(patch entities.TaskPatch, at time.Time) bson.D {
	set := bson.D{}
	if patch.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *patch.Title})
	}
	if patch.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *patch.Description})
	}
	if patch.Status != nil {
		set = append(set, bson.E{Key: "status", Value: string(*patch.Status)})
	}
	if patch.Priority != nil {
		set = append(set, bson.E{Key: "priority", Value: string(*patch.Priority)})
	}
	if patch.DueDate != nil && !patch.ClearDueDate {
		set = append(set, bson.E{Key: "dueDate", Value: patch.DueDate.UTC()})
	}
	set = append(set, bson.E{Key: "updatedAt", Value: at})

	update := bson.D{{Key: "$set", Value: set}}
	if patch.ClearDueDate {
		update = append(update, bson.E{Key: "$unset", Value: bson.D{{Key: "dueDate", Value: ""}}})
	}
	return update
}

// newestFirst orders by creation time with the id as tie-breaker.
var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// statsPipeline counts an owner's tasks per status and per priority in one round trip.
func statsPipeline(owner primitive.ObjectID) bson.A {
	group := func(field string) bson.A {
		return bson.A{
			bson.D{{Key: "$group", Value: bson.D{
				{Key: "_id", Value: "$" + field},
				{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			}}},
		}
	}

	return bson.A{
		bson.D{{Key: "$match", Value: bson.D{{Key: "createdBy", Value: owner}}}},
		bson.D{{Key: "$facet", Value: bson.D{
			{Key: "byStatus", Value: group("status")},
			{Key: "byPriority", Value: group("priority")},
		}}},
	}
}

type bucket struct {
	Key   string `bson:"_id"`
	Count int64  `bson:"count"`
}

type statsResult struct {
	ByStatus   []bucket `bson:"byStatus"`
	ByPriority []bucket `bson:"byPriority"`
}

func (r statsResult) toEntity() *entities.TaskStats {
	stats := entities.NewTaskStats()
	for _, b := range r.ByStatus {
		stats.Total += b.Count
		if s := entities.TaskStatus(b.Key); s.IsValid() {
			stats.ByStatus[s] = b.Count
		}
	}
	for _, b := range r.ByPriority {
		if p := entities.Priority(b.Key); p.IsValid() {
			stats.ByPriority[p] = b.Count
		}
	}
	return stats
}
