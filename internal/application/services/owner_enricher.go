package services

import (
	"context"
	"time"

	"github.com/taskmaster/tracker/internal/domain/entities"
	"github.com/taskmaster/tracker/internal/infrastructure/logger"
	"github.com/taskmaster/tracker/internal/ports"
)

// OwnerEnricher fills the owner name and email on fetched tasks. It runs
// after the owner-scoped query and never fails the request: an owner that
// cannot be resolved leaves the summary with just the id.
type OwnerEnricher struct {
	userRepo ports.UserRepository
	cache    ports.OwnerCache
	ttl      time.Duration
	logger   *logger.Logger
}

// NewOwnerEnricher creates an enricher. cache may be nil.
func NewOwnerEnricher(userRepo ports.UserRepository, cache ports.OwnerCache, ttl time.Duration, logger *logger.Logger) *OwnerEnricher {
	return &OwnerEnricher{
		userRepo: userRepo,
		cache:    cache,
		ttl:      ttl,
		logger:   logger.WithComponent("owner_enricher"),
	}
}

// Enrich resolves each distinct owner once and embeds the summary.
func (e *OwnerEnricher) Enrich(ctx context.Context, tasks ...*entities.Task) {
	if len(tasks) == 0 {
		return
	}

	owners := make(map[string]entities.OwnerRef)
	var missing []string
	seen := make(map[string]bool)

	for _, task := range tasks {
		id := task.OwnerID()
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		if owner, ok := e.fromCache(ctx, id); ok {
			owners[id] = owner
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		users, err := e.userRepo.GetByIDs(ctx, missing)
		if err != nil {
			e.logger.Warnw("Failed to resolve task owners", "error", err, "owners", len(missing))
		}
		for id, user := range users {
			owner := user.Summary()
			owners[id] = owner
			e.toCache(ctx, owner)
		}
	}

	for _, task := range tasks {
		if owner, ok := owners[task.OwnerID()]; ok {
			task.CreatedBy = owner
		}
	}
}

func (e *OwnerEnricher) fromCache(ctx context.Context, id string) (entities.OwnerRef, bool) {
	if e.cache == nil {
		return entities.OwnerRef{}, false
	}

	owner, err := e.cache.Get(ctx, id)
	if err != nil {
		e.logger.Debugw("Owner cache read failed", "error", err, "user_id", id)
		return entities.OwnerRef{}, false
	}
	if owner == nil {
		return entities.OwnerRef{}, false
	}
	return *owner, true
}

func (e *OwnerEnricher) toCache(ctx context.Context, owner entities.OwnerRef) {
	if e.cache == nil {
		return
	}

	if err := e.cache.Set(ctx, owner, e.ttl); err != nil {
		e.logger.Debugw("Owner cache write failed", "error", err, "user_id", owner.ID)
	}
}
