package server

import (
	"context"
	"fmt"

	"github.com/taskmaster/tracker/internal/adapters/cache"
	"github.com/taskmaster/tracker/internal/adapters/repository/memory"
	"github.com/taskmaster/tracker/internal/adapters/repository/mongodb"
	"github.com/taskmaster/tracker/internal/adapters/repository/postgres"
	"github.com/taskmaster/tracker/internal/infrastructure/config"
	"github.com/taskmaster/tracker/internal/infrastructure/database"
	"github.com/taskmaster/tracker/internal/infrastructure/logger"
	"github.com/taskmaster/tracker/internal/ports"
)

// Stores bundles the storage adapters selected by configuration
type Stores struct {
	Users ports.UserRepository
	Tasks ports.TaskRepository
	// Owners is nil when the owner cache is disabled.
	Owners ports.OwnerCache
	// Checks are reported by the readiness endpoint.
	Checks map[string]ports.HealthChecker

	closers []func(context.Context) error
}

// NewMemoryStores returns empty process-local stores
func NewMemoryStores() *Stores {
	users := memory.NewUserRepository()
	return &Stores{
		Users:  users,
		Tasks:  memory.NewTaskRepository(),
		Checks: map[string]ports.HealthChecker{"database": users},
	}
}

// OpenStores connects to the configured database and, when enabled, the
// owner cache.
func OpenStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Stores, error) {
	var stores *Stores

	switch cfg.Database.Driver {
	case config.DriverMongo:
		m, err := database.NewMongo(ctx, cfg.Database.Mongo)
		if err != nil {
			return nil, err
		}

		users := mongodb.NewUserRepository(m.DB)
		tasks := mongodb.NewTaskRepository(m.DB)
		if err := users.EnsureIndexes(ctx); err != nil {
			_ = m.Close(ctx)
			return nil, err
		}
		if err := tasks.EnsureIndexes(ctx); err != nil {
			_ = m.Close(ctx)
			return nil, err
		}

		stores = &Stores{
			Users:   users,
			Tasks:   tasks,
			Checks:  map[string]ports.HealthChecker{"database": m},
			closers: []func(context.Context) error{m.Close},
		}
		log.Infow("Connected to MongoDB", "database", cfg.Database.Mongo.Name)

	case config.DriverPostgres:
		db, err := database.New(cfg.Database.Postgres)
		if err != nil {
			return nil, err
		}

		stores = &Stores{
			Users:  postgres.NewUserRepository(db.DB),
			Tasks:  postgres.NewTaskRepository(db.DB),
			Checks: map[string]ports.HealthChecker{"database": db},
			closers: []func(context.Context) error{
				func(context.Context) error { return db.Close() },
			},
		}
		log.Infow("Connected to PostgreSQL", "host", cfg.Database.Postgres.Host, "database", cfg.Database.Postgres.Name)

	case config.DriverMemory:
		stores = NewMemoryStores()
		log.Warn("Using in-memory storage; data will be lost on restart")

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			_ = stores.Close(ctx)
			return nil, err
		}

		owners := cache.NewOwnerCache(client)
		stores.Owners = owners
		stores.Checks["redis"] = owners
		stores.closers = append(stores.closers, func(context.Context) error { return owners.Close() })
		log.Infow("Owner cache enabled", "address", cfg.Redis.GetAddr(), "ttl", cfg.Redis.OwnerTTL)
	}

	return stores, nil
}

// Close releases every connection opened by OpenStores
func (s *Stores) Close(ctx context.Context) error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
