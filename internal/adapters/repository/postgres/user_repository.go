package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/taskmaster/tracker/internal/domain/entities"
	"github.com/taskmaster/tracker/internal/ports"
)

// uniqueViolation is the SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

type userRow struct {
	ID           uuid.UUID `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r *userRow) toEntity() *entities.User {
	return &entities.User{
		ID:           r.ID.String(),
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

// UserRepositoryImpl implements the UserRepository interface
type UserRepositoryImpl struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) ports.UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *entities.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	id := uuid.New()
	err := r.db.QueryRowContext(ctx, query, id, user.Name, user.Email, user.PasswordHash).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return entities.ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}

	user.ID = id.String()
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return nil
}

func (r *UserRepositoryImpl) GetByID(ctx context.Context, id string) (*entities.User, error) {
	userID, ok := parseID(id)
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	return r.get(ctx, `SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE id = $1`, userID)
}

func (r *UserRepositoryImpl) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	return r.get(ctx, `SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE email = $1`, email)
}

func (r *UserRepositoryImpl) GetByIDs(ctx context.Context, ids []string) (map[string]*entities.User, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if parsed, ok := parseID(id); ok {
			valid = append(valid, parsed.String())
		}
	}

	users := make(map[string]*entities.User, len(valid))
	if len(valid) == 0 {
		return users, nil
	}

	query := `SELECT id, name, email, created_at, updated_at FROM users WHERE id = ANY($1::uuid[])`

	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(valid)); err != nil {
		return nil, fmt.Errorf("get users by ids: %w", err)
	}
	for i := range rows {
		u := rows[i].toEntity()
		users[u.ID] = u
	}
	return users, nil
}

func (r *UserRepositoryImpl) get(ctx context.Context, query string, arg interface{}) (*entities.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return row.toEntity(), nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
