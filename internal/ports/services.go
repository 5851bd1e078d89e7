package ports

import (
	"github.com/taskmaster/tracker/internal/domain/entities"
)

// RegisterRequest represents user registration data
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User  *entities.User `json:"user"`
	Token string         `json:"token"`
}

// Claims represents the identity carried by a validated token
type Claims struct {
	UserID string
}

// TaskPage is one page of an owner's tasks
type TaskPage struct {
	Tasks      []*entities.Task
	Pagination entities.Pagination
}
