package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/tracker/internal/application/services"
	"github.com/taskmaster/tracker/internal/application/validation"
	"github.com/taskmaster/tracker/internal/infrastructure/logger"
	"github.com/taskmaster/tracker/internal/ports"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService *services.AuthService
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.RegisterRequest true "Account details"
// @Success 201 {object} Response{data=ports.AuthResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req ports.RegisterRequest
	if err := validation.Decode(c.Request().Body, &req, false); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	resp, err := h.authService.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return ok(c, http.StatusCreated, "User registered successfully", resp)
}

// Login godoc
// @Summary Log in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.LoginRequest true "Credentials"
// @Success 200 {object} Response{data=ports.AuthResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginRequest
	if err := validation.Decode(c.Request().Body, &req, false); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	resp, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "Login successful", resp)
}

// Me godoc
// @Summary Get the authenticated user
// @Tags auth
// @Produce json
// @Success 200 {object} Response{data=entities.User}
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := h.authService.Me(c.Request().Context(), UserID(c))
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "User retrieved successfully", user)
}
