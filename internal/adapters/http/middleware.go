package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/tracker/internal/infrastructure/logger"
	"github.com/taskmaster/tracker/internal/ports"
)

const userIDKey = "user"

// TokenValidator resolves a bearer token to the caller's identity
type TokenValidator interface {
	ValidateToken(token string) (*ports.Claims, error)
}

// Authenticate rejects requests without a valid bearer token and stores
// the caller's user id on the context.
func Authenticate(validator TokenValidator, log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if authHeader == "" || tokenString == authHeader || tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authorized, no token")
			}

			claims, err := validator.ValidateToken(tokenString)
			if err != nil {
				log.LogSecurityEvent("invalid_token", "", c.RealIP(), map[string]interface{}{
					"error": err.Error(),
					"path":  c.Request().URL.Path,
				})
				return err
			}

			c.Set(userIDKey, claims.UserID)
			return next(c)
		}
	}
}

// UserID returns the authenticated caller's id
func UserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}
