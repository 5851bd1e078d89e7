package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/tracker/internal/application/validation"
	"github.com/taskmaster/tracker/internal/domain/entities"
	"github.com/taskmaster/tracker/internal/infrastructure/logger"
)

// Response is the envelope of every JSON reply
type Response struct {
	Success    bool                    `json:"success"`
	Message    string                  `json:"message"`
	Data       interface{}             `json:"data,omitempty"`
	Pagination *entities.Pagination    `json:"pagination,omitempty"`
	Errors     []validation.FieldError `json:"errors,omitempty"`
}

// ErrorResponse documents the failure envelope
type ErrorResponse struct {
	Success bool                    `json:"success" example:"false"`
	Message string                  `json:"message" example:"Task not found"`
	Errors  []validation.FieldError `json:"errors,omitempty"`
}

func ok(c echo.Context, code int, message string, data interface{}) error {
	return c.JSON(code, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// errorResponse maps an error to its status code and envelope. Anything
// unrecognised is a 500 with no detail.
func errorResponse(err error) (int, Response) {
	var (
		verrs  *validation.Errors
		httpEr *echo.HTTPError
	)

	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest, Response{Message: verrs.First(), Errors: verrs.Fields}
	case errors.Is(err, entities.ErrInvalidCredentials):
		return http.StatusUnauthorized, Response{Message: "Invalid email or password"}
	case errors.Is(err, entities.ErrInvalidToken):
		return http.StatusUnauthorized, Response{Message: "Not authorized, token failed"}
	case errors.Is(err, entities.ErrEmailTaken):
		return http.StatusConflict, Response{Message: "User with this email already exists"}
	case errors.Is(err, entities.ErrTaskNotFound):
		return http.StatusNotFound, Response{Message: "Task not found"}
	case errors.Is(err, entities.ErrUserNotFound):
		return http.StatusNotFound, Response{Message: "User not found"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, Response{Message: "Request timed out"}
	case errors.As(err, &httpEr):
		msg, isString := httpEr.Message.(string)
		if !isString || httpEr.Code >= http.StatusInternalServerError {
			msg = http.StatusText(httpEr.Code)
		}
		return httpEr.Code, Response{Message: msg}
	default:
		return http.StatusInternalServerError, Response{Message: "Internal server error"}
	}
}

// ErrorHandler renders every error returned by a handler or middleware
func ErrorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code, resp := errorResponse(err)

		if code >= http.StatusInternalServerError {
			log.Errorw("Internal server error",
				"error", err,
				"path", c.Request().URL.Path,
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)
		}

		if c.Response().Committed {
			return
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, resp)
		}
		if err != nil {
			log.Errorw("Error sending response", "error", err)
		}
	}
}
