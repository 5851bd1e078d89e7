package http

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the auth and task endpoints. requireAuth guards
// every route that acts on behalf of a user.
func RegisterRoutes(e *echo.Echo, authHandler *AuthHandler, taskHandler *TaskHandler, requireAuth echo.MiddlewareFunc) {
	authGroup := e.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", authHandler.Me, requireAuth)

	taskGroup := e.Group("/tasks", requireAuth)
	taskGroup.GET("", taskHandler.ListTasks)
	taskGroup.POST("", taskHandler.CreateTask)
	taskGroup.GET("/stats", taskHandler.GetStats)
	taskGroup.GET("/:id", taskHandler.GetTask)
	taskGroup.PUT("/:id", taskHandler.UpdateTask)
	taskGroup.DELETE("/:id", taskHandler.DeleteTask)
}
