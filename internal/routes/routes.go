package routes

import (
	"github.com/labstack/echo/v4"

	"inventoryHub/internal/auth"
	"inventoryHub/internal/handlers"
	"inventoryHub/internal/security"
)

type Middlewares struct {
	JWT         echo.MiddlewareFunc
	AuthLimit   echo.MiddlewareFunc
	StreamLimit echo.MiddlewareFunc
}

func NewMiddlewares(tokens *auth.TokenIssuer, authLimiter *auth.RateLimiter, streamLimiter *security.IPRateLimiter) Middlewares {
	return Middlewares{
		JWT:         tokens.JWTMiddleware,
		AuthLimit:   authLimiter.Middleware,
		StreamLimit: streamLimiter.Middleware,
	}
}

func SetupRoutes(api *echo.Group, h *handlers.Handler, mw Middlewares) {
	// Public routes
	api.GET("/health", h.HealthCheck)

	authGroup := api.Group("/auth", mw.AuthLimit)
	authGroup.POST("/signup", h.Signup)
	authGroup.POST("/login", h.Login)

	// Protected routes
	notifications := api.Group("/notifications", mw.JWT)
	notifications.GET("", h.GetNotifications)
	notifications.POST("", h.CreateNotification)
	notifications.GET("/stats", h.GetNotificationStats)
	notifications.GET("/stream", h.StreamNotifications, mw.StreamLimit)
	notifications.POST("/read-all", h.MarkAllAsRead)
	notifications.POST("/:id/read", h.MarkAsRead)
	notifications.DELETE("/:id/read", h.MarkAsUnread)

	users := api.Group("/users", mw.JWT)
	users.PATCH("/:id/scope", h.UpdateUserScope)
}
