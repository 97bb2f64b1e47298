// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"herald/config"
	"herald/internal/delivery/api/middleware"
	"herald/internal/delivery/api/response"
	"herald/internal/delivery/api/router/handler"
	"herald/internal/delivery/socket"
	domainerrors "herald/internal/domain/errors"
	"herald/internal/infra/metrics"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
	"golang.org/x/time/rate"
)

type RouterParams struct {
	fx.In

	AuthHandler         *handler.AuthHandler
	NotificationHandler *handler.NotificationHandler
	DeviceHandler       *handler.DeviceHandler
	SocketHandler       *socket.Handler
	AuthMiddleware      *middleware.AuthMiddleware
	Config              *config.Config
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler         *handler.AuthHandler
	notificationHandler *handler.NotificationHandler
	deviceHandler       *handler.DeviceHandler
	socketHandler       *socket.Handler
	authMiddleware      *middleware.AuthMiddleware
	config              *config.Config
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:         params.AuthHandler,
		notificationHandler: params.NotificationHandler,
		deviceHandler:       params.DeviceHandler,
		socketHandler:       params.SocketHandler,
		authMiddleware:      params.AuthMiddleware,
		config:              params.Config,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	if r.config.Metrics != nil && r.config.Metrics.Enabled {
		e.GET(r.config.Metrics.Path, echo.WrapHandler(metrics.Handler()))
	}

	// Websocket endpoint authenticates on its own: Bearer header or first frame, never cookies.
	e.GET("/ws", r.socketHandler.Connect)

	// Auth routes
	authGroup := e.Group("/auth")
	if limiter := r.authRateLimiter(); limiter != nil {
		authGroup.Use(limiter)
	}
	{
		authGroup.POST("/register", r.authHandler.Register)
		authGroup.POST("/login", r.authHandler.Login)
		authGroup.POST("/refresh", r.authHandler.Refresh)
		authGroup.POST("/logout", r.authHandler.Logout, r.authMiddleware.Authenticate)
	}

	// API v1 routes
	apiV1 := e.Group("/api/v1")
	apiV1.Use(r.authMiddleware.Authenticate) // All API v1 routes require authentication

	apiV1.GET("/me", r.authHandler.Me)

	// Notification routes. Pulls read the primary and are authoritative.
	notificationsGroup := apiV1.Group("/notifications")
	{
		notificationsGroup.GET("", r.notificationHandler.List)
		notificationsGroup.POST("", r.notificationHandler.Create)
		notificationsGroup.GET("/unread-count", r.notificationHandler.UnreadCount)
		notificationsGroup.PATCH("/read-all", r.notificationHandler.MarkAllRead)
		notificationsGroup.PATCH("/:id/read", r.notificationHandler.MarkRead)
	}

	// Device management routes
	devicesGroup := apiV1.Group("/devices")
	{
		devicesGroup.POST("", r.deviceHandler.RegisterDevice)
		devicesGroup.GET("", r.deviceHandler.GetAccountDevices)
		devicesGroup.PUT("/:id/token", r.deviceHandler.UpdateFCMToken)
		devicesGroup.DELETE("/:id", r.deviceHandler.DeactivateDevice)
	}
}

// authRateLimiter limits /auth per client IP. It returns nil when disabled.
func (r *router) authRateLimiter() echo.MiddlewareFunc {
	if r.config.Auth == nil || r.config.Auth.RateLimit.Rate <= 0 {
		return nil
	}
	rl := r.config.Auth.RateLimit

	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(rl.Rate),
		Burst:     rl.Burst,
		ExpiresIn: rl.ExpiresIn,
	})

	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return response.HandleAppError(c, domainerrors.ErrRateLimited)
		},
	})
}
