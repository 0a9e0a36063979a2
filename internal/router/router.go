// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/gym-server/internal/config"
	"github.com/iliyamo/gym-server/internal/handler"
	"github.com/iliyamo/gym-server/internal/middleware"
	"github.com/iliyamo/gym-server/internal/service"
)

// Shared carries what several route groups need.  Redis may be nil, in
// which case caching and rate limiting are skipped.
type Shared struct {
	Authn     middleware.TokenAuthenticator
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
}

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers registration, login, token refresh and logout.
// The unauthenticated endpoints sit behind the token bucket.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, s Shared) {
	rl := middleware.NewTokenBucket(s.RateLimit, s.Redis)

	e.POST("/registration", a.Register, rl)
	e.POST("/login", a.Login, rl)

	// /refresh-token takes the refresh token in the body but must also be
	// called with a valid access token.
	authed := []echo.MiddlewareFunc{middleware.Authenticate(s.Authn), middleware.RequireAuthenticated()}
	e.POST("/refresh-token", a.Refresh, append([]echo.MiddlewareFunc{rl}, authed...)...)
	e.POST("/logout", a.Logout, authed...)
}

// RegisterUsers registers the role-partitioned /users resource.  The role
// parameter is checked before authentication so an invalid value is
// reported first.
func RegisterUsers(e *echo.Echo, p *handler.ProfileHandler, s Shared) {
	g := e.Group("/users", middleware.RequireRoleParam(), middleware.Authenticate(s.Authn), middleware.RequireAuthenticated())
	g.GET("", p.List)
	g.POST("", p.Create)
	g.GET("/:id", p.Get)
	g.PUT("/:id", p.Update)
	g.PATCH("/:id", p.Update)
	g.DELETE("/:id", p.Delete)
}

// RegisterCatalog registers /services, /positions and /subscriptions.
// Reads are cached in Redis after the capability check; writes drop the
// cached reads of their resource.
func RegisterCatalog(e *echo.Echo, h *handler.CatalogHandler, s Shared) {
	authn := middleware.Authenticate(s.Authn)
	cache := middleware.NewRedisCache(s.Cache, s.Redis)
	invalidate := middleware.InvalidateOnWrite(s.Cache, s.Redis)

	reader := middleware.RequireCapability(service.AnyOf(service.ClientOnly, service.StaffOnly, service.AdminOnly))
	writer := middleware.RequireCapability(service.AnyOf(service.StaffOnly, service.AdminOnly))

	svc := e.Group("/services", authn)
	svc.GET("", h.ListServices, reader, cache)
	svc.GET("/:id", h.GetService, reader, cache)
	svc.POST("", h.CreateService, writer, invalidate)
	svc.PUT("/:id", h.UpdateService, writer, invalidate)
	svc.PATCH("/:id", h.UpdateService, writer, invalidate)
	svc.DELETE("/:id", h.DeleteService, writer, invalidate)

	pos := e.Group("/positions", authn, writer)
	pos.GET("", h.ListPositions, cache)
	pos.GET("/:id", h.GetPosition, cache)
	pos.POST("", h.CreatePosition, invalidate)
	pos.PUT("/:id", h.UpdatePosition, invalidate)
	pos.PATCH("/:id", h.UpdatePosition, invalidate)
	pos.DELETE("/:id", h.DeletePosition, invalidate)

	e.GET("/subscriptions", h.ListSubscriptions, authn, writer)
}
