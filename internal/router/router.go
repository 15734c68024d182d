// Package router wires HTTP routes to handlers, grouped by audience:
// public browse, auth, member, studio (artist/admin) and admin.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/driftline/label-platform/internal/handler"
)

// Deps bundles everything the route groups need so main stays short.
type Deps struct {
	Auth         *handler.AuthHandler
	Subscription *handler.SubscriptionHandler
	Releases     *handler.ReleaseHandler
	Posts        *handler.PostHandler
	Polls        *handler.PollHandler
	Merch        *handler.MerchHandler
	Demos        *handler.DemoHandler

	// Authenticate resolves the bearer token into an identity.
	Authenticate echo.MiddlewareFunc
	// Cache and RateLimit guard the anonymous browse surface. Either may
	// be a passthrough when Redis is unavailable.
	Cache     echo.MiddlewareFunc
	RateLimit echo.MiddlewareFunc
}

// Register mounts every route group on e.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	registerPublic(e, d)
	registerAuth(e, d)
	registerMember(e, d)
	registerStudio(e, d)
	registerAdmin(e, d)
}

// registerAuth mounts the session lifecycle under /v1/auth. Register,
// login, refresh and logout work without a bearer token; logout-all
// needs one because it revokes every session for the account.
func registerAuth(e *echo.Echo, d Deps) {
	g := e.Group("/v1/auth")
	g.POST("/register", d.Auth.Register)
	g.POST("/login", d.Auth.Login)
	g.POST("/refresh", d.Auth.Refresh)
	g.POST("/logout", d.Auth.Logout)
	g.POST("/logout-all", d.Auth.LogoutAll, d.Authenticate)
}
