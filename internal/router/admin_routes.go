package router

import (
	"github.com/labstack/echo/v4"

	"github.com/driftline/label-platform/internal/auth"
	"github.com/driftline/label-platform/internal/middleware"
)

// registerAdmin mounts admin-only management under /v1/admin: the shop
// inventory and poll lifecycle.
func registerAdmin(e *echo.Echo, d Deps) {
	g := e.Group(
		"/v1/admin",
		d.Authenticate,
		middleware.RequireRole(auth.RoleAdmin),
	)

	g.POST("/merch", d.Merch.Create)
	g.PUT("/merch/:id", d.Merch.Update)
	g.DELETE("/merch/:id", d.Merch.Delete)

	g.POST("/polls", d.Polls.Create)
	g.DELETE("/polls/:id", d.Polls.Delete)
}
