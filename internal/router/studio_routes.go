package router

import (
	"github.com/labstack/echo/v4"

	"github.com/driftline/label-platform/internal/auth"
	"github.com/driftline/label-platform/internal/middleware"
)

// registerStudio mounts the artist console under /v1/studio. Artists
// manage their own catalog and posts; admins see everything through the
// same routes (ownership filters treat admin as unscoped).
func registerStudio(e *echo.Echo, d Deps) {
	g := e.Group(
		"/v1/studio",
		d.Authenticate,
		middleware.RequireRole(auth.RoleArtist, auth.RoleAdmin),
	)

	g.GET("/releases", d.Releases.ListMine)
	g.POST("/releases", d.Releases.Create)
	g.PUT("/releases/:id", d.Releases.Update)
	g.DELETE("/releases/:id", d.Releases.Delete)

	g.POST("/posts", d.Posts.Create)
	g.PUT("/posts/:id", d.Posts.Update)
	g.DELETE("/posts/:id", d.Posts.Delete)

	g.GET("/demos", d.Demos.ListQueue)
	g.PUT("/demos/:ref/status", d.Demos.SetStatus)
}
