package router

import (
	"github.com/labstack/echo/v4"
)

// registerPublic mounts the anonymous browse surface. Responses here
// contain no caller-specific data, so they sit behind the shared Redis
// response cache and the per-client rate limiter. Gated releases and
// posts come back as teasers with locked=true; members fetch the full
// view through /v1/member.
func registerPublic(e *echo.Echo, d Deps) {
	g := e.Group("/v1", d.RateLimit, d.Cache)

	g.GET("/releases", d.Releases.ListPublic)
	g.GET("/releases/:slug", d.Releases.GetPublic)

	g.GET("/posts", d.Posts.ListPublic)

	g.GET("/polls", d.Polls.ListPublic)
	g.GET("/polls/:id", d.Polls.GetPublic)

	g.GET("/merch", d.Merch.ListPublic)
	g.GET("/merch/:id", d.Merch.GetPublic)
}
