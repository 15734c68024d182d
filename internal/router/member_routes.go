package router

import (
	"github.com/labstack/echo/v4"

	"github.com/driftline/label-platform/internal/auth"
	"github.com/driftline/label-platform/internal/middleware"
)

// registerMember mounts the signed-in surface under /v1. Every route
// runs Authenticate; tier checks happen per route in the handlers (or
// via RequireTier) because releases and posts carry their own gate.
func registerMember(e *echo.Echo, d Deps) {
	g := e.Group("/v1", d.Authenticate)

	g.GET("/me", d.Auth.Me)
	g.DELETE("/me", d.Auth.DeleteAccount)

	g.GET("/subscription", d.Subscription.Status)
	g.POST("/subscription", d.Subscription.Purchase)
	g.DELETE("/subscription", d.Subscription.Cancel)

	// Full, unlocked views. The anonymous routes under registerPublic
	// return teasers; these return the stream URL and body, or a 403
	// naming the tier the caller still needs.
	g.GET("/member/releases/:slug", d.Releases.GetMember)
	g.GET("/member/posts/:id", d.Posts.GetMember)

	// The exclusives feed is for paying subscribers as a whole, so the
	// gate is static and sits on the route; per-post tiers still apply
	// inside.
	g.GET("/member/exclusives", d.Posts.ListExclusives,
		middleware.RequireTier(auth.TierLite))

	g.POST("/member/polls/:id/vote", d.Polls.Vote)

	g.POST("/member/demos", d.Demos.Submit)
	g.GET("/member/demos", d.Demos.ListMine)
}
