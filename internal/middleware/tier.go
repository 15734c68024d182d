package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/driftline/label-platform/internal/auth"
)

// RequireTier gates a route group behind a subscription tier. It assumes
// Authenticate has already run; the decision itself is auth.HasAccess, the
// single implementation of the tier rule (admin/artist bypass, lapsed
// subscriptions collapsing to none).
//
// The 403 body is deliberately different from the 401s Authenticate
// produces so clients can tell "log in again" from "upgrade your plan".
func RequireTier(required auth.Tier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !auth.HasAccess(CurrentIdentity(c), required) {
				return c.JSON(http.StatusForbidden, echo.Map{
					"error":         "tier_required",
					"required_tier": required.String(),
				})
			}
			return next(c)
		}
	}
}

// RequireRole restricts a route group to the listed roles (staff
// surfaces: admin and artist consoles). Runs after Authenticate.
func RequireRole(roles ...auth.Role) echo.MiddlewareFunc {
	allowed := make(map[auth.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident := CurrentIdentity(c)
			if ident == nil || !allowed[ident.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
