// Package middleware provides the request-processing chain shared by all
// route groups: authentication, tier/role gating, rate limiting and
// response caching.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/driftline/label-platform/internal/auth"
	"github.com/driftline/label-platform/internal/model"
	"github.com/driftline/label-platform/internal/repository"
)

// identityKey is the echo context key under which the resolved identity is
// stored. The value is always a *auth.Identity, never a raw claims map.
const identityKey = "identity"

// IdentityStore is the slice of the user repository authentication needs.
type IdentityStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Authenticate verifies the bearer access token and loads the current
// user row for it. The token carries only the subject id; role, tier and
// subscription expiry are re-read from the store on every request so
// changes take effect immediately rather than at token expiry.
//
// 401 covers absent, malformed, badly signed and expired tokens alike, as
// well as tokens whose account no longer exists. Store failures are 500:
// they must not be mistaken for a logged-out session.
func Authenticate(ts *auth.TokenService, users IdentityStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := ts.VerifyAccess(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			ident, err := ResolveIdentity(ctx, users, claims.UserID)
			if err != nil {
				if errors.Is(err, ErrUnknownIdentity) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "identity lookup failed"})
			}
			c.Set(identityKey, ident)
			return next(c)
		}
	}
}

// ErrUnknownIdentity reports a token subject with no matching account.
var ErrUnknownIdentity = errors.New("unknown identity")

// ResolveIdentity loads a user row and maps it to the typed identity the
// access gate consumes.
func ResolveIdentity(ctx context.Context, users IdentityStore, id uint64) (*auth.Identity, error) {
	u, err := users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownIdentity
		}
		return nil, err
	}
	return &auth.Identity{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.DisplayName,
		Role:            auth.ParseRole(u.Role),
		Tier:            auth.ParseTier(u.SubscriptionTier),
		SubscriptionEnd: u.SubscriptionEndsAt,
	}, nil
}

// CurrentIdentity returns the identity placed in the context by
// Authenticate, or nil on unauthenticated routes.
func CurrentIdentity(c echo.Context) *auth.Identity {
	if v, ok := c.Get(identityKey).(*auth.Identity); ok {
		return v
	}
	return nil
}

// SetIdentity is exposed for handler tests that bypass Authenticate.
func SetIdentity(c echo.Context, ident *auth.Identity) {
	c.Set(identityKey, ident)
}
