package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/driftline/label-platform/internal/auth"
	"github.com/driftline/label-platform/internal/config"
	"github.com/driftline/label-platform/internal/middleware"
	"github.com/driftline/label-platform/internal/model"
	"github.com/driftline/label-platform/internal/repository"
	"github.com/driftline/label-platform/internal/utils"
)

// refreshCookie is the cookie under which the refresh token travels when
// the client opts for cookie transport. Refresh and logout accept either
// this cookie or an explicit body field.
const refreshCookie = "refresh_token"

// UserStore is the slice of the user repository the account endpoints
// need. Tests substitute an in-memory fake.
type UserStore interface {
	Create(ctx context.Context, email, password, displayName, role string, bcryptCost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	SetSubscription(ctx context.Context, id uint64, tier string, endsAt time.Time) error
	ClearSubscription(ctx context.Context, id uint64) error
	Delete(ctx context.Context, id uint64) error
}

// AuthHandler bundles dependencies for the session endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens *auth.TokenService
}

func NewAuthHandler(cfg config.Config, users UserStore, tokens *auth.TokenService) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Tokens: tokens}
}

type registerReq struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	DisplayName string `json:"display_name" validate:"required,max=80"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type userPart struct {
	ID            uint64 `json:"id"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name"`
	Role          string `json:"role"`
	Tier          string `json:"tier"`
	EffectiveTier string `json:"effective_tier"`
}

type sessionResp struct {
	User    userPart          `json:"user"`
	Access  auth.AccessToken  `json:"access"`
	Refresh auth.RefreshToken `json:"refresh"`
}

// Register creates an account (always role FREE, tier none) and opens a
// session immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := reqCtx(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Password, strings.TrimSpace(req.DisplayName),
		string(auth.RoleFree), h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create account failed"})
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load account failed"})
	}
	return h.openSession(c, u, http.StatusCreated)
}

// Login verifies credentials and opens a session. Unknown email and wrong
// password produce the same response.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	return h.openSession(c, u, http.StatusOK)
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is left in place (it stays valid until logout or
// natural expiry; see DESIGN.md on rotation).
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := h.refreshFromRequest(c)
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	uid, err := h.Tokens.VerifyRefresh(ctx, raw)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRefresh) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		// Store outage: the token may well be valid, so never answer 401
		// here. Clients retry.
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporarily unavailable"})
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporarily unavailable"})
	}

	access, err := h.Tokens.IssueAccess(u.ID, u.Email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"access": access})
}

// Logout revokes the presented refresh token (body or cookie) and clears
// the cookie. Revoking an already-dead token still succeeds.
func (h *AuthHandler) Logout(c echo.Context) error {
	raw := h.refreshFromRequest(c)
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Tokens.RevokeRefresh(ctx, raw); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	h.clearRefreshCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// LogoutAll revokes every refresh token of the authenticated user ("log
// out everywhere"). Protected route.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Tokens.RevokeAll(ctx, ident.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	h.clearRefreshCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// Me reports the authenticated account, including the effective tier
// after the lapse check.
func (h *AuthHandler) Me(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, identPart(ident))
}

// DeleteAccount removes the authenticated account. Owned refresh tokens,
// votes and demo submissions cascade in the database.
func (h *AuthHandler) DeleteAccount(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Tokens.RevokeAll(ctx, ident.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	if err := h.Users.Delete(ctx, ident.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	h.clearRefreshCookie(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) openSession(c echo.Context, u model.User, status int) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	access, err := h.Tokens.IssueAccess(u.ID, u.Email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	refresh, err := h.Tokens.IssueRefresh(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
	}
	h.setRefreshCookie(c, refresh)

	ident := &auth.Identity{
		ID: u.ID, Email: u.Email, Name: u.DisplayName,
		Role: auth.ParseRole(u.Role), Tier: auth.ParseTier(u.SubscriptionTier),
		SubscriptionEnd: u.SubscriptionEndsAt,
	}
	return c.JSON(status, sessionResp{User: identPart(ident), Access: access, Refresh: refresh})
}

// refreshFromRequest reads the refresh token from the JSON body first and
// the cookie second; both transports are accepted.
func (h *AuthHandler) refreshFromRequest(c echo.Context) string {
	var req refreshReq
	_ = c.Bind(&req)
	if raw := strings.TrimSpace(req.RefreshToken); raw != "" {
		return raw
	}
	if ck, err := c.Cookie(refreshCookie); err == nil {
		return strings.TrimSpace(ck.Value)
	}
	return ""
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, ref auth.RefreshToken) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookie,
		Value:    ref.Raw,
		Path:     "/v1/auth",
		Expires:  ref.Exp,
		HttpOnly: true,
		Secure:   h.Cfg.Env == "prod",
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     "/v1/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cfg.Env == "prod",
		SameSite: http.SameSiteStrictMode,
	})
}

func identPart(ident *auth.Identity) userPart {
	return userPart{
		ID:            ident.ID,
		Email:         ident.Email,
		DisplayName:   ident.Name,
		Role:          string(ident.Role),
		Tier:          ident.Tier.String(),
		EffectiveTier: ident.EffectiveTierAt(time.Now().UTC()).String(),
	}
}

// reqCtx bounds database work to the request with a 5s ceiling.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}
