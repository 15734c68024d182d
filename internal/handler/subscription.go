package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/driftline/label-platform/internal/auth"
	"github.com/driftline/label-platform/internal/config"
	"github.com/driftline/label-platform/internal/middleware"
)

// SubscriptionHandler implements the purchase stub: no billing, just the
// tier and end-date columns. Lapse is detected at read time by the access
// gate, never by a background job flipping the column.
type SubscriptionHandler struct {
	Cfg   config.Config
	Users UserStore
}

func NewSubscriptionHandler(cfg config.Config, users UserStore) *SubscriptionHandler {
	return &SubscriptionHandler{Cfg: cfg, Users: users}
}

type purchaseReq struct {
	Tier string `json:"tier" validate:"required,oneof=lite fan pro"`
}

type subscriptionResp struct {
	Tier          string     `json:"tier"`
	EffectiveTier string     `json:"effective_tier"`
	EndsAt        *time.Time `json:"ends_at,omitempty"`
}

// Status reports the stored and effective tier of the current account.
func (h *SubscriptionHandler) Status(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, subscriptionResp{
		Tier:          ident.Tier.String(),
		EffectiveTier: ident.EffectiveTierAt(time.Now().UTC()).String(),
		EndsAt:        ident.SubscriptionEnd,
	})
}

// Purchase sets the requested tier with an end date 30 days out (stub:
// repeated purchases simply restart the window from now).
func (h *SubscriptionHandler) Purchase(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req purchaseReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	endsAt := time.Now().UTC().AddDate(0, 0, h.Cfg.SubscriptionDays)
	if err := h.Users.SetSubscription(ctx, ident.ID, req.Tier, endsAt); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "purchase failed"})
	}
	return c.JSON(http.StatusOK, subscriptionResp{
		Tier:          req.Tier,
		EffectiveTier: auth.ParseTier(req.Tier).String(),
		EndsAt:        &endsAt,
	})
}

// Cancel drops the account back to tier none immediately.
func (h *SubscriptionHandler) Cancel(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.ClearSubscription(ctx, ident.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	return c.JSON(http.StatusOK, subscriptionResp{
		Tier:          auth.TierNone.String(),
		EffectiveTier: auth.TierNone.String(),
	})
}
