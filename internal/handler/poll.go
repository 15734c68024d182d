package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/driftline/label-platform/internal/auth"
	"github.com/driftline/label-platform/internal/middleware"
	"github.com/driftline/label-platform/internal/model"
	"github.com/driftline/label-platform/internal/repository"
)

// PollHandler serves community polls. Results are public; voting needs a
// session, one vote per account, and clears the poll's tier gate if set.
type PollHandler struct {
	Polls *repository.PollRepo
}

func NewPollHandler(polls *repository.PollRepo) *PollHandler {
	return &PollHandler{Polls: polls}
}

type createPollReq struct {
	Question     string   `json:"question" validate:"required,max=300"`
	Options      []string `json:"options" validate:"required,min=2,max=10,dive,required,max=120"`
	RequiredTier *string  `json:"required_tier" validate:"omitempty,oneof=lite fan pro"`
	ClosesAt     *string  `json:"closes_at"`
}

type voteReq struct {
	OptionID uint64 `json:"option_id" validate:"required"`
}

type pollOptionResp struct {
	ID    uint64 `json:"id"`
	Label string `json:"label"`
	Votes int64  `json:"votes"`
}

type pollResp struct {
	ID           uint64           `json:"id"`
	Question     string           `json:"question"`
	RequiredTier *string          `json:"required_tier,omitempty"`
	ClosesAt     *time.Time       `json:"closes_at,omitempty"`
	Closed       bool             `json:"closed"`
	Options      []pollOptionResp `json:"options"`
}

func pollView(p model.Poll) pollResp {
	out := pollResp{
		ID:           p.ID,
		Question:     p.Question,
		RequiredTier: p.RequiredTier,
		ClosesAt:     p.ClosesAt,
		Closed:       repository.IsClosedAt(p, time.Now().UTC()),
		Options:      make([]pollOptionResp, 0, len(p.Options)),
	}
	for _, o := range p.Options {
		out.Options = append(out.Options, pollOptionResp{ID: o.ID, Label: o.Label, Votes: o.Votes})
	}
	return out
}

// ListPublic returns every poll with vote counts.
func (h *PollHandler) ListPublic(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Polls.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	out := make([]pollResp, 0, len(items))
	for _, p := range items {
		out = append(out, pollView(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetPublic returns one poll with vote counts.
func (h *PollHandler) GetPublic(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Polls.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "poll not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, pollView(p))
}

// Vote records the caller's vote. 409 on a second vote, 403 below the
// poll's tier gate, 410 once the poll has closed.
func (h *PollHandler) Vote(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	pollID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req voteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Polls.GetByID(ctx, pollID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "poll not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if repository.IsClosedAt(p, time.Now().UTC()) {
		return c.JSON(http.StatusGone, echo.Map{"error": "poll closed"})
	}
	if p.RequiredTier != nil {
		required := auth.ParseTier(*p.RequiredTier)
		if !auth.HasAccess(ident, required) {
			return c.JSON(http.StatusForbidden, echo.Map{
				"error":         "tier_required",
				"required_tier": required.String(),
			})
		}
	}

	if err := h.Polls.Vote(ctx, pollID, req.OptionID, ident.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return c.JSON(http.StatusConflict, echo.Map{"error": "already voted"})
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "option does not belong to poll"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "vote failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// Create opens a new poll (admin console).
func (h *PollHandler) Create(c echo.Context) error {
	var req createPollReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	var closesAt *time.Time
	if req.ClosesAt != nil && *req.ClosesAt != "" {
		t, err := time.Parse(time.RFC3339, *req.ClosesAt)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "closes_at must be RFC 3339"})
		}
		closesAt = &t
	}

	p := &model.Poll{
		Question:     strings.TrimSpace(req.Question),
		RequiredTier: req.RequiredTier,
		ClosesAt:     closesAt,
	}
	for _, label := range req.Options {
		p.Options = append(p.Options, model.PollOption{Label: strings.TrimSpace(label)})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Polls.Create(ctx, p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, pollView(*p))
}

// Delete removes a poll and its votes (admin console).
func (h *PollHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Polls.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "poll not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
