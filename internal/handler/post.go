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

// PostHandler serves news posts. Gated posts appear in public listings as
// teasers with the body withheld.
type PostHandler struct {
	Posts *repository.PostRepo
}

func NewPostHandler(posts *repository.PostRepo) *PostHandler {
	return &PostHandler{Posts: posts}
}

type postReq struct {
	Title        string  `json:"title" validate:"required,max=200"`
	Body         string  `json:"body" validate:"required"`
	RequiredTier *string `json:"required_tier" validate:"omitempty,oneof=lite fan pro"`
}

type postResp struct {
	ID           uint64    `json:"id"`
	Title        string    `json:"title"`
	Body         string    `json:"body,omitempty"`
	RequiredTier *string   `json:"required_tier,omitempty"`
	PublishedAt  time.Time `json:"published_at"`
	Locked       bool      `json:"locked"`
}

func postView(p model.Post, ident *auth.Identity) postResp {
	required := auth.TierNone
	if p.RequiredTier != nil {
		required = auth.ParseTier(*p.RequiredTier)
	}
	out := postResp{
		ID:           p.ID,
		Title:        p.Title,
		RequiredTier: p.RequiredTier,
		PublishedAt:  p.PublishedAt,
	}
	if auth.HasAccess(ident, required) {
		out.Body = p.Body
	} else {
		out.Locked = true
	}
	return out
}

// ListPublic returns all posts, gated ones as teasers.
func (h *PostHandler) ListPublic(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Posts.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	out := make([]postResp, 0, len(items))
	for _, p := range items {
		out = append(out, postView(p, nil))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// ListExclusives returns the subscriber feed. The route itself sits
// behind the lowest paid tier; posts gated above the caller's tier still
// appear locked.
func (h *PostHandler) ListExclusives(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Posts.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	out := make([]postResp, 0, len(items))
	for _, p := range items {
		out = append(out, postView(p, ident))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetMember returns a post for an authenticated viewer or a tier_required
// 403.
func (h *PostHandler) GetMember(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Posts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "post not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
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
	return c.JSON(http.StatusOK, postView(p, ident))
}

// Create publishes a post authored by the calling artist/admin.
func (h *PostHandler) Create(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req postReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p := &model.Post{
		AuthorID:     ident.ID,
		Title:        strings.TrimSpace(req.Title),
		Body:         req.Body,
		RequiredTier: req.RequiredTier,
		PublishedAt:  time.Now().UTC(),
	}
	if err := h.Posts.Create(ctx, p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, postView(*p, ident))
}

// Update rewrites a post; artists only their own, admins any.
func (h *PostHandler) Update(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req postReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p := &model.Post{
		ID:           id,
		Title:        strings.TrimSpace(req.Title),
		Body:         req.Body,
		RequiredTier: req.RequiredTier,
	}
	if err := h.Posts.Update(ctx, p, ownerFilter(ident)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "post not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	updated, err := h.Posts.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, postView(updated, ident))
}

// Delete removes a post with the same ownership rule as Update.
func (h *PostHandler) Delete(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Posts.Delete(ctx, id, ownerFilter(ident)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "post not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
