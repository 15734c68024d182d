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

// ReleaseHandler serves the catalogue. Public routes always answer but
// withhold the stream URL on tier-gated entries; the member detail route
// hands out the full record or a 403 telling the client which tier it
// needs.
type ReleaseHandler struct {
	Releases *repository.ReleaseRepo
}

func NewReleaseHandler(releases *repository.ReleaseRepo) *ReleaseHandler {
	return &ReleaseHandler{Releases: releases}
}

type releaseReq struct {
	Title        string  `json:"title" validate:"required,max=200"`
	ArtistName   string  `json:"artist_name" validate:"required,max=120"`
	Slug         string  `json:"slug" validate:"required,max=120"`
	Kind         string  `json:"kind" validate:"required,oneof=ALBUM EP SINGLE"`
	ReleaseDate  string  `json:"release_date" validate:"required"`
	CoverURL     string  `json:"cover_url" validate:"omitempty,url"`
	StreamURL    string  `json:"stream_url" validate:"omitempty,url"`
	RequiredTier *string `json:"required_tier" validate:"omitempty,oneof=lite fan pro"`
}

type releaseResp struct {
	ID           uint64    `json:"id"`
	Title        string    `json:"title"`
	ArtistName   string    `json:"artist_name"`
	Slug         string    `json:"slug"`
	Kind         string    `json:"kind"`
	ReleaseDate  time.Time `json:"release_date"`
	CoverURL     string    `json:"cover_url,omitempty"`
	StreamURL    string    `json:"stream_url,omitempty"`
	RequiredTier *string   `json:"required_tier,omitempty"`
	Locked       bool      `json:"locked"`
}

// releaseView maps a release for a viewer, withholding the stream URL
// when the viewer's tier does not clear the gate.
func releaseView(rel model.Release, ident *auth.Identity) releaseResp {
	required := auth.TierNone
	if rel.RequiredTier != nil {
		required = auth.ParseTier(*rel.RequiredTier)
	}
	out := releaseResp{
		ID:           rel.ID,
		Title:        rel.Title,
		ArtistName:   rel.ArtistName,
		Slug:         rel.Slug,
		Kind:         rel.Kind,
		ReleaseDate:  rel.ReleaseDate,
		CoverURL:     rel.CoverURL,
		RequiredTier: rel.RequiredTier,
	}
	if auth.HasAccess(ident, required) {
		out.StreamURL = rel.StreamURL
	} else {
		out.Locked = true
	}
	return out
}

// ListPublic returns the catalogue for anonymous visitors; gated entries
// appear locked.
func (h *ReleaseHandler) ListPublic(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Releases.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	out := make([]releaseResp, 0, len(items))
	for _, rel := range items {
		out = append(out, releaseView(rel, nil))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetPublic returns one release by slug, locked view for anonymous
// visitors.
func (h *ReleaseHandler) GetPublic(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	rel, err := h.Releases.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "release not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, releaseView(rel, nil))
}

// GetMember returns one release for an authenticated viewer: the full
// record when their tier clears the gate, a tier_required 403 otherwise.
func (h *ReleaseHandler) GetMember(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	rel, err := h.Releases.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "release not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if rel.RequiredTier != nil {
		required := auth.ParseTier(*rel.RequiredTier)
		if !auth.HasAccess(ident, required) {
			return c.JSON(http.StatusForbidden, echo.Map{
				"error":         "tier_required",
				"required_tier": required.String(),
			})
		}
	}
	return c.JSON(http.StatusOK, releaseView(rel, ident))
}

// ListMine returns the artist's own releases for the studio console.
func (h *ReleaseHandler) ListMine(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Releases.ListByArtist(ctx, ident.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	out := make([]releaseResp, 0, len(items))
	for _, rel := range items {
		out = append(out, releaseView(rel, ident))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Create adds a catalogue entry owned by the calling artist.
func (h *ReleaseHandler) Create(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	rel, err := bindRelease(c)
	if err != nil {
		return err
	}
	rel.ArtistID = ident.ID

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Releases.Create(ctx, rel); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "slug already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, releaseView(*rel, ident))
}

// Update rewrites a release. Artists may only touch their own entries;
// admins may touch any.
func (h *ReleaseHandler) Update(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	rel, err := bindRelease(c)
	if err != nil {
		return err
	}
	rel.ID = id

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Releases.Update(ctx, rel, ownerFilter(ident)); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "release not found"})
		case errors.Is(err, repository.ErrDuplicate):
			return c.JSON(http.StatusConflict, echo.Map{"error": "slug already exists"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}
	updated, err := h.Releases.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, releaseView(updated, ident))
}

// Delete removes a release with the same ownership rule as Update.
func (h *ReleaseHandler) Delete(c echo.Context) error {
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

	if err := h.Releases.Delete(ctx, id, ownerFilter(ident)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "release not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

func bindRelease(c echo.Context) (*model.Release, error) {
	var req releaseReq
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return nil, err
	}
	date, err := time.Parse("2006-01-02", req.ReleaseDate)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "release_date must be YYYY-MM-DD")
	}
	return &model.Release{
		Title:        strings.TrimSpace(req.Title),
		ArtistName:   strings.TrimSpace(req.ArtistName),
		Slug:         strings.ToLower(strings.TrimSpace(req.Slug)),
		Kind:         req.Kind,
		ReleaseDate:  date,
		CoverURL:     req.CoverURL,
		StreamURL:    req.StreamURL,
		RequiredTier: req.RequiredTier,
	}, nil
}

// ownerFilter returns the artist id to scope writes to, or 0 for admins
// (no scoping).
func ownerFilter(ident *auth.Identity) uint64 {
	if ident.Role == auth.RoleAdmin {
		return 0
	}
	return ident.ID
}
