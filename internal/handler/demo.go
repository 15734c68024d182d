package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/driftline/label-platform/internal/middleware"
	"github.com/driftline/label-platform/internal/model"
	"github.com/driftline/label-platform/internal/queue"
	"github.com/driftline/label-platform/internal/repository"
	queue_publisher "github.com/driftline/label-platform/internal/service"
)

// DemoHandler runs the demo inbox: any signed-in account can submit a
// track, admin/artist accounts review. Each submission is announced on
// the broker so the review-queue log stays current without polling.
type DemoHandler struct {
	Demos *repository.DemoRepo
}

func NewDemoHandler(demos *repository.DemoRepo) *DemoHandler {
	return &DemoHandler{Demos: demos}
}

type demoReq struct {
	ArtistName string `json:"artist_name" validate:"required,max=120"`
	TrackURL   string `json:"track_url" validate:"required,url"`
	Message    string `json:"message" validate:"max=2000"`
}

type demoStatusReq struct {
	Status string `json:"status" validate:"required,oneof=PENDING ACCEPTED REJECTED"`
}

type demoResp struct {
	Reference   string    `json:"reference"`
	ArtistName  string    `json:"artist_name"`
	TrackURL    string    `json:"track_url"`
	Message     string    `json:"message,omitempty"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func demoView(d model.DemoSubmission) demoResp {
	return demoResp{
		Reference:   d.Reference,
		ArtistName:  d.ArtistName,
		TrackURL:    d.TrackURL,
		Message:     d.Message,
		Status:      d.Status,
		SubmittedAt: d.CreatedAt,
	}
}

func demoViews(items []model.DemoSubmission) []demoResp {
	out := make([]demoResp, 0, len(items))
	for _, d := range items {
		out = append(out, demoView(d))
	}
	return out
}

// Submit files a new demo in PENDING state and returns its reference
// code. The broker publish is best-effort; a broker outage never fails
// the submission.
func (h *DemoHandler) Submit(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req demoReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	d := &model.DemoSubmission{
		Reference:  uuid.NewString(),
		UserID:     ident.ID,
		ArtistName: strings.TrimSpace(req.ArtistName),
		TrackURL:   req.TrackURL,
		Message:    req.Message,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.Demos.Create(ctx, d); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "submit failed"})
	}

	_ = queue_publisher.PublishDemoSubmitted(ctx, queue.DemoSubmittedEvent{
		Reference:   d.Reference,
		UserID:      d.UserID,
		ArtistName:  d.ArtistName,
		TrackURL:    d.TrackURL,
		SubmittedAt: d.CreatedAt.Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, demoView(*d))
}

// ListMine returns the caller's own submissions.
func (h *DemoHandler) ListMine(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	if ident == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Demos.ListByUser(ctx, ident.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": demoViews(items)})
}

// ListQueue returns the review queue for admin/artist accounts, filtered
// by ?status= when given.
func (h *DemoHandler) ListQueue(c echo.Context) error {
	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	switch status {
	case "", model.DemoStatusPending, model.DemoStatusAccepted, model.DemoStatusRejected:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Demos.ListAll(ctx, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": demoViews(items)})
}

// SetStatus moves a submission to a new review state.
func (h *DemoHandler) SetStatus(c echo.Context) error {
	ref := c.Param("ref")
	if _, err := uuid.Parse(ref); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reference"})
	}
	var req demoStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Demos.SetStatus(ctx, ref, req.Status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "submission not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	d, err := h.Demos.GetByReference(ctx, ref)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, demoView(d))
}
