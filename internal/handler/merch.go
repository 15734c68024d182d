package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/driftline/label-platform/internal/model"
	"github.com/driftline/label-platform/internal/repository"
)

// MerchHandler serves the shop: public browsing, admin CRUD. There is no
// checkout; the storefront links out for fulfilment.
type MerchHandler struct {
	Merch *repository.MerchRepo
}

func NewMerchHandler(merch *repository.MerchRepo) *MerchHandler {
	return &MerchHandler{Merch: merch}
}

type merchReq struct {
	Name        string `json:"name" validate:"required,max=160"`
	Description string `json:"description" validate:"max=2000"`
	PriceCents  uint32 `json:"price_cents" validate:"required,gte=1"`
	Currency    string `json:"currency" validate:"required,len=3"`
	Stock       int32  `json:"stock" validate:"gte=0"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
}

type merchResp struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PriceCents  uint32 `json:"price_cents"`
	Currency    string `json:"currency"`
	Stock       int32  `json:"stock"`
	ImageURL    string `json:"image_url,omitempty"`
}

func merchView(m model.MerchItem) merchResp {
	return merchResp{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		PriceCents:  m.PriceCents,
		Currency:    m.Currency,
		Stock:       m.Stock,
		ImageURL:    m.ImageURL,
	}
}

// ListPublic returns the shop inventory.
func (h *MerchHandler) ListPublic(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Merch.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	out := make([]merchResp, 0, len(items))
	for _, m := range items {
		out = append(out, merchView(m))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetPublic returns one item.
func (h *MerchHandler) GetPublic(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	m, err := h.Merch.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, merchView(m))
}

// Create adds an item (admin console).
func (h *MerchHandler) Create(c echo.Context) error {
	m, err := bindMerch(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Merch.Create(ctx, m); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, merchView(*m))
}

// Update rewrites an item (admin console).
func (h *MerchHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	m, err := bindMerch(c)
	if err != nil {
		return err
	}
	m.ID = id

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Merch.Update(ctx, m); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, merchView(*m))
}

// Delete removes an item (admin console).
func (h *MerchHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Merch.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

func bindMerch(c echo.Context) (*model.MerchItem, error) {
	var req merchReq
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return nil, err
	}
	return &model.MerchItem{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Currency:    strings.ToUpper(req.Currency),
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
	}, nil
}
