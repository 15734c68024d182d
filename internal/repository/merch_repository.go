package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/driftline/label-platform/internal/model"
)

// MerchRepo persists shop items.
type MerchRepo struct{ DB *sql.DB }

func NewMerchRepo(db *sql.DB) *MerchRepo { return &MerchRepo{DB: db} }

const merchColumns = "id, name, description, price_cents, currency, stock, image_url, created_at, updated_at"

// Create inserts an item and fills in its id.
func (r *MerchRepo) Create(ctx context.Context, m *model.MerchItem) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO merch_items (name, description, price_cents, currency, stock, image_url) VALUES (?,?,?,?,?,?)",
		m.Name, m.Description, m.PriceCents, m.Currency, m.Stock, m.ImageURL)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// Update rewrites an item.
func (r *MerchRepo) Update(ctx context.Context, m *model.MerchItem) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE merch_items SET name=?, description=?, price_cents=?, currency=?, stock=?, image_url=? WHERE id=?",
		m.Name, m.Description, m.PriceCents, m.Currency, m.Stock, m.ImageURL, m.ID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// Delete removes an item.
func (r *MerchRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM merch_items WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// GetByID fetches one item.
func (r *MerchRepo) GetByID(ctx context.Context, id uint64) (model.MerchItem, error) {
	var m model.MerchItem
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+merchColumns+" FROM merch_items WHERE id=? LIMIT 1", id).
		Scan(&m.ID, &m.Name, &m.Description, &m.PriceCents, &m.Currency, &m.Stock,
			&m.ImageURL, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.MerchItem{}, ErrNotFound
		}
		return model.MerchItem{}, err
	}
	return m, nil
}

// List returns the shop inventory newest-first.
func (r *MerchRepo) List(ctx context.Context) ([]model.MerchItem, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+merchColumns+" FROM merch_items ORDER BY id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MerchItem
	for rows.Next() {
		var m model.MerchItem
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.PriceCents, &m.Currency,
			&m.Stock, &m.ImageURL, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
