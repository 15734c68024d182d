package model

import "time"

// MerchItem mirrors the `merch_items` table. There is no checkout flow;
// the shop page links out, so price and stock are informational.
type MerchItem struct {
	ID          uint64    // merch_items.id
	Name        string    // merch_items.name
	Description string    // merch_items.description
	PriceCents  uint32    // merch_items.price_cents
	Currency    string    // merch_items.currency (ISO 4217)
	Stock       int32     // merch_items.stock
	ImageURL    string    // merch_items.image_url
	CreatedAt   time.Time // merch_items.created_at
	UpdatedAt   time.Time // merch_items.updated_at
}
