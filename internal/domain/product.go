package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultSyncedStock is the stock assigned to a product the first time it is
// imported from the external catalog. Later syncs never touch stock.
const DefaultSyncedStock = 100

// Product represents a product in the catalog
type Product struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	ExternalID   *int64          `json:"external_id,omitempty" db:"external_id"`
	Name         string          `json:"name" db:"name"`
	Description  string          `json:"description" db:"description"`
	Price        decimal.Decimal `json:"price" db:"price"`
	Stock        int             `json:"stock" db:"stock"`
	ImageURL     string          `json:"image_url" db:"image_url"`
	CategoryID   *uuid.UUID      `json:"category_id,omitempty" db:"category_id"`
	CategoryName string          `json:"category,omitempty" db:"category_name"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// Category represents a product category
type Category struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ExternalProduct is a record as served by the upstream catalog API. It is
// never persisted directly.
type ExternalProduct struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
}
