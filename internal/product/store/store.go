// Package store provides an interface for product storage operations.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Product is a persisted product record.
type Product struct {
	ID              uuid.UUID `db:"id"`
	Name            string    `db:"name"`
	Category        string    `db:"category"`
	UnitPrice       float64   `db:"unit_price"`
	QuantityInStock int32     `db:"quantity_in_stock"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// ProductParams are the mutable fields of a product.
type ProductParams struct {
	Name            string
	Category        string
	UnitPrice       float64
	QuantityInStock int32
}

// ProductStore is an interface for product storage operations.
// Absence is reported as a nil result, never as an error.
type ProductStore interface {
	// Add persists a new product under a freshly generated identifier.
	Add(ctx context.Context, params ProductParams) (*Product, error)

	// FindByID retrieves a single product by its unique identifier.
	// Returns nil, nil if no product exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindAll returns all products ordered by name.
	FindAll(ctx context.Context) ([]Product, error)

	// Search returns products whose name or category contains term, ignoring case.
	Search(ctx context.Context, term string) ([]Product, error)

	// Update overwrites every field except the identifier.
	// Returns nil, nil if no product exists with the given ID.
	Update(ctx context.Context, id uuid.UUID, params ProductParams) (*Product, error)

	// Delete removes a product and reports the number of rows removed.
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}
