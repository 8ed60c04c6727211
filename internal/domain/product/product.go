// Package product defines the catalog domain types and the repository
// contract for looking up authoritative product data.
package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a product does not exist in the catalog.
var ErrNotFound = errors.New("product not found")

// Product represents a single catalog entry. Price is the authoritative
// unit price used for all server-side order pricing.
type Product struct {
	ID           string
	Name         string
	Image        string
	Description  string
	Brand        string
	Category     string
	Price        decimal.Decimal
	CountInStock int
	Rating       decimal.Decimal
	NumReviews   int
}

// Repository defines read access to the product catalog.
type Repository interface {
	// GetByID returns a single product by its identifier, or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Product, error)
	// List returns all products ordered by name.
	List(ctx context.Context) ([]Product, error)
}
