// Package order implements the storefront's order core: server-side pricing
// of submitted carts against the catalog and the paid/delivered lifecycle of
// persisted orders.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Sentinel errors for order placement and lookup.
var (
	ErrUnauthorized = fmt.Errorf("not authorized: user missing")
	ErrEmptyCart    = fmt.Errorf("no order items")
	ErrNotFound     = fmt.Errorf("order not found")
)

// ProductNotFoundError indicates a cart line references a product that does
// not exist in the catalog. Callers branch on this error specifically: a
// stale client cart must be discarded wholesale when the catalog has been
// reseeded, so it must stay distinguishable from other failures.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID)
}

// MissingProductRefError indicates a cart line carries neither of the two
// accepted product reference fields.
type MissingProductRefError struct {
	Index int
}

func (e *MissingProductRefError) Error() string {
	return fmt.Sprintf("invalid cart item at index %d: missing product id", e.Index)
}

// Line is a resolved order line: quantity and display fields fixed at
// resolution time, unit price sourced exclusively from the catalog.
type Line struct {
	ProductID string          `json:"product"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Quantity  int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"price"`
}

// Address is the shipping destination. The core passes it through without
// validation.
type Address struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// PaymentResult captures the payment provider's confirmation payload.
// PayerEmail is optional; providers do not always disclose it.
type PaymentResult struct {
	ProviderID string  `json:"id"`
	Status     string  `json:"status"`
	UpdateTime string  `json:"update_time"`
	PayerEmail *string `json:"email_address,omitempty"`
}

// Totals holds the computed order amounts, each rounded to 2 decimal places
// at its own computation step.
type Totals struct {
	Items    decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Grand    decimal.Decimal
}

// Order is a priced, persisted customer order.
type Order struct {
	ID              string
	UserID          string
	UserName        string // owner projection, populated by admin listings only
	Lines           []Line
	ShippingAddress Address
	PaymentMethod   string
	Totals          Totals
	IsPaid          bool
	PaidAt          *time.Time
	PaymentResult   *PaymentResult
	IsDelivered     bool
	DeliveredAt     *time.Time
	CreatedAt       time.Time
}

// Repository defines persistence operations for orders. Listings return the
// most recently created orders first.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	// GetByID returns the order or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Order, error)
	// Update persists lifecycle fields (paid/delivered flags, timestamps,
	// payment result) of an existing order, or returns ErrNotFound.
	Update(ctx context.Context, o *Order) error
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// ListAll includes the owner id/name projection on every order.
	ListAll(ctx context.Context) ([]Order, error)
}
