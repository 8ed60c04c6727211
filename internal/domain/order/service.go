package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/proshop/storefront/internal/domain/product"
)

// PlaceOrderRequest holds the input for placing an order. Lines are the raw
// client-submitted cart entries, still untrusted at this point.
type PlaceOrderRequest struct {
	UserID          string
	Lines           []CartLine
	ShippingAddress Address
	PaymentMethod   string
}

// Service encapsulates order pricing and lifecycle business logic.
type Service struct {
	products product.Repository
	orders   Repository
}

// NewService creates an order Service with the required domain dependencies.
func NewService(products product.Repository, orders Repository) *Service {
	return &Service{
		products: products,
		orders:   orders,
	}
}

// PlaceOrder resolves every cart line against the catalog, computes the
// authoritative totals, and persists the order in its initial unpaid,
// undelivered state. Line resolution runs concurrently (lookups are
// independent) but preserves submission order; any single failure aborts
// the whole placement with no write.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if req.UserID == "" {
		return nil, ErrUnauthorized
	}
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	resolved := make([]Line, len(req.Lines))
	g, gctx := errgroup.WithContext(ctx)
	for i, cl := range req.Lines {
		g.Go(func() error {
			line, err := s.resolveLine(gctx, i, cl)
			if err != nil {
				return err
			}
			resolved[i] = line
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	o := &Order{
		ID:              uuid.New().String(),
		UserID:          req.UserID,
		Lines:           resolved,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Totals:          ComputeTotals(resolved),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

// resolveLine replaces the client-submitted price and reference with
// catalog-sourced values. Display name/image keep the client's value when
// present so the order renders what the customer saw at checkout.
func (s *Service) resolveLine(ctx context.Context, idx int, cl CartLine) (Line, error) {
	ref := cl.ProductRef()
	if ref == "" {
		return Line{}, &MissingProductRefError{Index: idx}
	}

	p, err := s.products.GetByID(ctx, ref)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return Line{}, &ProductNotFoundError{ProductID: ref}
		}
		return Line{}, errors.Wrapf(err, "get product %s", ref)
	}

	name := cl.Name
	if name == "" {
		name = p.Name
	}
	image := cl.Image
	if image == "" {
		image = p.Image
	}

	return Line{
		ProductID: ref,
		Name:      name,
		Image:     image,
		Quantity:  int(cl.Quantity),
		UnitPrice: p.Price,
	}, nil
}

// MarkPaid records a payment confirmation on an existing order. Repeated
// invocations are accepted and overwrite the timestamp and confirmation
// payload; the delivered state is untouched.
func (s *Service) MarkPaid(ctx context.Context, orderID string, confirmation PaymentResult) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	o.IsPaid = true
	o.PaidAt = &now
	o.PaymentResult = &confirmation

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrapf(err, "update order %s", orderID)
	}
	return o, nil
}

// MarkDelivered records delivery of an existing order. Independent of the
// paid state and repeatable with last-write-wins on the timestamp.
func (s *Service) MarkDelivered(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	o.IsDelivered = true
	o.DeliveredAt = &now

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrapf(err, "update order %s", orderID)
	}
	return o, nil
}

// GetByID returns a single order or ErrNotFound.
func (s *Service) GetByID(ctx context.Context, orderID string) (*Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// ListForUser returns the given user's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	return s.orders.ListByUser(ctx, userID)
}

// ListAll returns every order with its owner projection, newest first.
func (s *Service) ListAll(ctx context.Context) ([]Order, error) {
	return s.orders.ListAll(ctx)
}
