package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proshop/storefront/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID   map[string]*product.Product
	getErr error
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

type mockOrderRepo struct {
	byID      map[string]*Order
	created   []*Order
	updated   []*Order
	createErr error
	updateErr error
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, o)
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) Update(_ context.Context, o *Order) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	cp := *o
	m.updated = append(m.updated, &cp)
	if m.byID == nil {
		m.byID = make(map[string]*Order)
	}
	m.byID[o.ID] = &cp
	return nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, _ string) ([]Order, error) {
	return nil, nil
}

func (m *mockOrderRepo) ListAll(_ context.Context) ([]Order, error) {
	return nil, nil
}

// --- Helpers ---

func newTestProduct(id, name, price string) product.Product {
	return product.Product{
		ID:       id,
		Name:     name,
		Image:    "/images/" + id + ".jpg",
		Category: "test",
		Price:    decimal.RequireFromString(price),
	}
}

func newProductRepo(products ...product.Product) *mockProductRepo {
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &mockProductRepo{byID: byID}
}

func eqDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

// --- PlaceOrder ---

func TestPlaceOrder_MissingUser(t *testing.T) {
	svc := NewService(newProductRepo(), &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Lines: []CartLine{{Product: "p1", Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(newProductRepo(), repo)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{UserID: "u1"})
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, repo.created, "no record may be created on failure")
}

func TestPlaceOrder_MissingProductRef(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(newProductRepo(), repo)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID: "u1",
		Lines: []CartLine{
			{Product: "p1", Quantity: 1},
			{Name: "orphan line", Quantity: 2},
		},
	})

	var mprErr *MissingProductRefError
	require.ErrorAs(t, err, &mprErr)
	assert.Equal(t, 1, mprErr.Index)
	assert.Empty(t, repo.created)
}

func TestPlaceOrder_ProductNotFound(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "10.00")
	repo := &mockOrderRepo{}
	svc := NewService(newProductRepo(p1), repo)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID: "u1",
		Lines: []CartLine{
			{Product: "p1", Quantity: 1},
			{Product: "missing", Quantity: 1},
		},
	})

	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, "missing", pnfErr.ProductID)
	assert.Empty(t, repo.created, "no partial order may be persisted")
}

func TestPlaceOrder_StorageErrorPropagates(t *testing.T) {
	boom := errors.New("catalog down")
	svc := NewService(&mockProductRepo{getErr: boom}, &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID: "u1",
		Lines:  []CartLine{{Product: "p1", Quantity: 1}},
	})
	require.ErrorIs(t, err, boom)
}

func TestPlaceOrder_SpecExample(t *testing.T) {
	// cart = [{product: "p1", qty: 3}], catalog price 19.99
	p1 := newTestProduct("p1", "Widget", "19.99")
	repo := &mockOrderRepo{}
	svc := NewService(newProductRepo(p1), repo)

	o, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:        "u1",
		Lines:         []CartLine{{Product: "p1", Quantity: 3}},
		PaymentMethod: "PayPal",
	})
	require.NoError(t, err)

	eqDecimal(t, "59.97", o.Totals.Items)
	eqDecimal(t, "9.00", o.Totals.Tax)
	eqDecimal(t, "10.00", o.Totals.Shipping)
	eqDecimal(t, "78.97", o.Totals.Grand)

	require.Len(t, repo.created, 1)
	assert.Same(t, o, repo.created[0])
	assert.False(t, o.IsPaid)
	assert.False(t, o.IsDelivered)
	assert.Nil(t, o.PaidAt)
	assert.Nil(t, o.DeliveredAt)
	assert.NotEmpty(t, o.ID)
}

func TestPlaceOrder_LegacyIDSynonym(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "5.00")
	svc := NewService(newProductRepo(p1), &mockOrderRepo{})

	o, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID: "u1",
		Lines:  []CartLine{{LegacyID: "p1", Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", o.Lines[0].ProductID)
	eqDecimal(t, "10.00", o.Totals.Items)
}

func TestPlaceOrder_CatalogPriceOverridesClient(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "42.00")
	svc := NewService(newProductRepo(p1), &mockOrderRepo{})

	// The request type carries no client price at all; assert the resolved
	// line price is the catalog's.
	o, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID: "u1",
		Lines:  []CartLine{{Product: "p1", Quantity: 1}},
	})
	require.NoError(t, err)
	eqDecimal(t, "42.00", o.Lines[0].UnitPrice)
}

func TestPlaceOrder_DisplayFieldsFallBackToCatalog(t *testing.T) {
	p1 := newTestProduct("p1", "Catalog Name", "1.00")
	svc := NewService(newProductRepo(p1), &mockOrderRepo{})

	o, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID: "u1",
		Lines: []CartLine{
			{Product: "p1", Quantity: 1},
			{Product: "p1", Name: "Client Name", Image: "client.jpg", Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Catalog Name", o.Lines[0].Name)
	assert.Equal(t, "/images/p1.jpg", o.Lines[0].Image)
	assert.Equal(t, "Client Name", o.Lines[1].Name)
	assert.Equal(t, "client.jpg", o.Lines[1].Image)
}

func TestPlaceOrder_ZeroQuantityLinesAccepted(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "10.00")
	svc := NewService(newProductRepo(p1), &mockOrderRepo{})

	o, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID: "u1",
		Lines:  []CartLine{{Product: "p1", Quantity: 0}},
	})
	require.NoError(t, err)

	eqDecimal(t, "0.00", o.Totals.Items)
	eqDecimal(t, "0.00", o.Totals.Tax)
	eqDecimal(t, "10.00", o.Totals.Shipping)
	eqDecimal(t, "10.00", o.Totals.Grand)
}

func TestPlaceOrder_PreservesLineOrder(t *testing.T) {
	products := make([]product.Product, 8)
	lines := make([]CartLine, 8)
	for i := range products {
		id := string(rune('a' + i))
		products[i] = newTestProduct(id, "P"+id, "1.00")
		lines[i] = CartLine{Product: id, Quantity: Quantity(i + 1)}
	}
	svc := NewService(newProductRepo(products...), &mockOrderRepo{})

	o, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID: "u1",
		Lines:  lines,
	})
	require.NoError(t, err)

	require.Len(t, o.Lines, 8)
	for i, l := range o.Lines {
		assert.Equal(t, lines[i].Product, l.ProductID)
		assert.Equal(t, i+1, l.Quantity)
	}
}

func TestPlaceOrder_CreateErrorPropagates(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "10.00")
	svc := NewService(newProductRepo(p1), &mockOrderRepo{createErr: errors.New("db write failed")})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID: "u1",
		Lines:  []CartLine{{Product: "p1", Quantity: 1}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}

// --- Lifecycle ---

func paidConfirmation() PaymentResult {
	email := "payer@example.com"
	return PaymentResult{
		ProviderID: "PAYID-1",
		Status:     "COMPLETED",
		UpdateTime: "2026-01-02T03:04:05Z",
		PayerEmail: &email,
	}
}

func storedOrder(id string) *Order {
	return &Order{
		ID:     id,
		UserID: "u1",
		Lines:  []Line{{ProductID: "p1", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}},
		Totals: ComputeTotals([]Line{{ProductID: "p1", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}}),
	}
}

func TestMarkPaid_NotFound(t *testing.T) {
	svc := NewService(newProductRepo(), &mockOrderRepo{})

	_, err := svc.MarkPaid(context.Background(), "nope", paidConfirmation())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMarkPaid(t *testing.T) {
	repo := &mockOrderRepo{byID: map[string]*Order{"o1": storedOrder("o1")}}
	svc := NewService(newProductRepo(), repo)

	before := time.Now().UTC()
	o, err := svc.MarkPaid(context.Background(), "o1", paidConfirmation())
	require.NoError(t, err)

	assert.True(t, o.IsPaid)
	require.NotNil(t, o.PaidAt)
	assert.False(t, o.PaidAt.Before(before))
	require.NotNil(t, o.PaymentResult)
	assert.Equal(t, "PAYID-1", o.PaymentResult.ProviderID)
	require.NotNil(t, o.PaymentResult.PayerEmail)
	assert.Equal(t, "payer@example.com", *o.PaymentResult.PayerEmail)
	assert.False(t, o.IsDelivered)
	require.Len(t, repo.updated, 1)
}

func TestMarkPaid_OptionalPayerEmailAbsent(t *testing.T) {
	repo := &mockOrderRepo{byID: map[string]*Order{"o1": storedOrder("o1")}}
	svc := NewService(newProductRepo(), repo)

	o, err := svc.MarkPaid(context.Background(), "o1", PaymentResult{
		ProviderID: "PAYID-2",
		Status:     "COMPLETED",
	})
	require.NoError(t, err)
	assert.Nil(t, o.PaymentResult.PayerEmail)
}

func TestMarkDelivered_NotFound(t *testing.T) {
	svc := NewService(newProductRepo(), &mockOrderRepo{})

	_, err := svc.MarkDelivered(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLifecycle_EitherOrder(t *testing.T) {
	for name, paidFirst := range map[string]bool{"paid then delivered": true, "delivered then paid": false} {
		t.Run(name, func(t *testing.T) {
			repo := &mockOrderRepo{byID: map[string]*Order{"o1": storedOrder("o1")}}
			svc := NewService(newProductRepo(), repo)
			ctx := context.Background()

			if paidFirst {
				_, err := svc.MarkPaid(ctx, "o1", paidConfirmation())
				require.NoError(t, err)
				_, err = svc.MarkDelivered(ctx, "o1")
				require.NoError(t, err)
			} else {
				_, err := svc.MarkDelivered(ctx, "o1")
				require.NoError(t, err)
				_, err = svc.MarkPaid(ctx, "o1", paidConfirmation())
				require.NoError(t, err)
			}

			o, err := svc.GetByID(ctx, "o1")
			require.NoError(t, err)
			assert.True(t, o.IsPaid)
			assert.True(t, o.IsDelivered)
			require.NotNil(t, o.PaidAt)
			require.NotNil(t, o.DeliveredAt)
		})
	}
}

func TestMarkPaid_RepeatOverwritesWithoutClearingDelivered(t *testing.T) {
	repo := &mockOrderRepo{byID: map[string]*Order{"o1": storedOrder("o1")}}
	svc := NewService(newProductRepo(), repo)
	ctx := context.Background()

	first, err := svc.MarkPaid(ctx, "o1", paidConfirmation())
	require.NoError(t, err)
	_, err = svc.MarkDelivered(ctx, "o1")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	second, err := svc.MarkPaid(ctx, "o1", PaymentResult{ProviderID: "PAYID-9", Status: "COMPLETED"})
	require.NoError(t, err)

	assert.True(t, second.IsPaid)
	assert.True(t, second.IsDelivered, "re-marking paid must not erase delivered state")
	assert.Equal(t, "PAYID-9", second.PaymentResult.ProviderID)
	assert.True(t, second.PaidAt.After(*first.PaidAt))
}

func TestListForUser_MissingUser(t *testing.T) {
	svc := NewService(newProductRepo(), &mockOrderRepo{})

	_, err := svc.ListForUser(context.Background(), "")
	require.ErrorIs(t, err, ErrUnauthorized)
}
