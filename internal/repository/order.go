package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/proshop/storefront/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, user_id, lines, shipping_address, payment_method,
			items_price, tax_price, shipping_price, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	orderColumns = `o.id, o.user_id, o.lines, o.shipping_address, o.payment_method,
		o.items_price, o.tax_price, o.shipping_price, o.total_price,
		o.is_paid, o.paid_at, o.payment_result, o.is_delivered, o.delivered_at, o.created_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders o
		WHERE o.user_id = $1 ORDER BY o.created_at DESC`

	listAllOrdersSQL = `SELECT ` + orderColumns + `, u.name FROM orders o
		JOIN users u ON u.id = o.user_id ORDER BY o.created_at DESC`

	updateOrderSQL = `UPDATE orders SET
			is_paid = $2, paid_at = $3, payment_result = $4,
			is_delivered = $5, delivered_at = $6
		WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. Lines and the shipping address are serialized
// to JSON for storage in JSONB columns; the database assigns created_at.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	linesJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("marshaling order lines: %w", err)
	}
	addressJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshaling shipping address: %w", err)
	}

	err = r.pool.QueryRow(ctx, createOrderSQL,
		o.ID, o.UserID, linesJSON, addressJSON, o.PaymentMethod,
		o.Totals.Items, o.Totals.Tax, o.Totals.Shipping, o.Totals.Grand,
	).Scan(&o.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	return nil
}

// GetByID returns a single order or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// Update persists the lifecycle fields of an existing order.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	var resultJSON []byte
	if o.PaymentResult != nil {
		var err error
		resultJSON, err = json.Marshal(o.PaymentResult)
		if err != nil {
			return fmt.Errorf("marshaling payment result: %w", err)
		}
	}

	tag, err := r.pool.Exec(ctx, updateOrderSQL,
		o.ID, o.IsPaid, o.PaidAt, resultJSON, o.IsDelivered, o.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}

	return nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListAll returns every order with its owner's name projected, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listAllOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing all orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrderWithOwner)
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	return scanOrderFields(row, false)
}

func scanOrderWithOwner(row pgx.CollectableRow) (order.Order, error) {
	return scanOrderFields(row, true)
}

func scanOrderFields(row pgx.CollectableRow, withOwner bool) (order.Order, error) {
	var (
		o           order.Order
		linesJSON   []byte
		addressJSON []byte
		resultJSON  []byte
	)

	dest := []any{
		&o.ID, &o.UserID, &linesJSON, &addressJSON, &o.PaymentMethod,
		&o.Totals.Items, &o.Totals.Tax, &o.Totals.Shipping, &o.Totals.Grand,
		&o.IsPaid, &o.PaidAt, &resultJSON, &o.IsDelivered, &o.DeliveredAt, &o.CreatedAt,
	}
	if withOwner {
		dest = append(dest, &o.UserName)
	}

	if err := row.Scan(dest...); err != nil {
		return o, err
	}

	if err := json.Unmarshal(linesJSON, &o.Lines); err != nil {
		return o, fmt.Errorf("unmarshaling order lines: %w", err)
	}
	if err := json.Unmarshal(addressJSON, &o.ShippingAddress); err != nil {
		return o, fmt.Errorf("unmarshaling shipping address: %w", err)
	}
	if len(resultJSON) > 0 {
		o.PaymentResult = new(order.PaymentResult)
		if err := json.Unmarshal(resultJSON, o.PaymentResult); err != nil {
			return o, fmt.Errorf("unmarshaling payment result: %w", err)
		}
	}

	return o, nil
}
