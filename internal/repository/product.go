package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/proshop/storefront/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, image, description, brand, category, price, count_in_stock, rating, num_reviews
		FROM products ORDER BY name`

	getProductByIDSQL = `SELECT id, name, image, description, brand, category, price, count_in_stock, rating, num_reviews
		FROM products WHERE id = $1`

	upsertProductSQL = `INSERT INTO products (id, name, image, description, brand, category, price, count_in_stock, rating, num_reviews, imported_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (name) DO UPDATE SET
			image = EXCLUDED.image,
			description = EXCLUDED.description,
			brand = EXCLUDED.brand,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			count_in_stock = EXCLUDED.count_in_stock,
			rating = EXCLUDED.rating,
			num_reviews = EXCLUDED.num_reviews,
			imported_at = now()
		RETURNING (xmax = 0)`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by name.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// Upsert inserts or updates a product keyed by its name and always stamps
// imported_at, so every import run reports a change count. It reports
// whether the row was newly inserted.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) (inserted bool, err error) {
	err = r.pool.QueryRow(ctx, upsertProductSQL,
		p.ID, p.Name, p.Image, p.Description, p.Brand, p.Category,
		p.Price, p.CountInStock, p.Rating, p.NumReviews,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upserting product %q: %w", p.Name, err)
	}
	return inserted, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Image, &p.Description, &p.Brand, &p.Category,
		&p.Price, &p.CountInStock, &p.Rating, &p.NumReviews,
	)
	return p, err
}
