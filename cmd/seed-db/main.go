// Command seed-db runs migrations and loads development fixtures: the sample
// product catalog and an admin account.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/proshop/storefront/internal/domain/product"
	"github.com/proshop/storefront/internal/domain/user"
	"github.com/proshop/storefront/internal/repository"
)

type productJSON struct {
	Name         string          `json:"name"`
	Image        string          `json:"image"`
	Description  string          `json:"description"`
	Brand        string          `json:"brand"`
	Category     string          `json:"category"`
	Price        decimal.Decimal `json:"price"`
	CountInStock int             `json:"countInStock"`
	Rating       decimal.Decimal `json:"rating"`
	NumReviews   int             `json:"numReviews"`
}

func main() {
	var (
		databaseURL   string
		productsFile  string
		adminEmail    string
		adminPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&adminEmail, "admin-email", "admin@example.com", "email for the seeded admin account")
	flag.StringVar(&adminPassword, "admin-password", "", "password for the seeded admin account (or SHOP_SEED_ADMIN_PASSWORD env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminPassword == "" {
		adminPassword = os.Getenv("SHOP_SEED_ADMIN_PASSWORD")
	}
	if adminPassword == "" {
		slog.Error("admin password is required: set --admin-password or SHOP_SEED_ADMIN_PASSWORD")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, adminEmail, adminPassword); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, adminEmail, adminPassword string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, repository.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedAdmin(ctx, repository.NewUserRepository(pool), adminEmail, adminPassword); err != nil {
		return errors.Wrap(err, "seed admin user")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *repository.ProductRepository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var records []productJSON
	if err := json.Unmarshal(data, &records); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(records)))

	for _, rec := range records {
		p := product.Product{
			ID:           uuid.New().String(),
			Name:         rec.Name,
			Image:        rec.Image,
			Description:  rec.Description,
			Brand:        rec.Brand,
			Category:     rec.Category,
			Price:        rec.Price,
			CountInStock: rec.CountInStock,
			Rating:       rec.Rating,
			NumReviews:   rec.NumReviews,
		}
		if _, err := repo.Upsert(ctx, &p); err != nil {
			return errors.Wrapf(err, "upsert product %q", p.Name)
		}

		slog.Info("upserted product", slog.String("name", p.Name))
	}

	return nil
}

func seedAdmin(ctx context.Context, repo *repository.UserRepository, email, password string) error {
	slog.Info("seeding admin user", slog.String("email", email))

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash admin password")
	}

	u := &user.User{
		ID:           uuid.New().String(),
		Name:         "Admin",
		Email:        email,
		PasswordHash: string(hash),
		IsAdmin:      true,
	}
	if err := repo.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			slog.Info("admin user already exists", slog.String("email", email))
			return nil
		}
		return errors.Wrap(err, "create admin user")
	}

	slog.Info("created admin user", slog.String("email", email))
	return nil
}
