// Command import-catalog loads gzipped JSON product feeds into the catalog.
//
// Feeds are parsed concurrently and merged in the order they are given on the
// command line. Products are keyed by name: the first feed that mentions a
// name wins, and existing catalog rows with the same name are updated in
// place, so re-running the import is safe.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/proshop/storefront/internal/domain/product"
	"github.com/proshop/storefront/internal/repository"
)

const (
	// Sized for large supplier feeds. The filter is probabilistic: a false
	// positive skips a product that only appeared once, at a rate of ~0.01%.
	bloomCapacity = 1_000_000
	bloomFPR      = 0.0001

	decodeBufSize = 64 << 10
)

func main() {
	var databaseURL string
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	feeds := flag.Args()
	if len(feeds) == 0 {
		slog.Error("no feed files given: pass one or more .json.gz paths")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, feeds); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, databaseURL string, feeds []string) error {
	for _, f := range feeds {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check feed %s", f)
		}
	}

	slog.Info("parsing feeds", slog.Int("count", len(feeds)))

	parsed, err := parseFeeds(ctx, feeds)
	if err != nil {
		return errors.Wrap(err, "parse feeds")
	}

	products, skipped := dedupeByName(parsed)
	slog.Info("feeds merged",
		slog.Int("products", len(products)),
		slog.Int("duplicates_skipped", skipped),
	)

	if len(products) == 0 {
		slog.Info("nothing to import")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	return writeProducts(ctx, repository.NewProductRepository(pool), products)
}

// parseFeeds decodes every feed concurrently, keeping results indexed by feed
// position so the merge order matches the command line order.
func parseFeeds(ctx context.Context, feeds []string) ([][]product.Product, error) {
	parsed := make([][]product.Product, len(feeds))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range feeds {
		g.Go(func() error {
			items, err := parseFeed(ctx, path)
			if err != nil {
				return errors.Wrapf(err, "parse feed %s", path)
			}
			slog.Info("feed parsed", slog.String("path", path), slog.Int("products", len(items)))
			parsed[i] = items
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parsed, nil
}

// parseFeed streams one gzipped JSON array of product records.
func parseFeed(ctx context.Context, path string) ([]product.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	var products []product.Product
	d := jx.Decode(gz, decodeBufSize)
	if err := d.Arr(func(d *jx.Decoder) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := decodeProduct(d)
		if err != nil {
			return errors.Wrapf(err, "record %d", len(products))
		}
		products = append(products, p)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode array")
	}

	return products, nil
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	p := product.Product{ID: uuid.New().String()}
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			p.Name, err = d.Str()
		case "image":
			p.Image, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "brand":
			p.Brand, err = d.Str()
		case "category":
			p.Category, err = d.Str()
		case "price":
			p.Price, err = decodeDecimal(d)
		case "countInStock":
			p.CountInStock, err = d.Int()
		case "rating":
			p.Rating, err = decodeDecimal(d)
		case "numReviews":
			p.NumReviews, err = d.Int()
		default:
			return d.Skip()
		}
		return errors.Wrap(err, key)
	}); err != nil {
		return product.Product{}, err
	}

	if p.Name == "" {
		return product.Product{}, errors.New("product has no name")
	}
	return p, nil
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	num, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(num.String())
}

// dedupeByName keeps the first occurrence of each product name across feeds.
// Names are matched case-insensitively through a bloom filter.
func dedupeByName(parsed [][]product.Product) (products []product.Product, skipped int) {
	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	for _, feed := range parsed {
		for _, p := range feed {
			if seen.TestAndAddString(strings.ToLower(p.Name)) {
				skipped++
				continue
			}
			products = append(products, p)
		}
	}
	return products, skipped
}

func writeProducts(ctx context.Context, repo *repository.ProductRepository, products []product.Product) error {
	slog.Info("writing products", slog.Int("count", len(products)))

	var inserted, updated int
	for _, p := range products {
		fresh, err := repo.Upsert(ctx, &p)
		if err != nil {
			return errors.Wrapf(err, "upsert product %q", p.Name)
		}
		if fresh {
			inserted++
		} else {
			updated++
		}
	}

	slog.Info("write complete", slog.Int("inserted", inserted), slog.Int("updated", updated))
	return nil
}
