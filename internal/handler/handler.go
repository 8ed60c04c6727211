// Package handler exposes the storefront's REST surface. Handlers stay thin:
// they decode requests, delegate to the domain layer, and map results and
// error kinds onto HTTP responses.
package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/proshop/storefront/internal/auth"
	"github.com/proshop/storefront/internal/domain/order"
	"github.com/proshop/storefront/internal/domain/product"
	"github.com/proshop/storefront/internal/domain/user"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler wires the domain services to the chi router.
type Handler struct {
	orders       *order.Service
	products     product.Repository
	users        user.Repository
	tokens       *auth.Tokens
	imageBaseURL string
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	orders *order.Service,
	products product.Repository,
	users user.Repository,
	tokens *auth.Tokens,
) *Handler {
	return &Handler{
		orders:       orders,
		products:     products,
		users:        users,
		tokens:       tokens,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes returns the full API router mounted under /api.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)

		r.Post("/users", h.Register)
		r.Post("/users/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.tokens.Middleware)

			r.Post("/orders", h.PlaceOrder)
			r.Get("/orders/mine", h.ListMyOrders)
			r.Get("/orders/{id}", h.GetOrder)
			r.Put("/orders/{id}/pay", h.MarkPaid)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Get("/orders", h.ListOrders)
				r.Put("/orders/{id}/deliver", h.MarkDelivered)
			})
		})
	})
	return r
}

// imageURL resolves a stored image path against the configured base URL.
func (h *Handler) imageURL(path string) string {
	if h.imageBaseURL == "" || path == "" || !strings.HasPrefix(path, "/") {
		return path
	}
	return strings.TrimSuffix(h.imageBaseURL, "/") + path
}
