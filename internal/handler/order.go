package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/proshop/storefront/internal/auth"
	"github.com/proshop/storefront/internal/domain/order"
)

type placeOrderRequest struct {
	OrderItems      []order.CartLine `json:"orderItems"`
	ShippingAddress order.Address    `json:"shippingAddress"`
	PaymentMethod   string           `json:"paymentMethod"`
}

type paymentConfirmationRequest struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	UpdateTime string `json:"update_time"`
	Payer      struct {
		EmailAddress *string `json:"email_address"`
	} `json:"payer"`
}

type orderOwner struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type orderLineResponse struct {
	Product string  `json:"product"`
	Name    string  `json:"name"`
	Image   string  `json:"image"`
	Qty     int     `json:"qty"`
	Price   float64 `json:"price"`
}

type orderResponse struct {
	ID              string               `json:"id"`
	User            orderOwner           `json:"user"`
	OrderItems      []orderLineResponse  `json:"orderItems"`
	ShippingAddress order.Address        `json:"shippingAddress"`
	PaymentMethod   string               `json:"paymentMethod"`
	ItemsPrice      float64              `json:"itemsPrice"`
	TaxPrice        float64              `json:"taxPrice"`
	ShippingPrice   float64              `json:"shippingPrice"`
	TotalPrice      float64              `json:"totalPrice"`
	IsPaid          bool                 `json:"isPaid"`
	PaidAt          *time.Time           `json:"paidAt,omitempty"`
	PaymentResult   *order.PaymentResult `json:"paymentResult,omitempty"`
	IsDelivered     bool                 `json:"isDelivered"`
	DeliveredAt     *time.Time           `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
}

func (h *Handler) toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		items[i] = orderLineResponse{
			Product: l.ProductID,
			Name:    l.Name,
			Image:   h.imageURL(l.Image),
			Qty:     l.Quantity,
			Price:   l.UnitPrice.InexactFloat64(),
		}
	}

	return orderResponse{
		ID:              o.ID,
		User:            orderOwner{ID: o.UserID, Name: o.UserName},
		OrderItems:      items,
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
		ItemsPrice:      o.Totals.Items.InexactFloat64(),
		TaxPrice:        o.Totals.Tax.InexactFloat64(),
		ShippingPrice:   o.Totals.Shipping.InexactFloat64(),
		TotalPrice:      o.Totals.Grand.InexactFloat64(),
		IsPaid:          o.IsPaid,
		PaidAt:          o.PaidAt,
		PaymentResult:   o.PaymentResult,
		IsDelivered:     o.IsDelivered,
		DeliveredAt:     o.DeliveredAt,
		CreatedAt:       o.CreatedAt,
	}
}

// PlaceOrder handles POST /api/orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "not authorized")
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "malformed request body")
		return
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		UserID:          id.ID,
		Lines:           req.OrderItems,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.toOrderResponse(o))
}

// GetOrder handles GET /api/orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toOrderResponse(o))
}

// MarkPaid handles PUT /api/orders/{id}/pay.
func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	var req paymentConfirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "malformed request body")
		return
	}

	o, err := h.orders.MarkPaid(r.Context(), chi.URLParam(r, "id"), order.PaymentResult{
		ProviderID: req.ID,
		Status:     req.Status,
		UpdateTime: req.UpdateTime,
		PayerEmail: req.Payer.EmailAddress,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toOrderResponse(o))
}

// MarkDelivered handles PUT /api/orders/{id}/deliver.
func (h *Handler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.MarkDelivered(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toOrderResponse(o))
}

// ListMyOrders handles GET /api/orders/mine.
func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	orders, err := h.orders.ListForUser(r.Context(), id.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.writeOrderList(w, orders)
}

// ListOrders handles GET /api/orders (admin).
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.writeOrderList(w, orders)
}

func (h *Handler) writeOrderList(w http.ResponseWriter, orders []order.Order) {
	resp := make([]orderResponse, len(orders))
	for i := range orders {
		resp[i] = h.toOrderResponse(&orders[i])
	}
	writeJSON(w, http.StatusOK, resp)
}
