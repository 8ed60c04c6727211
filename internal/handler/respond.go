package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/proshop/storefront/internal/domain/order"
	"github.com/proshop/storefront/internal/domain/user"
)

// Stable machine-readable error codes. Clients branch on these, not on
// message text; PRODUCT_NOT_FOUND in particular triggers full cart
// invalidation in the checkout flow.
const (
	codeBadRequest         = "BAD_REQUEST"
	codeUnauthorized       = "UNAUTHORIZED"
	codeEmptyCart          = "EMPTY_CART"
	codeMissingProductRef  = "MISSING_PRODUCT_REF"
	codeProductNotFound    = "PRODUCT_NOT_FOUND"
	codeOrderNotFound      = "ORDER_NOT_FOUND"
	codeEmailTaken         = "EMAIL_TAKEN"
	codeInvalidCredentials = "INVALID_CREDENTIALS"
	codeInternal           = "INTERNAL"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

// writeDomainError maps domain error kinds onto HTTP responses. Unrecognized
// errors become an opaque 500 and are logged with full detail server-side.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		pnfErr *order.ProductNotFoundError
		mprErr *order.MissingProductRefError
	)

	switch {
	case errors.Is(err, order.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, codeUnauthorized, err.Error())
	case errors.Is(err, order.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, codeEmptyCart, err.Error())
	case errors.As(err, &mprErr):
		writeError(w, http.StatusBadRequest, codeMissingProductRef, mprErr.Error())
	case errors.As(err, &pnfErr):
		writeError(w, http.StatusUnprocessableEntity, codeProductNotFound, pnfErr.Error())
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, codeOrderNotFound, err.Error())
	case errors.Is(err, user.ErrEmailTaken):
		writeError(w, http.StatusConflict, codeEmailTaken, err.Error())
	case errors.Is(err, user.ErrNotFound), errors.Is(err, user.ErrBadPassword):
		writeError(w, http.StatusUnauthorized, codeInvalidCredentials, "invalid email or password")
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
