// Package handler exposes the storefront state over a JSON HTTP API.
package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Unknumb/SneakerStoreMobile/internal/domain/cart"
	"github.com/Unknumb/SneakerStoreMobile/internal/domain/catalog"
	"github.com/Unknumb/SneakerStoreMobile/internal/domain/order"
	"github.com/Unknumb/SneakerStoreMobile/internal/domain/product"
	"github.com/Unknumb/SneakerStoreMobile/internal/domain/session"
	"github.com/Unknumb/SneakerStoreMobile/internal/domain/user"
	"github.com/Unknumb/SneakerStoreMobile/internal/validate"
)

const maxBodySize = 64 << 10

// RateSource returns the CLP value of one US dollar.
type RateSource interface {
	DollarRate(ctx context.Context) (decimal.Decimal, error)
}

// Deps are the stores and services served by Handler.
type Deps struct {
	Catalog  *catalog.Store
	Cart     *cart.Cart
	Session  *session.Store
	Checkout *order.Service
	Rates    RateSource
}

// Handler serves the storefront API.
type Handler struct {
	catalog  *catalog.Store
	cart     *cart.Cart
	session  *session.Store
	checkout *order.Service
	rates    RateSource
}

// New returns a Handler over deps.
func New(deps Deps) *Handler {
	return &Handler{
		catalog:  deps.Catalog,
		cart:     deps.Cart,
		session:  deps.Session,
		checkout: deps.Checkout,
		rates:    deps.Rates,
	}
}

// Register adds the API routes to mux under /api.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("GET /api/quote/{id}", h.quoteUSD)
	mux.HandleFunc("POST /api/catalog/reload", h.reloadCatalog)

	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("DELETE /api/cart", h.clearCart)
	mux.HandleFunc("POST /api/cart/items/{id}", h.addItem)
	mux.HandleFunc("POST /api/cart/items/{id}/decrement", h.decrementItem)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.removeItem)

	mux.HandleFunc("GET /api/session", h.getSession)
	mux.HandleFunc("POST /api/session/login", h.login)
	mux.HandleFunc("POST /api/session/logout", h.logout)
	mux.HandleFunc("POST /api/session/register", h.register)
	mux.HandleFunc("POST /api/favorites/{id}", h.toggleFavorite)
	mux.HandleFunc("GET /api/orders", h.listOrders)

	mux.HandleFunc("GET /api/checkout", h.quoteCheckout)
	mux.HandleFunc("POST /api/checkout", h.placeOrder)
}

// badRequest marks client input errors.
type badRequest struct {
	err error
}

func (e *badRequest) Error() string { return e.err.Error() }
func (e *badRequest) Unwrap() error { return e.err }

// upstreamError marks failures of a remote dependency.
type upstreamError struct {
	err error
}

func (e *upstreamError) Error() string { return e.err.Error() }
func (e *upstreamError) Unwrap() error { return e.err }

func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return 0, &badRequest{err: errors.Errorf("invalid id %q", r.PathValue("id"))}
	}
	return id, nil
}

// readFields decodes a flat JSON object of strings from the request body
// into fields. Unknown keys are ignored.
func readFields(r *http.Request, fields map[string]*string) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return &badRequest{err: errors.Wrap(err, "read body")}
	}
	err = jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		dst, ok := fields[key]
		if !ok {
			return d.Skip()
		}
		v, err := d.Str()
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		*dst = v
		return nil
	})
	if err != nil {
		return &badRequest{err: errors.Wrap(err, "decode body")}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func errorStatus(err error) int {
	var (
		bad      *badRequest
		invalid  *validate.Error
		upstream *upstreamError
	)
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.As(err, &invalid):
		return http.StatusUnprocessableEntity
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	case errors.Is(err, product.ErrNotFound), errors.Is(err, errNotInCart):
		return http.StatusNotFound
	case errors.Is(err, user.ErrInvalidCredentials), errors.Is(err, user.ErrLoginRequired):
		return http.StatusUnauthorized
	case errors.Is(err, user.ErrUserExists), errors.Is(err, order.ErrEmptyCart):
		return http.StatusConflict
	case errors.Is(err, session.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status and writes {"code","message","fields"}.
// Internal errors are logged and their message hidden.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		msg = "internal error"
	}

	var invalid *validate.Error
	errors.As(err, &invalid)

	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(msg)
		if invalid != nil {
			e.FieldStart("fields")
			e.ObjStart()
			for _, name := range invalid.Names() {
				e.FieldStart(name)
				e.Str(invalid.Fields[name])
			}
			e.ObjEnd()
		}
		e.ObjEnd()
	})
}
