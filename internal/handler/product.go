package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/Unknumb/SneakerStoreMobile/internal/domain/product"
)

// listProducts returns the filtered catalog. A q parameter replaces the
// current filter first.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	if q := r.URL.Query(); q.Has("q") {
		h.catalog.SetFilter(q.Get("q"))
	}
	products := h.catalog.Filtered()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		product.EncodeList(e, products)
	})
}

// getProduct selects and returns one product.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.catalog.Select(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		product.Encode(e, p)
	})
}

// quoteUSD converts a product price to US dollars at the current rate.
func (h *Handler) quoteUSD(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.catalog.SelectByID(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.rates == nil {
		writeError(w, r, &upstreamError{err: errors.New("exchange rates unavailable")})
		return
	}
	rate, err := h.rates.DollarRate(r.Context())
	if err != nil {
		writeError(w, r, &upstreamError{err: errors.Wrap(err, "dollar rate")})
		return
	}
	usd, err := product.ToUSD(p.Price, rate)
	if err != nil {
		writeError(w, r, &upstreamError{err: err})
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("id")
		e.Int(p.ID)
		e.FieldStart("clp")
		product.EncodeDecimal(e, p.Price)
		e.FieldStart("rate")
		product.EncodeDecimal(e, rate)
		e.FieldStart("usd")
		product.EncodeDecimal(e, usd)
		e.ObjEnd()
	})
}

// reloadCatalog loads the catalog from its source again and reconciles the
// cart with the new stock.
func (h *Handler) reloadCatalog(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Load(r.Context()); err != nil {
		writeError(w, r, &upstreamError{err: errors.Wrap(err, "reload catalog")})
		return
	}
	adjusted := h.cart.Reconcile(h.catalog.Products())
	st := h.catalog.Status()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("count")
		e.Int(st.Count)
		e.FieldStart("duplicates")
		e.Int(st.Duplicates)
		e.FieldStart("loadedAt")
		e.Str(st.At.UTC().Format(timeLayout))
		e.FieldStart("cartAdjusted")
		e.Int(adjusted)
		e.ObjEnd()
	})
}
