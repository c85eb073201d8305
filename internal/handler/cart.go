package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/Unknumb/SneakerStoreMobile/internal/domain/cart"
	"github.com/Unknumb/SneakerStoreMobile/internal/domain/product"
)

const timeLayout = time.RFC3339

var errNotInCart = errors.New("product not in cart")

func encodeCart(e *jx.Encoder, snap *cart.Snapshot, changed bool) {
	e.ObjStart()
	e.FieldStart("lines")
	e.ArrStart()
	for _, l := range snap.Lines() {
		e.ObjStart()
		e.FieldStart("product")
		product.Encode(e, l.Product)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("subtotal")
		product.EncodeDecimal(e, l.Subtotal())
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("count")
	e.Int(snap.Count())
	e.FieldStart("total")
	product.EncodeDecimal(e, snap.Total())
	e.FieldStart("changed")
	e.Bool(changed)
	e.ObjEnd()
}

func (h *Handler) writeCart(w http.ResponseWriter, changed bool) {
	snap := h.cart.Snapshot()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeCart(e, snap, changed)
	})
}

func (h *Handler) getCart(w http.ResponseWriter, _ *http.Request) {
	h.writeCart(w, false)
}

func (h *Handler) clearCart(w http.ResponseWriter, _ *http.Request) {
	h.cart.Clear()
	h.writeCart(w, true)
}

// addItem adds one unit of a catalog product. At the stock limit the cart
// is returned unchanged with "changed": false.
func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
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
	h.writeCart(w, h.cart.Add(p))
}

func (h *Handler) decrementItem(w http.ResponseWriter, r *http.Request) {
	h.changeLine(w, r, h.cart.Decrement)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	h.changeLine(w, r, h.cart.RemoveLine)
}

// changeLine applies op to the line with the path id. Lines are matched by
// id, so products that left the catalog can still be removed.
func (h *Handler) changeLine(w http.ResponseWriter, r *http.Request, op func(product.Product) bool) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !op(product.Product{ID: id}) {
		writeError(w, r, errNotInCart)
		return
	}
	h.writeCart(w, true)
}
