package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/Unknumb/SneakerStoreMobile/internal/domain/order"
	"github.com/Unknumb/SneakerStoreMobile/internal/domain/product"
)

func encodeAmounts(e *jx.Encoder, subtotal, shipping decimal.Decimal) {
	e.FieldStart("subtotal")
	product.EncodeDecimal(e, subtotal)
	e.FieldStart("shipping")
	product.EncodeDecimal(e, shipping)
	e.FieldStart("total")
	product.EncodeDecimal(e, subtotal.Add(shipping))
}

func (h *Handler) quoteCheckout(w http.ResponseWriter, _ *http.Request) {
	subtotal, shipping, _ := h.checkout.Quote()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		encodeAmounts(e, subtotal, shipping)
		e.ObjEnd()
	})
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var form order.ShippingForm
	if err := readFields(r, map[string]*string{
		"name":    &form.Name,
		"phone":   &form.Phone,
		"rut":     &form.RUT,
		"address": &form.Address,
		"region":  &form.Region,
	}); err != nil {
		writeError(w, r, err)
		return
	}
	receipt, err := h.checkout.Place(r.Context(), form)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("order")
		order.Encode(e, receipt.Order)
		encodeAmounts(e, receipt.Subtotal, receipt.Shipping)
		e.FieldStart("recorded")
		e.Bool(receipt.Recorded)
		e.ObjEnd()
	})
}
