package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/Unknumb/SneakerStoreMobile/internal/domain/product"
)

// DateLayout is the layout of Order.OrderDate (dd/MM/yyyy).
const DateLayout = "02/01/2006"

// Order is a placed order. Items are product snapshots taken at checkout.
type Order struct {
	ID              string
	Items           []product.Product
	ShippingAddress string
	Total           decimal.Decimal
	OrderDate       string
}

// History records orders for the logged-in user.
type History interface {
	// AddOrder returns user.ErrLoginRequired when nobody is logged in.
	AddOrder(ctx context.Context, o Order) error
	// Username is the logged-in user, or "" for a guest.
	Username() string
}

// Record is a placed order with its price breakdown, as kept by a Ledger.
type Record struct {
	Order Order
	// Username is empty for guest checkouts.
	Username string
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	PlacedAt time.Time
}

// Ledger keeps every placed order, guest checkouts included.
type Ledger interface {
	Record(ctx context.Context, r Record) error
}

// Encode writes o as a JSON object.
func Encode(e *jx.Encoder, o Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("items")
	product.EncodeList(e, o.Items)
	e.FieldStart("shippingAddress")
	e.Str(o.ShippingAddress)
	e.FieldStart("total")
	product.EncodeDecimal(e, o.Total)
	e.FieldStart("orderDate")
	e.Str(o.OrderDate)
	e.ObjEnd()
}

// Marshal returns the JSON encoding of o.
func Marshal(o Order) []byte {
	e := &jx.Encoder{}
	Encode(e, o)
	return e.Bytes()
}

// Decode reads an order object written by Encode.
func Decode(d *jx.Decoder) (Order, error) {
	var o Order
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			o.ID, err = d.Str()
		case "items":
			o.Items, err = product.DecodeList(d)
		case "shippingAddress":
			o.ShippingAddress, err = d.Str()
		case "total":
			o.Total, err = product.DecodeDecimal(d)
		case "orderDate":
			o.OrderDate, err = d.Str()
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "field %q", key)
	})
	if err != nil {
		return Order{}, errors.Wrap(err, "decode order")
	}
	return o, nil
}

// EncodeList writes orders as a JSON array.
func EncodeList(e *jx.Encoder, orders []Order) {
	e.ArrStart()
	for _, o := range orders {
		Encode(e, o)
	}
	e.ArrEnd()
}

// UnmarshalList parses a JSON array of orders.
func UnmarshalList(data []byte) ([]Order, error) {
	var orders []Order
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		o, err := Decode(d)
		if err != nil {
			return err
		}
		orders = append(orders, o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}
