package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Unknumb/SneakerStoreMobile/internal/domain/cart"
	"github.com/Unknumb/SneakerStoreMobile/internal/domain/product"
	"github.com/Unknumb/SneakerStoreMobile/internal/domain/user"
	"github.com/Unknumb/SneakerStoreMobile/internal/validate"
)

// ErrEmptyCart is returned when checking out an empty cart.
var ErrEmptyCart = errors.New("cart is empty")

// DefaultShippingCost is the flat shipping fee in CLP.
var DefaultShippingCost = decimal.NewFromInt(3500)

// ShippingForm is the delivery information collected at checkout.
type ShippingForm struct {
	Name    string `json:"name" validate:"notblank"`
	Phone   string `json:"phone" validate:"notblank"`
	RUT     string `json:"rut" validate:"notblank"`
	Address string `json:"address" validate:"notblank"`
	Region  string `json:"region" validate:"notblank"`
}

// Cart is the part of the cart store used by checkout.
type Cart interface {
	Snapshot() *cart.Snapshot
	Clear()
}

// Receipt is the result of a successful checkout.
type Receipt struct {
	Order    Order
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	// Recorded is false for guest checkouts, whose orders are not kept.
	Recorded bool
}

// Service places orders from the cart contents.
type Service struct {
	cart     Cart
	history  History
	ledger   Ledger
	shipping decimal.Decimal
	lg       *zap.Logger
	now      func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLedger additionally records every placed order in l.
func WithLedger(l Ledger) ServiceOption {
	return func(s *Service) { s.ledger = l }
}

// NewService creates a checkout Service. A zero shipping cost is allowed.
func NewService(c Cart, history History, shipping decimal.Decimal, lg *zap.Logger, opts ...ServiceOption) *Service {
	if lg == nil {
		lg = zap.NewNop()
	}
	s := &Service{
		cart:     c,
		history:  history,
		shipping: shipping,
		lg:       lg,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Quote returns the subtotal, shipping and total for the current cart.
func (s *Service) Quote() (subtotal, shipping, total decimal.Decimal) {
	subtotal = s.cart.Snapshot().Total()
	return subtotal, s.shipping, subtotal.Add(s.shipping)
}

// Place validates the form, builds an order from the cart, records it for
// the logged-in user and clears the cart.
func (s *Service) Place(ctx context.Context, form ShippingForm) (*Receipt, error) {
	if err := validate.Struct(form); err != nil {
		return nil, err
	}

	snap := s.cart.Snapshot()
	if snap.Empty() {
		return nil, ErrEmptyCart
	}

	lines := snap.Lines()
	items := make([]product.Product, len(lines))
	for i, l := range lines {
		items[i] = l.Product
	}

	subtotal := snap.Total()
	now := s.now()
	o := Order{
		ID:              uuid.NewString(),
		Items:           items,
		ShippingAddress: form.Address + ", " + form.Region,
		Total:           subtotal.Add(s.shipping),
		OrderDate:       now.Format(DateLayout),
	}

	username := s.history.Username()
	recorded := true
	if err := s.history.AddOrder(ctx, o); err != nil {
		if !errors.Is(err, user.ErrLoginRequired) {
			return nil, errors.Wrap(err, "record order")
		}
		recorded = false
		username = ""
	}
	if s.ledger != nil {
		err := s.ledger.Record(ctx, Record{
			Order:    o,
			Username: username,
			Subtotal: subtotal,
			Shipping: s.shipping,
			PlacedAt: now,
		})
		if err != nil {
			s.lg.Error("Ledger write failed", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	s.cart.Clear()

	s.lg.Info("Order placed",
		zap.String("order_id", o.ID),
		zap.Int("lines", len(items)),
		zap.Stringer("total", o.Total),
		zap.Bool("recorded", recorded),
	)
	return &Receipt{
		Order:    o,
		Subtotal: subtotal,
		Shipping: s.shipping,
		Recorded: recorded,
	}, nil
}
