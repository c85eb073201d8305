// Package cart holds the quantity-per-product mapping for the active session.
//
// Every mutation builds a new immutable snapshot and swaps it in, so readers
// never block and never observe a partially applied change.
package cart

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Unknumb/SneakerStoreMobile/internal/domain/product"
)

// Line is a product snapshot staged for purchase. Quantity is always >= 1.
type Line struct {
	Product  product.Product
	Quantity int
}

// Subtotal is the line's unit price times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Snapshot is an immutable view of the cart. Lines keep insertion order.
type Snapshot struct {
	lines []Line
}

// Lines returns a deep copy of the cart lines.
func (s *Snapshot) Lines() []Line {
	lines := make([]Line, len(s.lines))
	for i, l := range s.lines {
		lines[i] = Line{Product: l.Product.Clone(), Quantity: l.Quantity}
	}
	return lines
}

// Quantity returns the quantity of the product with id, or 0.
func (s *Snapshot) Quantity(id int) int {
	if i := s.index(id); i >= 0 {
		return s.lines[i].Quantity
	}
	return 0
}

// Count is the total number of units across all lines.
func (s *Snapshot) Count() int {
	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// Total is the sum of price times quantity over all lines.
func (s *Snapshot) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Empty reports whether the cart has no lines.
func (s *Snapshot) Empty() bool {
	return len(s.lines) == 0
}

func (s *Snapshot) index(id int) int {
	return slices.IndexFunc(s.lines, func(l Line) bool { return l.Product.ID == id })
}

// Option configures a Cart.
type Option func(*Cart)

// WithoutStockLimit disables capping quantities at product stock.
func WithoutStockLimit() Option {
	return func(c *Cart) { c.stockAware = false }
}

// WithLogger sets the logger used for rejected mutations.
func WithLogger(lg *zap.Logger) Option {
	return func(c *Cart) { c.lg = lg }
}

// Cart is the cart store. Lines are keyed by product id and hold the most
// recent product snapshot passed to Add or Reconcile.
type Cart struct {
	// mu serializes writers. Readers only load snap.
	mu         sync.Mutex
	snap       atomic.Pointer[Snapshot]
	stockAware bool
	lg         *zap.Logger
}

// New returns an empty, stock-aware cart.
func New(opts ...Option) *Cart {
	c := &Cart{stockAware: true, lg: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	c.snap.Store(&Snapshot{})
	return c
}

// Snapshot returns the current cart state.
func (c *Cart) Snapshot() *Snapshot {
	return c.snap.Load()
}

// Total is shorthand for Snapshot().Total().
func (c *Cart) Total() decimal.Decimal {
	return c.Snapshot().Total()
}

// Add increments the quantity of p by one and refreshes the line's product
// snapshot. When the cart is stock-aware and the line is already at p.Stock,
// Add returns false; a line above p.Stock (stock dropped since it was added)
// is lowered to p.Stock, or removed when p is out of stock.
func (c *Cart) Add(p product.Product) bool {
	p = p.Clone()
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.snap.Load()
	lines := slices.Clone(cur.lines)
	i := cur.index(p.ID)

	qty := 0
	if i >= 0 {
		qty = lines[i].Quantity
	}
	if c.stockAware && qty >= p.Stock {
		c.lg.Debug("Add rejected at stock limit",
			zap.Int("product_id", p.ID),
			zap.Int("stock", p.Stock),
		)
		if i >= 0 {
			c.snap.Store(&Snapshot{lines: clampLine(lines, i, p)})
		}
		return false
	}

	if i >= 0 {
		lines[i] = Line{Product: p, Quantity: qty + 1}
	} else {
		lines = append(lines, Line{Product: p, Quantity: 1})
	}
	c.snap.Store(&Snapshot{lines: lines})
	return true
}

// Reconcile refreshes lines from a new catalog listing. Each line whose
// product is listed takes the listed snapshot and is capped at its stock;
// out-of-stock lines are removed. Lines for unlisted products are kept. It
// returns the number of lines whose quantity changed.
func (c *Cart) Reconcile(products []product.Product) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.snap.Load()
	if len(cur.lines) == 0 {
		return 0
	}
	byID := make(map[int]product.Product, len(products))
	for _, p := range products {
		if _, ok := byID[p.ID]; !ok {
			byID[p.ID] = p
		}
	}

	lines := slices.Clone(cur.lines)
	changed := 0
	for i := len(lines) - 1; i >= 0; i-- {
		p, ok := byID[lines[i].Product.ID]
		if !ok {
			continue
		}
		p = p.Clone()
		qty := lines[i].Quantity
		if c.stockAware && qty > p.Stock {
			changed++
			c.lg.Info("Cart line capped at new stock",
				zap.Int("product_id", p.ID),
				zap.Int("quantity", qty),
				zap.Int("stock", p.Stock),
			)
			lines = clampLine(lines, i, p)
			continue
		}
		lines[i].Product = p
	}
	c.snap.Store(&Snapshot{lines: lines})
	return changed
}

// clampLine sets line i to p capped at p.Stock, deleting it at zero.
func clampLine(lines []Line, i int, p product.Product) []Line {
	if p.Stock <= 0 {
		return slices.Delete(lines, i, i+1)
	}
	lines[i] = Line{Product: p, Quantity: min(lines[i].Quantity, p.Stock)}
	return lines
}

// Decrement lowers the quantity of p by one. A line at quantity 1 is
// removed. It returns false when p is not in the cart.
func (c *Cart) Decrement(p product.Product) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.snap.Load()
	i := cur.index(p.ID)
	if i < 0 {
		return false
	}

	lines := slices.Clone(cur.lines)
	if lines[i].Quantity <= 1 {
		lines = slices.Delete(lines, i, i+1)
	} else {
		lines[i].Quantity--
	}
	c.snap.Store(&Snapshot{lines: lines})
	return true
}

// RemoveLine deletes the line for p regardless of quantity.
func (c *Cart) RemoveLine(p product.Product) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.snap.Load()
	i := cur.index(p.ID)
	if i < 0 {
		return false
	}
	lines := slices.Delete(slices.Clone(cur.lines), i, i+1)
	c.snap.Store(&Snapshot{lines: lines})
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snap.Store(&Snapshot{})
}
