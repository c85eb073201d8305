package product

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a sneaker available for purchase. Values are never mutated in
// place; use the With* helpers to derive a changed copy.
type Product struct {
	ID          int
	Name        string
	Price       decimal.Decimal
	Image       string
	Description string
	Sizes       []int
	Rating      float32
	Reviews     []Review
	Stock       int
	Color       string
}

// Review is a customer review owned by a single product.
type Review struct {
	Author  string
	Rating  float32
	Comment string
}

// Equal reports whether p and other have identical fields.
func (p Product) Equal(other Product) bool {
	return p.ID == other.ID &&
		p.Name == other.Name &&
		p.Price.Equal(other.Price) &&
		p.Image == other.Image &&
		p.Description == other.Description &&
		slices.Equal(p.Sizes, other.Sizes) &&
		p.Rating == other.Rating &&
		slices.Equal(p.Reviews, other.Reviews) &&
		p.Stock == other.Stock &&
		p.Color == other.Color
}

// Clone returns a copy of p that shares no slices with it.
func (p Product) Clone() Product {
	p.Sizes = slices.Clone(p.Sizes)
	p.Reviews = slices.Clone(p.Reviews)
	return p
}

// CloneList deep-copies products.
func CloneList(products []Product) []Product {
	if products == nil {
		return nil
	}
	out := make([]Product, len(products))
	for i, p := range products {
		out[i] = p.Clone()
	}
	return out
}

// WithStock returns a copy of p with the given stock.
func (p Product) WithStock(stock int) Product {
	p = p.Clone()
	p.Stock = max(stock, 0)
	return p
}

// WithPrice returns a copy of p with the given price.
func (p Product) WithPrice(price decimal.Decimal) Product {
	p = p.Clone()
	p.Price = price
	return p
}

// Source loads a full catalog snapshot.
type Source interface {
	Products(ctx context.Context) ([]Product, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Product, error)

// Products implements Source.
func (f SourceFunc) Products(ctx context.Context) ([]Product, error) {
	return f(ctx)
}
