package sneakerapi

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/Unknumb/SneakerStoreMobile/internal/domain/product"
)

const (
	// DefaultRating is assigned to every mapped product; the backend has no
	// ratings.
	DefaultRating float32 = 4.5
	// NoDescription is used when a record has no color to describe it.
	NoDescription = "Sin descripción"
	// NoColor is used when a record has no color.
	NoColor = "No especificado"
)

// Sneaker is a product record as served by the sneaker backend. Pointer
// fields are optional.
type Sneaker struct {
	ID     *int64
	Marca  string
	Modelo string
	Talla  *float64
	Tallas []float64
	Color  *string
	Precio float64
	Stock  int
	Image  *string
}

// ToProduct maps a backend record to a catalog product.
func ToProduct(s Sneaker) product.Product {
	var sizes []int
	switch {
	case len(s.Tallas) > 0:
		sizes = make([]int, len(s.Tallas))
		for i, t := range s.Tallas {
			sizes[i] = int(t)
		}
	case s.Talla != nil:
		sizes = []int{int(*s.Talla)}
	default:
		sizes = []int{}
	}

	p := product.Product{
		Name:        s.Marca + " " + s.Modelo,
		Price:       decimal.NewFromFloat(s.Precio),
		Description: NoDescription,
		Sizes:       sizes,
		Rating:      DefaultRating,
		Reviews:     []product.Review{},
		Stock:       s.Stock,
		Color:       NoColor,
	}
	if s.ID != nil {
		p.ID = int(*s.ID)
	}
	if s.Image != nil {
		p.Image = *s.Image
	}
	if s.Color != nil {
		p.Description = *s.Color
		p.Color = *s.Color
	}
	return p
}

// ToProducts maps a list of records.
func ToProducts(records []Sneaker) []product.Product {
	products := make([]product.Product, len(records))
	for i, s := range records {
		products[i] = ToProduct(s)
	}
	return products
}

// DecodeSneaker reads one backend record. Null and unknown fields are skipped.
func DecodeSneaker(d *jx.Decoder) (Sneaker, error) {
	var s Sneaker
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		var err error
		switch key {
		case "id":
			var v int64
			v, err = d.Int64()
			s.ID = &v
		case "marca":
			s.Marca, err = d.Str()
		case "modelo":
			s.Modelo, err = d.Str()
		case "talla":
			var v float64
			v, err = d.Float64()
			s.Talla = &v
		case "tallas":
			err = d.Arr(func(d *jx.Decoder) error {
				v, err := d.Float64()
				if err != nil {
					return err
				}
				s.Tallas = append(s.Tallas, v)
				return nil
			})
		case "color":
			var v string
			v, err = d.Str()
			s.Color = &v
		case "precio":
			s.Precio, err = d.Float64()
		case "stock":
			s.Stock, err = d.Int()
		case "image":
			var v string
			v, err = d.Str()
			s.Image = &v
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "field %q", key)
	})
	if err != nil {
		return Sneaker{}, errors.Wrap(err, "decode sneaker")
	}
	return s, nil
}

// DecodeSneakers reads a JSON array of backend records.
func DecodeSneakers(d *jx.Decoder) ([]Sneaker, error) {
	var out []Sneaker
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := DecodeSneaker(d)
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
