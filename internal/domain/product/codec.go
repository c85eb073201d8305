package product

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Encode writes p as a JSON object.
func Encode(e *jx.Encoder, p Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	EncodeDecimal(e, p.Price)
	e.FieldStart("image")
	e.Str(p.Image)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("sizes")
	e.ArrStart()
	for _, s := range p.Sizes {
		e.Int(s)
	}
	e.ArrEnd()
	e.FieldStart("rating")
	e.Float32(p.Rating)
	e.FieldStart("reviews")
	e.ArrStart()
	for _, r := range p.Reviews {
		e.ObjStart()
		e.FieldStart("author")
		e.Str(r.Author)
		e.FieldStart("rating")
		e.Float32(r.Rating)
		e.FieldStart("comment")
		e.Str(r.Comment)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("color")
	e.Str(p.Color)
	e.ObjEnd()
}

// EncodeList writes products as a JSON array.
func EncodeList(e *jx.Encoder, products []Product) {
	e.ArrStart()
	for _, p := range products {
		Encode(e, p)
	}
	e.ArrEnd()
}

// Decode reads a product object written by Encode. Unknown fields are skipped.
func Decode(d *jx.Decoder) (Product, error) {
	var p Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Int()
		case "name":
			p.Name, err = d.Str()
		case "price":
			p.Price, err = DecodeDecimal(d)
		case "image":
			p.Image, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "sizes":
			err = d.Arr(func(d *jx.Decoder) error {
				v, err := d.Int()
				if err != nil {
					return err
				}
				p.Sizes = append(p.Sizes, v)
				return nil
			})
		case "rating":
			p.Rating, err = d.Float32()
		case "reviews":
			err = d.Arr(func(d *jx.Decoder) error {
				r, err := decodeReview(d)
				if err != nil {
					return err
				}
				p.Reviews = append(p.Reviews, r)
				return nil
			})
		case "stock":
			p.Stock, err = d.Int()
		case "color":
			p.Color, err = d.Str()
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "field %q", key)
	})
	if err != nil {
		return Product{}, errors.Wrap(err, "decode product")
	}
	return p, nil
}

// DecodeList reads a JSON array of products.
func DecodeList(d *jx.Decoder) ([]Product, error) {
	var products []Product
	err := d.Arr(func(d *jx.Decoder) error {
		p, err := Decode(d)
		if err != nil {
			return err
		}
		products = append(products, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

func decodeReview(d *jx.Decoder) (Review, error) {
	var r Review
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "author":
			r.Author, err = d.Str()
		case "rating":
			r.Rating, err = d.Float32()
		case "comment":
			r.Comment, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return r, err
}

// EncodeDecimal writes v as a bare JSON number.
func EncodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Raw([]byte(v.String()))
}

// DecodeDecimal reads a JSON number or numeric string into a decimal.
func DecodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(n.String())
}
