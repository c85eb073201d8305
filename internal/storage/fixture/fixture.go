// Package fixture provides catalog sources that do not need the remote
// backend: the built-in demo catalog, JSON files and the key-value store.
package fixture

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Unknumb/SneakerStoreMobile/internal/domain/product"
)

const defaultStock = 10

var allSizes = []int{40, 41, 42, 43, 44, 45}

// Products returns the built-in demo catalog. Each call returns fresh values.
func Products() []product.Product {
	mk := func(id int, name string, price int64, image, description string) product.Product {
		return product.Product{
			ID:          id,
			Name:        name,
			Price:       decimal.NewFromInt(price),
			Image:       image,
			Description: description,
			Sizes:       append([]int(nil), allSizes...),
			Rating:      4.5,
			Reviews:     []product.Review{},
			Stock:       defaultStock,
		}
	}
	return []product.Product{
		mk(1, "Nike Air Max 95 Corteiz Gutta Green", 119990,
			"https://encrypted-tbn0.gstatic.com/images?q=tbn:ANd9GcRQvUcbUNdg_8frDdK7PdSqNEfNSvk9wWDot3DtrWeCXynh3lCy1tPobG6HBZlFNTQlI7E&usqp=CAU",
			"Nike Air Max 95 edición Corteiz Gutta Green."),
		mk(2, "Jordan 4 Retro Black Cat", 139990,
			"https://dripchileno.cl/wp-content/uploads/2023/09/Diseno-sin-titulo-8.jpg",
			"Modelo clásico Jordan 4 Retro."),
		mk(3, "adidas Yeezy Desert BootOil", 189990,
			"https://encrypted-tbn0.gstatic.com/images?q=tbn:ANd9GcTfd0hDelatoQPg_oZaKK3_0AZiketZiF19Ps0v5AyrfYDupxswBKlvoFb5Q-Ad0mUtWs0&usqp=CAU",
			"Yeezy Desert BootOil edición Adidas."),
		mk(4, "Nike Air Max Plus Lisboa", 149990,
			"https://www.summersnkrs.com/cdn/shop/files/Nike-Air-Max-Plus-Lisboa-2.png?v=1760021442",
			"Edición especial Lisboa de las Air Max Plus."),
		mk(5, "Nike Shox R4", 129990,
			"https://static.nike.com/a/images/w_1280,q_auto,f_auto/7885e6d8-4906-4268-b3fc-759671cf1d59/shox-r4-racer-blue-and-metallic-silver-hj7303-445-release-date.jpg",
			"Shox R4 modelo Racer Blue."),
		mk(6, "NOCTA x Nike Hot Step 2", 169990,
			"https://highxtar.com/wp-content/uploads/2024/03/thumb-nike-nocta-hot-step-2-1440x1080.jpg",
			"Colaboración NOCTA x Nike en su segunda edición."),
	}
}

// Builtin is a product.Source over the demo catalog.
var Builtin = product.SourceFunc(func(context.Context) ([]product.Product, error) {
	return Products(), nil
})
