package product

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidRate is returned when a currency rate is zero or negative.
var ErrInvalidRate = errors.New("exchange rate must be positive")

// ToUSD converts a CLP amount using rate, the CLP value of one US dollar.
// The result is rounded to cents.
func ToUSD(clp, rate decimal.Decimal) (decimal.Decimal, error) {
	if !rate.IsPositive() {
		return decimal.Zero, ErrInvalidRate
	}
	return clp.Div(rate).Round(2), nil
}
