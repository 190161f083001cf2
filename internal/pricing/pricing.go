// Package pricing computes display and sale prices for seats.  A
// seat's price is the showtime's base price multiplied by the
// surcharge rate of its seat type.  Decimal arithmetic keeps the
// multiplication exact before rounding back to cents.
package pricing

import (
	"github.com/shopspring/decimal"

	"cineseat/internal/model"
)

var rates = map[string]decimal.Decimal{
	model.SeatTypeStandard:   decimal.NewFromInt(1),
	model.SeatTypeVIP:        decimal.RequireFromString("1.5"),
	model.SeatTypeAccessible: decimal.RequireFromString("0.8"),
}

// SeatPriceCents returns the price in cents for a seat of the given
// type under the given base price.  Unknown seat types fall back to
// the standard rate.  Results are rounded half away from zero.
func SeatPriceCents(basePriceCents uint32, seatType string) uint32 {
	rate, ok := rates[seatType]
	if !ok {
		rate = rates[model.SeatTypeStandard]
	}
	p := decimal.NewFromInt(int64(basePriceCents)).Mul(rate).Round(0)
	return uint32(p.IntPart())
}
