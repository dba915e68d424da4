package domain

import "fmt"

// PricingPolicy holds the configurable parts of price computation. Tax rate
// is in basis points (2000 = 20%) so the arithmetic stays integral.
type PricingPolicy struct {
	TaxRateBps       int64
	ShippingFeeCents int64
	Currency         string
}

// Totals is the derived price breakdown of a cart, all in minor units.
type Totals struct {
	ItemsPrice    int64 `json:"items_price"`
	TaxPrice      int64 `json:"tax_price"`
	ShippingPrice int64 `json:"shipping_price"`
	TotalAmount   int64 `json:"total_amount"`
}

// ComputeTotals derives the price breakdown for a cart under the policy.
// Tax is rounded half-up at the basis-point division. An empty cart still
// carries the shipping fee in TotalAmount only if it has items; with no
// items all components are zero.
func (p PricingPolicy) ComputeTotals(c *Cart) Totals {
	subtotal := c.Subtotal()
	if subtotal == 0 && len(c.Lines) == 0 {
		return Totals{}
	}

	tax := (subtotal*p.TaxRateBps + 5000) / 10000

	return Totals{
		ItemsPrice:    subtotal,
		TaxPrice:      tax,
		ShippingPrice: p.ShippingFeeCents,
		TotalAmount:   subtotal + tax + p.ShippingFeeCents,
	}
}

// FormatMinorUnits renders an amount of minor units as a fixed two-decimal
// string, e.g. 1999 -> "19.99".
func FormatMinorUnits(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}
