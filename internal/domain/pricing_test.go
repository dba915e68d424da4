package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var stdPolicy = PricingPolicy{TaxRateBps: 2000, ShippingFeeCents: 590, Currency: "EUR"}

func TestComputeTotals_EmptyCart(t *testing.T) {
	c := NewCart("s1")

	totals := stdPolicy.ComputeTotals(c)

	assert.Equal(t, Totals{}, totals)
}

func TestComputeTotals_Breakdown(t *testing.T) {
	c := NewCart("s1")
	c.AddProduct(ProductRef{ID: 1, Name: "gros gris", UnitPrice: 2450})
	c.AddProduct(ProductRef{ID: 1, Name: "gros gris", UnitPrice: 2450})
	c.AddProduct(ProductRef{ID: 2, Name: "petit gris", UnitPrice: 1200})

	totals := stdPolicy.ComputeTotals(c)

	// subtotal 2*2450 + 1200 = 6100; tax 20% = 1220
	assert.Equal(t, int64(6100), totals.ItemsPrice)
	assert.Equal(t, int64(1220), totals.TaxPrice)
	assert.Equal(t, int64(590), totals.ShippingPrice)
	assert.Equal(t, int64(7910), totals.TotalAmount)
}

func TestComputeTotals_TaxRoundsHalfUp(t *testing.T) {
	c := NewCart("s1")
	// 33 cents at 20% is 6.6 cents; rounds to 7.
	c.AddProduct(ProductRef{ID: 1, UnitPrice: 33})

	totals := stdPolicy.ComputeTotals(c)

	assert.Equal(t, int64(7), totals.TaxPrice)
}

func TestComputeTotals_ZeroTaxRate(t *testing.T) {
	c := NewCart("s1")
	c.AddProduct(ProductRef{ID: 1, UnitPrice: 1000})

	totals := PricingPolicy{TaxRateBps: 0, ShippingFeeCents: 0}.ComputeTotals(c)

	assert.Equal(t, int64(1000), totals.TotalAmount)
	assert.Equal(t, int64(0), totals.TaxPrice)
}

func TestFormatMinorUnits(t *testing.T) {
	assert.Equal(t, "19.99", FormatMinorUnits(1999))
	assert.Equal(t, "0.05", FormatMinorUnits(5))
	assert.Equal(t, "0.00", FormatMinorUnits(0))
	assert.Equal(t, "120.00", FormatMinorUnits(12000))
	assert.Equal(t, "-3.50", FormatMinorUnits(-350))
}
