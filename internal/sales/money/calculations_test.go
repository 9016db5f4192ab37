package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineTotals(t *testing.T) {
	discount, tax, total := LineTotals(2, 150, 10, 11)

	assert.Equal(t, 30.0, discount)
	assert.Equal(t, 29.7, tax)
	assert.Equal(t, 299.7, total)
}

func TestLineTotalsNoDiscountNoTax(t *testing.T) {
	discount, tax, total := LineTotals(3, 19.99, 0, 0)

	assert.Equal(t, 0.0, discount)
	assert.Equal(t, 0.0, tax)
	assert.Equal(t, 59.97, total)
}

func TestLineTotalsRounding(t *testing.T) {
	// 7 * 9.99 = 69.93; 5% discount = 3.4965 rounds to 3.50.
	discount, _, _ := LineTotals(7, 9.99, 5, 0)
	assert.Equal(t, 3.5, discount)
}

func TestSumAvoidsFloatDrift(t *testing.T) {
	assert.Equal(t, 0.3, Sum(0.1, 0.1, 0.1))
}
