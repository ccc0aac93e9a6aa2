package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseProductMetadata_Defaults(t *testing.T) {
	meta := ParseProductMetadata(map[string]string{})

	assert.Empty(t, meta.ProductID)
	assert.Equal(t, "Unknown", meta.Brand)
	assert.True(t, meta.DiscountRate.IsZero())
}

func TestParseProductMetadata_Values(t *testing.T) {
	meta := ParseProductMetadata(map[string]string{
		"productId":    "p1",
		"brand":        "TextileCom",
		"discountRate": "12.5",
	})

	assert.Equal(t, "p1", meta.ProductID)
	assert.Equal(t, "TextileCom", meta.Brand)
	assert.True(t, decimal.RequireFromString("12.5").Equal(meta.DiscountRate))
}

func TestParseProductMetadata_BadDiscountDefaultsToZero(t *testing.T) {
	for _, raw := range []string{"abc", "-5", ""} {
		meta := ParseProductMetadata(map[string]string{"discountRate": raw})
		assert.True(t, meta.DiscountRate.IsZero(), "discountRate %q", raw)
	}
}

func TestParseTaxRate(t *testing.T) {
	assert.Equal(t, "1.2", ParseTaxRate(map[string]string{"taxRate": "1.2"}))
	assert.Equal(t, "1.0", ParseTaxRate(map[string]string{}))
	// Garbage passes through; the pricing engine degrades it to zero tax.
	assert.Equal(t, "bogus", ParseTaxRate(map[string]string{"taxRate": "bogus"}))
}
