package party

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCustomer(t *testing.T) {
	t.Run("valid with legacy number", func(t *testing.T) {
		c, err := NewCustomer("10042", "", "Muster GmbH")
		require.NoError(t, err)
		assert.Equal(t, "10042", c.ErpNr)
		assert.True(t, c.IsGross)
		assert.NotEqual(t, "", c.ID.String())
	})

	t.Run("valid with webshop id only", func(t *testing.T) {
		c, err := NewCustomer("", "b1a6c7f0", "Erika Beispiel")
		require.NoError(t, err)
		assert.False(t, c.HasErpNr())
	})

	t.Run("requires at least one system key", func(t *testing.T) {
		_, err := NewCustomer("", "", "Niemand")
		assert.Error(t, err)
	})

	t.Run("requires a name", func(t *testing.T) {
		_, err := NewCustomer("10042", "", "  ")
		assert.Error(t, err)
	})
}

func TestCustomerAssignErpNr(t *testing.T) {
	c, err := NewCustomer("", "b1a6c7f0", "Erika Beispiel")
	require.NoError(t, err)

	t.Run("first assignment", func(t *testing.T) {
		require.NoError(t, c.AssignErpNr("10050"))
		assert.Equal(t, "10050", c.ErpNr)
		assert.True(t, c.HasErpNr())
	})

	t.Run("same number is idempotent", func(t *testing.T) {
		assert.NoError(t, c.AssignErpNr("10050"))
	})

	t.Run("rebinding to a different number is refused", func(t *testing.T) {
		assert.Error(t, c.AssignErpNr("10051"))
	})

	t.Run("empty number is refused", func(t *testing.T) {
		assert.Error(t, c.AssignErpNr("  "))
	})
}

func TestCustomerDefaultAddresses(t *testing.T) {
	c, err := NewCustomer("10042", "", "Muster GmbH")
	require.NoError(t, err)

	billing, errB := NewAddress(c.ID, "Rechnungsweg 1", "96047", "Bamberg", "de")
	require.NoError(t, errB)
	billing.SetRoles(false, true)
	shipping, errS := NewAddress(c.ID, "Lieferstr. 2", "95028", "Hof", "DE")
	require.NoError(t, errS)
	shipping.SetRoles(true, false)
	c.Addresses = []Address{*billing, *shipping}

	require.NotNil(t, c.BillingAddress())
	assert.Equal(t, "Rechnungsweg 1", c.BillingAddress().Street)
	require.NotNil(t, c.ShippingAddress())
	assert.Equal(t, "Lieferstr. 2", c.ShippingAddress().Street)
	assert.Equal(t, "DE", c.BillingAddress().CountryCode)
}

func TestResolveTaxCategory(t *testing.T) {
	tests := []struct {
		name    string
		country string
		vatID   string
		want    int
	}{
		{"domestic", "DE", "", TaxCategoryDomestic},
		{"domestic with vat id", "DE", "DE812526315", TaxCategoryDomestic},
		{"swiss", "CH", "", TaxCategorySwiss},
		{"swiss lowercase", "ch", "CHE-123", TaxCategorySwiss},
		{"eu consumer taxed domestically", "AT", "", TaxCategoryDomestic},
		{"eu business is intra-community", "AT", "ATU12345678", TaxCategoryExport},
		{"third country", "US", "", TaxCategoryExport},
		{"third country with vat id", "GB", "GB123456789", TaxCategoryExport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveTaxCategory(tt.country, tt.vatID))
		})
	}
}
