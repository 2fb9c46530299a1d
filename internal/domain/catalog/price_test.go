package catalog

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPrice(t *testing.T, list string) *Price {
	t.Helper()
	p, err := NewPrice(uuid.New(), uuid.New(), decimal.RequireFromString(list))
	require.NoError(t, err)
	return p
}

func TestPriceSpecialWindow(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	special := decimal.RequireFromString("79.90")
	start := now.AddDate(0, 0, -1)
	end := now.AddDate(0, 0, 1)

	t.Run("active inside window", func(t *testing.T) {
		p := newTestPrice(t, "100.00")
		p.SpecialPrice = &special
		p.SpecialStart = &start
		p.SpecialEnd = &end

		assert.True(t, p.IsSpecialActive(now))
		assert.Equal(t, "79.90", p.CurrentPrice(now).StringFixed(2))
	})

	t.Run("inclusive bounds", func(t *testing.T) {
		p := newTestPrice(t, "100.00")
		p.SpecialPrice = &special
		p.SpecialStart = &start
		p.SpecialEnd = &end

		assert.True(t, p.IsSpecialActive(start))
		assert.True(t, p.IsSpecialActive(end))
	})

	t.Run("outside window list price wins", func(t *testing.T) {
		p := newTestPrice(t, "100.00")
		p.SpecialPrice = &special
		p.SpecialStart = &start
		p.SpecialEnd = &end

		after := end.Add(time.Second)
		assert.False(t, p.IsSpecialActive(after))
		assert.Equal(t, "100.00", p.CurrentPrice(after).StringFixed(2))
	})

	t.Run("missing bounds never active", func(t *testing.T) {
		p := newTestPrice(t, "100.00")
		p.SpecialPrice = &special
		p.SpecialStart = &start

		assert.False(t, p.IsSpecialActive(now))
	})

	t.Run("missing special price never active", func(t *testing.T) {
		p := newTestPrice(t, "100.00")
		p.SpecialStart = &start
		p.SpecialEnd = &end

		assert.False(t, p.IsSpecialActive(now))
	})
}

func TestPriceApplySpecialPercentage(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		list string
		pct  string
		want string
	}{
		{"exact step", "100.00", "10", "90.00"},
		{"half percent", "100.00", "12.5", "87.50"},
		{"rounds up to step", "99.99", "10", "90.00"},
		{"odd value rounds up", "120.00", "12.5", "105.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPrice(t, tt.list)
			require.NoError(t, p.ApplySpecialPercentage(decimal.RequireFromString(tt.pct), now))
			require.NotNil(t, p.SpecialPrice)
			assert.Equal(t, tt.want, p.SpecialPrice.StringFixed(2))
		})
	}

	t.Run("default window runs to end of next month", func(t *testing.T) {
		p := newTestPrice(t, "100.00")
		require.NoError(t, p.ApplySpecialPercentage(decimal.NewFromInt(10), now))

		require.NotNil(t, p.SpecialStart)
		require.NotNil(t, p.SpecialEnd)
		assert.Equal(t, now, *p.SpecialStart)
		assert.Equal(t, time.September, p.SpecialEnd.Month())
		assert.Equal(t, 30, p.SpecialEnd.Day())
		assert.True(t, p.SpecialEnd.Before(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("existing window is kept", func(t *testing.T) {
		p := newTestPrice(t, "100.00")
		start := now.AddDate(0, 0, -3)
		end := now.AddDate(0, 0, 3)
		p.SpecialStart = &start
		p.SpecialEnd = &end

		require.NoError(t, p.ApplySpecialPercentage(decimal.NewFromInt(10), now))
		assert.Equal(t, start, *p.SpecialStart)
		assert.Equal(t, end, *p.SpecialEnd)
	})

	t.Run("rejects out-of-range percentages", func(t *testing.T) {
		p := newTestPrice(t, "100.00")
		assert.Error(t, p.ApplySpecialPercentage(decimal.Zero, now))
		assert.Error(t, p.ApplySpecialPercentage(decimal.NewFromInt(100), now))
		assert.Error(t, p.ApplySpecialPercentage(decimal.NewFromInt(-5), now))
	})

	t.Run("clearing removes price and window", func(t *testing.T) {
		p := newTestPrice(t, "100.00")
		require.NoError(t, p.ApplySpecialPercentage(decimal.NewFromInt(10), now))

		p.ClearSpecialPercentage()
		assert.Nil(t, p.SpecialPercentage)
		assert.Nil(t, p.SpecialPrice)
		assert.Nil(t, p.SpecialStart)
		assert.Nil(t, p.SpecialEnd)
	})
}

func TestPriceDeriveChannelPrice(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	channel, err := NewSalesChannel("AT Shop", "chan-at", decimal.RequireFromString("1.2"))
	require.NoError(t, err)

	t.Run("scales list and rebate price", func(t *testing.T) {
		p := newTestPrice(t, "10.00")
		p.RebateQuantity = 10
		p.RebatePrice = decimal.RequireFromString("9.99")

		derived, err := p.DeriveChannelPrice(channel)
		require.NoError(t, err)
		assert.Equal(t, "12.00", derived.ListPrice.StringFixed(2))
		assert.Equal(t, 10, derived.RebateQuantity)
		assert.Equal(t, "12.00", derived.RebatePrice.StringFixed(2))
		assert.Equal(t, channel.ID, derived.SalesChannelID)
	})

	t.Run("carries the special window unchanged", func(t *testing.T) {
		p := newTestPrice(t, "10.00")
		require.NoError(t, p.ApplySpecialPercentage(decimal.NewFromInt(10), now))

		derived, err := p.DeriveChannelPrice(channel)
		require.NoError(t, err)
		require.NotNil(t, derived.SpecialPrice)
		assert.Equal(t, "10.80", derived.SpecialPrice.StringFixed(2))
		assert.Equal(t, p.SpecialStart, derived.SpecialStart)
		assert.Equal(t, p.SpecialEnd, derived.SpecialEnd)
	})

	t.Run("no special price on source", func(t *testing.T) {
		p := newTestPrice(t, "10.00")
		derived, err := p.DeriveChannelPrice(channel)
		require.NoError(t, err)
		assert.Nil(t, derived.SpecialPrice)
	})
}

func TestPriceGross(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	t.Run("applies product tax rate", func(t *testing.T) {
		product, err := NewProduct("900101", "Testartikel")
		require.NoError(t, err)
		product.TaxRate = decimal.NewFromInt(19)

		p := newTestPrice(t, "10.00")
		assert.Equal(t, "11.90", p.CurrentGrossPrice(now, product).StringFixed(2))
	})

	t.Run("no tax rate means net equals gross", func(t *testing.T) {
		product, err := NewProduct("900101", "Testartikel")
		require.NoError(t, err)

		p := newTestPrice(t, "10.00")
		assert.Equal(t, "10.00", p.CurrentGrossPrice(now, product).StringFixed(2))
	})
}

func TestRoundUpToStep(t *testing.T) {
	step := decimal.RequireFromString("0.05")
	tests := []struct {
		in   string
		want string
	}{
		{"89.991", "90.00"},
		{"87.50", "87.50"},
		{"10.01", "10.05"},
		{"10.05", "10.05"},
		{"0.01", "0.05"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := RoundUpToStep(decimal.RequireFromString(tt.in), step)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestStorageEffectiveStock(t *testing.T) {
	product, err := NewProduct("900101", "Testartikel")
	require.NoError(t, err)

	product.SetStock(42, "Lager 1")
	assert.Equal(t, 42, product.Storage.EffectiveStock())

	override := 5
	product.SetVirtualStock(&override)
	assert.Equal(t, 5, product.Storage.EffectiveStock())

	product.SetVirtualStock(nil)
	assert.Equal(t, 42, product.Storage.EffectiveStock())
}
