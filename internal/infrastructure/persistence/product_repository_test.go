package persistence

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Get-Company/GC-Bridge-4/internal/domain/catalog"
	"github.com/Get-Company/GC-Bridge-4/internal/domain/shared"
)

func newTestProduct(t *testing.T, erpNr string) *catalog.Product {
	t.Helper()
	product, err := catalog.NewProduct(erpNr, "Artikel "+erpNr)
	require.NoError(t, err)
	return product
}

func TestGormProductRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("save and find by erp nr", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormProductRepository(db)

		product := newTestProduct(t, "900100")
		product.SetStock(25, "A-03-7")
		require.NoError(t, repo.Save(ctx, product))

		found, err := repo.FindByErpNr(ctx, "900100")
		require.NoError(t, err)
		assert.Equal(t, product.ID, found.ID)
		require.NotNil(t, found.Storage)
		assert.Equal(t, 25, found.Storage.Stock)
		assert.Equal(t, "A-03-7", found.Storage.Location)
	})

	t.Run("find by erp nr returns not found", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormProductRepository(db)

		_, err := repo.FindByErpNr(ctx, "999999")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("find active excludes disabled products", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormProductRepository(db)

		active := newTestProduct(t, "900100")
		require.NoError(t, repo.Save(ctx, active))
		disabled := newTestProduct(t, "900101")
		disabled.IsActive = false
		require.NoError(t, repo.Save(ctx, disabled))

		list, err := repo.FindActive(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "900100", list[0].ErpNr)
	})

	t.Run("delete removes storage and prices", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormProductRepository(db)
		prices := NewGormPriceRepository(db)
		channels := NewGormSalesChannelRepository(db)

		channel, err := catalog.NewSalesChannel("Webshop", "sc-1", decimal.NewFromInt(1))
		require.NoError(t, err)
		require.NoError(t, channels.Save(ctx, channel))

		product := newTestProduct(t, "900100")
		product.SetStock(10, "")
		require.NoError(t, repo.Save(ctx, product))

		price, err := catalog.NewPrice(product.ID, channel.ID, decimal.NewFromInt(10))
		require.NoError(t, err)
		require.NoError(t, prices.Save(ctx, price))

		require.NoError(t, repo.Delete(ctx, product.ID))

		_, err = repo.FindByErpNr(ctx, "900100")
		assert.ErrorIs(t, err, shared.ErrNotFound)
		list, err := prices.FindByProduct(ctx, product.ID)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestGormSalesChannelRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("find default", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormSalesChannelRepository(db)

		def, err := catalog.NewSalesChannel("Webshop", "sc-1", decimal.NewFromInt(1))
		require.NoError(t, err)
		def.IsDefault = true
		require.NoError(t, repo.Save(ctx, def))
		other, err := catalog.NewSalesChannel("Reseller", "sc-2", decimal.NewFromFloat(1.19))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, other))

		found, err := repo.FindDefault(ctx)
		require.NoError(t, err)
		assert.Equal(t, "sc-1", found.SalesChannelID)
	})

	t.Run("find default without one returns not found", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormSalesChannelRepository(db)

		_, err := repo.FindDefault(ctx)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("find active excludes disabled channels", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormSalesChannelRepository(db)

		active, err := catalog.NewSalesChannel("Webshop", "sc-1", decimal.NewFromInt(1))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, active))
		disabled, err := catalog.NewSalesChannel("Alt", "sc-2", decimal.NewFromInt(1))
		require.NoError(t, err)
		disabled.IsActive = false
		require.NoError(t, repo.Save(ctx, disabled))

		list, err := repo.FindActive(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "sc-1", list[0].SalesChannelID)
	})
}

func TestGormPriceRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("one price per product and channel", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormPriceRepository(db)
		channels := NewGormSalesChannelRepository(db)
		products := NewGormProductRepository(db)

		channel, err := catalog.NewSalesChannel("Webshop", "sc-1", decimal.NewFromInt(1))
		require.NoError(t, err)
		require.NoError(t, channels.Save(ctx, channel))
		product := newTestProduct(t, "900100")
		require.NoError(t, products.Save(ctx, product))

		price, err := catalog.NewPrice(product.ID, channel.ID, decimal.NewFromFloat(10.00))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, price))

		price.ListPrice = decimal.NewFromFloat(12.00)
		require.NoError(t, repo.Save(ctx, price))

		found, err := repo.FindByProductAndChannel(ctx, product.ID, channel.ID)
		require.NoError(t, err)
		assert.True(t, found.ListPrice.Equal(decimal.NewFromFloat(12.00)))

		list, err := repo.FindByProduct(ctx, product.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("missing pair returns not found", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormPriceRepository(db)

		product := newTestProduct(t, "900100")
		channel, err := catalog.NewSalesChannel("Webshop", "sc-1", decimal.NewFromInt(1))
		require.NoError(t, err)

		_, err = repo.FindByProductAndChannel(ctx, product.ID, channel.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
