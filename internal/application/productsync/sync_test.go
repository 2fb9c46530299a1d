package productsync

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Get-Company/GC-Bridge-4/internal/domain/catalog"
	"github.com/Get-Company/GC-Bridge-4/internal/erp"
	"github.com/Get-Company/GC-Bridge-4/internal/erp/erptest"
	"github.com/Get-Company/GC-Bridge-4/internal/infrastructure/config"
	"github.com/Get-Company/GC-Bridge-4/internal/infrastructure/persistence"
)

type pullEnv struct {
	products catalog.ProductRepository
	channels catalog.SalesChannelRepository
	prices   catalog.PriceRepository
	store    *erptest.Store
	svc      *PullService
}

func setupPull(t *testing.T, cfg config.SyncConfig) *pullEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, persistence.AutoMigrate(db))

	env := &pullEnv{
		products: persistence.NewGormProductRepository(db),
		channels: persistence.NewGormSalesChannelRepository(db),
		prices:   persistence.NewGormPriceRepository(db),
		store:    erptest.NewStore(),
	}
	env.svc = NewPullService(env.products, env.channels, env.prices, env.store, cfg, zap.NewNop())
	return env
}

// seedDefaultChannel creates the default webshop channel, plus a reseller
// channel deriving its prices with the given factor when factor is
// positive.
func seedDefaultChannel(ctx context.Context, t *testing.T, channels catalog.SalesChannelRepository, resellerFactor float64) (*catalog.SalesChannel, *catalog.SalesChannel) {
	t.Helper()
	def, err := catalog.NewSalesChannel("Webshop", "sc-default", decimal.NewFromInt(1))
	require.NoError(t, err)
	def.IsDefault = true
	require.NoError(t, channels.Save(ctx, def))

	if resellerFactor <= 0 {
		return def, nil
	}
	reseller, err := catalog.NewSalesChannel("Reseller", "sc-reseller", decimal.NewFromFloat(resellerFactor))
	require.NoError(t, err)
	require.NoError(t, channels.Save(ctx, reseller))
	return def, reseller
}

func seedArticle(store *erptest.Store, artNr string, row map[string]any) {
	base := map[string]any{
		"ArtNr": artNr, "Nr": artNr, "KuBez5": "Artikel " + artNr,
		"Einh": "Stk", "Fkt": 1, "WShopKz": 1,
		"MinAbn": 1, "VerpEinh": 1, "SortNr": 0,
	}
	for k, v := range row {
		base[k] = v
	}
	store.Insert(erp.DatasetArtikel, base)
}

func TestPullAll(t *testing.T) {
	ctx := context.Background()

	t.Run("mirrors article with stock and prices", func(t *testing.T) {
		env := setupPull(t, config.SyncConfig{})
		def, reseller := seedDefaultChannel(ctx, t, env.channels, 1.19)

		specialFrom := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		specialUntil := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
		seedArticle(env.store, "900100", map[string]any{
			"KuBez5": "Widget", "KuBez": "Widget kurz", "Bez": "Langer Widget Text",
			"Einh": "Stk", "MinAbn": 5, "VerpEinh": 10, "SortNr": 3,
			"Vk0": 10.00, "RabMge": 50, "RabPr": 8.00,
			"SPr": 8.99, "SPrVon": specialFrom, "SPrBis": specialUntil,
		})
		env.store.Insert(erp.DatasetLager, map[string]any{
			"ArtNr": "900100", "LagNr": 1, "Mge": 25.0, "Pos": "A-03-7",
		})

		summary, err := env.svc.PullAll(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Seen)
		assert.Equal(t, 1, summary.Created)
		assert.Equal(t, 0, summary.Failed)

		product, err := env.products.FindByErpNr(ctx, "900100")
		require.NoError(t, err)
		assert.Equal(t, "Widget", product.Name)
		assert.Equal(t, "Widget kurz", product.DescriptionShort)
		assert.Equal(t, "Langer Widget Text", product.DescriptionLong)
		assert.Equal(t, "Stk", product.Unit)
		assert.Equal(t, 5, product.MinPurchase)
		assert.Equal(t, 10, product.PurchaseUnit)
		assert.Equal(t, 3, product.SortOrder)
		assert.True(t, product.IsActive)

		require.NotNil(t, product.Storage)
		assert.Equal(t, 25, product.Storage.Stock)
		assert.Equal(t, "A-03-7", product.Storage.Location)

		price, err := env.prices.FindByProductAndChannel(ctx, product.ID, def.ID)
		require.NoError(t, err)
		assert.True(t, price.ListPrice.Equal(decimal.NewFromInt(10)), price.ListPrice.String())
		assert.Equal(t, 50, price.RebateQuantity)
		assert.True(t, price.RebatePrice.Equal(decimal.NewFromInt(8)), price.RebatePrice.String())
		require.NotNil(t, price.SpecialPrice)
		assert.True(t, price.SpecialPrice.Equal(decimal.NewFromFloat(8.99)))
		require.NotNil(t, price.SpecialStart)
		assert.True(t, price.SpecialStart.Equal(specialFrom))
		require.NotNil(t, price.SpecialEnd)
		assert.True(t, price.SpecialEnd.Equal(specialUntil))

		derived, err := env.prices.FindByProductAndChannel(ctx, product.ID, reseller.ID)
		require.NoError(t, err)
		assert.True(t, derived.ListPrice.Equal(decimal.NewFromFloat(11.90)), derived.ListPrice.String())
		// 8.00 * 1.19 = 9.52, rounded up to the next 0.05 step
		assert.True(t, derived.RebatePrice.Equal(decimal.NewFromFloat(9.55)), derived.RebatePrice.String())
		require.NotNil(t, derived.SpecialPrice)
		// 8.99 * 1.19 = 10.6981
		assert.True(t, derived.SpecialPrice.Equal(decimal.NewFromFloat(10.70)), derived.SpecialPrice.String())
		require.NotNil(t, derived.SpecialStart)
		assert.True(t, derived.SpecialStart.Equal(specialFrom))
	})

	t.Run("is idempotent", func(t *testing.T) {
		env := setupPull(t, config.SyncConfig{})
		def, _ := seedDefaultChannel(ctx, t, env.channels, 0)
		seedArticle(env.store, "900100", map[string]any{"Vk0": 10.00})

		_, err := env.svc.PullAll(ctx, 0)
		require.NoError(t, err)
		summary, err := env.svc.PullAll(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Created)
		assert.Equal(t, 1, summary.Updated)

		product, err := env.products.FindByErpNr(ctx, "900100")
		require.NoError(t, err)
		list, err := env.prices.FindByProduct(ctx, product.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
		assert.Equal(t, def.ID, list[0].SalesChannelID)
	})

	t.Run("honors the limit", func(t *testing.T) {
		env := setupPull(t, config.SyncConfig{})
		seedDefaultChannel(ctx, t, env.channels, 0)
		seedArticle(env.store, "900100", nil)
		seedArticle(env.store, "900101", nil)
		seedArticle(env.store, "900102", nil)

		summary, err := env.svc.PullAll(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Seen)
	})

	t.Run("shop filter skips articles not flagged for the webshop", func(t *testing.T) {
		env := setupPull(t, config.SyncConfig{StockFilterShopOnly: true})
		seedDefaultChannel(ctx, t, env.channels, 0)
		seedArticle(env.store, "900100", map[string]any{"WShopKz": 1})
		seedArticle(env.store, "900101", map[string]any{"WShopKz": 0})

		summary, err := env.svc.PullAll(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Seen)

		_, err = env.products.FindByErpNr(ctx, "900100")
		require.NoError(t, err)
		_, err = env.products.FindByErpNr(ctx, "900101")
		assert.Error(t, err)
	})

	t.Run("syncs master data without a default channel", func(t *testing.T) {
		env := setupPull(t, config.SyncConfig{})
		seedArticle(env.store, "900100", map[string]any{"Vk0": 10.00})

		summary, err := env.svc.PullAll(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Failed)

		product, err := env.products.FindByErpNr(ctx, "900100")
		require.NoError(t, err)
		list, err := env.prices.FindByProduct(ctx, product.ID)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("zero list price leaves prices untouched", func(t *testing.T) {
		env := setupPull(t, config.SyncConfig{})
		seedDefaultChannel(ctx, t, env.channels, 0)
		seedArticle(env.store, "900100", map[string]any{"Vk0": 0.0})

		_, err := env.svc.PullAll(ctx, 0)
		require.NoError(t, err)

		product, err := env.products.FindByErpNr(ctx, "900100")
		require.NoError(t, err)
		list, err := env.prices.FindByProduct(ctx, product.ID)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("missing stock row means zero stock", func(t *testing.T) {
		env := setupPull(t, config.SyncConfig{})
		seedDefaultChannel(ctx, t, env.channels, 0)
		seedArticle(env.store, "900100", nil)

		_, err := env.svc.PullAll(ctx, 0)
		require.NoError(t, err)

		product, err := env.products.FindByErpNr(ctx, "900100")
		require.NoError(t, err)
		require.NotNil(t, product.Storage)
		assert.Equal(t, 0, product.Storage.Stock)
	})

	t.Run("expired special price is cleared locally", func(t *testing.T) {
		env := setupPull(t, config.SyncConfig{})
		def, _ := seedDefaultChannel(ctx, t, env.channels, 0)
		seedArticle(env.store, "900100", map[string]any{
			"Vk0": 10.00, "SPr": 8.99,
			"SPrVon": time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			"SPrBis": time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		})
		_, err := env.svc.PullAll(ctx, 0)
		require.NoError(t, err)

		// A later run sees the special price gone from the legacy record.
		cleared := erptest.NewStore()
		seedArticle(cleared, "900100", map[string]any{"Vk0": 10.00})
		svc := NewPullService(env.products, env.channels, env.prices, cleared, config.SyncConfig{}, zap.NewNop())
		_, err = svc.PullAll(ctx, 0)
		require.NoError(t, err)

		product, err := env.products.FindByErpNr(ctx, "900100")
		require.NoError(t, err)
		price, err := env.prices.FindByProductAndChannel(ctx, product.ID, def.ID)
		require.NoError(t, err)
		assert.Nil(t, price.SpecialPrice)
		assert.Nil(t, price.SpecialStart)
		assert.Nil(t, price.SpecialEnd)
	})
}

func TestPullByNumbers(t *testing.T) {
	ctx := context.Background()

	t.Run("syncs the named articles", func(t *testing.T) {
		env := setupPull(t, config.SyncConfig{})
		seedDefaultChannel(ctx, t, env.channels, 0)
		seedArticle(env.store, "900100", nil)
		seedArticle(env.store, "900101", nil)

		summary, err := env.svc.PullByNumbers(ctx, []string{"900101"})
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Seen)
		assert.Equal(t, 1, summary.Created)

		_, err = env.products.FindByErpNr(ctx, "900101")
		require.NoError(t, err)
		_, err = env.products.FindByErpNr(ctx, "900100")
		assert.Error(t, err)
	})

	t.Run("counts unknown numbers as failures", func(t *testing.T) {
		env := setupPull(t, config.SyncConfig{})
		seedDefaultChannel(ctx, t, env.channels, 0)
		seedArticle(env.store, "900100", nil)

		summary, err := env.svc.PullByNumbers(ctx, []string{"900100", "999999"})
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Seen)
		assert.Equal(t, 1, summary.Created)
		assert.Equal(t, 1, summary.Failed)
	})
}
