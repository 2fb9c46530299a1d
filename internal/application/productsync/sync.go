// Package productsync mirrors legacy articles into the local catalog and
// pushes catalog changes back to the webshop. The legacy store is the
// authority for master data, stock and default-channel prices; non-default
// channel prices derive from the default channel via the channel factor.
package productsync

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Get-Company/GC-Bridge-4/internal/domain/catalog"
	"github.com/Get-Company/GC-Bridge-4/internal/domain/shared"
	"github.com/Get-Company/GC-Bridge-4/internal/erp"
	"github.com/Get-Company/GC-Bridge-4/internal/infrastructure/config"
)

// Article numbers are alphanumeric; this range covers the whole dataset.
const (
	articleRangeFrom = "000000"
	articleRangeTo   = "99999999ZZ"
)

// defaultWarehouse is the stock location read per article.
const defaultWarehouse = 1

// PullSummary reports the outcome of one article sync run.
type PullSummary struct {
	Seen    int
	Created int
	Updated int
	Failed  int
}

// PullService mirrors legacy articles, their stock record and their
// default-channel price into the local catalog.
type PullService struct {
	products catalog.ProductRepository
	channels catalog.SalesChannelRepository
	prices   catalog.PriceRepository
	sessions erp.SessionFactory
	cfg      config.SyncConfig
	logger   *zap.Logger
}

// NewPullService creates a new PullService
func NewPullService(
	products catalog.ProductRepository,
	channels catalog.SalesChannelRepository,
	prices catalog.PriceRepository,
	sessions erp.SessionFactory,
	cfg config.SyncConfig,
	logger *zap.Logger,
) *PullService {
	return &PullService{
		products: products,
		channels: channels,
		prices:   prices,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
	}
}

// PullAll ranges over the whole article dataset and upserts every record.
// With StockFilterShopOnly set, only articles flagged for the webshop are
// visited. One record's failure is counted and logged; the run continues.
// limit <= 0 means no limit.
func (s *PullService) PullAll(ctx context.Context, limit int) (PullSummary, error) {
	var summary PullSummary

	session, err := s.sessions.Open()
	if err != nil {
		return summary, err
	}
	defer session.Close()

	artikel, err := erp.OpenArtikel(session, s.logger)
	if err != nil {
		return summary, err
	}
	lager, err := erp.OpenLager(session, s.logger)
	if err != nil {
		return summary, err
	}

	if s.cfg.StockFilterShopOnly {
		if artikel.ApplyEqualityFilter(map[string]any{"WShopKz": 1}) {
			defer artikel.ClearFilter()
		}
	}
	if !artikel.BeginRange(erp.K(articleRangeFrom), erp.K(articleRangeTo)) {
		s.logger.Info("no articles in range")
		return summary, nil
	}

	s.logger.Info("article sync started", zap.Int("count", artikel.Count()))
	for !artikel.RangeAtEnd() {
		if limit > 0 && summary.Seen >= limit {
			break
		}
		summary.Seen++

		created, err := s.syncCurrent(ctx, artikel, lager)
		if err != nil {
			summary.Failed++
			s.logger.Error("article sync failed",
				zap.String("artNr", artikel.GetString("ArtNr")), zap.Error(err))
		} else if created {
			summary.Created++
		} else {
			summary.Updated++
		}
		artikel.Advance()
	}

	s.logger.Info("article sync finished",
		zap.Int("seen", summary.Seen),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// PullByNumbers upserts the articles with the given legacy numbers. Unknown
// numbers are counted as failures; the run continues.
func (s *PullService) PullByNumbers(ctx context.Context, erpNrs []string) (PullSummary, error) {
	var summary PullSummary

	session, err := s.sessions.Open()
	if err != nil {
		return summary, err
	}
	defer session.Close()

	artikel, err := erp.OpenArtikel(session, s.logger)
	if err != nil {
		return summary, err
	}
	lager, err := erp.OpenLager(session, s.logger)
	if err != nil {
		return summary, err
	}

	for _, erpNr := range erpNrs {
		erpNr = strings.TrimSpace(erpNr)
		if erpNr == "" {
			continue
		}
		summary.Seen++

		if !artikel.Locate(erp.K(erpNr)) {
			summary.Failed++
			s.logger.Warn("article not found in the legacy system", zap.String("artNr", erpNr))
			continue
		}
		created, err := s.syncCurrent(ctx, artikel, lager)
		if err != nil {
			summary.Failed++
			s.logger.Error("article sync failed", zap.String("artNr", erpNr), zap.Error(err))
		} else if created {
			summary.Created++
		} else {
			summary.Updated++
		}
	}
	return summary, nil
}

// syncCurrent upserts the article under the cursor: master data, stock and
// prices.
func (s *PullService) syncCurrent(ctx context.Context, artikel, lager *erp.Dataset) (bool, error) {
	erpNr := strings.TrimSpace(artikel.GetString("ArtNr"))
	if erpNr == "" {
		return false, shared.NewDomainError("MISSING_ART_NR", "Article record has no article number")
	}
	name := strings.TrimSpace(artikel.GetString("KuBez5"))

	created := false
	product, err := s.products.FindByErpNr(ctx, erpNr)
	if errors.Is(err, shared.ErrNotFound) {
		fallback := name
		if fallback == "" {
			fallback = erpNr
		}
		product, err = catalog.NewProduct(erpNr, fallback)
		if err != nil {
			return false, err
		}
		created = true
	} else if err != nil {
		return false, err
	}

	if name != "" {
		product.Name = name
	}
	product.Unit = artikel.GetString("Einh")
	product.IsActive = artikel.GetInt("WShopKz") != 0
	product.DescriptionShort = artikel.GetString("KuBez")
	product.DescriptionLong = artikel.GetString("Bez")
	if factor := artikel.GetDecimal("Fkt"); factor.IsPositive() {
		product.Factor = factor
	}
	if minPurchase := artikel.GetInt("MinAbn"); minPurchase > 0 {
		product.MinPurchase = minPurchase
	}
	if purchaseUnit := artikel.GetInt("VerpEinh"); purchaseUnit > 0 {
		product.PurchaseUnit = purchaseUnit
	}
	if sortOrder := artikel.GetInt("SortNr"); sortOrder > 0 {
		product.SortOrder = sortOrder
	}

	stock, location := s.readStock(lager, erpNr)
	product.SetStock(stock, location)

	if err := s.products.Save(ctx, product); err != nil {
		return false, err
	}
	if err := s.syncPrices(ctx, artikel, product); err != nil {
		return false, err
	}
	return created, nil
}

// readStock reads quantity and bin location from the stock dataset. A
// missing stock row means zero.
func (s *PullService) readStock(lager *erp.Dataset, erpNr string) (int, string) {
	if !lager.Locate(erp.K(erpNr, defaultWarehouse)) {
		s.logger.Debug("no stock record", zap.String("artNr", erpNr))
		return 0, ""
	}
	return int(lager.GetDecimal("Mge").IntPart()), lager.GetString("Pos")
}

// syncPrices upserts the default-channel price from the article record and
// re-derives every other active channel's price from it. A zero list price
// leaves local prices untouched.
func (s *PullService) syncPrices(ctx context.Context, artikel *erp.Dataset, product *catalog.Product) error {
	listPrice := artikel.GetDecimal("Vk0")
	if !listPrice.IsPositive() {
		return nil
	}

	def, err := s.channels.FindDefault(ctx)
	if errors.Is(err, shared.ErrNotFound) {
		s.logger.Warn("no default sales channel, skipping prices",
			zap.String("artNr", product.ErpNr))
		return nil
	}
	if err != nil {
		return err
	}

	price, err := s.prices.FindByProductAndChannel(ctx, product.ID, def.ID)
	if errors.Is(err, shared.ErrNotFound) {
		price, err = catalog.NewPrice(product.ID, def.ID, listPrice)
		if err != nil {
			return err
		}
	} else if err != nil {
		return err
	} else {
		price.ListPrice = listPrice
	}

	price.RebateQuantity = artikel.GetInt("RabMge")
	price.RebatePrice = artikel.GetDecimal("RabPr")

	if special := artikel.GetDecimal("SPr"); special.IsPositive() {
		price.SpecialPrice = &special
		price.SpecialStart = nil
		price.SpecialEnd = nil
		if from := artikel.GetTime("SPrVon"); !from.IsZero() {
			price.SpecialStart = &from
		}
		if until := artikel.GetTime("SPrBis"); !until.IsZero() {
			price.SpecialEnd = &until
		}
	} else {
		price.SpecialPrice = nil
		price.SpecialStart = nil
		price.SpecialEnd = nil
	}

	if err := s.prices.Save(ctx, price); err != nil {
		return err
	}
	return s.deriveChannelPrices(ctx, price, def.ID, product)
}

// deriveChannelPrices re-derives the price of every active non-default
// channel from the default-channel price.
func (s *PullService) deriveChannelPrices(ctx context.Context, base *catalog.Price, defaultID uuid.UUID, product *catalog.Product) error {
	channels, err := s.channels.FindActive(ctx)
	if err != nil {
		return err
	}

	for i := range channels {
		channel := &channels[i]
		if channel.ID == defaultID {
			continue
		}
		derived, err := base.DeriveChannelPrice(channel)
		if err != nil {
			return err
		}

		existing, err := s.prices.FindByProductAndChannel(ctx, product.ID, channel.ID)
		if errors.Is(err, shared.ErrNotFound) {
			if err := s.prices.Save(ctx, derived); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}

		existing.ListPrice = derived.ListPrice
		existing.RebateQuantity = derived.RebateQuantity
		existing.RebatePrice = derived.RebatePrice
		existing.SpecialPrice = derived.SpecialPrice
		existing.SpecialStart = derived.SpecialStart
		existing.SpecialEnd = derived.SpecialEnd
		if err := s.prices.Save(ctx, existing); err != nil {
			return err
		}
	}
	return nil
}
