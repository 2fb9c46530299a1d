package productsync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Get-Company/GC-Bridge-4/internal/domain/catalog"
	"github.com/Get-Company/GC-Bridge-4/internal/domain/shared"
	"github.com/Get-Company/GC-Bridge-4/internal/infrastructure/shopware"
)

// PlatformProducts is the slice of the webshop client the product push
// needs.
type PlatformProducts interface {
	// GetProductByNumber returns the webshop product row for a product
	// number, or shopware.ErrNotFound.
	GetProductByNumber(ctx context.Context, productNumber string) (map[string]any, error)

	// UpdateProduct patches an existing webshop product.
	UpdateProduct(ctx context.Context, productID string, payload map[string]any) error
}

// PushSummary reports the outcome of one product push run.
type PushSummary struct {
	Seen   int
	Pushed int
	Failed int
}

// PushService writes catalog products to the webshop. Push is update-only:
// a product whose number is unknown to the webshop is reported, not
// created.
type PushService struct {
	products catalog.ProductRepository
	platform PlatformProducts
	logger   *zap.Logger
}

// NewPushService creates a new PushService
func NewPushService(
	products catalog.ProductRepository,
	platform PlatformProducts,
	logger *zap.Logger,
) *PushService {
	return &PushService{
		products: products,
		platform: platform,
		logger:   logger,
	}
}

// PushProduct patches one product in the webshop. A missing webshop id is
// resolved by product number first and stored for later runs.
func (s *PushService) PushProduct(ctx context.Context, product *catalog.Product) error {
	if product == nil {
		return shared.NewDomainError("INVALID_PRODUCT", "Product is required")
	}
	if s.platform == nil {
		return shared.NewDomainError("PLATFORM_UNAVAILABLE", "No webshop client configured")
	}

	if product.SKU == "" {
		if err := s.resolveSKU(ctx, product); err != nil {
			return err
		}
	}

	payload := map[string]any{
		"productNumber": product.ErpNr,
		"active":        product.IsActive,
	}
	if product.Name != "" {
		payload["name"] = product.Name
	}
	if product.DescriptionLong != "" {
		payload["description"] = product.DescriptionLong
	}
	if product.Storage != nil {
		payload["stock"] = product.Storage.EffectiveStock()
	}

	if err := s.platform.UpdateProduct(ctx, product.SKU, payload); err != nil {
		return err
	}
	s.logger.Info("product pushed",
		zap.String("artNr", product.ErpNr), zap.String("sku", product.SKU))
	return nil
}

// PushActive pushes every active product. One product's failure is counted
// and logged; the run continues.
func (s *PushService) PushActive(ctx context.Context) (PushSummary, error) {
	var summary PushSummary

	products, err := s.products.FindActive(ctx)
	if err != nil {
		return summary, err
	}

	for i := range products {
		product := &products[i]
		summary.Seen++
		if err := s.PushProduct(ctx, product); err != nil {
			summary.Failed++
			s.logger.Error("product push failed",
				zap.String("artNr", product.ErpNr), zap.Error(err))
			continue
		}
		summary.Pushed++
	}
	return summary, nil
}

// PushByNumbers pushes the products with the given legacy numbers,
// regardless of their active flag. Deactivations reach the webshop this
// way.
func (s *PushService) PushByNumbers(ctx context.Context, erpNrs []string) (PushSummary, error) {
	var summary PushSummary

	for _, erpNr := range erpNrs {
		erpNr = strings.TrimSpace(erpNr)
		if erpNr == "" {
			continue
		}
		summary.Seen++

		product, err := s.products.FindByErpNr(ctx, erpNr)
		if err == nil {
			err = s.PushProduct(ctx, product)
		}
		if err != nil {
			summary.Failed++
			s.logger.Error("product push failed", zap.String("artNr", erpNr), zap.Error(err))
			continue
		}
		summary.Pushed++
	}
	return summary, nil
}

// resolveSKU looks the webshop product id up by product number and stores
// it on the product.
func (s *PushService) resolveSKU(ctx context.Context, product *catalog.Product) error {
	row, err := s.platform.GetProductByNumber(ctx, product.ErpNr)
	if errors.Is(err, shopware.ErrNotFound) {
		return shared.NewDomainError("SKU_NOT_FOUND",
			"Webshop knows no product with number "+product.ErpNr)
	}
	if err != nil {
		return err
	}

	id, _ := row["id"].(string)
	id = strings.TrimSpace(id)
	if id == "" {
		return shared.NewDomainError("SKU_NOT_FOUND",
			fmt.Sprintf("Webshop product %s has no id", product.ErpNr))
	}

	product.SKU = id
	return s.products.Save(ctx, product)
}
