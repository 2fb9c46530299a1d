package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Get-Company/GC-Bridge-4/internal/domain/catalog"
	"github.com/Get-Company/GC-Bridge-4/internal/domain/shared"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by its ID, storage and prices included
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).Preload("Storage").Preload("Prices").
		First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// FindByErpNr finds a product by its legacy article number
func (r *GormProductRepository) FindByErpNr(ctx context.Context, erpNr string) (*catalog.Product, error) {
	if erpNr == "" {
		return nil, shared.NewDomainError("INVALID_ERP_NR", "Legacy article number cannot be empty")
	}
	var product catalog.Product
	if err := r.db.WithContext(ctx).Preload("Storage").Preload("Prices").
		Where("erp_nr = ?", erpNr).
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// FindActive returns all active products
func (r *GormProductRepository) FindActive(ctx context.Context) ([]catalog.Product, error) {
	var products []catalog.Product
	if err := r.db.WithContext(ctx).Preload("Storage").Preload("Prices").
		Where("is_active = ?", true).
		Order("sort_order, erp_nr").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Save creates or updates a product together with its storage record
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Storage", "Prices").Save(product).Error; err != nil {
			return err
		}
		if product.Storage != nil {
			product.Storage.ProductID = product.ID
			if err := tx.Save(product.Storage).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete deletes a product with its storage and prices
func (r *GormProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&catalog.Storage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&catalog.Price{}).Error; err != nil {
			return err
		}
		return tx.Delete(&catalog.Product{}, "id = ?", id).Error
	})
}

// GormPriceRepository implements catalog.PriceRepository using GORM
type GormPriceRepository struct {
	db *gorm.DB
}

// NewGormPriceRepository creates a new GormPriceRepository
func NewGormPriceRepository(db *gorm.DB) *GormPriceRepository {
	return &GormPriceRepository{db: db}
}

// FindByProductAndChannel finds the price of one (product, channel) pair
func (r *GormPriceRepository) FindByProductAndChannel(ctx context.Context, productID, channelID uuid.UUID) (*catalog.Price, error) {
	var price catalog.Price
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND sales_channel_id = ?", productID, channelID).
		First(&price).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &price, nil
}

// FindByProduct returns all channel prices of a product
func (r *GormPriceRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]catalog.Price, error) {
	var prices []catalog.Price
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Find(&prices).Error; err != nil {
		return nil, err
	}
	return prices, nil
}

// Save creates or updates a price
func (r *GormPriceRepository) Save(ctx context.Context, price *catalog.Price) error {
	return r.db.WithContext(ctx).Save(price).Error
}

// Delete deletes a price
func (r *GormPriceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&catalog.Price{}, "id = ?", id).Error
}

// GormSalesChannelRepository implements catalog.SalesChannelRepository using GORM
type GormSalesChannelRepository struct {
	db *gorm.DB
}

// NewGormSalesChannelRepository creates a new GormSalesChannelRepository
func NewGormSalesChannelRepository(db *gorm.DB) *GormSalesChannelRepository {
	return &GormSalesChannelRepository{db: db}
}

// FindByID finds a channel by its ID
func (r *GormSalesChannelRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.SalesChannel, error) {
	var channel catalog.SalesChannel
	if err := r.db.WithContext(ctx).First(&channel, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &channel, nil
}

// FindBySalesChannelID finds a channel by its webshop id
func (r *GormSalesChannelRepository) FindBySalesChannelID(ctx context.Context, salesChannelID string) (*catalog.SalesChannel, error) {
	var channel catalog.SalesChannel
	if err := r.db.WithContext(ctx).
		Where("sales_channel_id = ?", salesChannelID).
		First(&channel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &channel, nil
}

// FindDefault returns the default channel
func (r *GormSalesChannelRepository) FindDefault(ctx context.Context) (*catalog.SalesChannel, error) {
	var channel catalog.SalesChannel
	if err := r.db.WithContext(ctx).
		Where("is_default = ?", true).
		First(&channel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &channel, nil
}

// FindActive returns all active channels
func (r *GormSalesChannelRepository) FindActive(ctx context.Context) ([]catalog.SalesChannel, error) {
	var channels []catalog.SalesChannel
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name").
		Find(&channels).Error; err != nil {
		return nil, err
	}
	return channels, nil
}

// Save creates or updates a channel
func (r *GormSalesChannelRepository) Save(ctx context.Context, channel *catalog.SalesChannel) error {
	return r.db.WithContext(ctx).Save(channel).Error
}
