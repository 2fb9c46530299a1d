package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Get-Company/GC-Bridge-4/internal/domain/shared"
	"github.com/Get-Company/GC-Bridge-4/internal/domain/trade"
)

// GormOrderRepository implements trade.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by its ID, lines included
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	var order trade.Order
	if err := r.db.WithContext(ctx).Preload("Lines").First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByAPIID finds an order by its webshop id, lines included
func (r *GormOrderRepository) FindByAPIID(ctx context.Context, apiID string) (*trade.Order, error) {
	if apiID == "" {
		return nil, shared.NewDomainError("INVALID_API_ID", "Webshop order id cannot be empty")
	}
	var order trade.Order
	if err := r.db.WithContext(ctx).Preload("Lines").
		Where("api_id = ?", apiID).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByErpOrderID finds an order by its legacy document number
func (r *GormOrderRepository) FindByErpOrderID(ctx context.Context, belegNr string) (*trade.Order, error) {
	if belegNr == "" {
		return nil, shared.NewDomainError("INVALID_BELEG_NR", "Legacy document number cannot be empty")
	}
	var order trade.Order
	if err := r.db.WithContext(ctx).Preload("Lines").
		Where("erp_order_id = ?", belegNr).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindUnposted returns orders that have no legacy document yet
func (r *GormOrderRepository) FindUnposted(ctx context.Context, limit int) ([]trade.Order, error) {
	var orders []trade.Order
	query := r.db.WithContext(ctx).Preload("Lines").
		Where("erp_order_id = ''").
		Order("created_at")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Save creates or updates an order header without touching its lines
func (r *GormOrderRepository) Save(ctx context.Context, order *trade.Order) error {
	return r.db.WithContext(ctx).Omit("Lines").Save(order).Error
}

// SaveWithLines saves the order and replaces all its lines in one transaction.
// Replace semantics mirror the webshop payload: the stored line set is
// whatever the last sync delivered.
func (r *GormOrderRepository) SaveWithLines(ctx context.Context, order *trade.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Save(order).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&trade.OrderLine{}).Error; err != nil {
			return err
		}
		for i := range order.Lines {
			order.Lines[i].OrderID = order.ID
			if err := tx.Create(&order.Lines[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete deletes an order and its lines
func (r *GormOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&trade.OrderLine{}).Error; err != nil {
			return err
		}
		return tx.Delete(&trade.Order{}, "id = ?", id).Error
	})
}
