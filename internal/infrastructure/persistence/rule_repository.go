package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/Get-Company/GC-Bridge-4/internal/domain/rules"
)

// GormRuleRepository implements rules.RuleRepository using GORM
type GormRuleRepository struct {
	db *gorm.DB
}

// NewGormRuleRepository creates a new GormRuleRepository
func NewGormRuleRepository(db *gorm.DB) *GormRuleRepository {
	return &GormRuleRepository{db: db}
}

// FindActiveOrdered returns all active rules ordered by priority, then
// creation time
func (r *GormRuleRepository) FindActiveOrdered(ctx context.Context) ([]rules.OrderRule, error) {
	var orderRules []rules.OrderRule
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("priority, created_at").
		Find(&orderRules).Error; err != nil {
		return nil, err
	}
	return orderRules, nil
}

// Save creates or updates a rule
func (r *GormRuleRepository) Save(ctx context.Context, rule *rules.OrderRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}
