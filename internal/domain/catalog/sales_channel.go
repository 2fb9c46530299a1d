package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Get-Company/GC-Bridge-4/internal/domain/shared"
)

// SalesChannel is one storefront of the webshop. Non-default channels
// derive their prices from the default channel via PriceFactor.
type SalesChannel struct {
	shared.BaseEntity
	Name string `gorm:"type:varchar(100);not null"`
	// SalesChannelID is the webshop channel id.
	SalesChannelID string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	PriceFactor    decimal.Decimal `gorm:"type:decimal(12,4);not null;default:1"`
	IsDefault      bool            `gorm:"not null;default:false"`
	IsActive       bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (SalesChannel) TableName() string {
	return "sales_channels"
}

// NewSalesChannel creates a sales channel.
func NewSalesChannel(name, salesChannelID string, factor decimal.Decimal) (*SalesChannel, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Sales channel name cannot be empty")
	}
	if strings.TrimSpace(salesChannelID) == "" {
		return nil, shared.NewDomainError("INVALID_CHANNEL_ID", "Sales channel needs a webshop id")
	}
	if factor.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_FACTOR", "Price factor must be positive")
	}

	return &SalesChannel{
		BaseEntity:     shared.NewBaseEntity(),
		Name:           name,
		SalesChannelID: salesChannelID,
		PriceFactor:    factor,
		IsActive:       true,
	}, nil
}
