package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Get-Company/GC-Bridge-4/internal/domain/shared"
)

// Product is an article known to the legacy system and the webshop. ErpNr
// is the legacy article number and the business key of the product sync.
type Product struct {
	shared.BaseEntity
	ErpNr string `gorm:"type:varchar(50);not null;uniqueIndex"`
	// SKU is the webshop product number, usually identical to ErpNr.
	SKU  string `gorm:"type:varchar(64);index"`
	Name string `gorm:"type:varchar(200);not null"`

	DescriptionShort string `gorm:"type:text"`
	DescriptionLong  string `gorm:"type:text"`

	Unit         string          `gorm:"type:varchar(50)"`
	Factor       decimal.Decimal `gorm:"type:decimal(12,4);not null;default:1"`
	MinPurchase  int             `gorm:"not null;default:1"`
	PurchaseUnit int             `gorm:"not null;default:1"`
	SortOrder    int             `gorm:"not null;default:0"`
	IsActive     bool            `gorm:"not null;default:true"`

	// TaxRate is the percentage applied for gross prices, e.g. 19.
	TaxRate decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0"`

	Storage *Storage `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Prices  []Price  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// Storage is the stock record of a product. VirtualStock, when set,
// overrides the physical stock reported to the webshop.
type Storage struct {
	shared.BaseEntity
	ProductID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Stock        int       `gorm:"not null;default:0"`
	VirtualStock *int
	Location     string `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (Storage) TableName() string {
	return "storages"
}

// EffectiveStock is the quantity reported to the webshop.
func (s *Storage) EffectiveStock() int {
	if s.VirtualStock != nil {
		return *s.VirtualStock
	}
	return s.Stock
}

// NewProduct creates a product keyed by the legacy article number.
func NewProduct(erpNr, name string) (*Product, error) {
	erpNr = strings.TrimSpace(erpNr)
	if erpNr == "" {
		return nil, shared.NewDomainError("INVALID_ERP_NR", "Product needs a legacy article number")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}

	return &Product{
		BaseEntity:   shared.NewBaseEntity(),
		ErpNr:        erpNr,
		SKU:          erpNr,
		Name:         name,
		Factor:       decimal.NewFromInt(1),
		MinPurchase:  1,
		PurchaseUnit: 1,
		IsActive:     true,
	}, nil
}

// SetStock updates the storage record, creating it on first sync.
func (p *Product) SetStock(stock int, location string) {
	if p.Storage == nil {
		p.Storage = &Storage{
			BaseEntity: shared.NewBaseEntity(),
			ProductID:  p.ID,
		}
	}
	p.Storage.Stock = stock
	p.Storage.Location = location
	p.Storage.UpdatedAt = time.Now()
	p.UpdatedAt = time.Now()
}

// SetVirtualStock overrides the reported stock; nil removes the override.
func (p *Product) SetVirtualStock(stock *int) {
	if p.Storage == nil {
		p.Storage = &Storage{
			BaseEntity: shared.NewBaseEntity(),
			ProductID:  p.ID,
		}
	}
	p.Storage.VirtualStock = stock
	p.Storage.UpdatedAt = time.Now()
}

// GrossFactor is the multiplier from net to gross for this product's tax
// rate, 1 when no rate is set.
func (p *Product) GrossFactor() decimal.Decimal {
	if p.TaxRate.IsZero() {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(1).Add(p.TaxRate.Div(decimal.NewFromInt(100)))
}
