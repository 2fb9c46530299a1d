package rules

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Get-Company/GC-Bridge-4/internal/domain/shared"
)

// CustomerType classifies the ordering party for rule matching.
type CustomerType string

const (
	CustomerTypeAny     CustomerType = "any"
	CustomerTypeCompany CustomerType = "company"
	CustomerTypePrivate CustomerType = "private"
)

// CountryMatchMode controls which order addresses a rule's country codes
// are checked against.
type CountryMatchMode string

const (
	CountryMatchBillingOnly  CountryMatchMode = "billing_only"
	CountryMatchShippingOnly CountryMatchMode = "shipping_only"
	CountryMatchBoth         CountryMatchMode = "both"
	CountryMatchEither       CountryMatchMode = "either"
)

// Na1Mode controls the first name line written into the legacy document.
type Na1Mode string

const (
	Na1ModeAuto   Na1Mode = "auto"
	Na1ModeStatic Na1Mode = "static"
)

// PaymentPositionMode is how an extra payment surcharge position is priced.
type PaymentPositionMode string

const (
	PaymentPositionFixed   PaymentPositionMode = "fixed"
	PaymentPositionPercent PaymentPositionMode = "percent"
)

// OrderRule maps order characteristics to legacy document defaults. Rules
// are evaluated in (priority, creation) order; the first match wins.
type OrderRule struct {
	shared.BaseEntity
	Name     string `gorm:"type:varchar(100);not null"`
	Priority int    `gorm:"not null;default:100;index"`
	IsActive bool   `gorm:"not null;default:true;index"`

	CustomerType        CustomerType     `gorm:"type:varchar(20);not null;default:'any'"`
	BillingCountryCode  string           `gorm:"type:varchar(2)"`
	ShippingCountryCode string           `gorm:"type:varchar(2)"`
	CountryMatchMode    CountryMatchMode `gorm:"type:varchar(20);not null;default:'either'"`

	// Patterns are case-insensitive substring matches against the order's
	// payment and shipping method names; empty matches everything.
	PaymentMethodPattern  string `gorm:"type:varchar(100)"`
	ShippingMethodPattern string `gorm:"type:varchar(100)"`

	Na1Mode        Na1Mode `gorm:"type:varchar(20);not null;default:'auto'"`
	Na1StaticValue string  `gorm:"type:varchar(200)"`

	// Legacy document defaults. Zero means "leave the legacy default".
	VorgangsartID     int    `gorm:"not null;default:0"`
	ZahlungsartID     int    `gorm:"not null;default:0"`
	VersandartID      int    `gorm:"not null;default:0"`
	Zahlungsbedingung string `gorm:"type:varchar(100)"`

	AddPaymentPosition   bool                `gorm:"not null;default:false"`
	PaymentPositionErpNr string              `gorm:"type:varchar(50)"`
	PaymentPositionName  string              `gorm:"type:varchar(200)"`
	PaymentPositionMode  PaymentPositionMode `gorm:"type:varchar(20);not null;default:'fixed'"`
	PaymentPositionValue *decimal.Decimal    `gorm:"type:decimal(18,4)"`
}

// TableName returns the table name for GORM
func (OrderRule) TableName() string {
	return "order_rules"
}

// NewOrderRule creates a rule with the given matching scope.
func NewOrderRule(name string, priority int, customerType CustomerType) (*OrderRule, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Rule name cannot be empty")
	}
	switch customerType {
	case CustomerTypeAny, CustomerTypeCompany, CustomerTypePrivate:
	default:
		return nil, shared.NewDomainError("INVALID_CUSTOMER_TYPE", "Customer type must be any, company or private")
	}

	return &OrderRule{
		BaseEntity:          shared.NewBaseEntity(),
		Name:                name,
		Priority:            priority,
		IsActive:            true,
		CustomerType:        customerType,
		CountryMatchMode:    CountryMatchEither,
		Na1Mode:             Na1ModeAuto,
		PaymentPositionMode: PaymentPositionFixed,
	}, nil
}
