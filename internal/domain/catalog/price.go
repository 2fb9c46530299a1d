package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Get-Company/GC-Bridge-4/internal/domain/shared"
)

// Price is the price record of one product on one sales channel. The pair
// is unique. A special price only applies inside its window; when the
// special percentage is set the special price is derived from the list
// price rather than maintained by hand.
type Price struct {
	shared.BaseEntity
	ProductID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_price_product_channel"`
	SalesChannelID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_price_product_channel"`

	ListPrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`

	// Rebate slab: RebatePrice applies from RebateQuantity pieces up.
	RebateQuantity int             `gorm:"not null;default:0"`
	RebatePrice    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`

	SpecialPrice      *decimal.Decimal `gorm:"type:decimal(18,4)"`
	SpecialPercentage *decimal.Decimal `gorm:"type:decimal(8,4)"`
	SpecialStart      *time.Time
	SpecialEnd        *time.Time
}

// TableName returns the table name for GORM
func (Price) TableName() string {
	return "prices"
}

// NewPrice creates the price record for a (product, channel) pair.
func NewPrice(productID, salesChannelID uuid.UUID, listPrice decimal.Decimal) (*Price, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Price needs a product")
	}
	if salesChannelID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CHANNEL", "Price needs a sales channel")
	}
	if listPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "List price cannot be negative")
	}

	return &Price{
		BaseEntity:     shared.NewBaseEntity(),
		ProductID:      productID,
		SalesChannelID: salesChannelID,
		ListPrice:      listPrice,
	}, nil
}

// IsSpecialActive reports whether the special price applies at the given
// time. It requires a special price and both window bounds; the window is
// inclusive on both ends.
func (p *Price) IsSpecialActive(now time.Time) bool {
	if p.SpecialPrice == nil || p.SpecialStart == nil || p.SpecialEnd == nil {
		return false
	}
	return !now.Before(*p.SpecialStart) && !now.After(*p.SpecialEnd)
}

// CurrentPrice is the special price when active, else the list price,
// rounded to two decimal places.
func (p *Price) CurrentPrice(now time.Time) decimal.Decimal {
	if p.IsSpecialActive(now) {
		return RoundMoney(*p.SpecialPrice)
	}
	return RoundMoney(p.ListPrice)
}

// CurrentGrossPrice is the current price with the product's tax applied.
func (p *Price) CurrentGrossPrice(now time.Time, product *Product) decimal.Decimal {
	return RoundMoney(p.CurrentPrice(now).Mul(product.GrossFactor()))
}

// ApplySpecialPercentage derives the special price from the list price:
// the discounted value is rounded up to the next 0.05 step. Window bounds
// already present are kept; missing bounds default to now through the last
// instant of the following calendar month.
func (p *Price) ApplySpecialPercentage(pct decimal.Decimal, now time.Time) error {
	if pct.LessThanOrEqual(decimal.Zero) || pct.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return shared.NewDomainError("INVALID_PERCENTAGE", "Special percentage must be between 0 and 100 exclusive")
	}

	hundred := decimal.NewFromInt(100)
	raw := p.ListPrice.Mul(hundred.Sub(pct)).Div(hundred)
	special := RoundUpToStep(raw, decimal.NewFromFloat(0.05))

	p.SpecialPercentage = &pct
	p.SpecialPrice = &special
	if p.SpecialStart == nil || p.SpecialEnd == nil {
		start := now
		end := endOfNextMonth(now)
		p.SpecialStart = &start
		p.SpecialEnd = &end
	}
	p.UpdatedAt = time.Now()
	return nil
}

// ClearSpecialPercentage removes the derived special price and its window.
func (p *Price) ClearSpecialPercentage() {
	p.SpecialPercentage = nil
	p.SpecialPrice = nil
	p.SpecialStart = nil
	p.SpecialEnd = nil
	p.UpdatedAt = time.Now()
}

// DeriveChannelPrice builds the price record of a non-default channel from
// this default-channel price: list, rebate and special price each scale by
// the channel factor and round up to the next 0.05 step. The special-price
// window carries over unchanged.
func (p *Price) DeriveChannelPrice(channel *SalesChannel) (*Price, error) {
	derived, err := NewPrice(p.ProductID, channel.ID, scaleToStep(p.ListPrice, channel.PriceFactor))
	if err != nil {
		return nil, err
	}

	derived.RebateQuantity = p.RebateQuantity
	if !p.RebatePrice.IsZero() {
		derived.RebatePrice = scaleToStep(p.RebatePrice, channel.PriceFactor)
	}
	if p.SpecialPrice != nil {
		special := scaleToStep(*p.SpecialPrice, channel.PriceFactor)
		derived.SpecialPrice = &special
		derived.SpecialStart = p.SpecialStart
		derived.SpecialEnd = p.SpecialEnd
	}
	return derived, nil
}

func scaleToStep(price, factor decimal.Decimal) decimal.Decimal {
	return RoundUpToStep(price.Mul(factor), decimal.NewFromFloat(0.05))
}

// RoundMoney rounds to two decimal places, half away from zero.
func RoundMoney(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// RoundUpToStep rounds v up to the next multiple of step.
func RoundUpToStep(v, step decimal.Decimal) decimal.Decimal {
	quotient := v.Div(step)
	ceiled := quotient.Ceil()
	return ceiled.Mul(step)
}

// endOfNextMonth is the last instant of the calendar month after now.
func endOfNextMonth(now time.Time) time.Time {
	firstOfThis := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	firstAfterNext := firstOfThis.AddDate(0, 2, 0)
	return firstAfterNext.Add(-time.Nanosecond)
}
