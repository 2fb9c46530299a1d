package trade

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Get-Company/GC-Bridge-4/internal/domain/shared"
)

// Order is a webshop order mirrored into the local store. APIID is the
// webshop order id and the idempotency key of the ingest flow; ErpOrderID
// is the legacy document number once the order has been posted.
type Order struct {
	shared.BaseEntity
	APIID            string `gorm:"type:varchar(64);not null;uniqueIndex"`
	APIDeliveryID    string `gorm:"type:varchar(64)"`
	APITransactionID string `gorm:"type:varchar(64)"`
	SalesChannelID   string `gorm:"type:varchar(64);index"`
	OrderNumber      string `gorm:"type:varchar(64);index"`
	// ErpOrderID is the legacy document number (BelegNr), empty until the
	// order has been posted into the legacy system.
	ErpOrderID  string `gorm:"type:varchar(64);index"`
	Description string `gorm:"type:text"`

	TotalPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalTax      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ShippingCosts decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`

	PaymentMethod  string `gorm:"type:varchar(100)"`
	ShippingMethod string `gorm:"type:varchar(100)"`

	// State fields carry the webshop state machine's technical names
	// verbatim, e.g. "open" or "in_progress".
	OrderState    string `gorm:"type:varchar(50)"`
	ShippingState string `gorm:"type:varchar(50)"`
	PaymentState  string `gorm:"type:varchar(50)"`

	PurchaseDate time.Time

	CustomerID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	BillingAddressID  *uuid.UUID `gorm:"type:uuid"`
	ShippingAddressID *uuid.UUID `gorm:"type:uuid"`

	Lines []OrderLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// OrderLine is one position of an order. ErpNr is the legacy article
// number; lines without one are skipped when posting.
type OrderLine struct {
	shared.BaseEntity
	OrderID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ErpNr      string          `gorm:"type:varchar(50)"`
	Name       string          `gorm:"type:varchar(200)"`
	Unit       string          `gorm:"type:varchar(50)"`
	Quantity   int             `gorm:"not null;default:1"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TaxRate    decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0"`
	TaxAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (OrderLine) TableName() string {
	return "order_lines"
}

// NewOrder creates an order for a customer, keyed by the webshop order id.
func NewOrder(apiID string, customerID uuid.UUID) (*Order, error) {
	if strings.TrimSpace(apiID) == "" {
		return nil, shared.NewDomainError("INVALID_API_ID", "Order needs a webshop id")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Order needs a customer")
	}

	return &Order{
		BaseEntity: shared.NewBaseEntity(),
		APIID:      apiID,
		CustomerID: customerID,
	}, nil
}

// AssignErpOrderID records the legacy document number after posting.
func (o *Order) AssignErpOrderID(belegNr string) {
	o.ErpOrderID = strings.TrimSpace(belegNr)
	o.UpdatedAt = time.Now()
}

// ClearErpOrderID drops a stale legacy document mapping so the next post
// re-resolves the document.
func (o *Order) ClearErpOrderID() {
	o.ErpOrderID = ""
	o.UpdatedAt = time.Now()
}

// IsPosted reports whether the order is bound to a legacy document.
func (o *Order) IsPosted() bool {
	return o.ErpOrderID != ""
}

// ReplaceLines swaps the full set of order lines. The ingest flow always
// mirrors the webshop positions wholesale rather than diffing them.
func (o *Order) ReplaceLines(lines []OrderLine) {
	for i := range lines {
		if lines[i].ID == uuid.Nil {
			lines[i].BaseEntity = shared.NewBaseEntity()
		}
		lines[i].OrderID = o.ID
	}
	o.Lines = lines
	o.UpdatedAt = time.Now()
}

// HasShippingCosts reports whether a shipping position must be added when
// posting.
func (o *Order) HasShippingCosts() bool {
	return o.ShippingCosts.GreaterThan(decimal.Zero)
}

// ReferenceNumber is the identifier written into the legacy document
// header, preferring the human-readable order number.
func (o *Order) ReferenceNumber() string {
	if o.OrderNumber != "" {
		return o.OrderNumber
	}
	return o.APIID
}
