package party

import (
	"regexp"
	"strings"
	"time"

	"github.com/Get-Company/GC-Bridge-4/internal/domain/shared"
)

// Customer is the aggregate root of the party context. One customer is the
// same real-world party in the local store, in the webshop, and in the
// legacy system; the three identifier fields carry one key per system.
type Customer struct {
	shared.BaseEntity
	// ErpNr is the legacy customer number, e.g. "10042". Empty until the
	// customer has been pushed to the legacy system at least once.
	ErpNr string `gorm:"type:varchar(50);uniqueIndex:idx_customer_erp_nr,where:erp_nr <> ''"`
	// ErpID is the legacy internal record id (AdrId), nil when unknown.
	ErpID *int `gorm:"uniqueIndex:idx_customer_erp_id,where:erp_id is not null"`
	// APIID is the webshop customer id, empty for legacy-only customers.
	APIID     string `gorm:"type:varchar(64);index"`
	Name      string `gorm:"type:varchar(200);not null"`
	Email     string `gorm:"type:varchar(200);index"`
	VatID     string `gorm:"type:varchar(50)"`
	// IsGross indicates that webshop prices for this customer include tax.
	IsGross   bool   `gorm:"not null;default:true"`
	Addresses []Address `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (Customer) TableName() string {
	return "customers"
}

// NewCustomer creates a customer with the minimum identity the sync flows
// require: at least one of the three system keys must be present.
func NewCustomer(erpNr, apiID, name string) (*Customer, error) {
	if erpNr == "" && apiID == "" {
		return nil, shared.NewDomainError("MISSING_KEY", "Customer needs a legacy number or a webshop id")
	}
	if err := validatePartyName(name); err != nil {
		return nil, err
	}

	return &Customer{
		BaseEntity: shared.NewBaseEntity(),
		ErpNr:      erpNr,
		APIID:      apiID,
		Name:       name,
		IsGross:    true,
	}, nil
}

// AssignErpNr records the legacy customer number after the first push.
func (c *Customer) AssignErpNr(erpNr string) error {
	erpNr = strings.TrimSpace(erpNr)
	if erpNr == "" {
		return shared.NewDomainError("INVALID_ERP_NR", "Legacy customer number cannot be empty")
	}
	if c.ErpNr != "" && c.ErpNr != erpNr {
		return shared.NewDomainError("ERP_NR_CONFLICT", "Customer is already bound to legacy number "+c.ErpNr)
	}
	c.ErpNr = erpNr
	c.UpdatedAt = time.Now()
	return nil
}

// AssignErpID records the legacy internal record id.
func (c *Customer) AssignErpID(erpID int) {
	if erpID == 0 {
		return
	}
	c.ErpID = &erpID
	c.UpdatedAt = time.Now()
}

// SetContact updates name, email and VAT id in one step.
func (c *Customer) SetContact(name, email, vatID string) error {
	if err := validatePartyName(name); err != nil {
		return err
	}
	if email != "" {
		if err := validatePartyEmail(email); err != nil {
			return err
		}
	}
	c.Name = name
	c.Email = email
	c.VatID = vatID
	c.UpdatedAt = time.Now()
	return nil
}

// HasErpNr reports whether the customer is known to the legacy system.
func (c *Customer) HasErpNr() bool {
	return strings.TrimSpace(c.ErpNr) != ""
}

// BillingAddress returns the default invoice address, nil when none is set.
func (c *Customer) BillingAddress() *Address {
	for i := range c.Addresses {
		if c.Addresses[i].IsInvoice {
			return &c.Addresses[i]
		}
	}
	return nil
}

// ShippingAddress returns the default delivery address, nil when none is set.
func (c *Customer) ShippingAddress() *Address {
	for i := range c.Addresses {
		if c.Addresses[i].IsShipping {
			return &c.Addresses[i]
		}
	}
	return nil
}

func validatePartyName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Name cannot exceed 200 characters")
	}
	return nil
}

var partyEmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func validatePartyEmail(email string) error {
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !partyEmailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}
