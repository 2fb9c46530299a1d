package party

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Get-Company/GC-Bridge-4/internal/domain/shared"
)

// Address is one postal address of a customer, together with its optional
// contact person. The legacy system splits these into two nested datasets
// (address rows and contact rows); locally they are one record, so the
// mapping fields come in two groups: ErpAns* for the address row and
// ErpAsp* for the contact row.
type Address struct {
	shared.BaseEntity
	CustomerID uuid.UUID `gorm:"type:uuid;not null;index"`
	// APIID is the webshop address id this record was ingested from.
	APIID string `gorm:"type:varchar(64);index"`

	// Legacy address row identity: opaque record id and sequence number
	// under the customer. Zero means not yet synced.
	ErpAnsID int `gorm:"index"`
	ErpAnsNr int
	// Legacy contact row identity.
	ErpAspID int `gorm:"index"`
	ErpAspNr int

	Title      string `gorm:"type:varchar(50)"`
	FirstName  string `gorm:"type:varchar(100)"`
	LastName   string `gorm:"type:varchar(100)"`
	Name1      string `gorm:"type:varchar(200)"`
	Name2      string `gorm:"type:varchar(200)"`
	Name3      string `gorm:"type:varchar(200)"`
	Department string `gorm:"type:varchar(100)"`
	Street     string `gorm:"type:varchar(200)"`
	PostalCode string `gorm:"type:varchar(20)"`
	City       string `gorm:"type:varchar(100)"`
	// CountryCode is the ISO 3166-1 alpha-2 code, e.g. "DE".
	CountryCode string `gorm:"type:varchar(2)"`
	Email       string `gorm:"type:varchar(200)"`
	Phone       string `gorm:"type:varchar(50)"`

	IsShipping bool `gorm:"not null;default:false"`
	IsInvoice  bool `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (Address) TableName() string {
	return "addresses"
}

// NewAddress creates an address for a customer.
func NewAddress(customerID uuid.UUID, street, postalCode, city, countryCode string) (*Address, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Address needs a customer")
	}
	if strings.TrimSpace(street) == "" {
		return nil, shared.NewDomainError("INVALID_STREET", "Street cannot be empty")
	}

	return &Address{
		BaseEntity:  shared.NewBaseEntity(),
		CustomerID:  customerID,
		Street:      street,
		PostalCode:  postalCode,
		City:        city,
		CountryCode: strings.ToUpper(strings.TrimSpace(countryCode)),
	}, nil
}

// AssignErpAddressIdentity records the legacy address row keys. Both
// components are written together so a drifted pair cannot survive.
func (a *Address) AssignErpAddressIdentity(ansID, ansNr int) {
	a.ErpAnsID = ansID
	a.ErpAnsNr = ansNr
	a.UpdatedAt = time.Now()
}

// AssignErpContactIdentity records the legacy contact row keys.
func (a *Address) AssignErpContactIdentity(aspID, aspNr int) {
	a.ErpAspID = aspID
	a.ErpAspNr = aspNr
	a.UpdatedAt = time.Now()
}

// SetRoles marks the address as default shipping and/or invoice address.
func (a *Address) SetRoles(shipping, invoice bool) {
	a.IsShipping = shipping
	a.IsInvoice = invoice
	a.UpdatedAt = time.Now()
}

// ContactFullName returns "first last" for the legacy contact salutation
// line, falling back to splitting the company lines when the person names
// are missing.
func (a *Address) ContactFullName() (first, last string) {
	first = strings.TrimSpace(a.FirstName)
	last = strings.TrimSpace(a.LastName)
	if first != "" || last != "" {
		return first, last
	}

	source := strings.TrimSpace(a.Name2)
	if source == "" {
		source = strings.TrimSpace(a.Name1)
	}
	if source == "" {
		return "", ""
	}
	if idx := strings.IndexByte(source, ' '); idx > 0 {
		return source[:idx], strings.TrimSpace(source[idx+1:])
	}
	return "", source
}

// LooksLikeCompany reports whether the name lines describe an organization
// rather than a person. A bare salutation in the first line, or person
// names without a distinct company line, mean a private customer.
func (a *Address) LooksLikeCompany() bool {
	name1 := strings.TrimSpace(a.Name1)
	if name1 == "" {
		return false
	}
	if salutations[strings.ToLower(name1)] {
		return false
	}
	name2 := strings.TrimSpace(a.Name2)
	if name2 != "" && name1 == name2 {
		return true
	}
	if strings.TrimSpace(a.FirstName) != "" || strings.TrimSpace(a.LastName) != "" {
		return false
	}
	return true
}

var salutations = map[string]bool{
	"frau":     true,
	"herr":     true,
	"mr":       true,
	"mrs":      true,
	"ms":       true,
	"miss":     true,
	"madam":    true,
	"madame":   true,
	"monsieur": true,
	"weiblich": true,
	"male":     true,
	"female":   true,
}
