// Package partysync reconciles customers and their addresses between the
// local store and the legacy system. Pull mirrors a legacy customer into the
// local store; Push writes a local customer back, allocating legacy numbers
// on first contact.
package partysync

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Get-Company/GC-Bridge-4/internal/domain/party"
	"github.com/Get-Company/GC-Bridge-4/internal/domain/shared"
	"github.com/Get-Company/GC-Bridge-4/internal/erp"
)

// contactSequenceCap bounds the contact range scan under one address row.
const contactSequenceCap = 20

// PullService mirrors a legacy customer, its address rows and their first
// contact person into the local store.
type PullService struct {
	customers party.CustomerRepository
	addresses party.AddressRepository
	sessions  erp.SessionFactory
	logger    *zap.Logger
}

// NewPullService creates a new PullService
func NewPullService(
	customers party.CustomerRepository,
	addresses party.AddressRepository,
	sessions erp.SessionFactory,
	logger *zap.Logger,
) *PullService {
	return &PullService{
		customers: customers,
		addresses: addresses,
		sessions:  sessions,
		logger:    logger,
	}
}

// contactData is the first contact person under one legacy address row.
type contactData struct {
	aspID     int
	aspNr     int
	title     string
	firstName string
	lastName  string
	email     string
	phone     string
	dept      string
}

// PullCustomer loads the legacy customer with the given number and upserts
// it locally, including every address row in the legacy address book.
// Local addresses whose legacy sequence number no longer exists are removed,
// unless the legacy address book is empty, which is treated as suspicious
// and only logged.
func (s *PullService) PullCustomer(ctx context.Context, erpNr string) (*party.Customer, error) {
	erpNr = strings.TrimSpace(erpNr)
	if erpNr == "" {
		return nil, shared.NewDomainError("INVALID_ERP_NR", "Legacy customer number is required")
	}

	session, err := s.sessions.Open()
	if err != nil {
		return nil, err
	}
	defer session.Close()

	adressen, err := erp.OpenAdressen(session, s.logger)
	if err != nil {
		return nil, err
	}
	if !adressen.Locate(erp.K(erpNr)) {
		return nil, shared.NewDomainError("CUSTOMER_NOT_IN_ERP", "Customer "+erpNr+" not found in the legacy system")
	}

	customerErpNr := strings.TrimSpace(adressen.GetString("AdrNr"))
	if customerErpNr == "" {
		customerErpNr = erpNr
	}

	customer, err := s.upsertCustomerHeader(ctx, adressen, customerErpNr)
	if err != nil {
		return nil, err
	}

	invoiceNr := adressen.GetInt("ReAnsNr")
	shippingNr := adressen.GetInt("LiAnsNr")

	anschriften, err := erp.OpenAnschriften(session, s.logger)
	if err != nil {
		return nil, err
	}
	ansprechpartner, err := erp.OpenAnsprechpartner(session, s.logger)
	if err != nil {
		return nil, err
	}

	var seen []int
	if anschriften.BeginRange(erp.K(customerErpNr, 0), erp.K(customerErpNr, 999)) {
		for !anschriften.RangeAtEnd() {
			ansNr := anschriften.GetInt("AnsNr")
			if ansNr == 0 {
				anschriften.Advance()
				continue
			}
			seen = append(seen, ansNr)

			if strings.TrimSpace(anschriften.GetString("Str")) == "" {
				s.logger.Warn("legacy address row has no street, skipping",
					zap.String("erp_nr", customerErpNr), zap.Int("ans_nr", ansNr))
				anschriften.Advance()
				continue
			}

			contact := s.loadFirstContact(ansprechpartner, customerErpNr, ansNr)
			if err := s.upsertAddress(ctx, customer, anschriften, contact, ansNr, shippingNr, invoiceNr); err != nil {
				return nil, err
			}
			anschriften.Advance()
		}
	}

	if len(seen) == 0 {
		s.logger.Warn("customer has no address rows in the legacy system",
			zap.String("erp_nr", customerErpNr))
		return s.customers.FindByErpNr(ctx, customerErpNr)
	}

	removed, err := s.addresses.DeleteByCustomerNotIn(ctx, customer.ID, seen)
	if err != nil {
		return nil, err
	}
	if removed > 0 {
		s.logger.Info("pruned local addresses no longer present in the legacy system",
			zap.String("erp_nr", customerErpNr), zap.Int64("removed", removed))
	}

	return s.customers.FindByErpNr(ctx, customerErpNr)
}

func (s *PullService) upsertCustomerHeader(ctx context.Context, adressen *erp.Dataset, erpNr string) (*party.Customer, error) {
	name := strings.TrimSpace(adressen.GetString("Na1"))
	if name == "" {
		name = erpNr
	}
	email := strings.TrimSpace(adressen.GetString("EMail1"))

	customer, err := s.customers.FindByErpNr(ctx, erpNr)
	if errors.Is(err, shared.ErrNotFound) {
		customer, err = party.NewCustomer(erpNr, "", name)
	}
	if err != nil {
		return nil, err
	}

	if err := customer.SetContact(name, email, customer.VatID); err != nil {
		// Legacy records carry free-text mail fields; keep the record and
		// drop the unusable address.
		s.logger.Warn("legacy email rejected",
			zap.String("erp_nr", erpNr), zap.String("email", email), zap.Error(err))
		if err := customer.SetContact(name, "", customer.VatID); err != nil {
			return nil, err
		}
	}
	customer.AssignErpID(adressen.GetInt("AdrId"))

	if err := s.customers.Save(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *PullService) upsertAddress(
	ctx context.Context,
	customer *party.Customer,
	anschriften *erp.Dataset,
	contact contactData,
	ansNr, shippingNr, invoiceNr int,
) error {
	stableID := anschriften.GetInt(erp.StableIDField)

	// Stable id first, sequence number second. A row matched by its stable
	// id heals a drifted sequence number on save.
	address, err := s.matchAddress(ctx, customer.ID, stableID, ansNr)
	if errors.Is(err, shared.ErrNotFound) {
		address, err = party.NewAddress(
			customer.ID,
			anschriften.GetString("Str"),
			anschriften.GetString("PLZ"),
			anschriften.GetString("Ort"),
			"",
		)
	}
	if err != nil {
		return err
	}

	if stableID == 0 {
		stableID = ansNr
	}
	address.AssignErpAddressIdentity(stableID, ansNr)
	if contact.aspNr != 0 {
		address.AssignErpContactIdentity(contact.aspID, contact.aspNr)
	}

	address.Name1 = anschriften.GetString("Na1")
	address.Name2 = anschriften.GetString("Na2")
	address.Name3 = anschriften.GetString("Na3")
	address.Street = anschriften.GetString("Str")
	address.PostalCode = anschriften.GetString("PLZ")
	address.City = anschriften.GetString("Ort")
	if code, ok := erp.CountryAlpha2(anschriften.GetInt("Land")); ok {
		address.CountryCode = code
	}
	address.Title = contact.title
	address.FirstName = contact.firstName
	address.LastName = contact.lastName
	address.Department = contact.dept
	address.Phone = contact.phone

	email := strings.TrimSpace(anschriften.GetString("EMail1"))
	if email == "" {
		email = contact.email
	}
	address.Email = email

	address.SetRoles(ansNr == shippingNr, ansNr == invoiceNr)

	return s.addresses.Save(ctx, address)
}

func (s *PullService) matchAddress(ctx context.Context, customerID uuid.UUID, stableID, ansNr int) (*party.Address, error) {
	if stableID != 0 {
		address, err := s.addresses.FindByCustomerAndErpAnsID(ctx, customerID, stableID)
		if err == nil {
			return address, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}
	return s.addresses.FindByCustomerAndErpAnsNr(ctx, customerID, ansNr)
}

// loadFirstContact reads the first contact person under an address row; a
// zero aspNr means the row has none.
func (s *PullService) loadFirstContact(ansprechpartner *erp.Dataset, erpNr string, ansNr int) contactData {
	if !ansprechpartner.BeginRange(erp.K(erpNr, ansNr, 0), erp.K(erpNr, ansNr, contactSequenceCap)) {
		return contactData{}
	}
	return contactData{
		aspID:     ansprechpartner.GetInt(erp.StableIDField),
		aspNr:     ansprechpartner.GetInt("AspNr"),
		title:     ansprechpartner.GetString("Anr"),
		firstName: ansprechpartner.GetString("VNa"),
		lastName:  ansprechpartner.GetString("NNa"),
		email:     ansprechpartner.GetString("EMail1"),
		phone:     ansprechpartner.GetString("Tel1"),
		dept:      ansprechpartner.GetString("Abt"),
	}
}
