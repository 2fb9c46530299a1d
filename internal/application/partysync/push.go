package partysync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Get-Company/GC-Bridge-4/internal/domain/party"
	"github.com/Get-Company/GC-Bridge-4/internal/domain/shared"
	"github.com/Get-Company/GC-Bridge-4/internal/erp"
	"github.com/Get-Company/GC-Bridge-4/internal/infrastructure/shopware"
)

// customerStatusLabel marks records owned by the bridge in the legacy
// customer master.
const customerStatusLabel = "GC-SW6 Webshop Kunde"

// PlatformCustomers is the slice of the webshop client the push flow needs
// to propagate freshly issued customer numbers.
type PlatformCustomers interface {
	GetCustomerByNumber(ctx context.Context, customerNumber string) (map[string]any, error)
	UpdateCustomerNumber(ctx context.Context, customerID, customerNumber string) error
}

// UpsertResult reports the outcome of one customer push.
type UpsertResult struct {
	ErpNr           string
	ShippingAnsNr   int
	BillingAnsNr    int
	IsNewCustomer   bool
	PlatformUpdated bool
}

// PushService writes a local customer into the legacy system: the customer
// master record, one address row per role, and the contact person under
// each address row. New customers get their legacy number issued by the
// store and written back to the webshop.
type PushService struct {
	customers party.CustomerRepository
	addresses party.AddressRepository
	platform  PlatformCustomers
	sessions  erp.SessionFactory
	logger    *zap.Logger
}

// NewPushService creates a new PushService. platform may be nil; the
// webshop write-back is then skipped.
func NewPushService(
	customers party.CustomerRepository,
	addresses party.AddressRepository,
	platform PlatformCustomers,
	sessions erp.SessionFactory,
	logger *zap.Logger,
) *PushService {
	return &PushService{
		customers: customers,
		addresses: addresses,
		platform:  platform,
		sessions:  sessions,
		logger:    logger,
	}
}

// PushCustomer pushes the customer using its default addresses.
func (s *PushService) PushCustomer(ctx context.Context, customer *party.Customer) (*UpsertResult, error) {
	return s.PushCustomerWithAddresses(ctx, customer, nil, nil)
}

// PushCustomerWithAddresses pushes the customer using explicit shipping and
// billing addresses, as the order posting flow does. Nil falls back to the
// customer's default addresses; a missing billing side falls back to the
// shipping side.
func (s *PushService) PushCustomerWithAddresses(
	ctx context.Context,
	customer *party.Customer,
	shipping, billing *party.Address,
) (*UpsertResult, error) {
	if customer == nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer is required")
	}

	if shipping == nil {
		shipping = customer.ShippingAddress()
	}
	if shipping == nil && len(customer.Addresses) > 0 {
		shipping = &customer.Addresses[0]
	}
	if shipping == nil {
		return nil, shared.NewDomainError("NO_ADDRESS", "Customer has no address to sync")
	}
	if billing == nil {
		billing = customer.BillingAddress()
	}
	if billing == nil {
		billing = shipping
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
	anschriften, err := erp.OpenAnschriften(session, s.logger)
	if err != nil {
		return nil, err
	}
	ansprechpartner, err := erp.OpenAnsprechpartner(session, s.logger)
	if err != nil {
		return nil, err
	}

	erpNr, isNew, err := s.upsertCustomerMaster(ctx, customer, shipping, adressen)
	if err != nil {
		return nil, err
	}

	addressResolver := erp.NewIdentityResolver(anschriften, "AnsNr")
	contactResolver := erp.NewIdentityResolver(ansprechpartner, "AspNr")

	s.resetAddressDefaultFlags(anschriften, erpNr)

	sameAddress := billing.ID == shipping.ID
	shippingAnsNr := s.determineAnsNr(ctx, erpNr, shipping, addressResolver, nil)
	billingAnsNr := shippingAnsNr
	if !sameAddress {
		billingAnsNr = s.determineAnsNr(ctx, erpNr, billing, addressResolver, map[int]bool{shippingAnsNr: true})
	}

	if err := s.upsertAddressRow(ctx, erpNr, shipping, shippingAnsNr, true, sameAddress, anschriften, ansprechpartner, contactResolver); err != nil {
		return nil, err
	}
	if !sameAddress {
		if err := s.upsertAddressRow(ctx, erpNr, billing, billingAnsNr, false, true, anschriften, ansprechpartner, contactResolver); err != nil {
			return nil, err
		}
	}

	// The default address numbers live on the customer master record.
	if !adressen.Locate(erp.K(erpNr)) {
		return nil, shared.NewDomainError("CUSTOMER_NOT_IN_ERP", "Customer "+erpNr+" vanished during push")
	}
	if err := adressen.BeginEdit(); err != nil {
		return nil, err
	}
	adressen.SetField("LiAnsNr", shippingAnsNr)
	adressen.SetField("ReAnsNr", billingAnsNr)
	if err := adressen.Commit(); err != nil {
		return nil, err
	}

	result := &UpsertResult{
		ErpNr:         erpNr,
		ShippingAnsNr: shippingAnsNr,
		BillingAnsNr:  billingAnsNr,
		IsNewCustomer: isNew,
	}

	if isNew {
		updated, err := s.propagateCustomerNumber(ctx, customer, erpNr)
		if err != nil {
			return nil, err
		}
		result.PlatformUpdated = updated
	}

	return result, nil
}

// upsertCustomerMaster creates or updates the legacy customer master record
// and returns the issued or existing customer number.
func (s *PushService) upsertCustomerMaster(
	ctx context.Context,
	customer *party.Customer,
	shipping *party.Address,
	adressen *erp.Dataset,
) (string, bool, error) {
	existing := strings.TrimSpace(customer.ErpNr)
	exists := existing != "" && adressen.Locate(erp.K(existing))

	var erpNr string
	if exists {
		if err := adressen.BeginEdit(); err != nil {
			return "", false, err
		}
		erpNr = existing
	} else {
		if err := adressen.BeginInsert(); err != nil {
			return "", false, err
		}
		erpNr = adressen.NextNumber()
		if erpNr == "" {
			return "", false, shared.NewDomainError("NO_ERP_NR", "The legacy system did not issue a customer number")
		}
		adressen.SetField("AdrNr", erpNr)
	}

	adressen.SetField("Status", customerStatusLabel)
	if customer.VatID != "" {
		adressen.SetField("UStIdNr", customer.VatID)
	}
	adressen.SetField("UStKat", party.ResolveTaxCategory(shipping.CountryCode, customer.VatID))
	if err := adressen.Commit(); err != nil {
		return "", false, err
	}

	if customer.ErpNr != erpNr {
		if err := customer.AssignErpNr(erpNr); err != nil {
			return "", false, err
		}
		if err := s.customers.Save(ctx, customer); err != nil {
			return "", false, err
		}
	}

	return erpNr, !exists, nil
}

// resetAddressDefaultFlags clears the default shipping and invoice markers
// on every address row of the customer; the push sets them fresh afterwards.
func (s *PushService) resetAddressDefaultFlags(anschriften *erp.Dataset, erpNr string) {
	if !anschriften.BeginRange(erp.K(erpNr, 0), erp.K(erpNr, 999)) {
		return
	}
	for !anschriften.RangeAtEnd() {
		if err := anschriften.BeginEdit(); err != nil {
			s.logger.Warn("could not edit address row", zap.Error(err))
			anschriften.Advance()
			continue
		}
		anschriften.SetField("StdLiKz", false)
		anschriften.SetField("StdReKz", false)
		if err := anschriften.Commit(); err != nil {
			s.logger.Warn("could not reset default flags", zap.Error(err))
		}
		anschriften.Advance()
	}
}

// determineAnsNr resolves the legacy sequence number of an address,
// preferring its persisted identity and allocating the next free one
// otherwise. Recovered identity is persisted immediately.
func (s *PushService) determineAnsNr(
	ctx context.Context,
	erpNr string,
	address *party.Address,
	resolver *erp.IdentityResolver,
	reserved map[int]bool,
) int {
	res := resolver.Resolve(erp.K(erpNr), erp.CandidateKeys{
		StableID: address.ErpAnsID,
		Sequence: address.ErpAnsNr,
	})
	if res.Found && res.Sequence != 0 && !reserved[res.Sequence] {
		if res.StableID != address.ErpAnsID || res.Sequence != address.ErpAnsNr {
			address.AssignErpAddressIdentity(res.StableID, res.Sequence)
			if err := s.addresses.Save(ctx, address); err != nil {
				s.logger.Warn("could not persist recovered address identity", zap.Error(err))
			}
		}
		return res.Sequence
	}
	return resolver.AllocateSequence(erp.K(erpNr), reserved)
}

// upsertAddressRow writes one address row and its contact person.
func (s *PushService) upsertAddressRow(
	ctx context.Context,
	erpNr string,
	address *party.Address,
	ansNr int,
	isShipping, isInvoice bool,
	anschriften, ansprechpartner *erp.Dataset,
	contactResolver *erp.IdentityResolver,
) error {
	found := false
	if address.ErpAnsID != 0 && anschriften.Locate(erp.K(address.ErpAnsID), erp.StableIDField) {
		found = true
	} else if anschriften.Locate(erp.K(erpNr, ansNr)) {
		found = true
	}

	if found {
		if err := anschriften.BeginEdit(); err != nil {
			return err
		}
	} else {
		if err := anschriften.BeginInsert(); err != nil {
			return err
		}
		anschriften.SetField("AnsNr", ansNr)
	}

	anschriften.SetField("AdrNr", erpNr)
	anschriften.SetField("Na1", firstNonEmpty(address.Title, address.Name1))
	anschriften.SetField("Na2", firstNonEmpty(address.Name1, address.Name2))
	anschriften.SetField("Na3", firstNonEmpty(address.Name2, address.Name3))
	anschriften.SetField("Str", address.Street)
	anschriften.SetField("PLZ", address.PostalCode)
	anschriften.SetField("Ort", address.City)
	anschriften.SetField("EMail1", address.Email)
	anschriften.SetField("Tel", address.Phone)
	anschriften.SetField("Abt", address.Department)
	if land, ok := erp.CountryNumeric(address.CountryCode); ok {
		anschriften.SetField("Land", land)
	}
	anschriften.SetField("StdLiKz", isShipping)
	anschriften.SetField("StdReKz", isInvoice)
	if err := anschriften.Commit(); err != nil {
		return err
	}

	resolvedNr := anschriften.GetInt("AnsNr")
	if resolvedNr == 0 {
		resolvedNr = ansNr
	}
	address.AssignErpAddressIdentity(anschriften.GetInt(erp.StableIDField), resolvedNr)
	if err := s.addresses.Save(ctx, address); err != nil {
		return err
	}

	return s.upsertContact(ctx, erpNr, resolvedNr, address, ansprechpartner, contactResolver)
}

// upsertContact writes the contact person under an address row and marks it
// as the default contact.
func (s *PushService) upsertContact(
	ctx context.Context,
	erpNr string,
	ansNr int,
	address *party.Address,
	ansprechpartner *erp.Dataset,
	resolver *erp.IdentityResolver,
) error {
	if ansNr == 0 {
		return shared.NewDomainError("INVALID_ANS_NR", "Contact upsert needs an address sequence number")
	}

	s.resetContactDefaultFlags(ansprechpartner, erpNr, ansNr)

	res := resolver.Resolve(erp.K(erpNr, ansNr), erp.CandidateKeys{
		StableID: address.ErpAspID,
		Sequence: address.ErpAspNr,
	})
	aspNr := res.Sequence
	if !res.Found || aspNr == 0 {
		aspNr = resolver.AllocateSequence(erp.K(erpNr, ansNr), nil)
	}

	found := false
	if address.ErpAspID != 0 && ansprechpartner.Locate(erp.K(address.ErpAspID), erp.StableIDField) {
		found = true
	} else if ansprechpartner.Locate(erp.K(erpNr, ansNr, aspNr)) {
		found = true
	}

	if found {
		if err := ansprechpartner.BeginEdit(); err != nil {
			return err
		}
	} else {
		if err := ansprechpartner.BeginInsert(); err != nil {
			return err
		}
		ansprechpartner.SetField("AspNr", aspNr)
	}

	first, last := address.ContactFullName()
	ansprechpartner.SetField("AdrNr", erpNr)
	ansprechpartner.SetField("AnsNr", ansNr)
	ansprechpartner.SetField("Anr", address.Title)
	ansprechpartner.SetField("VNa", first)
	ansprechpartner.SetField("NNa", last)
	ansprechpartner.SetField("AnspAufbau", 6)
	ansprechpartner.SetField("Ansp", strings.TrimSpace(first+" "+last))
	ansprechpartner.SetField("EMail1", address.Email)
	ansprechpartner.SetField("Tel1", address.Phone)
	ansprechpartner.SetField("Abt", address.Department)
	ansprechpartner.SetField("StdKz", true)
	if err := ansprechpartner.Commit(); err != nil {
		return err
	}

	resolvedAspNr := ansprechpartner.GetInt("AspNr")
	if resolvedAspNr == 0 {
		resolvedAspNr = aspNr
	}
	address.AssignErpContactIdentity(ansprechpartner.GetInt(erp.StableIDField), resolvedAspNr)
	return s.addresses.Save(ctx, address)
}

func (s *PushService) resetContactDefaultFlags(ansprechpartner *erp.Dataset, erpNr string, ansNr int) {
	if !ansprechpartner.BeginRange(erp.K(erpNr, ansNr, 0), erp.K(erpNr, ansNr, 999)) {
		return
	}
	for !ansprechpartner.RangeAtEnd() {
		if err := ansprechpartner.BeginEdit(); err != nil {
			ansprechpartner.Advance()
			continue
		}
		ansprechpartner.SetField("StdKz", false)
		if err := ansprechpartner.Commit(); err != nil {
			s.logger.Warn("could not reset contact default flag", zap.Error(err))
		}
		ansprechpartner.Advance()
	}
}

// propagateCustomerNumber writes a freshly issued customer number onto the
// webshop customer. A number already bound to a different webshop customer
// is a hard conflict.
func (s *PushService) propagateCustomerNumber(ctx context.Context, customer *party.Customer, erpNr string) (bool, error) {
	if s.platform == nil {
		s.logger.Warn("no webshop client configured, customer number not propagated",
			zap.String("erp_nr", erpNr))
		return false, nil
	}
	if customer.APIID == "" {
		s.logger.Warn("webshop update skipped, customer has no webshop id",
			zap.String("erp_nr", erpNr), zap.String("customer_id", customer.ID.String()))
		return false, nil
	}

	existing, err := s.platform.GetCustomerByNumber(ctx, erpNr)
	switch {
	case errors.Is(err, shopware.ErrNotFound):
		// Number is free.
	case err != nil:
		return false, err
	default:
		existingID, _ := existing["id"].(string)
		if existingID != "" && existingID != customer.APIID {
			return false, fmt.Errorf("partysync: customer number %q is already used by webshop customer %q", erpNr, existingID)
		}
	}

	if err := s.platform.UpdateCustomerNumber(ctx, customer.APIID, erpNr); err != nil {
		return false, err
	}
	s.logger.Info("webshop customer bound to legacy customer number",
		zap.String("customer_id", customer.APIID), zap.String("erp_nr", erpNr))
	return true, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
