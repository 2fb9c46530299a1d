package ordersync

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Get-Company/GC-Bridge-4/internal/domain/catalog"
	"github.com/Get-Company/GC-Bridge-4/internal/domain/party"
	"github.com/Get-Company/GC-Bridge-4/internal/domain/shared"
	"github.com/Get-Company/GC-Bridge-4/internal/domain/trade"
)

// PlatformOrders is the slice of the webshop client the ingest flow needs.
type PlatformOrders interface {
	ListAllOpenOrders(ctx context.Context, salesChannelID string) ([]map[string]any, error)
	GetCustomerByID(ctx context.Context, customerID string) (map[string]any, error)
}

// IngestSummary reports the counters of one ingest run.
type IngestSummary struct {
	OrdersSeen        int
	OrdersCreated     int
	OrdersUpdated     int
	OrdersFailed      int
	AddressesUpserted int
	DetailsUpserted   int
}

// UpsertOutcome reports the result of mirroring a single order.
type UpsertOutcome struct {
	Order             *trade.Order
	Created           bool
	AddressesUpserted int
	DetailsUpserted   int
}

// customerCache holds webshop customer payloads for the duration of one
// ingest run, so a customer with many open orders is fetched once.
type customerCache map[string]map[string]any

// IngestService mirrors open webshop orders, their customers and addresses
// into the local store. The webshop order id is the idempotency key; a
// re-run updates the same records.
type IngestService struct {
	orders    trade.OrderRepository
	customers party.CustomerRepository
	addresses party.AddressRepository
	channels  catalog.SalesChannelRepository
	platform  PlatformOrders
	logger    *zap.Logger
}

// NewIngestService creates a new IngestService
func NewIngestService(
	orders trade.OrderRepository,
	customers party.CustomerRepository,
	addresses party.AddressRepository,
	channels catalog.SalesChannelRepository,
	platform PlatformOrders,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		orders:    orders,
		customers: customers,
		addresses: addresses,
		channels:  channels,
		platform:  platform,
		logger:    logger,
	}
}

// SyncOpenOrders ingests the open orders of the given sales channels, all
// active channels when none are given. limitOrders bounds the total number
// of orders looked at; zero means no limit. A failing order is counted and
// skipped, it never aborts the run.
func (s *IngestService) SyncOpenOrders(ctx context.Context, salesChannelIDs []string, limitOrders int) (*IngestSummary, error) {
	if len(salesChannelIDs) == 0 {
		active, err := s.channels.FindActive(ctx)
		if err != nil {
			return nil, err
		}
		for _, channel := range active {
			if channel.SalesChannelID != "" {
				salesChannelIDs = append(salesChannelIDs, channel.SalesChannelID)
			}
		}
	}
	if len(salesChannelIDs) == 0 {
		return nil, shared.NewDomainError("NO_SALES_CHANNELS", "No active sales channels configured")
	}

	cache := make(customerCache)
	summary := &IngestSummary{}

	for _, salesChannelID := range salesChannelIDs {
		rows, err := s.platform.ListAllOpenOrders(ctx, salesChannelID)
		if err != nil {
			return summary, err
		}
		s.logger.Info("open orders fetched",
			zap.String("sales_channel_id", salesChannelID), zap.Int("count", len(rows)))

		for _, row := range rows {
			if limitOrders > 0 && summary.OrdersSeen >= limitOrders {
				return summary, nil
			}
			summary.OrdersSeen++

			outcome, err := s.upsertOrder(ctx, cache, salesChannelID, row)
			if err != nil {
				summary.OrdersFailed++
				s.logger.Error("order upsert failed",
					zap.String("sales_channel_id", salesChannelID), zap.Error(err))
				continue
			}
			if outcome.Created {
				summary.OrdersCreated++
			} else {
				summary.OrdersUpdated++
			}
			summary.AddressesUpserted += outcome.AddressesUpserted
			summary.DetailsUpserted += outcome.DetailsUpserted
		}
	}

	return summary, nil
}

// UpsertFromPlatformOrder mirrors a single webshop order payload.
func (s *IngestService) UpsertFromPlatformOrder(ctx context.Context, orderData map[string]any, salesChannelID string) (*UpsertOutcome, error) {
	return s.upsertOrder(ctx, make(customerCache), salesChannelID, orderData)
}

func (s *IngestService) upsertOrder(ctx context.Context, cache customerCache, salesChannelID string, orderData map[string]any) (*UpsertOutcome, error) {
	data := normalizeMap(orderData)

	orderID := toStr(data["id"])
	if orderID == "" {
		return nil, shared.NewDomainError("MISSING_ORDER_ID", "Webshop order has no id")
	}

	customer, billing, shipping, addressCount, err := s.upsertCustomerBlock(ctx, cache, data)
	if err != nil {
		return nil, err
	}

	price := asMap(data["price"])
	totalTax := toDecimal(nil)
	for _, tax := range asList(price["calculatedTaxes"]) {
		totalTax = totalTax.Add(toDecimal(asMap(tax)["tax"]))
	}

	delivery := firstMap(data["deliveries"])
	transaction := firstMap(data["transactions"])

	created := false
	order, err := s.orders.FindByAPIID(ctx, orderID)
	if errors.Is(err, shared.ErrNotFound) {
		order, err = trade.NewOrder(orderID, customer.ID)
		created = true
	}
	if err != nil {
		return nil, err
	}

	order.CustomerID = customer.ID
	order.APIDeliveryID = toStr(delivery["id"])
	order.APITransactionID = toStr(transaction["id"])
	order.SalesChannelID = salesChannelID
	if order.SalesChannelID == "" {
		order.SalesChannelID = toStr(data["salesChannelId"])
	}
	order.OrderNumber = toStr(data["orderNumber"])
	order.Description = toStr(data["customerComment"])
	order.TotalPrice = toDecimal(price["totalPrice"])
	order.TotalTax = totalTax
	order.ShippingCosts = toDecimal(data["shippingTotal"])
	order.PaymentMethod = toStr(asMap(transaction["paymentMethod"])["name"])
	order.ShippingMethod = toStr(asMap(delivery["shippingMethod"])["name"])
	order.OrderState = toStr(asMap(data["stateMachineState"])["technicalName"])
	order.ShippingState = toStr(asMap(delivery["stateMachineState"])["technicalName"])
	order.PaymentState = toStr(asMap(transaction["stateMachineState"])["technicalName"])
	if purchased := parseAPITime(data["createdAt"]); !purchased.IsZero() {
		order.PurchaseDate = purchased
	}
	if billing != nil {
		order.BillingAddressID = &billing.ID
	}
	if shipping != nil {
		order.ShippingAddressID = &shipping.ID
	}

	lines := buildOrderLines(data["lineItems"])
	order.ReplaceLines(lines)

	if err := s.orders.SaveWithLines(ctx, order); err != nil {
		return nil, err
	}

	return &UpsertOutcome{
		Order:             order,
		Created:           created,
		AddressesUpserted: addressCount,
		DetailsUpserted:   len(lines),
	}, nil
}

// upsertCustomerBlock mirrors the ordering customer and the order's billing
// and shipping addresses, falling back to the customer's webshop default
// addresses when the order carries none.
func (s *IngestService) upsertCustomerBlock(
	ctx context.Context,
	cache customerCache,
	data map[string]any,
) (*party.Customer, *party.Address, *party.Address, int, error) {
	orderCustomer := asMap(data["orderCustomer"])

	customerID := toStr(orderCustomer["customerId"])
	if customerID == "" {
		customerID = toStr(asMap(orderCustomer["customer"])["id"])
	}
	payload := s.loadPlatformCustomer(ctx, cache, customerID)
	if customerID == "" {
		customerID = toStr(payload["id"])
	}

	customerNumber := toStr(orderCustomer["customerNumber"])
	if customerNumber == "" {
		customerNumber = toStr(payload["customerNumber"])
	}
	if customerNumber == "" && customerID != "" {
		short := customerID
		if len(short) > 12 {
			short = short[:12]
		}
		customerNumber = "sw6-" + short
	}
	if customerNumber == "" {
		return nil, nil, nil, 0, shared.NewDomainError("MISSING_CUSTOMER_KEY", "Order has no customerNumber or customerId")
	}

	nested := payload
	if nested == nil {
		nested = asMap(orderCustomer["customer"])
	}

	customer, err := s.findOrCreateCustomer(ctx, customerNumber, customerID, orderCustomer, nested)
	if err != nil {
		return nil, nil, nil, 0, err
	}

	name := firstNonEmptyStr(
		toStr(nested["firstName"]),
		toStr(orderCustomer["firstName"]),
		customer.Name,
		customerNumber,
	)
	email := firstNonEmptyStr(toStr(orderCustomer["email"]), toStr(nested["email"]), customer.Email)
	vatID := customer.VatID
	if vatIDs := asList(nested["vatIds"]); len(vatIDs) > 0 {
		if v := toStr(vatIDs[0]); v != "" {
			vatID = v
		}
	}

	if err := customer.SetContact(name, email, vatID); err != nil {
		s.logger.Warn("webshop email rejected",
			zap.String("customer_number", customerNumber), zap.String("email", email), zap.Error(err))
		if err := customer.SetContact(name, "", vatID); err != nil {
			return nil, nil, nil, 0, err
		}
	}
	if customerID != "" && customer.APIID == "" {
		customer.APIID = customerID
	}
	if group := asMap(nested["group"]); group != nil {
		customer.IsGross = toBool(group["displayGross"], true)
	}
	if err := s.customers.Save(ctx, customer); err != nil {
		return nil, nil, nil, 0, err
	}

	upserted := make(map[uuid.UUID]bool)

	billing, err := s.upsertOrderAddress(ctx, customer, asMap(data["billingAddress"]), customer.Email, true, false, upserted)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	shipping, err := s.upsertOrderAddress(ctx, customer, asMap(firstMap(data["deliveries"])["shippingOrderAddress"]), customer.Email, false, true, upserted)
	if err != nil {
		return nil, nil, nil, 0, err
	}

	defaultBilling, defaultShipping, err := s.upsertDefaultAddresses(ctx, customer, payload, upserted)
	if err != nil {
		return nil, nil, nil, 0, err
	}

	// An order with only one address side serves both roles.
	if shipping != nil && billing == nil {
		shipping.SetRoles(true, true)
		if err := s.addresses.Save(ctx, shipping); err != nil {
			return nil, nil, nil, 0, err
		}
		billing = shipping
	}
	if billing != nil && shipping == nil {
		billing.SetRoles(true, true)
		if err := s.addresses.Save(ctx, billing); err != nil {
			return nil, nil, nil, 0, err
		}
		shipping = billing
	}

	if billing == nil {
		billing = defaultBilling
	}
	if shipping == nil {
		shipping = defaultShipping
	}

	return customer, billing, shipping, len(upserted), nil
}

func (s *IngestService) findOrCreateCustomer(
	ctx context.Context,
	customerNumber, customerID string,
	orderCustomer, nested map[string]any,
) (*party.Customer, error) {
	customer, err := s.customers.FindByErpNr(ctx, customerNumber)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	if customerID != "" {
		customer, err = s.customers.FindByAPIID(ctx, customerID)
		if err == nil {
			return customer, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}

	name := firstNonEmptyStr(
		toStr(nested["firstName"]),
		toStr(orderCustomer["firstName"]),
		customerNumber,
	)
	return party.NewCustomer(customerNumber, customerID, name)
}

// loadPlatformCustomer fetches the full webshop customer once per run; a
// failing lookup degrades to the data carried on the order itself.
func (s *IngestService) loadPlatformCustomer(ctx context.Context, cache customerCache, customerID string) map[string]any {
	if customerID == "" {
		return nil
	}
	if payload, ok := cache[customerID]; ok {
		return payload
	}

	raw, err := s.platform.GetCustomerByID(ctx, customerID)
	var payload map[string]any
	if err != nil {
		s.logger.Warn("webshop customer lookup failed",
			zap.String("customer_id", customerID), zap.Error(err))
	} else {
		payload = normalizeMap(raw)
	}
	cache[customerID] = payload
	return payload
}

// upsertOrderAddress mirrors one webshop address onto the customer. Without
// a webshop address id match, the customer's existing address in the same
// role is reused, preferring one already mapped to the legacy system.
func (s *IngestService) upsertOrderAddress(
	ctx context.Context,
	customer *party.Customer,
	data map[string]any,
	fallbackEmail string,
	isInvoice, isShipping bool,
	upserted map[uuid.UUID]bool,
) (*party.Address, error) {
	if data == nil {
		return nil, nil
	}

	apiID := toStr(data["id"])
	existing, err := s.addresses.FindByCustomer(ctx, customer.ID)
	if err != nil {
		return nil, err
	}

	address := matchAddress(existing, apiID, isInvoice, isShipping)
	if address == nil {
		street := toStr(data["street"])
		if street == "" {
			s.logger.Warn("webshop address has no street, skipped",
				zap.String("customer_id", customer.ID.String()), zap.String("api_id", apiID))
			return nil, nil
		}
		address, err = party.NewAddress(customer.ID, street, toStr(data["zipcode"]), toStr(data["city"]), "")
		if err != nil {
			return nil, err
		}
	}

	if apiID != "" {
		address.APIID = apiID
	}

	country := asMap(data["country"])
	salutation := asMap(data["salutation"])
	company := toStr(data["company"])
	salutationName := toStr(salutation["displayName"])
	fullName := strings.TrimSpace(toStr(data["firstName"]) + " " + toStr(data["lastName"]))

	address.Name1 = firstNonEmptyStr(company, salutationName)
	address.Name2 = firstNonEmptyStr(company, fullName)
	address.Name3 = ""
	address.Department = toStr(data["department"])
	if street := toStr(data["street"]); street != "" {
		address.Street = street
	}
	address.PostalCode = toStr(data["zipcode"])
	address.City = toStr(data["city"])
	if iso := toStr(country["iso"]); iso != "" {
		address.CountryCode = strings.ToUpper(iso)
	}
	address.Email = firstNonEmptyStr(toStr(data["email"]), fallbackEmail)
	address.Title = salutationName
	address.FirstName = toStr(data["firstName"])
	address.LastName = toStr(data["lastName"])
	address.Phone = toStr(data["phoneNumber"])
	address.SetRoles(isShipping, isInvoice)

	if err := s.addresses.Save(ctx, address); err != nil {
		return nil, err
	}
	upserted[address.ID] = true
	return address, nil
}

// upsertDefaultAddresses mirrors the customer's webshop default billing and
// shipping addresses, taken from the full customer payload.
func (s *IngestService) upsertDefaultAddresses(
	ctx context.Context,
	customer *party.Customer,
	payload map[string]any,
	upserted map[uuid.UUID]bool,
) (*party.Address, *party.Address, error) {
	if payload == nil {
		return nil, nil, nil
	}
	billingID := toStr(payload["defaultBillingAddressId"])
	shippingID := toStr(payload["defaultShippingAddressId"])
	if billingID == "" && shippingID == "" {
		return nil, nil, nil
	}

	byID := make(map[string]map[string]any)
	for _, item := range asList(payload["addresses"]) {
		if m := asMap(item); m != nil {
			if id := toStr(m["id"]); id != "" {
				byID[id] = m
			}
		}
	}

	if billingID != "" && billingID == shippingID {
		address, err := s.upsertOrderAddress(ctx, customer, byID[billingID], customer.Email, true, true, upserted)
		return address, address, err
	}

	var billing, shipping *party.Address
	var err error
	if billingID != "" {
		if billing, err = s.upsertOrderAddress(ctx, customer, byID[billingID], customer.Email, true, false, upserted); err != nil {
			return nil, nil, err
		}
	}
	if shippingID != "" {
		if shipping, err = s.upsertOrderAddress(ctx, customer, byID[shippingID], customer.Email, false, true, upserted); err != nil {
			return nil, nil, err
		}
	}
	return billing, shipping, nil
}

// matchAddress picks the local address a webshop address maps onto: the
// webshop id match wins, then the newest address in the same role that is
// already mapped to the legacy system, then the newest in-role address.
func matchAddress(existing []party.Address, apiID string, isInvoice, isShipping bool) *party.Address {
	if apiID != "" {
		for i := range existing {
			if existing[i].APIID == apiID {
				return &existing[i]
			}
		}
	}

	var indexed, any *party.Address
	for i := range existing {
		a := &existing[i]
		if (isShipping && !a.IsShipping) || (isInvoice && !a.IsInvoice) {
			continue
		}
		if !isShipping && !isInvoice {
			continue
		}
		if a.ErpAnsID != 0 || a.ErpAnsNr != 0 {
			if indexed == nil || a.UpdatedAt.After(indexed.UpdatedAt) {
				indexed = a
			}
		}
		if any == nil || a.UpdatedAt.After(any.UpdatedAt) {
			any = a
		}
	}
	if indexed != nil {
		return indexed
	}
	return any
}

func buildOrderLines(lineItems any) []trade.OrderLine {
	var lines []trade.OrderLine
	for _, item := range asList(lineItems) {
		entry := asMap(item)
		if entry == nil {
			continue
		}
		priceData := asMap(entry["price"])
		taxes := asList(priceData["calculatedTaxes"])

		line := trade.OrderLine{
			ErpNr:      toStr(asMap(entry["payload"])["productNumber"]),
			Name:       toStr(entry["label"]),
			Unit:       toStr(entry["unitName"]),
			Quantity:   toInt(entry["quantity"]),
			UnitPrice:  toDecimal(priceData["unitPrice"]),
			TotalPrice: toDecimal(priceData["totalPrice"]),
		}
		if len(taxes) > 0 {
			first := asMap(taxes[0])
			line.TaxAmount = toDecimal(first["tax"])
			line.TaxRate = toDecimal(first["taxRate"])
		}
		lines = append(lines, line)
	}
	return lines
}

func firstNonEmptyStr(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
