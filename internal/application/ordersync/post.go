package ordersync

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Get-Company/GC-Bridge-4/internal/application/partysync"
	"github.com/Get-Company/GC-Bridge-4/internal/domain/catalog"
	"github.com/Get-Company/GC-Bridge-4/internal/domain/party"
	"github.com/Get-Company/GC-Bridge-4/internal/domain/rules"
	"github.com/Get-Company/GC-Bridge-4/internal/domain/shared"
	"github.com/Get-Company/GC-Bridge-4/internal/domain/trade"
	"github.com/Get-Company/GC-Bridge-4/internal/erp"
	"github.com/Get-Company/GC-Bridge-4/internal/infrastructure/config"
)

// PostResult reports the outcome of posting one order into the legacy
// system.
type PostResult struct {
	Order      *trade.Order
	ErpOrderID string
	IsNew      bool
}

// PostService writes a mirrored order into the legacy system as a sales
// document. Posting the same order again reopens the existing document and
// rebuilds its positions, so the flow is safe to retry.
type PostService struct {
	orders    trade.OrderRepository
	customers party.CustomerRepository
	addresses party.AddressRepository
	products  catalog.ProductRepository
	resolver  *rules.Resolver
	push      *partysync.PushService
	sessions  erp.SessionFactory
	cfg       config.SyncConfig
	logger    *zap.Logger
}

// NewPostService creates a new PostService
func NewPostService(
	orders trade.OrderRepository,
	customers party.CustomerRepository,
	addresses party.AddressRepository,
	products catalog.ProductRepository,
	resolver *rules.Resolver,
	push *partysync.PushService,
	sessions erp.SessionFactory,
	cfg config.SyncConfig,
	logger *zap.Logger,
) *PostService {
	return &PostService{
		orders:    orders,
		customers: customers,
		addresses: addresses,
		products:  products,
		resolver:  resolver,
		push:      push,
		sessions:  sessions,
		cfg:       cfg,
		logger:    logger,
	}
}

// PostOrder posts the order into the legacy system. The customer is pushed
// first so the document can reference a legacy customer number.
func (s *PostService) PostOrder(ctx context.Context, order *trade.Order) (*PostResult, error) {
	if order == nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order is required")
	}

	customer, billing, shipping, err := s.ensureCustomerSynced(ctx, order)
	if err != nil {
		return nil, err
	}

	resolved, err := s.resolver.ResolveForOrder(ctx, rules.OrderFacts{
		BillingAddress:  billing,
		ShippingAddress: shipping,
		PaymentMethod:   order.PaymentMethod,
		ShippingMethod:  order.ShippingMethod,
	})
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Open()
	if err != nil {
		return nil, err
	}
	defer session.Close()

	vorgang, err := erp.OpenVorgang(session, s.logger)
	if err != nil {
		return nil, err
	}
	artikel, err := erp.OpenArtikel(session, s.logger)
	if err != nil {
		return nil, err
	}

	raw, err := vorgang.SpecialOperation(erp.SpecialVorgang)
	if err != nil {
		return nil, err
	}
	doc, ok := raw.(erp.DocumentObject)
	if !ok {
		return nil, erp.ErrNoDocumentObject
	}

	belegNr, isNew, err := s.openOrCreateDocument(ctx, order, customer, resolved, vorgang, doc)
	if err != nil {
		return nil, err
	}

	s.setHeaderFields(order, resolved, doc)
	if err := s.addPositions(ctx, order, customer, resolved, artikel, doc); err != nil {
		return nil, err
	}

	if err := doc.Post(); err != nil {
		return nil, err
	}

	if belegNr == "" {
		belegNr = strings.TrimSpace(doc.GetField("BelegNr"))
	}
	if belegNr == "" {
		belegNr = s.findExistingBelegNr(ctx, order, customer, vorgang)
	}
	if belegNr != "" && order.ErpOrderID != belegNr {
		order.AssignErpOrderID(belegNr)
		if err := s.orders.Save(ctx, order); err != nil {
			return nil, err
		}
	}

	s.logger.Info("order posted",
		zap.String("order_number", order.OrderNumber),
		zap.String("beleg_nr", belegNr),
		zap.Bool("new", isNew))

	return &PostResult{Order: order, ErpOrderID: belegNr, IsNew: isNew}, nil
}

// ensureCustomerSynced pushes the ordering customer with the order's
// addresses and returns the refreshed customer together with the order's
// billing and shipping address.
func (s *PostService) ensureCustomerSynced(ctx context.Context, order *trade.Order) (*party.Customer, *party.Address, *party.Address, error) {
	customer, err := s.customers.FindByID(ctx, order.CustomerID)
	if err != nil {
		return nil, nil, nil, err
	}

	billing := s.loadOrderAddress(ctx, order.BillingAddressID)
	shipping := s.loadOrderAddress(ctx, order.ShippingAddressID)

	if _, err := s.push.PushCustomerWithAddresses(ctx, customer, shipping, billing); err != nil {
		return nil, nil, nil, err
	}

	customer, err = s.customers.FindByID(ctx, order.CustomerID)
	if err != nil {
		return nil, nil, nil, err
	}
	if !customer.HasErpNr() {
		return nil, nil, nil, shared.NewDomainError("NO_ERP_NR", "Customer has no legacy number after push")
	}
	return customer, billing, shipping, nil
}

func (s *PostService) loadOrderAddress(ctx context.Context, id *uuid.UUID) *party.Address {
	if id == nil {
		return nil
	}
	address, err := s.addresses.FindByID(ctx, *id)
	if err != nil {
		s.logger.Warn("order address not loadable", zap.String("address_id", id.String()), zap.Error(err))
		return nil
	}
	return address
}

// openOrCreateDocument reopens the existing legacy document of the order or
// appends a new one. The document number of a fresh document is persisted
// immediately, so a failure later in the flow cannot orphan it.
func (s *PostService) openOrCreateDocument(
	ctx context.Context,
	order *trade.Order,
	customer *party.Customer,
	resolved rules.Resolved,
	vorgang *erp.Dataset,
	doc erp.DocumentObject,
) (string, bool, error) {
	existing := s.findExistingBelegNr(ctx, order, customer, vorgang)
	if existing != "" {
		if err := doc.Edit(existing); err != nil {
			return "", false, err
		}
		if err := deleteAllPositions(doc); err != nil {
			return "", false, err
		}
		s.logger.Info("reusing existing legacy document",
			zap.String("order_number", order.OrderNumber), zap.String("beleg_nr", existing))
		return existing, false, nil
	}

	orderType := resolved.VorgangsartID
	if orderType == 0 {
		orderType = s.cfg.OrderType
	}
	if err := doc.Append(orderType, customer.ErpNr); err != nil {
		return "", false, err
	}

	belegNr := strings.TrimSpace(doc.GetField("BelegNr"))
	if belegNr != "" {
		order.AssignErpOrderID(belegNr)
		if err := s.orders.Save(ctx, order); err != nil {
			return "", false, err
		}
		s.logger.Info("captured document number after append",
			zap.String("order_number", order.OrderNumber), zap.String("beleg_nr", belegNr))
	}
	return belegNr, true, nil
}

// findExistingBelegNr resolves the legacy document the order was posted to,
// verifying a stored mapping and falling back to a reference-number search.
// Among multiple documents with the same reference, the one on the
// customer's own account wins.
func (s *PostService) findExistingBelegNr(ctx context.Context, order *trade.Order, customer *party.Customer, vorgang *erp.Dataset) string {
	stored := strings.TrimSpace(order.ErpOrderID)
	if stored != "" {
		if vorgang.Locate(erp.K(stored)) {
			return stored
		}
		s.logger.Warn("stored legacy document vanished, mapping cleared",
			zap.String("order_number", order.OrderNumber), zap.String("beleg_nr", stored))
		order.ClearErpOrderID()
		if err := s.orders.Save(ctx, order); err != nil {
			s.logger.Warn("could not clear stale document mapping", zap.Error(err))
		}
	}

	var candidates []string
	if n := strings.TrimSpace(order.OrderNumber); n != "" {
		candidates = append(candidates, n)
	}
	if id := strings.TrimSpace(order.APIID); id != "" && (len(candidates) == 0 || candidates[0] != id) {
		candidates = append(candidates, id)
	}

	for _, auftrNr := range candidates {
		if belegNr := s.findBelegNrByAuftrNr(vorgang, auftrNr, customer.ErpNr); belegNr != "" {
			s.logger.Info("found legacy document by reference number",
				zap.String("auftr_nr", auftrNr), zap.String("beleg_nr", belegNr))
			return belegNr
		}
	}
	return ""
}

func (s *PostService) findBelegNrByAuftrNr(vorgang *erp.Dataset, auftrNr, customerErpNr string) string {
	if !vorgang.ApplyEqualityFilter(map[string]any{"AuftrNr": auftrNr}) {
		return ""
	}
	defer vorgang.ClearFilter()

	if vorgang.Count() < 1 {
		return ""
	}
	vorgang.First()

	first := ""
	for !vorgang.RangeAtEnd() {
		belegNr := strings.TrimSpace(vorgang.GetString("BelegNr"))
		adrNr := strings.TrimSpace(vorgang.GetString("AdrNr"))
		if belegNr != "" && first == "" {
			first = belegNr
		}
		if belegNr != "" && customerErpNr != "" && adrNr == customerErpNr {
			return belegNr
		}
		vorgang.Advance()
	}
	return first
}

func deleteAllPositions(doc erp.DocumentObject) error {
	positions := doc.Positions()
	for {
		n, err := positions.Count()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if err := positions.DeleteFirst(); err != nil {
			return err
		}
	}
}

// setHeaderFields writes the document header. The payment and shipping type
// come from the matched rule; without one the legacy defaults stay in
// place, so failures on these optional fields only warn.
func (s *PostService) setHeaderFields(order *trade.Order, resolved rules.Resolved, doc erp.DocumentObject) {
	if err := doc.SetField("AuftrNr", order.ReferenceNumber()); err != nil {
		s.logger.Warn("could not set reference number", zap.Error(err))
	}
	description := strings.TrimSpace(order.Description)
	if description == "" {
		description = "Shopware Bestellung " + order.OrderNumber
	}
	if err := doc.SetField("Bez", description); err != nil {
		s.logger.Warn("could not set document description", zap.Error(err))
	}
	if resolved.ZahlungsartID > 0 {
		if err := doc.SetField("ZahlArt", resolved.ZahlungsartID); err != nil {
			s.logger.Warn("could not set payment type", zap.Int("zahl_art", resolved.ZahlungsartID), zap.Error(err))
		}
	}
	if resolved.VersandartID > 0 {
		if err := doc.SetField("VsdArt", resolved.VersandartID); err != nil {
			s.logger.Warn("could not set shipping type", zap.Int("vsd_art", resolved.VersandartID), zap.Error(err))
		}
	}
}

// addPositions writes one document position per order line, plus shipping
// costs and a rule-defined payment surcharge.
func (s *PostService) addPositions(
	ctx context.Context,
	order *trade.Order,
	customer *party.Customer,
	resolved rules.Resolved,
	artikel *erp.Dataset,
	doc erp.DocumentObject,
) error {
	positions := doc.Positions()
	productUnits := s.buildProductUnitMap(ctx, order.Lines)
	rawUnitCache := make(map[string]string)
	nameCache := make(map[string]string)

	for i := range order.Lines {
		line := &order.Lines[i]
		erpNr := strings.TrimSpace(line.ErpNr)
		if erpNr == "" {
			s.logger.Warn("order line has no article number, position skipped",
				zap.String("order_number", order.OrderNumber), zap.String("name", line.Name))
			continue
		}

		unit := s.resolvePositionUnit(line, erpNr, artikel, productUnits, rawUnitCache)
		quantity := line.Quantity
		if quantity < 1 {
			quantity = 1
		}
		name := s.resolvePositionName(line, erpNr, artikel, nameCache)

		if err := positions.Add(quantity, unit, erpNr); err != nil {
			return err
		}
		if requiresBasePrice(unit) {
			// Percent units derive their amount from the article's base
			// price inside the legacy store; writing one would corrupt it.
			if name != "" {
				if err := positions.SetText(name); err != nil {
					s.logger.Warn("could not set position text", zap.String("erp_nr", erpNr), zap.Error(err))
				}
			}
			continue
		}
		if err := s.writePositionPrice(positions, line.UnitPrice, customer.IsGross, name); err != nil {
			return err
		}
	}

	if order.HasShippingCosts() {
		if err := positions.Add(1, s.cfg.DefaultUnit, s.cfg.ShippingErpNr); err != nil {
			return err
		}
		if err := s.writePositionPrice(positions, order.ShippingCosts, customer.IsGross, ""); err != nil {
			return err
		}
	}

	return s.addPaymentPosition(order, customer, resolved, positions)
}

// addPaymentPosition appends the payment surcharge position the matched
// rule asks for, either a fixed amount or a percentage of the order total.
func (s *PostService) addPaymentPosition(
	order *trade.Order,
	customer *party.Customer,
	resolved rules.Resolved,
	positions erp.PositionCollection,
) error {
	if !resolved.AddPaymentPosition || resolved.PaymentPositionErpNr == "" || resolved.PaymentPositionValue == nil {
		return nil
	}

	amount := *resolved.PaymentPositionValue
	if resolved.PaymentPositionMode == rules.PaymentPositionPercent {
		amount = order.TotalPrice.Mul(amount).Div(decimal.NewFromInt(100)).Round(2)
	}
	if !amount.GreaterThan(decimal.Zero) {
		return nil
	}

	if err := positions.Add(1, s.cfg.DefaultUnit, resolved.PaymentPositionErpNr); err != nil {
		return err
	}
	return s.writePositionPrice(positions, amount, customer.IsGross, resolved.PaymentPositionName)
}

func (s *PostService) writePositionPrice(positions erp.PositionCollection, amount decimal.Decimal, isGross bool, name string) error {
	if name != "" {
		if err := positions.SetText(name); err != nil {
			s.logger.Warn("could not set position text", zap.Error(err))
		}
	}
	value := amount.InexactFloat64()
	if isGross {
		return positions.SetPriceGross(value)
	}
	return positions.SetPriceNet(value)
}

// buildProductUnitMap collects the locally known units of the ordered
// articles as the fallback between the raw legacy unit and the line unit.
func (s *PostService) buildProductUnitMap(ctx context.Context, lines []trade.OrderLine) map[string]string {
	units := make(map[string]string)
	for i := range lines {
		erpNr := strings.TrimSpace(lines[i].ErpNr)
		if erpNr == "" {
			continue
		}
		if _, ok := units[erpNr]; ok {
			continue
		}
		product, err := s.products.FindByErpNr(ctx, erpNr)
		if err != nil {
			continue
		}
		if unit := strings.TrimSpace(product.Unit); unit != "" {
			units[erpNr] = unit
		}
	}
	return units
}

// resolvePositionUnit prefers the raw legacy unit of the article, then the
// locally stored product unit, then the unit carried on the order line.
func (s *PostService) resolvePositionUnit(
	line *trade.OrderLine,
	erpNr string,
	artikel *erp.Dataset,
	productUnits map[string]string,
	rawUnitCache map[string]string,
) string {
	rawUnit, cached := rawUnitCache[erpNr]
	if !cached {
		rawUnit = ""
		if artikel.Locate(erp.K(erpNr)) {
			rawUnit = strings.TrimSpace(artikel.GetString("Einh"))
		}
		rawUnitCache[erpNr] = rawUnit
	}

	if rawUnit != "" {
		return rawUnit
	}
	if unit := productUnits[erpNr]; unit != "" {
		return unit
	}
	if unit := strings.TrimSpace(line.Unit); unit != "" {
		return unit
	}
	return s.cfg.DefaultUnit
}

func (s *PostService) resolvePositionName(line *trade.OrderLine, erpNr string, artikel *erp.Dataset, nameCache map[string]string) string {
	if name := strings.TrimSpace(line.Name); name != "" {
		return name
	}
	if name, ok := nameCache[erpNr]; ok {
		return name
	}

	name := ""
	if artikel.Locate(erp.K(erpNr)) {
		name = strings.TrimSpace(artikel.GetString("KuBez5"))
	}
	nameCache[erpNr] = name
	return name
}

// requiresBasePrice reports whether the unit is a percent unit whose price
// the legacy store derives from the article's base price.
func requiresBasePrice(unit string) bool {
	return strings.HasPrefix(strings.ReplaceAll(strings.TrimSpace(unit), " ", ""), "%")
}
