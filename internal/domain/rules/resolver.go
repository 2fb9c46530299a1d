package rules

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Get-Company/GC-Bridge-4/internal/domain/party"
)

// RuleRepository defines the interface for order rule persistence
type RuleRepository interface {
	// FindActiveOrdered returns all active rules ordered by priority,
	// then creation time
	FindActiveOrdered(ctx context.Context) ([]OrderRule, error)

	// Save creates or updates a rule
	Save(ctx context.Context, rule *OrderRule) error
}

// OrderFacts are the order characteristics a rule is matched against.
type OrderFacts struct {
	BillingAddress  *party.Address
	ShippingAddress *party.Address
	PaymentMethod   string
	ShippingMethod  string
}

// Resolved carries the legacy document defaults of the winning rule. When
// no rule matches, only CustomerType is set and the legacy defaults apply.
type Resolved struct {
	RuleName     string
	CustomerType CustomerType

	Na1Mode        Na1Mode
	Na1StaticValue string

	VorgangsartID     int
	ZahlungsartID     int
	VersandartID      int
	Zahlungsbedingung string

	AddPaymentPosition   bool
	PaymentPositionErpNr string
	PaymentPositionName  string
	PaymentPositionMode  PaymentPositionMode
	PaymentPositionValue *decimal.Decimal
}

// Resolver matches orders against the configured rules.
type Resolver struct {
	rules  RuleRepository
	logger *zap.Logger
}

// NewResolver creates a rule resolver.
func NewResolver(rules RuleRepository, logger *zap.Logger) *Resolver {
	return &Resolver{rules: rules, logger: logger}
}

// ResolveForOrder walks the active rules in priority order and returns the
// first rule matching the order's customer type, countries and method
// names. Without a match a neutral result carrying only the detected
// customer type is returned.
func (r *Resolver) ResolveForOrder(ctx context.Context, facts OrderFacts) (Resolved, error) {
	customerType := DetectCustomerType(facts.BillingAddress, facts.ShippingAddress)
	billingCountry := countryCode(addressCountry(facts.BillingAddress))
	shippingCountry := countryCode(addressCountry(facts.ShippingAddress))
	paymentMethod := strings.ToLower(strings.TrimSpace(facts.PaymentMethod))
	shippingMethod := strings.ToLower(strings.TrimSpace(facts.ShippingMethod))

	activeRules, err := r.rules.FindActiveOrdered(ctx)
	if err != nil {
		return Resolved{}, err
	}

	for i := range activeRules {
		rule := &activeRules[i]
		if !matchesCustomerType(rule, customerType) {
			continue
		}
		if !matchesCountry(rule, billingCountry, shippingCountry) {
			continue
		}
		if !matchesContains(rule.PaymentMethodPattern, paymentMethod) {
			continue
		}
		if !matchesContains(rule.ShippingMethodPattern, shippingMethod) {
			continue
		}

		r.logger.Debug("order rule matched",
			zap.String("rule", rule.Name),
			zap.String("customer_type", string(customerType)))
		return resolvedFromRule(rule, customerType), nil
	}

	r.logger.Debug("no order rule matched, using legacy defaults",
		zap.String("customer_type", string(customerType)))
	return Resolved{CustomerType: customerType, Na1Mode: Na1ModeAuto, PaymentPositionMode: PaymentPositionFixed}, nil
}

// DetectCustomerType classifies the ordering party from its addresses:
// company as soon as one of them carries an organization name.
func DetectCustomerType(billing, shipping *party.Address) CustomerType {
	for _, address := range []*party.Address{billing, shipping} {
		if address != nil && address.LooksLikeCompany() {
			return CustomerTypeCompany
		}
	}
	return CustomerTypePrivate
}

func resolvedFromRule(rule *OrderRule, customerType CustomerType) Resolved {
	return Resolved{
		RuleName:             rule.Name,
		CustomerType:         customerType,
		Na1Mode:              rule.Na1Mode,
		Na1StaticValue:       strings.TrimSpace(rule.Na1StaticValue),
		VorgangsartID:        rule.VorgangsartID,
		ZahlungsartID:        rule.ZahlungsartID,
		VersandartID:         rule.VersandartID,
		Zahlungsbedingung:    strings.TrimSpace(rule.Zahlungsbedingung),
		AddPaymentPosition:   rule.AddPaymentPosition,
		PaymentPositionErpNr: strings.TrimSpace(rule.PaymentPositionErpNr),
		PaymentPositionName:  strings.TrimSpace(rule.PaymentPositionName),
		PaymentPositionMode:  rule.PaymentPositionMode,
		PaymentPositionValue: rule.PaymentPositionValue,
	}
}

func matchesCustomerType(rule *OrderRule, customerType CustomerType) bool {
	if rule.CustomerType == CustomerTypeAny {
		return true
	}
	return rule.CustomerType == customerType
}

// matchesCountry checks the rule's country constraint against the order's
// billing and shipping country. An unset side of the constraint is a
// wildcard for that side.
func matchesCountry(rule *OrderRule, billingCountry, shippingCountry string) bool {
	ruleBilling := countryCode(rule.BillingCountryCode)
	ruleShipping := countryCode(rule.ShippingCountryCode)
	hasBilling := ruleBilling != ""
	hasShipping := ruleShipping != ""

	if !hasBilling && !hasShipping {
		return true
	}

	billingMatch := hasBilling && billingCountry == ruleBilling
	shippingMatch := hasShipping && shippingCountry == ruleShipping

	switch rule.CountryMatchMode {
	case CountryMatchBillingOnly:
		if hasBilling {
			return billingMatch
		}
		return true
	case CountryMatchShippingOnly:
		if hasShipping {
			return shippingMatch
		}
		return true
	case CountryMatchBoth:
		if hasBilling && !billingMatch {
			return false
		}
		if hasShipping && !shippingMatch {
			return false
		}
		return true
	}

	// either
	switch {
	case hasBilling && hasShipping:
		return billingMatch || shippingMatch
	case hasBilling:
		return billingMatch
	case hasShipping:
		return shippingMatch
	}
	return true
}

func matchesContains(pattern, value string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return true
	}
	return strings.Contains(value, pattern)
}

func countryCode(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

func addressCountry(address *party.Address) string {
	if address == nil {
		return ""
	}
	return address.CountryCode
}
