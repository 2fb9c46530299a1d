package ordersync

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Get-Company/GC-Bridge-4/internal/domain/catalog"
	"github.com/Get-Company/GC-Bridge-4/internal/domain/shared"
	"github.com/Get-Company/GC-Bridge-4/internal/infrastructure/persistence"
)

type ingestEnv struct {
	orders    *persistence.GormOrderRepository
	customers *persistence.GormCustomerRepository
	addresses *persistence.GormAddressRepository
	channels  *persistence.GormSalesChannelRepository
	platform  *fakeOrderPlatform
	svc       *IngestService
}

type fakeOrderPlatform struct {
	orders        map[string][]map[string]any
	customers     map[string]map[string]any
	customerCalls int
}

func (f *fakeOrderPlatform) ListAllOpenOrders(_ context.Context, salesChannelID string) ([]map[string]any, error) {
	return f.orders[salesChannelID], nil
}

func (f *fakeOrderPlatform) GetCustomerByID(_ context.Context, customerID string) (map[string]any, error) {
	f.customerCalls++
	if c, ok := f.customers[customerID]; ok {
		return c, nil
	}
	return nil, shared.ErrNotFound
}

func setupIngest(t *testing.T) *ingestEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, persistence.AutoMigrate(db))

	env := &ingestEnv{
		orders:    persistence.NewGormOrderRepository(db),
		customers: persistence.NewGormCustomerRepository(db),
		addresses: persistence.NewGormAddressRepository(db),
		channels:  persistence.NewGormSalesChannelRepository(db),
		platform: &fakeOrderPlatform{
			orders:    make(map[string][]map[string]any),
			customers: make(map[string]map[string]any),
		},
	}
	env.svc = NewIngestService(env.orders, env.customers, env.addresses, env.channels, env.platform, zap.NewNop())
	return env
}

func sampleOrderPayload(orderID, orderNumber string) map[string]any {
	return map[string]any{
		"id":              orderID,
		"orderNumber":     orderNumber,
		"salesChannelId":  "sc-1",
		"customerComment": "Bitte klingeln",
		"createdAt":       "2026-08-01T10:30:00.000+00:00",
		"shippingTotal":   4.90,
		"stateMachineState": map[string]any{
			"technicalName": "open",
		},
		"price": map[string]any{
			"totalPrice": 123.80,
			"calculatedTaxes": []any{
				map[string]any{"tax": 19.77, "taxRate": 19.0},
			},
		},
		"orderCustomer": map[string]any{
			"customerId":     "cust-0001",
			"customerNumber": "10042",
			"firstName":      "Max",
			"email":          "max@muster.example",
		},
		"billingAddress": map[string]any{
			"id":          "addr-bill",
			"firstName":   "Max",
			"lastName":    "Muster",
			"street":      "Rechnungsweg 2",
			"zipcode":     "80333",
			"city":        "Muenchen",
			"phoneNumber": "+49 89 555",
			"country":     map[string]any{"iso": "DE"},
			"salutation":  map[string]any{"displayName": "Herr"},
		},
		"deliveries": []any{
			map[string]any{
				"id":                "del-1",
				"shippingMethod":    map[string]any{"name": "DHL"},
				"stateMachineState": map[string]any{"technicalName": "shipped"},
				"shippingOrderAddress": map[string]any{
					"id":        "addr-ship",
					"firstName": "Max",
					"lastName":  "Muster",
					"street":    "Hauptstr. 1",
					"zipcode":   "80331",
					"city":      "Muenchen",
					"country":   map[string]any{"iso": "DE"},
				},
			},
		},
		"transactions": []any{
			map[string]any{
				"id":                "tx-1",
				"paymentMethod":     map[string]any{"name": "Rechnung"},
				"stateMachineState": map[string]any{"technicalName": "paid"},
			},
		},
		"lineItems": []any{
			map[string]any{
				"id":       "li-1",
				"label":    "Widget",
				"quantity": 2,
				"unitName": "Stk",
				"payload":  map[string]any{"productNumber": "900100"},
				"price": map[string]any{
					"unitPrice":  59.45,
					"totalPrice": 118.90,
					"calculatedTaxes": []any{
						map[string]any{"tax": 18.98, "taxRate": 19.0},
					},
				},
			},
		},
	}
}

func TestSyncOpenOrders(t *testing.T) {
	ctx := context.Background()

	t.Run("mirrors order with customer, addresses and lines", func(t *testing.T) {
		env := setupIngest(t)
		env.platform.orders["sc-1"] = []map[string]any{sampleOrderPayload("order-1", "SW-1001")}

		summary, err := env.svc.SyncOpenOrders(ctx, []string{"sc-1"}, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.OrdersSeen)
		assert.Equal(t, 1, summary.OrdersCreated)
		assert.Equal(t, 0, summary.OrdersFailed)
		assert.Equal(t, 2, summary.AddressesUpserted)
		assert.Equal(t, 1, summary.DetailsUpserted)

		order, err := env.orders.FindByAPIID(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, "SW-1001", order.OrderNumber)
		assert.Equal(t, "sc-1", order.SalesChannelID)
		assert.Equal(t, "del-1", order.APIDeliveryID)
		assert.Equal(t, "tx-1", order.APITransactionID)
		assert.Equal(t, "Rechnung", order.PaymentMethod)
		assert.Equal(t, "DHL", order.ShippingMethod)
		assert.Equal(t, "open", order.OrderState)
		assert.Equal(t, "shipped", order.ShippingState)
		assert.Equal(t, "paid", order.PaymentState)
		assert.Equal(t, "Bitte klingeln", order.Description)
		assert.True(t, decimal.RequireFromString("123.8").Equal(order.TotalPrice))
		assert.True(t, decimal.RequireFromString("19.77").Equal(order.TotalTax))
		assert.True(t, decimal.RequireFromString("4.9").Equal(order.ShippingCosts))
		assert.Equal(t, 2026, order.PurchaseDate.Year())
		require.NotNil(t, order.BillingAddressID)
		require.NotNil(t, order.ShippingAddressID)
		assert.NotEqual(t, *order.BillingAddressID, *order.ShippingAddressID)

		require.Len(t, order.Lines, 1)
		line := order.Lines[0]
		assert.Equal(t, "900100", line.ErpNr)
		assert.Equal(t, "Widget", line.Name)
		assert.Equal(t, 2, line.Quantity)
		assert.Equal(t, "Stk", line.Unit)
		assert.True(t, decimal.RequireFromString("59.45").Equal(line.UnitPrice))
		assert.True(t, decimal.RequireFromString("118.9").Equal(line.TotalPrice))
		assert.True(t, decimal.RequireFromString("18.98").Equal(line.TaxAmount))
		assert.True(t, decimal.RequireFromString("19").Equal(line.TaxRate))

		customer, err := env.customers.FindByErpNr(ctx, "10042")
		require.NoError(t, err)
		assert.Equal(t, "cust-0001", customer.APIID)
		assert.Equal(t, "max@muster.example", customer.Email)
		assert.Equal(t, customer.ID, order.CustomerID)

		billing, err := env.addresses.FindByID(ctx, *order.BillingAddressID)
		require.NoError(t, err)
		assert.True(t, billing.IsInvoice)
		assert.Equal(t, "addr-bill", billing.APIID)
		assert.Equal(t, "Herr", billing.Title)
		assert.Equal(t, "Max Muster", billing.Name2)
		assert.Equal(t, "DE", billing.CountryCode)
		assert.Equal(t, "max@muster.example", billing.Email)

		shipping, err := env.addresses.FindByID(ctx, *order.ShippingAddressID)
		require.NoError(t, err)
		assert.True(t, shipping.IsShipping)
		assert.Equal(t, "addr-ship", shipping.APIID)
	})

	t.Run("rerun updates instead of duplicating", func(t *testing.T) {
		env := setupIngest(t)
		env.platform.orders["sc-1"] = []map[string]any{sampleOrderPayload("order-1", "SW-1001")}

		_, err := env.svc.SyncOpenOrders(ctx, []string{"sc-1"}, 0)
		require.NoError(t, err)

		payload := sampleOrderPayload("order-1", "SW-1001")
		payload["customerComment"] = "Updated"
		env.platform.orders["sc-1"] = []map[string]any{payload}

		summary, err := env.svc.SyncOpenOrders(ctx, []string{"sc-1"}, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, summary.OrdersCreated)
		assert.Equal(t, 1, summary.OrdersUpdated)

		order, err := env.orders.FindByAPIID(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, "Updated", order.Description)
		assert.Len(t, order.Lines, 1)
	})

	t.Run("respects the order limit", func(t *testing.T) {
		env := setupIngest(t)
		env.platform.orders["sc-1"] = []map[string]any{
			sampleOrderPayload("order-1", "SW-1001"),
			sampleOrderPayload("order-2", "SW-1002"),
			sampleOrderPayload("order-3", "SW-1003"),
		}

		summary, err := env.svc.SyncOpenOrders(ctx, []string{"sc-1"}, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.OrdersSeen)
	})

	t.Run("falls back to active channels", func(t *testing.T) {
		env := setupIngest(t)
		channel, err := catalog.NewSalesChannel("Webshop", "sc-1", decimal.NewFromInt(1))
		require.NoError(t, err)
		require.NoError(t, env.channels.Save(ctx, channel))
		env.platform.orders["sc-1"] = []map[string]any{sampleOrderPayload("order-1", "SW-1001")}

		summary, err := env.svc.SyncOpenOrders(ctx, nil, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.OrdersCreated)
	})

	t.Run("fails without channels", func(t *testing.T) {
		env := setupIngest(t)
		_, err := env.svc.SyncOpenOrders(ctx, nil, 0)
		require.Error(t, err)
	})

	t.Run("broken order is counted, run continues", func(t *testing.T) {
		env := setupIngest(t)
		broken := sampleOrderPayload("", "SW-0000")
		env.platform.orders["sc-1"] = []map[string]any{broken, sampleOrderPayload("order-2", "SW-1002")}

		summary, err := env.svc.SyncOpenOrders(ctx, []string{"sc-1"}, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.OrdersFailed)
		assert.Equal(t, 1, summary.OrdersCreated)
	})

	t.Run("customer payload is fetched once per run", func(t *testing.T) {
		env := setupIngest(t)
		env.platform.customers["cust-0001"] = map[string]any{
			"id":             "cust-0001",
			"customerNumber": "10042",
			"email":          "max@muster.example",
			"group":          map[string]any{"displayGross": false},
		}
		env.platform.orders["sc-1"] = []map[string]any{
			sampleOrderPayload("order-1", "SW-1001"),
			sampleOrderPayload("order-2", "SW-1002"),
		}

		_, err := env.svc.SyncOpenOrders(ctx, []string{"sc-1"}, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, env.platform.customerCalls)

		customer, err := env.customers.FindByErpNr(ctx, "10042")
		require.NoError(t, err)
		assert.False(t, customer.IsGross)
	})

	t.Run("missing customer number falls back to webshop id", func(t *testing.T) {
		env := setupIngest(t)
		payload := sampleOrderPayload("order-1", "SW-1001")
		payload["orderCustomer"] = map[string]any{
			"customerId": "0123456789abcdef",
			"firstName":  "Max",
			"email":      "max@muster.example",
		}
		env.platform.orders["sc-1"] = []map[string]any{payload}

		summary, err := env.svc.SyncOpenOrders(ctx, []string{"sc-1"}, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.OrdersCreated)

		customer, err := env.customers.FindByErpNr(ctx, "sw6-0123456789ab")
		require.NoError(t, err)
		assert.Equal(t, "0123456789abcdef", customer.APIID)
	})

	t.Run("shipping-only order mirrors the address into both roles", func(t *testing.T) {
		env := setupIngest(t)
		payload := sampleOrderPayload("order-1", "SW-1001")
		delete(payload, "billingAddress")
		env.platform.orders["sc-1"] = []map[string]any{payload}

		_, err := env.svc.SyncOpenOrders(ctx, []string{"sc-1"}, 0)
		require.NoError(t, err)

		order, err := env.orders.FindByAPIID(ctx, "order-1")
		require.NoError(t, err)
		require.NotNil(t, order.BillingAddressID)
		require.NotNil(t, order.ShippingAddressID)
		assert.Equal(t, *order.BillingAddressID, *order.ShippingAddressID)

		address, err := env.addresses.FindByID(ctx, *order.ShippingAddressID)
		require.NoError(t, err)
		assert.True(t, address.IsShipping)
		assert.True(t, address.IsInvoice)
	})
}

func TestUpsertFromPlatformOrder(t *testing.T) {
	ctx := context.Background()
	env := setupIngest(t)

	outcome, err := env.svc.UpsertFromPlatformOrder(ctx, sampleOrderPayload("order-9", "SW-2001"), "sc-1")
	require.NoError(t, err)
	assert.True(t, outcome.Created)
	assert.Equal(t, "SW-2001", outcome.Order.OrderNumber)
	assert.Equal(t, 1, outcome.DetailsUpserted)
}
