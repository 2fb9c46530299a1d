package shopware

import (
	"context"
)

// openOrderCriteria loads open orders of one sales channel with every
// association the ingest flow reads: order customer and group, billing
// address, deliveries with shipping address, transactions with payment
// method, state and line items.
func openOrderCriteria(salesChannelID string, page, limit int) *Criteria {
	criteria := NewCriteria(page, limit)
	criteria.TotalCountMode = 1

	criteria.Association("orderCustomer").
		Association("customer").
		Association("group")

	billing := criteria.Association("billingAddress")
	billing.Association("country")
	billing.Association("salutation")

	deliveries := criteria.Association("deliveries")
	deliveries.Association("shippingMethod")
	deliveries.Association("shippingOrderAddress").
		Association("country")

	criteria.Association("transactions").
		Association("paymentMethod")
	criteria.Association("stateMachineState")
	criteria.Association("lineItems")

	criteria.WithFilter(Equals("salesChannelId", salesChannelID))
	criteria.WithFilter(Equals("stateMachineState.technicalName", "open"))
	return criteria
}

// ListOpenOrders returns one page of open orders for a sales channel.
func (c *Client) ListOpenOrders(ctx context.Context, salesChannelID string, page, limit int) (*SearchResponse, error) {
	return c.Search(ctx, "order", openOrderCriteria(salesChannelID, page, limit))
}

// ListAllOpenOrders pages through every open order of a sales channel.
func (c *Client) ListAllOpenOrders(ctx context.Context, salesChannelID string) ([]map[string]any, error) {
	return c.SearchAll(ctx, "order", openOrderCriteria(salesChannelID, 0, c.cfg.PageLimit))
}
