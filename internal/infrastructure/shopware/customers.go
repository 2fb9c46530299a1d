package shopware

import (
	"context"
)

// customerCriteria loads a customer with salutation, group and the address
// book including each address country and salutation.
func customerCriteria() *Criteria {
	criteria := NewCriteria(0, 1)
	criteria.Association("salutation")
	criteria.Association("group")

	addresses := criteria.Association("addresses")
	addresses.Association("country")
	addresses.Association("salutation")
	return criteria
}

// GetCustomerByID returns the customer entity, or ErrNotFound.
func (c *Client) GetCustomerByID(ctx context.Context, customerID string) (map[string]any, error) {
	criteria := customerCriteria().WithFilter(Equals("id", customerID))
	return c.searchOne(ctx, "customer", criteria)
}

// GetCustomerByNumber returns the customer bound to a customer number, or
// ErrNotFound when the number is unused.
func (c *Client) GetCustomerByNumber(ctx context.Context, customerNumber string) (map[string]any, error) {
	criteria := customerCriteria().WithFilter(Equals("customerNumber", customerNumber))
	return c.searchOne(ctx, "customer", criteria)
}

// UpdateCustomerNumber writes the legacy account number onto the platform
// customer.
func (c *Client) UpdateCustomerNumber(ctx context.Context, customerID, customerNumber string) error {
	return c.Patch(ctx, "customer", customerID, map[string]any{
		"id":             customerID,
		"customerNumber": customerNumber,
	})
}
