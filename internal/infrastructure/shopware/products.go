package shopware

import (
	"context"
)

// GetProductByNumber returns the product bound to an article number, or
// ErrNotFound.
func (c *Client) GetProductByNumber(ctx context.Context, productNumber string) (map[string]any, error) {
	criteria := NewCriteria(0, 1).WithFilter(Equals("productNumber", productNumber))
	return c.searchOne(ctx, "product", criteria)
}

// UpdateProduct patches a platform product. The payload carries only the
// fields the caller wants to change.
func (c *Client) UpdateProduct(ctx context.Context, productID string, payload map[string]any) error {
	return c.Patch(ctx, "product", productID, payload)
}
