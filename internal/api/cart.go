package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// FetchCart retrieves the current session cart. The backend creates a cart
// on first contact, so this never 404s for a fresh session.
func (c *Client) FetchCart(ctx context.Context) (*Cart, error) {
	var cart Cart
	if err := c.do(ctx, http.MethodGet, "/cart", nil, nil, &cart); err != nil {
		return nil, fmt.Errorf("fetching cart: %w", err)
	}
	return &cart, nil
}

// AddItem adds a product to the session cart.
func (c *Client) AddItem(ctx context.Context, req AddItemRequest) error {
	if err := c.do(ctx, http.MethodPost, "/cart/add", nil, req, nil); err != nil {
		return fmt.Errorf("adding cart item: %w", err)
	}
	return nil
}

// UpdateItem sets the quantity of an existing line item.
func (c *Client) UpdateItem(ctx context.Context, lineID string, quantity int) error {
	endpoint := "/cart/items/" + url.PathEscape(lineID)
	if err := c.do(ctx, http.MethodPut, endpoint, nil, UpdateItemRequest{Quantity: quantity}, nil); err != nil {
		return fmt.Errorf("updating cart item: %w", err)
	}
	return nil
}

// RemoveItem deletes a line item from the cart.
func (c *Client) RemoveItem(ctx context.Context, lineID string) error {
	endpoint := "/cart/items/" + url.PathEscape(lineID)
	if err := c.do(ctx, http.MethodDelete, endpoint, nil, nil, nil); err != nil {
		return fmt.Errorf("removing cart item: %w", err)
	}
	return nil
}

// ClearCart empties the cart.
func (c *Client) ClearCart(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, "/cart/clear", nil, nil, nil); err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}
	return nil
}
