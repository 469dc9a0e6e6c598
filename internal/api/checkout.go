package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ShippingOptions returns the shipping cost rows for a region. One row per
// region, each holding both the to-home and to-desk cost columns.
func (c *Client) ShippingOptions(ctx context.Context, state string) ([]ShippingOption, error) {
	query := url.Values{}
	query.Set("state", state)

	var options []ShippingOption
	if err := c.do(ctx, http.MethodGet, "/shipping-options", query, nil, &options); err != nil {
		return nil, fmt.Errorf("fetching shipping options: %w", err)
	}
	return options, nil
}

// CalculateDiscount validates a code against a subtotal and returns the
// backend-computed reduction. The returned amount is authoritative for that
// subtotal; recalculate whenever the cart changes.
func (c *Client) CalculateDiscount(ctx context.Context, code string, subtotal Amount) (*CalculateDiscountResponse, error) {
	req := CalculateDiscountRequest{Code: code, Subtotal: subtotal}
	var resp CalculateDiscountResponse
	if err := c.do(ctx, http.MethodPost, "/discount-codes/calculate", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("calculating discount: %w", err)
	}
	return &resp, nil
}

// CreateOrder commits the cart into an order.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	var resp CreateOrderResponse
	if err := c.do(ctx, http.MethodPost, "/orders", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}
	return &resp.Order, nil
}
