package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ListProductsParams holds parameters for listing catalog products.
type ListProductsParams struct {
	Page        int
	PerPage     int
	Search      string
	Category    string
	InStockOnly bool
}

// ListProducts fetches a page of catalog products.
func (c *Client) ListProducts(ctx context.Context, params ListProductsParams) ([]Product, error) {
	query := url.Values{}
	if params.Page > 0 {
		query.Set("page", strconv.Itoa(params.Page))
	}
	if params.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(params.PerPage))
	}
	if params.Search != "" {
		query.Set("search", params.Search)
	}
	if params.Category != "" {
		query.Set("category", params.Category)
	}
	if params.InStockOnly {
		query.Set("in_stock", "true")
	}

	var products []Product
	if err := c.do(ctx, http.MethodGet, "/products", query, nil, &products); err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return products, nil
}

// GetProduct fetches one product by id.
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	var product Product
	endpoint := "/products/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, nil, &product); err != nil {
		return nil, fmt.Errorf("fetching product: %w", err)
	}
	return &product, nil
}

// ListCategories fetches all catalog categories.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, nil, &categories); err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return categories, nil
}

// Me returns the session user, or an *Error with status 401 when the
// session is anonymous.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/me", nil, nil, &user); err != nil {
		return nil, fmt.Errorf("fetching session user: %w", err)
	}
	return &user, nil
}

// ListAddresses returns the session user's saved shipping addresses.
func (c *Client) ListAddresses(ctx context.Context) ([]Address, error) {
	var addresses []Address
	if err := c.do(ctx, http.MethodGet, "/addresses", nil, nil, &addresses); err != nil {
		return nil, fmt.Errorf("listing addresses: %w", err)
	}
	return addresses, nil
}
