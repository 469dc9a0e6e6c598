// Package api provides a client for the Hemline commerce backend REST API.
package api

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value as transmitted by the backend. The backend
// serializes money inconsistently (sometimes a JSON number, sometimes a
// numeric string), so Amount coerces on ingress and collapses anything
// unparseable to zero rather than letting garbage reach derived totals.
type Amount struct {
	decimal.Decimal
}

// NewAmount builds an Amount from a float, rounded to cents.
func NewAmount(v float64) Amount {
	return Amount{decimal.NewFromFloat(v).Round(2)}
}

// AmountFromDecimal wraps a decimal as an Amount.
func AmountFromDecimal(d decimal.Decimal) Amount {
	return Amount{d}
}

// UnmarshalJSON accepts numbers, numeric strings, null, and empty strings.
// Invalid input decodes as zero.
func (a *Amount) UnmarshalJSON(data []byte) error {
	trimmed := bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		a.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(string(trimmed))
	if err != nil {
		a.Decimal = decimal.Zero
		return nil
	}
	a.Decimal = d
	return nil
}

// MarshalJSON always emits a plain JSON number with two decimal places.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.StringFixed(2)), nil
}

// MulInt scales the amount by a whole quantity.
func (a Amount) MulInt(n int) Amount {
	return Amount{a.Decimal.Mul(decimal.NewFromInt(int64(n)))}
}

// Display formats the amount for the UI, fixed to two decimal places.
func (a Amount) Display() string {
	return "$" + a.Decimal.StringFixed(2)
}

// Cart is the server-persisted cart as reported by the backend. Count and
// Subtotal come straight from the backend response; the client never
// recomputes them, so server-side rounding and tax rules cannot drift.
type Cart struct {
	CartID   string     `json:"cart_id"`
	Items    []CartItem `json:"items"`
	Count    int        `json:"count"`
	Subtotal Amount     `json:"subtotal"`
}

// CartItem is one line item in a cart, unique by line id.
type CartItem struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice Amount `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
}

// AddItemRequest is the payload for POST /cart/add.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

// UpdateItemRequest is the payload for PUT /cart/items/{id}.
type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

// ShippingOption is one per-region row holding both delivery-type costs.
type ShippingOption struct {
	ID     int    `json:"id"`
	State  string `json:"state"`
	ToHome Amount `json:"to_home"`
	ToDesk Amount `json:"to_desk"`
}

// Discount is a backend-validated reduction. Amount is always the value the
// backend calculated for the subtotal it was given; it is never derived
// client-side from Percent, which would go stale the moment the cart changes.
type Discount struct {
	Code    string `json:"discount_code"`
	Percent Amount `json:"discount_percent"`
	Amount  Amount `json:"discount_amount"`
}

// CalculateDiscountRequest is the payload for POST /discount-codes/calculate.
type CalculateDiscountRequest struct {
	Code     string `json:"code"`
	Subtotal Amount `json:"subtotal"`
}

// CalculateDiscountResponse is the backend's validation result.
type CalculateDiscountResponse struct {
	Discount
	Total Amount `json:"total"`
}

// CreateOrderRequest commits a cart, address, and optional discount into an
// order. Totals are echoed from the client's current view so the backend can
// reject a checkout whose numbers no longer match.
type CreateOrderRequest struct {
	UserID            string `json:"user_id"`
	ShippingAddressID string `json:"shipping_address_id"`
	CartID            string `json:"cart_id"`
	DiscountCode      string `json:"discount_code,omitempty"`
	DiscountAmount    Amount `json:"discount_amount,omitempty"`
	Subtotal          Amount `json:"subtotal"`
	ShippingCost      Amount `json:"shipping_cost"`
	Total             Amount `json:"total"`
}

// Order is a committed order as returned by POST /orders.
type Order struct {
	ID           string `json:"id"`
	Number       string `json:"number"`
	Status       string `json:"status"`
	Subtotal     Amount `json:"subtotal"`
	ShippingCost Amount `json:"shipping_cost"`
	Discount     Amount `json:"discount"`
	Total        Amount `json:"total"`
	CreatedAt    string `json:"created_at"`
}

// CreateOrderResponse wraps the created order.
type CreateOrderResponse struct {
	Order Order `json:"order"`
}

// Product is a catalog product.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       Amount   `json:"price"`
	SalePrice   Amount   `json:"sale_price"`
	Category    string   `json:"category"`
	Sizes       []string `json:"sizes"`
	Colors      []string `json:"colors"`
	ImageURL    string   `json:"image_url"`
	InStock     bool     `json:"in_stock"`
}

// DisplayPrice returns the price to show (sale price when set).
func (p *Product) DisplayPrice() Amount {
	if p.SalePrice.IsPositive() {
		return p.SalePrice
	}
	return p.Price
}

// Category is a catalog category.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// User is the session-authenticated customer from GET /me.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Address is a saved shipping address.
type Address struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Error is an error response from the backend.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface, preferring the backend's message.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend error (status %d)", e.Status)
}
