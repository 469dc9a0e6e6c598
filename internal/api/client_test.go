package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountCoercion(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"number", `12.5`, "$12.50"},
		{"numeric string", `"12.5"`, "$12.50"},
		{"integer string", `"100"`, "$100.00"},
		{"null", `null`, "$0.00"},
		{"empty string", `""`, "$0.00"},
		{"garbage", `"n/a"`, "$0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Amount
			require.NoError(t, json.Unmarshal([]byte(tt.in), &a))
			assert.Equal(t, tt.want, a.Display())
		})
	}
}

func TestAmountMarshalFixesTwoDecimals(t *testing.T) {
	out, err := json.Marshal(NewAmount(7.5))
	require.NoError(t, err)
	assert.Equal(t, "7.50", string(out))
}

func TestFetchCartCoercesStringMoney(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/cart", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		// Backend sometimes serializes money as numeric strings.
		w.Write([]byte(`{
			"cart_id": "c-123",
			"count": 2,
			"subtotal": "59.90",
			"items": [
				{"id": "l-1", "product_id": "p-1", "name": "Linen Shirt", "unit_price": 29.95, "quantity": 2, "size": "M", "color": "white"}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	cart, err := client.FetchCart(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "c-123", cart.CartID)
	assert.Equal(t, 2, cart.Count)
	assert.Equal(t, "$59.90", cart.Subtotal.Display())
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "$29.95", cart.Items[0].UnitPrice.Display())
}

func TestSessionCookieRoundTrip(t *testing.T) {
	var sawCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie(SessionCookieName); err == nil {
			sawCookie = ck.Value
		} else {
			http.SetCookie(w, &http.Cookie{Name: SessionCookieName, Value: "sess-42", Path: "/"})
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"cart_id":"c-1","count":0,"subtotal":0,"items":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.FetchCart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-42", client.SessionToken())

	_, err = client.FetchCart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-42", sawCookie, "second request must present the issued session cookie")
}

func TestBackendErrorCarriesMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"code":"invalid_code","message":"discount code expired"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.CalculateDiscount(context.Background(), "OLD10", NewAmount(50))
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "invalid_code", apiErr.Code)
	assert.Equal(t, "discount code expired", apiErr.Message)
}

func TestShippingOptionsByRegion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/shipping-options", r.URL.Path)
		require.Equal(t, "NY", r.URL.Query().Get("state"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"state":"NY","to_home":"10.00","to_desk":7.5}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	options, err := client.ShippingOptions(context.Background(), "NY")
	require.NoError(t, err)

	require.Len(t, options, 1)
	assert.Equal(t, "NY", options[0].State)
	assert.Equal(t, "$10.00", options[0].ToHome.Display())
	assert.Equal(t, "$7.50", options[0].ToDesk.Display())
}

func TestCalculateDiscount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/discount-codes/calculate", r.URL.Path)

		var req CalculateDiscountRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "SAVE20", req.Code)
		assert.Equal(t, "$100.00", req.Subtotal.Display())

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"discount_code":"SAVE20","discount_percent":20,"discount_amount":"20.00","total":"80.00"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.CalculateDiscount(context.Background(), "SAVE20", NewAmount(100))
	require.NoError(t, err)

	assert.Equal(t, "SAVE20", resp.Code)
	assert.Equal(t, "$20.00", resp.Amount.Display())
	assert.Equal(t, "$80.00", resp.Total.Display())
}

func TestCreateOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/orders", r.URL.Path)

		var req CreateOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "cart-1", req.CartID)
		assert.Equal(t, "$90.00", req.Total.Display())

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"order":{"id":"o-1","number":"HL-1001","status":"pending","total":"90.00"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	order, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		UserID:            "u-1",
		ShippingAddressID: "a-1",
		CartID:            "cart-1",
		Subtotal:          NewAmount(100),
		ShippingCost:      NewAmount(10),
		DiscountAmount:    NewAmount(20),
		Total:             NewAmount(90),
	})
	require.NoError(t, err)

	assert.Equal(t, "HL-1001", order.Number)
	assert.Equal(t, "pending", order.Status)
	assert.Equal(t, "$90.00", order.Total.Display())
}

func TestListProductsParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "20", q.Get("per_page"))
		assert.Equal(t, "linen", q.Get("search"))
		assert.Equal(t, "true", q.Get("in_stock"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"p-1","name":"Linen Shirt","price":"49.00","in_stock":true}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	products, err := client.ListProducts(context.Background(), ListProductsParams{
		Page: 2, PerPage: 20, Search: "linen", InStockOnly: true,
	})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "$49.00", products[0].DisplayPrice().Display())
}
