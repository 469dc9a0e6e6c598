// Package main implements a mock Hemline commerce backend for local
// development. State is in-memory and keyed by session cookie, so every
// terminal session shops against its own cart.
package main

import (
	"embed"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hemline/hemline-terminal/internal/api"
)

//go:embed testdata/*
var testdataFS embed.FS

// discountCode is a mock promotion. Percent-based codes compute against the
// submitted subtotal; flat codes ignore it.
type discountCode struct {
	Percent float64
	Flat    float64
}

var discountCodes = map[string]discountCode{
	"WELCOME10": {Percent: 10},
	"ATELIER20": {Percent: 20},
	"TAKE15":    {Flat: 15},
}

// shippingRate is the per-region cost table, one row per region.
type shippingRate struct {
	ToHome float64
	ToDesk float64
}

var shippingRates = map[string]shippingRate{
	"NY": {ToHome: 8, ToDesk: 5},
	"NJ": {ToHome: 9, ToDesk: 6},
	"CT": {ToHome: 9, ToDesk: 6},
	"MA": {ToHome: 10, ToDesk: 7},
	"CA": {ToHome: 14, ToDesk: 10},
	"TX": {ToHome: 12, ToDesk: 9},
	"FL": {ToHome: 12, ToDesk: 9},
	"IL": {ToHome: 11, ToDesk: 8},
	"WA": {ToHome: 14, ToDesk: 10},
}

var demoUser = api.User{
	ID:        "u-1001",
	Email:     "ada@example.com",
	FirstName: "Ada",
	LastName:  "Laurent",
}

var demoAddresses = []api.Address{
	{ID: "a-1", Label: "Home", Street: "14 Orchard St", City: "New York", State: "NY", Zip: "10002", Country: "US"},
	{ID: "a-2", Label: "Studio", Street: "88 Franklin Ave", City: "Brooklyn", State: "NY", Zip: "11205", Country: "US"},
}

type session struct {
	cart *api.Cart
}

type server struct {
	logger   *log.Logger
	products []api.Product

	mu        sync.Mutex
	sessions  map[string]*session
	orderSeq  int
	orderBase int
}

func newServer(logger *log.Logger) (*server, error) {
	data, err := testdataFS.ReadFile("testdata/products.json")
	if err != nil {
		return nil, fmt.Errorf("loading products.json: %w", err)
	}
	var products []api.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("parsing products.json: %w", err)
	}
	return &server{
		logger:    logger,
		products:  products,
		sessions:  make(map[string]*session),
		orderBase: 1000,
	}, nil
}

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "mockstore",
	})

	addr := os.Getenv("MOCKSTORE_ADDR")
	if addr == "" {
		addr = ":18090"
	}

	srv, err := newServer(logger)
	if err != nil {
		logger.Fatal("Failed to initialize", "err", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(srv.withSession)

	r.Get("/products", srv.handleListProducts)
	r.Get("/products/{id}", srv.handleGetProduct)
	r.Get("/categories", srv.handleListCategories)

	r.Get("/cart", srv.handleGetCart)
	r.Post("/cart/add", srv.handleAddItem)
	r.Put("/cart/items/{id}", srv.handleUpdateItem)
	r.Delete("/cart/items/{id}", srv.handleRemoveItem)
	r.Delete("/cart/clear", srv.handleClearCart)

	r.Get("/shipping-options", srv.handleShippingOptions)
	r.Post("/discount-codes/calculate", srv.handleCalculateDiscount)
	r.Post("/orders", srv.handleCreateOrder)

	r.Get("/me", srv.handleMe)
	r.Get("/addresses", srv.handleListAddresses)

	logger.Info("Mock commerce backend listening", "addr", addr, "products", len(srv.products))
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Fatal("Server error", "err", err)
	}
}

// withSession ensures every request carries a session cookie and a cart.
func (s *server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(api.SessionCookieName)
		if err != nil || cookie.Value == "" {
			token := uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     api.SessionCookieName,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
			})
			r.AddCookie(&http.Cookie{Name: api.SessionCookieName, Value: token})
			s.logger.Debug("new session", "token", token)
		}
		next.ServeHTTP(w, r)
	})
}

// sessionFor returns the session for the request's cookie, creating the cart
// on first contact. Callers must hold s.mu.
func (s *server) sessionFor(r *http.Request) *session {
	cookie, _ := r.Cookie(api.SessionCookieName)
	token := cookie.Value

	sess, ok := s.sessions[token]
	if !ok {
		sess = &session{cart: newCart()}
		s.sessions[token] = sess
	}
	return sess
}

// newCart builds an empty cart. Items is a non-nil slice so an empty cart
// marshals as "items": [], never null.
func newCart() *api.Cart {
	return &api.Cart{CartID: uuid.NewString(), Items: []api.CartItem{}}
}

// recompute refreshes the cart's count and subtotal after a mutation.
func recompute(cart *api.Cart) {
	count := 0
	subtotal := decimal.Zero
	for _, item := range cart.Items {
		count += item.Quantity
		subtotal = subtotal.Add(item.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	cart.Count = count
	cart.Subtotal = api.AmountFromDecimal(subtotal)
}

func (s *server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, _ := strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(query.Get("per_page"))
	if perPage < 1 {
		perPage = 10
	}

	search := strings.ToLower(query.Get("search"))
	category := query.Get("category")
	inStockOnly := query.Get("in_stock") == "true"

	filtered := make([]api.Product, 0, len(s.products))
	for _, p := range s.products {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		if inStockOnly && !p.InStock {
			continue
		}
		filtered = append(filtered, p)
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start >= len(filtered) {
		filtered = []api.Product{}
	} else {
		if end > len(filtered) {
			end = len(filtered)
		}
		filtered = filtered[start:end]
	}

	writeJSON(w, http.StatusOK, filtered)
}

func (s *server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, p := range s.products {
		if p.ID == id {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeError(w, http.StatusNotFound, "product_not_found", "Product not found")
}

func (s *server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	seen := map[string]bool{}
	categories := []api.Category{}
	for _, p := range s.products {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		categories = append(categories, api.Category{
			ID:   fmt.Sprintf("cat-%d", len(categories)+1),
			Name: p.Category,
			Slug: strings.ToLower(strings.ReplaceAll(p.Category, " ", "-")),
		})
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.sessionFor(r).cart)
}

func (s *server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req api.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}
	if req.Quantity < 1 {
		writeError(w, http.StatusBadRequest, "bad_quantity", "Quantity must be at least 1")
		return
	}

	var product *api.Product
	for i := range s.products {
		if s.products[i].ID == req.ProductID {
			product = &s.products[i]
			break
		}
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "product_not_found", "Product not found")
		return
	}
	if !product.InStock {
		writeError(w, http.StatusConflict, "out_of_stock", "Product is out of stock")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.sessionFor(r).cart

	// Same product+size+color folds into the existing line.
	for i := range cart.Items {
		item := &cart.Items[i]
		if item.ProductID == req.ProductID && item.Size == req.Size && item.Color == req.Color {
			item.Quantity += req.Quantity
			recompute(cart)
			writeJSON(w, http.StatusOK, cart)
			return
		}
	}

	cart.Items = append(cart.Items, api.CartItem{
		ID:        uuid.NewString(),
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.DisplayPrice(),
		Quantity:  req.Quantity,
		Size:      req.Size,
		Color:     req.Color,
		ImageURL:  product.ImageURL,
	})
	recompute(cart)
	writeJSON(w, http.StatusOK, cart)
}

func (s *server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	lineID := chi.URLParam(r, "id")

	var req api.UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}
	if req.Quantity < 1 {
		writeError(w, http.StatusBadRequest, "bad_quantity", "Quantity must be at least 1")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.sessionFor(r).cart

	for i := range cart.Items {
		if cart.Items[i].ID == lineID {
			cart.Items[i].Quantity = req.Quantity
			recompute(cart)
			writeJSON(w, http.StatusOK, cart)
			return
		}
	}
	writeError(w, http.StatusNotFound, "line_not_found", "Cart item not found")
}

func (s *server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	lineID := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.sessionFor(r).cart

	for i := range cart.Items {
		if cart.Items[i].ID == lineID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			recompute(cart)
			writeJSON(w, http.StatusOK, cart)
			return
		}
	}
	writeError(w, http.StatusNotFound, "line_not_found", "Cart item not found")
}

func (s *server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.sessionFor(r).cart
	cart.Items = []api.CartItem{}
	recompute(cart)
	writeJSON(w, http.StatusOK, cart)
}

func (s *server) handleShippingOptions(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	rate, ok := shippingRates[state]
	if !ok {
		writeError(w, http.StatusNotFound, "region_unsupported", "We don't ship to that region yet")
		return
	}
	writeJSON(w, http.StatusOK, []api.ShippingOption{{
		ID:     1,
		State:  state,
		ToHome: api.NewAmount(rate.ToHome),
		ToDesk: api.NewAmount(rate.ToDesk),
	}})
}

func (s *server) handleCalculateDiscount(w http.ResponseWriter, r *http.Request) {
	var req api.CalculateDiscountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	code, ok := discountCodes[strings.ToUpper(strings.TrimSpace(req.Code))]
	if !ok {
		writeError(w, http.StatusNotFound, "code_invalid", "That code isn't valid")
		return
	}

	var amount decimal.Decimal
	percent := decimal.NewFromFloat(code.Percent)
	if code.Percent > 0 {
		amount = req.Subtotal.Decimal.Mul(percent).Div(decimal.NewFromInt(100)).Round(2)
	} else {
		amount = decimal.NewFromFloat(code.Flat)
	}
	// A flat code can't push the order negative.
	if amount.GreaterThan(req.Subtotal.Decimal) {
		amount = req.Subtotal.Decimal
	}

	writeJSON(w, http.StatusOK, api.CalculateDiscountResponse{
		Discount: api.Discount{
			Code:    strings.ToUpper(strings.TrimSpace(req.Code)),
			Percent: api.AmountFromDecimal(percent),
			Amount:  api.AmountFromDecimal(amount),
		},
		Total: api.AmountFromDecimal(req.Subtotal.Decimal.Sub(amount)),
	})
}

func (s *server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req api.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessionFor(r)

	if len(sess.cart.Items) == 0 {
		writeError(w, http.StatusConflict, "cart_empty", "Cart is empty")
		return
	}
	if req.CartID != sess.cart.CartID {
		writeError(w, http.StatusConflict, "cart_mismatch", "Cart has changed, refresh and retry")
		return
	}

	s.orderSeq++
	order := api.Order{
		ID:           uuid.NewString(),
		Number:       strconv.Itoa(s.orderBase + s.orderSeq),
		Status:       "processing",
		Subtotal:     req.Subtotal,
		ShippingCost: req.ShippingCost,
		Discount:     req.DiscountAmount,
		Total:        req.Total,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}

	// The order consumes the cart.
	sess.cart = newCart()

	s.logger.Info("order placed", "number", order.Number, "total", order.Total.Display())
	writeJSON(w, http.StatusCreated, api.CreateOrderResponse{Order: order})
}

func (s *server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, demoUser)
}

func (s *server) handleListAddresses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, demoAddresses)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, api.Error{Code: code, Message: message})
}
