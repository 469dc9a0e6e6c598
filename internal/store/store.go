// Package store owns the per-session cart view state: the authoritative
// server cart plus the locally-selected shipping and discount choices, and
// the totals derived from all three. Every cart mutation goes through the
// backend and is followed by a full reload, so the UI and the backend never
// disagree about line items or the subtotal.
package store

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/hemline/hemline-terminal/internal/api"
)

// DeliveryType selects which cost column of a shipping option row applies.
type DeliveryType string

const (
	DeliveryHome DeliveryType = "to-home"
	DeliveryDesk DeliveryType = "to-desk"
)

// SentinelCartID marks the locally-constructed empty cart used when the
// backend read fails. The cart view must always render, even degraded.
const SentinelCartID = "local"

// Backend is the slice of the commerce API the store depends on.
type Backend interface {
	FetchCart(ctx context.Context) (*api.Cart, error)
	AddItem(ctx context.Context, req api.AddItemRequest) error
	UpdateItem(ctx context.Context, lineID string, quantity int) error
	RemoveItem(ctx context.Context, lineID string) error
	ClearCart(ctx context.Context) error
	ShippingOptions(ctx context.Context, state string) ([]api.ShippingOption, error)
}

// CartStore is the single source of truth for "what would the customer pay
// right now". One instance lives per session and is read by every view
// (header badge, cart page, checkout), so a mutation in one surface is
// immediately visible to all others.
//
// Overlapping mutations on the same line item are not serialized: two rapid
// updates race and the last reload to finish wins. Callers wanting strict
// ordering should gate their controls on Loading.
type CartStore struct {
	backend Backend
	logger  *log.Logger

	mu              sync.RWMutex
	cart            *api.Cart
	discount        *api.Discount
	shippingState   string
	shippingType    DeliveryType
	shippingOptions []api.ShippingOption
	loading         bool

	subMu   sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

// New creates a store bound to a backend. The cart is nil until the first
// Load completes.
func New(backend Backend, logger *log.Logger) *CartStore {
	if logger == nil {
		logger = log.Default()
	}
	return &CartStore{
		backend:      backend,
		logger:       logger.With("component", "cartstore"),
		shippingType: DeliveryHome,
		subs:         make(map[int]chan struct{}),
	}
}

func emptyCart() *api.Cart {
	return &api.Cart{
		CartID: SentinelCartID,
		Items:  []api.CartItem{},
	}
}

// Load fetches the current cart from the backend. A failed read degrades to
// the sentinel empty cart instead of surfacing an error; a later successful
// Load replaces it with server state again.
func (s *CartStore) Load(ctx context.Context) {
	s.setLoading(true)
	defer s.setLoading(false)

	cart, err := s.backend.FetchCart(ctx)
	if err != nil {
		s.logger.Warn("cart load failed, rendering empty cart", "err", err)
		cart = emptyCart()
	}

	s.mu.Lock()
	s.cart = cart
	s.mu.Unlock()
	s.notify()
}

// AddItem adds a product to the cart, then reloads so the backend's own
// count and subtotal replace any local view. A quantity below one is a
// silent no-op with no network call, like UpdateQuantity. Backend errors
// are returned as-is; retrying is the caller's decision.
func (s *CartStore) AddItem(ctx context.Context, req api.AddItemRequest) error {
	if req.Quantity < 1 {
		return nil
	}

	s.setLoading(true)
	defer s.setLoading(false)

	if err := s.backend.AddItem(ctx, req); err != nil {
		return err
	}
	s.reload(ctx)
	return nil
}

// UpdateQuantity sets the quantity of a line item, then reloads. A quantity
// below one is a silent no-op with no network call: removal must go through
// RemoveItem, never an implicit zero-quantity update.
func (s *CartStore) UpdateQuantity(ctx context.Context, lineID string, quantity int) error {
	if quantity < 1 {
		return nil
	}

	s.setLoading(true)
	defer s.setLoading(false)

	if err := s.backend.UpdateItem(ctx, lineID, quantity); err != nil {
		return err
	}
	s.reload(ctx)
	return nil
}

// RemoveItem deletes a line item, then reloads.
func (s *CartStore) RemoveItem(ctx context.Context, lineID string) error {
	s.setLoading(true)
	defer s.setLoading(false)

	if err := s.backend.RemoveItem(ctx, lineID); err != nil {
		return err
	}
	s.reload(ctx)
	return nil
}

// Clear empties the cart. On success the local cart resets to the sentinel
// directly (a clear is known to produce an empty result, so no reload) and
// the discount drops with it. The shipping selection survives: it reflects
// the customer's region, which does not change because the cart did.
func (s *CartStore) Clear(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	if err := s.backend.ClearCart(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.cart = emptyCart()
	s.discount = nil
	s.mu.Unlock()
	s.notify()
	return nil
}

// SetShippingRegion fetches the shipping options for region and, only once
// the fetch succeeds, replaces the options list wholesale and records the
// region. On failure both the prior region and prior options stand, so the
// store can never hold a selected-but-unresolvable region.
func (s *CartStore) SetShippingRegion(ctx context.Context, region string) error {
	options, err := s.backend.ShippingOptions(ctx, region)
	if err != nil {
		s.logger.Warn("shipping options fetch failed, keeping region", "region", region, "err", err)
		return err
	}

	s.mu.Lock()
	s.shippingOptions = options
	s.shippingState = region
	s.mu.Unlock()
	s.notify()
	return nil
}

// SetShippingType switches between home and desk delivery. Purely local: it
// only changes which column of the already-fetched options row is read.
func (s *CartStore) SetShippingType(t DeliveryType) {
	s.mu.Lock()
	s.shippingType = t
	s.mu.Unlock()
	s.notify()
}

// ApplyDiscount attaches a backend-validated discount. The store trusts its
// input completely; callers obtain d from a prior CalculateDiscount call and
// no re-validation happens here.
func (s *CartStore) ApplyDiscount(d api.Discount) {
	s.mu.Lock()
	s.discount = &d
	s.mu.Unlock()
	s.notify()
}

// RemoveDiscount detaches the discount.
func (s *CartStore) RemoveDiscount() {
	s.mu.Lock()
	s.discount = nil
	s.mu.Unlock()
	s.notify()
}

// reload resynchronizes from the backend after a successful mutation. It
// reuses Load's degraded fallback but runs inside the mutation's loading
// window.
func (s *CartStore) reload(ctx context.Context) {
	cart, err := s.backend.FetchCart(ctx)
	if err != nil {
		s.logger.Warn("cart reload failed, rendering empty cart", "err", err)
		cart = emptyCart()
	}
	s.mu.Lock()
	s.cart = cart
	s.mu.Unlock()
	s.notify()
}

func (s *CartStore) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
	s.notify()
}

// Loading reports whether a backend call is in flight.
func (s *CartStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Cart returns the current cart, nil until the first Load completes.
func (s *CartStore) Cart() *api.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart
}

// Discount returns the applied discount, nil when none.
func (s *CartStore) Discount() *api.Discount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.discount
}

// ShippingState returns the selected region key, "" when unselected.
func (s *CartStore) ShippingState() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shippingState
}

// ShippingType returns the selected delivery type.
func (s *CartStore) ShippingType() DeliveryType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shippingType
}

// ShippingOptions returns the fetched options for the selected region.
func (s *CartStore) ShippingOptions() []api.ShippingOption {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shippingOptions
}

// ItemCount returns the backend's count field, 0 before the first load. It
// is never recomputed from the items slice.
func (s *CartStore) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cart == nil {
		return 0
	}
	return s.cart.Count
}

// Subtotal returns the backend-reported subtotal, zero before the first
// load.
func (s *CartStore) Subtotal() api.Amount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subtotalLocked()
}

func (s *CartStore) subtotalLocked() api.Amount {
	if s.cart == nil {
		return api.Amount{}
	}
	return s.cart.Subtotal
}

// ShippingCost resolves the cost for the selected region and delivery type,
// zero until a region is both selected and present in the options list.
func (s *CartStore) ShippingCost() api.Amount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shippingCostLocked()
}

func (s *CartStore) shippingCostLocked() api.Amount {
	if s.shippingState == "" {
		return api.Amount{}
	}
	for _, opt := range s.shippingOptions {
		if opt.State != s.shippingState {
			continue
		}
		if s.shippingType == DeliveryDesk {
			return opt.ToDesk
		}
		return opt.ToHome
	}
	return api.Amount{}
}

// DiscountAmount returns the applied discount amount, zero when none.
func (s *CartStore) DiscountAmount() api.Amount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.discountAmountLocked()
}

func (s *CartStore) discountAmountLocked() api.Amount {
	if s.discount == nil {
		return api.Amount{}
	}
	return s.discount.Amount
}

// Total derives subtotal + shipping − discount, floored at zero. It is
// recomputed on every call and never stored.
func (s *CartStore) Total() api.Amount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalLocked()
}

func (s *CartStore) totalLocked() api.Amount {
	total := s.subtotalLocked().Decimal.
		Add(s.shippingCostLocked().Decimal).
		Sub(s.discountAmountLocked().Decimal)
	if total.IsNegative() {
		return api.Amount{}
	}
	return api.AmountFromDecimal(total)
}

// Snapshot is a consistent point-in-time read of the whole store.
type Snapshot struct {
	Cart            *api.Cart
	Discount        *api.Discount
	ShippingState   string
	ShippingType    DeliveryType
	ShippingOptions []api.ShippingOption
	Loading         bool

	Subtotal       api.Amount
	ShippingCost   api.Amount
	DiscountAmount api.Amount
	Total          api.Amount
}

// Snapshot reads all state and derived totals under one lock, so the
// numbers a view renders together always belong together.
func (s *CartStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Cart:            s.cart,
		Discount:        s.discount,
		ShippingState:   s.shippingState,
		ShippingType:    s.shippingType,
		ShippingOptions: s.shippingOptions,
		Loading:         s.loading,
		Subtotal:        s.subtotalLocked(),
		ShippingCost:    s.shippingCostLocked(),
		DiscountAmount:  s.discountAmountLocked(),
		Total:           s.totalLocked(),
	}
}

// Subscribe registers a change listener. The channel receives a signal
// (coalesced, never blocking the store) after every state change; the
// returned func cancels the subscription and closes the channel, so a
// receiver parked on it unblocks when the session ends. Cancel is
// idempotent.
func (s *CartStore) Subscribe() (<-chan struct{}, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		// Remove before closing, under the same lock notify sends under,
		// so notify can never send on a closed channel.
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (s *CartStore) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
