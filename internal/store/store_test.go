package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hemline/hemline-terminal/internal/api"
)

// fakeBackend implements Backend with overridable behavior and call
// counters.
type fakeBackend struct {
	mu sync.Mutex

	cart         *api.Cart
	options      []api.ShippingOption
	fetchErr     error
	shippingErr  error
	mutationErr  error
	fetchFn      func(ctx context.Context) (*api.Cart, error)
	fetchCalls   int
	addCalls     int
	updateCalls  int
	removeCalls  int
	clearCalls   int
	optionsCalls int
}

func (f *fakeBackend) FetchCart(ctx context.Context) (*api.Cart, error) {
	f.mu.Lock()
	f.fetchCalls++
	fn := f.fetchFn
	cart, err := f.cart, f.fetchErr
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	if err != nil {
		return nil, err
	}
	copied := *cart
	return &copied, nil
}

func (f *fakeBackend) AddItem(ctx context.Context, req api.AddItemRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls++
	return f.mutationErr
}

func (f *fakeBackend) UpdateItem(ctx context.Context, lineID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	return f.mutationErr
}

func (f *fakeBackend) RemoveItem(ctx context.Context, lineID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls++
	return f.mutationErr
}

func (f *fakeBackend) ClearCart(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	return f.mutationErr
}

func (f *fakeBackend) ShippingOptions(ctx context.Context, state string) ([]api.ShippingOption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.optionsCalls++
	if f.shippingErr != nil {
		return nil, f.shippingErr
	}
	return f.options, nil
}

func testCart(subtotal float64, count int) *api.Cart {
	return &api.Cart{
		CartID:   "cart-1",
		Count:    count,
		Subtotal: api.NewAmount(subtotal),
		Items: []api.CartItem{
			{ID: "line-1", ProductID: "variant-1", UnitPrice: api.NewAmount(subtotal), Quantity: count},
		},
	}
}

func nyOptions() []api.ShippingOption {
	return []api.ShippingOption{
		{ID: 1, State: "NY", ToHome: api.NewAmount(10.00), ToDesk: api.NewAmount(7.50)},
	}
}

func TestLoadSuccess(t *testing.T) {
	fake := &fakeBackend{cart: testCart(42.00, 3)}
	st := New(fake, nil)

	require.Nil(t, st.Cart())
	st.Load(context.Background())

	require.NotNil(t, st.Cart())
	assert.Equal(t, "cart-1", st.Cart().CartID)
	assert.Equal(t, 3, st.ItemCount())
	assert.Equal(t, "$42.00", st.Subtotal().Display())
	assert.False(t, st.Loading())
}

func TestLoadFailureDegradesToSentinel(t *testing.T) {
	fake := &fakeBackend{fetchErr: errors.New("backend down")}
	st := New(fake, nil)

	st.Load(context.Background())

	cart := st.Cart()
	require.NotNil(t, cart, "cart view must render even when the read fails")
	assert.Equal(t, SentinelCartID, cart.CartID)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0, st.ItemCount())
	assert.Equal(t, "$0.00", st.Total().Display())
}

func TestTotalScenario(t *testing.T) {
	// subtotal 100.00, to-home shipping 10.00 in NY, 20% discount of 20.00.
	fake := &fakeBackend{cart: testCart(100.00, 1), options: nyOptions()}
	st := New(fake, nil)

	st.Load(context.Background())
	require.NoError(t, st.SetShippingRegion(context.Background(), "NY"))
	st.ApplyDiscount(api.Discount{Code: "SAVE20", Percent: api.NewAmount(20), Amount: api.NewAmount(20.00)})

	assert.Equal(t, "$10.00", st.ShippingCost().Display())
	assert.Equal(t, "$90.00", st.Total().Display())
}

func TestTotalEmptyCart(t *testing.T) {
	fake := &fakeBackend{cart: &api.Cart{CartID: "cart-1"}}
	st := New(fake, nil)
	st.Load(context.Background())

	assert.Equal(t, "$0.00", st.ShippingCost().Display())
	assert.Equal(t, "$0.00", st.Total().Display())
}

func TestTotalNeverNegative(t *testing.T) {
	fake := &fakeBackend{cart: testCart(15.00, 1)}
	st := New(fake, nil)
	st.Load(context.Background())

	st.ApplyDiscount(api.Discount{Code: "BIG", Amount: api.NewAmount(50.00)})

	assert.Equal(t, "$0.00", st.Total().Display())
	assert.False(t, st.Total().IsNegative())
}

func TestDeliveryTypeSwitchesColumn(t *testing.T) {
	fake := &fakeBackend{cart: testCart(100.00, 1), options: nyOptions()}
	st := New(fake, nil)
	st.Load(context.Background())
	require.NoError(t, st.SetShippingRegion(context.Background(), "NY"))

	assert.Equal(t, "$10.00", st.ShippingCost().Display())

	before := fake.optionsCalls
	st.SetShippingType(DeliveryDesk)
	assert.Equal(t, "$7.50", st.ShippingCost().Display())
	assert.Equal(t, before, fake.optionsCalls, "type switch must not refetch options")
}

func TestUpdateQuantityBelowOneIsNoOp(t *testing.T) {
	fake := &fakeBackend{cart: testCart(30.00, 2)}
	st := New(fake, nil)
	st.Load(context.Background())
	fetchesBefore := fake.fetchCalls

	require.NoError(t, st.UpdateQuantity(context.Background(), "line-1", 0))
	require.NoError(t, st.UpdateQuantity(context.Background(), "line-1", -1))

	assert.Equal(t, 0, fake.updateCalls, "no network call for quantity < 1")
	assert.Equal(t, fetchesBefore, fake.fetchCalls, "no reload for quantity < 1")
	assert.Equal(t, 2, st.ItemCount())
}

func TestAddItemBelowOneIsNoOp(t *testing.T) {
	fake := &fakeBackend{cart: testCart(30.00, 2)}
	st := New(fake, nil)
	st.Load(context.Background())
	fetchesBefore := fake.fetchCalls

	require.NoError(t, st.AddItem(context.Background(), api.AddItemRequest{ProductID: "variant-1", Quantity: 0}))
	require.NoError(t, st.AddItem(context.Background(), api.AddItemRequest{ProductID: "variant-1", Quantity: -2}))

	assert.Equal(t, 0, fake.addCalls, "no network call for quantity < 1")
	assert.Equal(t, fetchesBefore, fake.fetchCalls, "no reload for quantity < 1")
	assert.Equal(t, 2, st.ItemCount())
}

func TestUpdateQuantityReloads(t *testing.T) {
	fake := &fakeBackend{cart: testCart(30.00, 2)}
	st := New(fake, nil)
	st.Load(context.Background())

	fake.mu.Lock()
	fake.cart = testCart(45.00, 3)
	fake.mu.Unlock()

	require.NoError(t, st.UpdateQuantity(context.Background(), "line-1", 3))
	assert.Equal(t, 1, fake.updateCalls)
	assert.Equal(t, 3, st.ItemCount())
	assert.Equal(t, "$45.00", st.Subtotal().Display())
}

func TestMutationErrorPropagatesAndClearsLoading(t *testing.T) {
	fake := &fakeBackend{cart: testCart(30.00, 2), mutationErr: &api.Error{Status: 422, Message: "insufficient stock"}}
	st := New(fake, nil)
	st.Load(context.Background())
	fetchesBefore := fake.fetchCalls

	err := st.AddItem(context.Background(), api.AddItemRequest{ProductID: "variant-9", Quantity: 1})
	require.Error(t, err)
	assert.Equal(t, "insufficient stock", err.Error())
	assert.False(t, st.Loading(), "loading flag must be restored after a failed mutation")
	assert.Equal(t, fetchesBefore, fake.fetchCalls, "failed mutation must not reload")
}

func TestClearResetsCartAndDiscountKeepsShipping(t *testing.T) {
	fake := &fakeBackend{cart: testCart(100.00, 4), options: nyOptions()}
	st := New(fake, nil)
	st.Load(context.Background())
	require.NoError(t, st.SetShippingRegion(context.Background(), "NY"))
	st.SetShippingType(DeliveryDesk)
	st.ApplyDiscount(api.Discount{Code: "SAVE20", Amount: api.NewAmount(20.00)})
	fetchesBefore := fake.fetchCalls

	require.NoError(t, st.Clear(context.Background()))

	assert.Empty(t, st.Cart().Items)
	assert.Equal(t, 0, st.ItemCount())
	assert.Nil(t, st.Discount())
	assert.Equal(t, "NY", st.ShippingState(), "clear must not reset region")
	assert.Equal(t, DeliveryDesk, st.ShippingType(), "clear must not reset delivery type")
	assert.Equal(t, fetchesBefore, fake.fetchCalls, "clear resets locally, no reload")
}

func TestSetShippingRegionFailureKeepsPriorState(t *testing.T) {
	fake := &fakeBackend{cart: testCart(100.00, 1), options: nyOptions()}
	st := New(fake, nil)
	st.Load(context.Background())
	require.NoError(t, st.SetShippingRegion(context.Background(), "NY"))

	fake.mu.Lock()
	fake.shippingErr = errors.New("shipping service unavailable")
	fake.mu.Unlock()

	err := st.SetShippingRegion(context.Background(), "CA")
	require.Error(t, err)
	assert.Equal(t, "NY", st.ShippingState(), "failed fetch must not update region")
	assert.Equal(t, nyOptions(), st.ShippingOptions(), "failed fetch must not touch options")
	assert.Equal(t, "$10.00", st.ShippingCost().Display())
}

func TestDiscountRoundTrip(t *testing.T) {
	fake := &fakeBackend{cart: testCart(100.00, 1), options: nyOptions()}
	st := New(fake, nil)
	st.Load(context.Background())
	require.NoError(t, st.SetShippingRegion(context.Background(), "NY"))

	before := st.Total().Display()
	st.ApplyDiscount(api.Discount{Code: "SAVE20", Percent: api.NewAmount(20), Amount: api.NewAmount(20.00)})
	assert.Equal(t, "$90.00", st.Total().Display())

	st.RemoveDiscount()
	assert.Nil(t, st.Discount())
	assert.Equal(t, before, st.Total().Display())
}

// TestOverlappingAddsLastLoadWins pins down the documented nondeterminism:
// two adds racing on the same variant end up displaying whatever the last
// reload to resolve reported. The store must never sum quantities locally;
// a total of 5 can only come from the backend itself having both adds.
func TestOverlappingAddsLastLoadWins(t *testing.T) {
	gates := []chan *api.Cart{
		make(chan *api.Cart),
		make(chan *api.Cart),
	}
	fetchStarted := make(chan int, 2)

	var mu sync.Mutex
	fetches := 0
	fake := &fakeBackend{}
	fake.fetchFn = func(ctx context.Context) (*api.Cart, error) {
		mu.Lock()
		idx := fetches
		fetches++
		mu.Unlock()
		fetchStarted <- idx
		return <-gates[idx], nil
	}

	st := New(fake, nil)

	firstDone := make(chan struct{})
	secondDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_ = st.AddItem(context.Background(), api.AddItemRequest{ProductID: "variant-1", Quantity: 2})
	}()
	<-fetchStarted // first add's reload is now in flight

	go func() {
		defer close(secondDone)
		_ = st.AddItem(context.Background(), api.AddItemRequest{ProductID: "variant-1", Quantity: 3})
	}()
	<-fetchStarted // second add's reload is now in flight too

	// The second reload resolves first with the backend's coalesced truth;
	// only once it has committed does the first reload resolve late with a
	// stale snapshot.
	gates[1] <- testCart(75.00, 5)
	<-secondDone
	gates[0] <- testCart(30.00, 2)
	<-firstDone

	assert.Equal(t, 2, st.ItemCount(),
		"displayed quantity follows the last load to resolve, even when stale")
	assert.Equal(t, "$30.00", st.Subtotal().Display())
}

func TestSubscribeNotifiesOnChange(t *testing.T) {
	fake := &fakeBackend{cart: testCart(10.00, 1)}
	st := New(fake, nil)

	ch, cancel := st.Subscribe()
	defer cancel()

	st.ApplyDiscount(api.Discount{Code: "X", Amount: api.NewAmount(1.00)})

	select {
	case <-ch:
	default:
		t.Fatal("expected a change notification after ApplyDiscount")
	}
}

// TestCancelUnblocksParkedSubscriber pins the session-teardown path: a
// receiver parked on the subscription channel must return once the
// subscription is cancelled, or every ended session leaks its listener
// goroutine (and everything the model holds) for the life of the server.
func TestCancelUnblocksParkedSubscriber(t *testing.T) {
	fake := &fakeBackend{cart: testCart(10.00, 1)}
	st := New(fake, nil)

	ch, cancel := st.Subscribe()

	unblocked := make(chan bool, 1)
	go func() {
		_, ok := <-ch
		unblocked <- ok
	}()

	cancel()

	select {
	case ok := <-unblocked:
		assert.False(t, ok, "cancel must close the channel, not deliver a signal")
	case <-time.After(time.Second):
		t.Fatal("receiver still parked after cancel")
	}

	cancel() // second cancel must not panic

	// A post-cancel mutation must not notify (or panic on) the removed sub.
	st.ApplyDiscount(api.Discount{Code: "X", Amount: api.NewAmount(1.00)})
}

func TestSnapshotIsConsistent(t *testing.T) {
	fake := &fakeBackend{cart: testCart(100.00, 2), options: nyOptions()}
	st := New(fake, nil)
	st.Load(context.Background())
	require.NoError(t, st.SetShippingRegion(context.Background(), "NY"))
	st.ApplyDiscount(api.Discount{Code: "SAVE20", Amount: api.NewAmount(20.00)})

	snap := st.Snapshot()
	assert.Equal(t, "$100.00", snap.Subtotal.Display())
	assert.Equal(t, "$10.00", snap.ShippingCost.Display())
	assert.Equal(t, "$20.00", snap.DiscountAmount.Display())
	assert.Equal(t, "$90.00", snap.Total.Display())
	assert.Equal(t, "NY", snap.ShippingState)
	assert.False(t, snap.Loading)
}
