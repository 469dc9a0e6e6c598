package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/hemline/hemline-terminal/internal/api"
	"github.com/hemline/hemline-terminal/internal/cache"
	"github.com/hemline/hemline-terminal/internal/store"
)

// ViewState represents the current view in the application.
type ViewState int

const (
	ViewShop ViewState = iota
	ViewProduct
	ViewCart
	ViewShipping
	ViewCheckout
	ViewConfirmation
)

// shippingRegions are the state codes the brand ships to. Costs per region
// come from the backend once a region is picked.
var shippingRegions = []string{"NY", "NJ", "CT", "MA", "CA", "TX", "FL", "IL", "WA"}

// ProductListKey is the cache key for product list pages.
type ProductListKey struct {
	Page        int
	PerPage     int
	Search      string
	Category    string
	InStockOnly bool
}

// pickedOptions holds the configurator selections. It lives behind a pointer
// so huh's value bindings survive Bubble Tea's model copies.
type pickedOptions struct {
	Size  string
	Color string
}

// Model is the main Bubble Tea model for the storefront.
type Model struct {
	// Dependencies
	client        *api.Client
	cart          *store.CartStore
	productsCache *cache.Cache[ProductListKey, []api.Product]
	logger        *log.Logger

	// View state
	viewState ViewState
	width     int
	height    int
	styles    Styles

	// Shop view
	productList     list.Model
	products        []api.Product
	categories      []api.Category
	categoryIdx     int // 0 means all categories
	searchInput     textinput.Model
	showSearch      bool
	inStockOnly     bool
	currentPage     int
	perPage         int
	loadingProducts bool
	spin            spinner.Model

	// Product view
	selectedProduct *api.Product
	configForm      *huh.Form
	picked          *pickedOptions

	// Cart view
	cartIdx int

	// Shipping view
	regionIdx          int
	discountInput      textinput.Model
	discountFocus      bool
	validatingDiscount bool

	// Checkout view
	user            *api.User
	addresses       []api.Address
	addressIdx      int
	loadingCheckout bool
	placingOrder    bool

	// Confirmation view
	placedOrder *api.Order

	// Store change fan-in
	changes   <-chan struct{}
	cancelSub func()

	err error
}

// Messages
type (
	productsLoadedMsg struct {
		products []api.Product
	}
	categoriesLoadedMsg struct {
		categories []api.Category
	}
	cartSyncedMsg      struct{}
	storeChangedMsg    struct{}
	regionSetMsg       struct{ region string }
	discountAppliedMsg struct{ discount api.Discount }
	checkoutLoadedMsg  struct {
		user      *api.User
		addresses []api.Address
	}
	orderPlacedMsg struct{ order *api.Order }
	errMsg         struct{ err error }
)

// productItem implements list.Item for catalog products.
type productItem struct {
	product api.Product
}

func (i productItem) Title() string { return i.product.Name }

func (i productItem) Description() string {
	price := i.product.DisplayPrice().Display()
	stock := "In Stock"
	if !i.product.InStock {
		stock = "Out of Stock"
	}
	if i.product.Category != "" {
		return fmt.Sprintf("%s • %s • %s", price, i.product.Category, stock)
	}
	return fmt.Sprintf("%s • %s", price, stock)
}

func (i productItem) FilterValue() string { return i.product.Name }

// NewModel creates the storefront model for one session.
func NewModel(client *api.Client, cartStore *store.CartStore, productsCache *cache.Cache[ProductListKey, []api.Product], logger *log.Logger) Model {
	if logger == nil {
		logger = log.Default()
	}
	styles := DefaultStyles()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorCamel)

	search := textinput.New()
	search.Placeholder = "Search the collection..."
	search.CharLimit = 50
	search.Width = 30

	discount := textinput.New()
	discount.Placeholder = "Discount code"
	discount.CharLimit = 24
	discount.Width = 20

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(colorHighlight).
		BorderLeftForeground(colorHighlight)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(colorCamel).
		BorderLeftForeground(colorHighlight)

	productList := list.New([]list.Item{}, delegate, 0, 0)
	productList.Title = "Hemline — New Arrivals"
	productList.SetShowHelp(false)
	productList.SetFilteringEnabled(true)
	productList.Styles.Title = styles.ListTitle

	changes, cancel := cartStore.Subscribe()

	return Model{
		client:        client,
		cart:          cartStore,
		productsCache: productsCache,
		logger:        logger.With("component", "tui"),
		viewState:     ViewShop,
		styles:        styles,
		productList:   productList,
		searchInput:   search,
		discountInput: discount,
		spin:          sp,
		currentPage:   1,
		perPage:       20,
		picked:        &pickedOptions{},
		changes:       changes,
		cancelSub:     cancel,
	}
}

// Init starts the first load of both the catalog and the cart.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spin.Tick,
		m.loadProducts(),
		m.loadCategories(),
		m.loadCart(),
		m.waitForChange(),
	)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.productList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)

	case storeChangedMsg:
		// The cart store changed under us (any view); re-arm the listener.
		cmds = append(cmds, m.waitForChange())

	case productsLoadedMsg:
		m.loadingProducts = false
		m.products = msg.products
		m.updateProductList()

	case categoriesLoadedMsg:
		m.categories = msg.categories

	case cartSyncedMsg:
		m.err = nil

	case regionSetMsg:
		m.err = nil

	case discountAppliedMsg:
		m.validatingDiscount = false
		m.discountFocus = false
		m.discountInput.Blur()
		m.discountInput.SetValue("")
		m.err = nil

	case checkoutLoadedMsg:
		m.loadingCheckout = false
		m.user = msg.user
		m.addresses = msg.addresses
		m.addressIdx = 0

	case orderPlacedMsg:
		m.placingOrder = false
		m.placedOrder = msg.order
		m.viewState = ViewConfirmation
		// The backend consumed the cart; resync and drop the used discount.
		m.cart.RemoveDiscount()
		cmds = append(cmds, m.loadCart())

	case errMsg:
		m.logger.Error("operation failed", "err", msg.err)
		m.err = msg.err
		m.loadingProducts = false
		m.validatingDiscount = false
		m.loadingCheckout = false
		m.placingOrder = false
	}

	// Per-view sub-model updates.
	switch m.viewState {
	case ViewShop:
		var cmd tea.Cmd
		if m.showSearch {
			m.searchInput, cmd = m.searchInput.Update(msg)
		} else {
			m.productList, cmd = m.productList.Update(msg)
		}
		cmds = append(cmds, cmd)

	case ViewProduct:
		if m.configForm != nil {
			form, cmd := m.configForm.Update(msg)
			if f, ok := form.(*huh.Form); ok {
				m.configForm = f
			}
			cmds = append(cmds, cmd)
		}

	case ViewShipping:
		if m.discountFocus {
			var cmd tea.Cmd
			m.discountInput, cmd = m.discountInput.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.cancelSub()
		return m, tea.Quit
	}

	switch m.viewState {
	case ViewShop:
		return m.handleShopKeys(msg)
	case ViewProduct:
		return m.handleProductKeys(msg)
	case ViewCart:
		return m.handleCartKeys(msg)
	case ViewShipping:
		return m.handleShippingKeys(msg)
	case ViewCheckout:
		return m.handleCheckoutKeys(msg)
	case ViewConfirmation:
		return m.handleConfirmationKeys(msg)
	}
	return m, nil
}

func (m Model) handleShopKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.showSearch {
		switch key {
		case "enter":
			m.showSearch = false
			m.searchInput.Blur()
			m.loadingProducts = true
			return m, m.loadProducts()
		case "esc":
			m.showSearch = false
			m.searchInput.Blur()
			m.searchInput.SetValue("")
			return m, nil
		}
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}

	switch key {
	case "q":
		m.cancelSub()
		return m, tea.Quit

	case "/":
		m.showSearch = true
		m.searchInput.Focus()
		return m, textinput.Blink

	case "f":
		m.inStockOnly = !m.inStockOnly
		m.loadingProducts = true
		return m, m.loadProducts()

	case "g":
		if len(m.categories) > 0 {
			m.categoryIdx = (m.categoryIdx + 1) % (len(m.categories) + 1)
			m.productList.Title = m.listTitle()
			m.loadingProducts = true
			return m, m.loadProducts()
		}
		return m, nil

	case "r":
		m.productsCache.Purge()
		m.loadingProducts = true
		return m, m.loadProducts()

	case "c":
		m.viewState = ViewCart
		m.cartIdx = 0
		return m, nil

	case "enter":
		if item, ok := m.productList.SelectedItem().(productItem); ok {
			p := item.product
			m.selectedProduct = &p
			m.viewState = ViewProduct
			m.picked = &pickedOptions{}
			m.initConfigurator()
			if m.configForm != nil {
				return m, m.configForm.Init()
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.productList, cmd = m.productList.Update(msg)
	return m, cmd
}

func (m Model) handleProductKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "esc", "backspace":
		m.viewState = ViewShop
		m.selectedProduct = nil
		m.configForm = nil
		return m, nil

	case "a":
		if m.selectedProduct != nil && m.canAddSelected() {
			p := *m.selectedProduct
			m.viewState = ViewCart
			m.cartIdx = 0
			return m, m.addToCart(p)
		}
		return m, nil
	}

	if m.configForm != nil {
		form, cmd := m.configForm.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.configForm = f
		}
		return m, cmd
	}
	return m, nil
}

// canAddSelected reports whether the product can go in the cart: in stock,
// and fully configured when it has size/color options.
func (m Model) canAddSelected() bool {
	p := m.selectedProduct
	if p == nil || !p.InStock {
		return false
	}
	if m.configForm != nil && m.configForm.State != huh.StateCompleted {
		return false
	}
	return true
}

func (m Model) handleCartKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	snap := m.cart.Snapshot()

	switch key {
	case "esc", "backspace", "s":
		m.viewState = ViewShop
		return m, nil

	case "up", "k":
		if m.cartIdx > 0 {
			m.cartIdx--
		}
		return m, nil

	case "down", "j":
		if snap.Cart != nil && m.cartIdx < len(snap.Cart.Items)-1 {
			m.cartIdx++
		}
		return m, nil
	}

	// Mutations are gated on the loading flag so rapid keypresses don't
	// race overlapping reloads on the same line.
	if snap.Loading {
		return m, nil
	}

	switch key {
	case "+", "=":
		if item := m.selectedLine(snap); item != nil {
			return m, m.updateQuantity(item.ID, item.Quantity+1)
		}

	case "-":
		if item := m.selectedLine(snap); item != nil && item.Quantity > 1 {
			return m, m.updateQuantity(item.ID, item.Quantity-1)
		}

	case "d", "delete":
		if item := m.selectedLine(snap); item != nil {
			if m.cartIdx > 0 {
				m.cartIdx--
			}
			return m, m.removeLine(item.ID)
		}

	case "x":
		if snap.Cart != nil && len(snap.Cart.Items) > 0 {
			m.cartIdx = 0
			return m, m.clearCart()
		}

	case "o":
		if snap.Cart != nil && len(snap.Cart.Items) > 0 {
			m.viewState = ViewShipping
			m.regionIdx = 0
			return m, nil
		}
	}

	return m, nil
}

func (m Model) selectedLine(snap store.Snapshot) *api.CartItem {
	if snap.Cart == nil || m.cartIdx < 0 || m.cartIdx >= len(snap.Cart.Items) {
		return nil
	}
	return &snap.Cart.Items[m.cartIdx]
}

func (m Model) handleShippingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.discountFocus {
		switch key {
		case "enter":
			code := m.discountInput.Value()
			if code != "" && !m.validatingDiscount {
				m.validatingDiscount = true
				return m, m.applyDiscountCode(code)
			}
			return m, nil
		case "esc":
			m.discountFocus = false
			m.discountInput.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.discountInput, cmd = m.discountInput.Update(msg)
		return m, cmd
	}

	switch key {
	case "esc", "backspace":
		m.viewState = ViewCart
		return m, nil

	case "up", "k":
		if m.regionIdx > 0 {
			m.regionIdx--
		}
		return m, nil

	case "down", "j":
		if m.regionIdx < len(shippingRegions)-1 {
			m.regionIdx++
		}
		return m, nil

	case "enter":
		return m, m.selectRegion(shippingRegions[m.regionIdx])

	case "t":
		if m.cart.ShippingType() == store.DeliveryHome {
			m.cart.SetShippingType(store.DeliveryDesk)
		} else {
			m.cart.SetShippingType(store.DeliveryHome)
		}
		return m, nil

	case "%":
		m.discountFocus = true
		m.discountInput.Focus()
		return m, textinput.Blink

	case "r":
		m.cart.RemoveDiscount()
		return m, nil

	case "n":
		if m.cart.ShippingState() != "" {
			m.viewState = ViewCheckout
			m.loadingCheckout = true
			return m, m.loadCheckout()
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleCheckoutKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "esc", "backspace":
		m.viewState = ViewShipping
		return m, nil

	case "up", "k":
		if m.addressIdx > 0 {
			m.addressIdx--
		}
		return m, nil

	case "down", "j":
		if m.addressIdx < len(m.addresses)-1 {
			m.addressIdx++
		}
		return m, nil

	case "enter", "p":
		if !m.placingOrder && m.user != nil && len(m.addresses) > 0 {
			m.placingOrder = true
			return m, m.placeOrder()
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleConfirmationKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc", "q":
		m.viewState = ViewShop
		m.placedOrder = nil
		m.err = nil
		return m, nil
	}
	return m, nil
}

// initConfigurator builds the size/color form for the selected product.
// Products with no options skip the form entirely.
func (m *Model) initConfigurator() {
	p := m.selectedProduct
	m.configForm = nil
	if p == nil || (len(p.Sizes) == 0 && len(p.Colors) == 0) {
		return
	}

	var groups []*huh.Group

	if len(p.Sizes) > 0 {
		opts := make([]huh.Option[string], len(p.Sizes))
		for i, s := range p.Sizes {
			opts[i] = huh.NewOption(s, s)
		}
		groups = append(groups, huh.NewGroup(
			huh.NewSelect[string]().
				Title("Size").
				Options(opts...).
				Value(&m.picked.Size),
		))
	}

	if len(p.Colors) > 0 {
		opts := make([]huh.Option[string], len(p.Colors))
		for i, c := range p.Colors {
			opts[i] = huh.NewOption(c, c)
		}
		groups = append(groups, huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color").
				Options(opts...).
				Value(&m.picked.Color),
		))
	}

	m.configForm = huh.NewForm(groups...).
		WithShowHelp(true).
		WithShowErrors(true)
}

func (m *Model) updateProductList() {
	items := make([]list.Item, len(m.products))
	for i, p := range m.products {
		items[i] = productItem{product: p}
	}
	m.productList.SetItems(items)
}

// Commands

// selectedCategory returns the active category filter name, "" for all.
func (m Model) selectedCategory() string {
	if m.categoryIdx == 0 || m.categoryIdx > len(m.categories) {
		return ""
	}
	return m.categories[m.categoryIdx-1].Name
}

func (m Model) listTitle() string {
	if cat := m.selectedCategory(); cat != "" {
		return "Hemline — " + cat
	}
	return "Hemline — New Arrivals"
}

func (m Model) loadProducts() tea.Cmd {
	key := ProductListKey{
		Page:        m.currentPage,
		PerPage:     m.perPage,
		Search:      m.searchInput.Value(),
		Category:    m.selectedCategory(),
		InStockOnly: m.inStockOnly,
	}

	return func() tea.Msg {
		products, err := m.productsCache.GetOrLoad(key, func() ([]api.Product, error) {
			return m.client.ListProducts(context.Background(), api.ListProductsParams{
				Page:        key.Page,
				PerPage:     key.PerPage,
				Search:      key.Search,
				Category:    key.Category,
				InStockOnly: key.InStockOnly,
			})
		})
		if err != nil {
			return errMsg{err: err}
		}
		return productsLoadedMsg{products: products}
	}
}

func (m Model) loadCategories() tea.Cmd {
	return func() tea.Msg {
		categories, err := m.client.ListCategories(context.Background())
		if err != nil {
			// The shop works without the filter; don't surface this.
			return categoriesLoadedMsg{}
		}
		return categoriesLoadedMsg{categories: categories}
	}
}

func (m Model) loadCart() tea.Cmd {
	return func() tea.Msg {
		m.cart.Load(context.Background())
		return cartSyncedMsg{}
	}
}

func (m Model) addToCart(p api.Product) tea.Cmd {
	req := api.AddItemRequest{
		ProductID: p.ID,
		Quantity:  1,
		Size:      m.picked.Size,
		Color:     m.picked.Color,
	}
	return func() tea.Msg {
		if err := m.cart.AddItem(context.Background(), req); err != nil {
			return errMsg{err: err}
		}
		return cartSyncedMsg{}
	}
}

func (m Model) updateQuantity(lineID string, quantity int) tea.Cmd {
	return func() tea.Msg {
		if err := m.cart.UpdateQuantity(context.Background(), lineID, quantity); err != nil {
			return errMsg{err: err}
		}
		return cartSyncedMsg{}
	}
}

func (m Model) removeLine(lineID string) tea.Cmd {
	return func() tea.Msg {
		if err := m.cart.RemoveItem(context.Background(), lineID); err != nil {
			return errMsg{err: err}
		}
		return cartSyncedMsg{}
	}
}

func (m Model) clearCart() tea.Cmd {
	return func() tea.Msg {
		if err := m.cart.Clear(context.Background()); err != nil {
			return errMsg{err: err}
		}
		return cartSyncedMsg{}
	}
}

func (m Model) selectRegion(region string) tea.Cmd {
	return func() tea.Msg {
		if err := m.cart.SetShippingRegion(context.Background(), region); err != nil {
			return errMsg{err: err}
		}
		return regionSetMsg{region: region}
	}
}

func (m Model) applyDiscountCode(code string) tea.Cmd {
	return func() tea.Msg {
		snap := m.cart.Snapshot()
		resp, err := m.client.CalculateDiscount(context.Background(), code, snap.Subtotal)
		if err != nil {
			return errMsg{err: err}
		}
		m.cart.ApplyDiscount(resp.Discount)
		return discountAppliedMsg{discount: resp.Discount}
	}
}

func (m Model) loadCheckout() tea.Cmd {
	return func() tea.Msg {
		user, err := m.client.Me(context.Background())
		if err != nil {
			return errMsg{err: err}
		}
		addresses, err := m.client.ListAddresses(context.Background())
		if err != nil {
			return errMsg{err: err}
		}
		return checkoutLoadedMsg{user: user, addresses: addresses}
	}
}

func (m Model) placeOrder() tea.Cmd {
	user := m.user
	address := m.addresses[m.addressIdx]
	return func() tea.Msg {
		snap := m.cart.Snapshot()
		if snap.Cart == nil || len(snap.Cart.Items) == 0 {
			return errMsg{err: fmt.Errorf("cart is empty")}
		}

		req := api.CreateOrderRequest{
			UserID:            user.ID,
			ShippingAddressID: address.ID,
			CartID:            snap.Cart.CartID,
			Subtotal:          snap.Subtotal,
			ShippingCost:      snap.ShippingCost,
			Total:             snap.Total,
		}
		if snap.Discount != nil {
			req.DiscountCode = snap.Discount.Code
			req.DiscountAmount = snap.Discount.Amount
		}

		order, err := m.client.CreateOrder(context.Background(), req)
		if err != nil {
			return errMsg{err: err}
		}
		return orderPlacedMsg{order: order}
	}
}

// waitForChange blocks on the store's subscription channel and turns each
// signal into a message so every view re-renders on cart changes. A closed
// channel means the subscription was cancelled; stop re-arming.
func (m Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-m.changes; !ok {
			return nil
		}
		return storeChangedMsg{}
	}
}

// Accessors used by tests.

// GetViewState returns the current view state.
func (m Model) GetViewState() ViewState { return m.viewState }

// GetSelectedProduct returns the currently selected product.
func (m Model) GetSelectedProduct() *api.Product { return m.selectedProduct }
