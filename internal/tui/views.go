package tui

import (
	"fmt"
	"strings"

	"github.com/hemline/hemline-terminal/internal/api"
	"github.com/hemline/hemline-terminal/internal/store"
)

// View renders the current view.
func (m Model) View() string {
	var body string
	switch m.viewState {
	case ViewShop:
		body = m.viewShop()
	case ViewProduct:
		body = m.viewProduct()
	case ViewCart:
		body = m.viewCart()
	case ViewShipping:
		body = m.viewShipping()
	case ViewCheckout:
		body = m.viewCheckout()
	case ViewConfirmation:
		body = m.viewConfirmation()
	}
	return m.styles.App.Render(m.viewHeader() + "\n" + body)
}

func (m Model) viewHeader() string {
	snap := m.cart.Snapshot()
	count := 0
	if snap.Cart != nil {
		count = snap.Cart.Count
	}
	title := m.styles.HeaderTitle.Render("HEMLINE")
	cart := m.styles.Subtle.Render(fmt.Sprintf("cart: %d item(s) · %s", count, snap.Subtotal.Display()))
	return m.styles.Header.Render(title + "  " + cart)
}

func (m Model) viewShop() string {
	var b strings.Builder

	if m.showSearch {
		b.WriteString(m.searchInput.View())
		b.WriteString("\n\n")
	}

	if m.loadingProducts {
		b.WriteString(m.spin.View())
		b.WriteString(" Loading the collection...")
	} else {
		b.WriteString(m.productList.View())
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render(m.err.Error()))
	}

	b.WriteString("\n")
	b.WriteString(m.styles.HelpBar.Render("enter view · / search · g category · f in-stock · r refresh · c cart · q quit"))
	return b.String()
}

func (m Model) viewProduct() string {
	p := m.selectedProduct
	if p == nil {
		return m.styles.Subtle.Render("No product selected.")
	}

	var b strings.Builder
	b.WriteString(m.styles.ProductName.Render(p.Name))
	b.WriteString("\n\n")

	if p.SalePrice.IsPositive() {
		b.WriteString(m.styles.ProductSalePrice.Render(p.SalePrice.Display()))
		b.WriteString("  ")
		b.WriteString(m.styles.Subtle.Strikethrough(true).Render(p.Price.Display()))
	} else {
		b.WriteString(m.styles.ProductPrice.Render(p.Price.Display()))
	}
	b.WriteString("\n\n")

	if desc := StripHTML(p.Description); desc != "" {
		b.WriteString(m.styles.ProductDescription.Render(desc))
		b.WriteString("\n\n")
	}

	if p.InStock {
		b.WriteString(m.styles.ProductInStock.Render("In Stock"))
	} else {
		b.WriteString(m.styles.ProductOutOfStock.Render("Out of Stock"))
	}
	b.WriteString("\n\n")

	if m.configForm != nil {
		b.WriteString(m.configForm.View())
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(m.styles.Error.Render(m.err.Error()))
		b.WriteString("\n")
	}

	help := "esc back"
	if m.canAddSelected() {
		help = "a add to cart · " + help
	}
	b.WriteString(m.styles.HelpBar.Render(help))
	return b.String()
}

func (m Model) viewCart() string {
	snap := m.cart.Snapshot()
	var b strings.Builder

	b.WriteString(m.styles.ProductName.Render("Your Cart"))
	b.WriteString("\n\n")

	if snap.Loading {
		b.WriteString(m.spin.View())
		b.WriteString(" Syncing...\n\n")
	}

	if snap.Cart == nil || len(snap.Cart.Items) == 0 {
		b.WriteString(m.styles.Subtle.Render("Your cart is empty. Press esc to browse the collection."))
		b.WriteString("\n")
		b.WriteString(m.styles.HelpBar.Render("esc shop"))
		return b.String()
	}

	for i, item := range snap.Cart.Items {
		cursor := "  "
		if i == m.cartIdx {
			cursor = m.styles.Highlight.Render("> ")
		}
		variant := ""
		if v := itemVariant(item); v != "" {
			variant = m.styles.Subtle.Render(" (" + v + ")")
		}
		line := fmt.Sprintf("%s%s%s  x%d  %s",
			cursor, item.Name, variant, item.Quantity,
			item.UnitPrice.MulInt(item.Quantity).Display())
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.viewTotals(snap))

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render(m.err.Error()))
	}

	b.WriteString("\n")
	b.WriteString(m.styles.HelpBar.Render("↑/↓ select · +/- quantity · d remove · x clear · o shipping · esc shop"))
	return b.String()
}

func (m Model) viewShipping() string {
	snap := m.cart.Snapshot()
	var b strings.Builder

	b.WriteString(m.styles.ProductName.Render("Shipping & Discounts"))
	b.WriteString("\n\n")

	b.WriteString("Ship to:\n")
	for i, region := range shippingRegions {
		cursor := "  "
		if i == m.regionIdx {
			cursor = m.styles.Highlight.Render("> ")
		}
		marker := ""
		if region == snap.ShippingState {
			marker = m.styles.Success.Render(" ✓")
		}
		b.WriteString(cursor + region + marker + "\n")
	}
	b.WriteString("\n")

	kind := "To Home"
	if snap.ShippingType == store.DeliveryDesk {
		kind = "To Desk"
	}
	b.WriteString(fmt.Sprintf("Delivery: %s\n", m.styles.Highlight.Render(kind)))
	if snap.ShippingState != "" {
		b.WriteString(fmt.Sprintf("Shipping cost: %s\n", snap.ShippingCost.Display()))
	} else {
		b.WriteString(m.styles.Subtle.Render("Pick a region to see shipping cost.") + "\n")
	}
	b.WriteString("\n")

	if snap.Discount != nil {
		b.WriteString(m.styles.Success.Render(fmt.Sprintf("Discount %q applied: -%s",
			snap.Discount.Code, snap.DiscountAmount.Display())))
		b.WriteString("\n")
	} else if m.discountFocus {
		b.WriteString(m.discountInput.View())
		b.WriteString("\n")
		if m.validatingDiscount {
			b.WriteString(m.spin.View() + " Checking code...\n")
		}
	}
	b.WriteString("\n")

	b.WriteString(m.viewTotals(snap))

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render(m.err.Error()))
	}

	b.WriteString("\n")
	help := "↑/↓ region · enter select · t delivery type · % discount · r remove discount · esc cart"
	if snap.ShippingState != "" {
		help += " · n checkout"
	}
	b.WriteString(m.styles.HelpBar.Render(help))
	return b.String()
}

func (m Model) viewCheckout() string {
	snap := m.cart.Snapshot()
	var b strings.Builder

	b.WriteString(m.styles.ProductName.Render("Checkout"))
	b.WriteString("\n\n")

	if m.loadingCheckout {
		b.WriteString(m.spin.View())
		b.WriteString(" Loading your account...\n")
		return b.String()
	}

	if m.user != nil {
		b.WriteString(fmt.Sprintf("Ordering as %s %s (%s)\n\n",
			m.user.FirstName, m.user.LastName, m.user.Email))
	}

	if len(m.addresses) == 0 {
		b.WriteString(m.styles.Error.Render("No saved addresses on your account."))
		b.WriteString("\n")
		b.WriteString(m.styles.HelpBar.Render("esc back"))
		return b.String()
	}

	b.WriteString("Deliver to:\n")
	for i, addr := range m.addresses {
		cursor := "  "
		if i == m.addressIdx {
			cursor = m.styles.Highlight.Render("> ")
		}
		b.WriteString(fmt.Sprintf("%s%s — %s, %s %s %s\n",
			cursor, addr.Label, addr.Street, addr.City, addr.State, addr.Zip))
	}
	b.WriteString("\n")

	b.WriteString(m.viewTotals(snap))

	if m.placingOrder {
		b.WriteString("\n")
		b.WriteString(m.spin.View() + " Placing your order...")
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render(m.err.Error()))
	}

	b.WriteString("\n")
	b.WriteString(m.styles.HelpBar.Render("↑/↓ address · enter place order · esc back"))
	return b.String()
}

func (m Model) viewConfirmation() string {
	var b strings.Builder
	o := m.placedOrder

	b.WriteString(m.styles.Success.Render("Order placed. Thank you!"))
	b.WriteString("\n\n")

	if o != nil {
		inner := fmt.Sprintf("Order %s\nStatus: %s\n\nSubtotal  %s\nShipping  %s\nDiscount  -%s\nTotal     %s",
			o.Number, o.Status,
			o.Subtotal.Display(), o.ShippingCost.Display(),
			o.Discount.Display(), o.Total.Display())
		b.WriteString(m.styles.Box.Render(inner))
		b.WriteString("\n")
	}

	b.WriteString(m.styles.HelpBar.Render("enter back to shop"))
	return b.String()
}

func (m Model) viewTotals(snap store.Snapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Subtotal  %s\n", snap.Subtotal.Display()))
	if snap.ShippingState != "" {
		b.WriteString(fmt.Sprintf("Shipping  %s\n", snap.ShippingCost.Display()))
	}
	if snap.Discount != nil {
		b.WriteString(fmt.Sprintf("Discount  -%s\n", snap.DiscountAmount.Display()))
	}
	b.WriteString(m.styles.TotalLine.Render(fmt.Sprintf("Total     %s", snap.Total.Display())))
	b.WriteString("\n")
	return b.String()
}

// itemVariant is a short human label for a configured line.
func itemVariant(item api.CartItem) string {
	parts := make([]string, 0, 2)
	if item.Size != "" {
		parts = append(parts, item.Size)
	}
	if item.Color != "" {
		parts = append(parts, item.Color)
	}
	return strings.Join(parts, " / ")
}
