// Package tui implements the terminal storefront using Bubble Tea.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette - muted atelier tones
var (
	colorInk       = lipgloss.Color("#2B2B2B")
	colorLinen     = lipgloss.Color("#F5EFE6")
	colorCamel     = lipgloss.Color("#C19A6B")
	colorSage      = lipgloss.Color("#9CAF88")
	colorHighlight = lipgloss.Color("#D97706")
	colorSuccess   = lipgloss.Color("#4CAF50")
	colorError     = lipgloss.Color("#E53935")
	colorMuted     = lipgloss.Color("#9E9E9E")
)

// Styles holds all the lipgloss styles for the TUI.
type Styles struct {
	App lipgloss.Style

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style

	ListTitle lipgloss.Style

	ProductName        lipgloss.Style
	ProductPrice       lipgloss.Style
	ProductSalePrice   lipgloss.Style
	ProductDescription lipgloss.Style
	ProductInStock     lipgloss.Style
	ProductOutOfStock  lipgloss.Style

	TotalLine lipgloss.Style

	Subtle    lipgloss.Style
	Highlight lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Box       lipgloss.Style
	HelpBar   lipgloss.Style
}

// DefaultStyles returns the default TUI styles.
func DefaultStyles() Styles {
	return Styles{
		App: lipgloss.NewStyle().
			Padding(1, 2),

		Header: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(colorCamel).
			MarginBottom(1).
			Padding(0, 1),

		HeaderTitle: lipgloss.NewStyle().
			Foreground(colorCamel).
			Bold(true),

		ListTitle: lipgloss.NewStyle().
			Foreground(colorLinen).
			Background(colorInk).
			Padding(0, 1),

		ProductName: lipgloss.NewStyle().
			Foreground(colorCamel).
			Bold(true),

		ProductPrice: lipgloss.NewStyle().
			Foreground(colorSage).
			Bold(true),

		ProductSalePrice: lipgloss.NewStyle().
			Foreground(colorHighlight).
			Bold(true),

		ProductDescription: lipgloss.NewStyle().
			Foreground(colorLinen).
			Width(68),

		ProductInStock: lipgloss.NewStyle().
			Foreground(colorSuccess),

		ProductOutOfStock: lipgloss.NewStyle().
			Foreground(colorError),

		TotalLine: lipgloss.NewStyle().
			Foreground(colorSage).
			Bold(true),

		Subtle: lipgloss.NewStyle().
			Foreground(colorMuted),

		Highlight: lipgloss.NewStyle().
			Foreground(colorHighlight),

		Error: lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true),

		Success: lipgloss.NewStyle().
			Foreground(colorSuccess),

		Box: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorCamel).
			Padding(1, 2),

		HelpBar: lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1),
	}
}
