// Package view renders portal state for the terminal.
package view

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/raksha360/hospital-portal/internal/model"
)

// Theme is the palette used by Renderer. ANSI 256 codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color
	Accent     lipgloss.Color

	StatusOpen     lipgloss.Color
	StatusClosed   lipgloss.Color
	StatusResolved lipgloss.Color

	BorderColor lipgloss.Color
	LinkColor   lipgloss.Color
	ErrorColor  lipgloss.Color
}

var DefaultTheme = Theme{
	NormalText:     lipgloss.Color("252"),
	FaintText:      lipgloss.Color("245"),
	Accent:         lipgloss.Color("33"),
	StatusOpen:     lipgloss.Color("39"),
	StatusClosed:   lipgloss.Color("242"),
	StatusResolved: lipgloss.Color("214"),
	BorderColor:    lipgloss.Color("238"),
	LinkColor:      lipgloss.Color("35"),
	ErrorColor:     lipgloss.Color("196"),
}

// StatusColor falls back to FaintText for statuses it does not know.
func (theme Theme) StatusColor(status model.TicketStatus) lipgloss.Color {
	switch status {
	case model.TicketStatusOpen:
		return theme.StatusOpen
	case model.TicketStatusClosed:
		return theme.StatusClosed
	case model.TicketStatusResolved:
		return theme.StatusResolved
	}
	return theme.FaintText
}
