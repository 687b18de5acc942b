package tui

import "github.com/charmbracelet/lipgloss"

// Palette.
const (
	ColorHeader  = lipgloss.Color("39")
	ColorLabel   = lipgloss.Color("245")
	ColorValue   = lipgloss.Color("252")
	ColorMuted   = lipgloss.Color("241")
	ColorOK      = lipgloss.Color("42")
	ColorWarning = lipgloss.Color("214")
	ColorBorder  = lipgloss.Color("238")
	ColorSelect  = lipgloss.Color("57")
)

// Shared styles.
//
//nolint:gochecknoglobals // Style values are immutable after init.
var (
	HeaderStyle        = lipgloss.NewStyle().Bold(true).Foreground(ColorHeader)
	LabelStyle         = lipgloss.NewStyle().Foreground(ColorLabel)
	ValueStyle         = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	MutedStyle         = lipgloss.NewStyle().Foreground(ColorMuted).Italic(true)
	WarningStyle       = lipgloss.NewStyle().Foreground(ColorWarning)
	BoxStyle           = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorBorder).Padding(0, 1)
	TableHeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorHeader).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(ColorBorder)
	TableSelectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(ColorSelect).Bold(false)
)

// borderPadding accounts for the left and right border of BoxStyle.
const borderPadding = 2
