package ui

import "github.com/charmbracelet/lipgloss"

// Color palette - ANSI 256 colors for broad terminal support
var (
	ColorCyan   = lipgloss.Color("6")
	ColorYellow = lipgloss.Color("3")
	ColorRed    = lipgloss.Color("1")
	ColorGreen  = lipgloss.Color("2")
	ColorGray   = lipgloss.Color("8")
	ColorWhite  = lipgloss.Color("15")
)

// Text styles
var (
	// Status messages ("Scanning...", "Watching...")
	StatusStyle = lipgloss.NewStyle().Foreground(ColorGray).Italic(true)

	// Error messages
	ErrorStyle = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)

	// Warning messages
	WarningStyle = lipgloss.NewStyle().Foreground(ColorYellow)

	// Success messages
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorGreen)

	// Muted/secondary text (context lines, debug output)
	MutedStyle = lipgloss.NewStyle().Foreground(ColorGray)

	// Labels (field names in position/checks listings)
	LabelStyle = lipgloss.NewStyle().Foreground(ColorCyan).Bold(true)

	// Values (field values in listings)
	ValueStyle = lipgloss.NewStyle().Foreground(ColorWhite)
)

// Per-state styles for rendered check outcomes.
var (
	StateOKStyle       = lipgloss.NewStyle().Foreground(ColorGreen).Bold(true)
	StateWarningStyle  = lipgloss.NewStyle().Foreground(ColorYellow).Bold(true)
	StateCriticalStyle = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
	StateUnknownStyle  = lipgloss.NewStyle().Foreground(ColorGray).Bold(true)
)
