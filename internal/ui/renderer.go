// Package ui handles human-facing terminal output with consistent styling.
// The machine-parsed check status line never goes through this package.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Renderer writes styled diagnostics and listings.
type Renderer struct {
	out     io.Writer
	err     io.Writer
	noColor bool
	quiet   bool
}

// Option is a functional option for configuring the Renderer.
type Option func(*Renderer)

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(r *Renderer) { r.out = w }
}

// WithError sets the error writer.
func WithError(w io.Writer) Option {
	return func(r *Renderer) { r.err = w }
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) Option {
	return func(r *Renderer) { r.noColor = noColor }
}

// WithQuiet suppresses status messages.
func WithQuiet(quiet bool) Option {
	return func(r *Renderer) { r.quiet = quiet }
}

// NewRenderer creates a Renderer with the given options.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{out: os.Stdout, err: os.Stderr}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// render applies styling if color is enabled.
func (r *Renderer) render(style lipgloss.Style, text string) string {
	if r.noColor {
		return text
	}
	return style.Render(text)
}

// Status prints a transient status message (suppressed in quiet mode).
func (r *Renderer) Status(format string, args ...any) {
	if r.quiet {
		return
	}
	fmt.Fprintln(r.err, r.render(StatusStyle, fmt.Sprintf(format, args...)))
}

// Info prints an informational message.
func (r *Renderer) Info(format string, args ...any) {
	fmt.Fprintln(r.out, fmt.Sprintf(format, args...))
}

// Success prints a success message.
func (r *Renderer) Success(format string, args ...any) {
	fmt.Fprintln(r.out, r.render(SuccessStyle, fmt.Sprintf(format, args...)))
}

// Warning prints a warning message.
func (r *Renderer) Warning(format string, args ...any) {
	fmt.Fprintln(r.err, r.render(WarningStyle, "Warning: "+fmt.Sprintf(format, args...)))
}

// Error prints an error message.
func (r *Renderer) Error(format string, args ...any) {
	fmt.Fprintln(r.err, r.render(ErrorStyle, "Error: "+fmt.Sprintf(format, args...)))
}

// Debug prints a muted debug message.
func (r *Renderer) Debug(format string, args ...any) {
	fmt.Fprintln(r.err, r.render(MutedStyle, "debug: "+fmt.Sprintf(format, args...)))
}

// Field prints an aligned "Label: value" pair for listings.
func (r *Renderer) Field(label, format string, args ...any) {
	fmt.Fprintf(r.out, "%s %s\n",
		r.render(LabelStyle, fmt.Sprintf("%-12s", label+":")),
		r.render(ValueStyle, fmt.Sprintf(format, args...)))
}

// StateLine prints a check outcome styled by state name.
func (r *Renderer) StateLine(state, line string) {
	style := StateUnknownStyle
	switch state {
	case "OK":
		style = StateOKStyle
	case "WARNING":
		style = StateWarningStyle
	case "CRITICAL":
		style = StateCriticalStyle
	}
	fmt.Fprintf(r.out, "%s %s\n", r.render(style, state), line)
}
