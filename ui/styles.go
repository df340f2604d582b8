package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primaryColor   = lipgloss.Color("#7D56F4")
	secondaryColor = lipgloss.Color("#3C3C3C")
	accentColor    = lipgloss.Color("#04B575")
	warningColor   = lipgloss.Color("#FFCC00")
	errorColorVal  = lipgloss.Color("#FF6B6B")
	textColor      = lipgloss.Color("#FAFAFA")
	dimColor       = lipgloss.Color("#626262")
)

// Styles holds every style the renderer uses.
type Styles struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Normal  lipgloss.Style
	Dim     lipgloss.Style
	Diff    lipgloss.Style // differing m-numbers and values
	Match   lipgloss.Style // rows with both properties and CSV events
	Section lipgloss.Style
	Detail  lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
}

// NewStyles returns the colored styles, or plain ones when color is false.
func NewStyles(color bool) Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return Styles{
			Title: plain, Header: plain, Normal: plain, Dim: plain,
			Diff: plain, Match: plain, Section: plain, Detail: plain.PaddingLeft(2),
			Error: plain, Warning: plain, Success: plain,
		}
	}
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor).
			Background(primaryColor).
			Padding(0, 1),

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor).
			Background(secondaryColor),

		Normal: lipgloss.NewStyle().
			Foreground(textColor),

		Dim: lipgloss.NewStyle().
			Foreground(dimColor),

		Diff: lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true),

		Match: lipgloss.NewStyle().
			Foreground(accentColor),

		Section: lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor),

		Detail: lipgloss.NewStyle().
			Foreground(textColor).
			PaddingLeft(2),

		Error: lipgloss.NewStyle().
			Foreground(errorColorVal).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true),

		Success: lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true),
	}
}
