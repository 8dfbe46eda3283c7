// Package consilium implements the interactive review checkpoint: a small
// bubbletea program that shows the task summary, a spinner while it waits
// for input, and a y/n/q prompt for the human sign-off gate
// (internal/phases.RunReviewCheckpoint's decision function).
package consilium

import "github.com/charmbracelet/lipgloss"

// Styles collects the lipgloss styles shared by the review checkpoint
// view, kept as one small struct rather than the teacher's full theme
// system since this program has a single screen.
type Styles struct {
	Banner   lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Approve  lipgloss.Style
	Reject   lipgloss.Style
	Question lipgloss.Style
}

// NewStyles builds the default style set.
func NewStyles() Styles {
	return Styles{
		Banner: lipgloss.NewStyle().
			Background(lipgloss.Color("#5f5fd7")).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true),
		Body: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d0d0d0")),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#808080")),
		Approve: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5fd75f")).
			Bold(true),
		Reject: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d75f5f")).
			Bold(true),
		Question: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d7d75f")).
			Bold(true),
	}
}
