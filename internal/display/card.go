package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Card renders a bordered terminal card for e, colored with its emotion color.
func Card(e Emotion, details ...string) string {
	color := lipgloss.Color(e.Color)

	title := lipgloss.NewStyle().Bold(true).Foreground(color).Render("EMOTION DETECTED")
	text := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%s  %s", e.Emoji, e.Text))

	lines := []string{title, "", text}
	if len(details) > 0 {
		dim := lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
		lines = append(lines, "")
		for _, d := range details {
			lines = append(lines, dim.Render(d))
		}
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 2).
		Align(lipgloss.Center)
	return box.Render(strings.Join(lines, "\n"))
}

// Processing renders the in-progress line shown while a file is analyzed.
func Processing(name string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#2563EB")).Render("Analyzing your voice...") + " " + name
}
