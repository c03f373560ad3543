// Package termview renders a post view model for the terminal.
package termview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/Bitlatte/spacetraveling/internal/model"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	metaStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#BBBBBB"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF57B2"))
	bodyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#D7D7D7"))
)

// Render lays out p in at most width columns.
func Render(p *model.PostPage, width int) string {
	if width < 20 {
		width = 20
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(wrap(p.Title, width)))
	b.WriteString("\n")

	meta := []string{}
	if p.PublicationDate != "" {
		meta = append(meta, p.PublicationDate)
	}
	if p.Author != "" {
		meta = append(meta, p.Author)
	}
	meta = append(meta, fmt.Sprintf("%d min", p.ReadingTimeMinutes))
	b.WriteString(metaStyle.Render(strings.Join(meta, " · ")))
	b.WriteString("\n")

	for _, block := range p.Content {
		b.WriteString("\n")
		if block.Heading != "" {
			b.WriteString(headingStyle.Render(wrap(block.Heading, width)))
			b.WriteString("\n\n")
		}
		if block.Text != "" {
			b.WriteString(bodyStyle.Render(wrap(block.Text, width)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// wrap strips control sequences from document text before wrapping it.
func wrap(s string, width int) string {
	return ansi.Wordwrap(ansi.Strip(s), width, "")
}
