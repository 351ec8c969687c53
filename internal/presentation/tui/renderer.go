package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// RenderFunc turns markdown into terminal output.
type RenderFunc func(string) (string, error)

// NewRenderer returns a function that renders markdown using glamour.
// The style follows the terminal background.
func NewRenderer(width int) (RenderFunc, error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return r.Render, nil
}

// PlainRenderer returns markdown unchanged.
func PlainRenderer(markdown string) (string, error) {
	return markdown, nil
}

// Markdown formats a reply with its suggestions, attachments and numbered quick replies.
func Markdown(resp *domain.ChatResponse) string {
	var b strings.Builder
	b.WriteString(resp.Message)
	b.WriteString("\n")

	if len(resp.Suggestions) > 0 {
		b.WriteString("\n")
		for _, s := range resp.Suggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	if len(resp.Attachments) > 0 {
		b.WriteString("\n")
		for _, a := range resp.Attachments {
			fmt.Fprintf(&b, "- [%s](%s)\n", a.Name, a.URL)
		}
	}

	if len(resp.QuickReplies) > 0 {
		b.WriteString("\n")
		for i, q := range resp.QuickReplies {
			fmt.Fprintf(&b, "%d. %s\n", i+1, q)
		}
	}
	return b.String()
}
