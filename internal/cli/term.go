package cli

import (
	"os"

	"github.com/aretw0/pmguide/internal/presentation/tui"
	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// TerminalRenderer renders markdown with glamour when f is a terminal and
// falls back to plain text for pipes and files.
func TerminalRenderer(f *os.File) tui.RenderFunc {
	if !IsTerminal(f) {
		return tui.PlainRenderer
	}
	width := 0
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 4 {
		width = w - 4
	}
	render, err := tui.NewRenderer(width)
	if err != nil {
		return tui.PlainRenderer
	}
	return render
}
