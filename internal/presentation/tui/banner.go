package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	"  ____  __  __  ____       _     _      ",
	" |  _ \\|  \\/  |/ ___|_   _(_) __| | ___ ",
	" | |_) | |\\/| | |  _| | | | |/ _` |/ _ \\",
	" |  __/| |  | | |_| | |_| | | (_| |  __/",
	" |_|   |_|  |_|\\____|\\__,_|_|\\__,_|\\___|",
}

// Teal to green, one color per line.
var bannerColors = []string{"#2dd4bf", "#34d399", "#4ade80", "#a3e635", "#facc15"}

// PrintBanner writes the colored banner and the version to w.
// Colors follow the stdout color profile.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()

	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line).Foreground(p.Color(bannerColors[i])))
	}
	fmt.Fprintln(w, termenv.String(fmt.Sprintf("  Privacy Mark certification guide v%s", version)).Faint())
	fmt.Fprintln(w)
}
