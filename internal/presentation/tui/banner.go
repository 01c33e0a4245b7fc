package tui

import (
	"fmt"
	"io"
)

// PrintBanner writes the arbor banner to w.
func PrintBanner(w io.Writer) {
	p := profileFor(w)
	lines := []struct {
		text  string
		color string
	}{
		{"    __ _ _ __| |__   ___  _ __ ", "#86efac"},
		{"   / _` | '__| '_ \\ / _ \\| '__|", "#4ade80"},
		{"  | (_| | |  | |_) | (_) | |   ", "#22c55e"},
		{"   \\__,_|_|  |_.__/ \\___/|_|   ", "#16a34a"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, p.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
