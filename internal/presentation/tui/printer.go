// Package tui renders outcomes, reports and library documents for a terminal.
package tui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/runner"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func profileFor(w io.Writer) termenv.Profile {
	if !IsTerminal(w) {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

// Printer writes colored outcomes. Colors are dropped when the output is
// not a terminal or NO_COLOR is set.
type Printer struct {
	w       io.Writer
	profile termenv.Profile
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, profile: profileFor(w)}
}

func (p *Printer) status(s domain.Status) termenv.Style {
	style := p.profile.String(s.String()).Bold()
	switch s {
	case domain.StatusSuccess:
		return style.Foreground(p.profile.Color("#22c55e"))
	case domain.StatusFailure:
		return style.Foreground(p.profile.Color("#ef4444"))
	default:
		return style.Foreground(p.profile.Color("#eab308"))
	}
}

func (p *Printer) faint(s string) termenv.Style {
	return p.profile.String(s).Faint()
}

// Outcome prints the outcome of a tree run.
func (p *Printer) Outcome(tree string, out domain.Outcome, elapsed time.Duration) {
	fmt.Fprintf(p.w, "%s %s %s\n", p.status(out.Status), tree, p.faint(round(elapsed)))
	p.detail("  ", out)
}

// Report prints a workflow report, one line per step.
func (p *Printer) Report(r *runner.Report) {
	fmt.Fprintf(p.w, "%s %s\n", p.profile.String(r.Workflow).Bold(), p.faint("run "+r.RunID))
	for i, s := range r.Steps {
		if s.Skipped {
			fmt.Fprintf(p.w, "  %d. %s %s\n", i+1, p.faint("skipped"), s.Step.Name)
			continue
		}
		fmt.Fprintf(p.w, "  %d. %s %s %s\n", i+1, p.status(s.Outcome.Status), s.Step.Name, p.faint(round(s.Duration)))
		p.detail("     ", s.Outcome)
	}
	fmt.Fprintf(p.w, "%s %s\n", p.status(r.Outcome.Status), p.faint(round(r.Duration)))
}

func (p *Printer) detail(indent string, out domain.Outcome) {
	if out.IsSuccess() {
		return
	}
	if out.Node != "" {
		fmt.Fprintf(p.w, "%snode:   %s\n", indent, out.Node)
	}
	if out.Reason != "" {
		fmt.Fprintf(p.w, "%sreason: %s\n", indent, out.Reason)
	}
	if len(out.Labels) > 0 {
		fmt.Fprintf(p.w, "%slabels: %v\n", indent, out.Labels)
	}
}

func round(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
