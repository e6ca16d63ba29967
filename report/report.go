// Package report renders generation results for the terminal.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/rlch/dbscaf"
	"github.com/rlch/dbscaf/generate"
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

// Printer writes human-readable run summaries.
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter creates a printer. Color is used only when w is a terminal and
// noColor is false.
func NewPrinter(w io.Writer, noColor bool) *Printer {
	color := false
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		color = !noColor
	}

	return &Printer{w: w, color: color}
}

func (p *Printer) render(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}

	return style.Render(s)
}

// Summary prints the outcome of a generation run: warnings first, then the
// per-file tally.
func (p *Printer) Summary(res *generate.Result) {
	for _, w := range res.Warnings {
		p.warning(w)
	}
	if len(res.Warnings) > 0 {
		fmt.Fprintln(p.w)
	}

	for _, name := range res.Written {
		fmt.Fprintf(p.w, "%s %s\n", p.render(successStyle, "wrote"), name)
	}
	for _, name := range res.Pruned {
		fmt.Fprintf(p.w, "%s %s\n", p.render(warnStyle, "pruned"), name)
	}

	fmt.Fprintf(p.w, "%s %d entities: %d written, %d unchanged, %d pruned",
		p.render(successStyle, "OK"),
		res.Entities, len(res.Written), len(res.Unchanged), len(res.Pruned))
	if n := len(res.Warnings); n > 0 {
		fmt.Fprintf(p.w, ", %s", p.render(warnStyle, fmt.Sprintf("%d warnings", n)))
	}
	fmt.Fprintln(p.w)
}

func (p *Printer) warning(w dbscaf.Warning) {
	fmt.Fprintf(p.w, "%s %s\n",
		p.render(warnStyle, "warning"),
		p.render(dimStyle, w.String()))
}

// Error prints a fatal error.
func (p *Printer) Error(err error) {
	fmt.Fprintf(p.w, "%s %v\n", p.render(errorStyle, "error"), err)
}
