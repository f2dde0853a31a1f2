package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/k0kubun/pp/v3"

	"github.com/BeAltea/altea-pay/pkg/importer"
	"github.com/BeAltea/altea-pay/pkg/models"
	"github.com/BeAltea/altea-pay/pkg/normalize"
	"github.com/BeAltea/altea-pay/pkg/report"
)

var (
	openStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	cancelledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
)

// printPreview lists the normalized rows followed by the row errors.
func printPreview(w io.Writer, entries []importer.Entry, summary *report.Summary, dump bool) error {
	if dump {
		printer := pp.New()
		printer.SetOutput(w)
		printer.SetColoringEnabled(false)
		if _, err := printer.Println(entries); err != nil {
			return err
		}
	} else {
		for _, e := range entries {
			due := "-"
			if e.Debt.DueDate != nil {
				due = normalize.FormatDate(*e.Debt.DueDate)
			}
			line := fmt.Sprintf("%4d | %-18s | %-30s | R$ %12s | %s | %-9s | %s",
				e.Line, e.Document, e.Name, e.Debt.Amount.StringFixed(2), due, e.Debt.Status, e.Debt.Classification)
			style := openStyle
			if e.Debt.Status == models.StatusCancelled {
				style = cancelledStyle
			}
			if _, err := fmt.Fprintln(w, style.Render(line)); err != nil {
				return err
			}
		}
	}

	groups := map[string]struct{}{}
	for _, e := range entries {
		groups[e.Document] = struct{}{}
	}
	fmt.Fprintf(w, "\nPreview: %d row(s) ready for %d customer(s), %d skipped\n", len(entries), len(groups), summary.RowsSkipped)
	return summary.Print(w)
}
