// Package report accumulates the counters of an import run and renders
// the final summary.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// DefaultMaxErrors is how many error messages a summary keeps.
const DefaultMaxErrors = 10

// Summary is the outcome of one run. Only the first MaxErrors messages are
// kept; ErrorCount counts all of them.
type Summary struct {
	CompanyID        string        `json:"company_id"`
	CompanyCreated   bool          `json:"company_created"`
	RowsProcessed    int           `json:"rows_processed"`
	RowsSkipped      int           `json:"rows_skipped"`
	CustomersCreated int           `json:"customers_created"`
	CustomersReused  int           `json:"customers_reused"`
	CustomersFailed  int           `json:"customers_failed"`
	DebtsCreated     int           `json:"debts_created"`
	DebtsFailed      int           `json:"debts_failed"`
	ErrorCount       int           `json:"error_count"`
	Errors           []string      `json:"errors"`
	MaxErrors        int           `json:"-"`
	DryRun           bool          `json:"dry_run"`
	Duration         time.Duration `json:"duration_ns"`
}

// New returns an empty summary keeping up to maxErrors messages.
// A non-positive value selects DefaultMaxErrors.
func New(maxErrors int) *Summary {
	if maxErrors <= 0 {
		maxErrors = DefaultMaxErrors
	}
	return &Summary{MaxErrors: maxErrors, Errors: []string{}}
}

// AddError records a failure for the given source row. Line 0 means the
// error is not tied to a row.
func (s *Summary) AddError(line int, format string, args ...any) {
	s.ErrorCount++
	if len(s.Errors) >= s.limit() {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if line > 0 {
		msg = fmt.Sprintf("row %d: %s", line, msg)
	}
	s.Errors = append(s.Errors, msg)
}

// Omitted is the number of errors counted but not kept.
func (s *Summary) Omitted() int {
	return s.ErrorCount - len(s.Errors)
}

// ExitCode is 0 for any run that reached the end of its input, even with
// row errors. Fatal failures never produce a summary.
func (s *Summary) ExitCode() int {
	return 0
}

func (s *Summary) limit() int {
	if s.MaxErrors <= 0 {
		return DefaultMaxErrors
	}
	return s.MaxErrors
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
)

// Print writes the human readable summary to w.
func (s *Summary) Print(w io.Writer) error {
	var b strings.Builder

	title := "Import summary"
	if s.DryRun {
		title += " (dry run)"
	}
	b.WriteString(titleStyle.Render(title) + "\n")

	company := s.CompanyID
	if s.CompanyCreated {
		company += " (created)"
	} else if company != "" {
		company += " (existing)"
	}
	line := func(label, value string) {
		b.WriteString(fmt.Sprintf("  %s %s\n", labelStyle.Render(fmt.Sprintf("%-16s", label)), value))
	}
	line("company", company)
	line("rows processed", fmt.Sprint(s.RowsProcessed))
	line("rows skipped", fmt.Sprint(s.RowsSkipped))
	line("customers", fmt.Sprintf("%s created, %d reused, %s failed",
		okStyle.Render(fmt.Sprint(s.CustomersCreated)), s.CustomersReused, failed(s.CustomersFailed)))
	line("debts", fmt.Sprintf("%s created, %s failed",
		okStyle.Render(fmt.Sprint(s.DebtsCreated)), failed(s.DebtsFailed)))
	line("duration", s.Duration.Round(time.Millisecond).String())

	if s.ErrorCount > 0 {
		b.WriteString("\n" + errStyle.Render(fmt.Sprintf("Errors (%d):", s.ErrorCount)) + "\n")
		for _, e := range s.Errors {
			b.WriteString("  - " + e + "\n")
		}
		if n := s.Omitted(); n > 0 {
			b.WriteString(fmt.Sprintf("  ... and %d more errors\n", n))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func failed(n int) string {
	if n == 0 {
		return "0"
	}
	return errStyle.Render(fmt.Sprint(n))
}
