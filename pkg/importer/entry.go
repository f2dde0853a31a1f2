package importer

import (
	"fmt"
	"strings"

	"github.com/BeAltea/altea-pay/pkg/models"
	"github.com/BeAltea/altea-pay/pkg/normalize"
	"github.com/BeAltea/altea-pay/pkg/report"
)

// Entry is a source row after normalization, ready to be written.
type Entry struct {
	Line     int         `json:"line"`
	Document string      `json:"document"`
	Name     string      `json:"name"`
	City     string      `json:"city"`
	Debt     models.Debt `json:"debt"`
}

// Normalize converts a raw row. Errors mean the row must be skipped.
func (i *Importer) Normalize(row models.Row) (Entry, error) {
	doc := strings.TrimSpace(row.Document)
	name := strings.TrimSpace(row.Name)
	if doc == "" || name == "" {
		return Entry{}, fmt.Errorf("missing document or name")
	}
	if i.opts.ValidateDocuments && !normalize.ValidDocument(doc) {
		return Entry{}, fmt.Errorf("invalid document %q", doc)
	}

	mode := i.opts.AmountMode
	amount, err := normalize.ParseAmount(row.Amount, mode)
	if err != nil {
		return Entry{}, err
	}
	days, err := normalize.ParseDays(row.DaysOverdue, mode)
	if err != nil {
		return Entry{}, err
	}

	debt := models.Debt{
		Amount:         amount,
		DaysOverdue:    days,
		Status:         i.opts.OpenStatus,
		Classification: normalize.Classify(days),
		Description:    fmt.Sprintf("Fatura em aberto - %d dias de atraso", days),
	}
	if raw := strings.TrimSpace(row.DueDate); raw != "" {
		t, ok := normalize.ParseDate(raw)
		switch {
		case ok:
			debt.DueDate = &t
		case mode == normalize.Strict:
			return Entry{}, &normalize.FieldParseError{Field: "due date", Value: raw}
		}
	}
	if strings.TrimSpace(row.CancelledAt) != "" {
		debt.Status = models.StatusCancelled
	}

	return Entry{
		Line:     row.Line,
		Document: doc,
		Name:     name,
		City:     strings.TrimSpace(row.City),
		Debt:     debt,
	}, nil
}

// Preview normalizes rows without touching the store. The summary counts
// processed and skipped rows and carries the row errors.
func (i *Importer) Preview(rows []models.Row) ([]Entry, *report.Summary) {
	summary := report.New(i.opts.MaxErrors)
	summary.DryRun = true
	return i.normalizeAll(rows, summary), summary
}

func (i *Importer) normalizeAll(rows []models.Row, summary *report.Summary) []Entry {
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		summary.RowsProcessed++
		e, err := i.Normalize(row)
		if err != nil {
			summary.RowsSkipped++
			summary.AddError(row.Line, "%v", err)
			i.logger.Warn("row skipped", "row", row.Line, "err", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries
}
