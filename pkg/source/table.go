package source

import (
	"fmt"
	"strings"

	"github.com/BeAltea/altea-pay/pkg/models"
)

// Export column headers, matched case-insensitively.
const (
	colDocument  = "cpf/cnpj"
	colName      = "cliente"
	colCity      = "cidade"
	colAmount    = "vencido"
	colDueDate   = "primeira vencida"
	colDays      = "dias inad."
	colCancelled = "dt cancelamento"
)

var requiredColumns = []string{colDocument, colName}

type columns map[string]int

func (c columns) get(rec []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func headerKey(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// findHeader returns the index of the first record holding every required
// column. Exports from the ERP may carry title lines above the header.
func findHeader(records [][]string) (int, columns, bool) {
	for i, rec := range records {
		cols := make(columns, len(rec))
		for j, cell := range rec {
			key := headerKey(cell)
			if _, dup := cols[key]; !dup && key != "" {
				cols[key] = j
			}
		}
		found := true
		for _, req := range requiredColumns {
			if _, ok := cols[req]; !ok {
				found = false
				break
			}
		}
		if found {
			return i, cols, true
		}
	}
	return 0, nil, false
}

// cellFunc rewrites the raw value of a known column before it is stored.
type cellFunc func(column, value string) (string, error)

// tableRows maps the records below the header to rows. Blank records are
// dropped and do not advance the row counter. conv may be nil.
func tableRows(name string, records [][]string, conv cellFunc) ([]models.Row, error) {
	h, cols, ok := findHeader(records)
	if !ok {
		return nil, &ReadError{Source: name, Err: fmt.Errorf("header with columns %q and %q not found", "CPF/CNPJ", "Cliente")}
	}
	header := records[h]

	var rows []models.Row
	line := 0
	for _, rec := range records[h+1:] {
		if blank(rec) {
			continue
		}
		line++
		row := models.Row{Line: line}
		fields := []struct {
			col string
			dst *string
		}{
			{colDocument, &row.Document},
			{colName, &row.Name},
			{colAmount, &row.Amount},
			{colDueDate, &row.DueDate},
			{colDays, &row.DaysOverdue},
			{colCity, &row.City},
			{colCancelled, &row.CancelledAt},
		}
		for _, f := range fields {
			v := cols.get(rec, f.col)
			if conv != nil && v != "" {
				var err error
				if v, err = conv(f.col, v); err != nil {
					title := strings.TrimSpace(header[cols[f.col]])
					return nil, &ReadError{Source: name, Line: line, Err: fmt.Errorf("column %q: %w", title, err)}
				}
			}
			*f.dst = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
