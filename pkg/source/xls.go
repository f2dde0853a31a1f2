package source

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/shopspring/decimal"

	"github.com/BeAltea/altea-pay/pkg/models"
)

const maxSheetRows = 100000

// XLS reads the first sheet of a legacy Excel export. Encoding names the
// charset of the sheet strings; it defaults to utf-8.
type XLS struct {
	Name     string
	Data     []byte
	Encoding string
}

func (x *XLS) Rows(ctx context.Context) ([]models.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := readFile(x.Name, x.Data)
	if err != nil {
		return nil, err
	}

	charset := strings.TrimSpace(x.Encoding)
	if charset == "" {
		charset = "utf-8"
	}
	workbook, err := xls.OpenReader(bytes.NewReader(data), charset)
	if err != nil {
		return nil, &ReadError{Source: x.Name, Err: fmt.Errorf("open workbook: %w", err)}
	}
	if workbook == nil || workbook.NumSheets() == 0 {
		return nil, &ReadError{Source: x.Name, Err: fmt.Errorf("workbook has no sheets")}
	}

	records := workbook.ReadAllCells(maxSheetRows)
	if len(records) == 0 {
		return nil, &ReadError{Source: x.Name, Err: fmt.Errorf("no data found in sheet")}
	}
	return tableRows(x.Name, records, xlsCell)
}

// The xls reader renders number cells as "1727.09", cells with a custom
// format as RFC3339 timestamps and cells with a built-in date format as
// "2006.01". xlsCell turns them back into what the same export carries as
// text: comma decimals and DD/MM/YYYY dates.
var (
	plainNumber = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	monthOnly   = regexp.MustCompile(`^\d{4}\.\d{2}$`)
)

// Serial day zero of the 1900 date system.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

func xlsCell(column, value string) (string, error) {
	switch column {
	case colAmount:
		if _, ok := timestamp(value); ok {
			return "", fmt.Errorf("amount %q was read as a date; format the column as number or text", value)
		}
		if plainNumber.MatchString(value) {
			return strings.Replace(value, ".", ",", 1), nil
		}
	case colDays:
		if t, ok := timestamp(value); ok {
			return strconv.Itoa(int(t.Sub(excelEpoch).Hours() / 24)), nil
		}
	case colDueDate, colCancelled:
		if t, ok := timestamp(value); ok {
			return t.Format("02/01/2006"), nil
		}
		if monthOnly.MatchString(value) {
			return "", fmt.Errorf("date %q has no day; format the column as dd/mm/yyyy", value)
		}
		if plainNumber.MatchString(value) {
			serial, err := decimal.NewFromString(value)
			if err != nil {
				return "", err
			}
			return excelEpoch.AddDate(0, 0, int(serial.IntPart())).Format("02/01/2006"), nil
		}
	case colDocument:
		if plainNumber.MatchString(value) && !strings.ContainsAny(value, ".-") {
			return padDocument(value), nil
		}
	}
	return value, nil
}

func timestamp(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, s)
	return t, err == nil
}

// padDocument restores the leading zeros a CPF or CNPJ loses when the
// column is stored as a number.
func padDocument(digits string) string {
	switch {
	case len(digits) < 11:
		return strings.Repeat("0", 11-len(digits)) + digits
	case len(digits) > 11 && len(digits) < 14:
		return strings.Repeat("0", 14-len(digits)) + digits
	}
	return digits
}
