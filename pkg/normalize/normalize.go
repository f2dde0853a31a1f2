// Package normalize turns the locale-formatted strings found in ERP exports
// (DD/MM/YYYY dates, "R$ 1.727,09" amounts, day counts) into canonical values.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/BeAltea/altea-pay/pkg/models"
)

// Mode controls what happens when a field cannot be parsed.
type Mode int

const (
	// Strict reports a *FieldParseError and the caller skips the row.
	Strict Mode = iota
	// Lenient falls back to the zero value of the field.
	Lenient
)

func (m Mode) String() string {
	if m == Lenient {
		return "lenient"
	}
	return "strict"
}

// ParseMode reads a mode name as used in configuration files and flags.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return Strict, nil
	case "lenient":
		return Lenient, nil
	default:
		return Strict, fmt.Errorf("unknown amount mode %q (want strict or lenient)", s)
	}
}

// FieldParseError reports a source field that could not be converted.
type FieldParseError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

func (e *FieldParseError) Unwrap() error { return e.Err }

const isoDate = "2006-01-02"

// ParseDate converts a DD/MM/YYYY string into a date. It returns false for
// empty input, a wrong number of parts, non-numeric parts or a date that
// does not exist on the calendar.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}

	nums := make([]int, 3)
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return time.Time{}, false
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return time.Time{}, false
		}
		nums[i] = n
	}

	iso := fmt.Sprintf("%04d-%02d-%02d", nums[2], nums[1], nums[0])
	t, err := time.Parse(isoDate, iso)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(isoDate)
}

// ParseAmount converts a BRL amount ("R$ 1.727,09", "259,8") to a decimal.
// Empty input is zero in both modes.
func ParseAmount(s string, mode Mode) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	if clean == "" {
		return decimal.Zero, nil
	}

	clean = strings.ReplaceAll(clean, "R$", "")
	clean = strings.ReplaceAll(clean, " ", "")
	clean = strings.ReplaceAll(clean, "\u00a0", "")
	clean = strings.ReplaceAll(clean, ".", "")  // thousands separator
	clean = strings.ReplaceAll(clean, ",", ".") // decimal separator

	d, err := decimal.NewFromString(clean)
	if err == nil && !plainDecimal(clean) {
		err = fmt.Errorf("not a plain decimal")
	}
	if err != nil {
		if mode == Lenient {
			return decimal.Zero, nil
		}
		return decimal.Zero, &FieldParseError{Field: "amount", Value: s, Err: err}
	}
	return d, nil
}

// plainDecimal reports whether s is an optional sign, digits and at most
// one decimal point. decimal.NewFromString also takes exponents.
func plainDecimal(s string) bool {
	if s != "" && (s[0] == '-' || s[0] == '+') {
		s = s[1:]
	}
	digits, point := 0, false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.' && !point:
			point = true
		default:
			return false
		}
	}
	return digits > 0
}

// ParseDays reads a delinquency day count. Empty and negative values are 0.
func ParseDays(s string, mode Mode) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		if mode == Lenient {
			return 0, nil
		}
		return 0, &FieldParseError{Field: "days overdue", Value: s, Err: err}
	}
	if n < 0 {
		return 0, nil
	}
	return n, nil
}

// Classify maps days past due to a delinquency tier. Bounds are inclusive.
func Classify(days int) models.Classification {
	if days < 0 {
		days = 0
	}
	switch {
	case days <= 90:
		return models.ClassLow
	case days <= 180:
		return models.ClassMedium
	case days <= 365:
		return models.ClassHigh
	default:
		return models.ClassCritical
	}
}
