package models

// Row is a raw record as read from a source, before normalization.
// Line is the 1-based position of the record among the data rows.
type Row struct {
	Line        int
	Document    string
	Name        string
	Amount      string
	DueDate     string
	DaysOverdue string
	City        string
	CancelledAt string
}

// RowFromFields builds a Row from a positional tuple. Missing trailing
// fields are left empty and extra fields are ignored.
func RowFromFields(line int, fields []string) Row {
	get := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	return Row{
		Line:        line,
		Document:    get(0),
		Name:        get(1),
		Amount:      get(2),
		DueDate:     get(3),
		DaysOverdue: get(4),
		City:        get(5),
		CancelledAt: get(6),
	}
}
