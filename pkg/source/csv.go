package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"

	"golang.org/x/text/transform"

	"github.com/BeAltea/altea-pay/pkg/models"
)

// CSV reads a ';'-delimited export with a header row. Data, when set,
// is used instead of reading Name from disk.
type CSV struct {
	Name     string
	Data     []byte
	Encoding string
}

func (c *CSV) Rows(ctx context.Context) ([]models.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	enc, err := decoder(c.Encoding)
	if err != nil {
		return nil, &ReadError{Source: c.Name, Err: err}
	}
	data, err := readFile(c.Name, c.Data)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
	r.Comma = ';'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		rerr := &ReadError{Source: c.Name, Err: err}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			rerr.Line = perr.Line
		}
		return nil, rerr
	}
	return tableRows(c.Name, records, nil)
}
