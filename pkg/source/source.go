// Package source reads raw debt rows from ERP exports and literal batches.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BeAltea/altea-pay/pkg/models"
)

// Source produces rows in input order.
type Source interface {
	Rows(ctx context.Context) ([]models.Row, error)
}

type Kind string

const (
	KindCSV     Kind = "csv"
	KindXLS     Kind = "xls"
	KindLiteral Kind = "literal"
)

// ReadError reports an input that could not be read or has a malformed
// structure. It is fatal for a run.
type ReadError struct {
	Source string
	Line   int
	Err    error
}

func (e *ReadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("read %s: line %d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("read %s: %v", e.Source, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// DetectKind picks a reader from the file extension. Anything that is not
// an Excel sheet is treated as delimited text.
func DetectKind(filename string) Kind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		return KindXLS
	default:
		return KindCSV
	}
}

// ParseKind validates a kind name from a plan file. Empty means detect.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "", KindCSV, KindXLS, KindLiteral:
		return k, nil
	default:
		return "", fmt.Errorf("unknown source type %q", s)
	}
}

// FromBytes wraps an uploaded file. The kind is detected from filename.
func FromBytes(filename string, data []byte, encoding string) (Source, error) {
	if _, err := decoder(encoding); err != nil {
		return nil, err
	}
	switch DetectKind(filename) {
	case KindXLS:
		return &XLS{Name: filename, Data: data, Encoding: encoding}, nil
	default:
		return &CSV{Name: filename, Data: data, Encoding: encoding}, nil
	}
}

// readFile loads name unless data was provided inline.
func readFile(name string, data []byte) ([]byte, error) {
	if data != nil {
		return data, nil
	}
	if name == "" {
		return nil, &ReadError{Source: "<empty>", Err: fmt.Errorf("no file given")}
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, &ReadError{Source: name, Err: err}
	}
	return b, nil
}
