// Package store defines the remote record store the importer writes to.
// Collections are tables (companies, customers, debts); records are flat
// column maps as exchanged with PostgREST.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by FindOne when no record matches the filter.
var ErrNotFound = errors.New("record not found")

// Record is a single row keyed by column name.
type Record map[string]any

// ID returns the store-assigned identifier, or "" when absent.
func (r Record) ID() string {
	v, ok := r["id"]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// Filter selects records by exact column equality. All pairs must match.
type Filter map[string]string

// Store is the capability the import pipeline depends on.
type Store interface {
	// FindOne returns the first record matching every pair of f, or ErrNotFound.
	FindOne(ctx context.Context, collection string, f Filter) (Record, error)
	// Create inserts attrs and returns the stored representation, id included.
	Create(ctx context.Context, collection string, attrs Record) (Record, error)
}

// RemoteWriteError reports a request the store rejected or could not serve.
type RemoteWriteError struct {
	Collection string
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteWriteError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Op, e.Collection)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RemoteWriteError) Unwrap() error { return e.Err }
