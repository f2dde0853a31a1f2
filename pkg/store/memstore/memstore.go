// Package memstore is an in-memory store.Store. It records every call and
// is used for dry runs and as the store double in tests.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/BeAltea/altea-pay/pkg/store"
)

const (
	OpFind   = "find"
	OpCreate = "create"
)

// Call is one recorded store invocation.
type Call struct {
	Op         string
	Collection string
	Filter     store.Filter
	Attrs      store.Record
}

// FailFunc lets a test reject a call. A non-nil return is surfaced as the
// call's error and nothing is stored.
type FailFunc func(c Call) error

type Store struct {
	mu     sync.Mutex
	data   map[string][]store.Record
	calls  []Call
	failOn FailFunc
	nextID func() string
}

// New returns an empty store that assigns random UUIDs.
func New() *Store {
	return &Store{
		data:   make(map[string][]store.Record),
		nextID: func() string { return uuid.NewString() },
	}
}

// FailOn installs a hook consulted before every call.
func (s *Store) FailOn(fn FailFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn = fn
}

// Seed inserts records as if they already existed remotely. Records without
// an id get one assigned. Seeding is not recorded as a call.
func (s *Store) Seed(collection string, recs ...store.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		c := clone(r)
		if c.ID() == "" {
			c["id"] = s.nextID()
		}
		s.data[collection] = append(s.data[collection], c)
	}
}

func (s *Store) FindOne(ctx context.Context, collection string, f store.Filter) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	call := Call{Op: OpFind, Collection: collection, Filter: copyFilter(f)}
	s.calls = append(s.calls, call)
	if s.failOn != nil {
		if err := s.failOn(call); err != nil {
			return nil, err
		}
	}

	for _, r := range s.data[collection] {
		if matches(r, f) {
			return clone(r), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) Create(ctx context.Context, collection string, attrs store.Record) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	call := Call{Op: OpCreate, Collection: collection, Attrs: clone(attrs)}
	s.calls = append(s.calls, call)
	if s.failOn != nil {
		if err := s.failOn(call); err != nil {
			return nil, err
		}
	}

	rec := clone(attrs)
	rec["id"] = s.nextID()
	s.data[collection] = append(s.data[collection], rec)
	return clone(rec), nil
}

// Calls returns every recorded call in order.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Count returns how many calls of op were made against collection.
func (s *Store) Count(op, collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Op == op && c.Collection == collection {
			n++
		}
	}
	return n
}

// Records returns a copy of what is stored in collection.
func (s *Store) Records(collection string) []store.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Record, 0, len(s.data[collection]))
	for _, r := range s.data[collection] {
		out = append(out, clone(r))
	}
	return out
}

func matches(r store.Record, f store.Filter) bool {
	for col, want := range f {
		v, ok := r[col]
		if !ok || v == nil {
			return false
		}
		if fmt.Sprintf("%v", v) != want {
			return false
		}
	}
	return true
}

func clone(r store.Record) store.Record {
	out := make(store.Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func copyFilter(f store.Filter) store.Filter {
	out := make(store.Filter, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
