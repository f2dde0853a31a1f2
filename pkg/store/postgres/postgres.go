// Package postgres implements store.Store directly on the Postgres database
// behind the REST API, using the same tables and columns.
package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"

	sq "github.com/Masterminds/squirrel"
	"github.com/charmbracelet/log"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BeAltea/altea-pay/pkg/store"
)

// Querier is the subset of *pgxpool.Pool the store needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db     Querier
	pool   *pgxpool.Pool
	logger *log.Logger
}

var ident = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Open connects to databaseURL. NUMERIC columns are mapped to
// shopspring decimals on every pooled connection.
func Open(ctx context.Context, databaseURL string, logger *log.Logger) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database url is required")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 2
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: pool, pool: pool, logger: logger}, nil
}

// New wraps an existing connection or pool.
func New(db Querier, logger *log.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Close releases the pool when the store owns one.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) FindOne(ctx context.Context, collection string, f store.Filter) (store.Record, error) {
	if err := checkIdent(collection); err != nil {
		return nil, err
	}
	where := sq.Eq{}
	for col, v := range f {
		if err := checkIdent(col); err != nil {
			return nil, err
		}
		where[fmt.Sprintf(`t.%q`, col)] = v
	}

	query, args, err := psql.Select("row_to_json(t)").
		From(fmt.Sprintf(`%q AS t`, collection)).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find query: %w", err)
	}

	rec, err := s.queryRecord(ctx, query, args)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, wrap("find", collection, err)
	}
	return rec, nil
}

func (s *Store) Create(ctx context.Context, collection string, attrs store.Record) (store.Record, error) {
	if err := checkIdent(collection); err != nil {
		return nil, err
	}
	cols := make([]string, 0, len(attrs))
	for col := range attrs {
		if err := checkIdent(col); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	vals := make([]any, len(cols))
	for i, col := range cols {
		vals[i] = attrs[col]
	}

	query, args, err := psql.Insert(fmt.Sprintf(`%q AS t`, collection)).
		Columns(cols...).
		Values(vals...).
		Suffix("RETURNING row_to_json(t)").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert query: %w", err)
	}

	rec, err := s.queryRecord(ctx, query, args)
	if err != nil {
		return nil, wrap("create", collection, err)
	}
	return rec, nil
}

func (s *Store) queryRecord(ctx context.Context, query string, args []any) (store.Record, error) {
	if s.logger != nil {
		s.logger.Debug("sql", "query", query, "args", len(args))
	}
	var raw []byte
	if err := s.db.QueryRow(ctx, query, args...).Scan(&raw); err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rec store.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	return rec, nil
}

func wrap(op, collection string, err error) error {
	return &store.RemoteWriteError{Collection: collection, Op: op, Err: err}
}

func checkIdent(name string) error {
	if !ident.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}
