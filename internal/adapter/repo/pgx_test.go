package repo

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// stubExecutor records the last statement and replays canned results.
type stubExecutor struct {
	query string
	args  []any

	row     []any
	rowErr  error
	rows    [][]any
	execTag pgconn.CommandTag
	err     error
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.query, s.args = query, args
	return s.execTag, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.query, s.args = query, args
	if s.rowErr != nil {
		return errRow{err: s.rowErr}
	}
	return &stubRows{data: [][]any{s.row}, pos: 0}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	s.query, s.args = query, args
	if s.err != nil {
		return nil, s.err
	}
	return &stubRows{data: s.rows, pos: -1}, nil
}

type errRow struct{ err error }

func (r errRow) Scan(dest ...any) error { return r.err }

type stubRows struct {
	data   [][]any
	pos    int
	closed bool
}

func (r *stubRows) Close()                                       { r.closed = true }
func (r *stubRows) Err() error                                   { return nil }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Values() ([]any, error)                       { return nil, errors.New("values not supported in test rows") }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

func (r *stubRows) Next() bool {
	r.pos++
	return r.pos < len(r.data)
}

func (r *stubRows) Scan(dest ...any) error {
	if r.pos < 0 || r.pos >= len(r.data) {
		return pgx.ErrNoRows
	}
	values := r.data[r.pos]
	if len(values) != len(dest) {
		return fmt.Errorf("scan: %d values into %d destinations", len(values), len(dest))
	}
	for i, v := range values {
		target := reflect.ValueOf(dest[i]).Elem()
		if v == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		value := reflect.ValueOf(v)
		if !value.Type().AssignableTo(target.Type()) {
			return fmt.Errorf("scan: column %d: cannot assign %T to %s", i, v, target.Type())
		}
		target.Set(value)
	}
	return nil
}

func strPtr(s string) *string { return &s }
