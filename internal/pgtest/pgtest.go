// Package pgtest provides in-memory stand-ins for the pgx interfaces used by
// the PostgreSQL stores, so their SQL plumbing can be tested without a server.
package pgtest

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Call records one statement and its arguments.
type Call struct {
	SQL  string
	Args []any
}

// Row is a single result row. Values are assigned to Scan targets by type.
type Row struct {
	Values []any
	Err    error
}

// Scan implements pgx.Row.
func (r Row) Scan(dest ...any) error {
	if r.Err != nil {
		return r.Err
	}
	return assign(r.Values, dest)
}

// Rows replays Data one row at a time.
type Rows struct {
	pgx.Rows
	Data    [][]any
	NextErr error
	Closed  bool
	pos     int
}

// Next implements pgx.Rows.
func (r *Rows) Next() bool {
	if r.pos >= len(r.Data) {
		return false
	}
	r.pos++
	return true
}

// Scan implements pgx.Rows.
func (r *Rows) Scan(dest ...any) error {
	if r.pos == 0 || r.pos > len(r.Data) {
		return fmt.Errorf("pgtest: scan without current row")
	}
	return assign(r.Data[r.pos-1], dest)
}

// Err implements pgx.Rows.
func (r *Rows) Err() error { return r.NextErr }

// Close implements pgx.Rows.
func (r *Rows) Close() { r.Closed = true }

// Tx records statements run inside a transaction.
type Tx struct {
	pgx.Tx
	ExecTag    pgconn.CommandTag
	ExecErr    error
	BatchErr   error
	Execs      []Call
	Batch      *pgx.Batch
	Committed  bool
	RolledBack bool
}

// Exec implements pgx.Tx.
func (t *Tx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.Execs = append(t.Execs, Call{SQL: sql, Args: args})
	return t.ExecTag, t.ExecErr
}

// SendBatch implements pgx.Tx. The batch is kept for inspection.
func (t *Tx) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	t.Batch = b
	return batchResults{err: t.BatchErr}
}

// Commit implements pgx.Tx.
func (t *Tx) Commit(context.Context) error {
	t.Committed = true
	return nil
}

// Rollback implements pgx.Tx. A rollback after commit is a no-op.
func (t *Tx) Rollback(context.Context) error {
	if t.Committed {
		return pgx.ErrTxClosed
	}
	t.RolledBack = true
	return nil
}

type batchResults struct {
	pgx.BatchResults
	err error
}

func (b batchResults) Close() error { return b.err }

// DB stands in for *pgxpool.Pool. Query hands out Rows in order.
type DB struct {
	ExecTag  pgconn.CommandTag
	ExecErr  error
	Row      Row
	Rows     []*Rows
	QueryErr error
	Tx       *Tx
	Execs    []Call
	Queries  []Call
}

// Exec implements the pool method.
func (d *DB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	d.Execs = append(d.Execs, Call{SQL: sql, Args: args})
	return d.ExecTag, d.ExecErr
}

// Query implements the pool method.
func (d *DB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	d.Queries = append(d.Queries, Call{SQL: sql, Args: args})
	if d.QueryErr != nil {
		return nil, d.QueryErr
	}
	if len(d.Rows) == 0 {
		return &Rows{}, nil
	}
	rows := d.Rows[0]
	d.Rows = d.Rows[1:]
	return rows, nil
}

// QueryRow implements the pool method.
func (d *DB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	d.Queries = append(d.Queries, Call{SQL: sql, Args: args})
	return d.Row
}

// Begin implements the pool method.
func (d *DB) Begin(context.Context) (pgx.Tx, error) {
	if d.Tx == nil {
		d.Tx = &Tx{}
	}
	return d.Tx, nil
}

// Tag builds a command tag such as "UPDATE 1".
func Tag(s string) pgconn.CommandTag { return pgconn.NewCommandTag(s) }

func assign(values, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("pgtest: %d values for %d scan targets", len(values), len(dest))
	}
	for i, v := range values {
		target := reflect.ValueOf(dest[i])
		if target.Kind() != reflect.Pointer || target.IsNil() {
			return fmt.Errorf("pgtest: scan target %d is not a pointer", i)
		}
		value := reflect.ValueOf(v)
		if !value.Type().AssignableTo(target.Elem().Type()) {
			return fmt.Errorf("pgtest: column %d is %T, target is %s", i, v, target.Elem().Type())
		}
		target.Elem().Set(value)
	}
	return nil
}
