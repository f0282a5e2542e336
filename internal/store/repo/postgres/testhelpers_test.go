package postgres_test

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// rowStub implements pgx.Row.
type rowStub struct{ scan func(dest ...any) error }

func (r rowStub) Scan(dest ...any) error { return r.scan(dest...) }

// rowsStub implements pgx.Rows by embedding the real interface (nil) and
// overriding only the methods the repos actually read.
type rowsStub struct {
	pgx.Rows
	rows []func(dest ...any) error
	i    int
}

func (r *rowsStub) Next() bool             { return r.i < len(r.rows) }
func (r *rowsStub) Scan(dest ...any) error { err := r.rows[r.i](dest...); r.i++; return err }
func (r *rowsStub) Err() error              { return nil }
func (r *rowsStub) Close()                  {}

// poolStub implements postgres.PgxPool for tests.
type poolStub struct {
	execErr error
	row     rowStub
	rows    *rowsStub

	beginErr error
	tx       *txStub
}

func (p *poolStub) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, p.execErr
}

func (p *poolStub) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	if p.row.scan == nil {
		return rowStub{scan: func(_ ...any) error { return errors.New("no row configured") }}
	}
	return p.row
}

func (p *poolStub) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	if p.rows == nil {
		return nil, errors.New("no rows configured")
	}
	return p.rows, nil
}

// txStub satisfies pgx.Tx by embedding the real interface (nil) and
// overriding only Exec/Commit/Rollback, the methods CleanupService drives.
type txStub struct {
	pgx.Tx
	execErr      error
	commitErr    error
	rollbackCalled bool
}

func (t *txStub) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, t.execErr
}
func (t *txStub) Commit(context.Context) error { return t.commitErr }
func (t *txStub) Rollback(context.Context) error {
	t.rollbackCalled = true
	return nil
}

func (p *poolStub) BeginTx(_ context.Context, _ pgx.TxOptions) (pgx.Tx, error) {
	if p.beginErr != nil {
		return nil, p.beginErr
	}
	if p.tx == nil {
		p.tx = &txStub{}
	}
	return p.tx, nil
}
