// Package testutil provides a recording stub database for postgres store tests.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

var stubSeq uint64

// StubConn records statements issued by the postgres store during tests and
// serves canned rows for SELECTs keyed by the first table after FROM.
type StubConn struct {
	mu         sync.Mutex
	Execs      []string
	Args       [][]driver.Value
	Rows       map[string][][]driver.Value
	Columns    map[string][]string
	Affected   int64
	FailExec   bool
	FailPing   bool
	FailBegin  bool
	FailCommit bool
	Commits    int
	Rollbacks  int
}

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Rows: make(map[string][][]driver.Value), Columns: make(map[string][]string), Affected: 1}
	name := fmt.Sprintf("stubpg%d", atomic.AddUint64(&stubSeq, 1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

// Statements returns a copy of every executed statement.
func (c *StubConn) Statements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.Execs...)
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(_ context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(_ context.Context, _ driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	return &stubTx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs = append(c.Execs, query)
	vals := make([]driver.Value, len(args))
	for i, a := range args {
		vals[i] = a.Value
	}
	c.Args = append(c.Args, vals)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	return driver.RowsAffected(c.Affected), nil
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	table, err := tableOf(query)
	if err != nil {
		return nil, err
	}
	rows := c.Rows[table]
	return &stubRows{cols: c.Columns[table], rows: append([][]driver.Value(nil), rows...)}, nil
}

type stubTx struct {
	conn *StubConn
}

func (t *stubTx) Commit() error {
	if t.conn.FailCommit {
		return fmt.Errorf("commit fail")
	}
	t.conn.mu.Lock()
	t.conn.Commits++
	t.conn.mu.Unlock()
	return nil
}

func (t *stubTx) Rollback() error {
	t.conn.mu.Lock()
	t.conn.Rollbacks++
	t.conn.mu.Unlock()
	return nil
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

func tableOf(query string) (string, error) {
	lower := strings.ToLower(query)
	idx := strings.Index(lower, " from ")
	if idx == -1 {
		return "", fmt.Errorf("cannot parse select: %s", query)
	}
	fields := strings.Fields(lower[idx+len(" from "):])
	if len(fields) == 0 {
		return "", fmt.Errorf("cannot parse select: %s", query)
	}
	return fields[0], nil
}
