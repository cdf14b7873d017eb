/*
Copyright 2026 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package altengine defines the contract between the planning bridge and the
// alternate execution engine: sessions scoped to a set of tables, statement
// preparation with result schema introspection, and row streaming.
package altengine

import (
	"context"
	"errors"
	"sync/atomic"

	"vitess.io/vitess/go/sqltypes"
)

// ErrSessionClosed is reported by a prepared statement whose session has
// already been closed.
var ErrSessionClosed = errors.New("alternate engine session is closed")

// TableRef names a table the session must be able to read.
type TableRef struct {
	Schema string
	Name   string
}

// ColumnRef names a column read by the statement being prepared.
type ColumnRef struct {
	Schema string
	Table  string
	Name   string
}

// Param is a bound parameter in the engine's type system. Name is the
// placeholder name used in the query text.
type Param struct {
	Name  string
	Type  Type
	Value sqltypes.Value
}

// Scope is the set of objects a session is allowed to see.
type Scope struct {
	Tables  []TableRef
	Columns []ColumnRef
	Params  []Param
}

// Schemas returns the distinct schemas of the scoped tables in first-seen order.
func (s Scope) Schemas() []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range s.Tables {
		if t.Schema == "" || seen[t.Schema] {
			continue
		}
		seen[t.Schema] = true
		out = append(out, t.Schema)
	}
	return out
}

// Engine opens sessions against the alternate engine.
type Engine interface {
	// Connect opens a new session that exposes exactly the tables of scope.
	// Every call returns an independent session.
	Connect(ctx context.Context, scope Scope) (Session, error)
	// Close releases every resource held by the engine.
	Close() error
}

// Session is a connection to the alternate engine. A session prepares and
// later executes exactly one statement per planning attempt and must not be
// shared across statements.
type Session interface {
	ID() string
	Scope() Scope
	// Prepare parses and binds text without executing it. Failures are
	// reported through the returned statement, never as a Go error.
	Prepare(ctx context.Context, text string) *PreparedStatement
	// Query executes a statement prepared by this session.
	Query(ctx context.Context, stmt *PreparedStatement) (RowIterator, error)
	Close() error
}

// RowIterator streams result rows. Next returns io.EOF after the last row.
type RowIterator interface {
	Next() ([]any, error)
	Close() error
}

// Column is one result column of a prepared statement.
type Column struct {
	Name string
	Type Type
}

// Lifetime tracks whether the session owning a prepared statement is still
// open. Engine implementations end it when the session closes.
type Lifetime struct {
	ended atomic.Bool
}

// End marks the owning session as closed.
func (l *Lifetime) End() {
	l.ended.Store(true)
}

// Ended reports whether the owning session has been closed.
func (l *Lifetime) Ended() bool {
	return l.ended.Load()
}

// PreparedStatement is the result of preparing a query text against a
// session. It exposes the ordered result columns and an error state; callers
// must check HasError before reading the columns.
type PreparedStatement struct {
	text     string
	columns  []Column
	err      error
	lifetime *Lifetime
	impl     any
}

// NewPreparedStatement returns a successfully prepared statement. impl is an
// engine specific handle retrieved with Impl.
func NewPreparedStatement(lifetime *Lifetime, text string, columns []Column, impl any) *PreparedStatement {
	return &PreparedStatement{text: text, columns: columns, lifetime: lifetime, impl: impl}
}

// NewFailedPreparedStatement returns a statement carrying a prepare-time error.
func NewFailedPreparedStatement(lifetime *Lifetime, text string, err error) *PreparedStatement {
	return &PreparedStatement{text: text, err: err, lifetime: lifetime}
}

// Text returns the query text the statement was prepared from.
func (ps *PreparedStatement) Text() string {
	return ps.text
}

// Err returns the prepare-time error, or ErrSessionClosed once the owning
// session has been closed.
func (ps *PreparedStatement) Err() error {
	if ps.err != nil {
		return ps.err
	}
	if ps.lifetime != nil && ps.lifetime.Ended() {
		return ErrSessionClosed
	}
	return nil
}

// HasError reports whether the statement cannot be used.
func (ps *PreparedStatement) HasError() bool {
	return ps.Err() != nil
}

// Error returns the error text, or "" when there is none.
func (ps *PreparedStatement) Error() string {
	if err := ps.Err(); err != nil {
		return err.Error()
	}
	return ""
}

// Columns returns the ordered result columns.
func (ps *PreparedStatement) Columns() []Column {
	return ps.columns
}

// Types returns the result column types in order.
func (ps *PreparedStatement) Types() []Type {
	types := make([]Type, len(ps.columns))
	for i, c := range ps.columns {
		types[i] = c.Type
	}
	return types
}

// Names returns the result column names in order.
func (ps *PreparedStatement) Names() []string {
	names := make([]string, len(ps.columns))
	for i, c := range ps.columns {
		names[i] = c.Name
	}
	return names
}

// Impl returns the engine specific handle.
func (ps *PreparedStatement) Impl() any {
	return ps.impl
}
