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

// Package sqlengine implements the alternate engine on top of database/sql.
// The sqlite dialect runs an embedded engine in process, one database per
// host schema; the mysql dialect talks to a remote server where each host
// schema is a database.
package sqlengine

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/vtbridge/vtbridge/go/vt/altengine"
	"github.com/vtbridge/vtbridge/go/vt/log"
)

// Options configure an Engine.
type Options struct {
	// Dialect is "sqlite" or "mysql".
	Dialect string
	// DSN is the mysql data source name. Unused by sqlite.
	DSN string
	// DataDir holds the sqlite database files, one per schema. Empty means
	// shared in-memory databases that live as long as the engine.
	DataDir string
}

// Engine is a database/sql backed altengine.Engine.
type Engine struct {
	dialect  dialect
	db       *sql.DB
	sessions *sql.DB

	mu      sync.Mutex
	anchor  *sql.Conn
	schemas map[string]bool
	closed  bool
}

var _ altengine.Engine = (*Engine)(nil)

// Open opens an engine. The instance name isolates the in-memory databases
// of different sqlite engines in the same process.
func Open(ctx context.Context, opts Options) (*Engine, error) {
	d, err := newDialect(opts, uuid.NewString())
	if err != nil {
		return nil, err
	}
	db, err := d.open()
	if err != nil {
		return nil, err
	}
	anchor, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot connect to %s engine: %w", d.name(), err)
	}
	sessions, err := d.openSessions(db)
	if err != nil {
		anchor.Close()
		db.Close()
		return nil, err
	}
	log.InfoS("opened alternate engine", "dialect", d.name())
	return &Engine{dialect: d, db: db, sessions: sessions, anchor: anchor, schemas: make(map[string]bool)}, nil
}

// Dialect returns the engine's dialect name.
func (e *Engine) Dialect() string {
	return e.dialect.name()
}

// EnsureSchema makes schema available to the engine. For sqlite the
// schema's database is created and kept open.
func (e *Engine) EnsureSchema(ctx context.Context, schema string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return altengine.ErrSessionClosed
	}
	if e.schemas[schema] {
		return nil
	}
	if err := e.dialect.createSchema(ctx, e.anchor, schema); err != nil {
		return fmt.Errorf("cannot create schema %s: %w", schema, err)
	}
	e.schemas[schema] = true
	return nil
}

// Exec runs a statement outside of any session with every schema visible.
// It is used to create and load tables.
func (e *Engine) Exec(ctx context.Context, query string, args ...any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return altengine.ErrSessionClosed
	}
	_, err := e.anchor.ExecContext(ctx, query, args...)
	return err
}

// Connect implements altengine.Engine. The session can read exactly the
// tables of scope; statements naming any other table fail to prepare.
func (e *Engine) Connect(ctx context.Context, scope altengine.Scope) (altengine.Session, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, altengine.ErrSessionClosed
	}

	conn, err := e.sessions.Conn(ctx)
	if err != nil {
		return nil, err
	}
	columns, err := e.dialect.scope(ctx, conn, scope)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("cannot scope session to its tables: %w", err)
	}
	s := &session{
		id:       uuid.NewString(),
		scope:    scope,
		dialect:  e.dialect,
		conn:     conn,
		columns:  columns,
		lifetime: &altengine.Lifetime{},
	}
	log.DebugS("opened alternate engine session", "session", s.id, "schemas", scope.Schemas())
	return s, nil
}

// Close implements altengine.Engine. In-memory databases are dropped once
// the last connection is gone.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	err := e.anchor.Close()
	if e.sessions != e.db {
		if cerr := e.sessions.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := e.db.Close(); err == nil {
		err = cerr
	}
	return err
}
