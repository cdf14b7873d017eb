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

// Package fakeengine is a scriptable alternate engine for tests. Query texts
// are matched exactly against registered results.
package fakeengine

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/vtbridge/vtbridge/go/vt/altengine"
)

// Result is the scripted outcome of preparing and running one query text.
type Result struct {
	Columns    []altengine.Column
	Rows       [][]any
	PrepareErr error
	QueryErr   error
}

// Engine is a fake altengine.Engine.
type Engine struct {
	mu         sync.Mutex
	results    map[string]*Result
	sessions   []*Session
	connectErr error
	nextID     int
	closed     bool
}

var _ altengine.Engine = (*Engine)(nil)

// New returns an engine with no registered queries.
func New() *Engine {
	return &Engine{results: make(map[string]*Result)}
}

// AddQuery registers the result for text.
func (e *Engine) AddQuery(text string, res *Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results[text] = res
}

// SetConnectError makes every following Connect fail with err.
func (e *Engine) SetConnectError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connectErr = err
}

// Sessions returns every session opened so far.
func (e *Engine) Sessions() []*Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.sessions)
}

// OpenSessions returns the number of sessions not yet closed.
func (e *Engine) OpenSessions() int {
	n := 0
	for _, s := range e.Sessions() {
		if !s.Closed() {
			n++
		}
	}
	return n
}

func (e *Engine) lookup(text string) (*Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	res, ok := e.results[text]
	return res, ok
}

// Connect implements altengine.Engine.
func (e *Engine) Connect(ctx context.Context, scope altengine.Scope) (altengine.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, fmt.Errorf("engine is closed")
	}
	if e.connectErr != nil {
		return nil, e.connectErr
	}
	e.nextID++
	s := &Session{
		id:       fmt.Sprintf("fake-%d", e.nextID),
		scope:    scope,
		engine:   e,
		lifetime: &altengine.Lifetime{},
	}
	e.sessions = append(e.sessions, s)
	return s, nil
}

// Close implements altengine.Engine.
func (e *Engine) Close() error {
	for _, s := range e.Sessions() {
		_ = s.Close()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Session is a fake altengine.Session.
type Session struct {
	id       string
	scope    altengine.Scope
	engine   *Engine
	lifetime *altengine.Lifetime

	mu       sync.Mutex
	prepared []string
}

var _ altengine.Session = (*Session)(nil)

func (s *Session) ID() string             { return s.id }
func (s *Session) Scope() altengine.Scope { return s.scope }
func (s *Session) Closed() bool           { return s.lifetime.Ended() }

// Prepared returns the texts prepared on this session.
func (s *Session) Prepared() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.prepared)
}

// Prepare implements altengine.Session.
func (s *Session) Prepare(ctx context.Context, text string) *altengine.PreparedStatement {
	s.mu.Lock()
	s.prepared = append(s.prepared, text)
	s.mu.Unlock()

	if s.Closed() {
		return altengine.NewFailedPreparedStatement(s.lifetime, text, altengine.ErrSessionClosed)
	}
	res, ok := s.engine.lookup(text)
	if !ok {
		return altengine.NewFailedPreparedStatement(s.lifetime, text, fmt.Errorf("parser error: syntax error at or near %q", text))
	}
	if res.PrepareErr != nil {
		return altengine.NewFailedPreparedStatement(s.lifetime, text, res.PrepareErr)
	}
	return altengine.NewPreparedStatement(s.lifetime, text, slices.Clone(res.Columns), res)
}

// Query implements altengine.Session.
func (s *Session) Query(ctx context.Context, stmt *altengine.PreparedStatement) (altengine.RowIterator, error) {
	if err := stmt.Err(); err != nil {
		return nil, err
	}
	res, ok := stmt.Impl().(*Result)
	if !ok {
		return nil, fmt.Errorf("statement was not prepared by a fake engine")
	}
	if res.QueryErr != nil {
		return nil, res.QueryErr
	}
	return &rows{rows: res.Rows}, nil
}

// Close implements altengine.Session.
func (s *Session) Close() error {
	s.lifetime.End()
	return nil
}

type rows struct {
	rows [][]any
	pos  int
}

func (r *rows) Next() ([]any, error) {
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.pos]
	r.pos++
	return row, nil
}

func (r *rows) Close() error {
	r.pos = len(r.rows)
	return nil
}
