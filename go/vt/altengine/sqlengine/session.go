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

package sqlengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/vtbridge/vtbridge/go/vt/altengine"
)

const (
	explainPrefix        = "EXPLAIN "
	explainAnalyzePrefix = "EXPLAIN ANALYZE "
)

// explainColumns is the result schema of an EXPLAIN request: one row per
// plan, keyed by plan kind.
var explainColumns = []altengine.Column{
	{Name: "explain_key", Type: altengine.NewType(altengine.Varchar)},
	{Name: "explain_value", Type: altengine.NewType(altengine.Varchar)},
}

type session struct {
	id       string
	scope    altengine.Scope
	dialect  dialect
	conn     *sql.Conn
	columns  tableColumns
	lifetime *altengine.Lifetime

	mu    sync.Mutex
	stmts []*sql.Stmt
}

type prepared struct {
	stmt    *sql.Stmt
	args    []any
	explain bool
}

func (s *session) ID() string {
	return s.id
}

func (s *session) Scope() altengine.Scope {
	return s.scope
}

func splitExplain(text string) (inner string, analyze, ok bool) {
	if rest, found := strings.CutPrefix(text, explainAnalyzePrefix); found {
		return rest, true, true
	}
	if rest, found := strings.CutPrefix(text, explainPrefix); found {
		return rest, false, true
	}
	return text, false, false
}

func (s *session) Prepare(ctx context.Context, text string) *altengine.PreparedStatement {
	if s.lifetime.Ended() {
		return altengine.NewFailedPreparedStatement(s.lifetime, text, altengine.ErrSessionClosed)
	}

	inner, analyze, explain := splitExplain(text)
	q, err := s.dialect.rewrite(inner, s.scope)
	if err != nil {
		return altengine.NewFailedPreparedStatement(s.lifetime, text, err)
	}
	query := q.text
	if explain {
		query = s.dialect.explainQuery(q.text, analyze)
	}
	bound, args, err := s.dialect.bind(query, s.scope.Params)
	if err != nil {
		return altengine.NewFailedPreparedStatement(s.lifetime, text, err)
	}
	stmt, err := s.conn.PrepareContext(ctx, bound)
	if err != nil {
		return altengine.NewFailedPreparedStatement(s.lifetime, text, err)
	}
	s.mu.Lock()
	s.stmts = append(s.stmts, stmt)
	s.mu.Unlock()

	if explain {
		return altengine.NewPreparedStatement(s.lifetime, text, explainColumns, &prepared{stmt: stmt, args: args, explain: true})
	}
	columns, err := s.describe(ctx, q, bound, args)
	if err != nil {
		return altengine.NewFailedPreparedStatement(s.lifetime, text, err)
	}
	return altengine.NewPreparedStatement(s.lifetime, text, columns, &prepared{stmt: stmt, args: args})
}

// describe returns the result columns of query by running it wrapped in a
// query that yields no rows. Columns reported without a declared type get
// the type inferred from q.
func (s *session) describe(ctx context.Context, q *scopedQuery, query string, args []any) ([]altengine.Column, error) {
	rows, err := s.conn.QueryContext(ctx, s.dialect.fieldQuery(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	var inferred []altengine.Type
	columns := make([]altengine.Column, len(types))
	for i, ct := range types {
		t := s.dialect.columnType(ct)
		if t.ID == altengine.Invalid && ct.DatabaseTypeName() == "" && s.columns != nil {
			if inferred == nil {
				ti := &typeInference{query: q, columns: s.columns, params: s.scope.Params}
				inferred = ti.projection(len(types))
			}
			if inferred != nil {
				t = inferred[i]
			}
		}
		columns[i] = altengine.Column{Name: ct.Name(), Type: t}
	}
	return columns, rows.Err()
}

func (s *session) Query(ctx context.Context, ps *altengine.PreparedStatement) (altengine.RowIterator, error) {
	if err := ps.Err(); err != nil {
		return nil, err
	}
	p, ok := ps.Impl().(*prepared)
	if !ok {
		return nil, errors.New("statement was not prepared by a sql engine session")
	}
	rows, err := p.stmt.QueryContext(ctx, p.args...)
	if err != nil {
		return nil, err
	}
	if !p.explain {
		return &rowIterator{rows: rows}, nil
	}
	defer rows.Close()
	plan, err := explainText(rows)
	if err != nil {
		return nil, err
	}
	return &staticRows{rows: [][]any{{"physical_plan", plan}}}, nil
}

func (s *session) Close() error {
	if s.lifetime.Ended() {
		return nil
	}
	s.lifetime.End()
	s.mu.Lock()
	stmts := s.stmts
	s.stmts = nil
	s.mu.Unlock()
	for _, stmt := range stmts {
		_ = stmt.Close()
	}
	return s.conn.Close()
}

// explainText renders the rows of an EXPLAIN statement. sqlite query plans
// come as (id, parent, notused, detail) rows and are indented by depth;
// other engines return the plan text in the first column.
func explainText(rows *sql.Rows) (string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return "", err
	}
	detail := -1
	for i, c := range cols {
		if strings.EqualFold(c, "detail") {
			detail = i
		}
	}

	var lines []string
	depth := map[int64]int{0: -1}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", err
		}
		if detail < 0 {
			lines = append(lines, asString(vals[0]))
			continue
		}
		id, _ := vals[0].(int64)
		parent, _ := vals[1].(int64)
		d := depth[parent] + 1
		depth[id] = d
		lines = append(lines, strings.Repeat("  ", d)+asString(vals[detail]))
	}
	return strings.Join(lines, "\n"), rows.Err()
}

func asString(v any) string {
	switch v := v.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

type rowIterator struct {
	rows *sql.Rows
}

func (it *rowIterator) Next() ([]any, error) {
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	cols, err := it.rows.Columns()
	if err != nil {
		return nil, err
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := it.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return vals, nil
}

func (it *rowIterator) Close() error {
	return it.rows.Close()
}

type staticRows struct {
	rows [][]any
	pos  int
}

func (r *staticRows) Next() ([]any, error) {
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.pos]
	r.pos++
	return row, nil
}

func (r *staticRows) Close() error {
	r.pos = len(r.rows)
	return nil
}
