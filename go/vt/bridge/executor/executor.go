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

// Package executor runs planned statements produced by the planner. A scan
// derives the engine query text from the attached query tree again,
// prepares it on a fresh session and streams rows converted to host values
// in the planned column order.
package executor

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/opentracing/opentracing-go"

	"vitess.io/vitess/go/sqltypes"
	querypb "vitess.io/vitess/go/vt/proto/query"
	vtrpcpb "vitess.io/vitess/go/vt/proto/vtrpc"
	"vitess.io/vitess/go/vt/vterrors"

	"github.com/vtbridge/vtbridge/go/vt/altengine"
	"github.com/vtbridge/vtbridge/go/vt/bridge/adapter"
	"github.com/vtbridge/vtbridge/go/vt/bridge/config"
	"github.com/vtbridge/vtbridge/go/vt/bridge/materializer"
	"github.com/vtbridge/vtbridge/go/vt/bridge/plan"
	"github.com/vtbridge/vtbridge/go/vt/bridge/typemap"
	"github.com/vtbridge/vtbridge/go/vt/host/catalog"
	"github.com/vtbridge/vtbridge/go/vt/host/querytree"
	"github.com/vtbridge/vtbridge/go/vt/host/session"
	"github.com/vtbridge/vtbridge/go/vt/log"
)

// Executor opens scans for planned statements.
type Executor struct {
	Catalog *catalog.Catalog
	Engine  altengine.Engine
	Config  *config.Config
}

// New returns an executor.
func New(cat *catalog.Catalog, engine altengine.Engine, cfg *config.Config) *Executor {
	return &Executor{Catalog: cat, Engine: engine, Config: cfg}
}

type schemaColumn struct {
	Name string
	Type querypb.Type
}

// Scan streams the rows of one execution of a planned statement.
type Scan struct {
	stmt    *plan.PlannedStmt
	fields  []*querypb.Field
	types   []querypb.Type
	session altengine.Session
	rows    altengine.RowIterator
	span    opentracing.Span

	start    time.Time
	returned uint64
	err      error

	closeOnce sync.Once
}

// Open prepares the statement's query on a new engine session and starts
// it. The scan fails with FAILED_PRECONDITION when the prepared result
// schema no longer matches the planned output schema.
func (e *Executor) Open(ctx context.Context, stmt *plan.PlannedStmt, sess *session.Session, params querytree.ParamList) (*Scan, error) {
	if stmt == nil || stmt.PlanTree == nil || stmt.PlanTree.Query == nil {
		return nil, vterrors.Errorf(vtrpcpb.Code_INVALID_ARGUMENT, "statement has no substitute scan")
	}
	span, ctx := opentracing.StartSpanFromContext(ctx, "bridge.Execute")
	scan := &Scan{
		stmt:   stmt,
		fields: stmt.PlanTree.Fields(),
		types:  stmt.PlanTree.Types(),
		span:   span,
		start:  time.Now(),
	}
	if err := scan.open(ctx, e, sess, params); err != nil {
		scan.err = err
		_ = scan.Close()
		return nil, err
	}
	return scan, nil
}

func (s *Scan) open(ctx context.Context, e *Executor, sess *session.Session, params querytree.ParamList) error {
	q := s.stmt.PlanTree.Query
	mat, err := materializer.Materialize(ctx, q, materializer.Context{Session: sess, Catalog: e.Catalog, Config: e.Config})
	if err != nil {
		return err
	}
	prepared, engineSession, err := adapter.Prepare(ctx, e.Engine, mat.RangeTable, adapter.PlanQuery(mat.Query, params), mat.Vars, mat.Text)
	if err != nil {
		return err
	}
	s.session = engineSession
	if prepared.HasError() {
		return vterrors.Errorf(vtrpcpb.Code_INVALID_ARGUMENT, "alternate engine cannot prepare query: %s", prepared.Error())
	}
	if err := s.checkSchema(prepared); err != nil {
		return err
	}
	rows, err := engineSession.Query(ctx, prepared)
	if err != nil {
		return vterrors.Wrapf(err, "alternate engine query failed")
	}
	s.rows = rows
	return nil
}

func (s *Scan) checkSchema(prepared *altengine.PreparedStatement) error {
	var planned, current []schemaColumn
	for _, te := range s.stmt.PlanTree.TargetList {
		planned = append(planned, schemaColumn{Name: te.Name, Type: te.Expr.Type})
	}
	for _, col := range prepared.Columns() {
		current = append(current, schemaColumn{Name: col.Name, Type: typemap.ToHostType(col.Type)})
	}
	if diff := cmp.Diff(planned, current); diff != "" {
		log.WarnS("bridged plan is stale", "query_id", s.stmt.QueryID, "diff", diff)
		return vterrors.Errorf(vtrpcpb.Code_FAILED_PRECONDITION, "result schema changed since the statement was planned (-planned +current):\n%s", diff)
	}
	return nil
}

// Fields returns the output schema.
func (s *Scan) Fields() []*querypb.Field {
	return s.fields
}

// Next returns the next row in output schema order, or io.EOF after the
// last one.
func (s *Scan) Next() ([]sqltypes.Value, error) {
	if s.rows == nil {
		return nil, io.EOF
	}
	raw, err := s.rows.Next()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			s.err = err
		}
		return nil, err
	}
	if len(raw) != len(s.types) {
		s.err = vterrors.Errorf(vtrpcpb.Code_INTERNAL, "alternate engine returned %d columns, expected %d", len(raw), len(s.types))
		return nil, s.err
	}
	row := make([]sqltypes.Value, len(raw))
	for i, v := range raw {
		row[i], err = toValue(v, s.types[i])
		if err != nil {
			s.err = err
			return nil, err
		}
	}
	s.returned++
	return row, nil
}

// Close releases the engine session and records the execution in the
// statement's stats. It is safe to call more than once.
func (s *Scan) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.rows != nil {
			err = s.rows.Close()
		}
		if s.session != nil {
			if cerr := s.session.Close(); err == nil {
				err = cerr
			}
		}
		s.stmt.AddStats(time.Since(s.start), s.returned, s.err)
		s.span.SetTag("rows", s.returned)
		s.span.Finish()
	})
	return err
}

// Execute runs stmt to completion and returns every row.
func (e *Executor) Execute(ctx context.Context, stmt *plan.PlannedStmt, sess *session.Session, params querytree.ParamList) (*sqltypes.Result, error) {
	scan, err := e.Open(ctx, stmt, sess, params)
	if err != nil {
		return nil, err
	}
	defer scan.Close()

	result := &sqltypes.Result{Fields: scan.Fields()}
	for {
		row, err := scan.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, row)
	}
	return result, nil
}
