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

package planner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"vitess.io/vitess/go/mysql/collations"
	"vitess.io/vitess/go/sqltypes"
	"vitess.io/vitess/go/vt/sqlparser"

	"github.com/vtbridge/vtbridge/go/vt/altengine"
	"github.com/vtbridge/vtbridge/go/vt/altengine/fakeengine"
	"github.com/vtbridge/vtbridge/go/vt/bridge/config"
	"github.com/vtbridge/vtbridge/go/vt/bridge/plan"
	"github.com/vtbridge/vtbridge/go/vt/host/catalog"
	"github.com/vtbridge/vtbridge/go/vt/host/querytree"
	"github.com/vtbridge/vtbridge/go/vt/host/session"
	"github.com/vtbridge/vtbridge/go/vt/log"
)

const testDDL = `
create table t (a int, b text);
create table sales.orders (id bigint, amount decimal(10,2));
`

var abColumns = []altengine.Column{
	{Name: "a", Type: altengine.NewType(altengine.Integer)},
	{Name: "b", Type: altengine.NewType(altengine.Varchar)},
}

type testEnv struct {
	cat     *catalog.Catalog
	sess    *session.Session
	cfg     *config.Config
	engine  *fakeengine.Engine
	metrics *Metrics
	planner *Planner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cat := catalog.New()
	require.NoError(t, cat.LoadDDL(sqlparser.NewTestParser(), testDDL, catalog.DefaultSchema))
	e := &testEnv{
		cat:     cat,
		sess:    session.New("main", "sales"),
		cfg:     config.New(),
		engine:  fakeengine.New(),
		metrics: NewMetrics(prometheus.NewRegistry()),
	}
	e.planner = &Planner{Catalog: cat, Engine: e.engine, Config: e.cfg, Metrics: e.metrics}
	return e
}

func (e *testEnv) parse(t *testing.T, sql string) *querytree.Query {
	t.Helper()
	q, err := querytree.Parse(sqlparser.NewTestParser(), sql, e.cat, e.sess)
	require.NoError(t, err)
	return q
}

func (e *testEnv) attempts(outcome string) float64 {
	return testutil.ToFloat64(e.metrics.attempts.WithLabelValues(outcome))
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	restore := log.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(restore)
	return &buf
}

func TestPlanSelect(t *testing.T) {
	e := newTestEnv(t)
	e.engine.AddQuery("select a, b from main.t", &fakeengine.Result{Columns: abColumns})
	q := e.parse(t, "SELECT a, b FROM t")

	stmt, err := e.planner.Plan(context.Background(), q, e.sess, 0, nil)
	require.NoError(t, err)
	require.NotNil(t, stmt)

	assert.Equal(t, querytree.CmdSelect, stmt.CommandType)
	assert.Equal(t, q.QueryID, stmt.QueryID)
	assert.True(t, stmt.CanSetTag)
	assert.False(t, stmt.HasReturning)
	assert.False(t, stmt.HasModifyingCTE)
	assert.Nil(t, stmt.RangeTable)
	assert.Nil(t, stmt.Subplans)
	assert.Nil(t, stmt.RowMarks)
	assert.Nil(t, stmt.ResultRelations)
	assert.Nil(t, stmt.RelationIDs)
	assert.Equal(t, len("SELECT a, b FROM t"), stmt.StmtLen)

	scan := stmt.PlanTree
	require.NotNil(t, scan)
	assert.Same(t, q, scan.Query)
	assert.Equal(t, []*plan.TargetEntry{
		{Expr: &plan.Var{VarNo: plan.IndexVar, AttNo: 1, Type: sqltypes.Int32, Typmod: -1, Collation: collations.CollationBinaryID}, ResNo: 1, Name: "a"},
		{Expr: &plan.Var{VarNo: plan.IndexVar, AttNo: 2, Type: sqltypes.VarChar, Typmod: -1, Collation: collations.CollationUtf8mb4ID}, ResNo: 2, Name: "b"},
	}, scan.TargetList)

	assert.Equal(t, 0, e.engine.OpenSessions())
	sessions := e.engine.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, []altengine.TableRef{{Schema: "main", Name: "t"}}, sessions[0].Scope().Tables)
	assert.EqualValues(t, 1, e.attempts(OutcomeBridged))
}

func TestPlanPrepareError(t *testing.T) {
	e := newTestEnv(t)
	e.engine.AddQuery("select a, b from main.t", &fakeengine.Result{PrepareErr: errors.New("Parser Error: syntax error at or near \"b\"")})
	q := e.parse(t, "select a, b from t")
	before := q.Copy()
	logs := captureLogs(t)

	stmt, err := e.planner.Plan(context.Background(), q, e.sess, 0, nil)
	require.NoError(t, err)
	assert.Nil(t, stmt)

	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "syntax error at or near")
	assert.Equal(t, before, q)
	assert.Equal(t, 0, e.engine.OpenSessions())
	assert.EqualValues(t, 1, e.attempts(OutcomePrepareError))
}

func TestPlanExplain(t *testing.T) {
	e := newTestEnv(t)
	explainColumns := []altengine.Column{
		{Name: "explain_key", Type: altengine.NewType(altengine.Varchar)},
		{Name: "explain_value", Type: altengine.NewType(altengine.Varchar)},
	}
	e.engine.AddQuery("EXPLAIN select a from main.t", &fakeengine.Result{Columns: explainColumns})
	e.engine.AddQuery("EXPLAIN ANALYZE select a from main.t", &fakeengine.Result{Columns: explainColumns})
	q := e.parse(t, "explain select a from t")

	prepared := func() string {
		sessions := e.engine.Sessions()
		return sessions[len(sessions)-1].Prepared()[0]
	}

	stmt, err := e.planner.Plan(context.Background(), q, e.sess, 0, nil)
	require.NoError(t, err)
	require.NotNil(t, stmt)
	assert.Equal(t, "EXPLAIN select a from main.t", prepared())

	e.cfg.SetExplainAnalyze(true)
	stmt, err = e.planner.Plan(context.Background(), q, e.sess, 0, nil)
	require.NoError(t, err)
	require.NotNil(t, stmt)
	assert.Equal(t, "EXPLAIN ANALYZE select a from main.t", prepared())
	assert.Equal(t, []string{"explain_key", "explain_value"}, []string{stmt.PlanTree.TargetList[0].Name, stmt.PlanTree.TargetList[1].Name})

	e.cfg.SetExplainAnalyze(false)
	_, err = e.planner.Plan(context.Background(), q, e.sess, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "EXPLAIN select a from main.t", prepared())
}

func TestPlanRestoresSearchPath(t *testing.T) {
	e := newTestEnv(t)
	e.engine.AddQuery("select a from main.t", &fakeengine.Result{Columns: abColumns[:1]})

	q := e.parse(t, "select a from t")
	level := e.sess.NestLevel()
	_, err := e.planner.Plan(context.Background(), q, e.sess, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "sales"}, e.sess.SearchPath())
	assert.Equal(t, level, e.sess.NestLevel())

	q.RangeTable[0].Table = &catalog.Table{ID: 1, Schema: "main", Name: "t"}
	stmt, err := e.planner.Plan(context.Background(), q, e.sess, 0, nil)
	require.ErrorContains(t, err, "no longer exists")
	assert.Nil(t, stmt)
	assert.Equal(t, []string{"main", "sales"}, e.sess.SearchPath())
	assert.Equal(t, level, e.sess.NestLevel())
	assert.EqualValues(t, 1, e.attempts(OutcomeDeparseError))
}

func TestPlanTypeFailures(t *testing.T) {
	testcases := []struct {
		name    string
		columns []altengine.Column
		setup   func(cat *catalog.Catalog)
		outcome string
		logged  string
	}{
		{
			name: "no host type",
			columns: []altengine.Column{
				{Name: "a", Type: altengine.NewType(altengine.Integer)},
				{Name: "d", Type: altengine.NewType(altengine.Interval)},
			},
			outcome: OutcomeTypeError,
			logged:  "type=INTERVAL",
		},
		{
			name:    "no declared type",
			columns: []altengine.Column{{Name: "a", Type: altengine.ParseTypeName("")}},
			outcome: OutcomeTypeError,
			logged:  "type=INVALID",
		},
		{
			name:    "type missing from catalog",
			columns: abColumns,
			setup: func(cat *catalog.Catalog) {
				cat.RemoveType(sqltypes.VarChar)
			},
			outcome: OutcomeCatalogMissing,
			logged:  "type=VARCHAR",
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEnv(t)
			if tc.setup != nil {
				tc.setup(e.cat)
			}
			e.engine.AddQuery("select a, b from main.t", &fakeengine.Result{Columns: tc.columns})
			logs := captureLogs(t)

			stmt, err := e.planner.Plan(context.Background(), e.parse(t, "select a, b from t"), e.sess, 0, nil)
			require.NoError(t, err)
			assert.Nil(t, stmt)
			assert.Contains(t, logs.String(), tc.logged)
			assert.EqualValues(t, 1, e.attempts(tc.outcome))
		})
	}
}

func TestSynthesize(t *testing.T) {
	e := newTestEnv(t)
	q := e.parse(t, "select a, b from t")
	lifetime := &altengine.Lifetime{}

	scan := Synthesize(altengine.NewPreparedStatement(lifetime, "select a, b from main.t", abColumns, nil), q, e.cat)
	require.NotNil(t, scan)
	require.Len(t, scan.TargetList, 2)
	for i, te := range scan.TargetList {
		assert.Equal(t, abColumns[i].Name, te.Name)
		assert.Equal(t, i+1, te.ResNo)
		assert.Equal(t, i+1, te.Expr.AttNo)
		assert.Equal(t, plan.IndexVar, te.Expr.VarNo)
	}

	assert.Nil(t, Synthesize(altengine.NewFailedPreparedStatement(lifetime, "x", errors.New("bad")), q, e.cat))

	lifetime.End()
	assert.Nil(t, Synthesize(altengine.NewPreparedStatement(lifetime, "select a, b from main.t", abColumns, nil), q, e.cat))
}

func TestPlanFallbacks(t *testing.T) {
	e := newTestEnv(t)
	e.engine.AddQuery("select a from main.t", &fakeengine.Result{Columns: abColumns[:1]})

	stmt, err := e.planner.Plan(context.Background(), e.parse(t, "update t set a = 1"), e.sess, 0, nil)
	require.NoError(t, err)
	assert.Nil(t, stmt)
	assert.EqualValues(t, 1, e.attempts(OutcomeUnsupported))

	stmt, err = e.planner.Plan(context.Background(), e.parse(t, "select a from t"), e.sess, plan.CursorOptScroll, nil)
	require.NoError(t, err)
	assert.Nil(t, stmt)
	assert.EqualValues(t, 1, e.attempts(OutcomeScrollCursor))
	assert.Empty(t, e.engine.Sessions())

	e.engine.SetConnectError(errors.New("connection refused"))
	stmt, err = e.planner.Plan(context.Background(), e.parse(t, "select a from t"), e.sess, 0, nil)
	require.NoError(t, err)
	assert.Nil(t, stmt)
	assert.EqualValues(t, 1, e.attempts(OutcomeConnectError))
}

func TestPlanCursorOptionsAndParams(t *testing.T) {
	e := newTestEnv(t)
	e.engine.AddQuery("select a from main.t where a = :v", &fakeengine.Result{Columns: abColumns[:1]})
	q := e.parse(t, "select a from t where a = :v")

	stmt, err := e.planner.Plan(context.Background(), q, e.sess, plan.CursorOptParallelOK|plan.CursorOptFastPlan, querytree.ParamList{
		{Type: sqltypes.Int64, Value: sqltypes.NewInt64(3)},
	})
	require.NoError(t, err)
	require.NotNil(t, stmt)
	assert.Equal(t, plan.CursorOptParallelOK|plan.CursorOptFastPlan, stmt.CursorOptions)

	params := e.engine.Sessions()[0].Scope().Params
	require.Len(t, params, 1)
	assert.Equal(t, "v", params[0].Name)
	assert.Equal(t, altengine.NewType(altengine.BigInt), params[0].Type)
}

func TestPlanConcurrent(t *testing.T) {
	e := newTestEnv(t)
	const n = 16
	for i := range n {
		e.engine.AddQuery(fmt.Sprintf("select a, b from main.t where a = %d", i), &fakeengine.Result{Columns: abColumns})
	}

	var mu sync.Mutex
	results := make(map[int]*plan.PlannedStmt)
	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			sess := session.New("main")
			q, err := querytree.Parse(sqlparser.NewTestParser(), fmt.Sprintf("select a, b from t where a = %d", i), e.cat, sess)
			if err != nil {
				return err
			}
			stmt, err := e.planner.Plan(context.Background(), q, sess, 0, nil)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			results[i] = stmt
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Len(t, results, n)
	for i, stmt := range results {
		require.NotNil(t, stmt, "query %d", i)
		assert.Len(t, stmt.PlanTree.TargetList, 2)
	}
	ids := make(map[string]bool)
	for _, s := range e.engine.Sessions() {
		ids[s.ID()] = true
		assert.Len(t, s.Prepared(), 1)
	}
	assert.Len(t, ids, n)
	assert.Equal(t, 0, e.engine.OpenSessions())
	assert.EqualValues(t, n, e.attempts(OutcomeBridged))
}

func TestPlanTracing(t *testing.T) {
	tracer := mocktracer.New()
	prev := opentracing.GlobalTracer()
	opentracing.SetGlobalTracer(tracer)
	defer opentracing.SetGlobalTracer(prev)

	e := newTestEnv(t)
	e.engine.AddQuery("select a, b from main.t", &fakeengine.Result{Columns: abColumns})
	_, err := e.planner.Plan(context.Background(), e.parse(t, "select a, b from t"), e.sess, 0, nil)
	require.NoError(t, err)

	var names []string
	var root *mocktracer.MockSpan
	for _, span := range tracer.FinishedSpans() {
		names = append(names, span.OperationName)
		if span.OperationName == "bridge.Plan" {
			root = span
		}
	}
	assert.ElementsMatch(t, []string{"bridge.Plan", "bridge.Materialize", "bridge.Prepare", "bridge.Synthesize"}, names)
	require.NotNil(t, root)
	assert.Equal(t, OutcomeBridged, root.Tag("outcome"))
}

func TestNewUsesDefaultMetrics(t *testing.T) {
	p := New(catalog.New(), fakeengine.New(), nil)
	assert.Same(t, InitializeMetrics(), p.Metrics)
	assert.Same(t, p.metrics(), (&Planner{}).metrics())
}
