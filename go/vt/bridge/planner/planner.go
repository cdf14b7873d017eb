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

// Package planner is the entry point of the planning bridge. It offers a
// statement to the alternate engine and, when the engine can prepare it and
// every result type maps to a host type, returns a planned statement whose
// only node is a substitute scan. Otherwise it reports that the host should
// plan the statement natively.
package planner

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"github.com/vtbridge/vtbridge/go/vt/altengine"
	"github.com/vtbridge/vtbridge/go/vt/bridge/adapter"
	"github.com/vtbridge/vtbridge/go/vt/bridge/config"
	"github.com/vtbridge/vtbridge/go/vt/bridge/materializer"
	"github.com/vtbridge/vtbridge/go/vt/bridge/plan"
	"github.com/vtbridge/vtbridge/go/vt/host/catalog"
	"github.com/vtbridge/vtbridge/go/vt/host/querytree"
	"github.com/vtbridge/vtbridge/go/vt/host/session"
	"github.com/vtbridge/vtbridge/go/vt/log"
)

// Planner plans statements against an alternate engine. A Planner holds no
// per-statement state and may be used concurrently as long as each call
// gets its own host session.
type Planner struct {
	Catalog *catalog.Catalog
	Engine  altengine.Engine
	// Config is read at materialization time. nil means config.Default.
	Config  *config.Config
	Metrics *Metrics
}

// New returns a planner recording into the default metrics.
func New(cat *catalog.Catalog, engine altengine.Engine, cfg *config.Config) *Planner {
	return &Planner{Catalog: cat, Engine: engine, Config: cfg, Metrics: InitializeMetrics()}
}

func (p *Planner) metrics() *Metrics {
	if p.Metrics == nil {
		return InitializeMetrics()
	}
	return p.Metrics
}

func (p *Planner) materializerContext(sess *session.Session) materializer.Context {
	return materializer.Context{Session: sess, Catalog: p.Catalog, Config: p.Config}
}

// Plan offers q to the alternate engine. A nil statement with a nil error
// means the statement cannot be bridged and must be planned natively; the
// reason has been logged. An error is returned only when q cannot be
// deparsed. q is never modified.
func (p *Planner) Plan(ctx context.Context, q *querytree.Query, sess *session.Session, cursorOptions plan.CursorOptions, params querytree.ParamList) (*plan.PlannedStmt, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "bridge.Plan")
	defer span.Finish()
	span.SetTag("query_id", q.QueryID)

	start := time.Now()
	m := p.metrics()
	defer func() {
		m.duration.Observe(time.Since(start).Seconds())
	}()

	outcome := OutcomeBridged
	defer func() {
		m.record(outcome)
		span.SetTag("outcome", outcome)
	}()

	if q.CommandType != querytree.CmdSelect {
		log.DebugS("statement is not bridged", "command", q.CommandType.String())
		outcome = OutcomeUnsupported
		return nil, nil
	}
	if cursorOptions&plan.CursorOptScroll != 0 {
		log.DebugS("scrollable cursors are not bridged", "query_id", q.QueryID)
		outcome = OutcomeScrollCursor
		return nil, nil
	}

	mat, err := materializer.Materialize(ctx, q, p.materializerContext(sess))
	if err != nil {
		ext.Error.Set(span, true)
		outcome = OutcomeDeparseError
		return nil, err
	}

	stmt, engineSession, err := adapter.Prepare(ctx, p.Engine, mat.RangeTable, adapter.PlanQuery(mat.Query, params), mat.Vars, mat.Text)
	if err != nil {
		log.WarnS("cannot connect to alternate engine", "error", err.Error(), "query", statementText(q))
		outcome = OutcomeConnectError
		return nil, nil
	}
	defer engineSession.Close()

	synthSpan, _ := opentracing.StartSpanFromContext(ctx, "bridge.Synthesize")
	scan, outcome := synthesize(stmt, q, p.Catalog)
	synthSpan.Finish()
	if scan == nil {
		return nil, nil
	}

	return &plan.PlannedStmt{
		CommandType:     q.CommandType,
		QueryID:         q.QueryID,
		HasReturning:    q.HasReturning,
		HasModifyingCTE: q.HasModifyingCTE,
		CanSetTag:       q.CanSetTag,
		CursorOptions:   cursorOptions,
		PlanTree:        scan,
		UtilityStmt:     q.UtilityStmt,
		StmtLocation:    q.StmtLocation,
		StmtLen:         q.StmtLen,
	}, nil
}
