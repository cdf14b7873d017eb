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

// Package materializer turns an analyzed host query tree into query text
// the alternate engine can prepare: fully schema-qualified, optionally
// wrapped in EXPLAIN, together with the relations and column references the
// engine session must be scoped to.
package materializer

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"vitess.io/vitess/go/vt/vterrors"

	"github.com/vtbridge/vtbridge/go/vt/bridge/config"
	"github.com/vtbridge/vtbridge/go/vt/host/catalog"
	"github.com/vtbridge/vtbridge/go/vt/host/querytree"
	"github.com/vtbridge/vtbridge/go/vt/host/session"
)

const (
	explainPrefix        = "EXPLAIN "
	explainAnalyzePrefix = "EXPLAIN ANALYZE "
)

// VarFlags is how variables are extracted from the target list and join
// quals: the columns inside aggregates and window functions are collected,
// placeholders are skipped.
const VarFlags = querytree.PVCRecurseAggregates | querytree.PVCRecurseWindowFuncs | querytree.PVCRecursePlaceholders

// Context is the host state a materialization reads.
type Context struct {
	Session *session.Session
	Catalog *catalog.Catalog
	// Config supplies the explain-analyze toggle. nil means config.Default.
	Config *config.Config
}

func (c Context) explainAnalyze() bool {
	if c.Config == nil {
		return config.Default.ExplainAnalyze()
	}
	return c.Config.ExplainAnalyze()
}

// Materialized is the output of Materialize.
type Materialized struct {
	// Text is the query text to prepare on the alternate engine.
	Text string
	// Query is the copy of the source tree the text was derived from.
	Query *querytree.Query
	// RangeTable is the range table of the copied tree.
	RangeTable []*querytree.RangeTblEntry
	// Vars are the column references of the target list followed by those
	// of the join quals.
	Vars []*querytree.Var
	// Explain is set when Text is wrapped in an EXPLAIN prefix.
	Explain bool
}

// Materialize deparses a copy of q with an empty search path, so every
// relation is written schema qualified. The session's search path is
// restored before Materialize returns, whether it fails or not. q is not
// modified.
func Materialize(ctx context.Context, q *querytree.Query, mctx Context) (*Materialized, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "bridge.Materialize")
	defer span.Finish()

	cp := q.Copy()
	text, err := deparseUnqualifiedScope(cp, mctx)
	if err != nil {
		ext.Error.Set(span, true)
		return nil, vterrors.Wrapf(err, "cannot deparse query %d", q.QueryID)
	}

	m := &Materialized{Query: cp, RangeTable: cp.RangeTable}
	if mctx.Session.CommandTag() == session.TagExplain {
		m.Explain = true
		if mctx.explainAnalyze() {
			text = explainAnalyzePrefix + text
		} else {
			text = explainPrefix + text
		}
	}
	m.Text = text

	targetVars, err := querytree.PullVarClause(cp.TargetList(), VarFlags)
	if err != nil {
		return nil, err
	}
	m.Vars = append(m.Vars, targetVars...)
	for _, qual := range cp.JoinQuals() {
		qualVars, err := querytree.PullVarClause(qual, VarFlags)
		if err != nil {
			return nil, err
		}
		m.Vars = append(m.Vars, qualVars...)
	}
	ext.DBStatement.Set(span, m.Text)
	return m, nil
}

func deparseUnqualifiedScope(q *querytree.Query, mctx Context) (string, error) {
	restore := mctx.Session.OverrideSearchPath(nil)
	defer restore()
	return querytree.Deparse(q, mctx.Catalog, mctx.Session)
}
