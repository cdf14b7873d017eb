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

// Package adapter opens alternate engine sessions scoped to the relations of
// a query and prepares materialized query text on them.
package adapter

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"vitess.io/vitess/go/vt/vterrors"

	"github.com/vtbridge/vtbridge/go/vt/altengine"
	"github.com/vtbridge/vtbridge/go/vt/bridge/typemap"
	"github.com/vtbridge/vtbridge/go/vt/host/querytree"
	"github.com/vtbridge/vtbridge/go/vt/log"
)

// PlannerInfo is the planning state handed to the alternate engine when a
// session is opened. The alternate engine plans the whole statement, so
// every list the host planner would populate stays empty.
type PlannerInfo struct {
	Parse       *querytree.Query
	BoundParams querytree.ParamList

	Subplans        []any
	Subroots        []any
	FinalRangeTable []*querytree.RangeTblEntry
	FinalRowMarks   []any
	ResultRelations []int
	RelationIDs     []uint32
	ParamExecTypes  []any
}

// PlanQuery returns the planner state for q with params bound.
func PlanQuery(q *querytree.Query, params querytree.ParamList) *PlannerInfo {
	return &PlannerInfo{Parse: q, BoundParams: params}
}

// Scope builds the engine session scope: the distinct base relations of
// rangeTable, the columns of vars that resolve to one of them and the bound
// parameters converted to engine types.
func Scope(rangeTable []*querytree.RangeTblEntry, info *PlannerInfo, vars []*querytree.Var) altengine.Scope {
	var scope altengine.Scope

	seenTables := make(map[altengine.TableRef]bool)
	for _, rte := range rangeTable {
		if rte.Kind != querytree.RTERelation {
			continue
		}
		ref := altengine.TableRef{Schema: rte.Schema, Name: rte.Name}
		if !seenTables[ref] {
			seenTables[ref] = true
			scope.Tables = append(scope.Tables, ref)
		}
	}

	if info != nil && info.Parse != nil {
		seenColumns := make(map[altengine.ColumnRef]bool)
		for _, v := range vars {
			rte, idx, ok := info.Parse.ResolveVar(v)
			if !ok {
				continue
			}
			ref := altengine.ColumnRef{Schema: rte.Schema, Table: rte.Name, Name: rte.Table.Columns[idx].Name}
			if !seenColumns[ref] {
				seenColumns[ref] = true
				scope.Columns = append(scope.Columns, ref)
			}
		}
	}

	if info != nil {
		for i, p := range info.BoundParams {
			name := fmt.Sprintf("v%d", i+1)
			if info.Parse != nil && i < len(info.Parse.ParamNames) {
				name = info.Parse.ParamNames[i]
			}
			scope.Params = append(scope.Params, altengine.Param{
				Name:  name,
				Type:  typemap.ToEngineType(p.Type),
				Value: p.Value,
			})
		}
	}
	return scope
}

// Prepare opens a new engine session scoped to the relations of rangeTable
// and prepares text on it. Prepare failures are carried by the returned
// statement; the error return is only used when no session could be opened.
// The caller owns the session and must close it.
func Prepare(ctx context.Context, engine altengine.Engine, rangeTable []*querytree.RangeTblEntry, info *PlannerInfo, vars []*querytree.Var, text string) (*altengine.PreparedStatement, altengine.Session, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "bridge.Prepare")
	defer span.Finish()
	ext.DBStatement.Set(span, text)

	log.DebugS("preparing query on alternate engine", "query", text)

	sess, err := engine.Connect(ctx, Scope(rangeTable, info, vars))
	if err != nil {
		ext.Error.Set(span, true)
		return nil, nil, vterrors.Wrapf(err, "cannot open alternate engine session")
	}
	span.SetTag("session", sess.ID())

	stmt := sess.Prepare(ctx, text)
	if stmt.HasError() {
		ext.Error.Set(span, true)
		span.LogKV("event", "prepare failed", "message", stmt.Error())
	}
	return stmt, sess, nil
}
