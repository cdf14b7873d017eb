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

// Package plan holds the planner output for a bridged statement: a single
// substitute scan node whose rows are produced by the alternate engine,
// wrapped in a planned statement the host executor accepts.
package plan

import (
	"fmt"
	"strings"

	"vitess.io/vitess/go/mysql/collations"
	querypb "vitess.io/vitess/go/vt/proto/query"

	"github.com/vtbridge/vtbridge/go/vt/host/querytree"
)

// IndexVar is the VarNo of a Var that references a column of the node's
// own result row instead of a range table entry.
const IndexVar = -1

// Var is a column reference in an output schema.
type Var struct {
	VarNo     int
	AttNo     int // 1-based
	Type      querypb.Type
	Typmod    int32
	Collation collations.ID
}

// TargetEntry is one column of a node's output schema.
type TargetEntry struct {
	Expr    *Var
	ResNo   int // 1-based
	Name    string
	ResJunk bool
}

// SubstituteScan is a leaf plan node whose rows come from the alternate
// engine. Query is the host's original query tree; the executor derives the
// engine query text from it again at execution time.
type SubstituteScan struct {
	TargetList []*TargetEntry
	Query      *querytree.Query
}

// Fields returns the output schema as result set fields, in column order.
func (s *SubstituteScan) Fields() []*querypb.Field {
	fields := make([]*querypb.Field, 0, len(s.TargetList))
	for _, te := range s.TargetList {
		if te.ResJunk {
			continue
		}
		fields = append(fields, &querypb.Field{
			Name:    te.Name,
			Type:    te.Expr.Type,
			Charset: uint32(te.Expr.Collation),
		})
	}
	return fields
}

// Types returns the host type of every output column in order.
func (s *SubstituteScan) Types() []querypb.Type {
	types := make([]querypb.Type, len(s.TargetList))
	for i, te := range s.TargetList {
		types[i] = te.Expr.Type
	}
	return types
}

func (s *SubstituteScan) description() Description {
	var columns []string
	for _, te := range s.TargetList {
		columns = append(columns, fmt.Sprintf("%s:%s", te.Name, strings.ToLower(te.Expr.Type.String())))
	}
	other := map[string]any{"Columns": columns}
	if s.Query != nil {
		other["QueryID"] = s.Query.QueryID
		var tables []string
		for _, rte := range s.Query.Relations() {
			tables = append(tables, rte.Schema+"."+rte.Name)
		}
		if len(tables) > 0 {
			other["TablesUsed"] = tables
		}
	}
	return Description{OperatorType: "SubstituteScan", Variant: "AlternateEngine", Other: other, Inputs: []Description{}}
}
