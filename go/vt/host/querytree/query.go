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

// Package querytree is the host's analyzed representation of a statement:
// the parsed syntax tree plus its resolved range table. It also provides the
// host utilities the planning bridge relies on, the deparser and variable
// extraction.
package querytree

import (
	"slices"

	"vitess.io/vitess/go/sqltypes"
	querypb "vitess.io/vitess/go/vt/proto/query"
	"vitess.io/vitess/go/vt/sqlparser"

	"github.com/vtbridge/vtbridge/go/vt/host/catalog"
)

// CommandType is the kind of statement a query tree represents.
type CommandType int

const (
	CmdUnknown CommandType = iota
	CmdSelect
	CmdInsert
	CmdUpdate
	CmdDelete
	CmdUtility
)

func (c CommandType) String() string {
	switch c {
	case CmdSelect:
		return "SELECT"
	case CmdInsert:
		return "INSERT"
	case CmdUpdate:
		return "UPDATE"
	case CmdDelete:
		return "DELETE"
	case CmdUtility:
		return "UTILITY"
	default:
		return "UNKNOWN"
	}
}

// RTEKind is the kind of a range table entry.
type RTEKind int

const (
	RTERelation RTEKind = iota
	RTESubquery
	RTECTE
)

func (k RTEKind) String() string {
	switch k {
	case RTERelation:
		return "relation"
	case RTESubquery:
		return "subquery"
	case RTECTE:
		return "cte"
	default:
		return "unknown"
	}
}

// RangeTblEntry is one FROM-clause item. Entries appear in the pre-order
// walk order of their table expressions in the statement, nested
// subqueries included.
type RangeTblEntry struct {
	Kind   RTEKind
	Schema string
	Name   string
	Alias  string
	Table  *catalog.Table
}

// RefName returns the name the entry is referenced by in the statement.
func (rte *RangeTblEntry) RefName() string {
	if rte.Alias != "" {
		return rte.Alias
	}
	return rte.Name
}

// Param is one bound parameter value supplied for execution.
type Param struct {
	Type  querypb.Type
	Value sqltypes.Value
}

// ParamList is the ordered list of bound parameters. Parameter i binds the
// i-th distinct placeholder of the statement.
type ParamList []Param

// Query is an analyzed statement.
type Query struct {
	CommandType     CommandType
	QueryID         uint64
	Statement       sqlparser.Statement
	RangeTable      []*RangeTblEntry
	ParamNames      []string
	HasReturning    bool
	HasModifyingCTE bool
	CanSetTag       bool
	UtilityStmt     sqlparser.Statement
	StmtLocation    int
	StmtLen         int
}

// Copy returns a deep copy of the query. Catalog tables are shared since
// they are read-only.
func (q *Query) Copy() *Query {
	cp := *q
	if q.Statement != nil {
		cp.Statement = sqlparser.CloneStatement(q.Statement)
	}
	if q.UtilityStmt != nil {
		cp.UtilityStmt = sqlparser.CloneStatement(q.UtilityStmt)
	}
	cp.RangeTable = make([]*RangeTblEntry, len(q.RangeTable))
	for i, rte := range q.RangeTable {
		e := *rte
		cp.RangeTable[i] = &e
	}
	cp.ParamNames = slices.Clone(q.ParamNames)
	return &cp
}

// Relations returns the range table entries that are base relations.
func (q *Query) Relations() []*RangeTblEntry {
	var out []*RangeTblEntry
	for _, rte := range q.RangeTable {
		if rte.Kind == RTERelation {
			out = append(out, rte)
		}
	}
	return out
}

// leftmostSelect returns the first SELECT of a statement, descending into
// the left side of set operations.
func leftmostSelect(stmt sqlparser.SQLNode) *sqlparser.Select {
	for {
		switch node := stmt.(type) {
		case *sqlparser.Select:
			return node
		case *sqlparser.Union:
			stmt = node.Left
		default:
			return nil
		}
	}
}

// TargetList returns the output expressions of the query, or nil when the
// statement has none.
func (q *Query) TargetList() sqlparser.SQLNode {
	if sel := leftmostSelect(q.Statement); sel != nil {
		return sel.SelectExprs
	}
	return nil
}

// JoinQuals returns the qualifying predicates of the query's join tree: the
// WHERE clause followed by every JOIN ... ON condition of the top-level
// FROM clause. Derived tables are not entered.
func (q *Query) JoinQuals() []sqlparser.Expr {
	sel := leftmostSelect(q.Statement)
	if sel == nil {
		return nil
	}
	var quals []sqlparser.Expr
	if sel.Where != nil && sel.Where.Expr != nil {
		quals = append(quals, sel.Where.Expr)
	}
	for _, from := range sel.From {
		quals = appendJoinQuals(quals, from)
	}
	return quals
}

// appendJoinQuals appends the ON conditions of expr left to right: the
// conditions of both join inputs come before the join's own condition.
func appendJoinQuals(quals []sqlparser.Expr, expr sqlparser.TableExpr) []sqlparser.Expr {
	switch expr := expr.(type) {
	case *sqlparser.JoinTableExpr:
		quals = appendJoinQuals(quals, expr.LeftExpr)
		quals = appendJoinQuals(quals, expr.RightExpr)
		if expr.Condition != nil && expr.Condition.On != nil {
			quals = append(quals, expr.Condition.On)
		}
	case *sqlparser.ParenTableExpr:
		for _, inner := range expr.Exprs {
			quals = appendJoinQuals(quals, inner)
		}
	}
	return quals
}
