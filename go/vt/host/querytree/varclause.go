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

package querytree

import (
	"strings"

	vtrpcpb "vitess.io/vitess/go/vt/proto/vtrpc"
	"vitess.io/vitess/go/vt/sqlparser"
	"vitess.io/vitess/go/vt/vterrors"
)

// PVCFlags control how PullVarClause treats aggregates, window functions
// and placeholders. For each of them exactly one of Include or Recurse may
// be set; with neither the construct is an error.
type PVCFlags uint8

const (
	// PVCIncludeAggregates returns aggregate calls instead of their arguments.
	PVCIncludeAggregates PVCFlags = 1 << iota
	// PVCRecurseAggregates returns the columns used inside aggregate calls.
	PVCRecurseAggregates
	// PVCIncludeWindowFuncs returns window function calls.
	PVCIncludeWindowFuncs
	// PVCRecurseWindowFuncs returns the columns used inside window functions.
	PVCRecurseWindowFuncs
	// PVCIncludePlaceholders returns parameter placeholders.
	PVCIncludePlaceholders
	// PVCRecursePlaceholders skips over parameter placeholders.
	PVCRecursePlaceholders
)

// VarKind tells what a Var refers to.
type VarKind int

const (
	VarColumn VarKind = iota
	VarAggregate
	VarWindowFunc
	VarPlaceholder
)

// Var is a reference found by PullVarClause. Column references carry the
// column name and the qualifier they were written with.
type Var struct {
	Kind      VarKind
	Schema    string
	Qualifier string
	Name      string
	Expr      sqlparser.Expr
}

// String returns the reference as written.
func (v *Var) String() string {
	if v.Kind != VarColumn {
		return sqlparser.String(v.Expr)
	}
	switch {
	case v.Schema != "":
		return v.Schema + "." + v.Qualifier + "." + v.Name
	case v.Qualifier != "":
		return v.Qualifier + "." + v.Name
	default:
		return v.Name
	}
}

// PullVarClause returns the column references of node in walk order,
// treating aggregates, window functions and placeholders according to
// flags. Subqueries are not entered: their columns belong to another query
// level.
func PullVarClause(node sqlparser.SQLNode, flags PVCFlags) ([]*Var, error) {
	if node == nil {
		return nil, nil
	}
	var vars []*Var
	err := sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		switch node := node.(type) {
		case *sqlparser.Subquery:
			return false, nil
		case *sqlparser.ColName:
			vars = append(vars, &Var{
				Kind:      VarColumn,
				Schema:    node.Qualifier.Qualifier.String(),
				Qualifier: node.Qualifier.Name.String(),
				Name:      node.Name.String(),
				Expr:      node,
			})
			return false, nil
		case *sqlparser.Argument:
			switch {
			case flags&PVCIncludePlaceholders != 0:
				vars = append(vars, &Var{Kind: VarPlaceholder, Name: node.Name, Expr: node})
				return false, nil
			case flags&PVCRecursePlaceholders != 0:
				return false, nil
			}
			return false, vterrors.Errorf(vtrpcpb.Code_INTERNAL, "placeholder :%s found where not expected", node.Name)
		case sqlparser.Expr:
			if isWindowFunc(node) {
				switch {
				case flags&PVCIncludeWindowFuncs != 0:
					vars = append(vars, &Var{Kind: VarWindowFunc, Expr: node})
					return false, nil
				case flags&PVCRecurseWindowFuncs != 0:
					return true, nil
				}
				return false, vterrors.Errorf(vtrpcpb.Code_INTERNAL, "window function %s found where not expected", sqlparser.String(node))
			}
			if _, ok := node.(sqlparser.AggrFunc); ok {
				switch {
				case flags&PVCIncludeAggregates != 0:
					vars = append(vars, &Var{Kind: VarAggregate, Expr: node})
					return false, nil
				case flags&PVCRecurseAggregates != 0:
					return true, nil
				}
				return false, vterrors.Errorf(vtrpcpb.Code_INTERNAL, "aggregate function %s found where not expected", sqlparser.String(node))
			}
		}
		return true, nil
	}, node)
	if err != nil {
		return nil, err
	}
	return vars, nil
}

// isWindowFunc reports whether expr carries an OVER clause as a direct child.
func isWindowFunc(expr sqlparser.Expr) bool {
	found := false
	first := true
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		if first {
			first = false
			return true, nil
		}
		if over, ok := node.(*sqlparser.OverClause); ok && over != nil {
			found = true
		}
		return false, nil
	}, expr)
	return found
}

// ResolveVar finds the range table entry a column reference belongs to and
// the column's ordinal in it. Qualified references match an entry by alias,
// or by table name when the entry has no alias. Unqualified references must
// match exactly one relation that has the column. ok is false when the
// reference cannot be tied to a base relation.
func (q *Query) ResolveVar(v *Var) (rte *RangeTblEntry, column int, ok bool) {
	if v.Kind != VarColumn {
		return nil, -1, false
	}
	var match *RangeTblEntry
	matches := 0
	for _, candidate := range q.RangeTable {
		if v.Qualifier != "" {
			if !strings.EqualFold(candidate.RefName(), v.Qualifier) {
				continue
			}
			if v.Schema != "" && !strings.EqualFold(candidate.Schema, v.Schema) {
				continue
			}
		}
		if candidate.Kind != RTERelation || candidate.Table == nil {
			if v.Qualifier != "" {
				// the qualifier names a derived table or a CTE
				return nil, -1, false
			}
			continue
		}
		if _, found := candidate.Table.FindColumn(v.Name); found {
			match = candidate
			matches++
		}
	}
	if matches != 1 {
		return nil, -1, false
	}
	idx, _ := match.Table.FindColumn(v.Name)
	return match, idx, true
}
