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
	"strings"

	"vitess.io/vitess/go/vt/sqlparser"

	"github.com/vtbridge/vtbridge/go/vt/altengine"
)

// typeInference derives result column types for computed columns, which
// sqlite reports without a declared type.
type typeInference struct {
	query   *scopedQuery
	columns tableColumns
	params  []altengine.Param
}

// projection returns the inferred type of every result column of the
// query, or nil when the projection cannot be matched to n columns.
func (ti *typeInference) projection(n int) []altengine.Type {
	sel := leftmostSelect(ti.query.stmt)
	if sel == nil {
		return nil
	}
	exprs, ok := selectColumns(sel)
	if !ok || len(exprs) != n {
		return nil
	}
	types := make([]altengine.Type, n)
	for i, e := range exprs {
		types[i] = ti.exprType(e)
	}
	return types
}

func (ti *typeInference) exprType(expr sqlparser.Expr) altengine.Type {
	switch e := expr.(type) {
	case *sqlparser.ColName:
		return ti.columnType(e)
	case *sqlparser.Literal:
		switch e.Type {
		case sqlparser.IntVal:
			return altengine.NewType(altengine.BigInt)
		case sqlparser.FloatVal, sqlparser.DecimalVal:
			return altengine.NewType(altengine.Double)
		case sqlparser.StrVal:
			return altengine.NewType(altengine.Varchar)
		}
	case sqlparser.BoolVal:
		return altengine.NewType(altengine.Boolean)
	case *sqlparser.Argument:
		for _, p := range ti.params {
			if p.Name == e.Name {
				return p.Type
			}
		}
	case *sqlparser.BinaryExpr:
		switch e.Operator {
		case sqlparser.PlusOp, sqlparser.MinusOp, sqlparser.MultOp, sqlparser.DivOp, sqlparser.IntDivOp, sqlparser.ModOp:
			return arithmetic(ti.exprType(e.Left), ti.exprType(e.Right))
		}
	case *sqlparser.UnaryExpr:
		return ti.exprType(e.Expr)
	case *sqlparser.ComparisonExpr, *sqlparser.AndExpr, *sqlparser.OrExpr, *sqlparser.NotExpr,
		*sqlparser.IsExpr, *sqlparser.BetweenExpr, *sqlparser.ExistsExpr:
		return altengine.NewType(altengine.Boolean)
	case *sqlparser.CountStar, *sqlparser.Count:
		return altengine.NewType(altengine.BigInt)
	case *sqlparser.Sum:
		if integral(ti.exprType(e.Arg).ID) {
			return altengine.NewType(altengine.BigInt)
		}
		return altengine.NewType(altengine.Double)
	case *sqlparser.Avg:
		return altengine.NewType(altengine.Double)
	case *sqlparser.Max:
		return ti.exprType(e.Arg)
	case *sqlparser.Min:
		return ti.exprType(e.Arg)
	case *sqlparser.CastExpr:
		return altengine.ParseTypeName(e.Type.Type)
	case *sqlparser.SubstrExpr, *sqlparser.TrimFuncExpr:
		return altengine.NewType(altengine.Varchar)
	case *sqlparser.FuncExpr:
		switch strings.ToLower(e.Name.String()) {
		case "length", "char_length", "octet_length", "instr":
			return altengine.NewType(altengine.BigInt)
		case "lower", "upper", "trim", "ltrim", "rtrim", "substr", "substring",
			"replace", "concat", "hex", "quote":
			return altengine.NewType(altengine.Varchar)
		}
	case *sqlparser.CaseExpr:
		if len(e.Whens) > 0 {
			return ti.exprType(e.Whens[0].Val)
		}
	}
	return altengine.NewType(altengine.Invalid)
}

// columnType resolves col through the table aliases of the query. An
// unqualified column must belong to exactly one table.
func (ti *typeInference) columnType(col *sqlparser.ColName) altengine.Type {
	name := strings.ToLower(col.Name.String())
	if !col.Qualifier.Name.IsEmpty() {
		key, ok := ti.query.aliases[strings.ToLower(col.Qualifier.Name.String())]
		if !ok {
			return altengine.NewType(altengine.Invalid)
		}
		if t, ok := ti.columns[key][name]; ok {
			return t
		}
		return altengine.NewType(altengine.Invalid)
	}

	var found []altengine.Type
	for _, key := range ti.query.aliases {
		if t, ok := ti.columns[key][name]; ok {
			found = append(found, t)
		}
	}
	if len(found) != 1 {
		return altengine.NewType(altengine.Invalid)
	}
	return found[0]
}

func arithmetic(left, right altengine.Type) altengine.Type {
	switch {
	case integral(left.ID) && integral(right.ID):
		return altengine.NewType(altengine.BigInt)
	case numeric(left.ID) && numeric(right.ID):
		return altengine.NewType(altengine.Double)
	}
	return altengine.NewType(altengine.Invalid)
}

func integral(id altengine.TypeID) bool {
	switch id {
	case altengine.TinyInt, altengine.SmallInt, altengine.Integer, altengine.BigInt,
		altengine.UTinyInt, altengine.USmallInt, altengine.UInteger, altengine.UBigInt:
		return true
	}
	return false
}

func numeric(id altengine.TypeID) bool {
	return integral(id) || id == altengine.Float || id == altengine.Double || id == altengine.Decimal
}
