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

	vtrpcpb "vitess.io/vitess/go/vt/proto/vtrpc"
	"vitess.io/vitess/go/vt/sqlparser"
	"vitess.io/vitess/go/vt/vterrors"

	"github.com/vtbridge/vtbridge/go/vt/altengine"
)

// tableColumns holds the declared column types of the scoped tables, keyed
// by tableKey and then by lowercase column name.
type tableColumns map[string]map[string]altengine.Type

// scopedQuery is a statement that only reads tables of a session's scope.
type scopedQuery struct {
	// text is the statement to run on the session connection.
	text string
	stmt sqlparser.Statement
	// aliases maps each lowercase table alias of stmt to its tableKey.
	aliases map[string]string
}

func schemaOf(t altengine.TableRef) string {
	if t.Schema == "" {
		return mainSchema
	}
	return t.Schema
}

func tableKey(schema, name string) string {
	if schema == "" {
		schema = mainSchema
	}
	return strings.ToLower(schema + "." + name)
}

// viewName is the name a scoped table is visible under on a session.
func viewName(t altengine.TableRef) string {
	return schemaOf(t) + "." + t.Name
}

// scopeQuery parses text and checks that every table it reads is one of
// the tables of scope, referenced with its schema. Common table expressions
// and dual may be referenced unqualified. With views set, table references
// are rewritten to the session views and column qualifiers lose their
// schema.
func scopeQuery(parser *sqlparser.Parser, text string, scope altengine.Scope, views bool) (*scopedQuery, error) {
	stmt, err := parser.Parse(text)
	if err != nil {
		return nil, err
	}

	visible := make(map[string]altengine.TableRef, len(scope.Tables))
	for _, t := range scope.Tables {
		visible[tableKey(t.Schema, t.Name)] = t
	}
	ctes := make(map[string]bool)
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		if cte, ok := node.(*sqlparser.CommonTableExpr); ok {
			ctes[strings.ToLower(cte.ID.String())] = true
		}
		return true, nil
	}, stmt)

	q := &scopedQuery{text: text, stmt: stmt, aliases: make(map[string]string)}
	err = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		switch node := node.(type) {
		case *sqlparser.AliasedTableExpr:
			tbl, ok := node.Expr.(sqlparser.TableName)
			if !ok {
				return true, nil
			}
			name := tbl.Name.String()
			if tbl.Qualifier.IsEmpty() {
				if ctes[strings.ToLower(name)] || strings.EqualFold(name, "dual") {
					return true, nil
				}
				return false, vterrors.Errorf(vtrpcpb.Code_NOT_FOUND, "table %s must be qualified with its schema", name)
			}
			key := tableKey(tbl.Qualifier.String(), name)
			ref, ok := visible[key]
			if !ok {
				return false, vterrors.Errorf(vtrpcpb.Code_NOT_FOUND, "table %s.%s is not visible to this session", tbl.Qualifier.String(), name)
			}
			alias := node.As.String()
			if node.As.IsEmpty() {
				alias = name
			}
			q.aliases[strings.ToLower(alias)] = key
			if views {
				node.As = sqlparser.NewIdentifierCS(alias)
				node.Expr = sqlparser.TableName{Name: sqlparser.NewIdentifierCS(viewName(ref))}
			}
			return false, nil
		case *sqlparser.ColName:
			if views {
				node.Qualifier.Qualifier = sqlparser.NewIdentifierCS("")
			}
		case *sqlparser.StarExpr:
			if views {
				node.TableName.Qualifier = sqlparser.NewIdentifierCS("")
			}
		}
		return true, nil
	}, stmt)
	if err != nil {
		return nil, err
	}
	if views {
		q.text = sqlparser.String(stmt)
	}
	return q, nil
}

// leftmostSelect returns the select that names the result columns of node.
func leftmostSelect(node sqlparser.SQLNode) *sqlparser.Select {
	switch node := node.(type) {
	case *sqlparser.Select:
		return node
	case *sqlparser.Union:
		return leftmostSelect(node.Left)
	}
	return nil
}

// selectColumns returns the projected expressions of sel. It reports false
// when the projection contains a star.
func selectColumns(sel *sqlparser.Select) ([]sqlparser.Expr, bool) {
	var exprs []sqlparser.Expr
	star := false
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		switch node := node.(type) {
		case *sqlparser.AliasedExpr:
			exprs = append(exprs, node.Expr)
			return false, nil
		case *sqlparser.StarExpr:
			star = true
			return false, nil
		}
		return true, nil
	}, sel.SelectExprs)
	return exprs, !star
}
