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

	"github.com/cespare/xxhash/v2"

	vtrpcpb "vitess.io/vitess/go/vt/proto/vtrpc"
	"vitess.io/vitess/go/vt/sqlparser"
	"vitess.io/vitess/go/vt/vterrors"

	"github.com/vtbridge/vtbridge/go/vt/host/catalog"
	"github.com/vtbridge/vtbridge/go/vt/host/session"
)

// Parse parses sql and analyzes the resulting statement.
func Parse(parser *sqlparser.Parser, sql string, cat *catalog.Catalog, sess *session.Session) (*Query, error) {
	stmt, err := parser.Parse(sql)
	if err != nil {
		return nil, err
	}
	q, err := Analyze(stmt, cat, sess)
	if err != nil {
		return nil, err
	}
	q.StmtLen = len(sql)
	return q, nil
}

// Analyze resolves every table reference of stmt through the session's
// search path and builds the query tree. An EXPLAIN statement is unwrapped:
// the returned tree is the explained statement and the session's command
// tag is set to EXPLAIN.
func Analyze(stmt sqlparser.Statement, cat *catalog.Catalog, sess *session.Session) (*Query, error) {
	tag := session.TagNone
	if explain, ok := stmt.(*sqlparser.ExplainStmt); ok {
		tag = session.TagExplain
		stmt = explain.Statement
	}

	q := &Query{
		CommandType: commandTypeOf(stmt),
		QueryID:     xxhash.Sum64String(sqlparser.String(stmt)),
		Statement:   stmt,
		CanSetTag:   true,
	}
	if q.CommandType == CmdUtility {
		q.UtilityStmt = stmt
	}
	if tag == session.TagNone {
		tag = session.CommandTag(q.CommandType.String())
	}
	sess.SetCommandTag(tag)

	ctes := make(map[string]bool)
	seenParams := make(map[string]bool)
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		switch node := node.(type) {
		case *sqlparser.CommonTableExpr:
			ctes[strings.ToLower(node.ID.String())] = true
			if containsDML(node) {
				q.HasModifyingCTE = true
			}
		case *sqlparser.Argument:
			if !seenParams[node.Name] {
				seenParams[node.Name] = true
				q.ParamNames = append(q.ParamNames, node.Name)
			}
		}
		return true, nil
	}, stmt)

	searchPath := sess.SearchPath()
	err := sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		ate, ok := node.(*sqlparser.AliasedTableExpr)
		if !ok {
			return true, nil
		}
		rte, err := resolveTableExpr(ate, cat, searchPath, ctes)
		if err != nil {
			return false, err
		}
		q.RangeTable = append(q.RangeTable, rte)
		return true, nil
	}, stmt)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func resolveTableExpr(ate *sqlparser.AliasedTableExpr, cat *catalog.Catalog, searchPath []string, ctes map[string]bool) (*RangeTblEntry, error) {
	alias := ate.As.String()
	switch expr := ate.Expr.(type) {
	case sqlparser.TableName:
		name := expr.Name.String()
		if expr.Qualifier.IsEmpty() && ctes[strings.ToLower(name)] {
			return &RangeTblEntry{Kind: RTECTE, Name: name, Alias: alias}, nil
		}
		var (
			tbl *catalog.Table
			err error
		)
		if expr.Qualifier.IsEmpty() {
			tbl, err = cat.ResolveTable(searchPath, name)
		} else {
			var found bool
			tbl, found = cat.FindTable(expr.Qualifier.String(), name)
			if !found {
				err = vterrors.NewErrorf(vtrpcpb.Code_NOT_FOUND, vterrors.NoSuchTable, "table '%s.%s' does not exist", expr.Qualifier.String(), name)
			}
		}
		if err != nil {
			return nil, err
		}
		return &RangeTblEntry{Kind: RTERelation, Schema: tbl.Schema, Name: tbl.Name, Alias: alias, Table: tbl}, nil
	case *sqlparser.DerivedTable:
		return &RangeTblEntry{Kind: RTESubquery, Alias: alias}, nil
	default:
		return nil, vterrors.Errorf(vtrpcpb.Code_UNIMPLEMENTED, "unsupported table expression: %s", sqlparser.String(ate))
	}
}

func commandTypeOf(stmt sqlparser.Statement) CommandType {
	switch sqlparser.ASTToStatementType(stmt) {
	case sqlparser.StmtSelect:
		return CmdSelect
	case sqlparser.StmtInsert, sqlparser.StmtReplace:
		return CmdInsert
	case sqlparser.StmtUpdate:
		return CmdUpdate
	case sqlparser.StmtDelete:
		return CmdDelete
	default:
		return CmdUtility
	}
}

func containsDML(node sqlparser.SQLNode) bool {
	found := false
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		switch node.(type) {
		case *sqlparser.Insert, *sqlparser.Update, *sqlparser.Delete:
			found = true
			return false, nil
		}
		return !found, nil
	}, node)
	return found
}
