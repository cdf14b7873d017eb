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
	vtrpcpb "vitess.io/vitess/go/vt/proto/vtrpc"
	"vitess.io/vitess/go/vt/sqlparser"
	"vitess.io/vitess/go/vt/vterrors"

	"github.com/vtbridge/vtbridge/go/vt/host/catalog"
	"github.com/vtbridge/vtbridge/go/vt/host/session"
)

// Deparse renders the query back to SQL text. A relation is printed with
// its schema unless it is the first match for its bare name on the
// session's current search path, so deparsing under an empty search path
// yields fully qualified text. The query itself is not modified.
func Deparse(q *Query, cat *catalog.Catalog, sess *session.Session) (string, error) {
	if q.Statement == nil {
		return "", vterrors.Errorf(vtrpcpb.Code_INVALID_ARGUMENT, "query tree has no statement")
	}
	stmt := sqlparser.CloneStatement(q.Statement)

	var refs []*sqlparser.AliasedTableExpr
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		if ate, ok := node.(*sqlparser.AliasedTableExpr); ok {
			refs = append(refs, ate)
		}
		return true, nil
	}, stmt)
	if len(refs) != len(q.RangeTable) {
		return "", vterrors.Errorf(vtrpcpb.Code_INTERNAL, "range table has %d entries but the statement references %d tables", len(q.RangeTable), len(refs))
	}

	searchPath := sess.SearchPath()
	for i, ate := range refs {
		rte := q.RangeTable[i]
		if rte.Kind != RTERelation {
			continue
		}
		if _, ok := ate.Expr.(sqlparser.TableName); !ok {
			return "", vterrors.Errorf(vtrpcpb.Code_INTERNAL, "range table entry %d is a relation but the statement has %s", i+1, sqlparser.String(ate.Expr))
		}
		tbl, ok := cat.FindTable(rte.Schema, rte.Name)
		if !ok || (rte.Table != nil && tbl.ID != rte.Table.ID) {
			return "", vterrors.NewErrorf(vtrpcpb.Code_NOT_FOUND, vterrors.NoSuchTable, "relation %s.%s no longer exists", rte.Schema, rte.Name)
		}
		name := sqlparser.NewTableName(tbl.Name)
		if !cat.IsVisible(searchPath, tbl) {
			name = sqlparser.NewTableNameWithQualifier(tbl.Name, tbl.Schema)
		}
		ate.Expr = name
	}
	return sqlparser.String(stmt), nil
}
