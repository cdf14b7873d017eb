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

package planner

import (
	"vitess.io/vitess/go/vt/sqlparser"

	"github.com/vtbridge/vtbridge/go/vt/altengine"
	"github.com/vtbridge/vtbridge/go/vt/bridge/plan"
	"github.com/vtbridge/vtbridge/go/vt/bridge/typemap"
	"github.com/vtbridge/vtbridge/go/vt/host/catalog"
	"github.com/vtbridge/vtbridge/go/vt/host/querytree"
	"github.com/vtbridge/vtbridge/go/vt/log"
)

// Synthesize builds the substitute scan for a prepared statement. It
// returns nil, after logging a warning, when the statement carries an
// error or one of its result columns has no usable host type. The scan
// holds q itself, not a copy.
func Synthesize(stmt *altengine.PreparedStatement, q *querytree.Query, cat *catalog.Catalog) *plan.SubstituteScan {
	scan, _ := synthesize(stmt, q, cat)
	return scan
}

func synthesize(stmt *altengine.PreparedStatement, q *querytree.Query, cat *catalog.Catalog) (*plan.SubstituteScan, string) {
	if stmt.HasError() {
		log.WarnS("prepared query returned an error", "error", stmt.Error(), "query", stmt.Text())
		return nil, OutcomePrepareError
	}

	columns := stmt.Columns()
	scan := &plan.SubstituteScan{
		TargetList: make([]*plan.TargetEntry, 0, len(columns)),
		Query:      q,
	}
	for i, column := range columns {
		hostType := typemap.ToHostType(column.Type)
		if !typemap.IsValid(hostType) {
			log.WarnS("no host type for result column", "column", column.Name, "position", i+1, "type", column.Type.String(), "type_id", int(column.Type.ID))
			return nil, OutcomeTypeError
		}
		entry, ok := cat.LookupType(hostType)
		if !ok {
			log.WarnS("cache lookup failed for type", "type", hostType.String(), "type_id", int32(hostType))
			return nil, OutcomeCatalogMissing
		}
		scan.TargetList = append(scan.TargetList, &plan.TargetEntry{
			Expr: &plan.Var{
				VarNo:     plan.IndexVar,
				AttNo:     i + 1,
				Type:      hostType,
				Typmod:    entry.Typmod,
				Collation: entry.Collation,
			},
			ResNo: i + 1,
			Name:  column.Name,
		})
	}
	return scan, OutcomeBridged
}

// statementText is used for span tags; it never fails.
func statementText(q *querytree.Query) string {
	if q == nil || q.Statement == nil {
		return ""
	}
	return sqlparser.String(q.Statement)
}
