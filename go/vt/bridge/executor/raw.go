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

package executor

import (
	"context"
	"errors"
	"io"

	"vitess.io/vitess/go/sqltypes"
	querypb "vitess.io/vitess/go/vt/proto/query"
	vtrpcpb "vitess.io/vitess/go/vt/proto/vtrpc"
	"vitess.io/vitess/go/vt/vterrors"

	"github.com/vtbridge/vtbridge/go/vt/altengine"
	"github.com/vtbridge/vtbridge/go/vt/bridge/typemap"
	"github.com/vtbridge/vtbridge/go/vt/host/catalog"
	"github.com/vtbridge/vtbridge/go/vt/log"
)

// RawQuery runs text on the alternate engine as is, without going through
// the host planner. The session is scoped to every table of cat. Columns
// whose type has no host equivalent are returned as VARCHAR.
func RawQuery(ctx context.Context, engine altengine.Engine, cat *catalog.Catalog, text string) (*sqltypes.Result, error) {
	var scope altengine.Scope
	for _, t := range cat.Tables() {
		scope.Tables = append(scope.Tables, altengine.TableRef{Schema: t.Schema, Name: t.Name})
	}
	sess, err := engine.Connect(ctx, scope)
	if err != nil {
		return nil, vterrors.Wrapf(err, "cannot open alternate engine session")
	}
	defer sess.Close()

	stmt := sess.Prepare(ctx, text)
	if stmt.HasError() {
		return nil, vterrors.Errorf(vtrpcpb.Code_INVALID_ARGUMENT, "%s", stmt.Error())
	}

	result := &sqltypes.Result{}
	types := make([]querypb.Type, len(stmt.Columns()))
	for i, col := range stmt.Columns() {
		types[i] = typemap.ToHostType(col.Type)
		if !typemap.IsValid(types[i]) {
			types[i] = sqltypes.VarChar
		}
		result.Fields = append(result.Fields, &querypb.Field{Name: col.Name, Type: types[i]})
	}

	rows, err := sess.Query(ctx, stmt)
	if err != nil {
		return nil, vterrors.Wrapf(err, "alternate engine query failed")
	}
	defer rows.Close()
	for {
		raw, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make([]sqltypes.Value, len(raw))
		for i, v := range raw {
			if i >= len(types) {
				return nil, vterrors.Errorf(vtrpcpb.Code_INTERNAL, "alternate engine returned %d columns, expected %d", len(raw), len(types))
			}
			if row[i], err = toValue(v, types[i]); err != nil {
				return nil, err
			}
		}
		result.Rows = append(result.Rows, row)
	}
	log.InfoS("raw query done", "query", text, "rows", len(result.Rows))
	return result, nil
}
