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

package plan

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitess.io/vitess/go/mysql/collations"
	"vitess.io/vitess/go/sqltypes"
	querypb "vitess.io/vitess/go/vt/proto/query"

	"github.com/vtbridge/vtbridge/go/test/utils"
	"github.com/vtbridge/vtbridge/go/vt/host/querytree"
)

func testPlan() *PlannedStmt {
	return &PlannedStmt{
		CommandType: querytree.CmdSelect,
		QueryID:     0xabc,
		CanSetTag:   true,
		PlanTree: &SubstituteScan{
			TargetList: []*TargetEntry{
				{Expr: &Var{VarNo: IndexVar, AttNo: 1, Type: sqltypes.Int32, Typmod: -1, Collation: collations.CollationBinaryID}, ResNo: 1, Name: "a"},
				{Expr: &Var{VarNo: IndexVar, AttNo: 2, Type: sqltypes.VarChar, Typmod: -1, Collation: collations.CollationUtf8mb4ID}, ResNo: 2, Name: "b"},
			},
			Query: &querytree.Query{
				QueryID:    0xabc,
				RangeTable: []*querytree.RangeTblEntry{{Kind: querytree.RTERelation, Schema: "main", Name: "t"}},
			},
		},
	}
}

func TestFields(t *testing.T) {
	p := testPlan()
	fields := p.PlanTree.Fields()
	utils.MustMatch(t, []*querypb.Field{
		{Name: "a", Type: sqltypes.Int32, Charset: uint32(collations.CollationBinaryID)},
		{Name: "b", Type: sqltypes.VarChar, Charset: uint32(collations.CollationUtf8mb4ID)},
	}, fields, "fields")
	utils.MustMatchPB(t, `name:"b" type:VARCHAR charset:255`, fields[1])
	assert.Equal(t, []querypb.Type{sqltypes.Int32, sqltypes.VarChar}, p.PlanTree.Types())

	p.PlanTree.TargetList[1].ResJunk = true
	assert.Len(t, p.PlanTree.Fields(), 1)
}

func TestCursorOptionsString(t *testing.T) {
	assert.Equal(t, "None", CursorOptions(0).String())
	assert.Equal(t, "Scroll", CursorOptScroll.String())
	assert.Equal(t, "Binary|Hold|ParallelOK", (CursorOptBinary | CursorOptHold | CursorOptParallelOK).String())
}

func TestMarshalJSON(t *testing.T) {
	p := testPlan()
	p.CursorOptions = CursorOptParallelOK
	p.AddStats(2*time.Millisecond, 3, nil)
	p.AddStats(time.Millisecond, 0, errors.New("boom"))

	b, err := json.Marshal(p)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "SELECT", got["CommandType"])
	assert.Equal(t, "0000000000000abc", got["QueryID"])
	assert.Equal(t, "ParallelOK", got["CursorOptions"])
	assert.Equal(t, true, got["CanSetTag"])
	assert.EqualValues(t, 2, got["ExecCount"])
	assert.EqualValues(t, 3, got["RowsReturned"])
	assert.EqualValues(t, 1, got["Errors"])
	assert.EqualValues(t, 3*time.Millisecond, got["ExecTime"])

	instructions := got["Instructions"].(map[string]any)
	assert.Equal(t, "SubstituteScan", instructions["OperatorType"])
	other := instructions["Other"].(map[string]any)
	assert.Equal(t, []any{"a:int32", "b:varchar"}, other["Columns"])
	assert.Equal(t, []any{"main.t"}, other["TablesUsed"])
}

func TestMarshalJSONEmpty(t *testing.T) {
	b, err := json.Marshal(&PlannedStmt{CommandType: querytree.CmdSelect})
	require.NoError(t, err)
	assert.JSONEq(t, `{"CommandType":"SELECT","QueryID":"0000000000000000"}`, string(b))
}

func TestTree(t *testing.T) {
	out := testPlan().Tree()
	assert.Contains(t, out, "PlannedStmt SELECT (query id 0000000000000abc)")
	assert.Contains(t, out, "SubstituteScan (AlternateEngine)")
	assert.Contains(t, out, "a:int32")
	assert.Contains(t, out, "b:varchar")
	assert.Contains(t, out, "main.t")
}
