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
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/xlab/treeprint"

	querypb "vitess.io/vitess/go/vt/proto/query"
	"vitess.io/vitess/go/vt/sqlparser"

	"github.com/vtbridge/vtbridge/go/vt/host/querytree"
)

// CursorOptions are the cursor and planning options a statement is planned
// with.
type CursorOptions uint32

const (
	CursorOptBinary CursorOptions = 1 << iota
	CursorOptScroll
	CursorOptNoScroll
	CursorOptInsensitive
	CursorOptAsensitive
	CursorOptHold
	CursorOptFastPlan
	CursorOptGenericPlan
	CursorOptCustomPlan
	CursorOptParallelOK
)

var cursorOptNames = []string{"Binary", "Scroll", "NoScroll", "Insensitive", "Asensitive", "Hold", "FastPlan", "GenericPlan", "CustomPlan", "ParallelOK"}

func (o CursorOptions) String() string {
	var names []string
	for i, name := range cursorOptNames {
		if o&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "None"
	}
	return strings.Join(names, "|")
}

// PlannedStmt is the planner's output for one statement. Every auxiliary
// list stays empty: the alternate engine runs everything below PlanTree, so
// there are no subplans, row marks, result relations or relation
// dependencies for the host to track.
type PlannedStmt struct {
	CommandType        querytree.CommandType
	QueryID            uint64
	HasReturning       bool
	HasModifyingCTE    bool
	CanSetTag          bool
	TransientPlan      bool
	DependsOnRole      bool
	ParallelModeNeeded bool
	CursorOptions      CursorOptions

	PlanTree *SubstituteScan

	RangeTable      []*querytree.RangeTblEntry
	PermInfos       []any
	ResultRelations []int
	AppendRelations []any
	Subplans        []any
	RewindPlanIDs   []int
	RowMarks        []any
	RelationIDs     []uint32
	InvalItems      []any
	ParamExecTypes  []querypb.Type

	UtilityStmt  sqlparser.Statement
	StmtLocation int
	StmtLen      int

	ExecCount    uint64 // Count of times this plan was executed
	ExecTime     uint64 // Total execution time
	RowsReturned uint64 // Total number of rows
	Errors       uint64 // Total number of errors
}

// AddStats records one execution of the plan.
func (p *PlannedStmt) AddStats(execTime time.Duration, rows uint64, err error) {
	atomic.AddUint64(&p.ExecCount, 1)
	atomic.AddUint64(&p.ExecTime, uint64(execTime))
	atomic.AddUint64(&p.RowsReturned, rows)
	if err != nil {
		atomic.AddUint64(&p.Errors, 1)
	}
}

// Description returns the plan tree description.
func (p *PlannedStmt) Description() Description {
	if p.PlanTree == nil {
		return Description{OperatorType: "Empty", Inputs: []Description{}}
	}
	return p.PlanTree.description()
}

// MarshalJSON serializes the plan into a JSON representation.
func (p *PlannedStmt) MarshalJSON() ([]byte, error) {
	var instructions *Description
	if p.PlanTree != nil {
		description := p.Description()
		instructions = &description
	}

	marshalPlan := struct {
		CommandType     string
		QueryID         string
		CursorOptions   string        `json:",omitempty"`
		HasReturning    bool          `json:",omitempty"`
		HasModifyingCTE bool          `json:",omitempty"`
		CanSetTag       bool          `json:",omitempty"`
		Instructions    *Description  `json:",omitempty"`
		ExecCount       uint64        `json:",omitempty"`
		ExecTime        time.Duration `json:",omitempty"`
		RowsReturned    uint64        `json:",omitempty"`
		Errors          uint64        `json:",omitempty"`
	}{
		CommandType:     p.CommandType.String(),
		QueryID:         fmt.Sprintf("%016x", p.QueryID),
		HasReturning:    p.HasReturning,
		HasModifyingCTE: p.HasModifyingCTE,
		CanSetTag:       p.CanSetTag,
		Instructions:    instructions,
		ExecCount:       atomic.LoadUint64(&p.ExecCount),
		ExecTime:        time.Duration(atomic.LoadUint64(&p.ExecTime)),
		RowsReturned:    atomic.LoadUint64(&p.RowsReturned),
		Errors:          atomic.LoadUint64(&p.Errors),
	}
	if p.CursorOptions != 0 {
		marshalPlan.CursorOptions = p.CursorOptions.String()
	}

	b := new(bytes.Buffer)
	enc := json.NewEncoder(b)
	enc.SetEscapeHTML(false)
	err := enc.Encode(marshalPlan)
	if err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Tree renders the plan as an indented tree.
func (p *PlannedStmt) Tree() string {
	root := treeprint.NewWithRoot(fmt.Sprintf("PlannedStmt %s (query id %016x)", p.CommandType, p.QueryID))
	addDescription(root, p.Description())
	return root.String()
}

func addDescription(tree treeprint.Tree, d Description) {
	name := d.OperatorType
	if d.Variant != "" {
		name += " (" + d.Variant + ")"
	}
	branch := tree.AddBranch(name)
	keys := make([]string, 0, len(d.Other))
	for k := range d.Other {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := d.Other[k].(type) {
		case []string:
			list := branch.AddMetaBranch(k, fmt.Sprintf("%d", len(v)))
			for _, item := range v {
				list.AddNode(item)
			}
		default:
			branch.AddMetaNode(k, fmt.Sprint(v))
		}
	}
	for _, input := range d.Inputs {
		addDescription(branch, input)
	}
}
