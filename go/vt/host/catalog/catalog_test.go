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

package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"vitess.io/vitess/go/mysql/collations"
	"vitess.io/vitess/go/sqltypes"
	"vitess.io/vitess/go/vt/sqlparser"
	"vitess.io/vitess/go/vt/vterrors"
)

const testDDL = `
create table t (a int, b varchar(20));
create table sales.orders (id bigint, amount decimal(10,2), placed datetime);
create table sales.t (x double);
`

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := New()
	require.NoError(t, c.LoadDDL(sqlparser.NewTestParser(), testDDL, DefaultSchema))
	return c
}

func TestLoadDDL(t *testing.T) {
	c := newTestCatalog(t)

	assert.Equal(t, []string{"main", "sales"}, c.Schemas())

	tbl, ok := c.FindTable("main", "T")
	require.True(t, ok)
	assert.Equal(t, []Column{{Name: "a", Type: sqltypes.Int32}, {Name: "b", Type: sqltypes.VarChar}}, tbl.Columns)
	assert.Equal(t, "main.t", tbl.QualifiedName())

	orders, ok := c.FindTable("sales", "orders")
	require.True(t, ok)
	idx, ok := orders.FindColumn("AMOUNT")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, sqltypes.Decimal, orders.Columns[idx].Type)
	assert.NotEqual(t, tbl.ID, orders.ID)

	var names []string
	for _, tbl := range c.Tables() {
		names = append(names, tbl.QualifiedName())
	}
	assert.Equal(t, []string{"main.t", "sales.orders", "sales.t"}, names)
}

func TestLoadDDLRejectsOtherStatements(t *testing.T) {
	c := New()
	err := c.LoadDDL(sqlparser.NewTestParser(), "select 1", DefaultSchema)
	require.ErrorContains(t, err, "unsupported DDL statement")
}

func TestAddTable(t *testing.T) {
	c := New()
	require.NoError(t, c.AddTable(&Table{Schema: "main", Name: "x"}))

	err := c.AddTable(&Table{Schema: "main", Name: "X"})
	require.ErrorContains(t, err, "already exists")

	err = c.AddTable(&Table{Schema: "nope", Name: "x"})
	require.Error(t, err)
	assert.Equal(t, vterrors.BadDb, vterrors.ErrState(err))
}

func TestResolveTable(t *testing.T) {
	c := newTestCatalog(t)

	tests := []struct {
		name       string
		searchPath []string
		table      string
		wantSchema string
		wantState  vterrors.State
	}{
		{name: "first on path wins", searchPath: []string{"sales", "main"}, table: "t", wantSchema: "sales"},
		{name: "falls through", searchPath: []string{"sales", "main"}, table: "orders", wantSchema: "sales"},
		{name: "main first", searchPath: []string{"main", "sales"}, table: "t", wantSchema: "main"},
		{name: "missing", searchPath: []string{"main"}, table: "orders", wantState: vterrors.NoSuchTable},
		{name: "empty path", searchPath: nil, table: "t", wantState: vterrors.NoDB},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tbl, err := c.ResolveTable(tc.searchPath, tc.table)
			if tc.wantState != vterrors.Undefined {
				require.Error(t, err)
				assert.Equal(t, tc.wantState, vterrors.ErrState(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantSchema, tbl.Schema)
		})
	}
}

func TestIsVisible(t *testing.T) {
	c := newTestCatalog(t)
	mainT, _ := c.FindTable("main", "t")
	salesT, _ := c.FindTable("sales", "t")

	assert.True(t, c.IsVisible([]string{"main", "sales"}, mainT))
	assert.False(t, c.IsVisible([]string{"main", "sales"}, salesT), "shadowed by main.t")
	assert.True(t, c.IsVisible([]string{"sales"}, salesT))
	assert.False(t, c.IsVisible(nil, mainT))
}

func TestLookupType(t *testing.T) {
	c := New()

	e, ok := c.LookupType(sqltypes.VarChar)
	require.True(t, ok)
	assert.Equal(t, "varchar", e.Name)
	assert.Equal(t, collations.ID(collations.CollationUtf8mb4ID), e.Collation)
	assert.EqualValues(t, -1, e.Typmod)

	// cached copy is served on the second lookup
	again, ok := c.LookupType(sqltypes.VarChar)
	require.True(t, ok)
	assert.Same(t, e, again)

	e, ok = c.LookupType(sqltypes.Int64)
	require.True(t, ok)
	assert.Equal(t, collations.ID(collations.CollationBinaryID), e.Collation)

	c.RemoveType(sqltypes.Int64)
	_, ok = c.LookupType(sqltypes.Int64)
	assert.False(t, ok)

	c.RegisterType(TypeEntry{Type: sqltypes.Int64, Name: "int8", Typmod: 8, Collation: collations.CollationBinaryID})
	e, ok = c.LookupType(sqltypes.Int64)
	require.True(t, ok)
	assert.Equal(t, "int8", e.Name)
	assert.EqualValues(t, 8, e.Typmod)

	_, ok = c.LookupType(sqltypes.Geometry)
	assert.False(t, ok)
}

func TestLookupTypeRacingRemove(t *testing.T) {
	for range 50 {
		c := New()
		var g errgroup.Group
		for range 4 {
			g.Go(func() error {
				for range 20 {
					c.LookupType(sqltypes.Int32)
				}
				return nil
			})
		}
		g.Go(func() error {
			c.RemoveType(sqltypes.Int32)
			return nil
		})
		require.NoError(t, g.Wait())

		_, ok := c.LookupType(sqltypes.Int32)
		assert.False(t, ok, "a removed type must not be served from the cache")
	}
}
