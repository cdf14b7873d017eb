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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vtrpcpb "vitess.io/vitess/go/vt/proto/vtrpc"
	"vitess.io/vitess/go/vt/sqlparser"
	"vitess.io/vitess/go/vt/vterrors"

	"github.com/vtbridge/vtbridge/go/vt/altengine"
)

var ordersScope = altengine.Scope{Tables: []altengine.TableRef{
	{Schema: "sales", Name: "orders"},
	{Schema: "main", Name: "t"},
}}

func TestScopeQueryRewritesToViews(t *testing.T) {
	parser := sqlparser.NewTestParser()
	testcases := []struct {
		in      string
		out     string
		aliases map[string]string
	}{
		{
			in:      "select a from main.t",
			out:     "select a from `main.t` as t",
			aliases: map[string]string{"t": "main.t"},
		},
		{
			in:      "select main.t.a, o.id from main.t join sales.orders as o on o.id = main.t.a",
			out:     "select t.a, o.id from `main.t` as t join `sales.orders` as o on o.id = t.a",
			aliases: map[string]string{"t": "main.t", "o": "sales.orders"},
		},
		{
			in:      "select x.id from (select id from sales.orders) as x",
			out:     "select x.id from (select id from `sales.orders` as orders) as x",
			aliases: map[string]string{"orders": "sales.orders"},
		},
		{
			in:      "select sales.orders.* from sales.orders",
			out:     "select orders.* from `sales.orders` as orders",
			aliases: map[string]string{"orders": "sales.orders"},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.in, func(t *testing.T) {
			q, err := scopeQuery(parser, tc.in, ordersScope, true)
			require.NoError(t, err)
			assert.Equal(t, tc.out, q.text)
			assert.Equal(t, tc.aliases, q.aliases)
		})
	}
}

func TestScopeQueryKeepsTextWithoutViews(t *testing.T) {
	parser := sqlparser.NewTestParser()
	text := "select o.id from sales.orders as o where o.id in (select a from main.t)"
	q, err := scopeQuery(parser, text, ordersScope, false)
	require.NoError(t, err)
	assert.Equal(t, text, q.text)
	assert.Equal(t, map[string]string{"o": "sales.orders", "t": "main.t"}, q.aliases)
}

func TestScopeQueryRejectsOtherTables(t *testing.T) {
	parser := sqlparser.NewTestParser()
	for _, text := range []string{
		"select k from sales.secrets",
		"select id from orders",
		"select id from sales.orders where id in (select a from main.u)",
		"select * from information_schema.tables",
		"select * from temp.sqlite_master",
	} {
		for _, views := range []bool{true, false} {
			_, err := scopeQuery(parser, text, ordersScope, views)
			require.Error(t, err, text)
			assert.Equal(t, vtrpcpb.Code_NOT_FOUND, vterrors.Code(err), text)
		}
	}

	_, err := scopeQuery(parser, "selec nope", ordersScope, true)
	assert.Error(t, err)
}

func TestScopeQueryAllowsCTEs(t *testing.T) {
	parser := sqlparser.NewTestParser()
	q, err := scopeQuery(parser, "with big as (select id from sales.orders) select id from big", ordersScope, true)
	require.NoError(t, err)
	assert.Equal(t, "with big as (select id from `sales.orders` as orders) select id from big", q.text)
}

func TestInferColumnTypes(t *testing.T) {
	parser := sqlparser.NewTestParser()
	columns := tableColumns{
		"main.t":       {"a": altengine.NewType(altengine.Integer), "b": altengine.NewType(altengine.Varchar)},
		"sales.orders": {"id": altengine.NewType(altengine.BigInt), "a": altengine.NewType(altengine.Double)},
	}
	infer := func(text string) []altengine.Type {
		q, err := scopeQuery(parser, text, ordersScope, true)
		require.NoError(t, err)
		ti := &typeInference{query: q, columns: columns}
		return ti.projection(len(selectExprs(t, q)))
	}

	assert.Equal(t, []altengine.Type{
		altengine.NewType(altengine.Integer),
		altengine.NewType(altengine.Double),
		altengine.NewType(altengine.BigInt),
		altengine.NewType(altengine.Invalid),
		altengine.NewType(altengine.Double),
	}, infer("select t.a, o.a, id * 2, a, t.a / 2.5 from main.t join sales.orders as o on o.id = t.a"))

	assert.Equal(t, []altengine.Type{
		altengine.NewType(altengine.BigInt),
		altengine.NewType(altengine.Varchar),
		altengine.NewType(altengine.Boolean),
	}, infer("select length(b), case when a > 1 then 'big' else 'small' end, a between 1 and 2 from main.t union select 1, 'x', true from main.t"))

	assert.Nil(t, infer("select * from main.t"))
}

func selectExprs(t *testing.T, q *scopedQuery) []sqlparser.Expr {
	t.Helper()
	sel := leftmostSelect(q.stmt)
	require.NotNil(t, sel)
	exprs, _ := selectColumns(sel)
	return exprs
}
