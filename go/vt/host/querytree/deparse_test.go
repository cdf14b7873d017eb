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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitess.io/vitess/go/vt/sqlparser"
	"vitess.io/vitess/go/vt/vterrors"

	"github.com/vtbridge/vtbridge/go/vt/host/catalog"
	"github.com/vtbridge/vtbridge/go/vt/host/session"
)

func TestDeparseQualification(t *testing.T) {
	cat := newTestCatalog(t)
	sess := session.New("main", "sales")

	testcases := []struct {
		sql        string
		searchPath []string
		want       string
	}{
		{
			sql:        "select a, b from t",
			searchPath: []string{"main", "sales"},
			want:       "select a, b from t",
		},
		{
			sql:        "select a, b from t",
			searchPath: nil,
			want:       "select a, b from main.t",
		},
		{
			sql:        "select o.id from orders as o join sales.t on o.id = t.x",
			searchPath: []string{"main", "sales"},
			want:       "select o.id from orders as o join sales.t on o.id = t.x",
		},
		{
			sql:        "select o.id from orders as o join sales.t on o.id = t.x",
			searchPath: []string{},
			want:       "select o.id from sales.orders as o join sales.t on o.id = t.x",
		},
		{
			sql:        "select d.a from (select a from t) as d",
			searchPath: nil,
			want:       "select d.a from (select a from main.t) as d",
		},
	}
	for _, tc := range testcases {
		t.Run(tc.sql, func(t *testing.T) {
			q := parse(t, cat, sess, tc.sql)
			restore := sess.OverrideSearchPath(tc.searchPath)
			got, err := Deparse(q, cat, sess)
			restore()
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDeparseDoesNotModifyQuery(t *testing.T) {
	cat := newTestCatalog(t)
	sess := session.New("main")
	q := parse(t, cat, sess, "select a from t")

	restore := sess.OverrideSearchPath(nil)
	_, err := Deparse(q, cat, sess)
	restore()
	require.NoError(t, err)
	assert.Equal(t, "select a from t", sqlparser.String(q.Statement))
}

func TestDeparseFailures(t *testing.T) {
	cat := newTestCatalog(t)
	sess := session.New("main")

	q := parse(t, cat, sess, "select a from t")
	q.RangeTable = append(q.RangeTable, &RangeTblEntry{Kind: RTERelation, Schema: "main", Name: "u"})
	_, err := Deparse(q, cat, sess)
	require.ErrorContains(t, err, "range table has 2 entries")

	q = parse(t, cat, sess, "select a from t")
	q.RangeTable[0].Table = &catalog.Table{ID: 1, Schema: "main", Name: "t"}
	_, err = Deparse(q, cat, sess)
	require.Error(t, err)
	assert.Equal(t, vterrors.NoSuchTable, vterrors.ErrState(err))

	_, err = Deparse(&Query{}, cat, sess)
	require.Error(t, err)
}
