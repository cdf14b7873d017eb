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

package fakeengine

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtbridge/vtbridge/go/vt/altengine"
)

func TestPrepareAndQuery(t *testing.T) {
	e := New()
	e.AddQuery("select 1", &Result{
		Columns: []altengine.Column{{Name: "1", Type: altengine.NewType(altengine.Integer)}},
		Rows:    [][]any{{int64(1)}},
	})

	sess, err := e.Connect(context.Background(), altengine.Scope{})
	require.NoError(t, err)
	assert.Equal(t, "fake-1", sess.ID())

	stmt := sess.Prepare(context.Background(), "select 1")
	require.False(t, stmt.HasError())
	assert.Equal(t, []string{"1"}, stmt.Names())

	rows, err := sess.Query(context.Background(), stmt)
	require.NoError(t, err)
	row, err := rows.Next()
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1)}, row)
	_, err = rows.Next()
	assert.Equal(t, io.EOF, err)
	require.NoError(t, rows.Close())

	require.NoError(t, sess.Close())
	assert.True(t, stmt.HasError())
	assert.Equal(t, 0, e.OpenSessions())
	_, err = sess.Query(context.Background(), stmt)
	assert.ErrorIs(t, err, altengine.ErrSessionClosed)
}

func TestPrepareFailures(t *testing.T) {
	e := New()
	e.AddQuery("select bad", &Result{PrepareErr: errors.New("Binder Error: column bad not found")})
	sess, err := e.Connect(context.Background(), altengine.Scope{})
	require.NoError(t, err)

	stmt := sess.Prepare(context.Background(), "select bad")
	assert.Equal(t, "Binder Error: column bad not found", stmt.Error())

	stmt = sess.Prepare(context.Background(), "select unknown")
	assert.Contains(t, stmt.Error(), "syntax error")
	assert.Equal(t, []string{"select bad", "select unknown"}, sess.(*Session).Prepared())

	e.SetConnectError(errors.New("refused"))
	_, err = e.Connect(context.Background(), altengine.Scope{})
	require.ErrorContains(t, err, "refused")

	require.NoError(t, e.Close())
	assert.True(t, sess.(*Session).Closed())
}
