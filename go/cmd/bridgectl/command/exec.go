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

package command

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vtbridge/vtbridge/go/vt/bridge/config"
	"github.com/vtbridge/vtbridge/go/vt/bridge/executor"
)

// Exec returns the exec command.
func Exec() *cobra.Command {
	return &cobra.Command{
		Use:     "exec <query>",
		Short:   "Plans a query on the alternate engine and runs it.",
		Example: `bridgectl --schema schema.sql --seed data.sql exec "select a, b from t"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd.Context(), config.Default)
			if err != nil {
				return err
			}
			defer ws.Close()
			return ws.exec(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}
}

func (ws *workspace) exec(ctx context.Context, w io.Writer, sql string) error {
	q, sess, err := ws.analyze(sql)
	if err != nil {
		return err
	}
	stmt, err := ws.planner.Plan(ctx, q, sess, 0, nil)
	if err != nil {
		return err
	}
	if stmt == nil {
		return errNotBridged
	}
	result, err := ws.executor.Execute(ctx, stmt, sess, nil)
	if err != nil {
		return err
	}
	return printResult(w, result)
}

// Raw returns the raw command.
func Raw() *cobra.Command {
	return &cobra.Command{
		Use:   "raw <query>",
		Short: "Runs a query verbatim on the alternate engine, bypassing the host planner.",
		Long: "Runs the query text as is on a session that can see every table of the schema. " +
			"Columns without a host type are returned as text.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd.Context(), config.Default)
			if err != nil {
				return err
			}
			defer ws.Close()
			result, err := executor.RawQuery(cmd.Context(), ws.engine, ws.catalog, args[0])
			if err != nil {
				return fmt.Errorf("raw query failed: %w", err)
			}
			return printResult(cmd.OutOrStdout(), result)
		},
	}
}
