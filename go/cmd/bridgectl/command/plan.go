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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vtbridge/vtbridge/go/vt/bridge/config"
	"github.com/vtbridge/vtbridge/go/vt/bridge/plan"
)

var (
	planOptions = struct {
		Format      string
		Concurrency int
	}{
		Format:      "json",
		Concurrency: 4,
	}

	errNotBridged = errors.New("query is not supported by the alternate engine and falls back to native planning")
)

// Plan returns the plan command.
func Plan() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <query> [<query>...]",
		Short: "Plans queries on the alternate engine and prints the planned statements.",
		Long: "Plans every query independently and concurrently. " +
			"A query that falls back to native planning is reported as such.",
		Example: `bridgectl --schema schema.sql plan "select a, b from t" "select count(*) from sales.orders"`,
		Args:    cobra.MinimumNArgs(1),
		RunE:    commandPlan,
	}
	cmd.Flags().StringVar(&planOptions.Format, "format", planOptions.Format, "Output format: json or tree.")
	cmd.Flags().IntVar(&planOptions.Concurrency, "concurrency", planOptions.Concurrency, "Maximum number of queries planned at once.")
	return cmd
}

func commandPlan(cmd *cobra.Command, args []string) error {
	if planOptions.Format != "json" && planOptions.Format != "tree" {
		return fmt.Errorf("unknown format %q", planOptions.Format)
	}
	ctx := cmd.Context()
	ws, err := openWorkspace(ctx, config.Default)
	if err != nil {
		return err
	}
	defer ws.Close()

	stmts := make([]*plan.PlannedStmt, len(args))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(planOptions.Concurrency)
	for i, sql := range args {
		g.Go(func() error {
			q, sess, err := ws.analyze(sql)
			if err != nil {
				return fmt.Errorf("%q: %w", sql, err)
			}
			stmts[i], err = ws.planner.Plan(gctx, q, sess, 0, nil)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, stmt := range stmts {
		if stmt == nil {
			fmt.Fprintf(out, "%s: %v\n", args[i], errNotBridged)
			continue
		}
		switch planOptions.Format {
		case "tree":
			fmt.Fprint(out, stmt.Tree())
		default:
			data, err := json.MarshalIndent(stmt, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
		}
	}
	return nil
}
