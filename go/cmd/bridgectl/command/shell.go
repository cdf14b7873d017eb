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
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vtbridge/vtbridge/go/vt/bridge/config"
	"github.com/vtbridge/vtbridge/go/vt/log"
)

// Shell returns the shell command.
func Shell() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Reads semicolon terminated queries from standard input and runs each one.",
		Long: "Every query is planned and executed like the exec command. Errors are printed " +
			"and do not stop the shell. With --watch-config, changes to explain-analyze in the " +
			"configuration file apply to the next query.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := openWorkspace(ctx, config.Default)
			if err != nil {
				return err
			}
			defer ws.Close()

			out := cmd.OutOrStdout()
			scanner := bufio.NewScanner(cmd.InOrStdin())
			var buf strings.Builder
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				buf.WriteString(line)
				if !strings.HasSuffix(line, ";") {
					buf.WriteByte(' ')
					continue
				}
				sql := strings.TrimSuffix(buf.String(), ";")
				buf.Reset()
				if err := ws.exec(ctx, out, sql); err != nil {
					log.Warningf("shell query %q failed: %v", sql, err)
					fmt.Fprintf(out, "ERROR: %v\n", err)
				}
			}
			return scanner.Err()
		},
	}
}
