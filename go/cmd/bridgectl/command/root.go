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
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/vtbridge/vtbridge/go/vt/bridge/config"
	"github.com/vtbridge/vtbridge/go/vt/log"
	"github.com/vtbridge/vtbridge/go/vt/utils"
)

var (
	configFile  string
	watchConfig bool
	ddlFile     string
	seedFile    string
	searchPath  = []string{"main"}

	// Root is the bridgectl root command.
	Root = &cobra.Command{
		Use:   "bridgectl",
		Short: "bridgectl plans host queries on an alternate engine and executes them.",
		Long: "`bridgectl` loads a schema into a host catalog and an alternate engine, " +
			"then replans queries so they run on the alternate engine.\n\n" +
			"Queries the alternate engine cannot serve fall back to native planning.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := log.Init(cmd.Flags()); err != nil {
				return err
			}
			if configFile == "" {
				return nil
			}
			if watchConfig {
				return config.Default.Watch(configFile)
			}
			return config.Default.Load(afero.NewOsFs(), configFile)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			log.Flush()
		},
	}
)

func init() {
	fs := Root.PersistentFlags()
	log.RegisterFlags(fs)
	config.Default.RegisterFlags(fs)

	utils.SetFlagStringVar(fs, &configFile, "config-file", configFile, "Bridge configuration file. Its settings are applied after the command line flags.")
	utils.SetFlagBoolVar(fs, &watchConfig, "watch-config", watchConfig, "Keep watching the configuration file and reload the explain-analyze setting when it changes.")
	utils.SetFlagStringVar(fs, &ddlFile, "schema", ddlFile, "File with the CREATE TABLE statements loaded into both the host catalog and the alternate engine.")
	utils.SetFlagStringVar(fs, &seedFile, "seed", seedFile, "File with statements run verbatim on the alternate engine after the schema is loaded.")
	utils.SetFlagStringSliceVar(fs, &searchPath, "search-path", searchPath, "Schemas searched, in order, to resolve unqualified table names.")
	Root.MarkPersistentFlagFilename("config-file")
	Root.MarkPersistentFlagFilename("schema", "sql")
	Root.MarkPersistentFlagFilename("seed", "sql")

	Root.AddCommand(Plan())
	Root.AddCommand(Exec())
	Root.AddCommand(Raw())
	Root.AddCommand(Shell())
}
