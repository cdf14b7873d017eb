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
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"vitess.io/vitess/go/sqltypes"
	"vitess.io/vitess/go/vt/sqlparser"

	"github.com/vtbridge/vtbridge/go/vt/altengine/sqlengine"
	"github.com/vtbridge/vtbridge/go/vt/bridge/config"
	"github.com/vtbridge/vtbridge/go/vt/bridge/executor"
	"github.com/vtbridge/vtbridge/go/vt/bridge/planner"
	"github.com/vtbridge/vtbridge/go/vt/host/catalog"
	"github.com/vtbridge/vtbridge/go/vt/host/querytree"
	"github.com/vtbridge/vtbridge/go/vt/host/session"
	"github.com/vtbridge/vtbridge/go/vt/log"
)

// workspace is a host catalog and an alternate engine loaded with the
// same schema.
type workspace struct {
	parser   *sqlparser.Parser
	catalog  *catalog.Catalog
	engine   *sqlengine.Engine
	planner  *planner.Planner
	executor *executor.Executor
}

func openWorkspace(ctx context.Context, cfg *config.Config) (*workspace, error) {
	parser, err := sqlparser.New(sqlparser.Options{})
	if err != nil {
		return nil, err
	}
	engine, err := sqlengine.Open(ctx, sqlengine.Options{Dialect: cfg.Engine(), DSN: cfg.DSN(), DataDir: cfg.DataDir()})
	if err != nil {
		return nil, err
	}
	ws := &workspace{parser: parser, catalog: catalog.New(), engine: engine}
	ws.planner = planner.New(ws.catalog, engine, cfg)
	ws.executor = executor.New(ws.catalog, engine, cfg)

	if err := ws.loadSchema(ctx, ddlFile); err != nil {
		engine.Close()
		return nil, err
	}
	if err := ws.seed(ctx, seedFile); err != nil {
		engine.Close()
		return nil, err
	}
	return ws, nil
}

func (ws *workspace) Close() error {
	return ws.engine.Close()
}

// loadSchema creates the tables of the DDL file in the catalog, then in the
// engine with every table name qualified by its schema.
func (ws *workspace) loadSchema(ctx context.Context, path string) error {
	if err := ws.engine.EnsureSchema(ctx, catalog.DefaultSchema); err != nil {
		return err
	}
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := ws.catalog.LoadDDL(ws.parser, string(data), catalog.DefaultSchema); err != nil {
		return err
	}
	pieces, err := ws.parser.SplitStatementToPieces(string(data))
	if err != nil {
		return err
	}
	for _, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		stmt, err := ws.parser.Parse(piece)
		if err != nil {
			return err
		}
		switch stmt := stmt.(type) {
		case *sqlparser.CreateDatabase:
			if err := ws.engine.EnsureSchema(ctx, stmt.DBName.String()); err != nil {
				return err
			}
		case *sqlparser.CreateTable:
			if stmt.Table.Qualifier.IsEmpty() {
				stmt.Table.Qualifier = sqlparser.NewIdentifierCS(catalog.DefaultSchema)
			}
			if err := ws.engine.EnsureSchema(ctx, stmt.Table.Qualifier.String()); err != nil {
				return err
			}
			if err := ws.engine.Exec(ctx, sqlparser.String(stmt)); err != nil {
				return fmt.Errorf("creating %s on the alternate engine: %w", sqlparser.String(stmt.Table), err)
			}
		}
	}
	log.InfoS("loaded schema", "file", path, "tables", len(ws.catalog.Tables()))
	return nil
}

func (ws *workspace) seed(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	pieces, err := ws.parser.SplitStatementToPieces(string(data))
	if err != nil {
		return err
	}
	seeded := 0
	for _, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		if log.V(2) {
			log.Infof("seeding: %s", piece)
		}
		if err := ws.engine.Exec(ctx, piece); err != nil {
			return fmt.Errorf("seeding %q: %w", piece, err)
		}
		seeded++
	}
	log.Infof("ran %d seed statements from %s", seeded, path)
	return nil
}

// analyze parses sql in a fresh host session.
func (ws *workspace) analyze(sql string) (*querytree.Query, *session.Session, error) {
	sess := session.New(searchPath...)
	q, err := querytree.Parse(ws.parser, sql, ws.catalog, sess)
	if err != nil {
		return nil, nil, err
	}
	return q, sess, nil
}

func printResult(w io.Writer, result *sqltypes.Result) error {
	table := tablewriter.NewWriter(w)
	names := make([]string, len(result.Fields))
	for i, f := range result.Fields {
		names[i] = f.Name
	}
	table.Header(names)
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v.IsNull() {
				cells[i] = "NULL"
				continue
			}
			cells[i] = v.ToString()
		}
		if err := table.Append(cells); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s rows\n", humanize.Comma(int64(len(result.Rows))))
	return err
}
