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
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"vitess.io/vitess/go/sqltypes"
	querypb "vitess.io/vitess/go/vt/proto/query"
	"vitess.io/vitess/go/vt/sqlparser"

	"github.com/vtbridge/vtbridge/go/vt/altengine"
)

// Dialect names.
const (
	DialectSQLite = "sqlite"
	DialectMySQL  = "mysql"
)

// dialect hides the differences between the supported databases.
type dialect interface {
	name() string
	open() (*sql.DB, error)
	// openSessions returns the pool session connections are taken from.
	openSessions(db *sql.DB) (*sql.DB, error)
	// createSchema makes schema exist, using the engine's anchor connection.
	createSchema(ctx context.Context, conn *sql.Conn, schema string) error
	// scope makes the existing tables of scope readable on a session
	// connection. It returns their column types when the dialect infers
	// result types.
	scope(ctx context.Context, conn *sql.Conn, scope altengine.Scope) (tableColumns, error)
	// rewrite checks that text reads only tables of scope and returns the
	// query to run on a session.
	rewrite(text string, scope altengine.Scope) (*scopedQuery, error)
	// bind prepares text for execution with params.
	bind(text string, params []altengine.Param) (string, []any, error)
	// fieldQuery returns a query with the result columns of text and no rows.
	fieldQuery(text string) string
	columnType(ct *sql.ColumnType) altengine.Type
	explainQuery(text string, analyze bool) string
}

func newDialect(opts Options, instance string) (dialect, error) {
	switch opts.Dialect {
	case DialectSQLite, "", DialectMySQL:
	default:
		return nil, fmt.Errorf("unknown alternate engine dialect %q", opts.Dialect)
	}
	parser, err := sqlparser.New(sqlparser.Options{})
	if err != nil {
		return nil, err
	}
	if opts.Dialect == DialectMySQL {
		cfg, err := mysqldriver.ParseDSN(opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to parse MySQL DSN: %v", err)
		}
		return &mysqlDialect{cfg: cfg, parser: parser}, nil
	}
	return &sqliteDialect{instance: instance, dataDir: opts.DataDir, parser: parser}, nil
}

const mainSchema = "main"

// sqliteDialect keeps every host schema in its own database. The engine's
// pool has the main schema as its main database and attaches the others
// under their own names. Sessions use a separate pool of private in-memory
// databases: the schemas they need are attached under hidden aliases and
// each scoped table is exposed as a temporary view named "schema.table".
type sqliteDialect struct {
	instance string
	dataDir  string
	parser   *sqlparser.Parser
}

func (d *sqliteDialect) name() string { return DialectSQLite }

func (d *sqliteDialect) dsn(schema string) string {
	if d.dataDir != "" {
		return "file:" + filepath.Join(d.dataDir, schema+".db")
	}
	return fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", d.instance, schema)
}

func (d *sqliteDialect) open() (*sql.DB, error) {
	return d.openDB(d.dsn(mainSchema))
}

func (d *sqliteDialect) openSessions(*sql.DB) (*sql.DB, error) {
	return d.openDB(":memory:")
}

func (d *sqliteDialect) openDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Attached databases and temporary views belong to the physical
	// connection, so connections are never reused.
	db.SetMaxIdleConns(0)
	return db, nil
}

func (d *sqliteDialect) createSchema(ctx context.Context, conn *sql.Conn, schema string) error {
	if schema == mainSchema {
		return nil
	}
	_, err := conn.ExecContext(ctx, "ATTACH DATABASE ? AS "+quoteIdent(schema, '"'), d.dsn(schema))
	return err
}

// dataAlias is the name a session attaches the database of schema under.
func dataAlias(schema string) string {
	return "data$" + schema
}

func (d *sqliteDialect) scope(ctx context.Context, conn *sql.Conn, scope altengine.Scope) (tableColumns, error) {
	attached := make(map[string]bool)
	columns := make(tableColumns, len(scope.Tables))
	for _, t := range scope.Tables {
		schema := schemaOf(t)
		alias := quoteIdent(dataAlias(schema), '"')
		if !attached[schema] {
			if _, err := conn.ExecContext(ctx, "ATTACH DATABASE ? AS "+alias, d.dsn(schema)); err != nil {
				return nil, fmt.Errorf("cannot attach schema %s: %w", schema, err)
			}
			attached[schema] = true
		}

		cols, err := d.tableColumns(ctx, conn, dataAlias(schema), t.Name)
		if err != nil {
			return nil, err
		}
		if len(cols) == 0 {
			// Statements reading a missing table fail to prepare.
			continue
		}
		columns[tableKey(schema, t.Name)] = cols

		view := fmt.Sprintf("CREATE TEMP VIEW IF NOT EXISTS %s AS SELECT * FROM %s.%s",
			quoteIdent(viewName(t), '"'), alias, quoteIdent(t.Name, '"'))
		if _, err := conn.ExecContext(ctx, view); err != nil {
			return nil, err
		}
	}
	return columns, nil
}

func (d *sqliteDialect) tableColumns(ctx context.Context, conn *sql.Conn, schema, table string) (map[string]altengine.Type, error) {
	rows, err := conn.QueryContext(ctx, "SELECT name, type FROM pragma_table_info(?, ?)", table, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols := make(map[string]altengine.Type)
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return nil, err
		}
		cols[strings.ToLower(name)] = altengine.ParseTypeName(typ)
	}
	return cols, rows.Err()
}

func (d *sqliteDialect) rewrite(text string, scope altengine.Scope) (*scopedQuery, error) {
	return scopeQuery(d.parser, text, scope, true)
}

func (d *sqliteDialect) bind(text string, params []altengine.Param) (string, []any, error) {
	args := make([]any, 0, len(params))
	for _, p := range params {
		args = append(args, sql.Named(p.Name, bindValue(p.Value)))
	}
	return text, args, nil
}

func (d *sqliteDialect) fieldQuery(text string) string {
	return "SELECT * FROM (" + text + ") LIMIT 0"
}

func (d *sqliteDialect) columnType(ct *sql.ColumnType) altengine.Type {
	return altengine.ParseTypeName(ct.DatabaseTypeName())
}

func (d *sqliteDialect) explainQuery(text string, analyze bool) string {
	return "EXPLAIN QUERY PLAN " + text
}

type mysqlDialect struct {
	cfg    *mysqldriver.Config
	parser *sqlparser.Parser
}

func (d *mysqlDialect) name() string { return DialectMySQL }

func (d *mysqlDialect) open() (*sql.DB, error) {
	cfg := d.cfg.Clone()
	cfg.ParseTime = true
	return sql.Open("mysql", cfg.FormatDSN())
}

func (d *mysqlDialect) openSessions(db *sql.DB) (*sql.DB, error) {
	return db, nil
}

func (d *mysqlDialect) createSchema(ctx context.Context, conn *sql.Conn, schema string) error {
	_, err := conn.ExecContext(ctx, "CREATE DATABASE IF NOT EXISTS "+quoteIdent(schema, '`'))
	return err
}

// scope is a no-op: the server reports result types itself, and rewrite
// keeps statements within the scoped tables.
func (d *mysqlDialect) scope(ctx context.Context, conn *sql.Conn, scope altengine.Scope) (tableColumns, error) {
	return nil, nil
}

func (d *mysqlDialect) rewrite(text string, scope altengine.Scope) (*scopedQuery, error) {
	return scopeQuery(d.parser, text, scope, false)
}

// bind substitutes the parameters into the query text, the server does not
// understand named placeholders.
func (d *mysqlDialect) bind(text string, params []altengine.Param) (string, []any, error) {
	if len(params) == 0 {
		return text, nil, nil
	}
	stmt, err := d.parser.Parse(text)
	if err != nil {
		return "", nil, err
	}
	bindVars := make(map[string]*querypb.BindVariable, len(params))
	for _, p := range params {
		bindVars[p.Name] = sqltypes.ValueBindVariable(p.Value)
	}
	query, err := sqlparser.NewParsedQuery(stmt).GenerateQuery(bindVars, nil)
	if err != nil {
		return "", nil, err
	}
	return query, nil, nil
}

func (d *mysqlDialect) fieldQuery(text string) string {
	return "SELECT * FROM (" + text + ") AS field_query LIMIT 0"
}

func (d *mysqlDialect) columnType(ct *sql.ColumnType) altengine.Type {
	name := ct.DatabaseTypeName()
	if rest, ok := strings.CutPrefix(name, "UNSIGNED "); ok {
		name = rest + " UNSIGNED"
	}
	t := altengine.ParseTypeName(name)
	if t.ID == altengine.Decimal {
		if precision, scale, ok := ct.DecimalSize(); ok {
			t.Width, t.Scale = int(precision), int(scale)
		}
	}
	return t
}

func (d *mysqlDialect) explainQuery(text string, analyze bool) string {
	if analyze {
		return "EXPLAIN ANALYZE " + text
	}
	return "EXPLAIN FORMAT=TREE " + text
}

func quoteIdent(name string, quote byte) string {
	q := string(quote)
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// bindValue converts a host value to a database/sql argument.
func bindValue(v sqltypes.Value) any {
	switch {
	case v.IsNull():
		return nil
	case v.IsSigned():
		if i, err := v.ToInt64(); err == nil {
			return i
		}
	case v.IsUnsigned():
		if u, err := v.ToUint64(); err == nil {
			return u
		}
	case v.IsFloat():
		if f, err := v.ToFloat64(); err == nil {
			return f
		}
	case v.IsBinary():
		return bytes.Clone(v.Raw())
	}
	return v.ToString()
}
