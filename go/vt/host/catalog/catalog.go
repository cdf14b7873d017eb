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

// Package catalog is the host's read-only catalog: schemas, tables and the
// type registry consulted by the planning bridge.
package catalog

import (
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/patrickmn/go-cache"
	"github.com/tidwall/btree"

	"vitess.io/vitess/go/mysql/collations"
	"vitess.io/vitess/go/sqltypes"
	querypb "vitess.io/vitess/go/vt/proto/query"
	vtrpcpb "vitess.io/vitess/go/vt/proto/vtrpc"
	"vitess.io/vitess/go/vt/sqlparser"
	"vitess.io/vitess/go/vt/vterrors"
)

// DefaultSchema is the schema created with every catalog.
const DefaultSchema = "main"

// Column is a table column.
type Column struct {
	Name string
	Type querypb.Type
}

// Table is a relation known to the host.
type Table struct {
	ID      uint32
	Schema  string
	Name    string
	Columns []Column
}

// QualifiedName returns schema.name.
func (t *Table) QualifiedName() string {
	return t.Schema + "." + t.Name
}

// FindColumn returns the ordinal of the named column, compared case-insensitively.
func (t *Table) FindColumn(name string) (int, bool) {
	for i, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return i, true
		}
	}
	return -1, false
}

// TypeEntry is the catalog row of a host type.
type TypeEntry struct {
	Type      querypb.Type
	Name      string
	Typmod    int32
	Collation collations.ID
}

// Catalog is safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	schemas map[string]bool
	tables  *btree.BTreeG[*Table]
	types   map[querypb.Type]TypeEntry
	nextID  uint32

	// typeCache fronts the type registry the way a syscache fronts a
	// catalog table. Entries are invalidated by RegisterType and RemoveType.
	typeCache *cache.Cache
}

func tableLess(a, b *Table) bool {
	if a.Schema != b.Schema {
		return a.Schema < b.Schema
	}
	return a.Name < b.Name
}

// New returns a catalog holding the default schema and the builtin types.
func New() *Catalog {
	c := &Catalog{
		schemas:   map[string]bool{DefaultSchema: true},
		tables:    btree.NewBTreeG(tableLess),
		types:     make(map[querypb.Type]TypeEntry),
		nextID:    16384,
		typeCache: cache.New(cache.NoExpiration, 0),
	}
	for _, e := range builtinTypes() {
		c.types[e.Type] = e
	}
	return c
}

func builtinTypes() []TypeEntry {
	numeric := func(t querypb.Type, name string) TypeEntry {
		return TypeEntry{Type: t, Name: name, Typmod: -1, Collation: collations.CollationBinaryID}
	}
	text := func(t querypb.Type, name string) TypeEntry {
		return TypeEntry{Type: t, Name: name, Typmod: -1, Collation: collations.CollationUtf8mb4ID}
	}
	return []TypeEntry{
		numeric(sqltypes.Int8, "tinyint"),
		numeric(sqltypes.Uint8, "tinyint unsigned"),
		numeric(sqltypes.Int16, "smallint"),
		numeric(sqltypes.Uint16, "smallint unsigned"),
		numeric(sqltypes.Int24, "mediumint"),
		numeric(sqltypes.Uint24, "mediumint unsigned"),
		numeric(sqltypes.Int32, "int"),
		numeric(sqltypes.Uint32, "int unsigned"),
		numeric(sqltypes.Int64, "bigint"),
		numeric(sqltypes.Uint64, "bigint unsigned"),
		numeric(sqltypes.Float32, "float"),
		numeric(sqltypes.Float64, "double"),
		numeric(sqltypes.Decimal, "decimal"),
		numeric(sqltypes.Date, "date"),
		numeric(sqltypes.Time, "time"),
		numeric(sqltypes.Datetime, "datetime"),
		numeric(sqltypes.Timestamp, "timestamp"),
		numeric(sqltypes.Year, "year"),
		numeric(sqltypes.Bit, "bit"),
		numeric(sqltypes.VarBinary, "varbinary"),
		numeric(sqltypes.Binary, "binary"),
		numeric(sqltypes.Blob, "blob"),
		text(sqltypes.VarChar, "varchar"),
		text(sqltypes.Char, "char"),
		text(sqltypes.Text, "text"),
		text(sqltypes.Enum, "enum"),
		text(sqltypes.Set, "set"),
		text(sqltypes.TypeJSON, "json"),
	}
}

func key(name string) string {
	return strings.ToLower(name)
}

// CreateSchema registers a schema. It is a no-op when the schema exists.
func (c *Catalog) CreateSchema(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schemas[key(name)] = true
}

// HasSchema reports whether the schema exists.
func (c *Catalog) HasSchema(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.schemas[key(name)]
}

// Schemas returns every schema name in sorted order.
func (c *Catalog) Schemas() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for s := range c.schemas {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// AddTable registers a table in an existing schema and assigns its ID.
func (c *Catalog) AddTable(t *Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t.Schema = key(t.Schema)
	t.Name = key(t.Name)
	if !c.schemas[t.Schema] {
		return vterrors.NewErrorf(vtrpcpb.Code_NOT_FOUND, vterrors.BadDb, "Unknown database '%s'", t.Schema)
	}
	if _, ok := c.tables.Get(t); ok {
		return vterrors.Errorf(vtrpcpb.Code_ALREADY_EXISTS, "table '%s' already exists", t.QualifiedName())
	}
	c.nextID++
	t.ID = c.nextID
	c.tables.Set(t)
	return nil
}

// FindTable looks a table up by schema and name.
func (c *Catalog) FindTable(schema, name string) (*Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tables.Get(&Table{Schema: key(schema), Name: key(name)})
}

// ResolveTable resolves an unqualified table name against a search path.
// The first schema on the path that holds the table wins.
func (c *Catalog) ResolveTable(searchPath []string, name string) (*Table, error) {
	for _, schema := range searchPath {
		if t, ok := c.FindTable(schema, name); ok {
			return t, nil
		}
	}
	if len(searchPath) == 0 {
		return nil, vterrors.NewErrorf(vtrpcpb.Code_FAILED_PRECONDITION, vterrors.NoDB, "no schema has been selected to resolve table '%s'", name)
	}
	return nil, vterrors.NewErrorf(vtrpcpb.Code_NOT_FOUND, vterrors.NoSuchTable, "table '%s' does not exist", name)
}

// IsVisible reports whether t would be found by its bare name under
// searchPath, that is whether it is the first match on the path.
func (c *Catalog) IsVisible(searchPath []string, t *Table) bool {
	found, err := c.ResolveTable(searchPath, t.Name)
	if err != nil {
		return false
	}
	return found.Schema == t.Schema && found.Name == t.Name
}

// Tables returns every table ordered by schema and name.
func (c *Catalog) Tables() []*Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*Table
	c.tables.Scan(func(t *Table) bool {
		out = append(out, t)
		return true
	})
	return out
}

// RegisterType adds or replaces a type entry.
func (c *Catalog) RegisterType(e TypeEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types[e.Type] = e
	c.typeCache.Delete(typeKey(e.Type))
}

// RemoveType drops a type entry so lookups for it fail.
func (c *Catalog) RemoveType(t querypb.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.types, t)
	c.typeCache.Delete(typeKey(t))
}

// LookupType returns the catalog entry for a host type id.
func (c *Catalog) LookupType(t querypb.Type) (*TypeEntry, bool) {
	k := typeKey(t)
	if cached, ok := c.typeCache.Get(k); ok {
		return cached.(*TypeEntry), true
	}

	// Cache fills happen under the lock, ordered against RemoveType.
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.types[t]
	if !ok {
		return nil, false
	}
	entry := e
	c.typeCache.Set(k, &entry, cache.NoExpiration)
	return &entry, true
}

func typeKey(t querypb.Type) string {
	return strconv.Itoa(int(t))
}

// LoadDDL registers every CREATE TABLE statement of sql. Unqualified tables
// land in defaultSchema and unknown schemas are created on the fly.
func (c *Catalog) LoadDDL(parser *sqlparser.Parser, sql, defaultSchema string) error {
	pieces, err := parser.SplitStatementToPieces(sql)
	if err != nil {
		return vterrors.Wrapf(err, "splitting DDL")
	}
	for _, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		stmt, err := parser.Parse(piece)
		if err != nil {
			return vterrors.Wrapf(err, "parsing %q", piece)
		}
		switch stmt := stmt.(type) {
		case *sqlparser.CreateTable:
			if err := c.addCreateTable(stmt, defaultSchema); err != nil {
				return err
			}
		case *sqlparser.CreateDatabase:
			c.CreateSchema(stmt.DBName.String())
		default:
			return vterrors.Errorf(vtrpcpb.Code_INVALID_ARGUMENT, "unsupported DDL statement: %s", sqlparser.String(stmt))
		}
	}
	return nil
}

func (c *Catalog) addCreateTable(stmt *sqlparser.CreateTable, defaultSchema string) error {
	schema := defaultSchema
	if !stmt.Table.Qualifier.IsEmpty() {
		schema = stmt.Table.Qualifier.String()
	}
	c.CreateSchema(schema)

	t := &Table{Schema: schema, Name: stmt.Table.Name.String()}
	if stmt.TableSpec != nil {
		for _, col := range stmt.TableSpec.Columns {
			t.Columns = append(t.Columns, Column{
				Name: col.Name.String(),
				Type: col.Type.SQLType(),
			})
		}
	}
	return c.AddTable(t)
}
