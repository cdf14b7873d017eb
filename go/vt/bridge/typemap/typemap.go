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

// Package typemap translates between the alternate engine's logical types
// and host column types. The translation is an explicit table: a type with
// no host equivalent maps to Invalid and is never narrowed to a lossy
// substitute.
package typemap

import (
	"vitess.io/vitess/go/sqltypes"
	querypb "vitess.io/vitess/go/vt/proto/query"

	"github.com/vtbridge/vtbridge/go/vt/altengine"
)

// Invalid is returned by ToHostType for engine types the host cannot
// represent. It is not a member of querypb.Type.
const Invalid = querypb.Type(-1)

var engineToHost = map[altengine.TypeID]querypb.Type{
	altengine.Boolean:     sqltypes.Uint8,
	altengine.TinyInt:     sqltypes.Int8,
	altengine.SmallInt:    sqltypes.Int16,
	altengine.Integer:     sqltypes.Int32,
	altengine.BigInt:      sqltypes.Int64,
	altengine.HugeInt:     sqltypes.Decimal,
	altengine.UTinyInt:    sqltypes.Uint8,
	altengine.USmallInt:   sqltypes.Uint16,
	altengine.UInteger:    sqltypes.Uint32,
	altengine.UBigInt:     sqltypes.Uint64,
	altengine.Float:       sqltypes.Float32,
	altengine.Double:      sqltypes.Float64,
	altengine.Decimal:     sqltypes.Decimal,
	altengine.Varchar:     sqltypes.VarChar,
	altengine.Char:        sqltypes.Char,
	altengine.Blob:        sqltypes.Blob,
	altengine.Date:        sqltypes.Date,
	altengine.Time:        sqltypes.Time,
	altengine.Timestamp:   sqltypes.Datetime,
	altengine.TimestampTZ: sqltypes.Timestamp,
	altengine.JSON:        sqltypes.TypeJSON,
	altengine.Bit:         sqltypes.Bit,
	altengine.Enum:        sqltypes.Enum,
}

var hostToEngine = map[querypb.Type]altengine.TypeID{
	sqltypes.Int8:      altengine.TinyInt,
	sqltypes.Uint8:     altengine.UTinyInt,
	sqltypes.Int16:     altengine.SmallInt,
	sqltypes.Uint16:    altengine.USmallInt,
	sqltypes.Int24:     altengine.Integer,
	sqltypes.Uint24:    altengine.UInteger,
	sqltypes.Int32:     altengine.Integer,
	sqltypes.Uint32:    altengine.UInteger,
	sqltypes.Int64:     altengine.BigInt,
	sqltypes.Uint64:    altengine.UBigInt,
	sqltypes.Year:      altengine.SmallInt,
	sqltypes.Float32:   altengine.Float,
	sqltypes.Float64:   altengine.Double,
	sqltypes.Decimal:   altengine.Decimal,
	sqltypes.Text:      altengine.Varchar,
	sqltypes.VarChar:   altengine.Varchar,
	sqltypes.Char:      altengine.Char,
	sqltypes.Blob:      altengine.Blob,
	sqltypes.VarBinary: altengine.Blob,
	sqltypes.Binary:    altengine.Blob,
	sqltypes.Date:      altengine.Date,
	sqltypes.Time:      altengine.Time,
	sqltypes.Datetime:  altengine.Timestamp,
	sqltypes.Timestamp: altengine.TimestampTZ,
	sqltypes.TypeJSON:  altengine.JSON,
	sqltypes.Bit:       altengine.Bit,
	sqltypes.Enum:      altengine.Enum,
	sqltypes.Set:       altengine.Varchar,
	sqltypes.Null:      altengine.SQLNull,
}

// ToHostType returns the host type for an engine result type, or Invalid.
// Width and scale do not influence the mapping; the host type modifier
// comes from the host catalog.
func ToHostType(t altengine.Type) querypb.Type {
	if ht, ok := engineToHost[t.ID]; ok {
		return ht
	}
	return Invalid
}

// IsValid reports whether t is a real host type.
func IsValid(t querypb.Type) bool {
	return t != Invalid
}

// ToEngineType returns the engine type used to bind a host parameter value.
// Host types with no engine counterpart bind as VARCHAR, the engine's
// implicit cast target for literals.
func ToEngineType(t querypb.Type) altengine.Type {
	if id, ok := hostToEngine[t]; ok {
		return altengine.NewType(id)
	}
	return altengine.NewType(altengine.Varchar)
}
