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

package altengine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TypeID is the logical type identifier of a result column as reported by
// the alternate engine.
type TypeID int

// Logical types understood by the alternate engine.
const (
	Invalid TypeID = iota
	SQLNull
	Boolean
	TinyInt
	SmallInt
	Integer
	BigInt
	HugeInt
	UTinyInt
	USmallInt
	UInteger
	UBigInt
	Float
	Double
	Decimal
	Varchar
	Char
	Blob
	Date
	Time
	Timestamp
	TimestampTZ
	Interval
	UUID
	JSON
	Bit
	Enum
	List
	Struct
	Map
)

var typeNames = map[TypeID]string{
	Invalid:     "INVALID",
	SQLNull:     "NULL",
	Boolean:     "BOOLEAN",
	TinyInt:     "TINYINT",
	SmallInt:    "SMALLINT",
	Integer:     "INTEGER",
	BigInt:      "BIGINT",
	HugeInt:     "HUGEINT",
	UTinyInt:    "UTINYINT",
	USmallInt:   "USMALLINT",
	UInteger:    "UINTEGER",
	UBigInt:     "UBIGINT",
	Float:       "FLOAT",
	Double:      "DOUBLE",
	Decimal:     "DECIMAL",
	Varchar:     "VARCHAR",
	Char:        "CHAR",
	Blob:        "BLOB",
	Date:        "DATE",
	Time:        "TIME",
	Timestamp:   "TIMESTAMP",
	TimestampTZ: "TIMESTAMP WITH TIME ZONE",
	Interval:    "INTERVAL",
	UUID:        "UUID",
	JSON:        "JSON",
	Bit:         "BIT",
	Enum:        "ENUM",
	List:        "LIST",
	Struct:      "STRUCT",
	Map:         "MAP",
}

func (id TypeID) String() string {
	if name, ok := typeNames[id]; ok {
		return name
	}
	return fmt.Sprintf("TypeID(%d)", int(id))
}

// Type is a result column type descriptor. Width and Scale are only
// meaningful for DECIMAL and the sized character types.
type Type struct {
	ID    TypeID
	Width int
	Scale int
}

// NewType returns an unsized Type.
func NewType(id TypeID) Type {
	return Type{ID: id}
}

func (t Type) String() string {
	switch {
	case t.ID == Decimal && t.Width > 0:
		return fmt.Sprintf("DECIMAL(%d,%d)", t.Width, t.Scale)
	case (t.ID == Varchar || t.ID == Char) && t.Width > 0:
		return fmt.Sprintf("%s(%d)", t.ID, t.Width)
	default:
		return t.ID.String()
	}
}

var typeNameRe = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_ ]*?)\s*(?:\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\))?\s*(UNSIGNED)?\s*$`)

// ParseTypeName maps a declared column type name to a logical type. Exact
// names are matched first; anything else falls back to column affinity
// rules (INT, CHAR/CLOB/TEXT, BLOB, REAL/FLOA/DOUB). An empty or
// unrecognizable name yields Invalid.
func ParseTypeName(name string) Type {
	m := typeNameRe.FindStringSubmatch(strings.ToUpper(name))
	if m == nil {
		return NewType(Invalid)
	}
	base := strings.Join(strings.Fields(m[1]), " ")
	unsigned := m[4] != ""
	width, _ := strconv.Atoi(m[2])
	scale, _ := strconv.Atoi(m[3])

	switch base {
	case "BOOL", "BOOLEAN":
		return NewType(Boolean)
	case "TINYINT", "INT1":
		if unsigned {
			return NewType(UTinyInt)
		}
		return NewType(TinyInt)
	case "SMALLINT", "INT2":
		if unsigned {
			return NewType(USmallInt)
		}
		return NewType(SmallInt)
	case "MEDIUMINT", "INT", "INT4", "SIGNED":
		if unsigned {
			return NewType(UInteger)
		}
		return NewType(Integer)
	case "INTEGER", "BIGINT", "INT8", "LONG":
		// INTEGER is the 64-bit storage class in the embedded engine.
		if unsigned {
			return NewType(UBigInt)
		}
		return NewType(BigInt)
	case "HUGEINT", "INT128":
		return NewType(HugeInt)
	case "FLOAT", "FLOAT4":
		return NewType(Float)
	case "DOUBLE", "DOUBLE PRECISION", "FLOAT8", "REAL":
		return NewType(Double)
	case "DECIMAL", "NUMERIC", "DEC":
		return Type{ID: Decimal, Width: width, Scale: scale}
	case "VARCHAR", "CHARACTER VARYING", "NVARCHAR", "TEXT", "STRING", "CLOB":
		return Type{ID: Varchar, Width: width}
	case "CHAR", "CHARACTER", "NCHAR":
		return Type{ID: Char, Width: width}
	case "BLOB", "BYTEA", "VARBINARY", "BINARY":
		return NewType(Blob)
	case "DATE":
		return NewType(Date)
	case "TIME":
		return NewType(Time)
	case "DATETIME", "TIMESTAMP":
		return NewType(Timestamp)
	case "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE":
		return NewType(TimestampTZ)
	case "INTERVAL":
		return NewType(Interval)
	case "UUID":
		return NewType(UUID)
	case "JSON":
		return NewType(JSON)
	case "BIT":
		return NewType(Bit)
	case "ENUM":
		return NewType(Enum)
	case "NULL":
		return NewType(SQLNull)
	}

	switch {
	case strings.Contains(base, "INT"):
		return NewType(BigInt)
	case strings.Contains(base, "CHAR"), strings.Contains(base, "CLOB"), strings.Contains(base, "TEXT"):
		return Type{ID: Varchar, Width: width}
	case strings.Contains(base, "BLOB"):
		return NewType(Blob)
	case strings.Contains(base, "REAL"), strings.Contains(base, "FLOA"), strings.Contains(base, "DOUB"):
		return NewType(Double)
	}
	return NewType(Invalid)
}
