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

package executor

import (
	"fmt"
	"strconv"
	"time"

	"vitess.io/vitess/go/sqltypes"
	querypb "vitess.io/vitess/go/vt/proto/query"
	vtrpcpb "vitess.io/vitess/go/vt/proto/vtrpc"
	"vitess.io/vitess/go/vt/vterrors"
)

const (
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04:05.999999"
	datetimeLayout = "2006-01-02 15:04:05.999999"
)

// toValue converts a value returned by the alternate engine into a host
// value of type typ. Numeric values are validated against typ.
func toValue(v any, typ querypb.Type) (sqltypes.Value, error) {
	var raw []byte
	switch v := v.(type) {
	case nil:
		return sqltypes.NULL, nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case int64:
		raw = strconv.AppendInt(nil, v, 10)
	case int32:
		raw = strconv.AppendInt(nil, int64(v), 10)
	case int:
		raw = strconv.AppendInt(nil, int64(v), 10)
	case uint64:
		raw = strconv.AppendUint(nil, v, 10)
	case float64:
		raw = appendFloat(v, typ)
	case float32:
		raw = strconv.AppendFloat(nil, float64(v), 'g', -1, 32)
	case bool:
		if v {
			raw = []byte("1")
		} else {
			raw = []byte("0")
		}
	case time.Time:
		raw = appendTime(v, typ)
	default:
		raw = fmt.Append(nil, v)
	}

	if sqltypes.IsIntegral(typ) || sqltypes.IsFloat(typ) || typ == sqltypes.Decimal {
		value, err := sqltypes.NewValue(typ, raw)
		if err != nil {
			return sqltypes.NULL, vterrors.Errorf(vtrpcpb.Code_INTERNAL, "alternate engine returned %q for a %s column: %v", raw, typ, err)
		}
		return value, nil
	}
	return sqltypes.MakeTrusted(typ, raw), nil
}

func appendFloat(f float64, typ querypb.Type) []byte {
	switch typ {
	case sqltypes.Float32:
		return strconv.AppendFloat(nil, f, 'g', -1, 32)
	case sqltypes.Decimal:
		return strconv.AppendFloat(nil, f, 'f', -1, 64)
	default:
		return strconv.AppendFloat(nil, f, 'g', -1, 64)
	}
}

func appendTime(t time.Time, typ querypb.Type) []byte {
	switch typ {
	case sqltypes.Date:
		return t.AppendFormat(nil, dateLayout)
	case sqltypes.Time:
		return t.AppendFormat(nil, timeLayout)
	case sqltypes.Timestamp:
		return t.UTC().AppendFormat(nil, datetimeLayout)
	default:
		return t.AppendFormat(nil, datetimeLayout)
	}
}
