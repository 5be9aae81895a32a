package sample

import (
	"github.com/valyala/fastjson"

	"github.com/databeam/databeam/pkg/result"
)

// Coerce converts a sample to the given target Type per the hub's fixed
// (from, to) table. The timestamp of the "from" sample carries over; the
// "from" sample itself is never mutated (Go's GC reclaims it once the
// caller drops its reference).
//
// Two of this table's cells intentionally preserve quirky source behavior
// rather than "fixing" it: a non-empty string coerced to Boolean is always
// true (including the string "false"), and a non-empty string coerced to
// Numeric always yields 1 rather than being parsed. Both are pinned by a
// concrete test scenario and are flagged, not silently changed — see
// DESIGN.md's "Open Question decisions".
func Coerce(from *Sample, to Type) (*Sample, error) {
	if from.typ == to {
		return from, nil
	}
	switch to {
	case Trigger:
		return NewTrigger(from.timestamp), nil
	case Boolean:
		return NewBoolean(from.timestamp, coerceToBool(from)), nil
	case Numeric:
		return NewNumeric(from.timestamp, coerceToNumeric(from)), nil
	case String:
		s, err := coerceToString(from)
		if err != nil {
			return nil, err
		}
		return &Sample{timestamp: from.timestamp, typ: String, strVal: s}, nil
	case JSON:
		j, err := coerceToJSON(from)
		if err != nil {
			return nil, err
		}
		return &Sample{timestamp: from.timestamp, typ: JSON, strVal: j}, nil
	default:
		return nil, result.New(result.BadParameter, "unknown target type").WithOperation("Coerce")
	}
}

func coerceToBool(from *Sample) bool {
	switch from.typ {
	case Trigger:
		return false
	case Boolean:
		return from.boolVal
	case Numeric:
		return from.numVal != 0
	case String:
		// Quirk: any non-empty string is truthy, including "false".
		return from.strVal != ""
	case JSON:
		return jsonTruthy(from.strVal)
	default:
		return false
	}
}

func jsonTruthy(raw string) bool {
	v, err := fastjson.Parse(raw)
	if err != nil {
		return false
	}
	switch v.Type() {
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse, fastjson.TypeNull:
		return false
	case fastjson.TypeNumber:
		return v.GetFloat64() != 0
	case fastjson.TypeString:
		return len(v.GetStringBytes()) > 0
	case fastjson.TypeArray:
		return len(v.GetArray()) > 0
	case fastjson.TypeObject:
		o, _ := v.Object()
		return o != nil && o.Len() > 0
	default:
		return false
	}
}

func coerceToNumeric(from *Sample) float64 {
	switch from.typ {
	case Trigger:
		return nan()
	case Boolean:
		if from.boolVal {
			return 1
		}
		return 0
	case Numeric:
		return from.numVal
	case String:
		// Quirk: any non-empty string yields 1 rather than being parsed.
		if from.strVal != "" {
			return 1
		}
		return 0
	case JSON:
		return jsonToNumeric(from.strVal)
	default:
		return nan()
	}
}

func jsonToNumeric(raw string) float64 {
	v, err := fastjson.Parse(raw)
	if err != nil {
		return nan()
	}
	switch v.Type() {
	case fastjson.TypeNumber:
		return v.GetFloat64()
	case fastjson.TypeTrue:
		return 1
	case fastjson.TypeFalse, fastjson.TypeNull:
		return 0
	case fastjson.TypeString:
		if len(v.GetStringBytes()) > 0 {
			return 1
		}
		return 0
	default:
		return nan()
	}
}

func coerceToString(from *Sample) (string, error) {
	switch from.typ {
	case Trigger:
		return "", nil
	case Boolean:
		if from.boolVal {
			return "true", nil
		}
		return "false", nil
	case Numeric:
		return formatFloat(from.numVal), nil
	case String:
		return from.strVal, nil
	case JSON:
		// Raw JSON text, verbatim.
		return from.strVal, nil
	default:
		return "", result.New(result.BadParameter, "unknown source type").WithOperation("Coerce")
	}
}

func coerceToJSON(from *Sample) (string, error) {
	switch from.typ {
	case Trigger:
		return "null", nil
	case Boolean:
		if from.boolVal {
			return "true", nil
		}
		return "false", nil
	case Numeric:
		return formatFloat(from.numVal), nil
	case String:
		return quoteTruncated(from.strVal), nil
	case JSON:
		return from.strVal, nil
	default:
		return "", result.New(result.BadParameter, "unknown source type").WithOperation("Coerce")
	}
}

// quoteTruncated quotes and escapes s for embedding in JSON, truncating to
// MaxStringLen bytes with a trailing closing quote if the escaped form
// would overflow. Exactly one byte is reserved for the closing quote: the
// string is cut to MaxStringLen-1 bytes and the quote appended after, so
// the closing quote itself is never clipped. A cut that lands inside an
// escape sequence or a multi-byte character is not repaired.
func quoteTruncated(s string) string {
	q := quoteJSON(s)
	if len(q) <= MaxStringLen {
		return q
	}
	return q[:MaxStringLen-1] + `"`
}

func nan() float64 {
	var zero float64
	return zero / zero
}
