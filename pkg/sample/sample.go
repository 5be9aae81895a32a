// Package sample implements DataSample: the immutable, timestamped,
// variant-typed value that flows through the data hub. There is no manual
// reference counting — a *Sample is simply a shared, read-only value; any
// number of resources, buffers, and handler calls may hold the same
// pointer, and the garbage collector reclaims it once nothing references
// it anymore.
package sample

import (
	"fmt"
	"math"
)

// Type identifies which variant a Sample holds.
type Type int

const (
	// Trigger carries no value; its mere delivery is the signal.
	Trigger Type = iota
	// Boolean carries a true/false value.
	Boolean
	// Numeric carries a float64 value; NaN is a legal payload.
	Numeric
	// String carries a UTF-8 string value.
	String
	// JSON carries a raw JSON text value.
	JSON
)

// String renders the type name, used in log fields and error messages.
func (t Type) String() string {
	switch t {
	case Trigger:
		return "trigger"
	case Boolean:
		return "boolean"
	case Numeric:
		return "numeric"
	case String:
		return "string"
	case JSON:
		return "json"
	default:
		return "unknown"
	}
}

// MaxStringLen bounds the length of String and JSON payloads.
const MaxStringLen = 64 * 1024

// Sample is an immutable, timestamped value of exactly one Type. Zero value
// is not meaningful; use one of the New* constructors.
type Sample struct {
	timestamp float64
	typ       Type
	boolVal   bool
	numVal    float64
	strVal    string // String or JSON payload
}

// NewTrigger creates a Trigger sample.
func NewTrigger(timestamp float64) *Sample {
	return &Sample{timestamp: timestamp, typ: Trigger}
}

// NewBoolean creates a Boolean sample.
func NewBoolean(timestamp float64, v bool) *Sample {
	return &Sample{timestamp: timestamp, typ: Boolean, boolVal: v}
}

// NewNumeric creates a Numeric sample. NaN is permitted.
func NewNumeric(timestamp float64, v float64) *Sample {
	return &Sample{timestamp: timestamp, typ: Numeric, numVal: v}
}

// NewString creates a String sample. The string is copied by value (Go
// strings are themselves immutable), satisfying the "caller's buffer must
// not alias the sample" rule without any extra work.
func NewString(timestamp float64, v string) (*Sample, error) {
	if len(v) > MaxStringLen {
		return nil, fmt.Errorf("string payload too long: %d bytes", len(v))
	}
	return &Sample{timestamp: timestamp, typ: String, strVal: v}, nil
}

// NewJSON creates a JSON sample from raw JSON text. The caller is
// responsible for having produced valid JSON; ingress layers should
// validate before calling this — JSON validation belongs at ingress,
// before any sample construction.
func NewJSON(timestamp float64, raw string) (*Sample, error) {
	if len(raw) > MaxStringLen {
		return nil, fmt.Errorf("json payload too long: %d bytes", len(raw))
	}
	return &Sample{timestamp: timestamp, typ: JSON, strVal: raw}, nil
}

// Timestamp returns the sample's timestamp (seconds since epoch).
func (s *Sample) Timestamp() float64 { return s.timestamp }

// Type returns the sample's variant.
func (s *Sample) Type() Type { return s.typ }

// WithTimestamp returns a new Sample with the same value but a different
// timestamp. Used by the ingress layer to stamp "now" onto a client-created
// sample whose timestamp was 0; samples are otherwise never mutated in
// place.
func (s *Sample) WithTimestamp(ts float64) *Sample {
	cp := *s
	cp.timestamp = ts
	return &cp
}

// Bool returns the Boolean payload. Calling this on a non-Boolean sample is
// a programmer error; it returns false rather than panicking.
func (s *Sample) Bool() bool { return s.boolVal }

// Num returns the Numeric payload.
func (s *Sample) Num() float64 { return s.numVal }

// Str returns the String or JSON payload.
func (s *Sample) Str() string { return s.strVal }

// IsNaN reports whether a Numeric sample's value is NaN.
func (s *Sample) IsNaN() bool { return s.typ == Numeric && math.IsNaN(s.numVal) }

// Equal reports whether two samples carry the same type and value,
// ignoring timestamp. Used by the Observation change-by filter's
// non-numeric "reject if identical" rule.
func (s *Sample) Equal(o *Sample) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.typ != o.typ {
		return false
	}
	switch s.typ {
	case Trigger:
		return true
	case Boolean:
		return s.boolVal == o.boolVal
	case Numeric:
		if math.IsNaN(s.numVal) && math.IsNaN(o.numVal) {
			return true
		}
		return s.numVal == o.numVal
	case String, JSON:
		return s.strVal == o.strVal
	default:
		return false
	}
}
