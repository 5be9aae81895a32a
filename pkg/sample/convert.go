package sample

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/databeam/databeam/pkg/result"
)

// ConvertToString renders s as a human-readable UTF-8 string into a buffer
// bounded by maxLen bytes, failing with result.Overflow if it cannot fit.
func ConvertToString(s *Sample, maxLen int) (string, error) {
	var out string
	switch s.typ {
	case Trigger:
		out = "trigger"
	case Boolean:
		if s.boolVal {
			out = "true"
		} else {
			out = "false"
		}
	case Numeric:
		out = formatFloat(s.numVal)
	case String:
		out = s.strVal
	case JSON:
		out = s.strVal
	default:
		return "", result.New(result.Fault, fmt.Sprintf("unknown sample type %d", s.typ))
	}
	if len(out) > maxLen {
		return "", result.New(result.Overflow, "ConvertToString: buffer too small").WithOperation("ConvertToString")
	}
	return out, nil
}

// formatFloat renders a float64 in a form consistent for both human
// display and JSON embedding. NaN and +/-Inf, which are not valid JSON
// number tokens, are rendered as bare implementation-defined tokens; callers
// that need strict JSON must special-case them (see ConvertToJson).
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

// ConvertToJson renders s as JSON text into a buffer bounded by maxLen
// bytes: Trigger becomes `null`, Boolean becomes `true`/`false`, Numeric
// renders via formatFloat (NaN/Inf as bare tokens, an implementation-defined
// textual form since standard JSON has no literal for either), String and
// JSON values are quoted/escaped or passed through respectively. Fails with
// result.Overflow if the rendering cannot fit in maxLen bytes — unlike the
// bounded-buffer coercion helper in coerce.go, this never silently
// truncates.
func ConvertToJson(s *Sample, maxLen int) (string, error) {
	var out string
	switch s.typ {
	case Trigger:
		out = "null"
	case Boolean:
		if s.boolVal {
			out = "true"
		} else {
			out = "false"
		}
	case Numeric:
		out = formatFloat(s.numVal)
	case String:
		out = quoteJSON(s.strVal)
	case JSON:
		out = s.strVal
	default:
		return "", result.New(result.Fault, fmt.Sprintf("unknown sample type %d", s.typ))
	}
	if len(out) > maxLen {
		return "", result.New(result.Overflow, "ConvertToJson: buffer too small").WithOperation("ConvertToJson")
	}
	return out, nil
}

// quoteJSON quotes and escapes a string for embedding in JSON text.
func quoteJSON(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
