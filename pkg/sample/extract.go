package sample

import (
	"strconv"
	"strings"

	"github.com/valyala/fastjson"

	"github.com/databeam/databeam/pkg/result"
)

// extractToken is one step of an ExtractJson path: either a ".member"
// object-field access or a "[index]" array access.
type extractToken struct {
	member string
	index  int
	isIdx  bool
}

// parseExtractSpec parses the grammar `member ( . member | [ index ] )*`
// into a token list. The leading member has no preceding '.'.
func parseExtractSpec(spec string) ([]extractToken, error) {
	if spec == "" {
		return nil, result.New(result.BadParameter, "empty json extraction spec")
	}
	var tokens []extractToken
	i := 0
	n := len(spec)

	readMember := func() (string, error) {
		start := i
		for i < n && spec[i] != '.' && spec[i] != '[' {
			i++
		}
		if i == start {
			return "", result.New(result.BadParameter, "empty member in json extraction spec")
		}
		return spec[start:i], nil
	}

	m, err := readMember()
	if err != nil {
		return nil, err
	}
	tokens = append(tokens, extractToken{member: m})

	for i < n {
		switch spec[i] {
		case '.':
			i++
			m, err := readMember()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, extractToken{member: m})
		case '[':
			i++
			start := i
			for i < n && spec[i] != ']' {
				i++
			}
			if i >= n {
				return nil, result.New(result.BadParameter, "unterminated '[' in json extraction spec")
			}
			idxStr := spec[start:i]
			i++ // consume ']'
			idx, err := strconv.Atoi(strings.TrimSpace(idxStr))
			if err != nil {
				return nil, result.New(result.BadParameter, "non-numeric index in json extraction spec")
			}
			tokens = append(tokens, extractToken{index: idx, isIdx: true})
		default:
			return nil, result.New(result.BadParameter, "unexpected character in json extraction spec")
		}
	}
	return tokens, nil
}

// ExtractJson walks s (which must be a JSON sample) per the extraction spec
// grammar `member ( . member | [ index ] )*` and returns a new sample whose
// type is inferred from the extracted fragment (object/array fragments
// become a new JSON sample; scalars become their natural type). Returns
// result.NotFound on a missing path or malformed spec, or if s is not JSON.
func ExtractJson(s *Sample, spec string) (*Sample, error) {
	if s.typ != JSON {
		return nil, result.New(result.NotFound, "ExtractJson: sample is not JSON").WithOperation("ExtractJson")
	}
	tokens, err := parseExtractSpec(spec)
	if err != nil {
		return nil, result.Wrap(result.NotFound, "ExtractJson: malformed spec", err).WithOperation("ExtractJson")
	}

	root, err := fastjson.Parse(s.strVal)
	if err != nil {
		return nil, result.Wrap(result.BadParameter, "ExtractJson: invalid JSON", err).WithOperation("ExtractJson")
	}

	cur := root
	for _, tok := range tokens {
		if tok.isIdx {
			arr, err := cur.Array()
			if err != nil {
				return nil, result.New(result.NotFound, "ExtractJson: index into non-array").WithOperation("ExtractJson")
			}
			if tok.index < 0 || tok.index >= len(arr) {
				return nil, result.New(result.NotFound, "ExtractJson: index out of range").WithOperation("ExtractJson")
			}
			cur = arr[tok.index]
			continue
		}
		next := cur.Get(tok.member)
		if next == nil {
			return nil, result.New(result.NotFound, "ExtractJson: member not found").WithOperation("ExtractJson")
		}
		cur = next
	}

	return sampleFromJSONValue(s.timestamp, cur)
}

// sampleFromJSONValue converts an extracted fastjson.Value fragment into a
// Sample, inferring the type from the fragment's JSON kind.
func sampleFromJSONValue(ts float64, v *fastjson.Value) (*Sample, error) {
	switch v.Type() {
	case fastjson.TypeNull:
		return NewTrigger(ts), nil
	case fastjson.TypeTrue:
		return NewBoolean(ts, true), nil
	case fastjson.TypeFalse:
		return NewBoolean(ts, false), nil
	case fastjson.TypeNumber:
		return NewNumeric(ts, v.GetFloat64()), nil
	case fastjson.TypeString:
		return NewString(ts, string(v.GetStringBytes()))
	case fastjson.TypeArray, fastjson.TypeObject:
		return NewJSON(ts, v.String())
	default:
		return nil, result.New(result.Fault, "ExtractJson: unrecognized json fragment type").WithOperation("ExtractJson")
	}
}
