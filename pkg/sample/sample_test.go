package sample

import (
	"math"
	"strconv"
	"testing"

	"github.com/databeam/databeam/pkg/result"
)

func TestConvertToJsonRoundTrip(t *testing.T) {
	cases := []*Sample{
		NewTrigger(1),
		NewBoolean(1, true),
		NewNumeric(1, 21.5),
		mustString(t, "hello"),
	}
	for _, s := range cases {
		js, err := ConvertToJson(s, MaxStringLen)
		if err != nil {
			t.Fatalf("ConvertToJson(%v): %v", s.Type(), err)
		}
		if js == "" {
			t.Fatalf("empty json for %v", s.Type())
		}
	}
}

func TestConvertToJsonNumericByteEquality(t *testing.T) {
	nanSample := NewNumeric(0, math.NaN())
	js, err := ConvertToJson(nanSample, MaxStringLen)
	if err != nil {
		t.Fatal(err)
	}
	if js != "NaN" {
		t.Fatalf("expected bare NaN token, got %q", js)
	}

	finite := NewNumeric(0, 21.5)
	js, err = ConvertToJson(finite, MaxStringLen)
	if err != nil {
		t.Fatal(err)
	}
	v, err := strconv.ParseFloat(js, 64)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if v != 21.5 {
		t.Fatalf("round trip mismatch: got %v", v)
	}
}

func TestConvertToStringOverflow(t *testing.T) {
	s := NewNumeric(0, 123456.789)
	if _, err := ConvertToString(s, 2); !result.IsOverflow(err) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestCoerceStringQuirks(t *testing.T) {
	// A non-empty string ("cold"), including one that reads as "false",
	// coerces to Numeric 1 and to Boolean true.
	s, err := NewString(2.0, "cold")
	if err != nil {
		t.Fatal(err)
	}
	n, err := Coerce(s, Numeric)
	if err != nil {
		t.Fatal(err)
	}
	if n.Num() != 1 {
		t.Fatalf("expected 1, got %v", n.Num())
	}

	falsy, err := NewString(0, "false")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Coerce(falsy, Boolean)
	if err != nil {
		t.Fatal(err)
	}
	if !b.Bool() {
		t.Fatalf("expected quirky true for non-empty string \"false\"")
	}
}

func TestCoerceToTriggerDropsValue(t *testing.T) {
	s := NewNumeric(5, 42)
	trig, err := Coerce(s, Trigger)
	if err != nil {
		t.Fatal(err)
	}
	if trig.Type() != Trigger || trig.Timestamp() != 5 {
		t.Fatalf("expected trigger @5, got %v @%v", trig.Type(), trig.Timestamp())
	}
}

func TestCoerceIdentity(t *testing.T) {
	s := NewBoolean(1, true)
	out, err := Coerce(s, Boolean)
	if err != nil {
		t.Fatal(err)
	}
	if out != s {
		t.Fatalf("identity coercion should return the same sample")
	}
}

func TestQuoteTruncatedReservesClosingQuote(t *testing.T) {
	long := make([]byte, MaxStringLen)
	for i := range long {
		long[i] = 'a'
	}
	out := quoteTruncated(string(long))
	if len(out) > MaxStringLen {
		t.Fatalf("truncated output exceeds MaxStringLen: %d", len(out))
	}
	if out[len(out)-1] != '"' {
		t.Fatalf("truncated output must end with closing quote, got %q", out[len(out)-5:])
	}
}

func TestExtractJsonPath(t *testing.T) {
	s, err := NewJSON(0, `{"a":{"b":[1,2,{"c":"hi"}]}}`)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ExtractJson(s, "a.b[2].c")
	if err != nil {
		t.Fatal(err)
	}
	if got.Type() != String || got.Str() != "hi" {
		t.Fatalf("got %v %q", got.Type(), got.Str())
	}
}

func TestExtractJsonNotFound(t *testing.T) {
	s, err := NewJSON(0, `{"a":1}`)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ExtractJson(s, "a.missing"); !result.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if _, err := ExtractJson(s, "a[oops]"); !result.IsNotFound(err) {
		t.Fatalf("expected NotFound for malformed spec, got %v", err)
	}
}

func mustString(t *testing.T, v string) *Sample {
	t.Helper()
	s, err := NewString(1, v)
	if err != nil {
		t.Fatal(err)
	}
	return s
}
