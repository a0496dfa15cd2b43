// serializer_test.go
//
// Copyright (c) 2025 ringlog authors
// SPDX-License-Identifier: MPL-2.0

package ringlog

import "testing"

func TestArgEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Arg{
		Int64(-42),
		Uint64(42),
		Float64(3.5),
		Bool(true),
		Bool(false),
		Str("hello world"),
		Str(""),
	}

	for _, want := range cases {
		var buf []byte
		buf = encodeArg(buf, want)

		got, rest, ok := decodeArg(buf)
		if !ok {
			t.Fatalf("decodeArg(%v) failed", want)
		}
		if len(rest) != 0 {
			t.Fatalf("decodeArg(%v) left %d unconsumed bytes", want, len(rest))
		}
		if got.format() != want.format() {
			t.Fatalf("round trip mismatch: got %q, want %q", got.format(), want.format())
		}
	}
}

func TestArgsEncodeDecodeChained(t *testing.T) {
	args := []Arg{Int64(1), Str("two"), Float64(3.0), Bool(true)}

	var buf []byte
	buf = encodeArgs(buf, args)

	decoded, rest, ok := decodeArgs(buf, len(args))
	if !ok {
		t.Fatal("expected decodeArgs to succeed")
	}
	if len(rest) != 0 {
		t.Fatalf("expected no leftover bytes, got %d", len(rest))
	}
	if len(decoded) != len(args) {
		t.Fatalf("got %d args, want %d", len(decoded), len(args))
	}
	for i := range args {
		if decoded[i].format() != args[i].format() {
			t.Fatalf("arg %d: got %q, want %q", i, decoded[i].format(), args[i].format())
		}
	}
}

func TestDecodeArgsShortCircuitsOnFirstFailure(t *testing.T) {
	var buf []byte
	buf = encodeArg(buf, Int64(1))
	// Truncate so the second Arg is corrupt: claim three Args total.
	_, _, ok := decodeArgs(buf, 3)
	if ok {
		t.Fatal("expected decodeArgs to fail on truncated input")
	}
}

func TestDecodeArgTruncatedFails(t *testing.T) {
	if _, _, ok := decodeArg(nil); ok {
		t.Fatal("expected decodeArg(nil) to fail")
	}
	if _, _, ok := decodeArg([]byte{byte(argInt64), 1, 2}); ok {
		t.Fatal("expected decodeArg with truncated scalar to fail")
	}
	if _, _, ok := decodeArg([]byte{byte(argString), 0, 0, 0, 0, 0, 0, 0, 5, 'h', 'i'}); ok {
		t.Fatal("expected decodeArg with truncated string to fail")
	}
}

func TestDecodeArgUnknownKindFails(t *testing.T) {
	if _, _, ok := decodeArg([]byte{0xFF}); ok {
		t.Fatal("expected decodeArg with unrecognized kind to fail")
	}
}

func TestValueGeneric(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{42, "42"},
		{int64(-1), "-1"},
		{uint(7), "7"},
		{3.25, "3.25"},
		{true, "true"},
		{"str", "str"},
	}

	for _, c := range cases {
		var a Arg
		switch v := c.in.(type) {
		case int:
			a = Value(v)
		case int64:
			a = Value(v)
		case uint:
			a = Value(v)
		case float64:
			a = Value(v)
		case bool:
			a = Value(v)
		case string:
			a = Value(v)
		}
		if a.format() != c.want {
			t.Fatalf("Value(%v).format() = %q, want %q", c.in, a.format(), c.want)
		}
	}
}
