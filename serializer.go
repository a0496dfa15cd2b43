// serializer.go: typed argument encoding for deferred-format log records
//
// Copyright (c) 2025 ringlog authors
// SPDX-License-Identifier: MPL-2.0

package ringlog

import (
	"encoding/binary"
	"fmt"
	"math"
)

// argKind tags the payload carried by an Arg. It is the Go stand-in for
// the original's compile-time scalar/string specialization: since a log
// call site's arguments are decoded long after the call returns, the
// buffer needs a runtime tag to know how to re-interpret the bytes it
// reads back.
type argKind uint8

const (
	argInt64 argKind = iota
	argUint64
	argFloat64
	argBool
	argString
)

// Arg is a single deferred-format log argument: either a scalar, stored
// as its raw bytes the way a trivially-copyable C type would be, or a
// string, stored length-prefixed. Arg values are cheap to build at the
// call site (no formatting happens until the consumer decodes them) and
// cheap to decode (each kind has a fixed or trivially-computed size).
type Arg struct {
	kind argKind
	num  uint64 // bit pattern for int64/uint64/float64/bool
	str  string
}

// Int64 wraps an int64 argument.
func Int64(v int64) Arg { return Arg{kind: argInt64, num: uint64(v)} }

// Uint64 wraps a uint64 argument.
func Uint64(v uint64) Arg { return Arg{kind: argUint64, num: v} }

// Float64 wraps a float64 argument.
func Float64(v float64) Arg { return Arg{kind: argFloat64, num: math.Float64bits(v)} }

// Bool wraps a bool argument.
func Bool(v bool) Arg {
	var n uint64
	if v {
		n = 1
	}
	return Arg{kind: argBool, num: n}
}

// Str wraps a string argument. The bytes are copied into the buffer
// length-prefixed rather than as a raw scalar, matching the original's
// string specialization of its Serializer template.
func Str(v string) Arg { return Arg{kind: argString, str: v} }

// Value builds an Arg from a Go value of a commonly-logged type. It
// type-switches over the scalar kinds plus fmt.Stringer, falling back to
// "%v" formatting for anything else — the runtime-dispatch tagged-variant
// the spec's own design notes call out as the idiomatic Go substitute for
// a C++ variadic-template trampoline.
func Value[T any](v T) Arg {
	switch x := any(v).(type) {
	case int:
		return Int64(int64(x))
	case int32:
		return Int64(int64(x))
	case int64:
		return Int64(x)
	case uint:
		return Uint64(uint64(x))
	case uint32:
		return Uint64(uint64(x))
	case uint64:
		return Uint64(x)
	case float32:
		return Float64(float64(x))
	case float64:
		return Float64(x)
	case bool:
		return Bool(x)
	case string:
		return Str(x)
	case fmt.Stringer:
		return Str(x.String())
	default:
		return Str(fmt.Sprintf("%v", x))
	}
}

// format renders the Arg the way it would render had it just been built
// at a call site, irrespective of whether it arrived via a literal Arg
// constructor or a round trip through encode/decode.
func (a Arg) format() string {
	switch a.kind {
	case argInt64:
		return fmt.Sprintf("%d", int64(a.num))
	case argUint64:
		return fmt.Sprintf("%d", a.num)
	case argFloat64:
		return fmt.Sprintf("%g", math.Float64frombits(a.num))
	case argBool:
		return fmt.Sprintf("%t", a.num != 0)
	case argString:
		return a.str
	default:
		return "<invalid arg>"
	}
}

// encodeArg appends one Arg's wire form to dst: one kind byte, then
// either 8 raw scalar bytes or an 8-byte length prefix plus UTF-8 bytes.
func encodeArg(dst []byte, a Arg) []byte {
	dst = append(dst, byte(a.kind))
	switch a.kind {
	case argString:
		var lenBuf [8]byte
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(a.str)))
		dst = append(dst, lenBuf[:]...)
		dst = append(dst, a.str...)
	default:
		var numBuf [8]byte
		binary.LittleEndian.PutUint64(numBuf[:], a.num)
		dst = append(dst, numBuf[:]...)
	}
	return dst
}

// decodeArg reads one Arg's wire form from the front of src, returning
// the Arg, the unconsumed remainder of src, and whether decoding
// succeeded. Decoding fails (ok == false) if src is truncated or the kind
// byte is not recognized — the caller must treat this the same as any
// other malformed-record condition and abandon the whole read session.
func decodeArg(src []byte) (a Arg, rest []byte, ok bool) {
	if len(src) < 1 {
		return Arg{}, src, false
	}
	kind := argKind(src[0])
	src = src[1:]

	switch kind {
	case argInt64, argUint64, argFloat64, argBool:
		if len(src) < 8 {
			return Arg{}, src, false
		}
		return Arg{kind: kind, num: binary.LittleEndian.Uint64(src[:8])}, src[8:], true
	case argString:
		if len(src) < 8 {
			return Arg{}, src, false
		}
		n := binary.LittleEndian.Uint64(src[:8])
		src = src[8:]
		if uint64(len(src)) < n {
			return Arg{}, src, false
		}
		return Arg{kind: argString, str: string(src[:n])}, src[n:], true
	default:
		return Arg{}, src, false
	}
}

// encodeArgs appends the wire form of every Arg in args, in order, to
// dst, and returns the result.
func encodeArgs(dst []byte, args []Arg) []byte {
	for _, a := range args {
		dst = encodeArg(dst, a)
	}
	return dst
}

// decodeArgs decodes exactly n Args from the front of src in order,
// short-circuiting on the first failure — the chained-decode behavior the
// Serializer layer must provide so a single corrupt argument never
// silently produces a partially-decoded record.
func decodeArgs(src []byte, n int) (args []Arg, rest []byte, ok bool) {
	args = make([]Arg, 0, n)
	for i := 0; i < n; i++ {
		var a Arg
		var decOk bool
		a, src, decOk = decodeArg(src)
		if !decOk {
			return nil, src, false
		}
		args = append(args, a)
	}
	return args, src, true
}
