// logger.go: deferred-format, back-pressured single-producer/single-consumer logger
//
// Copyright (c) 2025 ringlog authors
// SPDX-License-Identifier: MPL-2.0

package ringlog

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/agilira/go-timecache"
	"github.com/go-stack/stack"
	"github.com/google/uuid"
)

// FormatKey identifies a format string registered ahead of time with
// RegisterFormat. Call sites that use a FormatKey never send the format
// text itself over the wire — only the integer key — the Go realization
// of the original's compile-time FormatString literal, which likewise
// never travels over the wire because the decode side already knows it
// at compile time. A FormatKey of zero is reserved and never issued by
// RegisterFormat; Logger uses it internally to mark a record whose
// format text is carried dynamically, inline in the record itself.
type FormatKey uint32

var (
	formatRegistry = map[FormatKey]string{}
	nextFormatKey  atomic.Uint32
)

// RegisterFormat records format for later use with LogF/TryLogF and the
// per-level *F shortcuts, returning the key call sites pass instead of
// the literal string. Intended for package-level var initialization, one
// call per distinct call-site format, mirroring a "..."_fmt literal.
func RegisterFormat(format string) FormatKey {
	key := FormatKey(nextFormatKey.Add(1))
	formatRegistry[key] = format
	return key
}

// renderFormat substitutes each "{}" placeholder in format, in order,
// with the formatted text of the corresponding Arg. Extra args beyond the
// number of placeholders are ignored; a placeholder with no matching Arg
// renders as "{}" unchanged.
func renderFormat(format string, args []Arg) string {
	var b strings.Builder
	argIdx := 0
	for i := 0; i < len(format); i++ {
		if format[i] == '{' && i+1 < len(format) && format[i+1] == '}' {
			if argIdx < len(args) {
				b.WriteString(args[argIdx].format())
				argIdx++
			} else {
				b.WriteString("{}")
			}
			i++
			continue
		}
		b.WriteByte(format[i])
	}
	return b.String()
}

// Logger is a single-producer/single-consumer deferred-format log
// pipeline: producer calls serialize a trampoline reference, level, and
// arguments into a ByteBuffer without formatting anything; a single
// consumer goroutine later decodes and formats each record and forwards
// it to a Sink.
type Logger struct {
	buf  ByteBuffer
	sink Sink

	maxMessageSize int
	capacity       int

	minLevel atomic.Int32

	// bytesAvailable tracks free space in buf, starting at capacity and
	// moving down as producers write and up as the consumer reads. It is
	// the back-pressure cell producers wait on (enough room to write)
	// and the signal cell the blocking consumer waits on (something to
	// read, i.e. value != capacity).
	bytesAvailable *Int64

	timeCache *timecache.TimeCache

	instanceID uuid.UUID

	writeCount   atomic.Uint64
	readCount    atomic.Uint64
	droppedCount atomic.Uint64
}

// Option configures a Logger at construction time.
type Option func(*Logger)

// WithMaxMessageSize overrides the default 1000-byte ceiling on a single
// encoded record.
func WithMaxMessageSize(n int) Option {
	return func(l *Logger) { l.maxMessageSize = n }
}

// WithMinLevel overrides the default minimum level (Info).
func WithMinLevel(level LogLevel) Option {
	return func(l *Logger) { l.minLevel.Store(int32(level)) }
}

// New builds a Logger over buf and sink. It panics if buf's capacity
// cannot hold at least one message of the configured maximum size — a
// Logger that could never successfully write a single record is a
// construction-time contract violation, not a runtime condition.
func New(buf ByteBuffer, sink Sink, opts ...Option) *Logger {
	l := &Logger{
		buf:            buf,
		sink:           sink,
		maxMessageSize: 1000,
		capacity:       buf.Capacity(),
		timeCache:      timecache.NewWithResolution(time.Millisecond),
		instanceID:     uuid.New(),
	}
	l.minLevel.Store(int32(Info))

	for _, opt := range opts {
		opt(l)
	}

	if l.capacity < l.maxMessageSize {
		panic("ringlog: the buffer needs to be able to store at least one message")
	}

	l.bytesAvailable = NewInt64(int64(l.capacity))
	return l
}

// InstanceID uniquely identifies this Logger instance, for disambiguating
// multiple Loggers in aggregated telemetry.
func (l *Logger) InstanceID() uuid.UUID { return l.instanceID }

// SetMinLogLevel changes the minimum level producers will admit. Records
// already enqueued are delivered regardless of the new threshold.
func (l *Logger) SetMinLogLevel(level LogLevel) {
	l.minLevel.Store(int32(level))
}

// MinLogLevel reports the current minimum admitted level.
func (l *Logger) MinLogLevel() LogLevel {
	return LogLevel(l.minLevel.Load())
}

// ---- producer path ----

// Log blocks until there is room to admit the record, then writes it
// synchronously. format is carried inline in the record (the dynamic
// form); use LogF with a RegisterFormat key to avoid that cost on a hot
// call site. Log panics if the write fails after admission succeeded —
// per the contract, that should never happen and indicates a Logger bug.
func (l *Logger) Log(level LogLevel, format string, args ...Arg) {
	if level < l.MinLogLevel() {
		return
	}
	l.admit()
	if !l.encodeAndCommit(0, format, level, args) {
		panic("ringlog: unable to write to the log, this should never happen")
	}
}

// LogF is Log's registered-format counterpart: format is looked up by
// key at decode time rather than traveling over the wire.
func (l *Logger) LogF(level LogLevel, key FormatKey, args ...Arg) {
	if level < l.MinLogLevel() {
		return
	}
	l.admit()
	if !l.encodeAndCommit(key, "", level, args) {
		panic("ringlog: unable to write to the log, this should never happen")
	}
}

// TryLog is Log's non-blocking counterpart: it never waits for room, and
// reports false instead of panicking if the record did not fit.
func (l *Logger) TryLog(level LogLevel, format string, args ...Arg) bool {
	if level < l.MinLogLevel() {
		return true
	}
	return l.encodeAndCommit(0, format, level, args)
}

// TryLogF is LogF's non-blocking counterpart.
func (l *Logger) TryLogF(level LogLevel, key FormatKey, args ...Arg) bool {
	if level < l.MinLogLevel() {
		return true
	}
	return l.encodeAndCommit(key, "", level, args)
}

func (l *Logger) admit() {
	ctx := context.Background()
	l.bytesAvailable.Wait(ctx, func(v int64) bool { return int64(l.maxMessageSize) <= v })
}

// encodeAndCommit serializes one record — trampoline key, level, arg
// count, optional inline format text, then each Arg — into a Writer
// session and commits it if it fits within maxMessageSize.
func (l *Logger) encodeAndCommit(key FormatKey, format string, level LogLevel, args []Arg) bool {
	w, err := l.buf.GetWriter()
	if err != nil {
		l.droppedCount.Add(1)
		return false
	}
	defer w.Release()

	rec := make([]byte, 0, 64)
	rec = appendUint32(rec, uint32(key))
	rec = append(rec, byte(level))
	rec = append(rec, byte(len(args)))
	if key == 0 {
		rec = appendUint64(rec, uint64(len(format)))
		rec = append(rec, format...)
	}
	rec = encodeArgs(rec, args)

	if len(rec) > l.maxMessageSize {
		l.droppedCount.Add(1)
		return false
	}

	if !w.Write(rec) {
		l.droppedCount.Add(1)
		return false
	}
	if !w.Commit() {
		l.droppedCount.Add(1)
		return false
	}

	written := w.BytesWritten()
	l.writeCount.Add(1)
	l.bytesAvailable.Add(-int64(written))
	return true
}

func appendUint32(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func appendUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return append(dst, b[:]...)
}

// Per-level shortcuts, dynamic and registered-format forms, synchronous
// and non-blocking — mirroring the original's trace/debug/info/warn/
// error/critical family.

func (l *Logger) Trace(format string, args ...Arg)    { l.Log(Trace, format, args...) }
func (l *Logger) Debug(format string, args ...Arg)    { l.Log(Debug, format, args...) }
func (l *Logger) Info(format string, args ...Arg)     { l.Log(Info, format, args...) }
func (l *Logger) Warn(format string, args ...Arg)     { l.Log(Warn, format, args...) }
func (l *Logger) Error(format string, args ...Arg)    { l.Log(Error, format, args...) }
func (l *Logger) Critical(format string, args ...Arg) { l.Log(Critical, format, args...) }

func (l *Logger) TryTrace(format string, args ...Arg) bool    { return l.TryLog(Trace, format, args...) }
func (l *Logger) TryDebug(format string, args ...Arg) bool    { return l.TryLog(Debug, format, args...) }
func (l *Logger) TryInfo(format string, args ...Arg) bool     { return l.TryLog(Info, format, args...) }
func (l *Logger) TryWarn(format string, args ...Arg) bool     { return l.TryLog(Warn, format, args...) }
func (l *Logger) TryError(format string, args ...Arg) bool    { return l.TryLog(Error, format, args...) }
func (l *Logger) TryCritical(format string, args ...Arg) bool { return l.TryLog(Critical, format, args...) }

func (l *Logger) TraceF(key FormatKey, args ...Arg)    { l.LogF(Trace, key, args...) }
func (l *Logger) DebugF(key FormatKey, args ...Arg)    { l.LogF(Debug, key, args...) }
func (l *Logger) InfoF(key FormatKey, args ...Arg)     { l.LogF(Info, key, args...) }
func (l *Logger) WarnF(key FormatKey, args ...Arg)     { l.LogF(Warn, key, args...) }
func (l *Logger) ErrorF(key FormatKey, args ...Arg)    { l.LogF(Error, key, args...) }
func (l *Logger) CriticalF(key FormatKey, args ...Arg) { l.LogF(Critical, key, args...) }

// ---- consumer path ----

// TryReadLog decodes and dispatches at most one record without blocking.
// It returns false if the buffer currently has nothing committed, or if
// the available record failed to decode (a dropped, discarded session).
func (l *Logger) TryReadLog() bool {
	if l.bytesAvailable.Load() == int64(l.capacity) {
		return false
	}
	bytesRead := l.internalReadLog()
	if bytesRead == 0 {
		return false
	}
	l.bytesAvailable.Add(int64(bytesRead))
	return true
}

// ReadLog blocks until a record is available, decodes and dispatches it.
// It must only be called by the single consumer goroutine; calling it
// when no producer will ever write again blocks forever.
func (l *Logger) ReadLog() {
	ctx := context.Background()
	l.bytesAvailable.Wait(ctx, func(v int64) bool { return v != int64(l.capacity) })

	bytesRead := l.internalReadLog()
	if bytesRead == 0 {
		panic(fmt.Sprintf("ringlog: unable to read from ReadLog, this should never happen\n%s", stack.Trace()))
	}
	l.bytesAvailable.Add(int64(bytesRead))
}

// ReadLogTimeout is ReadLog bounded by timeout, returning false if no
// record became available in time.
func (l *Logger) ReadLogTimeout(timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if !l.bytesAvailable.Wait(ctx, func(v int64) bool { return v != int64(l.capacity) }) {
		return false
	}

	bytesRead := l.internalReadLog()
	if bytesRead == 0 {
		panic(fmt.Sprintf("ringlog: unable to read from ReadLogTimeout, this should never happen\n%s", stack.Trace()))
	}
	l.bytesAvailable.Add(int64(bytesRead))
	return true
}

// internalReadLog decodes and dispatches exactly one record, returning
// the number of bytes consumed from buf, or 0 if decoding or dispatch
// failed (in which case nothing is committed and the session is
// discarded, per the Sink contract's "decode failure" error kind).
func (l *Logger) internalReadLog() int {
	r, err := l.buf.GetReader()
	if err != nil {
		return 0
	}
	defer r.Release()

	ok := l.decodeAndDispatch(r)
	if !ok {
		return 0
	}
	if !r.Commit() {
		return 0
	}
	l.readCount.Add(1)
	return r.BytesRead()
}

func (l *Logger) decodeAndDispatch(r Reader) bool {
	var head [6]byte
	if !r.Read(head[:]) {
		return false
	}
	key := FormatKey(uint32(head[0]) | uint32(head[1])<<8 | uint32(head[2])<<16 | uint32(head[3])<<24)
	level := LogLevel(int8(head[4]))
	argCount := int(head[5])

	var format string
	if key == 0 {
		var lenBuf [8]byte
		if !r.Read(lenBuf[:]) {
			return false
		}
		n := uint64(0)
		for i := 7; i >= 0; i-- {
			n = n<<8 | uint64(lenBuf[i])
		}
		if n > uint64(l.maxMessageSize) {
			return false
		}
		strBuf := make([]byte, n)
		if n > 0 && !r.Read(strBuf) {
			return false
		}
		format = string(strBuf)
	} else {
		registered, found := formatRegistry[key]
		if !found {
			return false
		}
		format = registered
	}

	args := make([]Arg, 0, argCount)
	for i := 0; i < argCount; i++ {
		a, ok := readArg(r)
		if !ok {
			return false
		}
		args = append(args, a)
	}

	line := renderFormat(format, args)
	l.sink.Receive(level, l.timeCache.CachedTime(), line)
	return true
}

// readArg decodes one Arg directly from a Reader session (as opposed to
// decodeArg, which decodes from an in-memory byte slice already fully
// read out of a buffer).
func readArg(r Reader) (Arg, bool) {
	var kindBuf [1]byte
	if !r.Read(kindBuf[:]) {
		return Arg{}, false
	}
	kind := argKind(kindBuf[0])

	switch kind {
	case argInt64, argUint64, argFloat64, argBool:
		var numBuf [8]byte
		if !r.Read(numBuf[:]) {
			return Arg{}, false
		}
		var n uint64
		for i := 7; i >= 0; i-- {
			n = n<<8 | uint64(numBuf[i])
		}
		return Arg{kind: kind, num: n}, true
	case argString:
		var lenBuf [8]byte
		if !r.Read(lenBuf[:]) {
			return Arg{}, false
		}
		var n uint64
		for i := 7; i >= 0; i-- {
			n = n<<8 | uint64(lenBuf[i])
		}
		strBuf := make([]byte, n)
		if n > 0 && !r.Read(strBuf) {
			return Arg{}, false
		}
		return Arg{kind: argString, str: string(strBuf)}, true
	default:
		return Arg{}, false
	}
}

// Stats summarizes Logger activity, the way Stats() does for the
// teacher's rotating writer — here over the back-pressure buffer instead
// of a file.
type Stats struct {
	WriteCount   uint64
	ReadCount    uint64
	DroppedCount uint64
	BytesFree    int64
	Capacity     int
}

// Stats snapshots the Logger's counters.
func (l *Logger) Stats() Stats {
	return Stats{
		WriteCount:   l.writeCount.Load(),
		ReadCount:    l.readCount.Load(),
		DroppedCount: l.droppedCount.Load(),
		BytesFree:    l.bytesAvailable.Load(),
		Capacity:     l.capacity,
	}
}

// Close releases the Logger's background resources (its time cache).
// It does not drain or close the underlying buffer or sink.
func (l *Logger) Close() {
	l.timeCache.Stop()
}
