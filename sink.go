// sink.go: log record consumers and fan-out/filter combinators
//
// Copyright (c) 2025 ringlog authors
// SPDX-License-Identifier: MPL-2.0

package ringlog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Sink receives one formatted log record at a time from the Logger's
// consumer loop. Implementations must not block indefinitely: the
// consumer loop is single-threaded per Logger, so a slow or wedged Sink
// stalls every record behind it.
type Sink interface {
	Receive(level LogLevel, ts time.Time, line string)
}

// lineFormat renders a record the way every sink in this package agrees
// on: an ISO-8601-ish local timestamp with zone offset, the level tag
// padded to five characters, and the message.
func lineFormat(ts time.Time, level LogLevel, line string) string {
	return fmt.Sprintf("[%s] [%s]: %s\n", ts.Format("2006-01-02 15:04:05 -0700"), level.label(), line)
}

// NullSink discards every record. It is useful as a benchmark baseline
// and as the default Sink when no destination has been configured yet.
type NullSink struct{}

// Receive implements Sink by doing nothing.
func (NullSink) Receive(LogLevel, time.Time, string) {}

// ANSI color codes for each level, matching the original console sink's
// palette (trace=white, debug=light gray, info=green, warn=orange/yellow,
// error=red, critical=bold dark red).
const (
	colorReset   = "\x1b[0m"
	colorWhite   = "\x1b[37m"
	colorGray    = "\x1b[90m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorRed     = "\x1b[31m"
	colorBoldRed = "\x1b[1;31m"
)

func levelColor(l LogLevel) string {
	switch l {
	case Trace:
		return colorWhite
	case Debug:
		return colorGray
	case Info:
		return colorGreen
	case Warn:
		return colorYellow
	case Error:
		return colorRed
	case Critical:
		return colorBoldRed
	default:
		return colorReset
	}
}

// ConsoleSink writes formatted records to an io.Writer, coloring the
// level tag by severity when the destination looks like a terminal. When
// out is *os.File and is not a TTY (e.g. piped to a file or CI log
// collector), coloring is disabled so the raw escape codes never leak
// into non-interactive output.
type ConsoleSink struct {
	out      io.Writer
	useColor bool
	mu       sync.Mutex
}

// NewConsoleSink wraps out for console output. On Windows, out is
// wrapped with colorable.NewColorable so ANSI sequences render correctly
// on consoles that do not natively support them.
func NewConsoleSink(out *os.File) *ConsoleSink {
	useColor := isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())
	return &ConsoleSink{
		out:      colorable.NewColorable(out),
		useColor: useColor,
	}
}

// Receive implements Sink.
func (c *ConsoleSink) Receive(level LogLevel, ts time.Time, line string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.useColor {
		fmt.Fprint(c.out, lineFormat(ts, level, line))
		return
	}

	fmt.Fprintf(c.out, "[%s] [%s%s%s]: %s\n",
		ts.Format("2006-01-02 15:04:05 -0700"),
		levelColor(level), level.label(), colorReset,
		line)
}

// FileSink writes formatted records to an io.Writer (typically an
// *os.File) and tracks the cumulative byte count written, the one piece
// of rotation-relevant state the Sink contract itself requires.
type FileSink struct {
	mu           sync.Mutex
	out          io.Writer
	bytesWritten atomic.Uint64
}

// NewFileSink wraps out for file output.
func NewFileSink(out io.Writer) *FileSink {
	return &FileSink{out: out}
}

// Receive implements Sink.
func (f *FileSink) Receive(level LogLevel, ts time.Time, line string) {
	rendered := lineFormat(ts, level, line)

	f.mu.Lock()
	n, _ := io.WriteString(f.out, rendered)
	f.mu.Unlock()

	if n > 0 {
		f.bytesWritten.Add(uint64(n))
	}
}

// BytesWritten reports the total bytes this sink has written.
func (f *FileSink) BytesWritten() uint64 { return f.bytesWritten.Load() }

// FilterSink drops records below Min before forwarding the rest to Next.
type FilterSink struct {
	Next Sink
	Min  LogLevel
}

// Receive implements Sink.
func (fs *FilterSink) Receive(level LogLevel, ts time.Time, line string) {
	if level < fs.Min {
		return
	}
	fs.Next.Receive(level, ts, line)
}

// MultiSink fans one record out to every registered Sink, in registration
// order. A panic in one sink is recovered and folded into an aggregated
// error rather than aborting delivery to the remaining sinks.
type MultiSink struct {
	sinks []Sink
	// OnError, if set, receives the aggregated error from any round of
	// delivery that produced at least one recovered panic.
	OnError func(error)
}

// NewMultiSink fans records out to every sink in sinks, in order.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Receive implements Sink.
func (m *MultiSink) Receive(level LogLevel, ts time.Time, line string) {
	var errs *multierror.Error

	for _, s := range m.sinks {
		func(s Sink) {
			defer func() {
				if r := recover(); r != nil {
					errs = multierror.Append(errs, fmt.Errorf("ringlog: sink panic: %v", r))
				}
			}()
			s.Receive(level, ts, line)
		}(s)
	}

	if errs != nil && m.OnError != nil {
		m.OnError(errs.ErrorOrNil())
	}
}
