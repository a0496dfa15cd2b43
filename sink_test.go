// sink_test.go
//
// Copyright (c) 2025 ringlog authors
// SPDX-License-Identifier: MPL-2.0

package ringlog

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestNullSinkDiscards(t *testing.T) {
	var s NullSink
	s.Receive(Info, time.Now(), "ignored")
}

func TestFileSinkWritesAndTracksBytes(t *testing.T) {
	var buf bytes.Buffer
	sink := NewFileSink(&buf)

	ts := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	sink.Receive(Info, ts, "hello")

	out := buf.String()
	if !strings.Contains(out, "[INFO ]: hello") {
		t.Fatalf("output missing expected line, got %q", out)
	}
	if sink.BytesWritten() == 0 {
		t.Fatal("expected BytesWritten to be nonzero after a write")
	}
	if int(sink.BytesWritten()) != len(out) {
		t.Fatalf("BytesWritten() = %d, want %d", sink.BytesWritten(), len(out))
	}
}

func TestFilterSinkDropsBelowMinimum(t *testing.T) {
	var buf bytes.Buffer
	inner := NewFileSink(&buf)
	filter := &FilterSink{Next: inner, Min: Warn}

	filter.Receive(Info, time.Now(), "should be dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected Info to be dropped below Warn, got %q", buf.String())
	}

	filter.Receive(Error, time.Now(), "should pass")
	if !strings.Contains(buf.String(), "should pass") {
		t.Fatalf("expected Error to pass through, got %q", buf.String())
	}
}

func TestMultiSinkFansOutToEverySink(t *testing.T) {
	var bufA, bufB bytes.Buffer
	multi := NewMultiSink(NewFileSink(&bufA), NewFileSink(&bufB))

	multi.Receive(Info, time.Now(), "fan out")

	if !strings.Contains(bufA.String(), "fan out") {
		t.Fatal("expected first sink to receive the record")
	}
	if !strings.Contains(bufB.String(), "fan out") {
		t.Fatal("expected second sink to receive the record")
	}
}

type panickingSink struct{}

func (panickingSink) Receive(LogLevel, time.Time, string) {
	panic("sink exploded")
}

func TestMultiSinkRecoversPanicAndContinues(t *testing.T) {
	var buf bytes.Buffer
	var gotErr error

	multi := NewMultiSink(panickingSink{}, NewFileSink(&buf))
	multi.OnError = func(err error) { gotErr = err }

	multi.Receive(Error, time.Now(), "after panic")

	if gotErr == nil {
		t.Fatal("expected OnError to be called with an aggregated error")
	}
	if !strings.Contains(buf.String(), "after panic") {
		t.Fatal("expected the sink after the panicking one to still receive the record")
	}
}

func TestLineFormat(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	line := lineFormat(ts, Warn, "disk at 90%")
	if !strings.HasPrefix(line, "[2026-01-02 03:04:05") {
		t.Fatalf("unexpected prefix: %q", line)
	}
	if !strings.Contains(line, "[WARN ]: disk at 90%") {
		t.Fatalf("unexpected body: %q", line)
	}
}
