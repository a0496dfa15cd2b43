// rotation_test.go
//
// Copyright (c) 2025 ringlog authors
// SPDX-License-Identifier: MPL-2.0

package ringlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRotatingFileSinkWritesLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	sink, err := NewRotatingFileSink(RotatingFileSinkConfig{Filename: path})
	if err != nil {
		t.Fatalf("NewRotatingFileSink: %v", err)
	}
	defer sink.Close()

	sink.Receive(Info, time.Now(), "hello rotation")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "hello rotation") {
		t.Fatalf("log file missing expected content, got %q", data)
	}
}

func TestRotatingFileSinkSizeSplitterRotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	sink, err := NewRotatingFileSink(RotatingFileSinkConfig{
		Filename: path,
		Split:    SizeSplitter(10),
	})
	if err != nil {
		t.Fatalf("NewRotatingFileSink: %v", err)
	}
	defer sink.Close()

	for i := 0; i < 5; i++ {
		sink.Receive(Info, time.Now(), "0123456789")
	}
	// Rename and reopen run synchronously inside Receive; this pause only
	// adds margin before listing the directory.
	time.Sleep(50 * time.Millisecond)

	matches, err := filepath.Glob(path + ".*")
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("expected at least one rotated backup file")
	}
}

func TestRotatingFileSinkMaxBackupsCleanup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	sink, err := NewRotatingFileSink(RotatingFileSinkConfig{
		Filename:   path,
		Split:      SizeSplitter(1),
		MaxBackups: 1,
	})
	if err != nil {
		t.Fatalf("NewRotatingFileSink: %v", err)
	}
	defer sink.Close()

	for i := 0; i < 10; i++ {
		sink.Receive(Info, time.Now(), "x")
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	matches, err := filepath.Glob(path + ".2*")
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(matches) > 1 {
		t.Fatalf("expected cleanup to prune down to MaxBackups=1, found %d: %v", len(matches), matches)
	}
}

func TestAndSplitterRequiresAllPredicates(t *testing.T) {
	s := &RotatingFileSink{cfg: RotatingFileSinkConfig{}}
	s.bytesWritten.Store(1000)

	always := func(*RotatingFileSink) bool { return true }
	never := func(*RotatingFileSink) bool { return false }

	if AndSplitter(always, never)(s) {
		t.Fatal("expected AndSplitter to require every predicate")
	}
	if !AndSplitter(always, always)(s) {
		t.Fatal("expected AndSplitter to pass when every predicate agrees")
	}
}

func TestOrSplitterAnyPredicate(t *testing.T) {
	s := &RotatingFileSink{cfg: RotatingFileSinkConfig{}}
	always := func(*RotatingFileSink) bool { return true }
	never := func(*RotatingFileSink) bool { return false }

	if !OrSplitter(never, always)(s) {
		t.Fatal("expected OrSplitter to pass when any predicate agrees")
	}
	if OrSplitter(never, never)(s) {
		t.Fatal("expected OrSplitter to fail when no predicate agrees")
	}
}

func TestSizeSplitterThreshold(t *testing.T) {
	s := &RotatingFileSink{cfg: RotatingFileSinkConfig{}}
	s.bytesWritten.Store(99)
	split := SizeSplitter(100)
	if split(s) {
		t.Fatal("expected SizeSplitter to be false below the threshold")
	}
	s.bytesWritten.Store(100)
	if !split(s) {
		t.Fatal("expected SizeSplitter to be true at the threshold")
	}
}

func TestRotatingFileSinkErrorCallbackOnBadPath(t *testing.T) {
	var reported error
	_, err := NewRotatingFileSink(RotatingFileSinkConfig{
		Filename: strings.Repeat("x", 5000),
		ErrorCallback: func(op string, e error) {
			reported = e
		},
	})
	if err == nil {
		t.Fatal("expected an error constructing a sink with an invalid path")
	}
	if reported == nil {
		t.Fatal("expected ErrorCallback to receive the path validation error")
	}
}
