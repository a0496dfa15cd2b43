// ringbuffer_test.go
//
// Copyright (c) 2025 ringlog authors
// SPDX-License-Identifier: MPL-2.0

package ringlog

import (
	"sync"
	"testing"
)

func TestRingBufferRoundTrip(t *testing.T) {
	rb := NewRingBuffer(16)

	w, err := rb.GetWriter()
	if err != nil {
		t.Fatalf("GetWriter: %v", err)
	}
	if !w.Write([]byte("hello")) {
		t.Fatal("expected write to succeed")
	}
	if !w.Commit() {
		t.Fatal("expected commit to succeed")
	}
	w.Release()

	r, err := rb.GetReader()
	if err != nil {
		t.Fatalf("GetReader: %v", err)
	}
	dst := make([]byte, 5)
	if !r.Read(dst) {
		t.Fatal("expected read to succeed")
	}
	if string(dst) != "hello" {
		t.Fatalf("got %q, want %q", dst, "hello")
	}
	if !r.Commit() {
		t.Fatal("expected commit to succeed")
	}
	r.Release()
}

func TestRingBufferReadWithoutDataFails(t *testing.T) {
	rb := NewRingBuffer(16)
	r, err := rb.GetReader()
	if err != nil {
		t.Fatalf("GetReader: %v", err)
	}
	defer r.Release()

	dst := make([]byte, 1)
	if r.Read(dst) {
		t.Fatal("expected read on empty buffer to fail")
	}
}

func TestRingBufferOversizeRejected(t *testing.T) {
	rb := NewRingBuffer(4)
	w, err := rb.GetWriter()
	if err != nil {
		t.Fatalf("GetWriter: %v", err)
	}
	defer w.Release()

	if w.Write([]byte("too big")) {
		t.Fatal("expected oversize write to fail")
	}
}

func TestRingBufferUncommittedWriteDiscarded(t *testing.T) {
	rb := NewRingBuffer(16)

	w, err := rb.GetWriter()
	if err != nil {
		t.Fatalf("GetWriter: %v", err)
	}
	if !w.Write([]byte("abc")) {
		t.Fatal("expected write to succeed")
	}
	// No Commit — release without publishing.
	w.Release()

	r, err := rb.GetReader()
	if err != nil {
		t.Fatalf("GetReader: %v", err)
	}
	defer r.Release()

	dst := make([]byte, 1)
	if r.Read(dst) {
		t.Fatal("expected uncommitted write to be invisible to the reader")
	}
}

func TestRingBufferSecondConcurrentWriterRejected(t *testing.T) {
	rb := NewRingBuffer(16)
	w, err := rb.GetWriter()
	if err != nil {
		t.Fatalf("GetWriter: %v", err)
	}
	defer w.Release()

	if _, err := rb.GetWriter(); err != ErrBufferBusy {
		t.Fatalf("expected ErrBufferBusy, got %v", err)
	}
}

func TestRingBufferSecondConcurrentReaderRejected(t *testing.T) {
	rb := NewRingBuffer(16)
	r, err := rb.GetReader()
	if err != nil {
		t.Fatalf("GetReader: %v", err)
	}
	defer r.Release()

	if _, err := rb.GetReader(); err != ErrBufferBusy {
		t.Fatalf("expected ErrBufferBusy, got %v", err)
	}
}

func TestRingBufferWrapAround(t *testing.T) {
	rb := NewRingBuffer(4)

	for i := 0; i < 100; i++ {
		w, err := rb.GetWriter()
		if err != nil {
			t.Fatalf("GetWriter: %v", err)
		}
		if !w.Write([]byte{byte(i)}) {
			t.Fatalf("iteration %d: expected write to succeed", i)
		}
		w.Commit()
		w.Release()

		r, err := rb.GetReader()
		if err != nil {
			t.Fatalf("GetReader: %v", err)
		}
		dst := make([]byte, 1)
		if !r.Read(dst) {
			t.Fatalf("iteration %d: expected read to succeed", i)
		}
		if dst[0] != byte(i) {
			t.Fatalf("iteration %d: got %d, want %d", i, dst[0], i)
		}
		r.Commit()
		r.Release()
	}
}

func TestRingBufferFullRejectsWrite(t *testing.T) {
	rb := NewRingBuffer(4)
	w, err := rb.GetWriter()
	if err != nil {
		t.Fatalf("GetWriter: %v", err)
	}
	defer w.Release()

	if !w.Write([]byte{1, 2, 3, 4}) {
		t.Fatal("expected first write to fill the buffer")
	}
	w.Commit()

	if w.Write([]byte{5}) {
		t.Fatal("expected write against a full buffer to fail")
	}
}

// TestRingBufferSPSCStress drives a real producer goroutine against a
// real consumer goroutine through a small buffer for many iterations,
// the end-to-end concurrency scenario the SPSC contract exists for.
func TestRingBufferSPSCStress(t *testing.T) {
	const iterations = 10000
	rb := NewRingBuffer(64)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		w, err := rb.GetWriter()
		if err != nil {
			t.Errorf("GetWriter: %v", err)
			return
		}
		defer w.Release()

		for i := 0; i < iterations; i++ {
			payload := []byte{byte(i), byte(i >> 8)}
			for !w.Write(payload) {
				// buffer momentarily full; spin until the consumer frees room
			}
			w.Commit()
		}
	}()

	go func() {
		defer wg.Done()
		r, err := rb.GetReader()
		if err != nil {
			t.Errorf("GetReader: %v", err)
			return
		}
		defer r.Release()

		dst := make([]byte, 2)
		for i := 0; i < iterations; i++ {
			for !r.Read(dst) {
				// nothing to read yet; spin until the producer commits
			}
			if dst[0] != byte(i) || dst[1] != byte(i>>8) {
				t.Errorf("iteration %d: got %v, want %d,%d", i, dst, byte(i), byte(i>>8))
			}
			r.Commit()
		}
	}()

	wg.Wait()
}
