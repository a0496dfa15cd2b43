// refbuffer.go: unbounded reference ByteBuffer implementations
//
// Copyright (c) 2025 ringlog authors
// SPDX-License-Identifier: MPL-2.0

package ringlog

import (
	"container/list"
	"math"
	"sync"
)

// VectorBuffer is a mutex-protected, growable ByteBuffer backed by a
// single byte slice. It never rejects a write for lack of space and
// exists as a correctness oracle to cross-check RingBuffer behavior in
// tests, not as a hot-path buffer.
type VectorBuffer struct {
	mu        sync.Mutex
	data      []byte
	hasReader bool
	hasWriter bool
}

// NewVectorBuffer returns an empty VectorBuffer.
func NewVectorBuffer() *VectorBuffer { return &VectorBuffer{} }

// Capacity implements ByteBuffer. VectorBuffer is effectively unbounded.
func (v *VectorBuffer) Capacity() int { return math.MaxInt - 1 }

// GetReader implements ByteBuffer.
func (v *VectorBuffer) GetReader() (Reader, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.hasReader {
		return nil, ErrBufferBusy
	}
	v.hasReader = true
	return &vectorReader{parent: v}, nil
}

// GetWriter implements ByteBuffer.
func (v *VectorBuffer) GetWriter() (Writer, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.hasWriter {
		return nil, ErrBufferBusy
	}
	v.hasWriter = true
	return &vectorWriter{parent: v}, nil
}

type vectorReader struct {
	parent    *VectorBuffer
	readLevel int // bytes consumed since the last Commit, uncommitted
	bytesRead int
	released  bool
}

func (vr *vectorReader) Release() {
	if vr.released {
		return
	}
	vr.released = true
	vr.parent.mu.Lock()
	vr.parent.hasReader = false
	vr.parent.mu.Unlock()
}

func (vr *vectorReader) BytesRead() int { return vr.bytesRead }

func (vr *vectorReader) Read(dst []byte) bool {
	vr.parent.mu.Lock()
	defer vr.parent.mu.Unlock()

	avail := len(vr.parent.data) - vr.readLevel
	if avail < len(dst) {
		return false
	}
	copy(dst, vr.parent.data[vr.readLevel:vr.readLevel+len(dst)])
	vr.readLevel += len(dst)
	vr.bytesRead += len(dst)
	return true
}

func (vr *vectorReader) Commit() bool {
	vr.parent.mu.Lock()
	defer vr.parent.mu.Unlock()
	vr.parent.data = vr.parent.data[vr.readLevel:]
	vr.readLevel = 0
	return true
}

type vectorWriter struct {
	parent       *VectorBuffer
	writeLevel   int // bytes appended since the last Commit, uncommitted
	bytesWritten int
	released     bool
}

func (vw *vectorWriter) Release() {
	if vw.released {
		return
	}
	vw.released = true
	vw.parent.mu.Lock()
	// Drop without Commit: discard everything appended this session.
	if vw.writeLevel > 0 {
		vw.parent.data = vw.parent.data[:len(vw.parent.data)-vw.writeLevel]
	}
	vw.parent.hasWriter = false
	vw.parent.mu.Unlock()
}

func (vw *vectorWriter) BytesWritten() int { return vw.bytesWritten }

func (vw *vectorWriter) Write(src []byte) bool {
	vw.parent.mu.Lock()
	defer vw.parent.mu.Unlock()
	vw.parent.data = append(vw.parent.data, src...)
	vw.writeLevel += len(src)
	vw.bytesWritten += len(src)
	return true
}

func (vw *vectorWriter) Commit() bool {
	vw.parent.mu.Lock()
	defer vw.parent.mu.Unlock()
	vw.writeLevel = 0
	return true
}

// ListBuffer is a mutex-protected ByteBuffer backed by a doubly-linked
// list of bytes, mirroring a node-per-byte container. Like VectorBuffer,
// it is a correctness oracle, not a hot-path buffer — a linked list of
// single bytes is deliberately the worst-case allocation pattern, useful
// for stress-testing the Serializer layer against a buffer with no
// locality assumptions whatsoever.
type ListBuffer struct {
	mu        sync.Mutex
	data      *list.List
	hasReader bool
	hasWriter bool
}

// NewListBuffer returns an empty ListBuffer.
func NewListBuffer() *ListBuffer {
	return &ListBuffer{data: list.New()}
}

// Capacity implements ByteBuffer. ListBuffer is effectively unbounded.
func (l *ListBuffer) Capacity() int { return math.MaxInt - 1 }

// GetReader implements ByteBuffer.
func (l *ListBuffer) GetReader() (Reader, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hasReader {
		return nil, ErrBufferBusy
	}
	l.hasReader = true
	return &listReader{parent: l}, nil
}

// GetWriter implements ByteBuffer.
func (l *ListBuffer) GetWriter() (Writer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hasWriter {
		return nil, ErrBufferBusy
	}
	l.hasWriter = true
	return &listWriter{parent: l}, nil
}

type listReader struct {
	parent    *ListBuffer
	consumed  []*list.Element // read but not yet committed, in order
	bytesRead int
	released  bool
}

func (lr *listReader) Release() {
	if lr.released {
		return
	}
	lr.released = true
	lr.parent.mu.Lock()
	lr.parent.hasReader = false
	lr.parent.mu.Unlock()
}

func (lr *listReader) BytesRead() int { return lr.bytesRead }

func (lr *listReader) Read(dst []byte) bool {
	lr.parent.mu.Lock()
	defer lr.parent.mu.Unlock()

	if lr.parent.data.Len()-len(lr.consumed) < len(dst) {
		return false
	}

	e := lr.parent.data.Front()
	for range lr.consumed {
		e = e.Next()
	}
	for i := range dst {
		dst[i] = e.Value.(byte)
		lr.consumed = append(lr.consumed, e)
		e = e.Next()
	}
	lr.bytesRead += len(dst)
	return true
}

func (lr *listReader) Commit() bool {
	lr.parent.mu.Lock()
	defer lr.parent.mu.Unlock()
	for _, e := range lr.consumed {
		lr.parent.data.Remove(e)
	}
	lr.consumed = lr.consumed[:0]
	return true
}

type listWriter struct {
	parent       *ListBuffer
	staged       []*list.Element // appended but not yet committed
	bytesWritten int
	released     bool
}

func (lw *listWriter) Release() {
	if lw.released {
		return
	}
	lw.released = true
	lw.parent.mu.Lock()
	for _, e := range lw.staged {
		lw.parent.data.Remove(e)
	}
	lw.parent.hasWriter = false
	lw.parent.mu.Unlock()
}

func (lw *listWriter) BytesWritten() int { return lw.bytesWritten }

func (lw *listWriter) Write(src []byte) bool {
	lw.parent.mu.Lock()
	defer lw.parent.mu.Unlock()
	for _, b := range src {
		lw.staged = append(lw.staged, lw.parent.data.PushBack(b))
	}
	lw.bytesWritten += len(src)
	return true
}

func (lw *listWriter) Commit() bool {
	lw.parent.mu.Lock()
	defer lw.parent.mu.Unlock()
	lw.staged = lw.staged[:0]
	return true
}
