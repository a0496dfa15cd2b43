// bytebuffer.go: byte-buffer abstraction shared by all ringlog buffer backends
//
// Copyright (c) 2025 ringlog authors
// SPDX-License-Identifier: MPL-2.0

package ringlog

import "errors"

// ErrBufferBusy is returned by GetReader/GetWriter when a buffer already
// has a live Reader or Writer checked out. A ByteBuffer backend enforces
// at most one concurrent Reader and at most one concurrent Writer; a
// second concurrent acquisition is a contract violation, not a transient
// condition, so it is reported immediately rather than retried.
var ErrBufferBusy = errors.New("ringlog: buffer already has an active reader or writer")

// ByteBuffer is the common contract every buffer backend satisfies: a
// bounded or unbounded byte channel with exactly one producer session and
// one consumer session live at a time. Producers and consumers acquire a
// scoped Writer or Reader, stage bytes into it, and either Commit the
// staged progress or let the handle go out of scope to discard it.
type ByteBuffer interface {
	// GetReader checks out the buffer's single Reader. It returns
	// ErrBufferBusy if a Reader is already checked out.
	GetReader() (Reader, error)

	// GetWriter checks out the buffer's single Writer. It returns
	// ErrBufferBusy if a Writer is already checked out.
	GetWriter() (Writer, error)

	// Capacity reports the maximum number of bytes the buffer can hold
	// committed at once. Unbounded backends report a sentinel maximum.
	Capacity() int
}

// Reader is a scoped read session acquired from a ByteBuffer. A Reader
// must be released (via Release, typically deferred) when the caller is
// done with it, regardless of whether Commit was called.
type Reader interface {
	// Read copies len(dst) bytes from the buffer into dst, advancing a
	// session-local shadow cursor. It returns false if fewer than
	// len(dst) bytes are currently available, or if len(dst) exceeds the
	// buffer's capacity; on failure dst may have been partially written
	// with undefined contents and must not be used by the caller.
	Read(dst []byte) bool

	// Commit publishes the session's shadow read cursor, permanently
	// freeing the consumed bytes for reuse by writers. Bytes read since
	// the last Commit (or since the session began) are discarded if
	// Commit is never called.
	Commit() bool

	// BytesRead reports the number of bytes read during this session,
	// committed or not.
	BytesRead() int

	// Release returns the Reader slot to the buffer, allowing a new
	// GetReader call to succeed. It does not imply Commit.
	Release()
}

// Writer is a scoped write session acquired from a ByteBuffer. A Writer
// must be released (via Release, typically deferred) when the caller is
// done with it, regardless of whether Commit was called.
type Writer interface {
	// Write copies src into the buffer, advancing a session-local
	// shadow cursor. It returns false without staging any bytes if
	// there is not currently room for all of src, or if len(src)
	// exceeds the buffer's capacity.
	Write(src []byte) bool

	// Commit publishes the session's shadow write cursor, making the
	// written bytes visible to the reader. Bytes written since the
	// last Commit (or since the session began) are discarded if Commit
	// is never called.
	Commit() bool

	// BytesWritten reports the number of bytes written during this
	// session, committed or not.
	BytesWritten() int

	// Release returns the Writer slot to the buffer, allowing a new
	// GetWriter call to succeed. It does not imply Commit.
	Release()
}
