// writer.go: raw (buffered and unbuffered) size-limited file writers
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package styx

import (
	"bufio"
	"os"
)

// NoLimit means "never report Full on size".
const NoLimit int64 = -1

// Writer is the contract every file writer (raw buffered, raw unbuffered,
// zstd-streaming) satisfies, so RotatingSink can treat them uniformly.
type Writer interface {
	// Write appends p, returning Full if the configured size limit would
	// be exceeded (the writer performs no partial write in that case).
	Write(p []byte) (n int, status Status)
	Flush() Status
	Close() Status
	// Size reports bytes written to the underlying file so far.
	Size() int64
}

// BufferedWriter wraps a bufio.Writer over an *os.File, matching the
// teacher's default write path (lethe's Logger writes through a plain
// *os.File, which the OS then buffers via the page cache; here we make
// the userspace buffering explicit and swappable per writer_interface.h's
// buffered-vs-unbuffered split).
type BufferedWriter struct {
	file  *os.File
	buf   *bufio.Writer
	size  int64
	limit int64
}

// NewBufferedWriter opens filename, truncating it first if truncate is
// true, and returns a Writer that reports Full once limit bytes have been
// written (limit == NoLimit disables the check).
func NewBufferedWriter(filename string, truncate bool, limit int64) (*BufferedWriter, Status) {
	f, size, st := openForWrite(filename, truncate)
	if !st.Ok() {
		return nil, st
	}
	return &BufferedWriter{file: f, buf: bufio.NewWriterSize(f, 64*1024), size: size, limit: limit}, OK
}

func openForWrite(filename string, truncate bool) (*os.File, int64, Status) {
	flag := os.O_WRONLY | os.O_CREATE
	if truncate {
		flag |= os.O_TRUNC
	} else {
		flag |= os.O_APPEND
	}
	f, err := os.OpenFile(filename, flag, GetDefaultFileMode())
	if err != nil {
		return nil, 0, IOError("open", err.Error())
	}
	var size int64
	if !truncate {
		if info, err := f.Stat(); err == nil {
			size = info.Size()
		}
	}
	return f, size, OK
}

func (w *BufferedWriter) Write(p []byte) (int, Status) {
	if w.limit != NoLimit && w.size+int64(len(p)) > w.limit {
		return 0, Full("buffered writer limit reached")
	}
	n, err := w.buf.Write(p)
	w.size += int64(n)
	if err != nil {
		return n, IOError("write", err.Error())
	}
	return n, OK
}

func (w *BufferedWriter) Flush() Status {
	if err := w.buf.Flush(); err != nil {
		return IOError("flush", err.Error())
	}
	return OK
}

func (w *BufferedWriter) Close() Status {
	if st := w.Flush(); !st.Ok() {
		_ = w.file.Close()
		return st
	}
	if err := w.file.Close(); err != nil {
		return IOError("close", err.Error())
	}
	return OK
}

func (w *BufferedWriter) Size() int64 { return w.size }

// UnbufferedWriter writes straight through to the file descriptor on
// every call and fsyncs on Flush, mirroring
// file_writer_unbuffered_io.h's raw open/write/fsync/close path — for
// callers that want every record durable without relying on the OS page
// cache being flushed by something else.
type UnbufferedWriter struct {
	file  *os.File
	size  int64
	limit int64
}

func NewUnbufferedWriter(filename string, truncate bool, limit int64) (*UnbufferedWriter, Status) {
	f, size, st := openForWrite(filename, truncate)
	if !st.Ok() {
		return nil, st
	}
	return &UnbufferedWriter{file: f, size: size, limit: limit}, OK
}

func (w *UnbufferedWriter) Write(p []byte) (int, Status) {
	if w.limit != NoLimit && w.size+int64(len(p)) > w.limit {
		return 0, Full("unbuffered writer limit reached")
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	if err != nil {
		return n, IOError("write", err.Error())
	}
	return n, OK
}

func (w *UnbufferedWriter) Flush() Status {
	if err := w.file.Sync(); err != nil {
		return IOError("fsync", err.Error())
	}
	return OK
}

func (w *UnbufferedWriter) Close() Status {
	if err := w.file.Close(); err != nil {
		return IOError("close", err.Error())
	}
	return OK
}

func (w *UnbufferedWriter) Size() int64 { return w.size }
