// rotating_sink.go: composes a Writer and a RotationStrategy into one sink
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package styx

import (
	"sync"
	"time"

	"github.com/agilira/go-timecache"
)

// WriterFactory opens a fresh Writer at path, truncating or appending as
// requested. RotatingSink calls this once at construction and again
// after every rotation.
type WriterFactory func(path string, truncate bool, limit int64) (Writer, Status)

// HeaderFunc, when set, is invoked after opening/reopening the current
// file so formats that need a file header (e.g. a column schema line)
// get it re-emitted after each rotation, matching sink_rotating_file.h's
// optional header callback.
type HeaderFunc func() []byte

// RotatingSinkConfig holds the knobs sink_rotating_file.h's constructor
// takes, generalized to any Writer/RotationStrategy pair.
type RotatingSinkConfig struct {
	Filename      string
	MaxFileSize   int64
	MaxFiles      int
	Strategy      string // "rename" or "incremental"
	RotateOnOpen  bool
	NewWriter     WriterFactory
	Header        HeaderFunc
	Checksum      bool
	Compress      bool
	MaxFileAge    time.Duration
	ErrorCallback func(op string, err error)
}

// RotatingSink implements SinkIt with retry-once-on-Full: a write that
// finds the current file full triggers exactly one rotation and one
// retry before surfacing Full to the caller, matching sink_rotating_file.h.
type RotatingSink struct {
	mu       sync.Mutex
	cfg      RotatingSinkConfig
	strategy RotationStrategy
	writer   Writer
	clock    *timecache.TimeCache
	bg       *backgroundWorkers
	closed   bool
}

func NewRotatingSink(cfg RotatingSinkConfig) (*RotatingSink, Status) {
	if cfg.NewWriter == nil {
		return nil, InvalidArgument("NewWriter", "must be set")
	}
	var strategy RotationStrategy
	switch cfg.Strategy {
	case "", "rename":
		strategy = NewRenameRotation(cfg.Filename, cfg.MaxFiles)
	case "incremental":
		strategy = NewIncrementalRotation(cfg.Filename, cfg.MaxFiles)
	default:
		return nil, InvalidArgument("Strategy", cfg.Strategy)
	}

	s := &RotatingSink{
		cfg:      cfg,
		strategy: strategy,
		clock:    timecache.NewWithResolution(timeCacheResolution),
	}
	if cfg.Checksum || cfg.Compress || cfg.MaxFileAge > 0 {
		s.bg = newBackgroundWorkers(2)
	}

	if cfg.RotateOnOpen {
		if st := strategy.Rotate(); !st.Ok() {
			s.reportError(OpRotate, st)
		}
	}

	w, st := cfg.NewWriter(strategy.LatestFilename(), cfg.RotateOnOpen, cfg.MaxFileSize)
	if !st.Ok() {
		return nil, st
	}
	s.writer = w
	s.emitHeader()
	return s, OK
}

func (s *RotatingSink) reportError(op string, st Status) {
	if s.cfg.ErrorCallback != nil {
		s.cfg.ErrorCallback(op, wrapOpError(op, st))
	}
}

func (s *RotatingSink) emitHeader() {
	if s.cfg.Header == nil {
		return
	}
	if h := s.cfg.Header(); len(h) > 0 {
		if _, st := s.writer.Write(h); !st.Ok() {
			s.reportError(OpWrite, st)
		}
	}
}

// SinkIt writes data, rotating and retrying exactly once if the current
// file reports Full.
func (s *RotatingSink) SinkIt(data []byte) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return IOError("sink_it", "sink closed")
	}

	_, st := s.writer.Write(data)
	if st.Ok() {
		return OK
	}
	if !st.IsFull() {
		s.reportError(OpWrite, st)
		return st
	}

	if st := s.rotate(); !st.Ok() {
		return st
	}

	_, st = s.writer.Write(data)
	if !st.Ok() {
		if !st.IsFull() {
			s.reportError(OpWrite, st)
		}
		return st
	}
	return OK
}

func (s *RotatingSink) rotate() Status {
	if st := s.writer.Close(); !st.Ok() {
		s.reportError(OpRotate, st)
	}

	closedPath := s.strategy.LatestFilename()

	if st := s.strategy.Rotate(); !st.Ok() {
		s.reportError(OpRotate, st)
		return st
	}
	if _, ok := s.strategy.(*RenameRotation); ok {
		// The rename chain moved the closed file from Filename(0) to Filename(1).
		closedPath = s.strategy.Filename(1)
	}

	if s.bg != nil {
		if s.cfg.Checksum {
			s.bg.submit(backgroundTask{run: func() { checksumAndReport(closedPath, s.cfg.ErrorCallback) }})
		}
		if s.cfg.Compress {
			s.bg.submit(backgroundTask{run: func() { gzipCompress(closedPath, s.cfg.ErrorCallback) }})
		}
		if s.cfg.MaxFileAge > 0 {
			s.bg.submit(backgroundTask{run: func() {
				cleanupByAge(s.cfg.Filename, s.cfg.MaxFileAge, s.clock, s.cfg.ErrorCallback)
			}})
		}
	}

	w, st := s.cfg.NewWriter(s.strategy.LatestFilename(), true, s.cfg.MaxFileSize)
	if !st.Ok() {
		s.reportError(OpOpen, st)
		return st
	}
	s.writer = w
	s.emitHeader()
	return OK
}

// Rotate forces rotation regardless of current file size.
func (s *RotatingSink) Rotate() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return IOError("rotate", "sink closed")
	}
	return s.rotate()
}

// Flush flushes the underlying writer.
func (s *RotatingSink) Flush() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return OK
	}
	return s.writer.Flush()
}

// Close flushes and closes the underlying writer; further SinkIt calls
// return an IOError.
func (s *RotatingSink) Close() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return OK
	}
	s.closed = true
	s.clock.Stop()
	if s.bg != nil {
		s.bg.waitForCompletion()
		s.bg.stop()
	}
	return s.writer.Close()
}
