// pipeline.go: Pipeline — the public entry point wiring ring, async sink and rotating file sink together
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package styx

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Pipeline is the top-level type: an io.Writer-compatible front end that
// reserves a slot in the MPSC ring for every write and lets a dedicated
// goroutine drain it into a rotating, optionally compressed and
// checksummed file. Construct one with New or NewWithConfig; Close it
// when done.
type Pipeline struct {
	async   *AsyncSink
	sink    *RotatingSink
	writeCount atomic.Uint64
	closeOnce  sync.Once
}

// New opens filename with the given size and file-count limits using
// the default (buffered raw, rename-strategy) writer path — the closest
// styx equivalent of lethe.New's three-argument quick start.
func New(filename string, maxSizeMB int64, maxFiles int) (*Pipeline, error) {
	return NewWithConfig(&Config{
		Filename: filename,
		MaxSize:  maxSizeMB * 1024 * 1024,
		MaxFiles: maxFiles,
	})
}

// NewWithConfig validates cfg, fills in defaults, and builds the full
// ring -> async sink -> rotating sink pipeline.
func NewWithConfig(cfg *Config) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("styx: Config must not be nil")
	}
	c := *cfg
	if err := c.fillDefaults(); err != nil {
		return nil, err
	}

	factory := writerFactoryFor(c.Writer, c.ZstdParams)

	sink, st := NewRotatingSink(RotatingSinkConfig{
		Filename:      c.Filename,
		MaxFileSize:   c.MaxSize,
		MaxFiles:      c.MaxFiles,
		Strategy:      c.Strategy,
		RotateOnOpen:  c.RotateOnOpen,
		NewWriter:     factory,
		Checksum:      c.Checksum,
		Compress:      c.Compress,
		MaxFileAge:    c.MaxFileAge,
		ErrorCallback: c.ErrorCallback,
	})
	if !st.Ok() {
		return nil, st
	}

	async := NewAsyncSink([]Sink{sink}, AsyncConfig{
		RingCapacity:  c.RingCapacity,
		FlushPeriod:   c.FlushPeriod,
		ErrorCallback: c.ErrorCallback,
	})

	return &Pipeline{async: async, sink: sink}, nil
}

func writerFactoryFor(kind WriterKind, zstdParams ZstdParams) WriterFactory {
	switch kind {
	case WriterUnbuffered:
		return func(path string, truncate bool, limit int64) (Writer, Status) {
			return NewUnbufferedWriter(path, truncate, limit)
		}
	case WriterZstd:
		return func(path string, truncate bool, limit int64) (Writer, Status) {
			return NewZstdWriter(path, truncate, limit, zstdParams)
		}
	default:
		return func(path string, truncate bool, limit int64) (Writer, Status) {
			return NewBufferedWriter(path, truncate, limit)
		}
	}
}

// Write implements io.Writer: it copies data into a ring reservation and
// returns once committed, without waiting for the drain goroutine to
// write it to disk. Safe for concurrent use by multiple producers.
func (p *Pipeline) Write(data []byte) (int, error) {
	p.writeCount.Add(1)
	st := p.async.EnqueueBytes(data)
	if !st.Ok() {
		return 0, st
	}
	return len(data), nil
}

// WriteTimeout is Write that, when the ring is full, waits up to timeout
// for space instead of returning Full at once (timeout <= 0 waits
// forever).
func (p *Pipeline) WriteTimeout(data []byte, timeout time.Duration) (int, error) {
	p.writeCount.Add(1)
	st := p.async.EnqueueTimeout(uint32(len(data)), func(dst []byte) { copy(dst, data) }, timeout) // #nosec G115 -- caller-controlled record size, bounded by ring capacity at Reserve
	if !st.Ok() {
		return 0, st
	}
	return len(data), nil
}

// Flush blocks until the drain goroutine has handed every record enqueued
// so far to the rotating sink, or timeout elapses. It also requests a sink
// flush, which the drain goroutine runs afterwards; Flush does not wait
// for that sink flush to finish.
func (p *Pipeline) Flush(timeout time.Duration) bool {
	return p.async.Flush(timeout)
}

// Rotate forces an immediate rotation regardless of the current file
// size, the same manual-rotate escape hatch lethe.Rotate provides
// (useful for external log-shipping tools like logrotate/copytruncate
// coordination).
func (p *Pipeline) Rotate() error {
	if st := p.sink.Rotate(); !st.Ok() {
		return st
	}
	return nil
}

// Close flushes and stops the drain goroutine, then closes the rotating
// sink. Safe to call more than once.
func (p *Pipeline) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.async.Close()
		if st := p.sink.Close(); !st.Ok() {
			err = st
		}
	})
	return err
}

// Stats reports cumulative write counts. Further metrics are carried by
// the configured ErrorCallback rather than polled here, since the
// background drain goroutine, not the caller, owns I/O failure detail.
type Stats struct {
	WriteCount uint64
}

func (p *Pipeline) Stats() Stats {
	return Stats{WriteCount: p.writeCount.Load()}
}

// RotatingSink exposes the underlying sink so callers can wire a
// ConfigWatcher (see WatchConfig) to it.
func (p *Pipeline) RotatingSink() *RotatingSink {
	return p.sink
}
