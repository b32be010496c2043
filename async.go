// async.go: async sink wrapper — drains the ring on a dedicated goroutine into a sink chain
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package styx

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/go-timecache"
)

// Sink is anything AsyncSink can drain packets into. RotatingSink
// satisfies this directly.
type Sink interface {
	SinkIt(data []byte) Status
	Flush() Status
}

// AsyncConfig holds the knobs sink_async_wrapper.h's constructor takes.
type AsyncConfig struct {
	RingCapacity  int
	FlushPeriod   time.Duration
	ShutdownFlush time.Duration // how long Close() waits for a final drain
	ErrorCallback func(op string, err error)
}

// AsyncSink owns a Ring and a chain of Sinks, draining the ring on one
// dedicated goroutine and fanning each packet out to every live sink.
// A sink that returns Full is dropped from the chain permanently — the
// same policy sink_async_wrapper.h's SinkAll applies, on the theory that
// a sink reporting Full from an async drain loop (as opposed to the
// synchronous retry-once path inside RotatingSink) has no caller left to
// retry on its behalf.
type AsyncSink struct {
	ring  *Ring
	clock *timecache.TimeCache
	cfg   AsyncConfig

	mu    sync.Mutex
	sinks []Sink

	shouldFlush atomic.Bool
	exiting     atomic.Bool
	done        chan struct{}
	closeOnce   sync.Once
}

// NewAsyncSink starts the drain goroutine immediately.
func NewAsyncSink(sinks []Sink, cfg AsyncConfig) *AsyncSink {
	if cfg.RingCapacity <= 0 {
		cfg.RingCapacity = 4096
	}
	if cfg.FlushPeriod <= 0 {
		cfg.FlushPeriod = time.Millisecond
	}
	if cfg.ShutdownFlush <= 0 {
		cfg.ShutdownFlush = 5 * time.Second
	}

	a := &AsyncSink{
		ring:  NewRing(cfg.RingCapacity),
		clock: timecache.NewWithResolution(timeCacheResolution),
		cfg:   cfg,
		sinks: append([]Sink(nil), sinks...),
		done:  make(chan struct{}),
	}
	go a.run()
	return a
}

// Enqueue reserves payloadSize bytes directly in the ring and lets fill
// write the packet in place, returning Full immediately if the ring has
// no room — the non-blocking variant, matching sink_async_wrapper.h's
// no-timeout SinkIt overload, which calls the bare Reserve and never
// waits. Use EnqueueTimeout for the blocking-with-timeout variant.
func (a *AsyncSink) Enqueue(payloadSize uint32, fill func([]byte)) Status {
	res := a.ring.Reserve(payloadSize)
	if res == nil {
		return Full("ring reservation failed")
	}
	fill(res)
	a.ring.Commit(res, payloadSize)
	return OK
}

// EnqueueTimeout blocks until space is available or timeout elapses
// (timeout <= 0 waits forever), returning Full if the reservation could
// not be made within the timeout.
func (a *AsyncSink) EnqueueTimeout(payloadSize uint32, fill func([]byte), timeout time.Duration) Status {
	res := a.ring.ReserveBlocking(payloadSize, timeout)
	if res == nil {
		return Full("ring reservation timed out")
	}
	fill(res)
	a.ring.Commit(res, payloadSize)
	return OK
}

// EnqueueBytes is the copying convenience path, built on the same
// Reserve/Commit primitive as Enqueue rather than duplicating it.
func (a *AsyncSink) EnqueueBytes(data []byte) Status {
	return a.Enqueue(uint32(len(data)), func(dst []byte) { copy(dst, data) }) // #nosec G115 -- caller-controlled record size, bounded by ring capacity at Reserve
}

// run is the drain loop: read a batch (blocking with the configured
// flush period as its wake-up cadence), fan it out, flush on request or
// on schedule, exit once told to and the ring is drained.
func (a *AsyncSink) run() {
	defer close(a.done)
	ticker := time.NewTicker(a.cfg.FlushPeriod)
	defer ticker.Stop()

	for {
		batch := a.ring.ReadBlocking(a.cfg.FlushPeriod, a.exiting.Load)
		if batch.HasData() {
			a.sinkAll(&batch)
			a.ring.Release(batch)
		}

		if a.shouldFlush.CompareAndSwap(true, false) {
			a.flushAll()
		}

		select {
		case <-ticker.C:
			a.flushAll()
		default:
		}

		if a.exiting.Load() {
			final := a.ring.Read()
			if !final.HasData() {
				a.flushAll()
				return
			}
			a.sinkAll(&final)
			a.ring.Release(final)
		}
	}
}

func (a *AsyncSink) sinkAll(batch *Batch) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.sinks) == 0 {
		return
	}
	batch.Packets(func(payload []byte) {
		live := a.sinks[:0]
		for _, s := range a.sinks {
			st := s.SinkIt(payload)
			if st.IsFull() {
				continue // drop a permanently-full sink from the chain
			}
			if !st.Ok() {
				a.reportError(OpWrite, st)
			}
			live = append(live, s)
		}
		a.sinks = live
	})
}

func (a *AsyncSink) flushAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.sinks {
		if st := s.Flush(); !st.Ok() {
			a.reportError(OpWrite, st)
		}
	}
}

func (a *AsyncSink) reportError(op string, st Status) {
	if a.cfg.ErrorCallback != nil {
		a.cfg.ErrorCallback(op, wrapOpError(op, st))
	}
}

// Flush requests an out-of-band flush of every sink and waits up to
// timeout for the ring to drain to its current producer position.
func (a *AsyncSink) Flush(timeout time.Duration) bool {
	a.shouldFlush.Store(true)
	return a.ring.Flush(timeout)
}

// Close drains the ring, flushes every sink, stops the drain goroutine
// and waits for it to exit. Safe to call more than once.
func (a *AsyncSink) Close() {
	a.closeOnce.Do(func() {
		a.ring.Flush(a.cfg.ShutdownFlush)
		a.exiting.Store(true)
		a.ring.Notify()
		<-a.done
		a.clock.Stop()
	})
}
