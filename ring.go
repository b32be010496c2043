// ring.go: lock-free MPSC packet ring buffer
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package styx

import (
	"math/bits"
	"runtime"
	"sync/atomic"
	"time"
)

// headerSize is sizeof(packetHeader) rounded to keep payloads 8-byte aligned.
const headerSize = 8

// discardedFlag marks a committed slot as "no payload, skip on read".
// Packed into the high bit of dataSize so the consumer learns "finalized"
// and "payload size" with a single atomic load.
const discardedFlag = uint32(1) << 31
const sizeMask = discardedFlag - 1

// align8 rounds size up to the next multiple of 8.
func align8(size uint32) uint32 { return (size + 7) &^ 7 }

// roundUpPow2 returns the next power of two >= n, with a floor of 2.
func roundUpPow2(n uint32) uint32 {
	if n < 2 {
		return 2
	}
	if n&(n-1) == 0 {
		return n
	}
	return 1 << bits.Len32(n)
}

// packetHeader precedes every packet payload in the ring, 8-byte aligned.
//
// reserveSize is the payload size the producer asked for; dataSize packs
// the committed size (low 31 bits) with the discarded flag (bit 31). Zero
// means "not yet finalized" — the consumer treats that as a stop signal.
type packetHeader struct {
	reserveSize uint32
	dataSize    uint32
}

func headerAt(buf []byte, pos uint32) *packetHeader {
	// #nosec G103 -- buf is the ring's own fixed backing array, pos is always header-aligned
	return (*packetHeader)(unsafePointer(&buf[pos]))
}

// Ring is a lock-free, bounded, multi-producer/single-consumer byte ring
// that transports variable-length packets without per-record allocation.
//
// Capacity is rounded up to a power of two (minimum 2). Producers reserve
// a slot, write the payload directly into it, then commit; exactly one
// consumer drains committed packets in per-producer causal order. See
// DESIGN.md for the wrap/lap reconciliation this implementation mirrors
// from the ulog mpsc_ring original.
type Ring struct {
	buf  []byte
	mask uint32

	_ [64]byte // cache-line pad, matches the ulog mpsc_ring layout

	consHead atomic.Uint32

	_ [60]byte

	prodHead atomic.Uint32
	prodLast atomic.Uint32

	_ [56]byte

	prodNotifier notifier // signalled on Commit; the consumer blocks here on "ring empty"
	consNotifier notifier // signalled on Release; producers and Flush block here on "ring full"/"not drained"
}

// NewRing allocates a ring with the requested capacity rounded up to the
// next power of two (minimum 2). The backing array starts zeroed.
func NewRing(capacity int) *Ring {
	n := roundUpPow2(uint32(capacity))
	return &Ring{
		buf:  make([]byte, n),
		mask: n - 1,
	}
}

func (r *Ring) size() uint32 { return r.mask + 1 }

// nextLapBase returns the first offset of the lap following x's lap.
func (r *Ring) nextLapBase(x uint32) uint32 { return (x &^ r.mask) + r.size() }

// Reserve attempts to reserve payloadSize bytes and returns a subslice of
// the ring's own backing array for the caller to write into directly, or
// nil if the ring cannot currently fit the packet (full, or the request
// exceeds the ring's total usable capacity).
func (r *Ring) Reserve(payloadSize uint32) []byte {
	packetSize := headerSize + align8(payloadSize)
	if packetSize > r.size() {
		return nil
	}

	prodHead := r.prodHead.Load()
	for {
		consHead := r.consHead.Load()

		if prodHead+packetSize-consHead > r.size() {
			return nil
		}

		end := prodHead + packetSize
		rel := end & r.mask

		switch {
		case rel >= packetSize || rel == 0:
			// Fits in the current lap.
			if !r.prodHead.CompareAndSwap(prodHead, end) {
				prodHead = r.prodHead.Load()
				continue
			}
			if rel == 0 {
				r.prodLast.Store(end)
			}
			start := prodHead & r.mask
			return r.finishReserve(start, payloadSize)

		case (consHead & r.mask) >= packetSize:
			// Doesn't fit in the current lap's tail; wrap to offset 0 of
			// the next lap. The skipped tail stays zeroed (see Release).
			newEnd := r.nextLapBase(prodHead) + packetSize
			if !r.prodHead.CompareAndSwap(prodHead, newEnd) {
				prodHead = r.prodHead.Load()
				continue
			}
			r.prodLast.Store(prodHead)
			return r.finishReserve(0, payloadSize)

		default:
			// Neither the tail of this lap nor the head of the next has room.
			return nil
		}
	}
}

func (r *Ring) finishReserve(start, payloadSize uint32) []byte {
	h := headerAt(r.buf, start)
	h.reserveSize = payloadSize
	atomic.StoreUint32(&h.dataSize, 0)
	dataStart := start + headerSize
	return r.buf[dataStart : dataStart+payloadSize : dataStart+payloadSize]
}

// ReserveBlocking retries Reserve until it succeeds or deadline elapses,
// waking on the consumer's "space freed" notifications between attempts.
func (r *Ring) ReserveBlocking(payloadSize uint32, timeout time.Duration) []byte {
	var got []byte
	r.consNotifier.waitFor(timeout, func() bool {
		got = r.Reserve(payloadSize)
		return got != nil
	})
	return got
}

// Commit finalizes a reservation previously returned by Reserve. realSize
// must be <= the size originally requested. realSize == 0 discards the
// slot: the consumer will skip it without delivering it.
func (r *Ring) Commit(reservation []byte, realSize uint32) {
	start := r.headerOffsetOf(reservation)
	h := headerAt(r.buf, start)
	if realSize > 0 {
		atomic.StoreUint32(&h.dataSize, realSize) // release: publishes the payload
	} else {
		for {
			old := atomic.LoadUint32(&h.dataSize)
			if atomic.CompareAndSwapUint32(&h.dataSize, old, old|discardedFlag) {
				break
			}
		}
	}
	r.prodNotifier.notifyWhenBlocking()
}

func (r *Ring) headerOffsetOf(reservation []byte) uint32 {
	base := &r.buf[0]
	off := uintptrSub(&reservation[0], base) - headerSize
	return uint32(off) // #nosec G115 -- off is within the ring's own fixed-size backing array
}

// Flush blocks until the consumer has caught up to the producer position
// observed at call time, or the timeout elapses.
func (r *Ring) Flush(timeout time.Duration) bool {
	r.prodNotifier.notifyWhenBlocking()
	target := r.prodHead.Load()
	return r.consNotifier.waitFor(timeout, func() bool {
		return isPassed(target, r.consHead.Load())
	})
}

// Notify wakes every blocked producer and the consumer so they can
// re-check their predicates; used during shutdown.
func (r *Ring) Notify() {
	r.prodNotifier.notifyWhenBlocking()
	r.consNotifier.notifyWhenBlocking()
}

// isPassed reports whether target has been reached or passed by cur,
// accounting for uint32 wraparound.
func isPassed(target, cur uint32) bool {
	return int32(cur-target) >= 0
}

// packetGroup describes one contiguous run of finalized packets.
type packetGroup struct {
	start uint32
	count int
	size  uint32
}

func (g packetGroup) empty() bool { return g.count == 0 }

// Batch is a non-blocking read result: up to two packet groups (group1 is
// only populated when the read straddled a lap boundary).
type Batch struct {
	ring         *Ring
	group0       packetGroup
	group1       packetGroup
	nextConsHead uint32
	empty        bool
}

// Packets returns every finalized, non-discarded payload in the batch, in
// delivery order.
func (b *Batch) Packets(fn func(payload []byte)) {
	if b.empty {
		return
	}
	b.ring.walkGroup(b.group0, fn)
	b.ring.walkGroup(b.group1, fn)
}

// HasData reports whether this batch carries any packets at all (discarded
// slots still consume ring space and are walked, but never passed to fn).
func (b *Batch) HasData() bool { return !b.empty }

func (r *Ring) walkGroup(g packetGroup, fn func(payload []byte)) {
	pos := g.start
	for i := 0; i < g.count; i++ {
		h := headerAt(r.buf, pos)
		size := atomic.LoadUint32(&h.dataSize) // acquire: pairs with Commit's release store
		discarded := size&discardedFlag != 0
		payloadSize := size & sizeMask
		if !discarded {
			dataStart := pos + headerSize
			fn(r.buf[dataStart : dataStart+payloadSize])
		}
		pos += headerSize + align8(h.reserveSize)
	}
}

const maxPacketsPerScan = 1024

// scan walks forward from buf offset `from` up to `limit` bytes, counting
// finalized packets until it hits an unfinalized slot (dataSize == 0, the
// producer hasn't committed yet) or the scan cap.
func (r *Ring) scan(from, limit uint32) packetGroup {
	pos := from
	end := from + limit
	count := 0
	for pos < end && count < maxPacketsPerScan {
		h := headerAt(r.buf, pos)
		if atomic.LoadUint32(&h.dataSize) == 0 {
			break
		}
		count++
		pos += headerSize + align8(h.reserveSize)
	}
	if count == 0 {
		return packetGroup{}
	}
	return packetGroup{start: from, count: count, size: pos - from}
}

// Read performs a non-blocking batch read. Returns an empty Batch if no
// committed data is available yet.
func (r *Ring) Read() Batch {
	consHead := r.consHead.Load()
	prodHead := r.prodHead.Load()
	if consHead == prodHead {
		return Batch{ring: r, empty: true}
	}

	curProd := prodHead & r.mask
	curCons := consHead & r.mask

	if curCons < curProd {
		g := r.scan(curCons, curProd-curCons)
		if g.empty() {
			return Batch{ring: r, empty: true}
		}
		return Batch{ring: r, group0: g, nextConsHead: consHead + g.size}
	}

	// Different laps: reconcile prodLast, which may briefly lag prodHead.
	prodLast := r.prodLast.Load()
	for prodLast-consHead > r.size() {
		runtime.Gosched()
		prodLast = r.prodLast.Load()
	}

	if consHead == prodLast {
		// The current lap is fully drained; the next group starts at 0.
		g := r.scan(0, curProd)
		if g.empty() {
			return Batch{ring: r, empty: true}
		}
		var next uint32
		if curCons == 0 {
			next = consHead + g.size
		} else {
			next = r.nextLapBase(consHead) + g.size
		}
		return Batch{ring: r, group0: g, nextConsHead: next}
	}

	expected := prodLast - consHead
	g0 := r.scan(curCons, expected)
	if g0.empty() {
		return Batch{ring: r, empty: true}
	}
	if g0.size == expected {
		g1 := r.scan(0, curProd)
		return Batch{ring: r, group0: g0, group1: g1, nextConsHead: r.nextLapBase(consHead) + g1.size}
	}
	return Batch{ring: r, group0: g0, nextConsHead: consHead + g0.size}
}

// ReadBlocking retries Read until it returns data, the predicate fires, or
// the deadline passes.
func (r *Ring) ReadBlocking(timeout time.Duration, other func() bool) Batch {
	var got Batch
	r.prodNotifier.waitFor(timeout, func() bool {
		got = r.Read()
		return got.HasData() || other()
	})
	return got
}

// ReadBlockingForever is ReadBlocking with no timeout.
func (r *Ring) ReadBlockingForever(other func() bool) Batch {
	var got Batch
	r.prodNotifier.wait(func() bool {
		got = r.Read()
		return got.HasData() || other()
	})
	return got
}

// Release zero-fills the consumed byte ranges (so a future lap's readers
// can tell "reserved but not committed" from "never written") and advances
// the consumer position, waking any blocked producers.
func (r *Ring) Release(b Batch) {
	if b.empty {
		return
	}
	r.zero(b.group0)
	r.zero(b.group1)
	r.consHead.Store(b.nextConsHead) // release
	r.consNotifier.notifyWhenBlocking()
}

func (r *Ring) zero(g packetGroup) {
	if g.size == 0 {
		return
	}
	clearBytes(r.buf[g.start : g.start+g.size])
}

func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
