// unsafe_util.go: pointer arithmetic helpers for the ring's in-place header view.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package styx

import "unsafe"

// unsafePointer views the byte b points to as the start of a packetHeader.
// The ring guarantees headers are only ever placed at 8-byte-aligned
// offsets within its own backing array, so the resulting pointer is always
// correctly aligned for uint32 atomic access.
func unsafePointer(b *byte) unsafe.Pointer {
	return unsafe.Pointer(b)
}

// uintptrSub returns the byte offset of p relative to base, both pointing
// into the same backing array.
func uintptrSub(p, base *byte) uintptr {
	return uintptr(unsafe.Pointer(p)) - uintptr(unsafe.Pointer(base))
}
