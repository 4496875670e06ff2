// SPDX-License-Identifier: MIT
/*
Package bitint provides the power-of-2 arithmetic used when sizing
render buffers and analysis windows.

Design Principles:
- Zero Allocations: All operations use stack memory only
- Predictable Performance: O(1) constant time operations

Usage:

	// Grow an output arena geometrically
	capacity := bitint.GrowCapacity(len(arena), needed) // 1000 -> 1024

	// Pick an FFT window that covers a block
	size := bitint.PrevPowerOfTwo(frames) // 1000 -> 512

----------------------------------------------------------------------

NextPowerOfTwo subtracts one before measuring the bit length so that
exact powers of 2 are preserved:

	size=8:  bits.Len(7) = 3, 1<<3 = 8
	size=9:  bits.Len(8) = 4, 1<<4 = 16
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// PrevPowerOfTwo returns the largest power of 2 <= size, or 0 when size < 1.
func PrevPowerOfTwo(size int) int {
	if size < 1 {
		return 0
	}
	return 1 << (bits.Len(uint(size)) - 1)
}

// IsPowerOfTwo checks if n is a power of 2 using bit manipulation.
// (n & (n-1)) clears the lowest set bit, so it is 0 only when a single bit is set.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// GrowCapacity returns the capacity an append-only buffer should move to
// when it holds current elements and needs room for needed in total. The
// result is a power of 2 and never smaller than needed, so repeated growth
// reallocates O(log n) times.
func GrowCapacity(current, needed int) int {
	if needed <= current {
		return current
	}
	return NextPowerOfTwo(needed)
}
