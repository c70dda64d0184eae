// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package smmu

// A Command Queue / Event Queue producer or consumer index packs a
// log2(N)-bit slot in the low bits and a single wrap bit immediately above
// it. The wrap bit is never modulo-reduced away: advancing past the top
// slot flips it instead of being masked out, which is what lets equal
// slots with differing wrap bits mean "full" rather than "empty".

func ringSlot(idx uint32, log2n uint) uint32 {
	return idx & (1<<log2n - 1)
}

func ringWrap(idx uint32, log2n uint) uint32 {
	return (idx >> log2n) & 1
}

func ringEmpty(prod, cons uint32, log2n uint) bool {
	return ringSlot(prod, log2n) == ringSlot(cons, log2n) && ringWrap(prod, log2n) == ringWrap(cons, log2n)
}

func ringFull(prod, cons uint32, log2n uint) bool {
	return ringSlot(prod, log2n) == ringSlot(cons, log2n) && ringWrap(prod, log2n) != ringWrap(cons, log2n)
}

// ringAdvance returns idx+1, wrapping the slot bits and toggling the wrap
// bit on overflow, without ever reducing the wrap bit itself.
func ringAdvance(idx uint32, log2n uint) uint32 {
	mask := uint32(1)<<(log2n+1) - 1
	return (idx + 1) & mask
}
