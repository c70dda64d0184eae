// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package smmu

import "testing"

// For every (slot_p, wrap_p, slot_c, wrap_c) combination at a small log2n,
// exactly one of empty, full, or partial holds.
func TestRingStateExhaustive(t *testing.T) {
	const log2n = 3 // 8 slots

	n := uint32(1) << log2n

	for sp := uint32(0); sp < n; sp++ {
		for wp := uint32(0); wp < 2; wp++ {
			for sc := uint32(0); sc < n; sc++ {
				for wc := uint32(0); wc < 2; wc++ {
					prod := sp | (wp << log2n)
					cons := sc | (wc << log2n)

					empty := ringEmpty(prod, cons, log2n)
					full := ringFull(prod, cons, log2n)

					if empty && full {
						t.Fatalf("prod=%d cons=%d: both empty and full", prod, cons)
					}

					if !empty && !full && sp != sc {
						// partial: slots differ, neither empty nor full - expected
						continue
					}

					if !empty && !full && sp == sc {
						t.Fatalf("prod=%d cons=%d: equal slots but neither empty nor full", prod, cons)
					}
				}
			}
		}
	}
}

func TestRingAdvanceTogglesWrap(t *testing.T) {
	const log2n = 4 // 16 slots

	idx := uint32(0)

	for i := 0; i < (1 << log2n); i++ {
		idx = ringAdvance(idx, log2n)
	}

	if ringWrap(idx, log2n) != 1 {
		t.Fatalf("after %d advances, wrap bit = %d, want 1", 1<<log2n, ringWrap(idx, log2n))
	}

	if ringSlot(idx, log2n) != 0 {
		t.Fatalf("after %d advances, slot = %d, want 0", 1<<log2n, ringSlot(idx, log2n))
	}
}

// With a 16-entry queue, advancing 17 times moves the index across exactly
// one wrap-bit toggle.
func TestRingWrapSingleToggle(t *testing.T) {
	const log2n = 4 // 16 entries

	idx := uint32(0)
	toggles := 0
	prevWrap := ringWrap(idx, log2n)

	for i := 0; i < 17; i++ {
		idx = ringAdvance(idx, log2n)

		if w := ringWrap(idx, log2n); w != prevWrap {
			toggles++
			prevWrap = w
		}
	}

	if toggles != 1 {
		t.Fatalf("17 advances over a 16-entry ring toggled wrap %d times, want 1", toggles)
	}

	if ringSlot(idx, log2n) != 1 {
		t.Fatalf("slot after 17 advances = %d, want 1", ringSlot(idx, log2n))
	}
}
