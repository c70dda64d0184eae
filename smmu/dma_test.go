// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package smmu

import (
	"errors"
	"testing"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()

	mmio := newFakeMMIO(t)
	alloc := newBumpAllocator(64)

	c, err := Configure(alloc, Config{Base: mmio.base, OutputBase: 0, NumIDs: 0xff})
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}

	return c
}

// A single-page read mapping is installed and torn back down through the
// DMA façade.
func TestMapUnmapSinglePage(t *testing.T) {
	c := newTestController(t)

	const host = uint64(0x4000_0000)

	m, err := c.Map(MapRead, host, 0x1000)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}

	if m.device != host {
		t.Fatalf("device addr = 0x%x, want 0x%x (identity mapping)", m.device, host)
	}

	got := leafEntry(c.pageRoot, host)
	want := uint64(0x4000_0443)

	if got != want {
		t.Fatalf("leaf after Map = 0x%x, want 0x%x", got, want)
	}

	if err := c.Unmap(m); err != nil {
		t.Fatalf("Unmap: %v", err)
	}

	if got := leafEntry(c.pageRoot, host); got&entryValid != 0 {
		t.Fatalf("leaf after Unmap = 0x%x, bit 0 still set", got)
	}
}

// A write mapping straddling a page boundary must update both leaves.
func TestMapCrossPageWrite(t *testing.T) {
	c := newTestController(t)

	const host = uint64(0x8000_0ff0)
	const length = 0x20

	m, err := c.Map(MapWrite, host, length)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}

	for _, va := range []uint64{0x8000_0000, 0x8000_1000} {
		got := leafEntry(c.pageRoot, va)
		want := va | leafFlagsBase | leafFlagsWriteOnly | entryValid

		if got != want {
			t.Fatalf("leaf at 0x%x = 0x%x, want 0x%x", va, got, want)
		}
	}

	if err := c.Unmap(m); err != nil {
		t.Fatalf("Unmap: %v", err)
	}
}

// An unrecognized op is rejected and no leaves change.
func TestMapUnknownOp(t *testing.T) {
	c := newTestController(t)

	const host = uint64(0x9000_0000)

	before := leafEntry(c.pageRoot, host)

	_, err := c.Map(MapOp(99), host, 0x1000)
	if !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("Map with unknown op error = %v, want ErrInvalidParameter", err)
	}

	after := leafEntry(c.pageRoot, host)
	if before != after {
		t.Fatalf("leaf changed after rejected Map: before 0x%x after 0x%x", before, after)
	}
}

func TestUnmapNilMapping(t *testing.T) {
	c := newTestController(t)

	if err := c.Unmap(nil); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("Unmap(nil) error = %v, want ErrInvalidParameter", err)
	}
}

func TestAllocateFreeBuffer(t *testing.T) {
	c := newTestController(t)

	addr, err := c.AllocateBuffer(2)
	if err != nil {
		t.Fatalf("AllocateBuffer: %v", err)
	}

	if addr == 0 {
		t.Fatal("AllocateBuffer returned zero address")
	}

	c.FreeBuffer(addr, 2)
}
