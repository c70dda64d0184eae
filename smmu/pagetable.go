// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package smmu

import (
	"fmt"

	"github.com/usbarmory/smmuv3/internal/reg"
)

// Stage-2 VMSAv8-64 translation table shape: 4 levels, 4 KiB granule, 512
// 64-bit entries per level.
const (
	pageTableSize  = 512
	pageTableDepth = 4
	pageSize       = 4096

	entryValid    = 1 << 0
	entryTable    = 1 << 1 // "table/page" select, always set on populated entries
	entryAF       = 1 << 10
	entryAddrMask = ^uint64(0xfff)
)

// PageAllocator models the system-wide allocate-aligned-pages / free-pages
// collaborator this driver consumes rather than owns.
type PageAllocator interface {
	// AllocatePages returns the physical address of pages naturally
	// page-aligned, zeroed blocks.
	AllocatePages(pages int) (addr uint64, err error)
	// FreePages releases a block previously obtained from AllocatePages.
	FreePages(addr uint64, pages int)
}

// pageLevelIndex returns the 9-bit index into a translation level for a
// given level (0..3) and virtual address.
func pageLevelIndex(va uint64, level int) uint64 {
	shift := 12 + 9*(3-level)
	return (va >> uint(shift)) & 0x1ff
}

// entryAt reads entry i of the page at base.
func entryAt(base uint64, i uint64) uint64 {
	return reg.Read64(base + i*8)
}

// setEntryAt writes entry i of the page at base.
func setEntryAt(base uint64, i uint64, val uint64) {
	reg.Write64(base+i*8, val)
}

// initPageTable allocates and zeroes the level-0 root page of a stage-2
// translation tree.
func initPageTable(alloc PageAllocator) (root uint64, err error) {
	root, err = alloc.AllocatePages(1)
	if err != nil {
		return 0, fmt.Errorf("%w: page table root: %v", ErrOutOfResources, err)
	}

	return root, nil
}

// updateMapping descends levels 0..2 of the tree rooted at root, allocating
// intermediate pages on demand, and writes a leaf entry for va at level 3.
//
// Intermediate entries accumulate the caller's flags and, when valid is
// true, the valid bit. The leaf is rewritten to (pa &^ 0xfff) | flags, with
// bit 0 set when valid and cleared when not.
func updateMapping(alloc PageAllocator, root uint64, va uint64, pa uint64, flags uint64, valid bool) error {
	if root == 0 {
		return fmt.Errorf("%w: nil page table root", ErrInvalidParameter)
	}

	table := root

	for level := 0; level < pageTableDepth-1; level++ {
		idx := pageLevelIndex(va, level)
		entry := entryAt(table, idx)

		if entry == 0 {
			next, err := alloc.AllocatePages(1)
			if err != nil {
				return fmt.Errorf("%w: level %d table", ErrOutOfResources, level)
			}

			entry = next
		}

		if valid {
			entry |= entryValid
		}

		entry |= flags

		setEntryAt(table, idx, entry)

		table = entry & entryAddrMask
	}

	idx := pageLevelIndex(va, pageTableDepth-1)
	entry := (pa & entryAddrMask) | flags

	if valid {
		entry |= entryValid
	} else {
		entry &^= entryValid
	}

	setEntryAt(table, idx, entry)

	return nil
}

// leafEntry returns the current level-3 entry for va, for tests and
// diagnostics.
func leafEntry(root uint64, va uint64) uint64 {
	table := root

	for level := 0; level < pageTableDepth-1; level++ {
		idx := pageLevelIndex(va, level)
		table = entryAt(table, idx) & entryAddrMask

		if table == 0 {
			return 0
		}
	}

	return entryAt(table, pageLevelIndex(va, pageTableDepth-1))
}

// deinitPageTable walks the tree depth-first, freeing every allocated page.
func deinitPageTable(alloc PageAllocator, root uint64) {
	if root == 0 {
		return
	}

	freePageTableLevel(alloc, root, 0)
}

func freePageTableLevel(alloc PageAllocator, table uint64, level int) {
	if level < pageTableDepth-1 {
		for i := uint64(0); i < pageTableSize; i++ {
			next := entryAt(table, i) & entryAddrMask

			if next != 0 {
				freePageTableLevel(alloc, next, level+1)
			}
		}
	}

	alloc.FreePages(table, 1)
}
