// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package smmu

import (
	"errors"
	"unsafe"
)

// bumpAllocator is a page-granular, never-freeing PageAllocator backed by
// real host memory, used to exercise the page-table engine, queue drivers,
// and DMA façade without real SMMUv3 hardware.
type bumpAllocator struct {
	buf   []byte
	base  uint64
	limit uint64
	next  uint64
}

func newBumpAllocator(pages int) *bumpAllocator {
	buf := make([]byte, (pages+1)*pageSize)

	base := uint64(uintptr(unsafe.Pointer(&buf[0])))
	aligned := (base + pageSize - 1) &^ uint64(pageSize-1)

	return &bumpAllocator{
		buf:   buf,
		base:  aligned,
		limit: base + uint64(len(buf)),
		next:  aligned,
	}
}

func (a *bumpAllocator) AllocatePages(pages int) (addr uint64, err error) {
	size := uint64(pages) * pageSize

	if a.next+size > a.limit {
		return 0, errOutOfTestMemory
	}

	addr = a.next
	a.next += size

	for i := uint64(0); i < size; i++ {
		*(*byte)(unsafe.Pointer(uintptr(addr + i))) = 0
	}

	return addr, nil
}

func (a *bumpAllocator) FreePages(addr uint64, pages int) {
	// tests never reuse freed pages; nothing to do.
}

var errOutOfTestMemory = errors.New("bump allocator exhausted")
