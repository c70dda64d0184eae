// First-fit memory allocator for DMA buffers
// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dma

const PageSize = 4096

// AllocatePages reserves pages naturally aligned page-sized blocks from the
// region, zeroes them, and returns the allocation address. It is the
// page-granular counterpart to Alloc, used by callers (page tables, queue
// rings, stream tables) that require naturally aligned, zeroed memory rather
// than a copied-in buffer.
func (dma *Region) AllocatePages(pages int) (addr uint, buf []byte) {
	if pages <= 0 {
		return 0, nil
	}

	addr, buf = dma.Reserve(pages*PageSize, PageSize)

	for i := range buf {
		buf[i] = 0
	}

	return addr, buf
}

// FreePages releases a region previously obtained with AllocatePages.
func (dma *Region) FreePages(addr uint) {
	dma.Release(addr)
}

// AllocatePages is the equivalent of Region.AllocatePages() on the global
// DMA region.
func AllocatePages(pages int) (addr uint, buf []byte) {
	return dma.AllocatePages(pages)
}

// FreePages is the equivalent of Region.FreePages() on the global DMA
// region.
func FreePages(addr uint) {
	dma.FreePages(addr)
}
