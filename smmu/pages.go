// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package smmu

import (
	"fmt"

	"github.com/usbarmory/smmuv3/dma"
)

// regionAllocator is the default PageAllocator, backed by a first-fit DMA
// region. It stands in for the system-wide page allocator this driver
// consumes as an external collaborator; a firmware build wires a
// platform-specific PageAllocator instead.
type regionAllocator struct {
	region *dma.Region
}

// NewRegionAllocator returns a PageAllocator backed by a dedicated DMA
// region spanning [start, start+size).
func NewRegionAllocator(start uint, size uint) PageAllocator {
	r := &dma.Region{}
	r.Init(start, size)

	return &regionAllocator{region: r}
}

func (a *regionAllocator) AllocatePages(pages int) (addr uint64, err error) {
	a64, buf := a.region.AllocatePages(pages)
	if buf == nil {
		return 0, fmt.Errorf("%w: region exhausted", ErrOutOfResources)
	}

	return uint64(a64), nil
}

func (a *regionAllocator) FreePages(addr uint64, pages int) {
	a.region.FreePages(uint(addr))
}
