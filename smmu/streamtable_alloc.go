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

const steBytes = 64 // 8 x 64-bit words

// allocateStreamTable allocates a linear Stream Table of 2^log2n entries,
// rounded up to a whole number of 4 KiB pages, and fills every entry with
// template.
func allocateStreamTable(alloc PageAllocator, log2n uint, template StreamTableEntry) (addr uint64, size uint, err error) {
	entries := uint64(1) << log2n
	size64 := entries * steBytes

	pages := int((size64 + pageSize - 1) / pageSize)
	if pages < 1 {
		pages = 1
	}

	addr, err = alloc.AllocatePages(pages)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: stream table (%d entries)", ErrOutOfResources, entries)
	}

	for i := uint64(0); i < entries; i++ {
		entryAddr := addr + i*steBytes

		for w := 0; w < len(template); w++ {
			reg.Write64(entryAddr+uint64(w)*8, template[w])
		}
	}

	return addr, uint(pages) * pageSize, nil
}
