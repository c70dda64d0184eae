// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package smmu

import "fmt"

// MapOp selects the permission encoding applied to a Map operation's leaf
// entries.
type MapOp int

const (
	MapRead MapOp = iota + 1
	MapWrite
	MapCommonBuffer
)

// Leaf flag composition, matching the page-table engine's flags
// composition: a common access-flag/descriptor-type base, OR-ed with a
// per-operation permission field.
const (
	leafFlagsBase      = entryAF | entryTable // 0x402
	leafFlagsReadOnly  = 1 << 6
	leafFlagsWriteOnly = 2 << 6
	leafFlagsReadWrite = 3 << 6
)

func (op MapOp) flags() (uint64, error) {
	switch op {
	case MapRead:
		return leafFlagsBase | leafFlagsReadOnly, nil
	case MapWrite:
		return leafFlagsBase | leafFlagsWriteOnly, nil
	case MapCommonBuffer:
		return leafFlagsBase | leafFlagsReadWrite, nil
	default:
		return 0, fmt.Errorf("%w: unrecognized map operation %d", ErrInvalidParameter, op)
	}
}

// mappingState tracks a Mapping's lifecycle: Created -> Mapped ->
// Unmapped/destroyed. There are no transitions between Read/Write/Common
// after creation.
type mappingState int

const (
	mappingCreated mappingState = iota
	mappingMapped
	mappingUnmapped
)

// Mapping is an opaque handle to one active DMA mapping, returned by Map
// and consumed by Unmap.
type Mapping struct {
	op      MapOp
	bytes   uint
	device  uint64
	host    uint64
	state   mappingState
}

// AllocateBuffer delegates to the controller's PageAllocator and returns
// the allocation's physical address.
func (c *Controller) AllocateBuffer(pages int) (addr uint64, err error) {
	addr, err = c.alloc.AllocatePages(pages)
	if err != nil {
		return 0, fmt.Errorf("%w: allocate buffer", ErrOutOfResources)
	}

	return addr, nil
}

// FreeBuffer delegates to the controller's PageAllocator.
func (c *Controller) FreeBuffer(addr uint64, pages int) {
	c.alloc.FreePages(addr, pages)
}

// Map installs an identity mapping for [host, host+bytes) with the
// permissions implied by op, and returns a Mapping handle describing it.
// Because the driver uses identity mapping, the returned device address
// equals host.
//
// On an OutOfResources failure partway through, leaf entries already
// written remain in place; the caller must still call Unmap to clean up, as
// documented by the mapping layer's non-fatal-allocation-failure caveat.
func (c *Controller) Map(op MapOp, host uint64, bytes uint) (m *Mapping, err error) {
	flags, err := op.flags()
	if err != nil {
		return nil, err
	}

	if bytes == 0 {
		return nil, fmt.Errorf("%w: zero-length mapping", ErrInvalidParameter)
	}

	start := host &^ uint64(pageSize-1)
	end := (host + uint64(bytes) + pageSize - 1) &^ uint64(pageSize-1)

	c.mu.Lock()
	for va := start; va < end; va += pageSize {
		if err := updateMapping(c.alloc, c.pageRoot, va, va, flags, true); err != nil {
			c.mu.Unlock()
			return nil, fmt.Errorf("%w: map page 0x%x", ErrOutOfResources, va)
		}
	}
	c.mu.Unlock()

	m = &Mapping{
		op:     op,
		bytes:  bytes,
		device: host,
		host:   host,
		state:  mappingMapped,
	}

	return m, nil
}

// Unmap tears down the translation installed by Map and issues the
// TLBI_NSNH_ALL -> TLBI_EL2_ALL -> SYNC sequence before the mapping is
// considered destroyed.
func (c *Controller) Unmap(m *Mapping) error {
	if m == nil {
		return fmt.Errorf("%w: nil mapping", ErrInvalidParameter)
	}

	start := m.host &^ uint64(pageSize-1)
	end := (m.host + uint64(m.bytes) + pageSize - 1) &^ uint64(pageSize-1)

	c.mu.Lock()
	for va := start; va < end; va += pageSize {
		if err := updateMapping(c.alloc, c.pageRoot, va, va, 0, false); err != nil {
			c.mu.Unlock()
			return err
		}
	}
	c.mu.Unlock()

	if err := c.invalidateAll(); err != nil {
		return err
	}

	m.state = mappingUnmapped

	return nil
}

// SetAttribute is reserved for future per-mapping attribute changes; it is
// a no-op today.
func (c *Controller) SetAttribute(m *Mapping) error {
	if m == nil {
		return fmt.Errorf("%w: nil mapping", ErrInvalidParameter)
	}

	return nil
}
