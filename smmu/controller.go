// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package smmu implements an ARM SMMUv3 controller driver for a firmware
// boot phase: capability discovery, Stream Table / Command Queue / Event
// Queue construction, the enable sequence, a stage-2 VMSAv8-64 page-table
// engine, and a DMA mapping façade built on top of it.
package smmu

import (
	"fmt"
	"sync"
)

// Controller is a single SMMUv3 instance, created by Configure. All fields
// are immutable once Configure returns successfully except the page-table
// root (mutated by Map/Unmap) and the Command Queue/Event Queue producer
// and consumer bookkeeping (mutated by every enqueue/dequeue); all are
// guarded by mu.
type Controller struct {
	mu sync.Mutex

	base  uint64
	alloc PageAllocator

	pageRoot uint64

	streamTable     uint64
	streamTableLog2 uint
	streamTableSize uint

	cmdQueue     uint64
	cmdQueueLog2 uint

	eventQueue     uint64
	eventQueueLog2 uint

	caps capabilities
	cfg  Config
}

// capabilities holds the subset of ID-register fields this driver reads at
// runtime (IDR0, IDR1, IDR5).
type capabilities struct {
	s1p          bool
	s2p          bool
	btm          bool
	ats          bool
	cmdQsLog2    uint
	eventQsLog2  uint
	attrTypesOvr bool
	oasBits      uint
}

// readCapabilities decodes IDR0/IDR1/IDR5 at the controller's MMIO base.
func (c *Controller) readCapabilities() (capabilities, error) {
	var caps capabilities

	idr0 := c.read32(IDR0)
	caps.s1p = idr0S1P.IsSet(idr0)
	caps.s2p = idr0S2P.IsSet(idr0)
	caps.btm = idr0Btm.IsSet(idr0)
	caps.ats = idr0Ats.IsSet(idr0)

	idr1 := c.read32(IDR1)
	caps.cmdQsLog2 = uint(idr1CmdQs.Get(idr1))
	caps.eventQsLog2 = uint(idr1EventQs.Get(idr1))
	caps.attrTypesOvr = idr1AttrTypesOvr.IsSet(idr1)

	idr5 := c.read32(IDR5)
	oasCode := addressWidth(idr5Oas.Get(idr5))

	width, err := decodeAddressWidth(oasCode)
	if err != nil {
		return caps, fmt.Errorf("IDR5.OAS: %w", err)
	}

	caps.oasBits = width

	return caps, nil
}
