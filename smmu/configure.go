// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package smmu

import (
	"fmt"
	"log"
)

// maxCmdQueueLog2 and maxEventQueueLog2 are the driver-imposed caps on queue
// size: one 4 KiB page each, at 16 and 32 bytes per entry respectively.
const (
	maxCmdQueueLog2   = 8
	maxEventQueueLog2 = 7
)

// Configure drives a fresh SMMUv3 instance through disable, configure, and
// enable, in the order required by the architecture: translation and IRQs
// are torn down first, then the page table, Stream Table, and queues are
// built and installed, then interrupts and translation are brought back up.
//
// Any failure unwinds the allocations made so far and returns the error.
func Configure(alloc PageAllocator, cfg Config) (c *Controller, err error) {
	c = &Controller{base: cfg.Base, alloc: alloc, cfg: cfg}

	var allocated []func()
	unwind := func() {
		for i := len(allocated) - 1; i >= 0; i-- {
			allocated[i]()
		}
	}
	defer func() {
		if err != nil {
			unwind()
		}
	}()

	if g := c.read32(GERROR); g != 0 {
		return nil, fmt.Errorf("%w: GERROR not clear at bring-up: 0x%x", ErrInvalidParameter, g)
	}

	if err = c.disableTranslation(); err != nil {
		return nil, err
	}

	if err = c.disableInterrupts(true); err != nil {
		return nil, err
	}

	root, err := initPageTable(alloc)
	if err != nil {
		return nil, err
	}
	c.pageRoot = root
	allocated = append(allocated, func() { deinitPageTable(alloc, root) })

	caps, err := c.readCapabilities()
	if err != nil {
		return nil, err
	}
	c.caps = caps

	log.Printf("smmu: IDR0 s1p=%v s2p=%v btm=%v ats=%v, IDR1 cmdQsLog2=%d eventQsLog2=%d attrTypesOvr=%v, IDR5 oas=%d",
		caps.s1p, caps.s2p, caps.btm, caps.ats, caps.cmdQsLog2, caps.eventQsLog2, caps.attrTypesOvr, caps.oasBits)

	log2L := streamTableLog2Size(cfg.OutputBase, cfg.NumIDs)

	ste, err := buildDefaultSTE(&caps, &cfg, root)
	if err != nil {
		return nil, err
	}

	streamTable, stSize, err := allocateStreamTable(alloc, log2L, ste)
	if err != nil {
		return nil, err
	}
	c.streamTable = streamTable
	c.streamTableLog2 = log2L
	c.streamTableSize = stSize
	allocated = append(allocated, func() { alloc.FreePages(streamTable, int(stSize/pageSize)) })

	cmdQueueLog2 := caps.cmdQsLog2
	if cmdQueueLog2 > maxCmdQueueLog2 {
		cmdQueueLog2 = maxCmdQueueLog2
	}

	cmdQueue, err := alloc.AllocatePages(1)
	if err != nil {
		return nil, fmt.Errorf("%w: command queue", ErrOutOfResources)
	}
	c.cmdQueue = cmdQueue
	c.cmdQueueLog2 = cmdQueueLog2
	allocated = append(allocated, func() { alloc.FreePages(cmdQueue, 1) })

	eventQueueLog2 := caps.eventQsLog2
	if eventQueueLog2 > maxEventQueueLog2 {
		eventQueueLog2 = maxEventQueueLog2
	}

	eventQueue, err := alloc.AllocatePages(1)
	if err != nil {
		return nil, fmt.Errorf("%w: event queue", ErrOutOfResources)
	}
	c.eventQueue = eventQueue
	c.eventQueueLog2 = eventQueueLog2
	allocated = append(allocated, func() { alloc.FreePages(eventQueue, 1) })

	c.installBaseRegisters(log2L)

	if err = c.enableInterrupts(); err != nil {
		return nil, err
	}

	c.programCR1()
	c.programCR2()

	dsb()

	cr0 := c.read32(CR0)
	cr0EventqEn.Set(&cr0)
	cr0CmdqEn.Set(&cr0)
	c.write32(CR0, cr0)

	queueEnMask := cr0EventqEn.Mask() | cr0CmdqEn.Mask()

	if err = c.poll("CR0ACK", CR0ACK, queueEnMask, queueEnMask); err != nil {
		return nil, err
	}

	if err = c.sendCommand(cfgiAllCommand()); err != nil {
		return nil, err
	}

	if err = c.invalidateAll(); err != nil {
		return nil, err
	}

	dsb()

	cr0 = c.read32(CR0)
	cr0SmmuEn.Set(&cr0)
	cr0PriqEn.Clear(&cr0)
	cr0Vmw.Set(&cr0, 0)
	cr0AtsChk.SetTo(&cr0, caps.ats)

	c.write32(CR0, cr0)

	if err = c.poll("CR0ACK", CR0ACK, cr0SmmuEn.Mask(), cr0SmmuEn.Mask()); err != nil {
		return nil, err
	}

	dsb()

	return c, nil
}

// installBaseRegisters programs STRTAB_BASE_CFG, STRTAB_BASE, CMDQ_BASE,
// and EVENTQ_BASE, and resets the queue producer/consumer indices to zero.
func (c *Controller) installBaseRegisters(log2L uint) {
	const strtabFmtLinear = 0

	var strtabBaseCfg uint32
	strtabCfgFmt.Set(&strtabBaseCfg, strtabFmtLinear)
	strtabCfgLog2Size.Set(&strtabBaseCfg, uint32(log2L))
	c.write32(STRTAB_BASE_CFG, strtabBaseCfg)

	strtabBase := c.streamTable &^ 0x3f
	if c.cfg.CohaccOverride {
		strtabBase |= 1 << 62 // RA
	}
	c.write64(STRTAB_BASE, strtabBase)

	cmdqBase := (c.cmdQueue >> 5 << 5) | uint64(c.cmdQueueLog2)
	if c.cfg.CohaccOverride {
		cmdqBase |= 1 << 62 // RA
	}
	c.write64(CMDQ_BASE, cmdqBase)

	eventqBase := (c.eventQueue >> 5 << 5) | uint64(c.eventQueueLog2)
	if c.cfg.CohaccOverride {
		eventqBase |= 1 << 62 // RA
	}
	c.write64(EVENTQ_BASE, eventqBase)

	c.write32(CMDQ_PROD, 0)
	c.write32(CMDQ_CONS, 0)
	c.write32(EVENTQ_PROD, 0)
	c.write32(EVENTQ_CONS, 0)
}

// programCR1 sets queue-walk cacheability/shareability: writeback,
// inner-shareable under a coherent-access override, otherwise left at the
// hardware default (all zero, device/non-cacheable).
func (c *Controller) programCR1() {
	if !c.cfg.CohaccOverride {
		return
	}

	var cr1 uint32
	cr1TableOc.Set(&cr1, writeBackWriteAllocate)
	cr1TableIc.Set(&cr1, writeBackWriteAllocate)
	cr1TableSh.Set(&cr1, innerShareable)
	cr1QueueOc.Set(&cr1, writeBackWriteAllocate)
	cr1QueueIc.Set(&cr1, writeBackWriteAllocate)
	cr1QueueSh.Set(&cr1, innerShareable)

	c.write32(CR1, cr1)
}

// programCR2 sets E2H=0, RecInvSid=1, and Ptm=1 iff IDR0.Btm is set.
func (c *Controller) programCR2() {
	var cr2 uint32
	cr2RecInvSid.Set(&cr2)
	cr2Ptm.SetTo(&cr2, c.caps.btm)

	c.write32(CR2, cr2)
}
