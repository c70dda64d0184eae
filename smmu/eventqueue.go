// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package smmu

import "github.com/usbarmory/smmuv3/internal/reg"

// FaultRecord is one Event Queue entry: four 64-bit fault-description
// words. This driver only drains and logs them; it does not interpret
// individual fields, matching the scope of the event-queue reader.
type FaultRecord [4]uint64

// ConsumeEvent drains a single event from the Event Queue. It returns
// ok == false when the queue is empty.
func (c *Controller) ConsumeEvent() (rec FaultRecord, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	log2n := c.eventQueueLog2

	prod := c.read32(EVENTQ_PROD)
	cons := c.read32(EVENTQ_CONS)

	if ringEmpty(prod, cons, log2n) {
		return rec, false
	}

	slot := uint64(ringSlot(cons, log2n))
	entryAddr := c.eventQueue + slot*32

	for i := range rec {
		rec[i] = reg.Read64(entryAddr + uint64(i)*8)
	}

	next := ringAdvance(cons, log2n)

	dsb()

	c.write32(EVENTQ_CONS, next)

	return rec, true
}

// DrainEvents consumes every pending Event Queue entry, invoking fn for
// each one. It stops at the first empty read.
func (c *Controller) DrainEvents(fn func(FaultRecord)) {
	for {
		rec, ok := c.ConsumeEvent()
		if !ok {
			return
		}

		if fn != nil {
			fn(rec)
		}
	}
}
