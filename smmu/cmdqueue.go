// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package smmu

import (
	"fmt"
	"time"

	"github.com/usbarmory/smmuv3/internal/reg"
)

// command is a single Command Queue entry: two 64-bit words, 16 bytes.
type command [2]uint64

// Command opcodes used by this driver. Only the subset needed for
// configuration invalidation and TLB maintenance is modeled; PRI/ATS
// commands are out of scope.
const (
	cmdCfgiAll     = 0x04
	cmdTlbiEl2All  = 0x20
	cmdTlbiNsnhAll = 0x30
	cmdSync        = 0x46

	// CFGI_ALL is the STE-range invalidation with its word-1 Range field
	// at the maximum (31, covering 2^32 StreamIDs).
	cfgiRangeAll = 0x1f
)

func cfgiAllCommand() command {
	return command{cmdCfgiAll, cfgiRangeAll}
}

func tlbiNsnhAllCommand() command {
	return command{cmdTlbiNsnhAll}
}

func tlbiEl2AllCommand() command {
	return command{cmdTlbiEl2All}
}

// syncNoInterruptCommand builds a SYNC command with CS (completion signal)
// set to 0: the driver observes completion by polling the consumer index
// rather than waiting for an MSI or event.
func syncNoInterruptCommand() command {
	return command{cmdSync}
}

// sendCommand implements the ring-buffer producer protocol: wait for room,
// write the entry, barrier, advance the producer register, then wait for
// the consumer to catch up.
func (c *Controller) sendCommand(cmd command) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	log2n := c.cmdQueueLog2

	prod := c.read32(CMDQ_PROD)
	cons := c.read32(CMDQ_CONS)

	for i := 0; ringFull(prod, cons, log2n) && i < pollAttempts; i++ {
		time.Sleep(pollInterval)
		cons = c.read32(CMDQ_CONS)
	}

	if ringFull(prod, cons, log2n) {
		return &DriverError{Op: "sendCommand", Reg: "CMDQ_PROD", Err: fmt.Errorf("%w: command queue full", ErrTimeout)}
	}

	slot := uint64(ringSlot(prod, log2n))
	entryAddr := c.cmdQueue + slot*16

	reg.Write64(entryAddr, cmd[0])
	reg.Write64(entryAddr+8, cmd[1])

	dsb()

	next := ringAdvance(prod, log2n)
	c.write32(CMDQ_PROD, next)

	for i := 0; i < pollAttempts; i++ {
		cons = c.read32(CMDQ_CONS)

		if cons == next {
			return nil
		}

		time.Sleep(pollInterval)
	}

	return &DriverError{Op: "sendCommand", Reg: "CMDQ_CONS", Err: fmt.Errorf("%w: consumer did not advance past slot %d", ErrTimeout, slot)}
}

// invalidateAll issues the TLBI_NSNH_ALL -> TLBI_EL2_ALL -> SYNC sequence
// required after any translation-table change, so that the change is not
// observed by devices before the SYNC completes.
func (c *Controller) invalidateAll() error {
	for _, cmd := range []command{tlbiNsnhAllCommand(), tlbiEl2AllCommand(), syncNoInterruptCommand()} {
		if err := c.sendCommand(cmd); err != nil {
			return err
		}
	}

	return nil
}
