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

// pollTimeout is the ceiling for register polling: 10 attempts, 100 µs
// apart.
const (
	pollAttempts = 10
	pollInterval = 100 * time.Microsecond
	pollTimeout  = pollAttempts * pollInterval
)

// read32 reads a 32-bit register at base+offset.
func (c *Controller) read32(offset uint64) uint32 {
	return reg.Read(c.base + offset)
}

// write32 writes a 32-bit register at base+offset.
func (c *Controller) write32(offset uint64, val uint32) {
	reg.Write(c.base+offset, val)
}

// read64 reads a 64-bit register at base+offset.
func (c *Controller) read64(offset uint64) uint64 {
	return reg.Read64(c.base + offset)
}

// write64 writes a 64-bit register at base+offset.
func (c *Controller) write64(offset uint64, val uint64) {
	reg.Write64(c.base+offset, val)
}

// poll repeatedly reads the register at offset until (value & mask) ==
// want, waiting pollInterval between attempts, up to pollAttempts times: a
// fixed 1 ms ceiling built from ten 100 µs busy-wait steps, appropriate for
// the single-threaded, pre-multiprocessor firmware phase this driver runs
// in.
func (c *Controller) poll(name string, offset uint64, mask uint32, want uint32) error {
	var val uint32

	for i := 0; i < pollAttempts; i++ {
		val = c.read32(offset)

		if val&mask == want {
			return nil
		}

		time.Sleep(pollInterval)
	}

	return &DriverError{
		Op:   "poll",
		Reg:  name,
		Want: uint64(want),
		Got:  uint64(val & mask),
		Err:  fmt.Errorf("%w: register %s stuck at 0x%x (mask 0x%x, want 0x%x)", ErrTimeout, name, val, mask, want),
	}
}
