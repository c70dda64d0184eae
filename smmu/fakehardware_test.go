// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package smmu

import (
	"testing"
	"time"
	"unsafe"

	"github.com/usbarmory/smmuv3/internal/reg"
)

// fakeMMIO backs a Controller's register file with ordinary host memory and
// a background goroutine that mimics the subset of SMMUv3 behavior this
// driver's bring-up sequence depends on: CR0 bits mirrored into CR0ACK,
// IRQ_CTRL mirrored into IRQ_CTRLACK, GBPA.Update self-clearing, and the
// Command Queue auto-draining so CMDQ_CONS tracks CMDQ_PROD. It stands in
// for real silicon so Configure and the queue drivers can be exercised on
// the host.
type fakeMMIO struct {
	buf  []byte
	base uint64
	stop chan struct{}
}

func newFakeMMIO(t *testing.T) *fakeMMIO {
	t.Helper()

	buf := make([]byte, EVENTQ_PAGE1+pageSize)
	base := uint64(uintptr(unsafe.Pointer(&buf[0])))

	f := &fakeMMIO{buf: buf, base: base, stop: make(chan struct{})}

	go f.run()
	t.Cleanup(f.close)

	return f
}

func (f *fakeMMIO) close() {
	close(f.stop)
}

func (f *fakeMMIO) reg32(offset uint64) uint32 {
	return reg.Read(f.base + offset)
}

func (f *fakeMMIO) setReg32(offset uint64, val uint32) {
	reg.Write(f.base+offset, val)
}

func (f *fakeMMIO) run() {
	ticker := time.NewTicker(10 * time.Microsecond)
	defer ticker.Stop()

	for {
		select {
		case <-f.stop:
			return
		case <-ticker.C:
			cr0 := f.reg32(CR0)
			f.setReg32(CR0ACK, cr0&cr0EnableMask)

			irqCtrl := f.reg32(IRQ_CTRL)
			f.setReg32(IRQ_CTRLACK, irqCtrl&irqCtrlMask)

			if gbpa := f.reg32(GBPA); gbpaUpdate.IsSet(gbpa) {
				f.setReg32(GBPA, gbpa&^gbpaUpdate.Mask())
			}

			f.setReg32(CMDQ_CONS, f.reg32(CMDQ_PROD))
		}
	}
}

// newFakeController wires a Controller directly at a fakeMMIO base, without
// running Configure, for tests that exercise a single register-level
// helper in isolation.
func newFakeController(t *testing.T) (*Controller, *fakeMMIO) {
	t.Helper()

	mmio := newFakeMMIO(t)

	c := &Controller{
		base:  mmio.base,
		alloc: newBumpAllocator(64),
	}

	return c, mmio
}
