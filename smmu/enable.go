// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package smmu

// disableTranslation clears any of the SMMU/CMDQ/EVTQ/PRIQ enable bits set
// in CR0 and waits for CR0ACK to reflect the change.
func (c *Controller) disableTranslation() error {
	cr0 := c.read32(CR0)

	if cr0&cr0EnableMask == 0 {
		return nil
	}

	c.write32(CR0, cr0&^cr0EnableMask)

	return c.poll("CR0ACK", CR0ACK, cr0EnableMask, 0)
}

// disableInterrupts clears the global/PRIQ/EVTQ IRQ enables and, if
// clearStaleErrors is set, clears any latched GERROR bits.
func (c *Controller) disableInterrupts(clearStaleErrors bool) error {
	irqCtrl := c.read32(IRQ_CTRL)

	if irqCtrl&irqCtrlMask != 0 {
		c.write32(IRQ_CTRL, irqCtrl&^uint32(irqCtrlMask))

		if err := c.poll("IRQ_CTRLACK", IRQ_CTRLACK, irqCtrlMask, 0); err != nil {
			return err
		}
	}

	if clearStaleErrors {
		gerror := c.read32(GERROR)
		c.write32(GERROR, gerror&gerrorValidMask)
	}

	return nil
}

// enableInterrupts sets the global-error and Event Queue IRQ enables and
// waits for IRQ_CTRLACK to reflect them.
func (c *Controller) enableInterrupts() error {
	irqCtrl := c.read32(IRQ_CTRL)
	irqCtrl &^= uint32(irqCtrlMask)
	irqCtrlGError.Set(&irqCtrl)
	irqCtrlEventq.Set(&irqCtrl)

	c.write32(IRQ_CTRL, irqCtrl)

	return c.poll("IRQ_CTRLACK", IRQ_CTRLACK, 0x5, 0x5)
}

// GlobalAbort puts the SMMUv3 into GBPA.Abort, dropping all incoming
// transactions, ahead of Configure. It is not called by Configure's default
// bring-up path (see the package-level design notes); platforms whose reset
// state does not already guarantee abort should call it first.
func (c *Controller) GlobalAbort() error {
	if err := c.poll("GBPA", GBPA, gbpaUpdate.Mask(), 0); err != nil {
		return err
	}

	gbpa := c.read32(GBPA)
	gbpaAbort.Set(&gbpa)
	gbpaUpdate.Set(&gbpa)
	c.write32(GBPA, gbpa)

	if err := c.poll("GBPA", GBPA, gbpaUpdate.Mask(), 0); err != nil {
		return err
	}

	return c.poll("GBPA", GBPA, gbpaAbort.Mask(), gbpaAbort.Mask())
}

// SetGlobalBypass clears GBPA.Abort, letting non-secure streams bypass the
// SMMU. Like GlobalAbort, it is available for platforms that need it but is
// not wired into Configure's default path.
func (c *Controller) SetGlobalBypass() error {
	if err := c.poll("GBPA", GBPA, gbpaUpdate.Mask(), 0); err != nil {
		return err
	}

	gbpa := c.read32(GBPA)
	gbpaAbort.Clear(&gbpa)
	gbpaUpdate.Set(&gbpa)
	c.write32(GBPA, gbpa)

	return c.poll("GBPA", GBPA, gbpaUpdate.Mask(), 0)
}
