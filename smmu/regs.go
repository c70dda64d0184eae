// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package smmu

import "github.com/usbarmory/smmuv3/bits"

// Register offsets from the SMMUv3 MMIO base, page 0 unless noted.
const (
	IDR0 = 0x0000
	IDR1 = 0x0004
	IDR2 = 0x0008
	IDR3 = 0x000c
	IDR4 = 0x0010
	IDR5 = 0x0014

	CR0    = 0x0020
	CR0ACK = 0x0024
	CR1    = 0x0028
	CR2    = 0x002c

	GBPA = 0x0044

	IRQ_CTRL    = 0x0050
	IRQ_CTRLACK = 0x0054

	GERROR  = 0x0060
	GERRORN = 0x0064

	STRTAB_BASE     = 0x0080
	STRTAB_BASE_CFG = 0x0088

	CMDQ_BASE = 0x0090
	CMDQ_PROD = 0x0098
	CMDQ_CONS = 0x009c

	EVENTQ_BASE = 0x00a0

	// EVENTQ_PROD and EVENTQ_CONS live on the second 64 KiB MMIO page,
	// mirroring the page-0 CMDQ_PROD/CMDQ_CONS layout.
	EVENTQ_PAGE1 = 0x10000
	EVENTQ_PROD  = EVENTQ_PAGE1 + 0x00a8
	EVENTQ_CONS  = EVENTQ_PAGE1 + 0x00ac
)

// IDR0 fields.
var (
	idr0S2P = bits.Flag32{Pos: 0} // stage-2 translation supported
	idr0S1P = bits.Flag32{Pos: 1} // stage-1 translation supported
	idr0Btm = bits.Flag32{Pos: 5}
	idr0Ats = bits.Flag32{Pos: 10}
)

// IDR1 fields.
var (
	idr1EventQs      = bits.Field32{Pos: 16, Width: 5}
	idr1CmdQs        = bits.Field32{Pos: 21, Width: 5}
	idr1AttrTypesOvr = bits.Flag32{Pos: 27}
)

// IDR5 fields.
var idr5Oas = bits.Field32{Pos: 0, Width: 3}

// CR0 fields. SmmuEn/PriqEn/EventqEn/CmdqEn share the same bit positions in
// CR0 and CR0ACK.
var (
	cr0SmmuEn   = bits.Flag32{Pos: 0}
	cr0PriqEn   = bits.Flag32{Pos: 1}
	cr0EventqEn = bits.Flag32{Pos: 2}
	cr0CmdqEn   = bits.Flag32{Pos: 3}
	cr0AtsChk   = bits.Flag32{Pos: 4}
	cr0Vmw      = bits.Field32{Pos: 6, Width: 3}

	// cr0EnableMask covers the four enable bits cleared before the
	// controller may be reconfigured.
	cr0EnableMask = cr0SmmuEn.Mask() | cr0PriqEn.Mask() | cr0EventqEn.Mask() | cr0CmdqEn.Mask()
)

// CR1 fields (table/queue walk cacheability and shareability).
var (
	cr1QueueIc = bits.Field32{Pos: 0, Width: 2}
	cr1QueueOc = bits.Field32{Pos: 2, Width: 2}
	cr1QueueSh = bits.Field32{Pos: 4, Width: 2}
	cr1TableIc = bits.Field32{Pos: 6, Width: 2}
	cr1TableOc = bits.Field32{Pos: 8, Width: 2}
	cr1TableSh = bits.Field32{Pos: 10, Width: 2}
)

// CR2 fields.
var (
	cr2E2h       = bits.Flag32{Pos: 0}
	cr2RecInvSid = bits.Flag32{Pos: 1}
	cr2Ptm       = bits.Flag32{Pos: 2}
)

// STRTAB_BASE_CFG fields.
var (
	strtabCfgLog2Size = bits.Field32{Pos: 0, Width: 6}
	strtabCfgFmt      = bits.Field32{Pos: 16, Width: 2}
)

// GBPA fields.
var (
	gbpaAbort  = bits.Flag32{Pos: 20}
	gbpaUpdate = bits.Flag32{Pos: 31}
)

// IRQ_CTRL / IRQ_CTRLACK fields.
var (
	irqCtrlGError = bits.Flag32{Pos: 0}
	irqCtrlEventq = bits.Flag32{Pos: 2}
)

// irqCtrlMask covers the GError, PRIQ, and EVTQ global interrupt enables
// (bits 0-2).
const irqCtrlMask = 0x7

// GERROR fields. Only the valid-bits mask is needed to clear stale errors.
const gerrorValidMask = 0x1fd

// shareability / cacheability encodings shared between CR1 and Stream Table
// Entry fields.
const (
	nonShareable   = 0
	outerShareable = 2
	innerShareable = 3

	nonCacheable           = 0
	writeBackWriteAllocate = 1
	writeThrough           = 2
	writeBackNoWriteAlloc  = 3
)
