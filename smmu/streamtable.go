// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package smmu

import (
	"fmt"
	mathbits "math/bits"

	"github.com/usbarmory/smmuv3/bits"
)

// StreamTableEntry is a fixed-width, 64-byte (8 x 64-bit word) bitfield
// record describing the stage-2 translation configuration shared by every
// Stream ID in the linear table this driver builds.
type StreamTableEntry [8]uint64

// Word 0: validity and stage configuration.
var (
	steValid  = bits.Flag64{Pos: 0}
	steConfig = bits.Field64{Pos: 1, Width: 3}
)

// Word 1: ATS control and the attribute override fields used when
// IDR1.AttrTypesOvr is set.
var (
	steEats    = bits.Field64{Pos: 28, Width: 2}
	steMemAttr = bits.Field64{Pos: 32, Width: 4}
	steMtcfg   = bits.Flag64{Pos: 36}
	steShCfg   = bits.Field64{Pos: 44, Width: 2}
)

// Word 2: stage-2 walk parameters.
var (
	steS2Vmid = bits.Field64{Pos: 0, Width: 16}
	steS2T0Sz = bits.Field64{Pos: 32, Width: 6}
	steS2Sl0  = bits.Field64{Pos: 38, Width: 2}
	steS2Ir0  = bits.Field64{Pos: 40, Width: 2}
	steS2Or0  = bits.Field64{Pos: 42, Width: 2}
	steS2Sh0  = bits.Field64{Pos: 44, Width: 2}
	steS2Tg   = bits.Field64{Pos: 46, Width: 2}
	steS2Ps   = bits.Field64{Pos: 48, Width: 3}
	steS2Aa64 = bits.Flag64{Pos: 51}
	steS2Ptw  = bits.Flag64{Pos: 54}
	steS2Rs   = bits.Field64{Pos: 57, Width: 2} // S2S/S2R fault handling
)

// Word 3: stage-2 translation table base, shifted right 4 (S2TTB).
var steS2Ttb = bits.Field64{Pos: 4, Width: 48}

// Config encoding: stage-1 bypass, stage-2 translate.
const steConfigS2Translate = 0b110

const (
	stageIR0NonCacheable        = nonCacheable
	stageOR0NonCacheable        = nonCacheable
	stageIR0WriteBackWriteAlloc = writeBackWriteAllocate
	stageOR0WriteBackWriteAlloc = writeBackWriteAllocate
	stageSH0Outer               = outerShareable
	stageSH0Inner               = innerShareable
	shCfgUseIncoming            = 0b01
	shCfgForceInnerShareable    = 0b11
	memAttrInnerOuterWriteBack  = 0xf
)

// buildDefaultSTE derives the default Stream Table Entry from controller
// capabilities and the handoff configuration, per the S2-only, single-VMID
// translation regime this driver implements.
func buildDefaultSTE(caps *capabilities, cfg *Config, rootPA uint64) (StreamTableEntry, error) {
	var ste StreamTableEntry

	steValid.Set(&ste[0])
	steConfig.Set(&ste[0], steConfigS2Translate)
	steEats.Set(&ste[1], 0)

	steS2Vmid.Set(&ste[2], 1)
	steS2Tg.Set(&ste[2], 0) // 4 KiB granule
	steS2Aa64.Set(&ste[2])

	if caps.s1p && caps.s2p {
		steS2Ptw.Set(&ste[2])
	}

	steS2Sl0.Set(&ste[2], 2) // start at level 0, 48-bit input

	outputSize := caps.oasBits
	if outputSize > 48 {
		outputSize = 48
	}

	psCode, err := encodeAddressWidth(outputSize)
	if err != nil {
		return ste, fmt.Errorf("output address size: %w", err)
	}

	steS2Ps.Set(&ste[2], uint64(psCode))

	const inputSize = 48
	t0sz := 64 - inputSize
	steS2T0Sz.Set(&ste[2], uint64(t0sz))

	if cfg.CohaccOverride {
		steS2Ir0.Set(&ste[2], stageIR0WriteBackWriteAlloc)
		steS2Or0.Set(&ste[2], stageOR0WriteBackWriteAlloc)
		steS2Sh0.Set(&ste[2], stageSH0Inner)
	} else {
		steS2Ir0.Set(&ste[2], stageIR0NonCacheable)
		steS2Or0.Set(&ste[2], stageOR0NonCacheable)
		steS2Sh0.Set(&ste[2], stageSH0Outer)
	}

	steS2Rs.Set(&ste[2], 0b10)

	steS2Ttb.Set(&ste[3], rootPA>>4)

	if caps.attrTypesOvr {
		steShCfg.Set(&ste[1], shCfgUseIncoming)

		if cfg.CacheCoherent && cfg.CachePrefetchMemory && !cfg.DACS {
			steMtcfg.Set(&ste[1])
			steMemAttr.Set(&ste[1], memAttrInnerOuterWriteBack)
			steShCfg.Set(&ste[1], shCfgForceInnerShareable)
		}
	}

	return ste, nil
}

// streamTableLog2Size returns L = floor(log2(maxStreamID)) + 1, the number
// of Stream Table Entry index bits needed to cover [0, maxStreamID).
func streamTableLog2Size(outputBase, numIDs uint32) uint {
	maxStreamID := uint64(outputBase) + uint64(numIDs)

	return uint(mathbits.Len64(maxStreamID))
}
