// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package smmu

import "fmt"

// Config is the subset of the handoff blob's IORT skeleton this driver
// consumes: the SMMUv3 node's base address and COHACC override, the Root
// Complex node's cache-coherency and memory-access flags, and the SMMU ID
// map's Stream ID range.
//
// The boot dispatcher that hands this struct to Configure, and the wider
// IORT skeleton it is drawn from, are external collaborators out of this
// package's scope.
type Config struct {
	// Base is the SMMUv3 MMIO base address.
	Base uint64

	// CohaccOverride mirrors the SMMUv3 node's COHACC_OVERRIDE flag.
	CohaccOverride bool

	// CacheCoherent mirrors the Root Complex node's CacheCoherent field.
	CacheCoherent bool

	// CachePrefetchMemory and DACS mirror bits 0 and 1 of the Root
	// Complex node's MemoryAccessFlags.
	CachePrefetchMemory bool
	DACS                bool

	// OutputBase and NumIDs come from the SMMU ID map and together bound
	// the Stream ID range the Stream Table must cover.
	OutputBase uint32
	NumIDs     uint32

	// EventIrq, PriIrq, GerrorIrq, and SyncIrq are the SMMUv3 node's
	// interrupt IDs. The driver does not service them (it only enables
	// the lines) but carries them into the published IORT table.
	EventIrq  uint32
	PriIrq    uint32
	GerrorIrq uint32
	SyncIrq   uint32
}

// memoryAccessFlags bit positions within the Root Complex node's
// MemoryAccessFlags field.
const (
	macfCachePrefetchMemory = 0
	macfDACS                = 1
)

// DecodeConfig extracts a Config from the IORT skeleton fields this driver
// cares about. blob is expected to have been populated by the prior boot
// phase; memoryAccessFlags is passed as the raw field rather than a
// pre-split struct to mirror the handoff blob's byte layout.
func DecodeConfig(base uint64, cohaccOverride bool, cacheCoherent bool, memoryAccessFlags uint8, outputBase, numIDs uint32) (Config, error) {
	if base == 0 {
		return Config{}, fmt.Errorf("%w: missing SMMUv3 handoff base", ErrNotFound)
	}

	return Config{
		Base:                base,
		CohaccOverride:      cohaccOverride,
		CacheCoherent:       cacheCoherent,
		CachePrefetchMemory: memoryAccessFlags&(1<<macfCachePrefetchMemory) != 0,
		DACS:                memoryAccessFlags&(1<<macfDACS) != 0,
		OutputBase:          outputBase,
		NumIDs:              numIDs,
	}, nil
}

// Blob is the part of the IORT skeleton delivered across the handoff
// boundary by the prior boot phase that this driver reads: SMMUv3 node
// fields, Root Complex node fields, and the ID map. The table header and
// ITS node are not carried; BuildIORT generates them itself.
type Blob struct {
	SMMUv3 struct {
		Base           uint64
		CohaccOverride bool

		EventIrq  uint32
		PriIrq    uint32
		GerrorIrq uint32
		SyncIrq   uint32
	}

	RootComplex struct {
		CacheCoherent       bool
		CachePrefetchMemory bool
		DACS                bool
	}

	IDMap struct {
		OutputBase uint32
		NumIDs     uint32
	}
}

// DecodeBlob is the Blob-shaped counterpart to DecodeConfig, for callers
// that already hold the decoded handoff struct rather than its individual
// fields.
func DecodeBlob(blob *Blob) (Config, error) {
	if blob == nil {
		return Config{}, fmt.Errorf("%w: missing handoff blob", ErrNotFound)
	}

	cfg, err := DecodeConfig(
		blob.SMMUv3.Base,
		blob.SMMUv3.CohaccOverride,
		blob.RootComplex.CacheCoherent,
		packMemoryAccessFlags(blob.RootComplex.CachePrefetchMemory, blob.RootComplex.DACS),
		blob.IDMap.OutputBase,
		blob.IDMap.NumIDs,
	)
	if err != nil {
		return cfg, err
	}

	cfg.EventIrq = blob.SMMUv3.EventIrq
	cfg.PriIrq = blob.SMMUv3.PriIrq
	cfg.GerrorIrq = blob.SMMUv3.GerrorIrq
	cfg.SyncIrq = blob.SMMUv3.SyncIrq

	return cfg, nil
}

// packMemoryAccessFlags packs the Root Complex node's two memory-access
// booleans back into the raw bitfield byte DecodeConfig expects, mirroring
// the handoff blob's on-the-wire layout.
func packMemoryAccessFlags(cachePrefetchMemory, dacs bool) uint8 {
	var f uint8

	if cachePrefetchMemory {
		f |= 1 << macfCachePrefetchMemory
	}

	if dacs {
		f |= 1 << macfDACS
	}

	return f
}
