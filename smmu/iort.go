// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package smmu

import "encoding/binary"

// AcpiPublisher is the external collaborator that installs a finished ACPI
// table into the platform's table list. This driver only serializes bytes
// and hands them across this interface.
type AcpiPublisher interface {
	InstallTable(table []byte) error
}

// IORT serialization layout, packed byte-for-byte the way the ACPI I/O
// Remapping Table is laid out in memory: a 36-byte ACPI table header, the
// IORT-specific node count / node offset / reserved words, then the nodes
// in order: ITS group, SMMUv3, Root Complex. Each node starts with a
// 16-byte node header (Type, Length, Revision, Reserved, NumIdMappings,
// IdReference) and, for the SMMUv3 and Root Complex nodes, ends with one
// 20-byte ID mapping.
const (
	acpiHeaderSize     = 36
	iortFieldsSize     = 12
	iortNodeHeaderSize = 16
	iortIDMapSize      = 20

	iortItsNodeSize    = iortNodeHeaderSize + 4 + 4 // NumItsIdentifiers + GIC ITS identifier
	iortSmmuV3NodeSize = iortNodeHeaderSize + 52 + iortIDMapSize
	iortRcNodeSize     = iortNodeHeaderSize + 16 + iortIDMapSize

	iortNodesOffset  = acpiHeaderSize + iortFieldsSize
	iortItsOffset    = iortNodesOffset
	iortSmmuV3Offset = iortItsOffset + iortItsNodeSize
	iortRcOffset     = iortSmmuV3Offset + iortSmmuV3NodeSize
	iortTableSize    = iortRcOffset + iortRcNodeSize
)

// IORT node types.
const (
	iortNodeItsGroup    = 0
	iortNodeRootComplex = 2
	iortNodeSmmuV3      = 4
)

const iortChecksumOffset = 9

// putNodeHeader serializes a 16-byte IORT node header at off.
func putNodeHeader(table []byte, off int, typ byte, length uint16, revision byte, numIDMappings, idReference uint32) {
	table[off] = typ
	binary.LittleEndian.PutUint16(table[off+1:off+3], length)
	table[off+3] = revision
	binary.LittleEndian.PutUint32(table[off+8:off+12], numIDMappings)
	binary.LittleEndian.PutUint32(table[off+12:off+16], idReference)
}

// putIDMap serializes a 20-byte IORT ID mapping at off.
func putIDMap(table []byte, off int, inputBase, numIDs, outputBase, outputRef uint32) {
	binary.LittleEndian.PutUint32(table[off:off+4], inputBase)
	binary.LittleEndian.PutUint32(table[off+4:off+8], numIDs)
	binary.LittleEndian.PutUint32(table[off+8:off+12], outputBase)
	binary.LittleEndian.PutUint32(table[off+12:off+16], outputRef)
}

// BuildIORT serializes the IORT table this driver publishes: an ITS group,
// SMMUv3, and Root Complex node built from c.cfg (MMIO base, COHACC,
// interrupt IDs, Stream ID range, cache coherency), and the header checksum
// computed over the whole table after the checksum byte is zeroed.
func BuildIORT(c *Controller) []byte {
	table := make([]byte, iortTableSize)

	copy(table[0:4], "IORT")
	binary.LittleEndian.PutUint32(table[4:8], iortTableSize)
	copy(table[10:16], "USBARM")
	copy(table[16:24], "SMMUV3  ")

	binary.LittleEndian.PutUint32(table[36:40], 3) // ITS + SMMUv3 + RC
	binary.LittleEndian.PutUint32(table[40:44], iortNodesOffset)

	// ITS group node: one ITS, identifier 0.
	putNodeHeader(table, iortItsOffset, iortNodeItsGroup, iortItsNodeSize, 0, 0, 0)
	binary.LittleEndian.PutUint32(table[iortItsOffset+16:iortItsOffset+20], 1)

	// SMMUv3 node.
	off := iortSmmuV3Offset
	putNodeHeader(table, off, iortNodeSmmuV3, iortSmmuV3NodeSize, 2, 1, iortNodeHeaderSize+52)
	binary.LittleEndian.PutUint64(table[off+16:off+24], c.cfg.Base)

	if c.cfg.CohaccOverride {
		binary.LittleEndian.PutUint32(table[off+24:off+28], 1) // COHACC_OVERRIDE
	}

	binary.LittleEndian.PutUint32(table[off+44:off+48], c.cfg.EventIrq)
	binary.LittleEndian.PutUint32(table[off+48:off+52], c.cfg.PriIrq)
	binary.LittleEndian.PutUint32(table[off+52:off+56], c.cfg.GerrorIrq)
	binary.LittleEndian.PutUint32(table[off+56:off+60], c.cfg.SyncIrq)

	// Device IDs map through to the ITS group.
	putIDMap(table, off+iortNodeHeaderSize+52, 0, c.cfg.NumIDs, 0, iortItsOffset)

	// Root Complex node.
	off = iortRcOffset
	putNodeHeader(table, off, iortNodeRootComplex, iortRcNodeSize, 0, 1, iortNodeHeaderSize+16)

	if c.cfg.CacheCoherent {
		binary.LittleEndian.PutUint32(table[off+16:off+20], 1)
	}

	var memAccessFlags byte
	if c.cfg.CachePrefetchMemory {
		memAccessFlags |= 1 << macfCachePrefetchMemory
	}
	if c.cfg.DACS {
		memAccessFlags |= 1 << macfDACS
	}
	table[off+23] = memAccessFlags

	// AtsAttribute stays 0: ATS unsupported.

	// Stream IDs map through to the SMMUv3 node.
	putIDMap(table, off+iortNodeHeaderSize+16, 0, c.cfg.NumIDs, c.cfg.OutputBase, iortSmmuV3Offset)

	table[iortChecksumOffset] = acpiChecksum(table)

	return table
}

// acpiChecksum computes the ACPI 8-bit table checksum: -sum(bytes) mod 256,
// with the checksum byte itself treated as zero.
func acpiChecksum(table []byte) byte {
	var sum byte

	for i, b := range table {
		if i == iortChecksumOffset {
			continue
		}

		sum += b
	}

	return -sum
}

// PublishIORT serializes and installs the IORT table via pub.
func PublishIORT(c *Controller, pub AcpiPublisher) error {
	return pub.InstallTable(BuildIORT(c))
}
