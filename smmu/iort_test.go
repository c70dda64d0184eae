// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package smmu

import (
	"encoding/binary"
	"testing"
)

func TestBuildIORTChecksum(t *testing.T) {
	c, _ := newFakeController(t)
	c.cfg = Config{
		Base:                c.base,
		CohaccOverride:      true,
		CacheCoherent:       true,
		CachePrefetchMemory: true,
		OutputBase:          0x2000,
		NumIDs:              0x40,
	}

	table := BuildIORT(c)

	var sum byte
	for _, b := range table {
		sum += b
	}

	if sum != 0 {
		t.Fatalf("table byte sum = %d, want 0 (checksum must make the table sum to zero mod 256)", sum)
	}
}

func TestBuildIORTHeaderFields(t *testing.T) {
	c, _ := newFakeController(t)
	c.cfg = Config{Base: c.base, OutputBase: 0x100, NumIDs: 0x10}

	table := BuildIORT(c)

	if string(table[0:4]) != "IORT" {
		t.Fatalf("signature = %q, want IORT", table[0:4])
	}

	length := binary.LittleEndian.Uint32(table[4:8])
	if int(length) != len(table) {
		t.Fatalf("Length field = %d, want %d", length, len(table))
	}

	nodeCount := binary.LittleEndian.Uint32(table[36:40])
	if nodeCount != 3 {
		t.Fatalf("node count = %d, want 3", nodeCount)
	}

	nodeOffset := binary.LittleEndian.Uint32(table[40:44])
	if nodeOffset != iortNodesOffset {
		t.Fatalf("node offset = %d, want %d", nodeOffset, iortNodesOffset)
	}
}

func TestBuildIORTNodeHeaders(t *testing.T) {
	c, _ := newFakeController(t)
	c.cfg = Config{Base: c.base}

	table := BuildIORT(c)

	checks := []struct {
		off  int
		typ  byte
		size uint16
	}{
		{iortItsOffset, iortNodeItsGroup, iortItsNodeSize},
		{iortSmmuV3Offset, iortNodeSmmuV3, iortSmmuV3NodeSize},
		{iortRcOffset, iortNodeRootComplex, iortRcNodeSize},
	}

	for _, chk := range checks {
		if table[chk.off] != chk.typ {
			t.Errorf("node at %d: type = %d, want %d", chk.off, table[chk.off], chk.typ)
		}

		length := binary.LittleEndian.Uint16(table[chk.off+1 : chk.off+3])
		if length != chk.size {
			t.Errorf("node at %d: length = %d, want %d", chk.off, length, chk.size)
		}
	}
}

func TestBuildIORTSmmuNode(t *testing.T) {
	c, _ := newFakeController(t)
	c.cfg = Config{
		Base:           c.base,
		CohaccOverride: true,
		EventIrq:       74,
		PriIrq:         75,
		GerrorIrq:      77,
		SyncIrq:        76,
		NumIDs:         0xffff,
	}

	table := BuildIORT(c)

	off := iortSmmuV3Offset

	base := binary.LittleEndian.Uint64(table[off+16 : off+24])
	if base != c.base {
		t.Fatalf("SMMUv3 node base = 0x%x, want 0x%x", base, c.base)
	}

	cohacc := binary.LittleEndian.Uint32(table[off+24 : off+28])
	if cohacc != 1 {
		t.Fatalf("SMMUv3 node COHACC flag = %d, want 1", cohacc)
	}

	irqs := []struct {
		name string
		off  int
		want uint32
	}{
		{"Event", off + 44, 74},
		{"Pri", off + 48, 75},
		{"Gerror", off + 52, 77},
		{"Sync", off + 56, 76},
	}

	for _, irq := range irqs {
		got := binary.LittleEndian.Uint32(table[irq.off : irq.off+4])
		if got != irq.want {
			t.Errorf("SMMUv3 node %s interrupt = %d, want %d", irq.name, got, irq.want)
		}
	}

	idMapOff := off + iortNodeHeaderSize + 52
	outputRef := binary.LittleEndian.Uint32(table[idMapOff+12 : idMapOff+16])
	if outputRef != iortItsOffset {
		t.Fatalf("SMMUv3 ID map output reference = %d, want %d (ITS node)", outputRef, iortItsOffset)
	}
}

func TestBuildIORTRcNode(t *testing.T) {
	c, _ := newFakeController(t)
	c.cfg = Config{
		Base:                c.base,
		CacheCoherent:       true,
		CachePrefetchMemory: true,
		OutputBase:          0x3000,
		NumIDs:              0x80,
	}

	table := BuildIORT(c)

	off := iortRcOffset

	cacheCoherent := binary.LittleEndian.Uint32(table[off+16 : off+20])
	if cacheCoherent != 1 {
		t.Fatalf("RC node CacheCoherent = %d, want 1", cacheCoherent)
	}

	if table[off+23] != 1<<macfCachePrefetchMemory {
		t.Fatalf("RC node MemoryAccessFlags = 0x%x, want CPM bit", table[off+23])
	}

	idMapOff := off + iortNodeHeaderSize + 16

	numIDs := binary.LittleEndian.Uint32(table[idMapOff+4 : idMapOff+8])
	if numIDs != 0x80 {
		t.Fatalf("RC ID map NumIds = 0x%x, want 0x80", numIDs)
	}

	outputBase := binary.LittleEndian.Uint32(table[idMapOff+8 : idMapOff+12])
	if outputBase != 0x3000 {
		t.Fatalf("RC ID map OutputBase = 0x%x, want 0x3000", outputBase)
	}

	outputRef := binary.LittleEndian.Uint32(table[idMapOff+12 : idMapOff+16])
	if outputRef != iortSmmuV3Offset {
		t.Fatalf("RC ID map output reference = %d, want %d (SMMUv3 node)", outputRef, iortSmmuV3Offset)
	}
}

type fakeAcpiPublisher struct {
	installed []byte
}

func (p *fakeAcpiPublisher) InstallTable(table []byte) error {
	p.installed = table
	return nil
}

func TestPublishIORT(t *testing.T) {
	c, _ := newFakeController(t)
	c.cfg = Config{Base: c.base}

	pub := &fakeAcpiPublisher{}

	if err := PublishIORT(c, pub); err != nil {
		t.Fatalf("PublishIORT: %v", err)
	}

	if len(pub.installed) == 0 {
		t.Fatal("PublishIORT did not install a table")
	}
}
