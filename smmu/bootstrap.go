// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package smmu

import (
	"fmt"
	"log"
)

// Bootstrap drives the firmware-phase sequence this package exists to
// perform: decode the handoff blob, bring the controller up through
// Configure, publish the IORT table describing this SMMUv3 instance, and
// hand back the resulting Controller as the DMA-mapping protocol
// implementation (Map/Unmap/AllocateBuffer/FreeBuffer/SetAttribute) to be
// installed by the caller.
//
// IORT publication is ordered after Configure because BuildIORT reads the
// resolved base and configuration off an already-constructed Controller
// rather than the raw handoff fields.
func Bootstrap(blob *Blob, alloc PageAllocator, pub AcpiPublisher) (*Controller, error) {
	cfg, err := DecodeBlob(blob)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	log.Printf("smmu: bootstrap: base=0x%x cohacc=%v outputBase=%d numIDs=%d",
		cfg.Base, cfg.CohaccOverride, cfg.OutputBase, cfg.NumIDs)

	c, err := Configure(alloc, cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: configure: %w", err)
	}

	if pub != nil {
		if err := PublishIORT(c, pub); err != nil {
			return nil, fmt.Errorf("bootstrap: publish IORT: %w", err)
		}
	}

	log.Printf("smmu: bootstrap: done, DMA mapping protocol ready")

	return c, nil
}
