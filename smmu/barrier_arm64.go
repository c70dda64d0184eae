// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build arm64

package smmu

// dsb issues a data synchronization barrier, ensuring that all memory
// accesses issued before the call complete before any issued after it
// become visible to the SMMUv3.
//
// defined in barrier_arm64.s
func dsb()
