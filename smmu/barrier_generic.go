// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !arm64

package smmu

// dsb is a no-op stand-in for the AArch64 data-synchronization barrier on
// non-arm64 hosts (unit tests, staticcheck). Every access this package
// orders around a dsb() call already goes through internal/reg's atomic
// load/store, which is the ordering the fake-hardware test harness in
// fakehardware_test.go relies on; a real AArch64 build uses barrier_arm64.s
// instead.
func dsb() {}
