// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package smmu

import "errors"

// Sentinel errors returned (wrapped with context via fmt.Errorf("%w: ...")) by
// this package's exported functions.
var (
	// ErrInvalidParameter is returned when an argument or controller state
	// is out of range or otherwise malformed (e.g. an unsupported address
	// width, an unrecognized map operation, a nil mapping or page-table
	// root, a zero-length mapping, or GERROR not clear at bring-up).
	ErrInvalidParameter = errors.New("smmu: invalid parameter")

	// ErrOutOfResources is returned when the page allocator or queue/table
	// allocator cannot satisfy a request.
	ErrOutOfResources = errors.New("smmu: out of resources")

	// ErrTimeout is returned when a register poll does not observe the
	// expected value within its deadline.
	ErrTimeout = errors.New("smmu: register poll timed out")

	// ErrNotFound is returned when the handoff blob, or its SMMUv3 base
	// address, is missing.
	ErrNotFound = errors.New("smmu: not found")
)

// DriverError carries register-level context (which register, expected mask
// and value, last observed value) around a sentinel error, for callers that
// want to log or format a register-level failure report.
type DriverError struct {
	Op   string
	Reg  string
	Want uint64
	Got  uint64
	Err  error
}

func (e *DriverError) Error() string {
	return e.Op + " " + e.Reg + ": " + e.Err.Error()
}

func (e *DriverError) Unwrap() error {
	return e.Err
}
