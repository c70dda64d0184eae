// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bits

// Field64 is a contiguous bitfield within a 64-bit word, as used by Stream
// Table Entry words and translation-table entries.
type Field64 struct {
	Pos   uint
	Width uint
}

// Mask returns the field's in-place bitmask.
func (f Field64) Mask() uint64 {
	return (uint64(1)<<f.Width - 1) << f.Pos
}

// Get extracts the field's value from r.
func (f Field64) Get(r uint64) uint64 {
	return (r >> f.Pos) & (uint64(1)<<f.Width - 1)
}

// Set replaces the field's bits in the pointed word with val.
func (f Field64) Set(r *uint64, val uint64) {
	*r = (*r &^ f.Mask()) | (val<<f.Pos)&f.Mask()
}

// Flag64 is a single-bit field within a 64-bit word.
type Flag64 struct {
	Pos uint
}

// Mask returns the flag's in-place bitmask.
func (f Flag64) Mask() uint64 {
	return uint64(1) << f.Pos
}

// IsSet returns whether the flag is set in r.
func (f Flag64) IsSet(r uint64) bool {
	return r&f.Mask() != 0
}

// Set sets the flag in the pointed word.
func (f Flag64) Set(r *uint64) {
	*r |= f.Mask()
}

// Clear clears the flag in the pointed word.
func (f Flag64) Clear(r *uint64) {
	*r &^= f.Mask()
}

// SetTo sets or clears the flag in the pointed word.
func (f Flag64) SetTo(r *uint64, val bool) {
	if val {
		f.Set(r)
	} else {
		f.Clear(r)
	}
}
