// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package smmu

import (
	"errors"
	"testing"
)

func TestAddressWidthRoundTrip(t *testing.T) {
	widths := []uint{32, 36, 40, 42, 44, 48, 52}

	for _, w := range widths {
		code, err := encodeAddressWidth(w)
		if err != nil {
			t.Fatalf("encodeAddressWidth(%d): %v", w, err)
		}

		got, err := decodeAddressWidth(code)
		if err != nil {
			t.Fatalf("decodeAddressWidth(%d): %v", code, err)
		}

		if got != w {
			t.Errorf("decode(encode(%d)) = %d, want %d", w, got, w)
		}
	}
}

func TestAddressWidthInvalid(t *testing.T) {
	if _, err := decodeAddressWidth(7); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("decodeAddressWidth(7) error = %v, want ErrInvalidParameter", err)
	}

	if _, err := encodeAddressWidth(33); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("encodeAddressWidth(33) error = %v, want ErrInvalidParameter", err)
	}
}
