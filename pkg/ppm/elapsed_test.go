// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ppm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestElapsed_NoWrap(t *testing.T) {
	assert.Equal(t, Microseconds(1500), Elapsed(1000, 2500, DefaultWrapModulus))
	assert.Equal(t, Microseconds(0), Elapsed(42, 42, DefaultWrapModulus))
}

func TestElapsed_Wrap(t *testing.T) {
	tests := []struct {
		name    string
		modulus uint64
	}{
		{name: "16-bit", modulus: 1 << 16},
		{name: "32-bit", modulus: 1 << 32},
		{name: "odd", modulus: 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			last := Microseconds(tt.modulus - 5)
			assert.Equal(t, Microseconds(15), Elapsed(last, 10, tt.modulus))
			assert.Equal(t, Elapsed(100, 115, tt.modulus), Elapsed(last, 10, tt.modulus),
				"wrapped and unwrapped pairs with the same elapsed time must agree")
		})
	}
}

func TestElapsed_MatchesTrueElapsed(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bits := rapid.UintRange(8, 32).Draw(t, "bits")
		modulus := uint64(1) << bits
		last := rapid.Uint64Range(0, modulus-1).Draw(t, "last")
		delta := rapid.Uint64Range(0, modulus-1).Draw(t, "delta")
		now := (last + delta) % modulus

		got := Elapsed(Microseconds(last), Microseconds(now), modulus)
		if uint64(got) != delta {
			t.Fatalf("Elapsed(%d, %d, %d) = %d, want %d", last, now, modulus, got, delta)
		}
	})
}
