// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ppm

// Elapsed returns the time from last to now on a counter that wraps at
// modulus. The result is the same whether or not the counter wrapped
// between the two readings.
func Elapsed(last, now Microseconds, modulus uint64) Microseconds {
	if now >= last {
		return now - last
	}
	return Microseconds((modulus - uint64(last)) + uint64(now))
}
