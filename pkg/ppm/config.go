// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ppm

import "fmt"

// Config holds the thresholds used to classify gaps
type Config struct {
	MinChannelValue Microseconds // inclusive
	MaxChannelValue Microseconds // inclusive
	MinSyncWidth    Microseconds
	MinChannels     uint8
	WrapModulus     uint64
}

// DefaultConfig returns the default thresholds
func DefaultConfig() Config {
	return Config{
		MinChannelValue: DefaultMinChannelValue,
		MaxChannelValue: DefaultMaxChannelValue,
		MinSyncWidth:    DefaultMinSyncWidth,
		MinChannels:     DefaultMinChannels,
		WrapModulus:     DefaultWrapModulus,
	}
}

// Validate checks that sync gaps and channel gaps can be told apart and
// that a valid frame fits in a Frame.
// The Parser itself never calls Validate; keeping the thresholds
// consistent is the caller's job.
func (c Config) Validate() error {
	if c.MinChannelValue > c.MaxChannelValue {
		return fmt.Errorf("channel range inverted: min %d > max %d", c.MinChannelValue, c.MaxChannelValue)
	}
	if c.MinSyncWidth <= c.MaxChannelValue {
		return fmt.Errorf("sync width %d must exceed max channel value %d", c.MinSyncWidth, c.MaxChannelValue)
	}
	if c.MinChannels > MaxChannels {
		return fmt.Errorf("minimum channels %d exceeds capacity %d", c.MinChannels, MaxChannels)
	}
	if c.WrapModulus == 0 || c.WrapModulus > DefaultWrapModulus {
		return fmt.Errorf("wrap modulus %d out of range (1 to 2^32)", c.WrapModulus)
	}
	if uint64(c.MinSyncWidth) >= c.WrapModulus {
		return fmt.Errorf("sync width %d does not fit in wrap modulus %d", c.MinSyncWidth, c.WrapModulus)
	}
	return nil
}

// WrapModulusForBits returns the wrap modulus of an n-bit counter
func WrapModulusForBits(bits uint) (uint64, error) {
	if bits == 0 || bits > 32 {
		return 0, fmt.Errorf("invalid counter width: %d bits (1-32)", bits)
	}
	return uint64(1) << bits, nil
}
