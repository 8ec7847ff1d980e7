// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package ppm decodes Pulse-Position-Modulation radio-control signals.
//
// A PPM stream is a train of pulses where each channel value is the time
// between two consecutive pulse edges, and frames are separated by a gap
// longer than any channel. The Parser in this package consumes edge
// timestamps one at a time and produces Frames of channel values. It does
// no allocation and takes no locks, so HandleEdge can be called directly
// from a timer capture or GPIO interrupt context.
package ppm

// Microseconds is the base unit for all PPM timing values
type Microseconds = uint32

// Default channel value range
const (
	DefaultMinChannelValue Microseconds = 800
	DefaultMaxChannelValue Microseconds = 2200
	MidChannelValue        Microseconds = 1500
)

// DefaultMinSyncWidth is the shortest gap treated as a frame boundary
const DefaultMinSyncWidth Microseconds = 2300

// Channel count limits
const (
	DefaultMinChannels = 5
	MaxChannels        = 20
)

// DefaultWrapModulus is the wrap point of a free-running 32-bit
// microsecond counter
const DefaultWrapModulus uint64 = 1 << 32

// State is the parser synchronization state
type State int

// Parser states
const (
	// StateScanning: no frame boundary seen yet, gaps are discarded
	StateScanning State = iota
	// StateSynced: last boundary was valid, gaps are channel values
	StateSynced
)

// String returns the human-readable state name
func (s State) String() string {
	switch s {
	case StateScanning:
		return "SCANNING"
	case StateSynced:
		return "SYNCED"
	default:
		return "UNKNOWN"
	}
}
