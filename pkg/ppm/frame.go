// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ppm

// Frame is a completed set of channel values between two sync gaps.
// It is a plain value: copying a Frame copies its channel array.
type Frame struct {
	values [MaxChannels]Microseconds
	count  uint8
}

// NewFrame creates a frame from channel values.
// Values beyond MaxChannels are ignored.
func NewFrame(values ...Microseconds) Frame {
	var f Frame
	for _, v := range values {
		if !f.push(v) {
			break
		}
	}
	return f
}

// push appends a channel value, reporting false when the frame is full
func (f *Frame) push(v Microseconds) bool {
	if int(f.count) >= MaxChannels {
		return false
	}
	f.values[f.count] = v
	f.count++
	return true
}

// Len returns the number of valid channels
func (f Frame) Len() int {
	return int(f.count)
}

// Channel returns the value of channel i (zero-based)
func (f Frame) Channel(i int) (Microseconds, bool) {
	if i < 0 || i >= int(f.count) {
		return 0, false
	}
	return f.values[i], true
}

// Values returns the valid channel values in arrival order
func (f Frame) Values() []Microseconds {
	out := make([]Microseconds, f.count)
	copy(out, f.values[:f.count])
	return out
}

// Equal reports whether two frames hold the same channel values.
// Slots past Len are ignored.
func (f Frame) Equal(o Frame) bool {
	if f.count != o.count {
		return false
	}
	for i := 0; i < int(f.count); i++ {
		if f.values[i] != o.values[i] {
			return false
		}
	}
	return true
}
