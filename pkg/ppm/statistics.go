// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ppm

import (
	"fmt"
	"time"
)

// Statistics tracks frame statistics and error rates over wall-clock time.
// It lives outside the Parser so that HandleEdge never reads the clock.
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	Counters

	// Channel count tracking (reported, never smoothed)
	LastChannelCount   int
	ChannelCountChange uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	EdgeRate  float64 // edges/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update replaces the counters with a fresh parser snapshot
func (s *Statistics) Update(c Counters) {
	s.Counters = c
	s.LastUpdateTime = time.Now()
}

// RecordFrame notes the channel count of a pulled frame
func (s *Statistics) RecordFrame(f Frame) {
	if s.LastChannelCount != 0 && f.Len() != s.LastChannelCount {
		s.ChannelCountChange++
	}
	s.LastChannelCount = f.Len()
}

// Errors returns the total number of rejected frames and resyncs
func (s *Statistics) Errors() uint64 {
	return s.ShortFrames + s.Corrupt
}

// CalculateRates calculates frame, edge and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.Frames) / elapsed
		s.EdgeRate = float64(s.Edges) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

// ValidPercent returns the share of boundaries that produced a frame
func (s *Statistics) ValidPercent() float64 {
	if s.Boundaries == 0 {
		return 0
	}
	return float64(s.Frames) * 100.0 / float64(s.Boundaries)
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var shortPercent float64
	if s.Boundaries > 0 {
		shortPercent = float64(s.ShortFrames) * 100.0 / float64(s.Boundaries)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Edges:           %8d\n", s.Edges)
	result += fmt.Sprintf("Frames:          %8d (%.1f%%)\n", s.Frames, s.ValidPercent())

	if s.ShortFrames > 0 {
		result += fmt.Sprintf("Short Frames:    %8d (%.1f%%)\n", s.ShortFrames, shortPercent)
	}
	if s.Corrupt > 0 {
		result += fmt.Sprintf("Resyncs:         %8d\n", s.Corrupt)
	}
	if s.Dropped > 0 {
		result += fmt.Sprintf("Dropped Chans:   %8d (>%d channels)\n", s.Dropped, MaxChannels)
	}
	if s.Overwritten > 0 {
		result += fmt.Sprintf("Missed Frames:   %8d\n", s.Overwritten)
	}
	if s.ChannelCountChange > 0 {
		result += fmt.Sprintf("Count Changes:   %8d (last %d)\n", s.ChannelCountChange, s.LastChannelCount)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Edge Rate:       %8.1f edges/sec\n", s.EdgeRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	now := time.Now()
	s.StartTime = now
	s.LastUpdateTime = now
	s.Counters = Counters{}
	s.LastChannelCount = 0
	s.ChannelCountChange = 0
	s.FrameRate = 0
	s.EdgeRate = 0
	s.ErrorRate = 0
}
