// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ppm

// Counters tracks what the parser has seen since it was created or since
// the last ResetCounters call
type Counters struct {
	Edges       uint64 // edges handled
	Boundaries  uint64 // sync gaps seen while synced
	Frames      uint64 // frames published
	ShortFrames uint64 // frames rejected for too few channels
	Corrupt     uint64 // out-of-range gaps that forced a resync
	Dropped     uint64 // channel values ignored because the frame was full
	Overwritten uint64 // published frames replaced before being pulled
}

// Parser implements the PPM decoder state machine.
//
// HandleEdge and PullFrame share the pending frame slot without locking.
// If they are called from different contexts (an interrupt handler and a
// main loop, say) the caller must keep them from interleaving.
type Parser struct {
	cfg Config

	state    State
	lastEdge Microseconds
	working  Frame

	// single-slot hand-off, not a queue
	pending    Frame
	hasPending bool

	counters Counters
}

// NewParser creates a parser with the default configuration
func NewParser() *Parser {
	return NewParserWithConfig(DefaultConfig())
}

// NewParserWithConfig creates a parser with the given thresholds
func NewParserWithConfig(cfg Config) *Parser {
	return &Parser{
		cfg:   cfg,
		state: StateScanning,
	}
}

// Config returns the current thresholds
func (p *Parser) Config() Config {
	return p.cfg
}

// SetChannelLimits sets the inclusive channel value range
func (p *Parser) SetChannelLimits(min, max Microseconds) {
	p.cfg.MinChannelValue = min
	p.cfg.MaxChannelValue = max
}

// SetSyncWidth sets the minimum frame sync gap
func (p *Parser) SetSyncWidth(width Microseconds) {
	p.cfg.MinSyncWidth = width
}

// SetMinimumChannels sets the channel count a frame needs to be published
func (p *Parser) SetMinimumChannels(n uint8) {
	p.cfg.MinChannels = n
}

// SetTimerWrapModulus sets the value at which edge timestamps wrap
func (p *Parser) SetTimerWrapModulus(modulus uint64) {
	p.cfg.WrapModulus = modulus
}

// State returns the current synchronization state
func (p *Parser) State() State {
	return p.state
}

// Counters returns a snapshot of the parser counters
func (p *Parser) Counters() Counters {
	return p.counters
}

// ResetCounters zeroes the parser counters
func (p *Parser) ResetCounters() {
	p.counters = Counters{}
}

// Reset drops the working and pending frames and returns to scanning.
// Use it when edges are known to have been lost.
func (p *Parser) Reset() {
	p.state = StateScanning
	p.working.count = 0
	p.hasPending = false
}

// HandleEdge processes one pulse edge timestamp.
// Edges must be delivered in arrival order. Malformed timing is never
// reported; the parser drops the frame in progress and resynchronizes.
func (p *Parser) HandleEdge(timestamp Microseconds) {
	width := Elapsed(p.lastEdge, timestamp, p.cfg.WrapModulus)
	p.lastEdge = timestamp
	p.counters.Edges++

	switch p.state {
	case StateScanning:
		// Anything shorter than a sync gap is left over from a frame we
		// joined part way through
		if width >= p.cfg.MinSyncWidth {
			p.working.count = 0
			p.state = StateSynced
		}

	case StateSynced:
		if width >= p.cfg.MinSyncWidth {
			p.counters.Boundaries++
			if p.working.count >= p.cfg.MinChannels {
				p.publish()
			} else {
				p.counters.ShortFrames++
				p.hasPending = false
			}
			p.working.count = 0
			return
		}

		if width < p.cfg.MinChannelValue || width > p.cfg.MaxChannelValue {
			p.counters.Corrupt++
			p.working.count = 0
			p.state = StateScanning
			return
		}

		if !p.working.push(width) {
			p.counters.Dropped++
		}
	}
}

// publish moves the working frame into the pending slot
func (p *Parser) publish() {
	if p.hasPending {
		p.counters.Overwritten++
	}
	p.pending = p.working
	p.hasPending = true
	p.counters.Frames++
}

// PullFrame returns the most recently completed frame and clears it.
// Returns false if no frame has completed since the last pull. A frame
// that is not pulled before the next one completes is lost.
func (p *Parser) PullFrame() (Frame, bool) {
	if !p.hasPending {
		return Frame{}, false
	}
	p.hasPending = false
	return p.pending, true
}
