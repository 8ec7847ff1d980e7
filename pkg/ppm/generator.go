// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ppm

// Generator produces the edge timestamps a PPM transmitter would emit.
// Feeding its output to a Parser with the same Config reproduces the
// encoded frames.
type Generator struct {
	cfg Config
	now Microseconds
}

// NewGenerator creates a generator whose first edge follows start
func NewGenerator(cfg Config, start Microseconds) *Generator {
	g := &Generator{cfg: cfg}
	g.now = g.wrap(uint64(start))
	return g
}

// Now returns the timestamp of the last emitted edge
func (g *Generator) Now() Microseconds {
	return g.now
}

// Edge advances the clock by gap and returns the new edge timestamp
func (g *Generator) Edge(gap Microseconds) Microseconds {
	g.now = g.wrap(uint64(g.now) + uint64(gap))
	return g.now
}

// Sync returns the edge that closes a sync gap
func (g *Generator) Sync() Microseconds {
	return g.Edge(g.cfg.MinSyncWidth)
}

// AppendFrame appends one edge per channel value followed by the edge
// closing the next sync gap. A parser already synced decodes the values
// when it sees the closing edge.
func (g *Generator) AppendFrame(dst []Microseconds, values ...Microseconds) []Microseconds {
	for _, v := range values {
		dst = append(dst, g.Edge(v))
	}
	return append(dst, g.Sync())
}

// AppendPaddedFrame is AppendFrame for a transmitter with a fixed frame
// period: the sync gap is stretched so the frame spans period. The gap
// never shrinks below MinSyncWidth.
func (g *Generator) AppendPaddedFrame(dst []Microseconds, period Microseconds, values ...Microseconds) []Microseconds {
	var used uint64
	for _, v := range values {
		dst = append(dst, g.Edge(v))
		used += uint64(v)
	}
	gap := uint64(g.cfg.MinSyncWidth)
	if uint64(period) > used+gap {
		gap = uint64(period) - used
	}
	return append(dst, g.Edge(Microseconds(gap)))
}

// Frame returns the edges for a synced stream carrying a single frame:
// an opening sync edge, the channel edges and the closing sync edge
func (g *Generator) Frame(values ...Microseconds) []Microseconds {
	edges := make([]Microseconds, 0, len(values)+2)
	edges = append(edges, g.Sync())
	return g.AppendFrame(edges, values...)
}

func (g *Generator) wrap(t uint64) Microseconds {
	if g.cfg.WrapModulus == 0 {
		return Microseconds(t)
	}
	return Microseconds(t % g.cfg.WrapModulus)
}
