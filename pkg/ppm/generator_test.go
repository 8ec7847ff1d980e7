// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ppm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestGenerator_Edges(t *testing.T) {
	g := NewGenerator(DefaultConfig(), 100)
	edges := g.Frame(1000, 1500, 2000)

	assert.Equal(t, []Microseconds{2400, 3400, 4900, 6900, 9200}, edges)
	assert.Equal(t, Microseconds(9200), g.Now())
}

func TestGenerator_Wraps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WrapModulus = 1 << 16
	g := NewGenerator(cfg, 65000)

	assert.Equal(t, Microseconds(964), g.Edge(1500))
}

func TestGenerator_StartReducedModuloCounter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WrapModulus = 1000
	g := NewGenerator(cfg, 2500)
	assert.Equal(t, Microseconds(500), g.Now())
}

func TestGenerator_ParserRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	g := NewGenerator(cfg, 0)
	p := NewParserWithConfig(cfg)

	var edges []Microseconds
	edges = append(edges, g.Sync())
	edges = g.AppendFrame(edges, 1000, 1100, 1200, 1300, 1400)
	edges = g.AppendFrame(edges, 2000, 1900, 1800, 1700, 1600, 1500)

	var frames []Frame
	for _, e := range edges {
		p.HandleEdge(e)
		if f, ok := p.PullFrame(); ok {
			frames = append(frames, f)
		}
	}

	require.Len(t, frames, 2)
	assert.True(t, frames[0].Equal(NewFrame(1000, 1100, 1200, 1300, 1400)))
	assert.True(t, frames[1].Equal(NewFrame(2000, 1900, 1800, 1700, 1600, 1500)))
}

func TestGenerator_ParserRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := DefaultConfig()
		cfg.WrapModulus = rapid.SampledFrom([]uint64{1 << 16, 1 << 32}).Draw(t, "modulus")

		values := rapid.SliceOfN(
			rapid.Uint32Range(cfg.MinChannelValue, cfg.MaxChannelValue),
			int(cfg.MinChannels), MaxChannels,
		).Draw(t, "values")
		start := rapid.Uint32().Draw(t, "start")

		g := NewGenerator(cfg, start)
		p := NewParserWithConfig(cfg)
		// line the parser up with the generator clock
		p.HandleEdge(g.Now())

		edges := g.Frame(values...)
		for i, e := range edges {
			p.HandleEdge(e)
			f, ok := p.PullFrame()
			if i < len(edges)-1 {
				if ok {
					t.Fatalf("frame published early at edge %d", i)
				}
				continue
			}
			if !ok {
				t.Fatalf("no frame after closing sync edge")
			}
			if !f.Equal(NewFrame(values...)) {
				t.Fatalf("decoded %v, want %v", f.Values(), values)
			}
		}
	})
}

func TestGenerator_PaddedFrame(t *testing.T) {
	cfg := DefaultConfig()
	g := NewGenerator(cfg, 0)

	edges := g.AppendPaddedFrame(nil, 20000, 1000, 1500, 2000)
	require.Len(t, edges, 4)
	assert.Equal(t, Microseconds(20000), edges[3], "sync gap pads the frame to the period")

	// Period too short: the sync gap keeps its minimum width
	edges = g.AppendPaddedFrame(nil, 1000, 1500)
	assert.Equal(t, []Microseconds{21500, 21500 + cfg.MinSyncWidth}, edges)
}

func TestGenerator_PaddedFramesDecode(t *testing.T) {
	cfg := DefaultConfig()
	g := NewGenerator(cfg, 0)
	p := NewParserWithConfig(cfg)
	p.HandleEdge(g.Now())
	p.HandleEdge(g.Sync())

	values := []Microseconds{1100, 1200, 1300, 1400, 1500, 1600}
	for i := 0; i < 3; i++ {
		for _, ts := range g.AppendPaddedFrame(nil, 22500, values...) {
			p.HandleEdge(ts)
		}
		f, ok := p.PullFrame()
		require.True(t, ok)
		assert.Equal(t, values, f.Values())
	}
}
