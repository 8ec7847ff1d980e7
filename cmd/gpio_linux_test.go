// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build linux

package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/go-gpiocdev"

	"github.com/Thermoquad/ppmscope/pkg/capture"
	"github.com/Thermoquad/ppmscope/pkg/ppm"
)

// lineFeeder delivers edges to a source the way the event goroutine does
type lineFeeder struct {
	src   *gpioSource
	seqno uint32
}

func (f *lineFeeder) send(typ gpiocdev.LineEventType, ts ppm.Microseconds) {
	f.seqno++
	f.src.handleEvent(gpiocdev.LineEvent{
		Timestamp: time.Duration(ts) * time.Microsecond,
		Type:      typ,
		Seqno:     f.seqno,
		LineSeqno: f.seqno,
	})
}

func (f *lineFeeder) rising(edges ...ppm.Microseconds) {
	for _, ts := range edges {
		f.send(gpiocdev.LineEventRisingEdge, ts)
	}
}

func TestGPIOSource_DrainsQueuedEdges(t *testing.T) {
	src := newGPIOSource(gpiocdev.LineEventRisingEdge, ppm.DefaultWrapModulus)
	f := &lineFeeder{src: src}
	f.rising(100, 2600, 3600, 4600)

	b, err := src.ReadBatch()
	require.NoError(t, err)
	assert.Equal(t, []uint32{100, 2600, 3600, 4600}, b.Edges)
	assert.Equal(t, uint32(0), b.Seq)

	f.rising(5600)
	b, err = src.ReadBatch()
	require.NoError(t, err)
	assert.Equal(t, []uint32{5600}, b.Edges)
	assert.Equal(t, uint32(1), b.Seq)
}

func TestGPIOSource_IgnoresOtherEdge(t *testing.T) {
	src := newGPIOSource(gpiocdev.LineEventRisingEdge, ppm.DefaultWrapModulus)
	f := &lineFeeder{src: src}
	f.rising(100)
	f.send(gpiocdev.LineEventFallingEdge, 600)
	f.rising(2600)

	b, err := src.ReadBatch()
	require.NoError(t, err, "filtered edges are not losses")
	assert.Equal(t, []uint32{100, 2600}, b.Edges)
}

func TestGPIOSource_ReducesTimestampsToTimerWidth(t *testing.T) {
	src := newGPIOSource(gpiocdev.LineEventRisingEdge, 1<<16)
	f := &lineFeeder{src: src}
	f.rising(65536+100, 3*65536+7)

	b, err := src.ReadBatch()
	require.NoError(t, err)
	assert.Equal(t, []uint32{100, 7}, b.Edges)
}

func TestGPIOSource_OverflowGapStartsNextBatch(t *testing.T) {
	cfg := ppm.DefaultConfig()
	g := ppm.NewGenerator(cfg, 0)
	values := []ppm.Microseconds{1000, 1000, 1000, 1000, 1000, 1000, 1000, 1000}

	edges := []ppm.Microseconds{g.Now(), g.Sync()}
	for len(edges) < gpioEventBuffer+201 {
		edges = g.AppendFrame(edges, values...)
	}
	edges = edges[:gpioEventBuffer+201]

	// The queue holds gpioEventBuffer edges; the next one is dropped
	src := newGPIOSource(gpiocdev.LineEventRisingEdge, cfg.WrapModulus)
	f := &lineFeeder{src: src}
	f.rising(edges[:gpioEventBuffer+1]...)

	first, err := src.ReadBatch()
	require.NoError(t, err, "edges queued before the loss are intact")
	require.Len(t, first.Edges, gpioEventBuffer)

	f.rising(edges[gpioEventBuffer+1:]...)
	second, err := src.ReadBatch()
	require.ErrorIs(t, err, capture.ErrSequenceGap)
	assert.Contains(t, err.Error(), "1 edges dropped")
	require.Len(t, second.Edges, 200)
	assert.Equal(t, edges[gpioEventBuffer+1], second.Edges[0])
	assert.Equal(t, first.Seq+2, second.Seq, "the gap is visible in the sequence")

	parser := ppm.NewParserWithConfig(cfg)
	var frames []ppm.Frame
	emit := func(ev decodeEvent) {
		if ev.hasFrame {
			frames = append(frames, ev.frame)
		}
	}
	decodeBatch(parser, first, nil, emit)
	decodeBatch(parser, second, err, emit)

	require.NotEmpty(t, frames)
	for i, fr := range frames {
		assert.Equal(t, values, fr.Values(), "frame %d", i)
	}
}

func TestGPIOSource_KernelSeqnoGapSplitsBatch(t *testing.T) {
	src := newGPIOSource(gpiocdev.LineEventRisingEdge, ppm.DefaultWrapModulus)
	f := &lineFeeder{src: src}
	f.rising(100, 1100, 2100)
	f.seqno += 2 // two events lost in the kernel buffer
	f.rising(6100, 7100)

	b, err := src.ReadBatch()
	require.NoError(t, err)
	assert.Equal(t, []uint32{100, 1100, 2100}, b.Edges)

	b, err = src.ReadBatch()
	require.ErrorIs(t, err, capture.ErrSequenceGap)
	assert.Contains(t, err.Error(), "kernel event buffer")
	assert.Equal(t, []uint32{6100, 7100}, b.Edges)
}

func TestGPIOSource_CloseUnblocksRead(t *testing.T) {
	src := newGPIOSource(gpiocdev.LineEventRisingEdge, ppm.DefaultWrapModulus)

	errCh := make(chan error, 1)
	go func() {
		_, err := src.ReadBatch()
		errCh <- err
	}()

	require.NoError(t, src.Close())
	require.NoError(t, src.Close(), "closing twice is harmless")

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrSourceClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("ReadBatch did not return after Close")
	}
}
