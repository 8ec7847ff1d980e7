// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build linux

package cmd

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/warthog618/go-gpiocdev"

	"github.com/Thermoquad/ppmscope/pkg/capture"
	"github.com/Thermoquad/ppmscope/pkg/ppm"
)

// gpioEventBuffer is sized for several frames of a 20 channel stream
const gpioEventBuffer = 1024

// queuedEdge is one queued edge. afterLoss marks the first edge following
// edges that never reached the queue.
type queuedEdge struct {
	ts        uint32
	afterLoss bool
}

// gpioSource timestamps edges on a GPIO line using the kernel event clock
type gpioSource struct {
	line    *gpiocdev.Line
	edge    gpiocdev.LineEventType
	modulus uint64
	events  chan queuedEdge
	done    chan struct{}
	once    sync.Once

	// owned by the event handler goroutine
	nextLineSeqno uint32
	lost          bool

	// owned by the reader
	seq  uint32
	held *queuedEdge

	dropped     atomic.Uint64
	seenDropped uint64
}

func newGPIOSource(edge gpiocdev.LineEventType, modulus uint64) *gpioSource {
	return &gpioSource{
		edge:    edge,
		modulus: modulus,
		events:  make(chan queuedEdge, gpioEventBuffer),
		done:    make(chan struct{}),
	}
}

func openGPIOSource(chip string, offset int, edge string, cfg ppm.Config) (EdgeSource, error) {
	var (
		evtType gpiocdev.LineEventType
		edgeOpt gpiocdev.LineReqOption
	)
	switch edge {
	case "rising":
		evtType = gpiocdev.LineEventRisingEdge
		edgeOpt = gpiocdev.WithRisingEdge
	case "falling":
		evtType = gpiocdev.LineEventFallingEdge
		edgeOpt = gpiocdev.WithFallingEdge
	default:
		return nil, fmt.Errorf("invalid --gpio-edge %q (use rising or falling)", edge)
	}

	s := newGPIOSource(evtType, cfg.WrapModulus)
	line, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.WithPullUp,
		edgeOpt,
		gpiocdev.WithEventHandler(s.handleEvent))
	if err != nil {
		if errors.Is(err, syscall.EINVAL) {
			return nil, fmt.Errorf("failed to request %s:%d: %w (WithPullUp requires Linux 5.5 or later)", chip, offset, err)
		}
		return nil, fmt.Errorf("failed to request %s:%d: %w", chip, offset, err)
	}
	s.line = line

	logger.Debug("gpio line requested", "chip", chip, "offset", offset, "edge", edge)
	return s, nil
}

// handleEvent runs on the gpiocdev event goroutine
func (s *gpioSource) handleEvent(evt gpiocdev.LineEvent) {
	// LineSeqno counts every event the kernel saw on the line, so a jump
	// means its event buffer overflowed. Zero means the kernel does not
	// report sequence numbers.
	if evt.LineSeqno != 0 {
		if s.nextLineSeqno != 0 && evt.LineSeqno != s.nextLineSeqno {
			s.lost = true
		}
		s.nextLineSeqno = evt.LineSeqno + 1
	}

	if evt.Type != s.edge {
		return
	}

	ts := uint64(evt.Timestamp.Microseconds())
	if s.modulus != 0 {
		ts %= s.modulus
	}

	select {
	case s.events <- queuedEdge{ts: uint32(ts), afterLoss: s.lost}:
		s.lost = false
	default:
		s.lost = true
		s.dropped.Add(1)
	}
}

// ReadBatch returns the queued edges up to the next loss. An edge that
// follows lost edges always starts a batch, and that batch carries the
// sequence gap.
func (s *gpioSource) ReadBatch() (capture.Batch, error) {
	var first queuedEdge
	if s.held != nil {
		first = *s.held
		s.held = nil
	} else {
		select {
		case first = <-s.events:
		case <-s.done:
			return capture.Batch{}, ErrSourceClosed
		}
	}

	var gapErr error
	if first.afterLoss {
		// Leave a hole in the sequence so recordings keep the gap
		s.seq++
		dropped := s.dropped.Load()
		if n := dropped - s.seenDropped; n > 0 {
			gapErr = fmt.Errorf("%w: %d edges dropped by full event buffer", capture.ErrSequenceGap, n)
		} else {
			gapErr = fmt.Errorf("%w: kernel event buffer overflowed", capture.ErrSequenceGap)
		}
		s.seenDropped = dropped
	}

	b := capture.Batch{Seq: s.seq, Edges: []uint32{first.ts}}
	s.seq++

	// Drain whatever else has arrived without blocking
drain:
	for len(b.Edges) < capture.MaxBatchEdges {
		select {
		case e := <-s.events:
			if e.afterLoss {
				s.held = &e
				break drain
			}
			b.Edges = append(b.Edges, e.ts)
		default:
			break drain
		}
	}

	return b, gapErr
}

func (s *gpioSource) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		if s.line != nil {
			err = s.line.Close()
		}
	})
	return err
}
