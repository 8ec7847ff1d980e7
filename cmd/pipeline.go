// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Thermoquad/ppmscope/pkg/capture"
	"github.com/Thermoquad/ppmscope/pkg/ppm"
)

// decodeEvent reports pipeline progress to a command.
// Exactly one of hasFrame and gap is set, or neither for a status update
// after a batch has been processed.
type decodeEvent struct {
	frame    ppm.Frame
	hasFrame bool
	gap      error
	received time.Time
	counters ppm.Counters
	state    ppm.State
}

// streamBatches reads batches from src until the source ends or ctx is
// cancelled, calling handle for each one on a single goroutine. gap is
// non-nil when edges were lost before the batch.
func streamBatches(ctx context.Context, src EdgeSource, handle func(b capture.Batch, gap error) error) error {
	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)

	// Closing the source is the only way to unblock ReadBatch
	g.Go(func() error {
		<-ctx.Done()
		if err := src.Close(); err != nil {
			logger.Debug("source close", "err", err)
		}
		return nil
	})

	g.Go(func() error {
		defer cancel()
		for {
			batch, err := src.ReadBatch()
			var gap error
			if err != nil {
				switch {
				case errors.Is(err, capture.ErrSequenceGap):
					gap = err
				case ctx.Err() != nil || isEndOfStream(err):
					return nil
				default:
					return fmt.Errorf("read failed: %w", err)
				}
			}
			if err := handle(batch, gap); err != nil {
				return err
			}
		}
	})

	err := g.Wait()
	if err != nil && isEndOfStream(err) {
		return nil
	}
	return err
}

// runPipeline feeds edges from src through parser until the source ends
// or ctx is cancelled. The parser is only touched from the reading
// goroutine, so HandleEdge and PullFrame never interleave. emit is called
// from that goroutine as well.
func runPipeline(ctx context.Context, src EdgeSource, parser *ppm.Parser, emit func(decodeEvent)) error {
	return streamBatches(ctx, src, func(batch capture.Batch, gap error) error {
		decodeBatch(parser, batch, gap, emit)
		return nil
	})
}

func decodeBatch(parser *ppm.Parser, batch capture.Batch, gap error, emit func(decodeEvent)) {
	if gap != nil {
		// Timing across the gap is unknown, start over
		logger.Warn("edges lost, resynchronizing", "err", gap)
		parser.Reset()
		emit(decodeEvent{gap: gap, received: time.Now(), counters: parser.Counters(), state: parser.State()})
	}

	for _, ts := range batch.Edges {
		parser.HandleEdge(ts)
		if frame, ok := parser.PullFrame(); ok {
			emit(decodeEvent{
				frame:    frame,
				hasFrame: true,
				received: time.Now(),
				counters: parser.Counters(),
				state:    parser.State(),
			})
		}
	}

	emit(decodeEvent{received: time.Now(), counters: parser.Counters(), state: parser.State()})
}
