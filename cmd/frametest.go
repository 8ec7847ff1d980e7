// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/ppmscope/pkg/ppm"
)

var (
	frameTestTimeout int
)

var frameTestCmd = &cobra.Command{
	Use:   "frame_test",
	Short: "Test a source by waiting for a valid PPM frame",
	Long: `Wait for a valid PPM frame on the edge source until timeout.

This command opens the selected source and feeds edges through the decoder
until one complete frame with at least --min-channels in-range channels has
been decoded. Edges before the first sync gap are skipped.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached (or the source ended) without a valid frame
  2 - Connection error

Useful for checking receiver wiring and capture bridge connectivity.`,
	RunE: runFrameTest,
}

func init() {
	rootCmd.AddCommand(frameTestCmd)
	frameTestCmd.Flags().IntVar(&frameTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

// errFrameFound stops the pipeline once a frame has been seen
var errFrameFound = errors.New("frame found")

func runFrameTest(cmd *cobra.Command, args []string) error {
	cfg, err := decoderConfig(cmd)
	if err != nil {
		return err
	}

	src, srcInfo, err := OpenSource(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("ppmscope - Frame Test\n")
	fmt.Printf("Source: %s\n", srcInfo)
	fmt.Printf("Timeout: %d seconds\n", frameTestTimeout)
	fmt.Printf("Waiting for valid PPM frame...\n\n")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(frameTestTimeout)*time.Second)
	defer cancel()

	found, err := waitForFrame(ctx, src, ppm.NewParserWithConfig(cfg))
	switch {
	case err != nil:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case found != nil:
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Channels: %d\n", found.frame.Len())
		fmt.Printf("  Edges before frame: %d\n", edgesBeforeFrame(*found))
		if found.counters.ShortFrames > 0 || found.counters.Corrupt > 0 {
			fmt.Printf("  Rejected before frame: %d short, %d resyncs\n",
				found.counters.ShortFrames, found.counters.Corrupt)
		}
		fmt.Print(ppm.FormatChannels(found.frame))
		os.Exit(0)

	case ctx.Err() != nil:
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", frameTestTimeout)
		os.Exit(1)

	default:
		fmt.Fprintf(os.Stderr, "FAILED: Source ended without a valid frame\n")
		os.Exit(1)
	}

	return nil
}

// edgesBeforeFrame counts the edges seen before the frame's first channel.
// The frame itself took one edge per channel plus the closing sync edge.
func edgesBeforeFrame(ev decodeEvent) uint64 {
	own := uint64(ev.frame.Len()) + 1
	if ev.counters.Edges < own {
		return 0
	}
	return ev.counters.Edges - own
}

// waitForFrame runs the pipeline until the first frame. It returns nil
// without error if ctx expires or the source ends first.
func waitForFrame(ctx context.Context, src EdgeSource, parser *ppm.Parser) (*decodeEvent, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var found *decodeEvent
	err := runPipeline(ctx, src, parser, func(ev decodeEvent) {
		if ev.hasFrame && found == nil {
			found = &ev
			cancel(errFrameFound)
		}
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}
