// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/ppmscope/pkg/capture"
	"github.com/Thermoquad/ppmscope/pkg/ppm"
)

var (
	genOut      string
	genChannels []uint
	genFrames   int
	genStart    uint32
	genPeriod   uint32
	genBatch    int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Synthesize a capture file from channel values",
	Long: `Write a capture file carrying a PPM stream with the given channel values.

The stream starts with a sync gap so the decoder synchronizes immediately,
then repeats the same frame --frames times. With --period the sync gap is
stretched so every frame spans the given period, like a real transmitter.

Use --start close to the timer limit to exercise counter wraparound:
  ppmscope generate -o wrap.cbor --start 4294960000 --frames 10

The decoder thresholds (--config, --sync-width, --wrap-bits) shape the
generated stream the same way they shape decoding.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVarP(&genOut, "out", "o", "", "Capture file to write (- for stdout)")
	generateCmd.Flags().UintSliceVar(&genChannels, "channels", []uint{1500, 1500, 1000, 1500, 1500, 1500, 1500, 1500}, "Channel values in µs")
	generateCmd.Flags().IntVar(&genFrames, "frames", 50, "Number of frames to generate")
	generateCmd.Flags().Uint32Var(&genStart, "start", 0, "Timestamp of the first edge (µs)")
	generateCmd.Flags().Uint32Var(&genPeriod, "period", 0, "Frame period in µs (0 = minimum sync gap)")
	generateCmd.Flags().IntVar(&genBatch, "batch", 64, "Edges per capture batch")
	_ = generateCmd.MarkFlagRequired("out")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := decoderConfig(cmd)
	if err != nil {
		return err
	}

	values, err := channelValues(cfg, genChannels)
	if err != nil {
		return err
	}
	if genFrames < 0 {
		return fmt.Errorf("--frames must not be negative, got %d", genFrames)
	}
	if genBatch < 1 || genBatch > capture.MaxBatchEdges {
		return fmt.Errorf("--batch must be between 1 and %d, got %d", capture.MaxBatchEdges, genBatch)
	}

	var out io.Writer = os.Stdout
	if genOut != "-" {
		f, err := os.Create(genOut)
		if err != nil {
			return fmt.Errorf("failed to create capture file: %w", err)
		}
		defer f.Close()
		out = f
	}

	bw := bufio.NewWriter(out)
	n, err := writeGenerated(bw, ppm.NewGenerator(cfg, genStart), values, genFrames, genPeriod, genBatch)
	if err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write capture file: %w", err)
	}

	logger.Info("generated capture", "out", genOut, "frames", genFrames, "channels", len(values), "edges", n)
	return nil
}

// channelValues converts flag values to timestamps, warning about any that
// the decoder will reject
func channelValues(cfg ppm.Config, raw []uint) ([]ppm.Microseconds, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("--channels must list at least one value")
	}
	values := make([]ppm.Microseconds, 0, len(raw))
	for i, v := range raw {
		if v == 0 || v > math.MaxUint32 {
			return nil, fmt.Errorf("channel %d: value %d out of range", i+1, v)
		}
		if v < uint(cfg.MinChannelValue) || v > uint(cfg.MaxChannelValue) {
			logger.Warn("channel value outside decoder range, frames will be rejected",
				"channel", i+1, "value", v, "min", cfg.MinChannelValue, "max", cfg.MaxChannelValue)
		}
		values = append(values, ppm.Microseconds(v))
	}
	if len(values) > ppm.MaxChannels {
		logger.Warn("more channels than a frame holds, extra channels will be dropped",
			"channels", len(values), "max", ppm.MaxChannels)
	}
	if len(values) < int(cfg.MinChannels) {
		logger.Warn("fewer channels than --min-channels, frames will be rejected",
			"channels", len(values), "min", cfg.MinChannels)
	}
	return values, nil
}

// writeGenerated writes an opening sync edge followed by frames, split into
// batches of at most batch edges. It returns the number of edges written.
func writeGenerated(w io.Writer, g *ppm.Generator, values []ppm.Microseconds, frames int, period ppm.Microseconds, batch int) (int, error) {
	cw := capture.NewWriter(w)
	pending := []ppm.Microseconds{g.Now(), g.Sync()}
	total := 0

	flush := func(all bool) error {
		for len(pending) >= batch || (all && len(pending) > 0) {
			n := min(batch, len(pending))
			if err := cw.WriteBatch(pending[:n]); err != nil {
				return err
			}
			total += n
			pending = append(pending[:0], pending[n:]...)
		}
		return nil
	}

	for i := 0; i < frames; i++ {
		pending = g.AppendPaddedFrame(pending, period, values...)
		if err := flush(false); err != nil {
			return total, err
		}
	}
	if err := flush(true); err != nil {
		return total, err
	}
	return total, nil
}
