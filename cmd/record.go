// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/ppmscope/pkg/capture"
	"github.com/Thermoquad/ppmscope/pkg/ppm"
)

var (
	recordOut      string
	recordDuration int
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record the edge stream to a capture file",
	Long: `Copy edge timestamps from any source into a capture file.

The recording can be replayed later with --file. Edges are decoded while
recording so the summary reports how many frames the capture contains.
Lost edges are preserved in the recording as a sequence gap.

Recording stops on Ctrl+C, when --duration elapses, or when the source ends.`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().StringVarP(&recordOut, "out", "o", "", "Capture file to write")
	recordCmd.Flags().IntVar(&recordDuration, "duration", 0, "Stop after this many seconds (0 = no limit)")
	_ = recordCmd.MarkFlagRequired("out")
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg, err := decoderConfig(cmd)
	if err != nil {
		return err
	}

	src, srcInfo, err := OpenSource(cfg)
	if err != nil {
		return err
	}

	f, err := os.Create(recordOut)
	if err != nil {
		src.Close()
		return fmt.Errorf("failed to create capture file: %w", err)
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if recordDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(recordDuration)*time.Second)
		defer cancel()
	}

	logger.Info("recording", "source", srcInfo, "out", recordOut)

	bw := bufio.NewWriter(f)
	rec := newRecorder(bw, ppm.NewParserWithConfig(cfg))
	start := time.Now()
	if err := streamBatches(ctx, src, rec.handle); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write capture file: %w", err)
	}

	logger.Info("recording finished",
		"batches", rec.batches,
		"edges", rec.edges,
		"gaps", rec.gaps,
		"frames", rec.parser.Counters().Frames,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// recorder writes batches to a capture stream and decodes them on the way
type recorder struct {
	w      *capture.Writer
	parser *ppm.Parser

	batches uint64
	edges   uint64
	gaps    uint64
}

func newRecorder(w io.Writer, parser *ppm.Parser) *recorder {
	return &recorder{w: capture.NewWriter(w), parser: parser}
}

func (r *recorder) handle(b capture.Batch, gap error) error {
	if gap != nil {
		r.gaps++
		r.w.Skip(1)
		r.parser.Reset()
	}
	if err := r.w.WriteBatch(b.Edges); err != nil {
		return err
	}
	r.batches++
	r.edges += uint64(len(b.Edges))

	for _, ts := range b.Edges {
		r.parser.HandleEdge(ts)
		r.parser.PullFrame()
	}
	return nil
}
