// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/ppmscope/pkg/ppm"
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display decoded frames in human-readable format",
	Long: `Continuously decode and display PPM frames as they arrive.

Each complete frame is printed with a timestamp, its channel count and
every channel value in microseconds. Sequence gaps in the edge stream are
reported inline and the decoder resynchronizes on the next frame boundary.

Supports GPIO, serial, WebSocket and capture file sources.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
}

func runRawLog(cmd *cobra.Command, args []string) error {
	cfg, err := decoderConfig(cmd)
	if err != nil {
		return err
	}

	src, srcInfo, err := OpenSource(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("ppmscope - Raw Frame Log\n")
	fmt.Printf("Source: %s\n", srcInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	parser := ppm.NewParserWithConfig(cfg)
	err = runPipeline(ctx, src, parser, func(ev decodeEvent) {
		switch {
		case ev.hasFrame:
			fmt.Print(ppm.FormatFrame(ev.received, ev.frame))
		case ev.gap != nil:
			fmt.Printf("[%s] GAP %v\n", ev.received.Format("15:04:05.000"), ev.gap)
		}
	})
	if err != nil {
		return err
	}

	logger.Info("source ended", "frames", parser.Counters().Frames)
	return nil
}
