// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Thermoquad/ppmscope/pkg/ppm"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

// tuiStatusInterval limits how often per-batch status updates reach the TUI
const tuiStatusInterval = 100 * time.Millisecond

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection",
	Short: "Detect and analyze malformed frames and signal errors",
	Long: `Track frame errors and signal anomalies with statistics.

This command decodes the edge stream and detects:
  - Out-of-range pulses that force the decoder to resynchronize
  - Short frames with fewer than --min-channels channels
  - Channels beyond the 20 channel frame capacity
  - Lost edges (capture sequence gaps)
  - Changes in the number of channels per frame
  - Statistics and trends (frame rate, edge rate, error rate)

By default, only errors are displayed. Use --show-all to display valid frames too.

Errors are highlighted as they occur, with periodic statistics summaries
displayed at configurable intervals.`,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	errorDetectionCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	if statsInterval <= 0 {
		return fmt.Errorf("--stats-interval must be positive, got %d", statsInterval)
	}

	cfg, err := decoderConfig(cmd)
	if err != nil {
		return err
	}

	src, srcInfo, err := OpenSource(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if useTUI {
		return runTUIMode(ctx, src, srcInfo, cfg)
	}
	return runTextMode(ctx, src, srcInfo, cfg)
}

// printNote prints a monitor note in highlighted format
func printNote(ts time.Time, n monitorNote) {
	timestamp := ts.Format("15:04:05.000")
	if n.isError {
		fmt.Printf("[%s] \033[1;31mERROR:\033[0m %s\n", timestamp, n.message)
		return
	}
	fmt.Printf("[%s] \033[1;33mINFO:\033[0m %s\n", timestamp, n.message)
}

// runTUIMode runs error detection in TUI mode
func runTUIMode(ctx context.Context, src EdgeSource, srcInfo string, cfg ppm.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := initialModel(srcInfo, cfg, statsInterval, showAll)
	p := tea.NewProgram(m, tea.WithAltScreen())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		throttle := newStatusThrottle(tuiStatusInterval)
		err := runPipeline(gctx, src, ppm.NewParserWithConfig(cfg), func(ev decodeEvent) {
			if throttle.allow(ev) {
				p.Send(decodeMsg(ev))
			}
		})
		p.Send(sourceDoneMsg{err: err})
		return err
	})

	if _, err := p.Run(); err != nil {
		cancel()
		_ = g.Wait()
		return fmt.Errorf("TUI error: %w", err)
	}

	cancel()
	return g.Wait()
}

// statusThrottle limits plain status updates. Frames, gaps and state
// changes always pass.
type statusThrottle struct {
	interval   time.Duration
	lastStatus time.Time
	lastState  ppm.State
}

func newStatusThrottle(interval time.Duration) *statusThrottle {
	return &statusThrottle{interval: interval, lastState: ppm.StateScanning}
}

func (t *statusThrottle) allow(ev decodeEvent) bool {
	if ev.hasFrame || ev.gap != nil || ev.state != t.lastState {
		t.lastState = ev.state
		return true
	}
	if ev.received.Sub(t.lastStatus) < t.interval {
		return false
	}
	t.lastStatus = ev.received
	return true
}

// runTextMode runs error detection in text mode
func runTextMode(ctx context.Context, src EdgeSource, srcInfo string, cfg ppm.Config) error {
	fmt.Printf("ppmscope - Error Detection Mode\n")
	fmt.Printf("Source: %s\n", srcInfo)
	fmt.Printf("Thresholds: channel %d-%dµs, sync >= %dµs, min %d channels\n",
		cfg.MinChannelValue, cfg.MaxChannelValue, cfg.MinSyncWidth, cfg.MinChannels)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	// Valid frames are printed in full below rather than as notes
	monitor := newFrameMonitor(cfg, false)

	// Statistics ticker
	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	events := make(chan decodeEvent, 256)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(events)
		return runPipeline(gctx, src, ppm.NewParserWithConfig(cfg), func(ev decodeEvent) {
			select {
			case events <- ev:
			case <-gctx.Done():
			}
		})
	})

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				fmt.Println()
				fmt.Print(monitor.stats.String())
				return g.Wait()
			}
			for _, n := range monitor.observe(ev) {
				printNote(ev.received, n)
			}
			if ev.hasFrame && showAll {
				fmt.Print(ppm.FormatFrame(ev.received, ev.frame))
			}

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(monitor.stats.String())
			fmt.Println()
		}
	}
}
