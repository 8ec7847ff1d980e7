// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/ppmscope/pkg/capture"
)

var wsProbeCmd = &cobra.Command{
	Use:   "ws_probe",
	Short: "Test raw WebSocket connection stability",
	Long: `Test the WebSocket connection to a capture relay without decoding frames.

This command connects to --url and just listens, logging every batch
received, any sequence gaps, and errors encountered. Useful for debugging
relay stability and throughput.

Exit codes:
  0 - Test completed normally
  1 - Test failed
  2 - Connection error`,
	RunE: runWsProbe,
}

var wsProbeDuration int

func init() {
	rootCmd.AddCommand(wsProbeCmd)
	wsProbeCmd.Flags().IntVar(&wsProbeDuration, "duration", 30, "Test duration in seconds")
}

// probeStats tallies what a probe has received
type probeStats struct {
	messages int
	bytes    int
	edges    int
	gaps     int
	invalid  int
	nextSeq  uint32
	started  bool
}

// observe records one binary message and describes it
func (s *probeStats) observe(data []byte) string {
	s.messages++
	s.bytes += len(data)

	b, err := capture.Unmarshal(data)
	if err != nil {
		s.invalid++
		return fmt.Sprintf("%d bytes, not a capture batch: %v", len(data), err)
	}
	s.edges += len(b.Edges)

	note := ""
	if s.started && b.Seq != s.nextSeq {
		s.gaps++
		note = fmt.Sprintf(" (GAP: expected seq %d)", s.nextSeq)
	}
	s.started = true
	s.nextSeq = b.Seq + 1
	return fmt.Sprintf("seq=%d edges=%d bytes=%d%s", b.Seq, len(b.Edges), len(data), note)
}

func (s *probeStats) print(duration time.Duration) {
	fmt.Printf("\n--- Test Results ---\n")
	fmt.Printf("Duration: %v\n", duration.Round(time.Millisecond))
	fmt.Printf("Messages received: %d\n", s.messages)
	fmt.Printf("Bytes received: %d\n", s.bytes)
	fmt.Printf("Edges received: %d\n", s.edges)
	fmt.Printf("Sequence gaps: %d\n", s.gaps)
	if s.invalid > 0 {
		fmt.Printf("Invalid messages: %d\n", s.invalid)
	}
}

func runWsProbe(cmd *cobra.Command, args []string) error {
	if wsURL == "" {
		return fmt.Errorf("--url is required for ws_probe")
	}

	conn, err := dialWebSocket()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("WebSocket Connection Stability Test\n")
	fmt.Printf("Connection: WebSocket: %s\n", wsURL)
	fmt.Printf("Duration: %d seconds\n\n", wsProbeDuration)

	// Start a goroutine to read from the connection
	readChan := make(chan []byte, 100)
	errChan := make(chan error, 1)

	go func() {
		for {
			data, err := conn.ReadMessage()
			if err != nil {
				errChan <- err
				return
			}
			readChan <- data
		}
	}()

	start := time.Now()
	endTime := start.Add(time.Duration(wsProbeDuration) * time.Second)
	stats := &probeStats{}
	heartbeat := time.NewTicker(time.Second)
	defer heartbeat.Stop()

	fmt.Printf("Listening for data...\n\n")

	for time.Now().Before(endTime) {
		select {
		case data := <-readChan:
			fmt.Printf("[%s] %s\n", time.Now().Format("15:04:05.000"), stats.observe(data))

		case err := <-errChan:
			fmt.Printf("\n[%s] Connection error: %v\n",
				time.Now().Format("15:04:05.000"), err)
			stats.print(time.Since(start))
			fmt.Printf("Result: FAILED (connection error)\n")
			os.Exit(1)

		case <-heartbeat.C:
			// Just a heartbeat to show the test is running
			remaining := time.Until(endTime).Seconds()
			fmt.Printf("[%s] Still connected... (%.0fs remaining)\n",
				time.Now().Format("15:04:05.000"), remaining)
		}
	}

	stats.print(time.Since(start))
	fmt.Printf("Result: PASSED (connection stable)\n")

	return nil
}
