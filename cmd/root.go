// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Thermoquad/ppmscope/pkg/ppm"
	"github.com/Thermoquad/ppmscope/pkg/profile"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Capture file flag
	capturePath string

	// GPIO flags
	gpioChip string
	gpioLine int
	gpioEdge string

	// Decoder threshold flags
	profilePath string
	minChannel  uint32
	maxChannel  uint32
	syncWidth   uint32
	minChannels uint8
	wrapBits    uint

	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "ppmscope",
	Short: "PPM Radio-Control Signal Analyzer",
	Long: `ppmscope - A CLI tool for decoding and analyzing PPM radio-control signals.

Edge timestamps are captured from a GPIO line, a capture bridge on a serial
port, a WebSocket relay or a recorded capture file, and decoded into frames
of channel values.

Edge sources:
  GPIO:      --gpio-chip gpiochip0 --gpio-line 17 [--gpio-edge rising]
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]
  File:      --file capture.cbor

Decoder thresholds come from the built-in defaults, optionally overlaid by a
profile (--config profile.toml or .yaml) and then by individual flags.

For WebSocket authentication, the password is read from the PPMSCOPE_PASSWORD
environment variable, or prompted interactively if not set.`,
	Version: "1.0.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return configureLogger(logLevel)
	},
	SilenceUsage: true,
}

func init() {
	fs := rootCmd.PersistentFlags()
	addSourceFlags(fs)
	addDecoderFlags(fs)
	fs.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func addSourceFlags(fs *pflag.FlagSet) {
	// Serial connection flags
	fs.StringVarP(&portName, "port", "p", "", "Serial port of a capture bridge")
	fs.IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	fs.StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	fs.StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	fs.BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	fs.StringVarP(&capturePath, "file", "f", "", "Replay a recorded capture file")

	// GPIO flags
	fs.StringVar(&gpioChip, "gpio-chip", "", "GPIO chip name (e.g., gpiochip0)")
	fs.IntVar(&gpioLine, "gpio-line", -1, "GPIO line offset carrying the PPM signal")
	fs.StringVar(&gpioEdge, "gpio-edge", "rising", "Edge marking a pulse (rising or falling)")
}

func addDecoderFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&profilePath, "config", "c", "", "Threshold profile (.toml or .yaml)")
	fs.Uint32Var(&minChannel, "min-channel", ppm.DefaultMinChannelValue, "Minimum channel value (µs)")
	fs.Uint32Var(&maxChannel, "max-channel", ppm.DefaultMaxChannelValue, "Maximum channel value (µs)")
	fs.Uint32Var(&syncWidth, "sync-width", ppm.DefaultMinSyncWidth, "Minimum frame sync gap (µs)")
	fs.Uint8Var(&minChannels, "min-channels", ppm.DefaultMinChannels, "Minimum channels per valid frame")
	fs.UintVar(&wrapBits, "wrap-bits", 32, "Width of the capture timer in bits")
}

// decoderConfig builds the parser configuration from defaults, the
// profile file and any threshold flags given on the command line
func decoderConfig(cmd *cobra.Command) (ppm.Config, error) {
	cfg := ppm.DefaultConfig()

	if profilePath != "" {
		p, err := profile.Load(profilePath)
		if err != nil {
			return cfg, err
		}
		if err := p.Apply(&cfg); err != nil {
			return cfg, fmt.Errorf("profile %s: %w", p.Name, err)
		}
		logger.Debug("loaded profile", "name", p.Name, "path", profilePath)
	}

	flags := cmd.Flags()
	if flags.Changed("min-channel") {
		cfg.MinChannelValue = minChannel
	}
	if flags.Changed("max-channel") {
		cfg.MaxChannelValue = maxChannel
	}
	if flags.Changed("sync-width") {
		cfg.MinSyncWidth = syncWidth
	}
	if flags.Changed("min-channels") {
		cfg.MinChannels = minChannels
	}
	if flags.Changed("wrap-bits") {
		m, err := ppm.WrapModulusForBits(wrapBits)
		if err != nil {
			return cfg, err
		}
		cfg.WrapModulus = m
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid decoder thresholds: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
