// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/ppmscope/pkg/ppm"
)

// parseDecoderFlags binds fresh decoder flags and parses args into them
func parseDecoderFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	addDecoderFlags(c.Flags())
	require.NoError(t, c.ParseFlags(args))
	return c
}

func TestDecoderConfig_Defaults(t *testing.T) {
	cfg, err := decoderConfig(parseDecoderFlags(t))
	require.NoError(t, err)
	assert.Equal(t, ppm.DefaultConfig(), cfg)
}

func TestDecoderConfig_FlagsOverrideProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "futaba.toml")
	require.NoError(t, os.WriteFile(path, []byte("min_sync_width = 3000\nmin_channels = 8\nwrap_bits = 16\n"), 0o644))

	cfg, err := decoderConfig(parseDecoderFlags(t, "--config", path, "--min-channels", "6"))
	require.NoError(t, err)
	assert.Equal(t, ppm.Microseconds(3000), cfg.MinSyncWidth, "profile value")
	assert.Equal(t, uint8(6), cfg.MinChannels, "flag beats profile")
	assert.Equal(t, uint64(1<<16), cfg.WrapModulus)
	assert.Equal(t, ppm.DefaultMaxChannelValue, cfg.MaxChannelValue, "default kept")
}

func TestDecoderConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "sync inside channel range", args: []string{"--sync-width", "2000"}},
		{name: "inverted range", args: []string{"--min-channel", "2100", "--max-channel", "900"}},
		{name: "too many channels", args: []string{"--min-channels", "21"}},
		{name: "bad wrap bits", args: []string{"--wrap-bits", "33"}},
		{name: "missing profile", args: []string{"--config", "/nonexistent/profile.toml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decoderConfig(parseDecoderFlags(t, tt.args...))
			assert.Error(t, err)
		})
	}
}

func TestConfigureLogger(t *testing.T) {
	t.Cleanup(func() { _ = configureLogger("info") })

	assert.NoError(t, configureLogger("debug"))
	assert.Error(t, configureLogger("loud"))
}

func TestChannelValues(t *testing.T) {
	cfg := ppm.DefaultConfig()

	values, err := channelValues(cfg, []uint{1000, 1500, 2000})
	require.NoError(t, err)
	assert.Equal(t, []ppm.Microseconds{1000, 1500, 2000}, values)

	// Out-of-range values are allowed so bad streams can be generated
	_, err = channelValues(cfg, []uint{500, 2500})
	assert.NoError(t, err)

	_, err = channelValues(cfg, nil)
	assert.Error(t, err)
	_, err = channelValues(cfg, []uint{0})
	assert.Error(t, err)
}
