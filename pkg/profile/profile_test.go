// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/ppmscope/pkg/ppm"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "futaba.toml", `
name = "futaba-8ch"
min_channel_value = 920
max_channel_value = 2120
min_sync_width = 3000
min_channels = 8
wrap_bits = 16
`)

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "futaba-8ch", p.Name)

	cfg, err := p.Config()
	require.NoError(t, err)
	assert.Equal(t, ppm.Config{
		MinChannelValue: 920,
		MaxChannelValue: 2120,
		MinSyncWidth:    3000,
		MinChannels:     8,
		WrapModulus:     1 << 16,
	}, cfg)
}

func TestLoad_YAMLPartial(t *testing.T) {
	path := writeFile(t, "wide.yaml", "min_sync_width: 4000\nmin_channels: 4\n")

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "wide", p.Name, "name defaults to the file name")

	cfg, err := p.Config()
	require.NoError(t, err)
	assert.Equal(t, ppm.Microseconds(4000), cfg.MinSyncWidth)
	assert.Equal(t, uint8(4), cfg.MinChannels)
	assert.Equal(t, ppm.DefaultMinChannelValue, cfg.MinChannelValue)
	assert.Equal(t, ppm.DefaultWrapModulus, cfg.WrapModulus)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "unknown extension", file: "p.json", content: "{}"},
		{name: "unknown toml key", file: "p.toml", content: "sync = 3000\n"},
		{name: "unknown yaml key", file: "p.yml", content: "sync: 3000\n"},
		{name: "bad toml", file: "p.toml", content: "min_sync_width = \n"},
		{name: "sync not above channels", file: "p.toml", content: "max_channel_value = 2500\nmin_sync_width = 2400\n"},
		{name: "bad counter width", file: "p.yaml", content: "wrap_bits: 40\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApply_KeepsUnsetFields(t *testing.T) {
	cfg := ppm.DefaultConfig()
	require.NoError(t, Profile{MinChannels: 6}.Apply(&cfg))

	want := ppm.DefaultConfig()
	want.MinChannels = 6
	assert.Equal(t, want, cfg)
}

func TestLoad_ZeroKeepsDefault(t *testing.T) {
	path := writeFile(t, "zero.yaml", "min_channel_value: 0\nmax_channel_value: 2100\n")

	p, err := Load(path)
	require.NoError(t, err)

	cfg, err := p.Config()
	require.NoError(t, err)
	assert.Equal(t, ppm.DefaultMinChannelValue, cfg.MinChannelValue, "zero means unset")
	assert.Equal(t, ppm.Microseconds(2100), cfg.MaxChannelValue)
}
