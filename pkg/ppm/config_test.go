// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ppm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Greater(t, cfg.MinSyncWidth, cfg.MaxChannelValue)
	assert.Equal(t, uint64(1)<<32, cfg.WrapModulus)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:    "inverted range",
			modify:  func(c *Config) { c.MinChannelValue, c.MaxChannelValue = 2000, 1000 },
			wantErr: "channel range inverted",
		},
		{
			name:    "sync equals max channel",
			modify:  func(c *Config) { c.MinSyncWidth = c.MaxChannelValue },
			wantErr: "must exceed max channel value",
		},
		{
			name:    "too many minimum channels",
			modify:  func(c *Config) { c.MinChannels = MaxChannels + 1 },
			wantErr: "exceeds capacity",
		},
		{
			name:    "zero modulus",
			modify:  func(c *Config) { c.WrapModulus = 0 },
			wantErr: "wrap modulus",
		},
		{
			name:    "sync wider than counter",
			modify:  func(c *Config) { c.WrapModulus = 2048 },
			wantErr: "does not fit",
		},
		{
			name:   "16-bit counter",
			modify: func(c *Config) { c.WrapModulus = 1 << 16 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWrapModulusForBits(t *testing.T) {
	m, err := WrapModulusForBits(16)
	require.NoError(t, err)
	assert.Equal(t, uint64(65536), m)

	m, err = WrapModulusForBits(32)
	require.NoError(t, err)
	assert.Equal(t, DefaultWrapModulus, m)

	_, err = WrapModulusForBits(0)
	assert.Error(t, err)
	_, err = WrapModulusForBits(33)
	assert.Error(t, err)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "SCANNING", StateScanning.String())
	assert.Equal(t, "SYNCED", StateSynced.String())
	assert.Equal(t, "UNKNOWN", State(7).String())
}
