// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package profile loads PPM decoder threshold profiles from TOML or YAML
// files.
//
// Example (TOML):
//
//	name = "futaba-8ch"
//	min_channel_value = 920
//	max_channel_value = 2120
//	min_sync_width = 3000
//	min_channels = 8
//	wrap_bits = 16
package profile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/ppmscope/pkg/ppm"
)

// Profile is a named set of decoder thresholds.
//
// A zero or missing field keeps the ppm package default, so a profile
// cannot set a threshold to zero. min_channel_value = 0 in particular
// leaves the default in place; use the --min-channel flag to accept
// arbitrarily short channel pulses.
type Profile struct {
	Name            string `toml:"name" yaml:"name"`
	MinChannelValue uint32 `toml:"min_channel_value" yaml:"min_channel_value"`
	MaxChannelValue uint32 `toml:"max_channel_value" yaml:"max_channel_value"`
	MinSyncWidth    uint32 `toml:"min_sync_width" yaml:"min_sync_width"`
	MinChannels     uint8  `toml:"min_channels" yaml:"min_channels"`
	WrapBits        uint   `toml:"wrap_bits" yaml:"wrap_bits"`
}

// Load reads a profile, picking the format from the file extension
func Load(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("profile load failed (%s): %w", path, err)
	}

	var p Profile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		meta, err := toml.Decode(string(data), &p)
		if err != nil {
			return Profile{}, fmt.Errorf("profile parse failed (%s): %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Profile{}, fmt.Errorf("profile %s: unknown key %q", path, undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return Profile{}, fmt.Errorf("profile parse failed (%s): %w", path, err)
		}
	default:
		return Profile{}, fmt.Errorf("unsupported profile format %q (use .toml or .yaml)", ext)
	}

	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if _, err := p.Config(); err != nil {
		return Profile{}, fmt.Errorf("profile %s invalid: %w", p.Name, err)
	}
	return p, nil
}

// Apply overlays the non-zero profile fields on cfg. Zero fields leave
// cfg untouched.
func (p Profile) Apply(cfg *ppm.Config) error {
	if p.MinChannelValue != 0 {
		cfg.MinChannelValue = p.MinChannelValue
	}
	if p.MaxChannelValue != 0 {
		cfg.MaxChannelValue = p.MaxChannelValue
	}
	if p.MinSyncWidth != 0 {
		cfg.MinSyncWidth = p.MinSyncWidth
	}
	if p.MinChannels != 0 {
		cfg.MinChannels = p.MinChannels
	}
	if p.WrapBits != 0 {
		m, err := ppm.WrapModulusForBits(p.WrapBits)
		if err != nil {
			return err
		}
		cfg.WrapModulus = m
	}
	return nil
}

// Config returns the validated decoder configuration for this profile
func (p Profile) Config() (ppm.Config, error) {
	cfg := ppm.DefaultConfig()
	if err := p.Apply(&cfg); err != nil {
		return ppm.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return ppm.Config{}, err
	}
	return cfg, nil
}
