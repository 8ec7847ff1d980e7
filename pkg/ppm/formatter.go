// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ppm

import (
	"fmt"
	"strings"
	"time"
)

// FormatFrame formats a frame into a human-readable string
func FormatFrame(ts time.Time, f Frame) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] FRAME ch=%d\n", ts.Format("15:04:05.000"), f.Len())
	b.WriteString(FormatChannels(f))
	return b.String()
}

// FormatChannels lists channel values, eight per line
func FormatChannels(f Frame) string {
	if f.Len() == 0 {
		return "  (no channels)\n"
	}

	var b strings.Builder
	for i := 0; i < f.Len(); i++ {
		if i%8 == 0 {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(" ")
		}
		v, _ := f.Channel(i)
		fmt.Fprintf(&b, " %2d:%4dµs", i+1, v)
	}
	b.WriteString("\n")
	return b.String()
}

// ChannelPercent maps a channel value onto 0.0-1.0 across the configured
// channel range, clamping values outside it
func ChannelPercent(cfg Config, v Microseconds) float64 {
	if cfg.MaxChannelValue <= cfg.MinChannelValue {
		return 0
	}
	if v <= cfg.MinChannelValue {
		return 0
	}
	if v >= cfg.MaxChannelValue {
		return 1
	}
	return float64(v-cfg.MinChannelValue) / float64(cfg.MaxChannelValue-cfg.MinChannelValue)
}
