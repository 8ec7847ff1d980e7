// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/ppmscope/pkg/capture"
)

func TestProbeStats_Observe(t *testing.T) {
	s := &probeStats{}
	for _, seq := range []uint32{4, 5, 8} {
		data, err := capture.Marshal(capture.Batch{Seq: seq, Edges: []uint32{1, 2, 3}})
		require.NoError(t, err)
		line := s.observe(data)
		if seq == 8 {
			assert.Contains(t, line, "GAP: expected seq 6")
		} else {
			assert.NotContains(t, line, "GAP")
		}
	}

	assert.Contains(t, s.observe([]byte{0xff, 0x00}), "not a capture batch")

	assert.Equal(t, 4, s.messages)
	assert.Equal(t, 9, s.edges)
	assert.Equal(t, 1, s.gaps)
	assert.Equal(t, 1, s.invalid)
}
