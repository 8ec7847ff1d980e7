// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// ppmscope - PPM Radio-Control Signal Analyzer
//
// A CLI tool for decoding PPM pulse trains into channel frames and
// analyzing signal errors.

package main

import (
	"os"

	"github.com/Thermoquad/ppmscope/cmd"
)

func main() {
	// Cobra has already printed the error
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
