// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build !linux

package cmd

import (
	"fmt"

	"github.com/Thermoquad/ppmscope/pkg/ppm"
)

func openGPIOSource(chip string, offset int, edge string, cfg ppm.Config) (EdgeSource, error) {
	return nil, fmt.Errorf("GPIO capture is only supported on Linux")
}
