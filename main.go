// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// sdsprobe - SDS011 particulate sensor tool
//
// A CLI tool for querying, configuring and monitoring SDS011 laser
// particulate-matter sensors over a serial line or a WebSocket bridge.

package main

import (
	"fmt"
	"os"

	"github.com/Thermoquad/sdsprobe/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cmd.ExitCode(err))
	}
}
