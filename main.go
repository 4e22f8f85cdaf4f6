// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 promgate contributors
//
// Promgate - parallel EEPROM/Flash programmer
//
// Controller core and host tooling for programming parallel memory chips
// over a simple ASCII/binary wire protocol.

package main

import (
	"os"

	"github.com/promforge/promgate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
