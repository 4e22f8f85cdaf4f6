// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 promgate contributors

package cmd

import "fmt"

// spanEnd converts a start/length flag pair into an inclusive end address.
// Zero-length spans and spans that leave the 32-bit address space are
// rejected; an end that wrapped below start would otherwise reach the
// controller as an inverted range and read the wrong bytes.
func spanEnd(start, length uint32) (uint32, error) {
	if length == 0 {
		return 0, fmt.Errorf("length must be at least 1")
	}
	end := start + length - 1
	if end < start {
		return 0, fmt.Errorf("range 0x%08x + %d bytes leaves the 32-bit address space",
			start, length)
	}
	return end, nil
}
