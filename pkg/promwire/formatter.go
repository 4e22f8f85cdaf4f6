// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 promgate contributors

package promwire

import (
	"fmt"
	"strings"
)

// FormatDumpRow renders one hex-dump row: an 8-hex-digit offset, a colon and
// two spaces, the hex byte pairs, and a 16-character ASCII column with
// non-printable bytes shown as '.'.
//
//	00000000:  00 01 02 03 04 05 06 07 08 09 0a 0b 0c 0d 0e 0f  ................
//
// data holds at most DumpRowLen bytes; a short final row leaves the unused
// hex columns blank.
func FormatDumpRow(offset uint32, data []byte) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%08x: ", offset)

	for i := 0; i < DumpRowLen; i++ {
		if i < len(data) {
			fmt.Fprintf(&sb, " %02x", data[i])
		} else {
			sb.WriteString("   ")
		}
	}

	sb.WriteString("  ")
	for _, b := range data {
		sb.WriteByte(printable(b))
	}

	return sb.String()
}

// printable maps a byte to its ASCII rendering for the dump column.
func printable(b byte) byte {
	if b > 31 && b < 127 {
		return b
	}
	return '.'
}
