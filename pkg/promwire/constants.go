// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 promgate contributors

// Package promwire implements the programmer's wire protocol: short ASCII
// command lines with fixed-width hex arguments, some immediately followed by
// raw binary payload in the same stream. The package provides the command
// parser, the hex-dump formatter, the controller-side Session state machine
// and the host-side Client for the same protocol.
package promwire

// Identification and version strings emitted by the i and v commands.
const (
	Ident   = "promgate parallel EEPROM/Flash programmer"
	Version = "promgate 1.0.0"
)

// ReadyMarker is the flow-control line emitted after every completed
// command. The host must not send the next command before seeing it.
const ReadyMarker = "%"

// PageBufferSize is the largest supported device page. A p command longer
// than this still consumes its full payload to keep the link in sync, but
// only this many bytes are committed.
const PageBufferSize = 4096

// MaxLineLen bounds a command line; longer lines are executed as-is at the
// limit, which parses like any other malformed input.
const MaxLineLen = 80

// Command opcodes. Unrecognized opcodes are silently ignored.
const (
	OpIdentify   = 'i' // emit identification string
	OpVersion    = 'v' // emit firmware version string
	OpSetAddress = 'a' // assert bus address (diagnostic)
	OpDump       = 'd' // hex+ASCII dump of a range
	OpFill       = 'f' // fill a range with one byte value
	OpRead       = 'r' // stream a range as raw bytes
	OpPageWrite  = 'p' // collect binary payload, commit as page write
	OpLock       = 'l' // enable software write protection
	OpUnlock     = 'u' // disable software write protection
	OpErase      = 'e' // chip erase
	OpModeEEPROM = 'E' // select EEPROM programming strategy
	OpModeFlash  = 'F' // select Flash programming strategy
)

// Fixed character offsets of the hex argument fields:
//
//	p 00001000 00001fff
//	f 00000000 00007fff ff
const (
	argStartOff = 2
	argEndOff   = 11
	argValueOff = 20
)

// DumpRowLen is the number of bytes rendered per hex-dump row.
const DumpRowLen = 16
