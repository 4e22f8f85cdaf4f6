// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 promgate contributors

// Package membus drives a parallel memory bus: address lines, an 8-bit
// bidirectional data bus, and the chip-enable / output-enable / write-enable
// control strobes of a single EEPROM or Flash device.
//
// The package provides the Bus interface, a GPIO-backed implementation for
// real hardware, and SimChip, a behavioral model of the target device used
// for testing.
package membus

import (
	"fmt"
	"time"
)

// Cycle timing. The values cover the slowest supported parts (150 ns
// access-time EEPROMs); at link speeds the extra margin is free.
const (
	// AddressSetup is the minimum time address lines must be stable before
	// an enable transition.
	AddressSetup = 150 * time.Nanosecond

	// WritePulse is the minimum low time of the write-enable strobe needed
	// to latch address and data.
	WritePulse = 150 * time.Nanosecond

	// OutputValid is the delay between asserting output-enable and the data
	// bus carrying valid device output.
	OutputValid = 150 * time.Nanosecond
)

// Command-register addresses and bytes of the JEDEC-style unlock sequences.
// Both supported chip families decode writes to these addresses as commands
// rather than data.
const (
	UnlockAddr1 = 0x5555
	UnlockAddr2 = 0x2AAA

	SeqByte1 = 0xAA
	SeqByte2 = 0x55

	CmdProgram    = 0xA0 // arm one byte program (Flash) / enable protection (EEPROM)
	CmdEraseSetup = 0x80 // first half of the six-step erase / unprotect sequences
	CmdEraseChip  = 0x10 // final byte of the chip-erase sequence
	CmdUnprotect  = 0x20 // final byte of the protection-disable sequence
)

// ErasedValue is the content of every cell after a chip erase.
const ErasedValue = 0xFF

// Bus performs single byte cycles on the shared parallel bus. There is one
// master and no arbitration: callers must not interleave byte operations.
//
// WriteByte latches the byte into the device but does not wait for the
// internal programming cycle; pair it with WaitWriteComplete when the device
// self-times its writes.
type Bus interface {
	// SetAddress asserts addr on the address lines.
	SetAddress(addr uint32)

	// ReadByte performs one read cycle and leaves the data bus released
	// (device side may drive it again only during the next read).
	ReadByte(addr uint32) byte

	// WriteByte performs one write cycle: drive data, pulse write-enable,
	// release the data bus.
	WriteByte(addr uint32, value byte)
}

// PollBudgetError reports that data polling gave up before the device
// returned the expected byte.
type PollBudgetError struct {
	Addr  uint32
	Want  byte
	Polls int
}

func (e *PollBudgetError) Error() string {
	return fmt.Sprintf("data polling at 0x%08x: no match for 0x%02x after %d reads",
		e.Addr, e.Want, e.Polls)
}

// WaitWriteComplete busy-polls addr until the device returns want, signaling
// the end of its internal programming cycle (data polling: mid-cycle reads
// return the complement of the last written bit pattern).
//
// maxPolls bounds the number of reads; 0 means poll forever, matching the
// hardware contract that a present, functional device always completes.
func WaitWriteComplete(b Bus, addr uint32, want byte, maxPolls int) error {
	for n := 0; ; n++ {
		if b.ReadByte(addr) == want {
			return nil
		}
		if maxPolls > 0 && n+1 >= maxPolls {
			return &PollBudgetError{Addr: addr, Want: want, Polls: maxPolls}
		}
	}
}
