// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 promgate contributors

package membus

import (
	"errors"
	"testing"
)

// unlock emits the three-step program/protect sequence on the bus.
func unlock(b Bus) {
	b.WriteByte(UnlockAddr1, SeqByte1)
	b.WriteByte(UnlockAddr2, SeqByte2)
	b.WriteByte(UnlockAddr1, CmdProgram)
}

// eraseSequence emits the six-step chip-erase sequence on the bus.
func eraseSequence(b Bus) {
	b.WriteByte(UnlockAddr1, SeqByte1)
	b.WriteByte(UnlockAddr2, SeqByte2)
	b.WriteByte(UnlockAddr1, CmdEraseSetup)
	b.WriteByte(UnlockAddr1, SeqByte1)
	b.WriteByte(UnlockAddr2, SeqByte2)
	b.WriteByte(UnlockAddr1, CmdEraseChip)
}

// ============================================================
// Write / read round trips
// ============================================================

func TestSim_WriteReadRoundTrip(t *testing.T) {
	sim := NewSim(32768, KindEEPROM)

	sim.WriteByte(0x1234, 0x5A)
	if err := WaitWriteComplete(sim, 0x1234, 0x5A, 10); err != nil {
		t.Fatalf("WaitWriteComplete: %v", err)
	}
	if got := sim.ReadByte(0x1234); got != 0x5A {
		t.Errorf("ReadByte = 0x%02x, want 0x5A", got)
	}
}

func TestSim_DataPollingComplement(t *testing.T) {
	sim := NewSim(32768, KindEEPROM)
	sim.PollCycles = 3

	sim.WriteByte(0x10, 0x42)

	// Mid-cycle reads return the complement, then the true value appears.
	for i := 0; i < 3; i++ {
		if got := sim.ReadByte(0x10); got != ^byte(0x42) {
			t.Fatalf("poll %d = 0x%02x, want complement 0x%02x", i, got, ^byte(0x42))
		}
	}
	if got := sim.ReadByte(0x10); got != 0x42 {
		t.Errorf("final read = 0x%02x, want 0x42", got)
	}
}

func TestSim_PollingOtherAddressUnaffected(t *testing.T) {
	sim := NewSim(32768, KindEEPROM)
	sim.Poke(0x20, 0x77)

	sim.WriteByte(0x10, 0x42)

	if got := sim.ReadByte(0x20); got != 0x77 {
		t.Errorf("read of other address during cycle = 0x%02x, want 0x77", got)
	}
}

func TestWaitWriteComplete_BudgetExhausted(t *testing.T) {
	sim := NewSim(32768, KindEEPROM)
	sim.SetProtected(true)

	// Rejected write starts no programming cycle; polling never matches.
	sim.WriteByte(0x10, 0x42)
	err := WaitWriteComplete(sim, 0x10, 0x42, 5)
	if err == nil {
		t.Fatal("expected poll budget error")
	}

	var pollErr *PollBudgetError
	if !errors.As(err, &pollErr) {
		t.Fatalf("error type = %T, want *PollBudgetError", err)
	}
	if pollErr.Polls != 5 {
		t.Errorf("Polls = %d, want 5", pollErr.Polls)
	}
}

func TestWaitWriteComplete_UnboundedEventuallyMatches(t *testing.T) {
	sim := NewSim(32768, KindEEPROM)
	sim.PollCycles = 7

	sim.WriteByte(0x30, 0x99)
	if err := WaitWriteComplete(sim, 0x30, 0x99, 0); err != nil {
		t.Fatalf("unbounded wait: %v", err)
	}
}

// ============================================================
// Protection and command sequences
// ============================================================

func TestSim_EEPROMProtection(t *testing.T) {
	sim := NewSim(32768, KindEEPROM)
	sim.Poke(0x100, 0x11)

	unlock(sim) // enables software data protection
	if !sim.Protected() {
		t.Fatal("protection should be enabled after the three-step sequence")
	}

	sim.WriteByte(0x100, 0x22)
	if got := sim.Peek(0x100); got != 0x11 {
		t.Errorf("protected write changed cell: 0x%02x, want 0x11", got)
	}
}

func TestSim_UnprotectSequence(t *testing.T) {
	sim := NewSim(32768, KindEEPROM)
	sim.SetProtected(true)

	sim.WriteByte(UnlockAddr1, SeqByte1)
	sim.WriteByte(UnlockAddr2, SeqByte2)
	sim.WriteByte(UnlockAddr1, CmdEraseSetup)
	sim.WriteByte(UnlockAddr1, SeqByte1)
	sim.WriteByte(UnlockAddr2, SeqByte2)
	sim.WriteByte(UnlockAddr1, CmdUnprotect)

	if sim.Protected() {
		t.Fatal("protection should be disabled after the six-step sequence")
	}

	sim.WriteByte(0x100, 0x22)
	if got := sim.Peek(0x100); got != 0x22 {
		t.Errorf("write after unprotect = 0x%02x, want 0x22", got)
	}
}

func TestSim_FlashIgnoresPlainWrites(t *testing.T) {
	sim := NewSim(32768, KindFlash)

	sim.WriteByte(0x200, 0x33)
	if got := sim.Peek(0x200); got != ErasedValue {
		t.Errorf("plain write on flash landed: 0x%02x, want 0x%02x", got, ErasedValue)
	}
}

func TestSim_FlashProgramSequence(t *testing.T) {
	sim := NewSim(32768, KindFlash)

	unlock(sim)
	sim.WriteByte(0x200, 0x33)

	if got := sim.Peek(0x200); got != 0x33 {
		t.Errorf("programmed byte = 0x%02x, want 0x33", got)
	}
	if sim.ProgramArms() != 1 {
		t.Errorf("ProgramArms = %d, want 1", sim.ProgramArms())
	}

	// The arm is good for exactly one byte.
	sim.WriteByte(0x201, 0x44)
	if got := sim.Peek(0x201); got != ErasedValue {
		t.Errorf("second write without unlock landed: 0x%02x", got)
	}
}

func TestSim_ChipErase(t *testing.T) {
	for _, kind := range []ChipKind{KindEEPROM, KindFlash} {
		t.Run(kind.String(), func(t *testing.T) {
			sim := NewSim(4096, kind)
			for i := uint32(0); i < 4096; i++ {
				sim.Poke(i, byte(i))
			}

			eraseSequence(sim)

			for i := uint32(0); i < 4096; i++ {
				if sim.Peek(i) != ErasedValue {
					t.Fatalf("cell 0x%04x = 0x%02x after erase, want 0x%02x",
						i, sim.Peek(i), ErasedValue)
				}
			}
			if sim.EraseCycles() != 1 {
				t.Errorf("EraseCycles = %d, want 1", sim.EraseCycles())
			}
		})
	}
}

func TestSim_AbortedSequenceIsDropped(t *testing.T) {
	sim := NewSim(32768, KindEEPROM)

	// Break off after two steps with an ordinary write elsewhere.
	sim.WriteByte(UnlockAddr1, SeqByte1)
	sim.WriteByte(UnlockAddr2, SeqByte2)
	sim.WriteByte(0x40, 0x12)

	if sim.Protected() {
		t.Error("aborted sequence must not change protection")
	}
	if got := sim.Peek(0x40); got != 0x12 {
		t.Errorf("ordinary write after aborted sequence = 0x%02x, want 0x12", got)
	}
}

// ============================================================
// Address masking
// ============================================================

func TestSim_SmallChipAliasesAddresses(t *testing.T) {
	sim := NewSim(4096, KindEEPROM)

	sim.WriteByte(0x1000, 0x5A) // aliases to 0x000 on a 4 KiB part
	if got := sim.Peek(0); got != 0x5A {
		t.Errorf("aliased write: cell 0 = 0x%02x, want 0x5A", got)
	}
}
