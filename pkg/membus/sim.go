// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 promgate contributors

package membus

// ChipKind selects which device family SimChip behaves as.
type ChipKind int

const (
	// KindEEPROM models a parallel EEPROM with software data protection:
	// ordinary write cycles land directly unless protection is enabled, and
	// the three-step 0xA0 sequence enables protection.
	KindEEPROM ChipKind = iota

	// KindFlash models a byte-program Flash: ordinary write cycles are
	// ignored, and the three-step 0xA0 sequence arms exactly one byte
	// program.
	KindFlash
)

func (k ChipKind) String() string {
	switch k {
	case KindEEPROM:
		return "EEPROM"
	case KindFlash:
		return "Flash"
	default:
		return "unknown"
	}
}

// Command-recognizer states, advanced by write cycles at the unlock
// addresses.
const (
	seqIdle    = iota
	seqGotAA   // 0xAA @ 0x5555
	seqGot55   // + 0x55 @ 0x2AAA
	seqErase   // + 0x80 @ 0x5555
	seqEraseAA // + 0xAA @ 0x5555
	seqErase55 // + 0x55 @ 0x2AAA
)

// SimChip is a behavioral model of the target device: a byte array behind
// the same bus cycles real hardware sees. It decodes the unlock sequences,
// keeps software-protection state, and emulates data polling (reads of the
// just-written address return the complement until the simulated programming
// cycle has been polled through).
//
// SimChip implements Bus directly so the programming engine and the protocol
// session run against it unchanged.
type SimChip struct {
	mem  []byte
	kind ChipKind

	// PollCycles is how many reads of the just-written address return the
	// complement before the true value appears. Zero makes writes complete
	// instantly.
	PollCycles int

	protected bool
	seq       int
	armed     bool // one byte program armed (Flash)

	pollAddr  uint32
	pollValue byte
	pollLeft  int

	curAddr uint32

	// Cycle counters for tests and diagnostics.
	writeCycles int
	readCycles  int
	programArms int
	eraseCycles int
}

// NewSim creates a simulated chip of the given size, erased. Sizes of at
// least 32 KiB decode the full unlock addresses; smaller chips alias them
// through the address mask like real narrow-bus parts.
func NewSim(size int, kind ChipKind) *SimChip {
	s := &SimChip{
		mem:        make([]byte, size),
		kind:       kind,
		PollCycles: 2,
	}
	for i := range s.mem {
		s.mem[i] = ErasedValue
	}
	return s
}

// Kind returns the modeled device family.
func (s *SimChip) Kind() ChipKind { return s.kind }

// Size returns the array size in bytes.
func (s *SimChip) Size() int { return len(s.mem) }

// Protected reports the software-protection state.
func (s *SimChip) Protected() bool { return s.protected }

// SetProtected forces the protection state, bypassing the unlock sequences.
func (s *SimChip) SetProtected(p bool) { s.protected = p }

// ProgramArms returns how many completed three-step program sequences the
// chip has decoded.
func (s *SimChip) ProgramArms() int { return s.programArms }

// EraseCycles returns how many chip erases the chip has performed.
func (s *SimChip) EraseCycles() int { return s.eraseCycles }

// WriteCycles returns the total number of write cycles seen on the bus.
func (s *SimChip) WriteCycles() int { return s.writeCycles }

// ReadCycles returns the total number of read cycles seen on the bus.
func (s *SimChip) ReadCycles() int { return s.readCycles }

// Peek reads a cell directly, bypassing the bus and data polling.
func (s *SimChip) Peek(addr uint32) byte { return s.mem[s.index(addr)] }

// Poke writes a cell directly, bypassing the bus, protection and commands.
func (s *SimChip) Poke(addr uint32, value byte) { s.mem[s.index(addr)] = value }

func (s *SimChip) index(addr uint32) uint32 {
	return addr % uint32(len(s.mem))
}

// SetAddress records the asserted address; the array itself is addressed per
// cycle, so this only mirrors the diagnostic bus state.
func (s *SimChip) SetAddress(addr uint32) { s.curAddr = addr }

// ReadByte performs one read cycle. While a programming cycle is pending at
// the read address, the complement of the written value is returned and the
// pending cycle advances by one poll.
func (s *SimChip) ReadByte(addr uint32) byte {
	s.readCycles++
	s.curAddr = addr
	if s.pollLeft > 0 && s.index(addr) == s.index(s.pollAddr) {
		s.pollLeft--
		return ^s.pollValue
	}
	return s.mem[s.index(addr)]
}

// WriteByte performs one write cycle: first through the command recognizer,
// then, if the byte is not part of a command sequence, as an ordinary data
// write subject to the family's programming rules.
func (s *SimChip) WriteByte(addr uint32, value byte) {
	s.writeCycles++
	s.curAddr = addr

	if s.armed {
		// Byte program armed by a preceding unlock sequence.
		s.armed = false
		s.program(addr, value)
		return
	}

	if s.recognize(addr, value) {
		return
	}

	// Ordinary data write.
	switch s.kind {
	case KindEEPROM:
		if s.protected {
			return // rejected silently, no programming cycle starts
		}
		s.program(addr, value)
	case KindFlash:
		// Unprogrammed writes are ignored entirely.
	}
}

// program stores a byte and starts the simulated internal cycle.
func (s *SimChip) program(addr uint32, value byte) {
	s.mem[s.index(addr)] = value
	s.pollAddr = addr
	s.pollValue = value
	s.pollLeft = s.PollCycles
}

// recognize advances the unlock-sequence state machine. It returns true when
// the write was consumed as part of a command sequence.
func (s *SimChip) recognize(addr uint32, value byte) bool {
	at1 := s.index(addr) == s.index(UnlockAddr1)
	at2 := s.index(addr) == s.index(UnlockAddr2)

	switch s.seq {
	case seqIdle:
		if at1 && value == SeqByte1 {
			s.seq = seqGotAA
			return true
		}
	case seqGotAA:
		if at2 && value == SeqByte2 {
			s.seq = seqGot55
			return true
		}
	case seqGot55:
		if at1 {
			switch value {
			case CmdProgram:
				s.seq = seqIdle
				s.programArms++
				switch s.kind {
				case KindFlash:
					s.armed = true
				case KindEEPROM:
					s.protected = true
				}
				return true
			case CmdEraseSetup:
				s.seq = seqErase
				return true
			}
		}
	case seqErase:
		if at1 && value == SeqByte1 {
			s.seq = seqEraseAA
			return true
		}
	case seqEraseAA:
		if at2 && value == SeqByte2 {
			s.seq = seqErase55
			return true
		}
	case seqErase55:
		if at1 {
			switch value {
			case CmdEraseChip:
				s.seq = seqIdle
				s.erase()
				return true
			case CmdUnprotect:
				s.seq = seqIdle
				s.protected = false
				return true
			}
		}
	}

	// Not a sequence byte: drop back to idle. The aborted prefix is lost,
	// like on real silicon.
	s.seq = seqIdle
	return false
}

// erase fills the array with the erased value and drops pending polling.
func (s *SimChip) erase() {
	for i := range s.mem {
		s.mem[i] = ErasedValue
	}
	s.pollLeft = 0
	s.eraseCycles++
}
