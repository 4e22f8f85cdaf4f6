// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 promgate contributors

package promwire

import (
	"bufio"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/promforge/promgate/pkg/membus"
	"github.com/promforge/promgate/pkg/programmer"
)

// Session is the controller side of the protocol: a line-oriented,
// binary-aware reader that parses one command at a time, collects raw
// payload bytes when the command carries them, and dispatches to the bus and
// the programming engine.
//
// The session has two states. In the command state it accumulates a line; a
// page-write command switches it to the binary state, where exactly the
// declared number of raw bytes is consumed with no escaping or framing. Any
// payload length mismatch desynchronizes the link; the host contract is to
// send exactly what the command declared.
//
// A Session owns its page buffer and runs single-threaded; the bus admits
// one operation at a time.
type Session struct {
	r   *bufio.Reader
	w   *bufio.Writer
	bus membus.Bus
	eng *programmer.Engine
	log logrus.FieldLogger

	line []byte
	page []byte
}

// NewSession creates a session reading commands from r and writing responses
// to w. The logger may be nil.
func NewSession(r io.Reader, w io.Writer, bus membus.Bus, eng *programmer.Engine, log logrus.FieldLogger) *Session {
	return &Session{
		r:    bufio.NewReader(r),
		w:    bufio.NewWriter(w),
		bus:  bus,
		eng:  eng,
		log:  log,
		line: make([]byte, 0, MaxLineLen),
		page: make([]byte, PageBufferSize),
	}
}

// Run serves commands until the link closes. It returns nil on a clean EOF
// and the underlying error otherwise. Each command ends with the ready
// marker line, the host's cue that the next command may be sent.
func (s *Session) Run() error {
	for {
		line, err := s.readLine()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		cmd := ParseCommand(line)
		if err := s.dispatch(cmd); err != nil {
			return err
		}

		s.w.WriteString(ReadyMarker)
		s.w.WriteByte('\n')
		if err := s.w.Flush(); err != nil {
			return err
		}
	}
}

// readLine accumulates bytes until a line feed or MaxLineLen. The terminator
// and a preceding carriage return are stripped.
func (s *Session) readLine() ([]byte, error) {
	s.line = s.line[:0]
	for len(s.line) < MaxLineLen {
		b, err := s.r.ReadByte()
		if err != nil {
			if err == io.EOF && len(s.line) > 0 {
				// Unterminated trailing line: the link closed mid-command.
				return nil, io.EOF
			}
			return nil, err
		}
		if b == '\n' {
			break
		}
		s.line = append(s.line, b)
	}
	if n := len(s.line); n > 0 && s.line[n-1] == '\r' {
		s.line = s.line[:n-1]
	}
	return s.line, nil
}

// dispatch executes one parsed command. Malformed input was already
// normalized by the parser; unrecognized opcodes fall through with no
// effect and no reply, per the permissive-parse policy.
func (s *Session) dispatch(cmd Command) error {
	switch cmd.Opcode {
	case OpIdentify:
		s.w.WriteString(Ident)
		s.w.WriteByte('\n')

	case OpVersion:
		s.w.WriteString(Version)
		s.w.WriteByte('\n')

	case OpSetAddress:
		s.bus.SetAddress(cmd.Start)

	case OpDump:
		s.dump(cmd.Range())

	case OpFill:
		return s.fill(cmd.Range(), cmd.Value)

	case OpRead:
		s.readRaw(cmd.Range())

	case OpPageWrite:
		return s.pageWrite(cmd.Range())

	case OpLock:
		return s.eng.SetWriteProtection(true)

	case OpUnlock:
		return s.eng.SetWriteProtection(false)

	case OpErase:
		return s.eng.Erase()

	case OpModeEEPROM:
		s.eng.SetStrategy(programmer.EEPROM)

	case OpModeFlash:
		s.eng.SetStrategy(programmer.Flash)
	}
	return nil
}

// dump streams the range as formatted hex+ASCII rows. Rows are bounded by
// the remaining length, not by address comparisons, so a range ending at the
// top of the address space does not wrap past End.
func (s *Session) dump(r AddressRange) {
	row := make([]byte, 0, DumpRowLen)
	addr := r.Start
	for {
		n := uint32(DumpRowLen)
		// remaining wraps to 0 only for the full 4 GiB range.
		if remaining := r.End - addr + 1; remaining != 0 && remaining < n {
			n = remaining
		}
		row = row[:0]
		for i := uint32(0); i < n; i++ {
			row = append(row, s.bus.ReadByte(addr+i))
		}
		s.w.WriteString(FormatDumpRow(addr, row))
		s.w.WriteByte('\n')
		if r.End-addr < DumpRowLen {
			break
		}
		addr += DumpRowLen
	}
}

// readRaw streams the range byte for byte with no framing and no
// terminator; the ready marker that follows is the only delimiter.
func (s *Session) readRaw(r AddressRange) {
	for addr := r.Start; ; addr++ {
		s.w.WriteByte(s.bus.ReadByte(addr))
		if addr == r.End {
			break
		}
	}
}

// fill programs every address in the range with one byte value using the
// active strategy.
func (s *Session) fill(r AddressRange, value byte) error {
	for addr := r.Start; ; addr++ {
		if err := s.eng.WriteOne(addr, value); err != nil {
			return err
		}
		if addr == r.End {
			break
		}
	}
	return nil
}

// pageWrite collects the declared number of raw payload bytes and commits
// them through the engine. An overlong payload is still consumed in full so
// the link stays in sync, but only the buffer's capacity is committed.
func (s *Session) pageWrite(r AddressRange) error {
	length := r.Length()

	kept := length
	if kept > PageBufferSize {
		kept = PageBufferSize
		if s.log != nil {
			s.log.WithFields(logrus.Fields{
				"start":    r.Start,
				"declared": length,
				"kept":     kept,
			}).Warn("page write exceeds buffer, truncating commit")
		}
	}

	if _, err := io.ReadFull(s.r, s.page[:kept]); err != nil {
		return err
	}
	if err := discard(s.r, int64(length-kept)); err != nil {
		return err
	}

	return s.eng.Commit(r.Start, s.page[:kept])
}

// discard consumes and drops n payload bytes.
func discard(r *bufio.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	_, err := io.CopyN(io.Discard, r, n)
	return err
}
