// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 promgate contributors

package promwire

// AddressRange is an inclusive address span parsed from a command line.
type AddressRange struct {
	Start uint32
	End   uint32
}

// Length returns End - Start + 1. Ranges are normalized at construction, so
// the length is always at least 1.
func (r AddressRange) Length() uint32 {
	return r.End - r.Start + 1
}

// Command is one parsed command line. The parser is permissive by design:
// missing or malformed hex fields read as zero and the command executes
// anyway; nothing is ever reported back to the host.
type Command struct {
	Opcode byte
	Start  uint32
	End    uint32
	Value  byte // third field of the f command
}

// Range returns the command's address span with an inverted range clamped:
// an End below Start is raised to Start, never surfaced as an error.
func (c Command) Range() AddressRange {
	end := c.End
	if end < c.Start {
		end = c.Start
	}
	return AddressRange{Start: c.Start, End: end}
}

// ParseCommand parses one command line (without its terminator). The opcode
// is the first byte; the hex fields live at fixed offsets. An empty line
// parses to opcode 0, which no dispatch entry matches.
func ParseCommand(line []byte) Command {
	var cmd Command
	if len(line) == 0 {
		return cmd
	}
	cmd.Opcode = line[0]
	cmd.Start = parseHex32(field(line, argStartOff, 8))
	cmd.End = parseHex32(field(line, argEndOff, 8))
	cmd.Value = byte(parseHex32(field(line, argValueOff, 2)))
	return cmd
}

// field slices up to n bytes at off, tolerating short lines.
func field(line []byte, off, n int) []byte {
	if off >= len(line) {
		return nil
	}
	if off+n > len(line) {
		return line[off:]
	}
	return line[off : off+n]
}

// parseHex32 accumulates hex digits until the first non-digit. No digits at
// all yields zero; there is no error path.
func parseHex32(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		switch {
		case c >= '0' && c <= '9':
			v = v<<4 | uint32(c-'0')
		case c >= 'a' && c <= 'f':
			v = v<<4 | uint32(c-'a'+10)
		case c >= 'A' && c <= 'F':
			v = v<<4 | uint32(c-'A'+10)
		default:
			return v
		}
	}
	return v
}
