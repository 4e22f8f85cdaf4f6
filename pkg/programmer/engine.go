// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 promgate contributors

// Package programmer implements the device programming engine: the two
// electrical programming algorithms (EEPROM page write with data-polling
// completion, Flash byte program via unlock sequences), chip erase, and the
// software write-protection toggles. All of them are built on a membus.Bus.
package programmer

import (
	"fmt"

	"github.com/promforge/promgate/pkg/membus"
)

// Strategy selects which programming algorithm a commit uses.
type Strategy int

const (
	// EEPROM loads a whole page with plain write cycles and waits for one
	// self-timed internal cycle via data polling on the last byte.
	EEPROM Strategy = iota

	// Flash programs one byte per unlock sequence; every byte runs its own
	// internal cycle, ended by a fixed settle delay.
	Flash
)

func (s Strategy) String() string {
	switch s {
	case EEPROM:
		return "EEPROM"
	case Flash:
		return "Flash"
	default:
		return "unknown"
	}
}

// Engine drives one target device through a Bus. The active strategy is
// explicit engine state, set at construction and changed only through
// SetStrategy (the protocol's mode-switch commands).
//
// Engine is not safe for concurrent use; the bus beneath it admits one byte
// operation at a time.
type Engine struct {
	bus      membus.Bus
	cfg      Config
	strategy Strategy
}

// New creates an Engine on the given bus. The default strategy is EEPROM.
func New(bus membus.Bus, opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Engine{bus: bus, cfg: cfg, strategy: cfg.Strategy}
}

// Strategy returns the active programming strategy.
func (e *Engine) Strategy() Strategy { return e.strategy }

// SetStrategy switches the programming strategy for subsequent commits.
func (e *Engine) SetStrategy(s Strategy) {
	if s != e.strategy {
		e.logf("programming strategy set to %s", s)
	}
	e.strategy = s
}

// Commit programs data at consecutive addresses starting at start, using the
// active strategy. For the EEPROM strategy all bytes must land within one
// device programming window, so data must not exceed the device's page size.
func (e *Engine) Commit(start uint32, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	var err error
	switch e.strategy {
	case EEPROM:
		err = e.commitEEPROM(start, data)
	case Flash:
		err = e.commitFlash(start, data)
	default:
		err = fmt.Errorf("unknown strategy %d", e.strategy)
	}
	if err != nil {
		return fmt.Errorf("commit %d bytes at 0x%08x: %w", len(data), start, err)
	}
	return nil
}

// commitEEPROM loads the page in address-ascending order and data-polls the
// last byte once; the device self-times the whole page in a single internal
// cycle.
func (e *Engine) commitEEPROM(start uint32, data []byte) error {
	for i, v := range data {
		e.bus.WriteByte(start+uint32(i), v)
	}
	last := uint32(len(data) - 1)
	return membus.WaitWriteComplete(e.bus, start+last, data[last], e.cfg.PollBudget)
}

// commitFlash programs byte by byte: unlock sequence, data byte, settle.
// Each byte triggers and completes its own internal cycle, so there is no
// page latch to share.
func (e *Engine) commitFlash(start uint32, data []byte) error {
	for i, v := range data {
		e.writeUnlock(membus.CmdProgram)
		e.bus.WriteByte(start+uint32(i), v)
		e.cfg.sleep(e.cfg.ByteSettle)
	}
	return nil
}

// WriteOne programs a single byte with the active strategy and waits for it
// to complete. Used by the fill operation.
func (e *Engine) WriteOne(addr uint32, value byte) error {
	switch e.strategy {
	case Flash:
		e.writeUnlock(membus.CmdProgram)
		e.bus.WriteByte(addr, value)
		e.cfg.sleep(e.cfg.ByteSettle)
		return nil
	default:
		e.bus.WriteByte(addr, value)
		return membus.WaitWriteComplete(e.bus, addr, value, e.cfg.PollBudget)
	}
}

// Erase performs the six-step chip-erase sequence and waits the erase settle
// time. It applies to both chip families.
func (e *Engine) Erase() error {
	e.logf("chip erase")
	e.writeUnlock(membus.CmdEraseSetup)
	e.writeSequencePrefix()
	e.bus.WriteByte(membus.UnlockAddr1, membus.CmdEraseChip)
	e.cfg.sleep(e.cfg.EraseSettle)
	return nil
}

// SetWriteProtection enables (three-step sequence) or disables (six-step
// sequence) the device's software data protection. Both directions are
// idempotent: re-sending a sequence leaves the state unchanged.
func (e *Engine) SetWriteProtection(enable bool) error {
	if enable {
		e.logf("write protection enabled")
		e.writeUnlock(membus.CmdProgram)
	} else {
		e.logf("write protection disabled")
		e.writeUnlock(membus.CmdEraseSetup)
		e.writeSequencePrefix()
		e.bus.WriteByte(membus.UnlockAddr1, membus.CmdUnprotect)
	}
	e.cfg.sleep(e.cfg.ProtectSettle)
	return nil
}

// writeUnlock emits the two-step sequence prefix followed by cmd at the
// first unlock address.
func (e *Engine) writeUnlock(cmd byte) {
	e.writeSequencePrefix()
	e.bus.WriteByte(membus.UnlockAddr1, cmd)
}

func (e *Engine) writeSequencePrefix() {
	e.bus.WriteByte(membus.UnlockAddr1, membus.SeqByte1)
	e.bus.WriteByte(membus.UnlockAddr2, membus.SeqByte2)
}

func (e *Engine) logf(format string, args ...interface{}) {
	if e.cfg.Logger != nil {
		e.cfg.Logger.Debugf(format, args...)
	}
}
