// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 promgate contributors

package membus

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// GPIOConfig names the host pins wired to the target device. Pin names are
// resolved through periph's gpioreg, so anything the host registers works
// ("GPIO17", "P1_11", ...).
type GPIOConfig struct {
	// AddressPins, least significant first. Address bits beyond the listed
	// pins are ignored.
	AddressPins []string

	// DataPins, exactly 8, least significant first.
	DataPins []string

	// Control strobes, all active low.
	ChipEnable   string
	OutputEnable string
	WriteEnable  string
}

// GPIOBus implements Bus on directly driven host GPIO pins.
//
// The data pins are kept in input (high impedance) direction except during
// the drive phase of a write cycle, so the controller and the device never
// contend for the bus.
//
// The Bus cycle methods cannot return errors, so the first pin fault is
// latched; check Err after a run to tell garbage reads from a broken pin.
type GPIOBus struct {
	addr []gpio.PinIO
	data []gpio.PinIO
	ce   gpio.PinIO
	oe   gpio.PinIO
	we   gpio.PinIO

	dataOut bool
	err     error
}

// NewGPIO initializes the periph host, resolves all configured pins and
// parks the bus in its idle state: strobes de-asserted, data bus released.
func NewGPIO(cfg GPIOConfig) (*GPIOBus, error) {
	if len(cfg.DataPins) != 8 {
		return nil, fmt.Errorf("need exactly 8 data pins, got %d", len(cfg.DataPins))
	}
	if len(cfg.AddressPins) == 0 {
		return nil, fmt.Errorf("no address pins configured")
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("could not init host: %v", err)
	}

	lookup := func(name string) (gpio.PinIO, error) {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("gpio pin %q not found", name)
		}
		return p, nil
	}

	// Pin direction is unknown at startup; force the first release.
	b := &GPIOBus{dataOut: true}

	for _, name := range cfg.AddressPins {
		p, err := lookup(name)
		if err != nil {
			return nil, err
		}
		b.addr = append(b.addr, p)
	}
	for _, name := range cfg.DataPins {
		p, err := lookup(name)
		if err != nil {
			return nil, err
		}
		b.data = append(b.data, p)
	}

	var err error
	if b.ce, err = lookup(cfg.ChipEnable); err != nil {
		return nil, err
	}
	if b.oe, err = lookup(cfg.OutputEnable); err != nil {
		return nil, err
	}
	if b.we, err = lookup(cfg.WriteEnable); err != nil {
		return nil, err
	}

	// Idle: strobes high, address zero, data released.
	if err := b.we.Out(gpio.High); err != nil {
		return nil, err
	}
	if err := b.oe.Out(gpio.High); err != nil {
		return nil, err
	}
	if err := b.ce.Out(gpio.High); err != nil {
		return nil, err
	}
	b.SetAddress(0)
	if err := b.release(); err != nil {
		return nil, err
	}

	return b, nil
}

// Err returns the first pin fault seen since the bus was opened. Data read
// or written after a fault is not trustworthy.
func (b *GPIOBus) Err() error { return b.err }

// fault latches the first pin error.
func (b *GPIOBus) fault(err error) {
	if err != nil && b.err == nil {
		b.err = err
	}
}

// out asserts a level, latching any pin fault.
func (b *GPIOBus) out(p gpio.PinIO, level gpio.Level) {
	b.fault(p.Out(level))
}

// SetAddress asserts addr on the address pins, least significant bit first.
func (b *GPIOBus) SetAddress(addr uint32) {
	for i, p := range b.addr {
		level := gpio.Low
		if addr&(1<<uint(i)) != 0 {
			level = gpio.High
		}
		b.out(p, level)
	}
}

// ReadByte performs one read cycle per the device's read-cycle contract.
func (b *GPIOBus) ReadByte(addr uint32) byte {
	b.fault(b.release())
	b.SetAddress(addr)
	b.out(b.ce, gpio.Low)
	b.out(b.oe, gpio.Low)

	time.Sleep(OutputValid)

	var value byte
	for i, p := range b.data {
		if p.Read() == gpio.High {
			value |= 1 << uint(i)
		}
	}

	b.out(b.oe, gpio.High)
	b.out(b.ce, gpio.High)
	return value
}

// WriteByte performs one write cycle. The device's internal programming
// cycle starts on the rising write-enable edge; callers that need completion
// use WaitWriteComplete.
func (b *GPIOBus) WriteByte(addr uint32, value byte) {
	b.out(b.oe, gpio.High) // device must not drive while we do
	b.SetAddress(addr)
	b.drive(value)
	b.out(b.ce, gpio.Low)

	time.Sleep(AddressSetup)

	b.out(b.we, gpio.Low)
	time.Sleep(WritePulse)
	b.out(b.we, gpio.High)

	b.out(b.ce, gpio.High)
	b.fault(b.release())
}

// drive switches the data pins to output and asserts value.
func (b *GPIOBus) drive(value byte) {
	for i, p := range b.data {
		level := gpio.Low
		if value&(1<<uint(i)) != 0 {
			level = gpio.High
		}
		b.out(p, level)
	}
	b.dataOut = true
}

// release returns the data pins to input direction. A no-op when the bus is
// already released.
func (b *GPIOBus) release() error {
	if !b.dataOut {
		return nil
	}
	for _, p := range b.data {
		if err := p.In(gpio.Float, gpio.NoEdge); err != nil {
			return err
		}
	}
	b.dataOut = false
	return nil
}
