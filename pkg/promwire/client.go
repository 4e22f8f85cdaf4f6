// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 promgate contributors

package promwire

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Client is the host side of the protocol. It issues command lines, streams
// binary payloads, and honors the flow-control contract: after every command
// it waits for the controller's ready marker before the next one.
type Client struct {
	w  io.Writer
	br *bufio.Reader
}

// NewClient wraps a link to a running controller.
func NewClient(rw io.ReadWriter) *Client {
	return &Client{w: rw, br: bufio.NewReader(rw)}
}

// send writes one command line.
func (c *Client) send(line string) error {
	_, err := io.WriteString(c.w, line+"\n")
	return err
}

// sendRange writes a command line with two address fields.
func (c *Client) sendRange(opcode byte, start, end uint32) error {
	return c.send(fmt.Sprintf("%c %08x %08x", opcode, start, end))
}

// readLine reads one response line, stripping the terminator.
func (c *Client) readLine() (string, error) {
	line, err := c.br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// WaitReady consumes response lines until the ready marker arrives.
func (c *Client) WaitReady() error {
	for {
		line, err := c.readLine()
		if err != nil {
			return err
		}
		if line == ReadyMarker {
			return nil
		}
	}
}

// simple issues a bare opcode and waits for ready.
func (c *Client) simple(opcode byte) error {
	if err := c.send(string(rune(opcode))); err != nil {
		return err
	}
	return c.WaitReady()
}

// stringCommand issues a bare opcode and returns the single response line.
func (c *Client) stringCommand(opcode byte) (string, error) {
	if err := c.send(string(rune(opcode))); err != nil {
		return "", err
	}
	line, err := c.readLine()
	if err != nil {
		return "", err
	}
	return line, c.WaitReady()
}

// Identify returns the controller's identification string.
func (c *Client) Identify() (string, error) {
	return c.stringCommand(OpIdentify)
}

// FirmwareVersion returns the controller's version string.
func (c *Client) FirmwareVersion() (string, error) {
	return c.stringCommand(OpVersion)
}

// ReadRange streams [start,end] into w as raw bytes. progress, if non-nil,
// receives the running byte count.
func (c *Client) ReadRange(start, end uint32, w io.Writer, progress func(n int64)) error {
	if err := c.sendRange(OpRead, start, end); err != nil {
		return err
	}

	total := int64(end-start) + 1
	var done int64
	buf := make([]byte, 4096)
	for done < total {
		n := int64(len(buf))
		if total-done < n {
			n = total - done
		}
		m, err := io.ReadFull(c.br, buf[:n])
		if m > 0 {
			if _, werr := w.Write(buf[:m]); werr != nil {
				return werr
			}
			done += int64(m)
			if progress != nil {
				progress(done)
			}
		}
		if err != nil {
			return err
		}
	}

	return c.WaitReady()
}

// WritePage commits data as one page write at start. The payload must fit
// the controller's page buffer.
func (c *Client) WritePage(start uint32, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if len(data) > PageBufferSize {
		return fmt.Errorf("page payload %d exceeds buffer size %d", len(data), PageBufferSize)
	}
	end := start + uint32(len(data)) - 1
	if err := c.sendRange(OpPageWrite, start, end); err != nil {
		return err
	}
	if _, err := c.w.Write(data); err != nil {
		return err
	}
	return c.WaitReady()
}

// Upload writes data starting at start in page-aligned chunks of at most
// pageSize bytes, the way devices with page latches expect. progress, if
// non-nil, receives the running byte count.
func (c *Client) Upload(start uint32, data []byte, pageSize uint32, progress func(n int64)) error {
	if pageSize == 0 || pageSize > PageBufferSize {
		return fmt.Errorf("page size %d out of range", pageSize)
	}
	if pageSize&(pageSize-1) != 0 {
		return fmt.Errorf("page size %d is not a power of two", pageSize)
	}

	addr := start
	var written int64
	for len(data) > 0 {
		// Bytes left in the current page.
		count := (addr | (pageSize - 1)) - addr + 1
		if count > uint32(len(data)) {
			count = uint32(len(data))
		}
		if err := c.WritePage(addr, data[:count]); err != nil {
			return err
		}
		data = data[count:]
		addr += count
		written += int64(count)
		if progress != nil {
			progress(written)
		}
	}
	return nil
}

// Fill programs [start,end] with a single byte value.
func (c *Client) Fill(start, end uint32, value byte) error {
	if err := c.send(fmt.Sprintf("%c %08x %08x %02x", OpFill, start, end, value)); err != nil {
		return err
	}
	return c.WaitReady()
}

// SetAddress asserts a bus address (diagnostic).
func (c *Client) SetAddress(addr uint32) error {
	if err := c.send(fmt.Sprintf("%c %08x", OpSetAddress, addr)); err != nil {
		return err
	}
	return c.WaitReady()
}

// Erase performs a chip erase.
func (c *Client) Erase() error { return c.simple(OpErase) }

// Lock enables software write protection.
func (c *Client) Lock() error { return c.simple(OpLock) }

// Unlock disables software write protection.
func (c *Client) Unlock() error { return c.simple(OpUnlock) }

// SelectEEPROM switches the controller to the EEPROM strategy.
func (c *Client) SelectEEPROM() error { return c.simple(OpModeEEPROM) }

// SelectFlash switches the controller to the Flash strategy.
func (c *Client) SelectFlash() error { return c.simple(OpModeFlash) }
