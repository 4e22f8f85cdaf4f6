// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 promgate contributors

package promwire

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/promforge/promgate/pkg/membus"
	"github.com/promforge/promgate/pkg/programmer"
)

// duplex glues two pipe halves into one io.ReadWriter.
type duplex struct {
	io.Reader
	io.Writer
}

// newLoopback starts a session over in-memory pipes and returns a client
// talking to it. close tears the link down and waits for the session.
func newLoopback(t *testing.T, sim *membus.SimChip) (*Client, func()) {
	t.Helper()

	sessionIn, clientOut := io.Pipe()
	clientIn, sessionOut := io.Pipe()

	eng := programmer.New(sim, programmer.WithSleep(func(time.Duration) {}))
	sess := NewSession(sessionIn, sessionOut, sim, eng, nil)

	done := make(chan error, 1)
	go func() {
		done <- sess.Run()
		sessionOut.Close()
	}()

	client := NewClient(duplex{Reader: clientIn, Writer: clientOut})
	return client, func() {
		clientOut.Close()
		if err := <-done; err != nil {
			t.Errorf("session: %v", err)
		}
	}
}

func TestClient_IdentifyAndVersion(t *testing.T) {
	sim := membus.NewSim(32768, membus.KindEEPROM)
	client, closeLink := newLoopback(t, sim)
	defer closeLink()

	ident, err := client.Identify()
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if ident != Ident {
		t.Errorf("Identify = %q, want %q", ident, Ident)
	}

	version, err := client.FirmwareVersion()
	if err != nil {
		t.Fatalf("FirmwareVersion: %v", err)
	}
	if version != Version {
		t.Errorf("FirmwareVersion = %q, want %q", version, Version)
	}
}

func TestClient_UploadReadBack(t *testing.T) {
	sim := membus.NewSim(32768, membus.KindEEPROM)
	client, closeLink := newLoopback(t, sim)
	defer closeLink()

	// 300 bytes from a non-aligned start crosses several 128-byte pages.
	data := make([]byte, 300)
	for i := range data {
		data[i] = byte(i * 7)
	}

	var progressed int64
	err := client.Upload(0x105, data, 128, func(n int64) { progressed = n })
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if progressed != int64(len(data)) {
		t.Errorf("final progress = %d, want %d", progressed, len(data))
	}

	var buf bytes.Buffer
	if err := client.ReadRange(0x105, 0x105+uint32(len(data))-1, &buf, nil); err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), data) {
		t.Fatal("read-back differs from the uploaded image")
	}
}

func TestClient_UploadPageSizeValidation(t *testing.T) {
	sim := membus.NewSim(32768, membus.KindEEPROM)
	client, closeLink := newLoopback(t, sim)
	defer closeLink()

	if err := client.Upload(0, []byte{1}, 0, nil); err == nil {
		t.Error("page size 0 must be rejected")
	}
	if err := client.Upload(0, []byte{1}, 96, nil); err == nil {
		t.Error("non-power-of-two page size must be rejected")
	}
	if err := client.Upload(0, []byte{1}, PageBufferSize*2, nil); err == nil {
		t.Error("page size above the buffer must be rejected")
	}
}

func TestClient_WritePageTooLarge(t *testing.T) {
	sim := membus.NewSim(32768, membus.KindEEPROM)
	client, closeLink := newLoopback(t, sim)
	defer closeLink()

	if err := client.WritePage(0, make([]byte, PageBufferSize+1)); err == nil {
		t.Error("oversized page must be rejected host-side")
	}
}

func TestClient_FillAndErase(t *testing.T) {
	sim := membus.NewSim(32768, membus.KindEEPROM)
	client, closeLink := newLoopback(t, sim)
	defer closeLink()

	if err := client.Fill(0x40, 0x4f, 0xa5); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	for i := uint32(0x40); i <= 0x4f; i++ {
		if got := sim.Peek(i); got != 0xa5 {
			t.Fatalf("cell 0x%02x = 0x%02x, want 0xa5", i, got)
		}
	}

	if err := client.Erase(); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if got := sim.Peek(0x40); got != membus.ErasedValue {
		t.Errorf("cell after erase = 0x%02x, want 0x%02x", got, membus.ErasedValue)
	}
}

func TestClient_LockUnlock(t *testing.T) {
	sim := membus.NewSim(32768, membus.KindEEPROM)
	client, closeLink := newLoopback(t, sim)
	defer closeLink()

	if err := client.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if !sim.Protected() {
		t.Error("device should be protected after Lock")
	}
	if err := client.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if sim.Protected() {
		t.Error("device should be unprotected after Unlock")
	}
}

func TestClient_FlashUpload(t *testing.T) {
	sim := membus.NewSim(32768, membus.KindFlash)
	client, closeLink := newLoopback(t, sim)
	defer closeLink()

	if err := client.SelectFlash(); err != nil {
		t.Fatalf("SelectFlash: %v", err)
	}

	data := []byte{0xCA, 0xFE, 0xBA, 0xBE}
	if err := client.Upload(0x300, data, 128, nil); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	for i, v := range data {
		if got := sim.Peek(0x300 + uint32(i)); got != v {
			t.Fatalf("cell 0x%04x = 0x%02x, want 0x%02x", 0x300+i, got, v)
		}
	}
	if sim.ProgramArms() != len(data) {
		t.Errorf("ProgramArms = %d, want %d", sim.ProgramArms(), len(data))
	}
}
