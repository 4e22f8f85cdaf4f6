// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 promgate contributors

package cmd

import "testing"

func TestSpanEnd(t *testing.T) {
	tests := []struct {
		name    string
		start   uint32
		length  uint32
		want    uint32
		wantErr bool
	}{
		{name: "simple", start: 0, length: 256, want: 255},
		{name: "single byte", start: 0x1000, length: 1, want: 0x1000},
		{name: "ends at address space top", start: 0xffffff00, length: 0x100, want: 0xffffffff},
		{name: "full space from zero", start: 0, length: 0xffffffff, want: 0xfffffffe},
		{name: "zero length", length: 0, wantErr: true},
		{name: "wraps past top", start: 0xfffffff0, length: 0x20, wantErr: true},
		{name: "wraps from high start", start: 0xffffffff, length: 2, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end, err := spanEnd(tt.start, tt.length)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("spanEnd(0x%x, %d) = 0x%x, want error", tt.start, tt.length, end)
				}
				return
			}
			if err != nil {
				t.Fatalf("spanEnd(0x%x, %d): %v", tt.start, tt.length, err)
			}
			if end != tt.want {
				t.Errorf("spanEnd(0x%x, %d) = 0x%x, want 0x%x", tt.start, tt.length, end, tt.want)
			}
		})
	}
}
