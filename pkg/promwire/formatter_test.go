// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 promgate contributors

package promwire

import "testing"

func TestFormatDumpRow(t *testing.T) {
	counting := make([]byte, 16)
	for i := range counting {
		counting[i] = byte(i)
	}

	tests := []struct {
		name   string
		offset uint32
		data   []byte
		want   string
	}{
		{
			name:   "full row of non-printables",
			offset: 0,
			data:   counting,
			want:   "00000000:  00 01 02 03 04 05 06 07 08 09 0a 0b 0c 0d 0e 0f  ................",
		},
		{
			name:   "printable ascii",
			offset: 0x1000,
			data:   []byte("Hello, promgate!"),
			want:   "00001000:  48 65 6c 6c 6f 2c 20 70 72 6f 6d 67 61 74 65 21  Hello, promgate!",
		},
		{
			name:   "boundary printables",
			offset: 0x20,
			data:   []byte{0x1f, 0x20, 0x7e, 0x7f},
			want:   "00000020:  1f 20 7e 7f                                      . ~.",
		},
		{
			name:   "single byte row",
			offset: 0xfff0,
			data:   []byte{0x5a},
			want:   "0000fff0:  5a                                               Z",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDumpRow(tt.offset, tt.data); got != tt.want {
				t.Errorf("FormatDumpRow:\n got %q\nwant %q", got, tt.want)
			}
		})
	}
}
