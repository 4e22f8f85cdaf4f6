// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 promgate contributors

package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/promforge/promgate/pkg/promwire"
)

var (
	dumpStart  uint32
	dumpLength uint32
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Show device content as a hex+ASCII dump",
	Long: `Read a span of the device over the raw-read command and render it
locally in the same row format the controller's d command uses.`,
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().Uint32Var(&dumpStart, "start", 0, "Start address")
	dumpCmd.Flags().Uint32Var(&dumpLength, "length", 256, "Number of bytes")
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	end, err := spanEnd(dumpStart, dumpLength)
	if err != nil {
		return err
	}

	conn, _, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	client := promwire.NewClient(conn)

	var buf bytes.Buffer
	if err := client.ReadRange(dumpStart, end, &buf, nil); err != nil {
		return err
	}

	data := buf.Bytes()
	for off := 0; off < len(data); off += promwire.DumpRowLen {
		row := data[off:]
		if len(row) > promwire.DumpRowLen {
			row = row[:promwire.DumpRowLen]
		}
		fmt.Println(promwire.FormatDumpRow(dumpStart+uint32(off), row))
	}
	return nil
}
