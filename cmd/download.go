// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 promgate contributors

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/promforge/promgate/pkg/promwire"
)

var (
	downloadStart  uint32
	downloadLength uint32
)

var downloadCmd = &cobra.Command{
	Use:   "download <file>",
	Short: "Read device content into a binary file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDownload,
}

func init() {
	downloadCmd.Flags().Uint32Var(&downloadStart, "start", 0, "Start address")
	downloadCmd.Flags().Uint32Var(&downloadLength, "length", 32768, "Number of bytes")
	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	end, err := spanEnd(downloadStart, downloadLength)
	if err != nil {
		return err
	}

	conn, _, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	client := promwire.NewClient(conn)

	total := int64(downloadLength)
	err = client.ReadRange(downloadStart, end, f, func(n int64) {
		fmt.Printf("\rReading... %d%%", n*100/total)
	})
	fmt.Println()
	if err != nil {
		return err
	}

	fmt.Printf("%d bytes written to %s\n", downloadLength, args[0])
	return nil
}
