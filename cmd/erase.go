// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 promgate contributors

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/promforge/promgate/pkg/promwire"
)

var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Perform a chip erase",
	Long: `Send the chip-erase command. Every cell reads back as 0xFF
afterwards; check the contents with dump if in doubt.`,
	RunE: runErase,
}

func init() {
	rootCmd.AddCommand(eraseCmd)
}

func runErase(cmd *cobra.Command, args []string) error {
	conn, _, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := promwire.NewClient(conn).Erase(); err != nil {
		return err
	}

	fmt.Println("Chip erase complete")
	return nil
}
