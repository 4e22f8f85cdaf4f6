// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 promgate contributors

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/promforge/promgate/pkg/promwire"
)

var protectCmd = &cobra.Command{
	Use:   "protect on|off",
	Short: "Toggle the device's software write protection",
	Args:  cobra.ExactArgs(1),
	RunE:  runProtect,
}

func init() {
	rootCmd.AddCommand(protectCmd)
}

func runProtect(cmd *cobra.Command, args []string) error {
	var enable bool
	switch args[0] {
	case "on":
		enable = true
	case "off":
		enable = false
	default:
		return fmt.Errorf("argument must be on or off, got %q", args[0])
	}

	conn, _, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	client := promwire.NewClient(conn)
	if enable {
		err = client.Lock()
	} else {
		err = client.Unlock()
	}
	if err != nil {
		return err
	}

	if enable {
		fmt.Println("Write protection enabled")
	} else {
		fmt.Println("Write protection disabled")
	}
	return nil
}
