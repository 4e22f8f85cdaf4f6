// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 promgate contributors

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/promforge/promgate/pkg/promwire"
)

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Query the controller's identification and firmware version",
	RunE:  runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)
}

func runIdentify(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	client := promwire.NewClient(conn)

	ident, err := client.Identify()
	if err != nil {
		return err
	}
	version, err := client.FirmwareVersion()
	if err != nil {
		return err
	}

	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Controller: %s\n", ident)
	fmt.Printf("Firmware:   %s\n", version)
	return nil
}
