// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 promgate contributors

package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/promforge/promgate/pkg/promwire"
)

var (
	uploadStart    uint32
	uploadPageSize uint32
	uploadDevice   string
	uploadNoVerify bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Write a binary file to the device",
	Long: `Program a binary image into the device in page-aligned chunks.

The device type selects the programming strategy on the controller. For
EEPROM devices, software write protection is disabled before programming
and re-enabled afterwards, like the original front end did. After
programming, the written span is read back and verified unless --no-verify
is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().Uint32Var(&uploadStart, "start", 0, "Start address")
	uploadCmd.Flags().Uint32Var(&uploadPageSize, "page-size", 128, "Device page size in bytes (power of two)")
	uploadCmd.Flags().StringVar(&uploadDevice, "device", "eeprom", "Device type: eeprom or flash")
	uploadCmd.Flags().BoolVar(&uploadNoVerify, "no-verify", false, "Skip read-back verification")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("%s is empty", args[0])
	}
	end, err := spanEnd(uploadStart, uint32(len(data)))
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	client := promwire.NewClient(conn)

	isEEPROM := false
	switch uploadDevice {
	case "eeprom":
		isEEPROM = true
		err = client.SelectEEPROM()
	case "flash":
		err = client.SelectFlash()
	default:
		return fmt.Errorf("unknown --device %q (use eeprom or flash)", uploadDevice)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Writing %d bytes at 0x%08x (%s, %d bytes/page)\n",
		len(data), uploadStart, uploadDevice, uploadPageSize)

	if isEEPROM {
		if err := client.Unlock(); err != nil {
			return err
		}
	}

	total := int64(len(data))
	err = client.Upload(uploadStart, data, uploadPageSize, func(n int64) {
		fmt.Printf("\rWriting... %d%%", n*100/total)
	})
	fmt.Println()
	if err != nil {
		return err
	}

	if isEEPROM {
		if err := client.Lock(); err != nil {
			return err
		}
	}

	if !uploadNoVerify {
		fmt.Println("Verifying...")
		var buf bytes.Buffer
		if err := client.ReadRange(uploadStart, end, &buf, nil); err != nil {
			return err
		}
		if !bytes.Equal(buf.Bytes(), data) {
			return fmt.Errorf("verification failed: read-back differs from %s", args[0])
		}
	}

	fmt.Printf("%d bytes successfully written\n", len(data))
	return nil
}
