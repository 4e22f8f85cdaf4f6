// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 promgate contributors

package cmd

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/promforge/promgate/pkg/membus"
	"github.com/promforge/promgate/pkg/programmer"
	"github.com/promforge/promgate/pkg/promwire"
)

var (
	serveChip     string
	serveSize     int
	serveDevice   string
	serveWSListen string

	gpioAddrPins []string
	gpioDataPins []string
	gpioCE       string
	gpioOE       string
	gpioWE       string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the programmer controller core",
	Long: `Run the controller: bridge a byte link to the memory chip.

The link is the serial port given by --port, a WebSocket listener given by
--ws-listen, or stdin/stdout when neither is set. The chip is either the
built-in simulated device (--chip sim, the default) or real hardware behind
GPIO pins (--chip gpio with a full pin mapping).

Examples:
  promgate serve --port /dev/ttyUSB0 --chip sim --size 32768
  promgate serve --ws-listen :8473 --chip gpio \
      --addr-pins GPIO2,GPIO3,GPIO4,... --data-pins GPIO10,... \
      --ce GPIO22 --oe GPIO23 --we GPIO24`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveChip, "chip", "sim", "Target bus: sim or gpio")
	serveCmd.Flags().IntVar(&serveSize, "size", 32768, "Simulated chip size in bytes")
	serveCmd.Flags().StringVar(&serveDevice, "device", "eeprom", "Initial programming strategy: eeprom or flash")
	serveCmd.Flags().StringVar(&serveWSListen, "ws-listen", "", "Serve the protocol over WebSocket on this address")

	serveCmd.Flags().StringSliceVar(&gpioAddrPins, "addr-pins", nil, "Address pin names, LSB first (gpio)")
	serveCmd.Flags().StringSliceVar(&gpioDataPins, "data-pins", nil, "Data pin names, LSB first, exactly 8 (gpio)")
	serveCmd.Flags().StringVar(&gpioCE, "ce", "", "Chip-enable pin name (gpio)")
	serveCmd.Flags().StringVar(&gpioOE, "oe", "", "Output-enable pin name (gpio)")
	serveCmd.Flags().StringVar(&gpioWE, "we", "", "Write-enable pin name (gpio)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logrus.StandardLogger()

	bus, err := openBus(log)
	if err != nil {
		return err
	}

	strategy, err := parseStrategy(serveDevice)
	if err != nil {
		return err
	}

	engine := programmer.New(bus,
		programmer.WithStrategy(strategy),
		programmer.WithLogger(log),
	)

	if serveWSListen != "" {
		return serveWebSocket(log, bus, engine)
	}

	if portName != "" {
		conn, err := OpenSerialConnection(portName, baudRate)
		if err != nil {
			return err
		}
		defer conn.Close()

		log.WithFields(logrus.Fields{
			"port": portName,
			"baud": baudRate,
			"chip": serveChip,
		}).Info("controller serving")
		err = promwire.NewSession(conn, conn, bus, engine, log).Run()
		reportBusFault(log, bus)
		return err
	}

	log.WithField("chip", serveChip).Info("controller serving on stdio")
	err = promwire.NewSession(os.Stdin, os.Stdout, bus, engine, log).Run()
	reportBusFault(log, bus)
	return err
}

// reportBusFault surfaces a latched GPIO pin fault after a session; the bus
// cycle methods themselves cannot return errors.
func reportBusFault(log logrus.FieldLogger, bus membus.Bus) {
	if g, ok := bus.(*membus.GPIOBus); ok {
		if err := g.Err(); err != nil {
			log.WithError(err).Error("gpio pin fault during session")
		}
	}
}

// openBus builds the bus selected by --chip.
func openBus(log logrus.FieldLogger) (membus.Bus, error) {
	switch serveChip {
	case "sim":
		kind := membus.KindEEPROM
		if strings.EqualFold(serveDevice, "flash") {
			kind = membus.KindFlash
		}
		if serveSize <= 0 {
			return nil, fmt.Errorf("invalid --size %d", serveSize)
		}
		log.WithFields(logrus.Fields{
			"size": serveSize,
			"kind": kind.String(),
		}).Debug("simulated chip")
		return membus.NewSim(serveSize, kind), nil

	case "gpio":
		return membus.NewGPIO(membus.GPIOConfig{
			AddressPins:  gpioAddrPins,
			DataPins:     gpioDataPins,
			ChipEnable:   gpioCE,
			OutputEnable: gpioOE,
			WriteEnable:  gpioWE,
		})

	default:
		return nil, fmt.Errorf("unknown --chip %q (use sim or gpio)", serveChip)
	}
}

func parseStrategy(name string) (programmer.Strategy, error) {
	switch strings.ToLower(name) {
	case "eeprom":
		return programmer.EEPROM, nil
	case "flash":
		return programmer.Flash, nil
	default:
		return 0, fmt.Errorf("unknown --device %q (use eeprom or flash)", name)
	}
}

// serveWebSocket accepts protocol sessions over WebSocket. The bus is a
// single shared resource, so sessions are serialized: a second client blocks
// until the first one's session ends.
func serveWebSocket(log *logrus.Logger, bus membus.Bus, engine *programmer.Engine) error {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}

	var busMutex sync.Mutex

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Warn("websocket upgrade failed")
			return
		}
		conn := NewWebSocketConnection(ws)
		defer conn.Close()

		remote := r.RemoteAddr
		log.WithField("remote", remote).Info("session opened")

		busMutex.Lock()
		err = promwire.NewSession(conn, conn, bus, engine, log).Run()
		reportBusFault(log, bus)
		busMutex.Unlock()

		if err != nil && err != ErrConnectionClosed {
			log.WithField("remote", remote).WithError(err).Warn("session ended")
			return
		}
		log.WithField("remote", remote).Info("session closed")
	})

	log.WithField("addr", serveWSListen).Info("controller listening")
	return http.ListenAndServe(serveWSListen, nil)
}
