package chipopen

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/BertoldVdb/ADMXBridge/admx"
	"github.com/BertoldVdb/ADMXBridge/admx/admxsim"
	"github.com/BertoldVdb/ADMXBridge/admx/chipopen/mcp2221a"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Pin assignment on the MCP2221A adapter.
const (
	usbPinSCK  = 0
	usbPinMOSI = 1
	usbPinMISO = 2
	usbPinCS   = 3
)

func OpenChipUSB(serial string, pid uint16, timing *admx.Timing, logFunc admx.LogFunc) (*admx.Chip, error) {
	findDevice := func(serial string) (*mcp2221a.MCP2221A, error) {
		devices := mcp2221a.AttachedDevices(mcp2221a.VID, pid)

		for _, m := range devices {
			if m.Serial == serial || serial == "" {
				hid, err := m.Open()
				if err != nil {
					return nil, err
				}

				return mcp2221a.NewFromDev(hid)
			}
		}

		return nil, errors.New("no device found")
	}

	dev, err := findDevice(serial)
	if err != nil {
		return nil, err
	}

	setup := []struct {
		pin byte
		val byte
		dir mcp2221a.GPIODir
	}{
		{usbPinSCK, 0, mcp2221a.DirOutput},
		{usbPinMOSI, 0, mcp2221a.DirOutput},
		{usbPinMISO, 0, mcp2221a.DirInput},
		{usbPinCS, 1, mcp2221a.DirOutput},
	}

	for _, m := range setup {
		if err := dev.GPIO.SetConfig(m.pin, m.val, mcp2221a.ModeGPIO, m.dir); err != nil {
			dev.Close()
			return nil, fmt.Errorf("failed to configure GP%d: %v", m.pin, err)
		}
	}

	bus := &bitBang{
		write: func(sck bool, mosi bool) error {
			var vals byte
			if sck {
				vals |= 1 << usbPinSCK
			}
			if mosi {
				vals |= 1 << usbPinMOSI
			}
			return dev.GPIO.SetPins(1<<usbPinSCK|1<<usbPinMOSI, vals)
		},
		read: func() (bool, error) {
			vals, err := dev.GPIO.GetPins()
			return vals&(1<<usbPinMISO) != 0, err
		},
	}

	selectFunc := func(active bool) error {
		if active {
			return dev.GPIO.Set(usbPinCS, 0)
		}
		return dev.GPIO.Set(usbPinCS, 1)
	}

	m, err := admx.New(bus.transfer, selectFunc, dev.Close, timing, logFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chip via USB: %v", err)
	}

	return m, nil
}

// OpenChipPlatform uses a host SPI port. The chip select is driven as a GPIO
// since a frame spans several single byte transfers.
func OpenChipPlatform(portName string, csPin string, freq physic.Frequency, timing *admx.Timing, logFunc admx.LogFunc) (*admx.Chip, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("could not init host: %v", err)
	}

	if csPin == "" {
		return nil, errors.New("chip select gpio not specified")
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, errors.New("chip select gpio not found")
	}

	if err := cs.Out(gpio.High); err != nil {
		return nil, err
	}

	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("could not open bus: %v", err)
	}

	dev, err := port.Connect(freq, spi.Mode0|spi.NoCS, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("could not configure bus: %v", err)
	}

	xfer := func(out byte) (byte, error) {
		var rx [1]byte
		err := dev.Tx([]byte{out}, rx[:])
		return rx[0], err
	}

	selectFunc := func(active bool) error {
		if active {
			return cs.Out(gpio.Low)
		}
		return cs.Out(gpio.High)
	}

	m, err := admx.New(xfer, selectFunc, port.Close, timing, logFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chip: %v", err)
	}

	return m, nil
}

// OpenChipSim connects to a simulated chip.
func OpenChipSim(logFunc admx.LogFunc) (*admx.Chip, error) {
	return admxsim.NewChip(admxsim.New(), logFunc)
}

func getPart(parts []string, index int, def string) string {
	if index >= len(parts) || parts[index] == "" {
		return def
	}
	return parts[index]
}

func parseFrequency(value string) (physic.Frequency, error) {
	var f physic.Frequency
	if err := f.Set(value); err != nil {
		return 0, err
	}
	if f <= 0 {
		return 0, fmt.Errorf("invalid bus frequency: %s", value)
	}
	return f, nil
}

// OpenChipTiming opens a chip from a path of the form
//
//	usb[:serial[:pid]]
//	platform[:spiport[:cspin[:frequency]]]
//	sim
//
// A nil timing selects admx.DefaultTiming. The simulator ignores it.
func OpenChipTiming(path string, timing *admx.Timing, logOut admx.LogFunc) (*admx.Chip, error) {
	parts := strings.Split(path, ":")

	switch parts[0] {
	case "usb":
		serial := getPart(parts, 1, "")
		pid, err := strconv.ParseUint(getPart(parts, 2, "0x00DD"), 0, 16)
		if err != nil {
			return nil, err
		}
		return OpenChipUSB(serial, uint16(pid), timing, logOut)

	case "platform":
		port := getPart(parts, 1, "")
		csPin := getPart(parts, 2, "")
		freq, err := parseFrequency(getPart(parts, 3, "1MHz"))
		if err != nil {
			return nil, err
		}
		return OpenChipPlatform(port, csPin, freq, timing, logOut)

	case "sim":
		return OpenChipSim(logOut)
	}

	return nil, errors.New("device type not supported, use 'usb', 'platform' or 'sim'")
}

// OpenChip opens a chip with the default frame timing.
func OpenChip(path string, logOut admx.LogFunc) (*admx.Chip, error) {
	return OpenChipTiming(path, nil, logOut)
}
