// Package mcp2221a provides a high-level interface to the GPIO module of the
// Microchip MCP2221A USB to GPIO/I²C/UART protocol converter. The four GP pins
// are driven through the USB HID-class interface.
//
// Datasheet: http://ww1.microchip.com/downloads/en/devicedoc/20005565b.pdf
package mcp2221a

// Original source: https://github.com/ardnew/mcp2221a
// MIT License
//
// Copyright (c) 2020 ardnew
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

import (
	"fmt"

	usb "github.com/karalabe/hid"
)

// VID and PID are the official vendor and product identifiers assigned by the
// USB-IF.
const (
	VID = 0x04D8 // 16-bit vendor ID for Microchip Technology Inc.
	PID = 0x00DD // 16-bit product ID for the Microchip MCP2221A.
)

// MsgSz is the size (in bytes) of all command and response messages.
const MsgSz = 64

// WordSet and WordClr are the logical true and false values for a single word
// (byte) in a message.
const (
	WordSet byte = 0xFF // All bits set
	WordClr byte = 0x00 // All bits clear
)

// GPIOMode and GPIODir represent two of the configuration parameters for all
// of the general purpose (GP) pins.
type (
	GPIOMode byte
	GPIODir  byte
)

// Constants for all recognized commands (and responses). These are sent as the
// first word in all command messages, and are echoed back as the first word in
// all response messages.
const (
	cmdGPIOSet byte = 0x50
	cmdGPIOGet byte = 0x51

	cmdSRAMSet byte = 0x60
	cmdSRAMGet byte = 0x61
)

// makeMsg returns a zero-initialized slice whose length is the size of all
// command and response messages.
func makeMsg() []byte { return make([]byte, MsgSz) }

// -----------------------------------------------------------------------------
// -- DEVICE -------------------------------------------------------- [start] --

// MCP2221A is the primary object used for interacting with the device.
// The struct contains a pointer to an opened HIDAPI device through which all
// USB communication occurs. The HIDAPI device should not be used directly,
// communication goes through the exported modules.
// Call Close() on the device when finished to also close the USB connection.
type MCP2221A struct {
	Device *usb.Device
	VID    uint16
	PID    uint16

	SRAM *SRAM // volatile active settings, not restored on startup/reset
	GPIO *GPIO // 4x GPIO pins
}

// AttachedDevices returns a slice of all connected USB HID device descriptors
// matching the given VID and PID.
//
// Returns an empty slice if no devices were found. See the hid package
// documentation for details on inspecting the returned objects.
func AttachedDevices(vid uint16, pid uint16) []usb.DeviceInfo {

	var info []usb.DeviceInfo

	for _, i := range usb.Enumerate(vid, pid) {
		info = append(info, i)
	}

	return info
}

func NewFromDev(dev *usb.Device) (*MCP2221A, error) {
	if nil == dev {
		return nil, fmt.Errorf("nil USB HID device")
	}

	mcp := &MCP2221A{
		Device: dev,
		VID:    dev.VendorID,
		PID:    dev.ProductID,
	}

	mcp.SRAM, mcp.GPIO = &SRAM{mcp}, &GPIO{mcp}

	return mcp, nil
}

// valid verifies the receiver and USB HID device are both not nil.
//
// Returns false with a descriptive error if any required field is nil.
func (mcp *MCP2221A) valid() (bool, error) {

	if nil == mcp {
		return false, fmt.Errorf("nil MCP2221A")
	}

	if nil == mcp.Device {
		return false, fmt.Errorf("nil USB HID device")
	}

	return true, nil
}

// Close will clean up any resources and close the USB HID connection.
//
// Returns an error if the USB HID device is invalid or failed to close
// gracefully.
func (mcp *MCP2221A) Close() error {

	if ok, err := mcp.valid(); !ok {
		return err
	}

	return mcp.Device.Close()
}

// send transmits an MCP2221A command message and returns the response message.
// The data argument is a byte slice created by makeMsg(), and the cmd argument
// is one of the recognized command byte constants. The cmd byte is inserted
// into the slice at the appropriate position automatically.
//
// A nil slice is returned with an error if the receiver is invalid or if the
// USB HID device could not be written to or read from.
// If any data was successfully read from the USB HID device, then that data
// slice is returned along with an error if fewer than expected bytes were
// received or if the reserved status byte (common to all response messages)
// does not indicate success.
func (mcp *MCP2221A) send(cmd byte, data []byte) ([]byte, error) {

	if ok, err := mcp.valid(); !ok {
		return nil, err
	}

	data[0] = cmd
	if _, err := mcp.Device.Write(data); nil != err {
		return nil, fmt.Errorf("Write([cmd=0x%02X]): %v", cmd, err)
	}

	rsp := makeMsg()
	recv, err := mcp.Device.Read(rsp)
	if nil != err {
		return nil, fmt.Errorf("Read([cmd=0x%02X]): %v", cmd, err)
	}
	if recv < MsgSz {
		return rsp, fmt.Errorf("Read([cmd=0x%02X]): short read (%d of %d bytes)", cmd, recv, MsgSz)
	}
	if rsp[0] != cmd || rsp[1] != WordClr {
		return rsp, fmt.Errorf("Read([cmd=0x%02X]): command failed", cmd)
	}

	return rsp, nil
}

// -- DEVICE ---------------------------------------------------------- [end] --
// -----------------------------------------------------------------------------

// -----------------------------------------------------------------------------
// -- SRAM ---------------------------------------------------------- [start] --

// SRAM contains the methods associated with the SRAM component of the
// MCP2221A.
type SRAM struct {
	*MCP2221A
}

// readRange reads the current SRAM configuration and returns a byte slice
// within the given interval (inclusive) from the response message.
//
// Returns a nil slice and error if the receiver is invalid, the given range is
// invalid, or if the configuration command could not be sent.
func (mod *SRAM) readRange(start byte, stop byte) ([]byte, error) {

	if ok, err := mod.valid(); !ok {
		return nil, err
	}

	if (start > stop) || (stop >= MsgSz) {
		return nil, fmt.Errorf("invalid byte range: [%d, %d]", start, stop)
	}

	rsp, err := mod.send(cmdSRAMGet, makeMsg())
	if nil != err {
		return nil, fmt.Errorf("send(): %v", err)
	}

	return rsp[start : stop+1], nil
}

// -- SRAM ------------------------------------------------------------ [end] --
// -----------------------------------------------------------------------------

// -----------------------------------------------------------------------------
// -- GPIO ---------------------------------------------------------- [start] --

// GPIO contains the methods associated with the GPIO module of the MCP2221A.
type GPIO struct {
	*MCP2221A
}

// Constants associated with the GPIO module.
const (
	// GPPinCount is the number of GPIO pins available.
	GPPinCount = 4

	ModeGPIO    GPIOMode = 0x00
	ModeInvalid GPIOMode = 0xEE // invalid mode is used as error condition

	// GPIO directions
	DirOutput  GPIODir = 0x00 // direction OUT is used for writing values to pins
	DirInput   GPIODir = 0x01 // direction IN is used for reading values from pins
	DirInvalid GPIODir = 0xEF // invalid direction is used as error condition
)

// SetConfig configures a given pin with a default output value, operation mode,
// and direction.
// These settings only affect the current device configuration and are not
// retained after next startup/reset.
//
// Returns an error if the receiver is invalid, the pin index is invalid, the
// current configuration could not be read, or if the new configuration could
// not be sent.
func (mod *GPIO) SetConfig(pin byte, val byte, mode GPIOMode, dir GPIODir) error {

	if ok, err := mod.valid(); !ok {
		return err
	}

	if pin >= GPPinCount {
		return fmt.Errorf("invalid GPIO pin: %d", pin)
	}

	cur, err := mod.SRAM.readRange(22, 25)
	if nil != err {
		return fmt.Errorf("SRAM.readRange(): %v", err)
	}

	// all GP designations are written at once, so start from the current ones
	cmd := makeMsg()
	cmd[7] = WordSet
	copy(cmd[8:], cur)

	cmd[8+pin] = (val << 4) | (byte(dir) << 3) | byte(mode)

	if _, err := mod.send(cmdSRAMSet, cmd); nil != err {
		return fmt.Errorf("send(): %v", err)
	}

	return nil
}

// Set sets the digital output value for a given pin.
//
// Returns an error if the receiver is invalid, the pin index is invalid, or if
// the pin value could not be set (e.g. pin not configured for GPIO operation).
func (mod *GPIO) Set(pin byte, val byte) error {

	if pin >= GPPinCount {
		return fmt.Errorf("invalid GPIO pin: %d", pin)
	}

	return mod.SetPins(1<<pin, val<<pin)
}

// SetPins drives every output pin selected in mask to the matching bit of vals
// with a single command.
func (mod *GPIO) SetPins(mask byte, vals byte) error {

	if ok, err := mod.valid(); !ok {
		return err
	}

	cmd := makeMsg()

	for pin := byte(0); pin < GPPinCount; pin++ {
		if mask&(1<<pin) == 0 {
			continue
		}

		i := 2 + 4*pin
		cmd[i+0] = WordSet // alter output value
		cmd[i+1] = (vals >> pin) & 1
	}

	if _, err := mod.send(cmdGPIOSet, cmd); nil != err {
		return fmt.Errorf("send(): %v", err)
	}

	return nil
}

// Get gets the current digital value of a given pin.
//
// Returns an error if the receiver is invalid, the pin index is invalid, or if
// the pin is not configured for GPIO operation.
func (mod *GPIO) Get(pin byte) (byte, error) {

	if pin >= GPPinCount {
		return WordClr, fmt.Errorf("invalid GPIO pin: %d", pin)
	}

	rsp, err := mod.read()
	if nil != err {
		return WordClr, err
	}

	i := 2 + 2*pin
	if byte(ModeInvalid) == rsp[i] {
		return WordClr, fmt.Errorf("pin not in GPIO mode: %d", pin)
	}

	return rsp[i], nil
}

// GetPins returns the value of all GPIO pins as a bit vector, pin 0 in bit 0.
// Pins that are not in GPIO mode read as zero.
func (mod *GPIO) GetPins() (byte, error) {

	rsp, err := mod.read()
	if nil != err {
		return WordClr, err
	}

	var vals byte
	for pin := byte(0); pin < GPPinCount; pin++ {
		v := rsp[2+2*pin]
		if v != byte(ModeInvalid) && v != 0 {
			vals |= 1 << pin
		}
	}

	return vals, nil
}

func (mod *GPIO) read() ([]byte, error) {

	if ok, err := mod.valid(); !ok {
		return nil, err
	}

	rsp, err := mod.send(cmdGPIOGet, makeMsg())
	if nil != err {
		return nil, fmt.Errorf("send(): %v", err)
	}

	return rsp, nil
}

// -- GPIO ------------------------------------------------------------ [end] --
// -----------------------------------------------------------------------------
