package admx

import "strconv"

type Opcode byte

const (
	OpStatusRead       Opcode = 0x00
	OpResultRead       Opcode = 0x01
	OpClearError       Opcode = 0x02
	OpFIFORead         Opcode = 0x03
	OpCalibrate        Opcode = 0x04
	OpCalRead          Opcode = 0x06
	OpStoreCal         Opcode = 0x08
	OpResetCal         Opcode = 0x09
	OpTemperature      Opcode = 0x0E
	OpZ                Opcode = 0x0F
	OpEraseCalibration Opcode = 0x10
	OpReset            Opcode = 0x12
	OpFirmwareVersion  Opcode = 0x15
	OpAbort            Opcode = 0x1A
	OpCalCommit        Opcode = 0x1B

	OpFrequency   Opcode = 0x23
	OpMagnitude   Opcode = 0x25
	OpOffset      Opcode = 0x26
	OpVoltageGain Opcode = 0x28
	OpCurrentGain Opcode = 0x29
	OpAverage     Opcode = 0x2A
	OpMDelay      Opcode = 0x2B
	OpTDelay      Opcode = 0x2C
	OpTCount      Opcode = 0x2D
	OpSweepType   Opcode = 0x32
	OpSweepScale  Opcode = 0x33
	OpCelsius     Opcode = 0x3B

	OpDisplay         Opcode = 0x41
	OpCount           Opcode = 0x42
	OpCorrectionMode  Opcode = 0x43
	OpEnableAutorange Opcode = 0x46
	OpTriggerMode     Opcode = 0x4A
	OpRunSelfTest     Opcode = 0x51
	OpSetGPIO         Opcode = 0x56

	OpSelfTestStatus Opcode = 0xD1
	OpUniqueID       Opcode = 0xD2
	OpWarningRead    Opcode = 0xD3

	// ReadMask turns a setting opcode into its read variant.
	ReadMask Opcode = 0x80
)

// Addresses used with OpCalibrate, OpCalCommit, OpEraseCalibration and OpResetCal.
const (
	AddrShortCal  uint16 = 1
	AddrOpenCal   uint16 = 2
	AddrLoadCal   uint16 = 3
	AddrLoadSetRt uint16 = 4
	AddrLoadSetXt uint16 = 5
	AddrReloadCal uint16 = 0xFF

	AddrCalTrigger   uint16 = 0xFF
	MaxPasswordLen          = 12
	MaskResetAllCal  uint16 = 0xFF
	DefaultTimestamp        = 0x12345
)

func (o Opcode) Read() Opcode {
	return o | ReadMask
}

// String formats the opcode the way diagnostics print it: lowercase hex, no padding.
func (o Opcode) String() string {
	return "0x" + strconv.FormatUint(uint64(o), 16)
}
