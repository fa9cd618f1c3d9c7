package admx

import "fmt"

const (
	statusMeasureDone uint32 = 0x80000000
	statusDone        uint32 = 0x40000000
	statusError       uint32 = 0x20000000
	statusWarning     uint32 = 0x10000000
	statusFIFOError   uint32 = 0x08000000
	statusFIFODepth   uint32 = 0x03FF0000
	statusCode        uint32 = 0x0000FFFF

	ErrorCodeMask   = 0x7FF
	WarningCodeMask = 0x1FF
)

// Base error codes, stored in the low nibble of the status code field.
const (
	CodeSuccess uint16 = iota
	CodeFailed
	CodeTimeout
	CodeInvalidAttribute
	CodeAttrOutOfRange
	CodeInvalidAddress
	CodeUncommittedCal
	CodeInvalidCurrentGain
	CodeInvalidDisplayMode
	CodeInvalidSweepType
	CodeInvalidSweepRange
	CodeInvalidCalCoeffType
	CodeTriggerOverflow
	CodeInvalidCalType
	CodeInvalidGain
	CodeCompFailed
)

// Error flags that may accompany any base code.
const (
	FlagInvalidCommandState uint16 = 0x10
	FlagLogZero             uint16 = 0x20
	FlagLogSign             uint16 = 0x40
	FlagVoltADC             uint16 = 0x80
	FlagCurrADC             uint16 = 0x100
	FlagFIFO                uint16 = 0x200
	FlagCountExceeded       uint16 = 0x400
)

const (
	WarnDDSNCOFreq uint16 = 1 << iota
	WarnCalLoadFail
	WarnAutorangeDisabled
	WarnAutorangeFail
	WarnSweepCount
	WarnMagnitudeExceed
	WarnOffsetLimited
	WarnOffsetPosExceed
	WarnOffsetNegExceed
)

var codeMessages = [16]string{
	CodeFailed:              "Command failed",
	CodeTimeout:             "Timeout",
	CodeInvalidAttribute:    "Invalid attribute",
	CodeAttrOutOfRange:      "Attribute value out of range",
	CodeInvalidAddress:      "Invalid address of command",
	CodeUncommittedCal:      "Uncommitted calibration coeffs",
	CodeInvalidCurrentGain:  "Invalid volt/current gain",
	CodeInvalidDisplayMode:  "Invalid display mode for DC res mode",
	CodeInvalidSweepType:    "Invalid sweep type for DC mode",
	CodeInvalidSweepRange:   "Invalid sweep range",
	CodeInvalidCalCoeffType: "Invalid AC calibration coefficient type",
	CodeTriggerOverflow:     "System is not ready to take trigger",
	CodeInvalidCalType:      "Invalid calibration type",
	CodeInvalidGain:         "Invalid calibration gains",
	CodeCompFailed:          "Calibration or compensation failed",
}

type bitMessage struct {
	bit uint16
	msg string
}

var flagMessages = []bitMessage{
	{FlagInvalidCommandState, "Invalid command for the state"},
	{FlagLogZero, "Sweep value is zero for log scale"},
	{FlagLogSign, "Sign change for log scale error"},
	{FlagVoltADC, "Voltage ADC saturated error"},
	{FlagCurrADC, "Current ADC saturated error"},
	{FlagFIFO, "FIFO over/under flow error"},
	{FlagCountExceeded, "Sweep count maximum value exceeded"},
}

var warningMessages = []bitMessage{
	{WarnDDSNCOFreq, "DDS & NCO Frequency are not equal warning"},
	{WarnCalLoadFail, "Calibration failed warning"},
	{WarnAutorangeDisabled, "Autorange disabled warning"},
	{WarnAutorangeFail, "Autorange failed warning"},
	{WarnSweepCount, "Sweep count warning"},
	{WarnMagnitudeExceed, "Measurement magnitude is set to 1 V"},
	{WarnOffsetLimited, "Measurement offset is set to 0 V"},
	{WarnOffsetPosExceed, "Positive offset exceed warning"},
	{WarnOffsetNegExceed, "Negative offset exceed warning"},
}

// Status is a decoded snapshot of the chip status register. Error, Warning and
// ErrorCode only carry information when Done is set and are zero otherwise.
// WarningCode is filled by register operations that fetched the warning register.
type Status struct {
	Raw uint32

	MeasureDone bool
	Done        bool
	Error       bool
	Warning     bool
	FIFOError   bool
	FIFODepth   int

	ErrorCode   uint16
	WarningCode uint16
}

func DecodeStatus(raw uint32) Status {
	s := Status{
		Raw:         raw,
		MeasureDone: raw&statusMeasureDone != 0,
		Done:        raw&statusDone != 0,
		FIFOError:   raw&statusFIFOError != 0,
		FIFODepth:   int((raw&statusFIFODepth)>>16) & 0xFF,
	}

	if s.Done {
		s.Error = raw&statusError != 0
		s.Warning = raw&statusWarning != 0
		s.ErrorCode = uint16(raw&statusCode) & ErrorCodeMask
	}

	return s
}

// ErrorMessages lists one message for the base code and one for every error flag.
func (s Status) ErrorMessages() []string {
	if !s.Error {
		return nil
	}

	var msgs []string
	if msg := codeMessages[s.ErrorCode&0x0F]; msg != "" {
		msgs = append(msgs, msg)
	}

	for _, m := range flagMessages {
		if s.ErrorCode&m.bit != 0 {
			msgs = append(msgs, m.msg)
		}
	}

	return msgs
}

func (s Status) WarningMessages() []string {
	if !s.Warning {
		return nil
	}

	var msgs []string
	for _, m := range warningMessages {
		if s.WarningCode&m.bit != 0 {
			msgs = append(msgs, m.msg)
		}
	}

	return msgs
}

func (s Status) String() string {
	return fmt.Sprintf("Raw=%08x Done=%v Error=%v Warning=%v Code=%03x Warn=%03x FIFO=%d", s.Raw, s.Done, s.Error, s.Warning, s.ErrorCode, s.WarningCode, s.FIFODepth)
}
