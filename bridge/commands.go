package bridge

import (
	"strconv"
	"time"

	"github.com/BertoldVdb/ADMXBridge/admx"
)

type handler func(b *Bridge, out *Output, t Tokens)

var commands = map[string]handler{
	"*idn?":     (*Bridge).idn,
	"reset":     (*Bridge).reset,
	"void":      (*Bridge).void,
	"abort":     (*Bridge).abort,
	"z":         (*Bridge).measure,
	"setgain":   (*Bridge).setGain,
	"selftest":  (*Bridge).selfTest,
	"calibrate": (*Bridge).calibrate,
	"rdcal":     (*Bridge).readCal,
	"resetcal":  (*Bridge).resetCal,
	"storecal":  (*Bridge).storeCal,
}

func (b *Bridge) idn(out *Output, t Tokens) {
	defer out.Delimiter()

	fw, s := b.read(admx.OpFirmwareVersion, 0)
	if report(out, s, "Hardware error2", admx.OpFirmwareVersion) {
		major, minor, patch := admx.FirmwareFromWord(fw)
		out.Line("ADMX2001 - Precision Impedance Analyzer Measurement Module %d.%d.%d", major, minor, patch)
	}

	high, s := b.read(admx.OpUniqueID, 1)
	if !report(out, s, "Hardware error3", admx.OpUniqueID) {
		return
	}

	low, s := b.read(admx.OpUniqueID, 0)
	if !report(out, s, "Hardware error4", admx.OpUniqueID) {
		return
	}

	out.Line("Board ID - 0x%08X%08X", high, low)
}

func (b *Bridge) reset(out *Output, t Tokens) {
	defer out.Delimiter()

	b.write(admx.OpReset, 0, 0)
	time.Sleep(b.opts.ResetDelay)

	s, err := b.chip.Poll(admx.DefaultMaxAttempts)
	if err != nil {
		b.log("Bus error while waiting for reset: %v", err)
		s = admx.BusFailure()
	}

	if report(out, s, "Hardware error5", admx.OpReset) {
		out.Line("Reset : success")
	}
}

func (b *Bridge) void(out *Output, t Tokens) {
	out.Delimiter()
}

// abort stops the chip. A running task is left to notice the done flag and
// close its own response.
func (b *Bridge) abort(out *Output, t Tokens) {
	s := b.write(admx.OpAbort, 0, 0)
	report(out, s, "Hardware error6", admx.OpAbort)
}

func (b *Bridge) measure(out *Output, t Tokens) {
	b.op(admx.OpZ, 0, 0, admx.Write, 1)
	b.start(MeasuringImpedance, out)
}

func (b *Bridge) setGain(out *Output, t Tokens) {
	switch {
	case t[1] == "auto":
		s := b.write(admx.OpEnableAutorange, 0, 1)
		if report(out, s, "Wrong arguments", admx.OpEnableAutorange) {
			out.Line("Autorange enabled")
		}

	case (t[1] == "ch0" || t[1] == "ch1") && t[2] != "":
		opcode, name := admx.OpVoltageGain, "volt"
		if t[1] == "ch1" {
			opcode, name = admx.OpCurrentGain, "curr"
		}

		gain, err := strconv.ParseInt(t[2], 10, 32)
		if err != nil {
			out.Line("Error : Wrong number format")
			break
		}

		s := b.write(opcode, 0, uint32(gain))
		if !report(out, s, "SetGain", opcode) {
			break
		}

		s = b.write(admx.OpEnableAutorange, 0, 0)
		if report(out, s, "Autorange update", opcode) {
			out.Line("%s gain = %d", name, uint32(gain))
		}

	case t[1] == "":
		volt, s := b.read(admx.OpVoltageGain.Read(), 0)
		if !report(out, s, "SetGain", admx.OpVoltageGain.Read()) {
			break
		}
		curr, s := b.read(admx.OpCurrentGain.Read(), 0)
		if !report(out, s, "SetGain", admx.OpCurrentGain.Read()) {
			break
		}
		auto, s := b.read(admx.OpEnableAutorange.Read(), 0)
		if !report(out, s, "SetGain", admx.OpEnableAutorange.Read()) {
			break
		}

		if auto&1 != 0 {
			out.Line("Autorange enabled")
		} else {
			out.Line("Autorange disabled")
		}
		out.Line("volt gain = %d", volt)
		out.Line("curr gain = %d", curr)

	default:
		out.Line("Error : Non supported setgain parameter!")
	}

	out.Delimiter()
}

func (b *Bridge) selfTest(out *Output, t Tokens) {
	defer out.Delimiter()

	s := b.write(admx.OpRunSelfTest, 0, 0)
	if !report(out, s, "Selftest", admx.OpRunSelfTest) {
		return
	}

	result, s := b.read(admx.OpSelfTestStatus, 0)
	if !report(out, s, "Selftest", admx.OpSelfTestStatus) {
		return
	}

	if result == 0 {
		out.Line("Selftest : passed")
	} else {
		out.Line("Error : Selftest failed / 0x%08X", result)
	}
}
