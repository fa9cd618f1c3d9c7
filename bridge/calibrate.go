package bridge

import (
	"strconv"

	"github.com/BertoldVdb/ADMXBridge/admx"
)

func parseFloat32(s string) (uint32, bool) {
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, false
	}
	return admx.Float32Word(float32(f)), true
}

func parseGains(v string, i string) (admx.Gains, bool) {
	vg, err := strconv.Atoi(v)
	if err != nil {
		return admx.Gains{}, false
	}
	ig, err := strconv.Atoi(i)
	if err != nil {
		return admx.Gains{}, false
	}
	return admx.Gains{Voltage: vg & 3, Current: ig & 3}, true
}

func doneText(done bool, yes string, no string) string {
	if done {
		return yes
	}
	return no
}

func (b *Bridge) calibrate(out *Output, t Tokens) {
	switch t[1] {
	case "short":
		b.write(admx.OpCalibrate, admx.AddrShortCal, 0)
		b.start(Calibrating, out)

	case "open":
		b.write(admx.OpCalibrate, admx.AddrOpenCal, 0)
		b.start(Calibrating, out)

	case "load", "rt":
		if !b.calibrateLoad(out, t) {
			out.Line("Error : Cal parameters mismatched!")
			out.Delimiter()
		}

	case "commit":
		if t[2] == "" {
			out.Line("Error : Calibrate commit password missing!")
			out.Delimiter()
			return
		}

		timestamp := uint64(admx.DefaultTimestamp)
		if t[3] != "" {
			if ts, err := strconv.ParseUint(t[3], 10, 32); err == nil {
				timestamp = ts
			}
		}
		b.log("Committing calibration, timestamp %x is not sent to the chip", timestamp)

		b.password(out, admx.OpCalCommit, t[2], "Commit calibration password")
		b.write(admx.OpCalCommit, admx.AddrCalTrigger, 0)
		b.start(CommittingCalibration, out)

	case "erase":
		if t[2] == "" {
			out.Line("Error : Calibrate erase password missing!")
			out.Delimiter()
			return
		}

		b.password(out, admx.OpEraseCalibration, t[2], "Calibrate erase password")
		b.op(admx.OpEraseCalibration, admx.AddrCalTrigger, 0, admx.Write, 1)
		b.start(ErasingCalibration, out)

	case "on", "off":
		var mode uint32
		if t[1] == "on" {
			mode = 1
		}

		s := b.write(admx.OpCorrectionMode, 0, mode)
		if report(out, s, "Calibrate correction", admx.OpCorrectionMode) {
			out.Line("Calibration is %s", doneText(mode == 1, "enabled", "disabled"))
		}
		out.Delimiter()

	case "reload":
		b.op(admx.OpCalibrate, admx.AddrReloadCal, 0, admx.Write, 1)
		b.start(ReloadingCalibration, out)

	case "list":
		out.Line("Error : Calibrate list command is under construction!")
		out.Delimiter()

	default:
		out.Line("Error : Non supported cal parameter!")
		out.Delimiter()
	}
}

// calibrateLoad accepts "load <Rt> <Xt>" and "rt <Rt> xt <Xt>".
func (b *Bridge) calibrateLoad(out *Output, t Tokens) bool {
	rtArg, xtArg := t[2], t[3]
	if t[1] == "rt" {
		if t[3] != "xt" {
			return false
		}
		xtArg = t[4]
	}

	rt, ok := parseFloat32(rtArg)
	if !ok {
		return false
	}
	xt, ok := parseFloat32(xtArg)
	if !ok {
		return false
	}

	s := b.write(admx.OpCalibrate, admx.AddrLoadSetRt, rt)
	if !report(out, s, "Call_LOAD coeff1 error", admx.OpCalibrate) {
		return false
	}

	s = b.write(admx.OpCalibrate, admx.AddrLoadSetXt, xt)
	if !report(out, s, "Call_LOAD coeff2 error", admx.OpCalibrate) {
		return false
	}

	b.op(admx.OpCalibrate, admx.AddrLoadCal, 0, admx.Write, 1)
	b.start(Calibrating, out)
	return true
}

func (b *Bridge) password(out *Output, opcode admx.Opcode, password string, label string) {
	err := b.chip.WritePassword(opcode, password, func(s admx.Status) {
		report(out, s, label, opcode)
	})
	if err != nil {
		b.log("Failed to send password: %v", err)
		report(out, admx.BusFailure(), label, opcode)
	}
}

func (b *Bridge) readCal(out *Output, t Tokens) {
	defer out.Delimiter()

	if t[1] == "" || t[2] == "" {
		out.Line("Error : rdcal missing arguments!")
		return
	}

	g, ok := parseGains(t[1], t[2])
	if !ok {
		out.Line("Error : rdcal missing arguments!")
		return
	}

	found, _, err := b.chip.ProbeBank(g)
	if err != nil {
		b.log("Bus error while probing calibration bank: %v", err)
		report(out, admx.BusFailure(), "rdcal", admx.OpCalRead)
		return
	}

	if found {
		for i := admx.Coefficient(0); i < admx.NumCoefficients; i++ {
			v, _, err := b.chip.ReadCoefficient(i, g)
			if err != nil {
				b.log("Bus error while reading %s: %v", i, err)
				report(out, admx.BusFailure(), "rdcal", admx.OpCalRead)
				return
			}
			out.Line("%s = %.7e", i, v)
		}
	} else {
		out.Line("Warn : No cal coefficients found for V_gain and I_gain. Defaults values:")
		for i, v := range admx.DefaultCoefficients {
			out.Line("%s = %.1e", admx.Coefficient(i), v)
		}
	}

	cs, _, err := b.chip.ReadCalStatus(g)
	if err != nil {
		b.log("Bus error while reading calibration status: %v", err)
		report(out, admx.BusFailure(), "rdcal", admx.OpCalRead)
		return
	}

	out.Line("Short = %s, Open = %s, Load = %s",
		doneText(cs.Short, "done", "not_done"),
		doneText(cs.Open, "done", "not_done"),
		doneText(cs.Load, "done", "not_done"))
}

func (b *Bridge) resetCal(out *Output, t Tokens) {
	defer out.Delimiter()

	switch t.Args() {
	case 0:
		s := b.write(admx.OpResetCal, admx.MaskResetAllCal, 0)
		if report(out, s, "Reset calibration", admx.OpResetCal) {
			out.Line("Resetting all : success")
		}

	case 1:
		out.Line("Error : resetcal missing arguments!")

	default:
		g, ok := parseGains(t[1], t[2])
		if !ok {
			out.Line("Error : resetcal missing arguments!")
			return
		}

		s := b.write(admx.OpResetCal, admx.CoefficientAddress(0, g, admx.HalfLSB), 0)
		if report(out, s, "Reset calibration", admx.OpResetCal) {
			out.Line("Reset : success")
		}
	}
}

func (b *Bridge) storeCal(out *Output, t Tokens) {
	defer out.Delimiter()

	g, ok := parseGains(t[1], t[2])
	coeff, known := admx.ParseCoefficient(t[3])
	value, err := strconv.ParseFloat(t[4], 64)
	if !ok || !known || err != nil {
		out.Line("Error : StoreCal invalid parameters")
		return
	}

	lsb, msb := admx.SplitFloat64(value)

	s := b.write(admx.OpStoreCal, admx.CoefficientAddress(coeff, g, admx.HalfLSB), lsb)
	report(out, s, "StoreCal failure LSB", admx.OpStoreCal)

	s = b.write(admx.OpStoreCal, admx.CoefficientAddress(coeff, g, admx.HalfMSB), msb)
	report(out, s, "StoreCal failure MSB", admx.OpStoreCal)
}
