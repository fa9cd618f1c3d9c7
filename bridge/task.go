package bridge

import (
	"math"

	"github.com/BertoldVdb/ADMXBridge/admx"
)

type finishTask struct {
	label   string
	opcode  admx.Opcode
	success string
	failure string
}

var finishTasks = map[State]finishTask{
	CommittingCalibration: {"Commit calibration coeff", admx.OpCalCommit, "Commit : success", "Error : Calibration not done"},
	ErasingCalibration:    {"Calibrate erase", admx.OpEraseCalibration, "Erase : success", "Error : Calibrate Erase not done"},
	ReloadingCalibration:  {"Calibrate reload", admx.OpCalibrate, "Reload : success", "Error : Calibrate reloading not done"},
}

// Poll advances the running task when at least TickPeriod milliseconds passed
// since the previous tick. now is a free running millisecond counter that may
// wrap.
func (b *Bridge) Poll(now uint32) {
	var elapsed uint32
	if now >= b.lastTick {
		elapsed = now - b.lastTick
	} else {
		elapsed = (math.MaxUint32 - b.lastTick) + now
	}

	if elapsed < b.opts.TickPeriod {
		return
	}
	b.lastTick = now

	b.Tick()
}

// Tick advances the running task by one step.
func (b *Bridge) Tick() {
	switch b.state {
	case Idle:
	case MeasuringImpedance, Calibrating:
		b.tickMeasure()
	default:
		b.tickFinish()
	}
}

func (b *Bridge) checkStatus() admx.Status {
	s, err := b.chip.CheckStatus()
	if err != nil {
		b.log("Bus error while checking status: %v", err)
		return admx.BusFailure()
	}
	return s
}

func (b *Bridge) tickMeasure() {
	out := b.taskOut

	label, opcode := "Z measure", admx.OpZ
	if b.state == Calibrating {
		label, opcode = "Calibrate", admx.OpCalibrate
	}

	s := b.checkStatus()
	report(out, s, label, opcode)

	if s.FIFODepth > 0 {
		if s.FIFODepth >= admx.FIFORecordWords {
			m, err := b.chip.ReadImpedance()
			if err != nil {
				b.log("Bus error while draining FIFO: %v", err)
				report(out, admx.BusFailure(), label, opcode)
				b.finish()
				return
			}

			out.Line("%d,%.7e,%.7e", b.counter, m.R, m.X)
			b.counter++
		}
		return
	}

	if !s.Done {
		return
	}

	if b.state == Calibrating {
		b.calibrationSummary(out)
	}
	b.finish()
}

func (b *Bridge) calibrationSummary(out *Output) {
	freq, s := b.read(admx.OpFrequency.Read(), 0)
	report(out, s, "Hardware Error21", admx.OpFrequency.Read())
	out.Line("Cal Freq = %.4fkHz", admx.WordFloat32(freq)/1000)
	out.Line("Cal Time: 0")

	temp, s := b.read(admx.OpTemperature.Read(), 0)
	if report(out, s, "Hardware error1", admx.OpTemperature.Read()) {
		out.Line("Cal Temp: %.1f", admx.WordFloat32(temp))
	}

	g, err := b.chip.ReadGains()
	if err != nil {
		b.log("Bus error while reading gains: %v", err)
	}

	cs, _, err := b.chip.ReadCalStatus(g)
	if err != nil {
		b.log("Bus error while reading calibration status: %v", err)
	}

	out.Line("open: %s", doneText(cs.Open, "Done", "Not Done"))
	out.Line("short: %s", doneText(cs.Short, "Done", "Not Done"))
	out.Line("load: %s", doneText(cs.Load, "Done", "Not Done"))
}

func (b *Bridge) tickFinish() {
	out := b.taskOut
	f := finishTasks[b.state]

	s := b.checkStatus()
	report(out, s, f.label, f.opcode)

	if !s.Done {
		return
	}

	if s.Error {
		out.Line("%s", f.failure)
	} else {
		out.Line("%s", f.success)
	}
	b.finish()
}
