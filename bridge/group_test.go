package bridge

import (
	"testing"

	"github.com/BertoldVdb/ADMXBridge/admx"
)

func TestGroupFloatRoundTrip(t *testing.T) {
	sim, b := newTestBridge(t)

	if got := execute(b, "frequency 1.2500"); got != lines("frequency = 1.2500kHz") {
		t.Fatalf("write: got %q", got)
	}
	if w := sim.Regs[admx.OpFrequency]; w != admx.Float32Word(1250) {
		t.Fatalf("register holds %f", admx.WordFloat32(w))
	}

	if got := execute(b, "frequency"); got != lines("frequency = 1.2500kHz") {
		t.Fatalf("read: got %q", got)
	}

	if got := execute(b, "mdelay 2.5"); got != lines("mdelay = 2.5000msec") {
		t.Fatalf("mdelay: got %q", got)
	}
}

func TestGroupInt(t *testing.T) {
	sim, b := newTestBridge(t)

	if got := execute(b, "count 25"); got != lines("count = 25") {
		t.Fatalf("write: got %q", got)
	}
	if sim.Regs[admx.OpCount] != 25 {
		t.Fatalf("register holds %d", sim.Regs[admx.OpCount])
	}

	sim.Regs[admx.OpAverage] = 0xFFFFFFFF
	if got := execute(b, "average"); got != lines("average = 4294967295") {
		t.Fatalf("read: got %q", got)
	}
}

func TestGroupEnum(t *testing.T) {
	sim, b := newTestBridge(t)

	if got := execute(b, "sweep_type magnitude"); got != lines("sweep_type = magnitude") {
		t.Fatalf("write: got %q", got)
	}
	if sim.Regs[admx.OpSweepType] != 2 {
		t.Fatalf("register holds %d", sim.Regs[admx.OpSweepType])
	}
	if got := execute(b, "sweep_type"); got != lines("sweep_type = magnitude") {
		t.Fatalf("read: got %q", got)
	}

	sim.Regs[admx.OpTriggerMode] = 7
	if got := execute(b, "trig_mode"); got != lines("trig_mode = Error : Can't find enum") {
		t.Fatalf("out of range: got %q", got)
	}
}

func TestGroupEnumMismatch(t *testing.T) {
	sim, b := newTestBridge(t)

	if got := execute(b, "trig_mode sideways"); got != lines("Error : Wrong enum argument") {
		t.Fatalf("got %q", got)
	}
	if len(sim.Frames) != 0 {
		t.Fatalf("rejected argument caused chip traffic: %+v", sim.Frames)
	}
}

func TestGroupBadNumber(t *testing.T) {
	sim, b := newTestBridge(t)

	for _, line := range []string{"average many", "offset 1.2.3", "count 4294967297", "count -1"} {
		if got := execute(b, line); got != lines("Error : Wrong number format") {
			t.Fatalf("%s: got %q", line, got)
		}
	}
	if len(sim.Frames) != 0 {
		t.Fatalf("rejected argument caused chip traffic: %+v", sim.Frames)
	}
}

func TestGroupTemperature(t *testing.T) {
	sim, b := newTestBridge(t)

	if got := execute(b, "temperature"); got != lines("temperature = 25.5000") {
		t.Fatalf("read: got %q", got)
	}

	if got := execute(b, "temperature cls"); got != lines("temperature = cls") {
		t.Fatalf("write: got %q", got)
	}
	if sim.Regs[admx.OpCelsius] != 1 {
		t.Fatalf("celsius register holds %d", sim.Regs[admx.OpCelsius])
	}
}

func TestGroupChipError(t *testing.T) {
	sim, b := newTestBridge(t)
	sim.ErrorOn[admx.OpMagnitude] = admx.CodeAttrOutOfRange | admx.FlagInvalidCommandState

	want := lines(
		"Error : Wrong arguments / 0x25 / Attribute value out of range",
		"Error : Wrong arguments / 0x25 / Invalid command for the state",
	)
	if got := execute(b, "magnitude 9"); got != want {
		t.Fatalf("got %q", got)
	}

	sim.ErrorOn[admx.OpMagnitude.Read()] = admx.CodeFailed
	if got := execute(b, "magnitude"); got != lines("Error : Hardware error1 / 0xa5 / Command failed") {
		t.Fatalf("read: got %q", got)
	}
}

func TestGroupWarning(t *testing.T) {
	sim, b := newTestBridge(t)
	sim.WarnOn[admx.OpOffset] = admx.WarnOffsetLimited

	want := lines(
		"Warn : Wrong arguments / 0x26 / Measurement offset is set to 0 V",
		"offset = 3.0000",
	)
	if got := execute(b, "offset 3"); got != want {
		t.Fatalf("got %q", got)
	}
}
