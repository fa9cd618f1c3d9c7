package bridge

import (
	"testing"

	"github.com/BertoldVdb/ADMXBridge/admx"
)

func TestIdn(t *testing.T) {
	_, b := newTestBridge(t)

	want := lines(
		"ADMX2001 - Precision Impedance Analyzer Measurement Module 1.2.3",
		"Board ID - 0x0123456789ABCDEF",
	)
	if got := execute(b, "*idn?"); got != want {
		t.Fatalf("got %q", got)
	}
}

func TestVoidAndAbort(t *testing.T) {
	sim, b := newTestBridge(t)

	if got := execute(b, "void a b c d"); got != "\x0c" {
		t.Fatalf("void: got %q", got)
	}

	if got := execute(b, "abort"); got != "" {
		t.Fatalf("abort: got %q", got)
	}

	sim.ErrorOn[admx.OpAbort] = admx.CodeFailed
	if got := execute(b, "abort"); got != "Error : Hardware error6 / 0x1a / Command failed\r\n" {
		t.Fatalf("abort error: got %q", got)
	}
}

func TestResetCommand(t *testing.T) {
	sim, b := newTestBridge(t)
	b.opts.ResetDelay = 0
	sim.BusyPolls = 5

	if got := execute(b, "reset"); got != lines("Reset : success") {
		t.Fatalf("got %q", got)
	}
}

func TestSelfTest(t *testing.T) {
	sim, b := newTestBridge(t)

	if got := execute(b, "selftest"); got != lines("Selftest : passed") {
		t.Fatalf("got %q", got)
	}

	sim.SelfTest = 0x10
	if got := execute(b, "selftest"); got != lines("Error : Selftest failed / 0x00000010") {
		t.Fatalf("got %q", got)
	}

	cmds := sim.Commands()
	if cmds[0].Opcode != admx.OpRunSelfTest || cmds[1].Opcode != admx.OpSelfTestStatus {
		t.Fatalf("unexpected frames %+v", cmds)
	}
}

func TestSetGain(t *testing.T) {
	sim, b := newTestBridge(t)

	if got := execute(b, "setgain auto"); got != lines("Autorange enabled") {
		t.Fatalf("auto: got %q", got)
	}
	if sim.Regs[admx.OpEnableAutorange] != 1 {
		t.Fatalf("autorange not enabled")
	}

	if got := execute(b, "setgain ch1 3"); got != lines("curr gain = 3") {
		t.Fatalf("ch1: got %q", got)
	}
	if sim.Regs[admx.OpCurrentGain] != 3 || sim.Regs[admx.OpEnableAutorange] != 0 {
		t.Fatalf("registers %+v", sim.Regs)
	}

	if got := execute(b, "setgain ch0 1"); got != lines("volt gain = 1") {
		t.Fatalf("ch0: got %q", got)
	}

	want := lines("Autorange disabled", "volt gain = 1", "curr gain = 3")
	if got := execute(b, "setgain"); got != want {
		t.Fatalf("read: got %q", got)
	}

	sim.ResetFrames()
	if got := execute(b, "setgain ch2 1"); got != lines("Error : Non supported setgain parameter!") {
		t.Fatalf("bad channel: got %q", got)
	}
	if len(sim.Frames) != 0 {
		t.Fatalf("rejected argument caused chip traffic")
	}
}

func TestMeasureStartsTask(t *testing.T) {
	sim, b := newTestBridge(t)
	sim.SetWedged(true)

	if got := execute(b, "z"); got != "" {
		t.Fatalf("got %q", got)
	}
	if b.State() != MeasuringImpedance {
		t.Fatalf("state %s", b.State())
	}

	// The Z command is only polled once.
	if len(sim.Frames) != 2 {
		t.Fatalf("expected 2 frames, got %+v", sim.Frames)
	}
}
