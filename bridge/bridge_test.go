package bridge

import (
	"bytes"
	"strings"
	"testing"

	"github.com/BertoldVdb/ADMXBridge/admx"
	"github.com/BertoldVdb/ADMXBridge/admx/admxsim"
)

func newTestBridge(t *testing.T) (*admxsim.Sim, *Bridge) {
	t.Helper()

	sim := admxsim.New()
	chip, err := admxsim.NewChip(sim, nil)
	if err != nil {
		t.Fatalf("NewChip() err=%v", err)
	}

	b := New(chip, &Options{TickPeriod: 5}, t.Logf)
	sim.ResetFrames()
	return sim, b
}

func execute(b *Bridge, line string) string {
	var buf bytes.Buffer
	b.Execute(line, NewOutput(&buf))
	return buf.String()
}

// runTask executes line and ticks until the task it started is finished.
func runTask(t *testing.T, b *Bridge, line string) string {
	t.Helper()

	var buf bytes.Buffer
	b.Execute(line, NewOutput(&buf))

	for i := 0; b.State() != Idle; i++ {
		if i > 1000 {
			t.Fatalf("task %s did not finish, output so far %q", b.State(), buf.String())
		}
		b.Tick()
	}

	return buf.String()
}

func lines(s ...string) string {
	return strings.Join(s, "\r\n") + "\r\n\x0c"
}

func TestUnknownCommand(t *testing.T) {
	sim, b := newTestBridge(t)

	if got := execute(b, "foo 1 2"); got != lines("Error : Non supported command!") {
		t.Fatalf("got %q", got)
	}
	if len(sim.Frames) != 0 {
		t.Fatalf("unknown command caused chip traffic: %+v", sim.Frames)
	}
}

func TestEmptyLine(t *testing.T) {
	_, b := newTestBridge(t)

	if got := execute(b, "   "); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestOutputStickyError(t *testing.T) {
	w := &failWriter{}
	out := NewOutput(w)
	out.Line("a")
	out.Line("b")
	out.Delimiter()

	if out.Err() == nil || w.calls != 1 {
		t.Fatalf("err=%v calls=%d", out.Err(), w.calls)
	}

	var nilOut *Output
	nilOut.Line("ignored")
	nilOut.Delimiter()
	if nilOut.Err() != nil {
		t.Fatalf("nil output reported an error")
	}
}

type failWriter struct {
	calls int
}

func (f *failWriter) Write(p []byte) (int, error) {
	f.calls++
	return 0, bytes.ErrTooLarge
}

func TestReset(t *testing.T) {
	sim, b := newTestBridge(t)
	sim.SetWedged(true)

	execute(b, "z")
	if b.State() != MeasuringImpedance {
		t.Fatalf("state %s", b.State())
	}

	sim.ResetFrames()
	b.Reset()
	if b.State() != Idle || b.Counter() != 0 {
		t.Fatalf("reset left state %s counter %d", b.State(), b.Counter())
	}

	cmds := sim.Commands()
	if len(cmds) != 1 || cmds[0].Opcode != admx.OpClearError {
		t.Fatalf("expected CLEAR_ERROR, got %+v", cmds)
	}
}
