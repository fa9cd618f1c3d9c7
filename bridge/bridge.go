// Package bridge turns ASCII command lines into ADMX2001 register traffic. Short
// commands answer immediately, measurements and calibrations are advanced by a
// periodic task that drains the chip FIFO.
package bridge

import (
	"time"

	"github.com/BertoldVdb/ADMXBridge/admx"
)

// Chip is the part of the driver the bridge needs. *admx.Chip implements it.
type Chip interface {
	Op(opcode admx.Opcode, addr uint16, data uint32, mode admx.Mode, maxAttempts int) (uint32, admx.Status, error)
	Poll(maxAttempts int) (admx.Status, error)
	CheckStatus() (admx.Status, error)
	ClearErrors() (admx.Status, error)

	ReadImpedance() (admx.Impedance, error)
	ProbeBank(g admx.Gains) (bool, admx.Status, error)
	ReadCoefficient(coeff admx.Coefficient, g admx.Gains) (float64, admx.Status, error)
	ReadCalStatus(g admx.Gains) (admx.CalStatus, admx.Status, error)
	ReadGains() (admx.Gains, error)
	WritePassword(opcode admx.Opcode, password string, report func(admx.Status)) error
}

type State int

const (
	Idle State = iota
	MeasuringImpedance
	Calibrating
	CommittingCalibration
	ErasingCalibration
	ReloadingCalibration
)

var stateNames = []string{"idle", "measuring", "calibrating", "committing", "erasing", "reloading"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

type Options struct {
	// TickPeriod is the task period in milliseconds.
	TickPeriod uint32
	// ResetDelay is the pause between the RESET command and polling for done.
	ResetDelay time.Duration
}

var DefaultOptions = Options{
	TickPeriod: 5,
	ResetDelay: 80 * time.Millisecond,
}

type Bridge struct {
	chip Chip
	opts Options

	state    State
	counter  int
	lastTick uint32
	taskOut  *Output

	logFunc admx.LogFunc
}

func New(chip Chip, opts *Options, logFunc admx.LogFunc) *Bridge {
	b := &Bridge{
		chip:    chip,
		opts:    DefaultOptions,
		logFunc: logFunc,
	}

	if opts != nil {
		b.opts = *opts
	}

	return b
}

func (b *Bridge) log(format string, params ...interface{}) {
	if b.logFunc != nil {
		b.logFunc(format, params...)
	}
}

func (b *Bridge) State() State {
	return b.state
}

// Counter is the number of records reported by the running task.
func (b *Bridge) Counter() int {
	return b.counter
}

// op runs a register access. A failure on the bus is logged and handed back
// as a failed command so the caller reports it like any other chip error.
func (b *Bridge) op(opcode admx.Opcode, addr uint16, data uint32, mode admx.Mode, maxAttempts int) (uint32, admx.Status) {
	v, s, err := b.chip.Op(opcode, addr, data, mode, maxAttempts)
	if err != nil {
		b.log("Bus error on opcode %s: %v", opcode, err)
		return 0, admx.BusFailure()
	}
	return v, s
}

func (b *Bridge) read(opcode admx.Opcode, addr uint16) (uint32, admx.Status) {
	return b.op(opcode, addr, 0, admx.Read, admx.DefaultMaxAttempts)
}

func (b *Bridge) write(opcode admx.Opcode, addr uint16, data uint32) admx.Status {
	_, s := b.op(opcode, addr, data, admx.Write, admx.DefaultMaxAttempts)
	return s
}

// report prints one line per error code, error flag and warning in s and
// returns whether the command completed without error.
func report(out *Output, s admx.Status, label string, opcode admx.Opcode) bool {
	for _, msg := range s.ErrorMessages() {
		out.Line("Error : %s / %s / %s", label, opcode, msg)
	}
	for _, msg := range s.WarningMessages() {
		out.Line("Warn : %s / %s / %s", label, opcode, msg)
	}
	return !s.Error
}

func (b *Bridge) start(state State, out *Output) {
	b.state = state
	b.counter = 0
	b.taskOut = out
}

func (b *Bridge) finish() {
	b.taskOut.Delimiter()
	b.state = Idle
	b.taskOut = nil
}

// Execute runs one command line. Output of a task started by the line goes to
// the same sink when the task advances.
func (b *Bridge) Execute(line string, out *Output) {
	t := Tokenize(line)
	if t[0] == "" {
		return
	}

	if d, ok := groupCommands[t[0]]; ok {
		b.group(out, d, t)
		return
	}

	if h, ok := commands[t[0]]; ok {
		h(b, out, t)
		return
	}

	out.Line("Error : Non supported command!")
	out.Delimiter()
}

// Reset drops the running task and clears the chip error state.
func (b *Bridge) Reset() {
	b.state = Idle
	b.counter = 0
	b.taskOut = nil

	if _, err := b.chip.ClearErrors(); err != nil {
		b.log("Failed to clear chip errors: %v", err)
	}
}
