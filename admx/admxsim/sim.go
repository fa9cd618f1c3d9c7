// Package admxsim is a behavioural model of the ADMX2001 SPI slave. It speaks
// the 56 bit frame protocol byte by byte so it can sit behind the same
// transfer and select callbacks as a real bus.
package admxsim

import (
	"encoding/binary"
	"sync"

	"github.com/BertoldVdb/ADMXBridge/admx"
)

const (
	bitMeasureDone uint32 = 0x80000000
	bitDone        uint32 = 0x40000000
	bitError       uint32 = 0x20000000
	bitWarning     uint32 = 0x10000000
)

type Frame struct {
	Opcode admx.Opcode
	Addr   uint16
	Data   uint32
}

// Target is an opcode and address pair.
type Target struct {
	Opcode admx.Opcode
	Addr   uint16
}

// MaxFrames bounds the frame log, older frames are dropped first.
const MaxFrames = 4096

type Sim struct {
	mu sync.Mutex

	selected bool
	count    int
	rx       [admx.FrameLen]byte
	tx       [4]byte

	// BusyPolls is the number of not-done status reads after every command.
	BusyPolls int
	// Wedged keeps the done flag clear forever.
	Wedged bool

	// ErrorOn and WarnOn inject an error code or warning mask on a command.
	ErrorOn map[admx.Opcode]uint16
	WarnOn  map[admx.Opcode]uint16
	// ErrorAt injects an error code on one address of a command only.
	ErrorAt map[Target]uint16

	Regs     map[admx.Opcode]uint32
	Firmware uint32
	UniqueID [2]uint32
	SelfTest uint32
	Password string

	// LoadRt and LoadXt hold the reference impedance of the last load calibration.
	LoadRt float32
	LoadXt float32

	// Records are queued into the FIFO by a Z command or a calibration.
	Records []admx.Impedance

	busy      int
	errCode   uint16
	warnCode  uint16
	measured  bool
	result    uint32
	fifo      []uint32
	banks     map[uint16]uint32
	bankUsed  map[uint16]bool
	calStatus map[uint16]uint32
	password  [admx.MaxPasswordLen]byte

	Frames []Frame
}

func New() *Sim {
	return &Sim{
		ErrorOn: make(map[admx.Opcode]uint16),
		WarnOn:  make(map[admx.Opcode]uint16),
		ErrorAt: make(map[Target]uint16),

		Regs: map[admx.Opcode]uint32{
			admx.OpFrequency:   admx.Float32Word(1000),
			admx.OpMagnitude:   admx.Float32Word(1),
			admx.OpTemperature: admx.Float32Word(25.5),
			admx.OpAverage:     1,
			admx.OpCount:       1,
		},
		Firmware: 0x01020300,
		UniqueID: [2]uint32{0x89ABCDEF, 0x01234567},
		Password: "admx",

		banks:     make(map[uint16]uint32),
		bankUsed:  make(map[uint16]bool),
		calStatus: make(map[uint16]uint32),
	}
}

// NewChip attaches a driver to the simulator with all frame delays disabled.
func NewChip(s *Sim, logFunc admx.LogFunc) (*admx.Chip, error) {
	return admx.New(s.Transfer, s.Select, nil, &admx.Timing{}, logFunc)
}

func (s *Sim) Select(active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if active && !s.selected {
		s.count = 0
	}
	if !active && s.selected && s.count == admx.FrameLen {
		s.execute()
	}
	s.selected = active
	return nil
}

func (s *Sim) Transfer(out byte) (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.selected || s.count >= admx.FrameLen {
		return 0, nil
	}

	if s.count == 0 {
		binary.BigEndian.PutUint32(s.tx[:], s.response(admx.Opcode(out)))
	}

	var in byte
	if s.count >= 3 {
		in = s.tx[s.count-3]
	}

	s.rx[s.count] = out
	s.count++
	return in, nil
}

func (s *Sim) statusWord() uint32 {
	depth := len(s.fifo)
	if depth > 0xFF {
		depth = 0xFF
	}
	w := uint32(depth) << 16

	if s.Wedged || s.busy > 0 {
		if s.busy > 0 {
			s.busy--
		}
		return w
	}

	w |= bitDone
	if s.measured {
		w |= bitMeasureDone
	}
	if s.errCode != 0 {
		w |= bitError | uint32(s.errCode)
	}
	if s.warnCode != 0 {
		w |= bitWarning
	}
	return w
}

// response is the word clocked out during the data phase of a frame.
func (s *Sim) response(op admx.Opcode) uint32 {
	switch op {
	case admx.OpStatusRead:
		return s.statusWord()
	case admx.OpResultRead:
		return s.result
	case admx.OpFIFORead:
		if len(s.fifo) == 0 {
			return 0
		}
		w := s.fifo[0]
		s.fifo = s.fifo[1:]
		return w
	}
	return 0
}

func (s *Sim) queueRecords() {
	for _, m := range s.Records {
		rl, rm := admx.SplitFloat64(m.R)
		xl, xm := admx.SplitFloat64(m.X)
		s.fifo = append(s.fifo, rl, rm, xl, xm)
	}
}

func (s *Sim) gains() admx.Gains {
	return admx.Gains{Voltage: int(s.Regs[admx.OpVoltageGain]), Current: int(s.Regs[admx.OpCurrentGain])}
}

func bankOf(addr uint16) uint16 {
	return addr & 0x0F
}

func (s *Sim) checkPassword() bool {
	n := 0
	for n < len(s.password) && s.password[n] != 0 {
		n++
	}
	ok := string(s.password[:n]) == s.Password
	s.password = [admx.MaxPasswordLen]byte{}
	return ok
}

func (s *Sim) execute() {
	op := admx.Opcode(s.rx[0])
	addr := binary.BigEndian.Uint16(s.rx[1:3])
	data := binary.BigEndian.Uint32(s.rx[3:])

	if len(s.Frames) >= MaxFrames {
		s.Frames = append(s.Frames[:0], s.Frames[len(s.Frames)-MaxFrames/2:]...)
	}
	s.Frames = append(s.Frames, Frame{Opcode: op, Addr: addr, Data: data})

	switch op {
	case admx.OpStatusRead, admx.OpResultRead, admx.OpFIFORead:
		return
	case admx.OpClearError:
		s.errCode, s.warnCode = 0, 0
		return
	case admx.OpWarningRead:
		s.result = uint32(s.warnCode)
		s.warnCode = 0
		return
	}

	s.busy = s.BusyPolls
	s.errCode = s.ErrorOn[op]
	if code, ok := s.ErrorAt[Target{op, addr}]; ok {
		s.errCode = code
	}
	s.warnCode = s.WarnOn[op]
	s.measured = false

	switch op {
	case admx.OpFirmwareVersion:
		s.result = s.Firmware
	case admx.OpUniqueID:
		s.result = s.UniqueID[addr&1]
	case admx.OpSelfTestStatus:
		s.result = s.SelfTest
	case admx.OpRunSelfTest, admx.OpReset:
	case admx.OpAbort:
		s.fifo = nil
	case admx.OpZ:
		s.fifo = nil
		s.queueRecords()
		s.measured = true
	case admx.OpCalibrate:
		s.calibrate(addr, data)
	case admx.OpCalRead:
		s.calRead(addr)
	case admx.OpStoreCal:
		s.banks[addr] = data
		s.bankUsed[bankOf(addr)] = true
	case admx.OpResetCal:
		if addr == admx.MaskResetAllCal {
			s.banks = make(map[uint16]uint32)
			s.bankUsed = make(map[uint16]bool)
			s.calStatus = make(map[uint16]uint32)
		} else {
			delete(s.bankUsed, bankOf(addr))
			delete(s.calStatus, bankOf(addr))
		}
	case admx.OpCalCommit, admx.OpEraseCalibration:
		if addr < admx.MaxPasswordLen {
			s.password[addr] = byte(data)
		} else if addr == admx.AddrCalTrigger && !s.checkPassword() && s.errCode == 0 {
			s.errCode = admx.CodeFailed
		} else if op == admx.OpEraseCalibration && s.errCode == 0 {
			s.banks = make(map[uint16]uint32)
			s.bankUsed = make(map[uint16]bool)
		}
	default:
		if op&admx.ReadMask != 0 {
			s.result = s.Regs[op&^admx.ReadMask]
		} else if s.errCode == 0 {
			s.Regs[op] = data
		}
	}
}

func (s *Sim) calibrate(addr uint16, data uint32) {
	bank := s.gains()
	bits := admx.CoefficientAddress(0, bank, admx.HalfLSB)

	switch addr {
	case admx.AddrShortCal:
		s.calStatus[bits] |= 0x001
	case admx.AddrOpenCal:
		s.calStatus[bits] |= 0x010
	case admx.AddrLoadCal:
		s.calStatus[bits] |= 0x100
	case admx.AddrLoadSetRt:
		s.LoadRt = admx.WordFloat32(data)
		return
	case admx.AddrLoadSetXt:
		s.LoadXt = admx.WordFloat32(data)
		return
	case admx.AddrReloadCal:
		return
	}

	if s.errCode == 0 {
		s.queueRecords()
	}
}

func (s *Sim) calRead(addr uint16) {
	bank := bankOf(addr)
	if addr&^0x400F == 1<<9 {
		s.result = s.calStatus[bank]
		return
	}

	if !s.bankUsed[bank] {
		s.result = 0
		if s.errCode == 0 {
			s.errCode = admx.CodeInvalidCalCoeffType
		}
		return
	}
	s.result = s.banks[addr]
}

// SetBank stores a full coefficient bank the way a storecal sequence would.
func (s *Sim) SetBank(g admx.Gains, values [admx.NumCoefficients]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, v := range values {
		lsb, msb := admx.SplitFloat64(v)
		s.banks[admx.CoefficientAddress(admx.Coefficient(i), g, admx.HalfLSB)] = lsb
		s.banks[admx.CoefficientAddress(admx.Coefficient(i), g, admx.HalfMSB)] = msb
	}
	s.bankUsed[admx.CoefficientAddress(0, g, admx.HalfLSB)] = true
}

func (s *Sim) SetCalStatus(g admx.Gains, w uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calStatus[admx.CoefficientAddress(0, g, admx.HalfLSB)] = w
}

// Bank returns a coefficient as the chip holds it.
func (s *Sim) Bank(c admx.Coefficient, g admx.Gains) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return admx.JoinFloat64(s.banks[admx.CoefficientAddress(c, g, admx.HalfLSB)], s.banks[admx.CoefficientAddress(c, g, admx.HalfMSB)])
}

// QueueFIFO appends raw words to the FIFO.
func (s *Sim) QueueFIFO(words ...uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fifo = append(s.fifo, words...)
}

func (s *Sim) SetWedged(wedged bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Wedged = wedged
}

func (s *Sim) SetBusy(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.busy = n
}

// Commands returns the frames that carried a command, leaving out status,
// result and FIFO reads.
func (s *Sim) Commands() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cmds []Frame
	for _, m := range s.Frames {
		switch m.Opcode {
		case admx.OpStatusRead, admx.OpResultRead, admx.OpFIFORead:
			continue
		}
		cmds = append(cmds, m)
	}
	return cmds
}

func (s *Sim) ResetFrames() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Frames = nil
}
