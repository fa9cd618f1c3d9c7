package admx

import (
	"errors"
	"math"
)

// Coefficient is one of the twelve AC calibration coefficients of a gain bank.
type Coefficient int

const (
	CoeffRo Coefficient = iota
	CoeffXo
	CoeffGo
	CoeffBo
	CoeffRs
	CoeffXs
	CoeffGs
	CoeffBs
	CoeffRg
	CoeffXg
	CoeffGg
	CoeffBg

	NumCoefficients = 12
)

var coefficientNames = [NumCoefficients]string{"Ro", "Xo", "Go", "Bo", "Rs", "Xs", "Gs", "Bs", "Rg", "Xg", "Gg", "Bg"}

// DefaultCoefficients are the values the chip applies to a bank that was never calibrated.
var DefaultCoefficients = [NumCoefficients]float64{1e6, 1e6, 0, 0, 0, 0, 1e6, 1e6, -1e6, -1e6, -1e6, -1e6}

func (c Coefficient) String() string {
	if c < 0 || c >= NumCoefficients {
		return "invalid"
	}
	return coefficientNames[c]
}

func ParseCoefficient(name string) (Coefficient, bool) {
	for i, m := range coefficientNames {
		if m == name {
			return Coefficient(i), true
		}
	}
	return 0, false
}

// Half selects the 32 bit word of a 64 bit coefficient.
type Half uint16

const (
	HalfLSB Half = 0x0000
	HalfMSB Half = 0x4000
)

const (
	calSlotShift  = 10
	calCodeShift  = 9
	calCodeStatus = 0b00001

	calShortDone uint32 = 0x00F
	calOpenDone  uint32 = 0x0F0
	calLoadDone  uint32 = 0xF00
)

// Gains is the voltage/current gain pair selecting one of the 4x4 calibration banks.
type Gains struct {
	Voltage int
	Current int
}

func (g Gains) bits() uint16 {
	return uint16(g.Current&3)<<2 | uint16(g.Voltage&3)
}

// CoefficientAddress is the CAL_READ/STORE_CAL address of one half of a coefficient.
func CoefficientAddress(c Coefficient, g Gains, h Half) uint16 {
	return uint16(c)<<calSlotShift | uint16(h) | g.bits()
}

func calStatusAddress(g Gains) uint16 {
	return calCodeStatus<<calCodeShift | g.bits()
}

func Float32Word(f float32) uint32 {
	return math.Float32bits(f)
}

func WordFloat32(w uint32) float32 {
	return math.Float32frombits(w)
}

// SplitFloat64 returns the two register words carrying the bit pattern of v.
func SplitFloat64(v float64) (lsb uint32, msb uint32) {
	bits := math.Float64bits(v)
	return uint32(bits), uint32(bits >> 32)
}

func JoinFloat64(lsb uint32, msb uint32) float64 {
	return math.Float64frombits(uint64(msb)<<32 | uint64(lsb))
}

type CalStatus struct {
	Short bool
	Open  bool
	Load  bool
}

func decodeCalStatus(w uint32) CalStatus {
	return CalStatus{
		Short: w&calShortDone != 0,
		Open:  w&calOpenDone != 0,
		Load:  w&calLoadDone != 0,
	}
}

// ProbeBank reports whether the bank holds calibration data. The chip answers
// the Ro read of an empty bank with an error.
func (c *Chip) ProbeBank(g Gains) (bool, Status, error) {
	_, s, err := c.ReadReg(OpCalRead, CoefficientAddress(CoeffRo, g, HalfLSB))
	if err != nil {
		return false, s, err
	}

	return !s.Error, s, nil
}

func (c *Chip) ReadCoefficient(coeff Coefficient, g Gains) (float64, Status, error) {
	c.workMutex.Lock()
	defer c.workMutex.Unlock()

	lsb, s, err := c.op(OpCalRead, CoefficientAddress(coeff, g, HalfLSB), 0, Read, DefaultMaxAttempts)
	if err != nil {
		return 0, Status{}, err
	}

	msb, sMSB, err := c.op(OpCalRead, CoefficientAddress(coeff, g, HalfMSB), 0, Read, DefaultMaxAttempts)
	if err != nil {
		return 0, Status{}, err
	}

	// The first half that failed decides the status.
	if !s.Error {
		s = sMSB
	}

	return JoinFloat64(lsb, msb), s, nil
}

func (c *Chip) ReadCalStatus(g Gains) (CalStatus, Status, error) {
	w, s, err := c.ReadReg(OpCalRead, calStatusAddress(g))
	if err != nil {
		return CalStatus{}, s, err
	}

	return decodeCalStatus(w), s, nil
}

// ReadGains returns the gain pair currently selected on the chip.
func (c *Chip) ReadGains() (Gains, error) {
	v, _, err := c.ReadReg(OpVoltageGain.Read(), 0)
	if err != nil {
		return Gains{}, err
	}

	i, _, err := c.ReadReg(OpCurrentGain.Read(), 0)
	if err != nil {
		return Gains{}, err
	}

	return Gains{Voltage: int(v & 3), Current: int(i & 3)}, nil
}

// Impedance is one measurement record drained from the FIFO.
type Impedance struct {
	R float64
	X float64
}

const FIFORecordWords = 4

// ReadImpedance pulls one record (four FIFO words, low word first per value).
func (c *Chip) ReadImpedance() (Impedance, error) {
	c.workMutex.Lock()
	defer c.workMutex.Unlock()

	var words [FIFORecordWords]uint32
	for i := range words {
		w, err := c.frame(OpFIFORead, 0, 0)
		if err != nil {
			return Impedance{}, err
		}
		words[i] = w
	}

	return Impedance{
		R: JoinFloat64(words[0], words[1]),
		X: JoinFloat64(words[2], words[3]),
	}, nil
}

var errPasswordEmpty = errors.New("empty password")

// WritePassword stores a commit/erase password one character per slot, at most
// MaxPasswordLen characters are sent. The callback sees the status of every
// character write.
func (c *Chip) WritePassword(opcode Opcode, password string, report func(Status)) error {
	if len(password) == 0 {
		return errPasswordEmpty
	}
	if len(password) > MaxPasswordLen {
		password = password[:MaxPasswordLen]
	}

	c.workMutex.Lock()
	defer c.workMutex.Unlock()

	for i := 0; i < len(password); i++ {
		_, s, err := c.op(opcode, uint16(i), uint32(password[i]), Write, DefaultMaxAttempts)
		if err != nil {
			return err
		}
		if report != nil {
			report(s)
		}
	}

	return nil
}
