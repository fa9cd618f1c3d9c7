// Package admx implements a Golang module to talk to an Analog Devices ADMX2001
// precision impedance analyzer over its SPI command interface. Every transaction
// is a fixed 56 bit frame: opcode, 16 bit address and 32 bit data, with the
// response clocked out during the data phase.
package admx

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

type LogFunc func(format string, params ...interface{})

// TransferFuncType clocks one byte out on the bus and returns the byte clocked in.
type TransferFuncType func(out byte) (byte, error)

// SelectFuncType drives the chip select line, active means asserted (low).
type SelectFuncType func(active bool) error

type CloseFuncType func() error

// Timing holds the minimum gaps the chip needs around and inside a frame.
type Timing struct {
	IdleGap      time.Duration
	SelectSettle time.Duration
	ByteGap      time.Duration
	PollInterval time.Duration
}

var DefaultTiming = Timing{
	IdleGap:      40 * time.Microsecond,
	SelectSettle: 4 * time.Microsecond,
	ByteGap:      4 * time.Microsecond,
	PollInterval: 25 * time.Microsecond,
}

const FrameLen = 7

type Chip struct {
	xferFunc   TransferFuncType
	selectFunc SelectFuncType
	closeFunc  CloseFuncType
	timing     Timing

	workMutex sync.Mutex
	lastFrame time.Time
	closed    bool

	logFunc LogFunc
}

func (c *Chip) log(format string, params ...interface{}) {
	if c.logFunc != nil {
		c.logFunc(" * "+format, params...)
	}
}

// New creates a chip driver on top of a byte transfer function. A nil timing
// selects DefaultTiming. The error state of the chip is cleared before returning.
// closeFunc has already been called when New fails after the argument check.
func New(xferFunc TransferFuncType, selectFunc SelectFuncType, closeFunc CloseFuncType, timing *Timing, logFunc LogFunc) (*Chip, error) {
	if xferFunc == nil {
		return nil, errors.New("no transfer function")
	}

	c := &Chip{
		xferFunc:   xferFunc,
		selectFunc: selectFunc,
		closeFunc:  closeFunc,
		timing:     DefaultTiming,

		logFunc: logFunc,
	}

	if timing != nil {
		c.timing = *timing
	}

	if c.selectFunc == nil {
		c.selectFunc = func(bool) error { return nil }
	}

	if err := c.selectFunc(false); err != nil {
		c.Close()
		return nil, err
	}

	if _, err := c.ClearErrors(); err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

func (c *Chip) Close() error {
	c.workMutex.Lock()
	defer c.workMutex.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.closeFunc != nil {
		return c.closeFunc()
	}
	return nil
}

func (c *Chip) delay(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// frame performs one exchange. The caller must hold workMutex.
func (c *Chip) frame(opcode Opcode, addr uint16, data uint32) (uint32, error) {
	if c.closed {
		return 0, errors.New("device is closed")
	}

	var tx, rx [FrameLen]byte
	tx[0] = byte(opcode)
	binary.BigEndian.PutUint16(tx[1:3], addr)
	binary.BigEndian.PutUint32(tx[3:], data)

	if wait := c.timing.IdleGap - time.Since(c.lastFrame); wait > 0 {
		c.delay(wait)
	}

	if err := c.selectFunc(true); err != nil {
		return 0, err
	}
	c.delay(c.timing.SelectSettle)

	var err error
	for i := range tx {
		if i > 0 {
			c.delay(c.timing.ByteGap)
		}
		if rx[i], err = c.xferFunc(tx[i]); err != nil {
			break
		}
	}

	c.delay(c.timing.SelectSettle)
	if errDeselect := c.selectFunc(false); err == nil {
		err = errDeselect
	}
	c.lastFrame = time.Now()

	if err != nil {
		return 0, err
	}

	result := binary.BigEndian.Uint32(rx[3:])
	if opcode != OpStatusRead {
		c.log("Frame %s -> %08x", hex.EncodeToString(tx[:]), result)
	}

	return result, nil
}

// Frame exchanges a single raw frame with the chip and returns the response word.
func (c *Chip) Frame(opcode Opcode, addr uint16, data uint32) (uint32, error) {
	c.workMutex.Lock()
	defer c.workMutex.Unlock()

	return c.frame(opcode, addr, data)
}
