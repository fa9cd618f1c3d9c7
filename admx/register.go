package admx

type Mode int

const (
	Write Mode = iota
	Read
)

// DefaultMaxAttempts is the status poll budget used when the caller has no reason to wait less.
const DefaultMaxAttempts = 40

// BusFailure is the status a caller can substitute when a transaction failed on
// the bus itself. It reads as a completed command with CodeFailed.
func BusFailure() Status {
	return Status{Done: true, Error: true, ErrorCode: CodeFailed}
}

// poll reads the status register until the done flag shows up or maxAttempts
// reads were made. The caller must hold workMutex.
func (c *Chip) poll(maxAttempts int) (Status, error) {
	var raw uint32
	var err error

	for i := 0; i < maxAttempts; i++ {
		raw, err = c.frame(OpStatusRead, 0, 0)
		if err != nil {
			return Status{}, err
		}

		if raw&statusDone != 0 {
			break
		}

		c.delay(c.timing.PollInterval)
	}

	return DecodeStatus(raw), nil
}

func (c *Chip) fetchWarnings(s *Status) error {
	s.WarningCode = 0
	if !s.Warning {
		return nil
	}

	if _, err := c.frame(OpWarningRead, 0, 0); err != nil {
		return err
	}

	// The flags of s stay those of the command, only the codes are taken over.
	if _, err := c.poll(DefaultMaxAttempts); err != nil {
		return err
	}

	codes, err := c.frame(OpResultRead, 0, 0)
	if err != nil {
		return err
	}

	s.WarningCode = uint16(codes) & WarningCodeMask
	return nil
}

func (c *Chip) op(opcode Opcode, addr uint16, data uint32, mode Mode, maxAttempts int) (uint32, Status, error) {
	if _, err := c.frame(opcode, addr, data); err != nil {
		return 0, Status{}, err
	}

	s, err := c.poll(maxAttempts)
	if err != nil {
		return 0, Status{}, err
	}

	var value uint32
	if mode == Read {
		if value, err = c.frame(OpResultRead, 0, 0); err != nil {
			return 0, Status{}, err
		}
	}

	if err := c.fetchWarnings(&s); err != nil {
		return 0, Status{}, err
	}

	return value, s, nil
}

// Op runs one parameterized register access: the command frame, a status poll
// of at most maxAttempts reads, the result read for Read mode and the warning
// register when the poll reported warnings. Errors and warnings are returned in
// the status snapshot, the error return is reserved for bus failures.
func (c *Chip) Op(opcode Opcode, addr uint16, data uint32, mode Mode, maxAttempts int) (uint32, Status, error) {
	c.workMutex.Lock()
	defer c.workMutex.Unlock()

	return c.op(opcode, addr, data, mode, maxAttempts)
}

func (c *Chip) ReadReg(opcode Opcode, addr uint16) (uint32, Status, error) {
	return c.Op(opcode, addr, 0, Read, DefaultMaxAttempts)
}

func (c *Chip) WriteReg(opcode Opcode, addr uint16, data uint32) (Status, error) {
	_, s, err := c.Op(opcode, addr, data, Write, DefaultMaxAttempts)
	return s, err
}

// Poll reads the status register at most maxAttempts times without issuing a command.
func (c *Chip) Poll(maxAttempts int) (Status, error) {
	c.workMutex.Lock()
	defer c.workMutex.Unlock()

	return c.poll(maxAttempts)
}

// CheckStatus samples the status once and fetches the warning codes if needed.
func (c *Chip) CheckStatus() (Status, error) {
	c.workMutex.Lock()
	defer c.workMutex.Unlock()

	s, err := c.poll(1)
	if err != nil {
		return s, err
	}

	return s, c.fetchWarnings(&s)
}

func (c *Chip) ClearErrors() (Status, error) {
	c.workMutex.Lock()
	defer c.workMutex.Unlock()

	if _, err := c.frame(OpClearError, 0, 0); err != nil {
		return Status{}, err
	}

	return c.poll(DefaultMaxAttempts)
}
