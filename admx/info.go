package admx

import (
	"errors"
	"fmt"
)

type ChipInfo struct {
	FirmwareMajor byte
	FirmwareMinor byte
	FirmwarePatch byte

	BoardIDHigh uint32
	BoardIDLow  uint32
}

func (i ChipInfo) Firmware() string {
	return fmt.Sprintf("%d.%d.%d", i.FirmwareMajor, i.FirmwareMinor, i.FirmwarePatch)
}

func (i ChipInfo) BoardID() string {
	return fmt.Sprintf("%08X%08X", i.BoardIDHigh, i.BoardIDLow)
}

func (i ChipInfo) String() string {
	return fmt.Sprintf("Type=ADMX2001 Firmware=%s BoardID=%s", i.Firmware(), i.BoardID())
}

// FirmwareFromWord unpacks the FW_VERSION result: major, minor and patch in bytes 3..1.
func FirmwareFromWord(w uint32) (byte, byte, byte) {
	return byte(w >> 24), byte(w >> 16), byte(w >> 8)
}

func (c *Chip) ReadChipInfo() (ChipInfo, error) {
	var info ChipInfo

	c.workMutex.Lock()
	defer c.workMutex.Unlock()

	check := func(s Status, err error) error {
		if err != nil {
			return err
		}
		if !s.Done {
			return errors.New("chip did not respond")
		}
		if s.Error {
			return fmt.Errorf("chip error: %03x", s.ErrorCode)
		}
		return nil
	}

	fw, s, err := c.op(OpFirmwareVersion, 0, 0, Read, DefaultMaxAttempts)
	if err = check(s, err); err != nil {
		return info, err
	}
	info.FirmwareMajor, info.FirmwareMinor, info.FirmwarePatch = FirmwareFromWord(fw)

	info.BoardIDHigh, s, err = c.op(OpUniqueID, 1, 0, Read, DefaultMaxAttempts)
	if err = check(s, err); err != nil {
		return info, err
	}

	info.BoardIDLow, s, err = c.op(OpUniqueID, 0, 0, Read, DefaultMaxAttempts)
	return info, check(s, err)
}
