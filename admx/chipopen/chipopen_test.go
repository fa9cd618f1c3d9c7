package chipopen

import (
	"errors"
	"testing"

	"periph.io/x/conn/v3/physic"
)

// shiftSlave is a mode 0 SPI slave: it samples MOSI on the rising edge and
// moves to the next bit of its output on the falling edge.
type shiftSlave struct {
	out []byte
	in  []byte

	sck    bool
	bit    int
	rx     byte
	failAt int
	calls  int
}

func (s *shiftSlave) write(sck bool, mosi bool) error {
	s.calls++
	if s.failAt > 0 && s.calls == s.failAt {
		return errors.New("bus gone")
	}

	if sck && !s.sck {
		s.rx <<= 1
		if mosi {
			s.rx |= 1
		}
	}
	if !sck && s.sck {
		s.bit++
		if s.bit%8 == 0 {
			s.in = append(s.in, s.rx)
		}
	}
	s.sck = sck
	return nil
}

func (s *shiftSlave) read() (bool, error) {
	b := s.bit / 8
	if b >= len(s.out) {
		return false, nil
	}
	return s.out[b]&(0x80>>uint(s.bit%8)) != 0, nil
}

func TestBitBangTransfer(t *testing.T) {
	slave := &shiftSlave{out: []byte{0x5A, 0xC3}}
	bus := &bitBang{write: slave.write, read: slave.read}

	for i, m := range []struct {
		out byte
		in  byte
	}{{0xA5, 0x5A}, {0x3C, 0xC3}} {
		in, err := bus.transfer(m.out)
		if err != nil {
			t.Fatalf("Byte %d: %v", i, err)
		}
		if in != m.in {
			t.Fatalf("Byte %d: got %02x, expected %02x", i, in, m.in)
		}
	}

	if len(slave.in) != 2 || slave.in[0] != 0xA5 || slave.in[1] != 0x3C {
		t.Fatalf("Slave received %x", slave.in)
	}

	if slave.sck {
		t.Fatal("Clock did not return to idle")
	}
}

func TestBitBangError(t *testing.T) {
	slave := &shiftSlave{out: []byte{0xFF}, failAt: 5}
	bus := &bitBang{write: slave.write, read: slave.read}

	if _, err := bus.transfer(0x00); err == nil {
		t.Fatal("Expected bus error")
	}
}

func TestGetPart(t *testing.T) {
	parts := []string{"platform", "SPI0.0", ""}

	if m := getPart(parts, 1, "x"); m != "SPI0.0" {
		t.Fatalf("Got %q", m)
	}
	if m := getPart(parts, 2, "GPIO25"); m != "GPIO25" {
		t.Fatalf("Empty part not defaulted: %q", m)
	}
	if m := getPart(parts, 5, "1MHz"); m != "1MHz" {
		t.Fatalf("Missing part not defaulted: %q", m)
	}
}

func TestParseFrequency(t *testing.T) {
	f, err := parseFrequency("1MHz")
	if err != nil {
		t.Fatal(err)
	}
	if f != physic.MegaHertz {
		t.Fatalf("Got %v", f)
	}

	if _, err := parseFrequency("fast"); err == nil {
		t.Fatal("Expected parse error")
	}
	if _, err := parseFrequency("0Hz"); err == nil {
		t.Fatal("Expected error for zero frequency")
	}
}

func TestOpenChipSim(t *testing.T) {
	chip, err := OpenChip("sim", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer chip.Close()

	info, err := chip.ReadChipInfo()
	if err != nil {
		t.Fatal(err)
	}

	if info.Firmware() != "1.2.3" {
		t.Fatalf("Got firmware %s", info.Firmware())
	}
}

func TestOpenChipUnknown(t *testing.T) {
	if _, err := OpenChip("serial:/dev/ttyUSB0", nil); err == nil {
		t.Fatal("Expected error for unknown device type")
	}

	if _, err := OpenChip("usb::nope", nil); err == nil {
		t.Fatal("Expected error for bad product id")
	}
}
