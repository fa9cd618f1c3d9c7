package discovery

import (
	"net"
	"testing"

	"github.com/BertoldVdb/ADMXBridge/admx"
)

func TestTXTRecord(t *testing.T) {
	info := admx.ChipInfo{
		FirmwareMajor: 1,
		FirmwareMinor: 4,
		FirmwarePatch: 2,
		BoardIDHigh:   0x01234567,
		BoardIDLow:    0x89ABCDEF,
	}

	a := NewAnnouncer("", 8067, info)
	txt := a.TXTRecord()

	if len(txt) != 2 || txt[0] != "boardid=0123456789ABCDEF" || txt[1] != "fw=1.4.2" {
		t.Fatalf("Unexpected TXT record: %v", txt)
	}

	if a.name != "admx-bridge" {
		t.Fatalf("Name not defaulted: %s", a.name)
	}

	info.FirmwarePatch = 3
	a.SetInfo(info)
	if m := a.TXTRecord()[1]; m != "fw=1.4.3" {
		t.Fatalf("TXT record not updated: %s", m)
	}

	a.Stop()
	if a.CurrentAddress() != "" {
		t.Fatal("Address set while not announcing")
	}
}

func TestPortFromAddr(t *testing.T) {
	for _, m := range []struct {
		addr string
		port int
		ok   bool
	}{
		{":8067", 8067, true},
		{"127.0.0.1:80", 80, true},
		{"[::1]:443", 443, true},
		{"localhost", 0, false},
		{":http", 0, false},
		{":70000", 0, false},
	} {
		port, err := PortFromAddr(m.addr)
		if (err == nil) != m.ok {
			t.Fatalf("%s: unexpected error state: %v", m.addr, err)
		}
		if port != m.port {
			t.Fatalf("%s: got port %d", m.addr, port)
		}
	}
}

func TestIfaceAddressLoopback(t *testing.T) {
	ifaces, err := net.Interfaces()
	if err != nil {
		t.Skip(err)
	}

	for _, m := range ifaces {
		if m.Flags&net.FlagLoopback == 0 {
			continue
		}

		addr, err := getIfaceAddressV4(&m)
		if err != nil {
			t.Fatal(err)
		}
		if addr != "" && net.ParseIP(addr).To4() == nil {
			t.Fatalf("Not an IPv4 address: %s", addr)
		}
		return
	}

	t.Skip("no loopback interface")
}
