// Package discovery announces a bridge server over multicast DNS.
package discovery

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/BertoldVdb/ADMXBridge/admx"
	"github.com/BertoldVdb/ADMXBridge/bridge/bridgeclient"
	"github.com/grandcat/zeroconf"
)

type Announcer struct {
	name      string
	port      int
	txtRecord []string

	currentAddr string
	server      *zeroconf.Server
}

func NewAnnouncer(name string, port int, info admx.ChipInfo) *Announcer {
	if name == "" {
		name = "admx-bridge"
	}

	a := &Announcer{
		txtRecord: []string{"boardid=unset", "fw=unset"},
		name:      name,
		port:      port,
	}

	a.SetInfo(info)

	return a
}

// SetInfo updates the TXT record, also while announcing.
func (a *Announcer) SetInfo(info admx.ChipInfo) {
	a.txtRecord[0] = "boardid=" + info.BoardID()
	a.txtRecord[1] = "fw=" + info.Firmware()

	if a.server != nil {
		a.server.SetText(a.txtRecord)
	}
}

func (a *Announcer) TXTRecord() []string {
	return append([]string(nil), a.txtRecord...)
}

func (a *Announcer) Stop() {
	if a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
	a.currentAddr = ""
}

func getIfaceAddressV4(iface *net.Interface) (string, error) {
	addrs, err := iface.Addrs()
	if err != nil {
		return "", err
	}

	for _, m := range addrs {
		k, ok := m.(*net.IPNet)
		if ok {
			if k.IP.To4() == nil {
				continue
			}

			return k.IP.String(), nil
		}
	}

	return "", nil
}

func getIfaceAddressV4Timeout(iface *net.Interface, maxWaitIP time.Duration) (string, error) {
	for deadline := time.Now().Add(maxWaitIP); time.Now().Before(deadline); {
		addr, err := getIfaceAddressV4(iface)
		if err != nil {
			return "", err
		}

		if addr != "" {
			return addr, nil
		}

		time.Sleep(250 * time.Millisecond)
	}

	return "", errors.New("timeout waiting for IPv4 address")
}

// Start announces the service on ifaceName, waiting at most maxWaitIP for the
// interface to get an IPv4 address.
func (a *Announcer) Start(ifaceName string, maxWaitIP time.Duration) error {
	a.Stop()

	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return err
	}

	addr, err := getIfaceAddressV4Timeout(iface, maxWaitIP)
	if err != nil {
		return err
	}

	server, err := zeroconf.RegisterProxy(a.name, bridgeclient.ServiceName, "local.", a.port, a.name, []string{addr}, a.txtRecord, []net.Interface{*iface})
	if err != nil {
		return err
	}
	server.TTL(60)

	a.currentAddr = net.JoinHostPort(addr, strconv.Itoa(a.port))
	a.server = server
	return nil
}

func (a *Announcer) CurrentAddress() string {
	return a.currentAddr
}

// PortFromAddr extracts the TCP port from a listen address such as ":8067".
func PortFromAddr(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port in address %q", addr)
	}

	return port, nil
}
