package bridgeclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/grandcat/zeroconf"
)

// ServiceName is the DNS-SD service type announced by bridge servers.
const ServiceName = "_admx-bridge._tcp"

type DiscoveryResult struct {
	BoardID  string
	Firmware string
	Addr     string
}

func parseEntry(m *zeroconf.ServiceEntry) (DiscoveryResult, bool) {
	var result DiscoveryResult

	for _, m := range m.Text {
		kv := strings.SplitN(m, "=", 2)
		if len(kv) != 2 {
			continue
		}

		switch strings.ToLower(kv[0]) {
		case "boardid":
			result.BoardID = kv[1]
		case "fw":
			result.Firmware = kv[1]
		}
	}

	if result.BoardID == "" {
		return result, false
	}

	var addr string
	if len(m.AddrIPv4) > 0 {
		addr = m.AddrIPv4[0].String()
	} else if len(m.AddrIPv6) > 0 {
		addr = "[" + m.AddrIPv6[0].String() + "]"
	} else {
		return result, false
	}

	result.Addr = fmt.Sprintf("%s:%d", addr, m.Port)
	return result, true
}

// Discover browses the local network until a bridge matching boardID shows up
// or ctx expires. An empty boardID accepts any bridge.
func Discover(ctx context.Context, boardID string) (DiscoveryResult, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return DiscoveryResult{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, ServiceName, "local", results); err != nil {
		return DiscoveryResult{}, err
	}

	for m := range results {
		result, ok := parseEntry(m)
		if !ok {
			continue
		}

		if boardID != "" && !strings.EqualFold(result.BoardID, boardID) {
			continue
		}

		return result, nil
	}

	return DiscoveryResult{}, errors.New("no results")
}
