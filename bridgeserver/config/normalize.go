package config

import (
	"strings"

	"github.com/BertoldVdb/ADMXBridge/bridge"
)

// Normalize fills in defaults for every field left at its zero value. Call it
// before Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Chip.Path = strings.TrimSpace(cfg.Chip.Path)

	if cfg.Serial.Port != "" && cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = DefaultBaud
	}

	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = DefaultAddr
	}
	if cfg.HTTP.CommandTimeoutMs == 0 {
		cfg.HTTP.CommandTimeoutMs = DefaultCommandTimeoutMs
	}

	if cfg.MDNS.Name == "" {
		cfg.MDNS.Name = DefaultMDNSName
	}
	if cfg.MDNS.WaitIPMs == 0 {
		cfg.MDNS.WaitIPMs = DefaultWaitIPMs
	}

	if cfg.Bridge.TickMs == 0 {
		cfg.Bridge.TickMs = int(bridge.DefaultOptions.TickPeriod)
	}
	if cfg.Bridge.ResetDelayMs == 0 {
		cfg.Bridge.ResetDelayMs = int(bridge.DefaultOptions.ResetDelay.Milliseconds())
	}
}
