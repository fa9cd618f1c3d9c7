package config

import (
	"errors"
	"fmt"
	"strings"
)

var chipTypes = []string{"usb", "platform", "sim"}

// Validate checks a normalized configuration without changing it.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("no configuration")
	}

	if cfg.Chip.Path == "" {
		return errors.New("chip.path is required")
	}

	kind := strings.SplitN(cfg.Chip.Path, ":", 2)[0]
	known := false
	for _, m := range chipTypes {
		if m == kind {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("chip.path %q: unknown device type %q", cfg.Chip.Path, kind)
	}

	if t := cfg.Chip.Timing; t != nil {
		if t.IdleGapUs < 0 || t.SelectSettleUs < 0 || t.ByteGapUs < 0 || t.PollIntervalUs < 0 {
			return errors.New("chip.timing: values must not be negative")
		}
	}

	if cfg.Serial.Port != "" && cfg.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", cfg.Serial.Baud)
	}

	if cfg.HTTP.CommandTimeoutMs <= 0 {
		return fmt.Errorf("http.command_timeout_ms must be positive, got %d", cfg.HTTP.CommandTimeoutMs)
	}

	if cfg.MDNS.Interface != "" && cfg.MDNS.WaitIPMs <= 0 {
		return fmt.Errorf("mdns.wait_ip_ms must be positive, got %d", cfg.MDNS.WaitIPMs)
	}

	if cfg.Bridge.TickMs <= 0 {
		return fmt.Errorf("bridge.tick_ms must be positive, got %d", cfg.Bridge.TickMs)
	}
	if cfg.Bridge.ResetDelayMs < 0 {
		return fmt.Errorf("bridge.reset_delay_ms must not be negative, got %d", cfg.Bridge.ResetDelayMs)
	}

	return nil
}
