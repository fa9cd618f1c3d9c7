package config

import (
	"strings"
	"testing"
	"time"
)

func TestParse_Full(t *testing.T) {
	cfg, err := Parse([]byte(`
chip:
  path: platform:SPI0.0:GPIO25:2MHz
  timing:
    idle_gap_us: 50
    select_settle_us: 5
    byte_gap_us: 5
    poll_interval_us: 30
serial:
  port: /dev/ttyUSB0
http:
  addr: ":9000"
  api_key: secret
mdns:
  interface: eth0
bridge:
  tick_ms: 10
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	Normalize(cfg)
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Serial.Baud != DefaultBaud {
		t.Fatalf("baud not defaulted: %d", cfg.Serial.Baud)
	}
	if cfg.HTTP.Addr != ":9000" {
		t.Fatalf("addr overwritten: %s", cfg.HTTP.Addr)
	}
	if cfg.HTTP.APIKey != "secret" {
		t.Fatalf("api key not parsed: %q", cfg.HTTP.APIKey)
	}

	timing := cfg.Chip.FrameTiming()
	if timing == nil || timing.IdleGap != 50*time.Microsecond || timing.PollInterval != 30*time.Microsecond {
		t.Fatalf("bad timing: %+v", timing)
	}

	opts := cfg.Bridge.Options()
	if opts.TickPeriod != 10 || opts.ResetDelay != 80*time.Millisecond {
		t.Fatalf("bad bridge options: %+v", opts)
	}
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := Parse([]byte("chip:\n  path: sim\n  speed: 1\n"))
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Chip.FrameTiming() != nil {
		t.Fatalf("default timing should be left to the driver")
	}
	if cfg.Serial.Baud != 0 {
		t.Fatalf("baud set without a port: %d", cfg.Serial.Baud)
	}
	if cfg.HTTP.CommandTimeout() != 30*time.Second {
		t.Fatalf("bad timeout: %v", cfg.HTTP.CommandTimeout())
	}
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no chip", func(c *Config) { c.Chip.Path = "" }, "chip.path"},
		{"unknown chip", func(c *Config) { c.Chip.Path = "i2c:1" }, "unknown device type"},
		{"negative timing", func(c *Config) { c.Chip.Timing = &TimingConfig{ByteGapUs: -1} }, "chip.timing"},
		{"bad baud", func(c *Config) { c.Serial.Port = "/dev/ttyS0"; c.Serial.Baud = -9600 }, "serial.baud"},
		{"bad timeout", func(c *Config) { c.HTTP.CommandTimeoutMs = -1 }, "command_timeout_ms"},
		{"bad wait", func(c *Config) { c.MDNS.Interface = "eth0"; c.MDNS.WaitIPMs = -1 }, "wait_ip_ms"},
		{"bad tick", func(c *Config) { c.Bridge.TickMs = -5 }, "tick_ms"},
	}

	for _, tc := range cases {
		cfg := Default()
		tc.mutate(cfg)

		err := Validate(cfg)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
	}
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for missing chip path")
	}
}
