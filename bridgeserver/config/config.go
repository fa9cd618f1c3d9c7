// Package config holds the YAML configuration of the bridge server.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BertoldVdb/ADMXBridge/admx"
	"github.com/BertoldVdb/ADMXBridge/bridge"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Chip   ChipConfig   `yaml:"chip"`
	Serial SerialConfig `yaml:"serial"`
	HTTP   HTTPConfig   `yaml:"http"`
	MDNS   MDNSConfig   `yaml:"mdns"`
	Bridge BridgeConfig `yaml:"bridge"`
}

type ChipConfig struct {
	Path string `yaml:"path"`

	// Frame timing (optional, defaults to admx.DefaultTiming)
	Timing *TimingConfig `yaml:"timing"`
}

type TimingConfig struct {
	IdleGapUs      int `yaml:"idle_gap_us"`
	SelectSettleUs int `yaml:"select_settle_us"`
	ByteGapUs      int `yaml:"byte_gap_us"`
	PollIntervalUs int `yaml:"poll_interval_us"`
}

type SerialConfig struct {
	// Port is optional, without it commands only arrive over HTTP.
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

type HTTPConfig struct {
	Addr             string `yaml:"addr"`
	CommandTimeoutMs int    `yaml:"command_timeout_ms"`
	// APIKey enables HTTP basic authentication when set.
	APIKey string `yaml:"api_key"`
}

type MDNSConfig struct {
	// Interface is optional, announcing is off without it.
	Interface string `yaml:"interface"`
	Name      string `yaml:"name"`
	WaitIPMs  int    `yaml:"wait_ip_ms"`
}

type BridgeConfig struct {
	TickMs       int `yaml:"tick_ms"`
	ResetDelayMs int `yaml:"reset_delay_ms"`
}

const (
	DefaultBaud             = 115200
	DefaultAddr             = ":8067"
	DefaultCommandTimeoutMs = 30000
	DefaultMDNSName         = "admx-bridge"
	DefaultWaitIPMs         = 10000
)

// Default returns a configuration with every default filled in and the
// simulator as chip.
func Default() *Config {
	cfg := &Config{Chip: ChipConfig{Path: "sim"}}
	Normalize(cfg)
	return cfg
}

// Load reads a YAML file. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := &Config{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

func us(v int) time.Duration {
	return time.Duration(v) * time.Microsecond
}

// FrameTiming converts the timing block. It returns nil when no block was given.
func (c ChipConfig) FrameTiming() *admx.Timing {
	if c.Timing == nil {
		return nil
	}

	return &admx.Timing{
		IdleGap:      us(c.Timing.IdleGapUs),
		SelectSettle: us(c.Timing.SelectSettleUs),
		ByteGap:      us(c.Timing.ByteGapUs),
		PollInterval: us(c.Timing.PollIntervalUs),
	}
}

func (c HTTPConfig) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutMs) * time.Millisecond
}

func (c MDNSConfig) WaitIP() time.Duration {
	return time.Duration(c.WaitIPMs) * time.Millisecond
}

func (c BridgeConfig) Options() *bridge.Options {
	return &bridge.Options{
		TickPeriod: uint32(c.TickMs),
		ResetDelay: time.Duration(c.ResetDelayMs) * time.Millisecond,
	}
}
