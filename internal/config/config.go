// Package config loads the TOML configuration for the link bridge.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"packetlink/internal/packet"
)

type Config struct {
	Bridge    BridgeConfig    `toml:"bridge"`
	Serial    SerialConfig    `toml:"serial"`
	Console   ConsoleConfig   `toml:"console"`
	Transport TransportConfig `toml:"transport"`
	Log       LogConfig       `toml:"log"`
}

type BridgeConfig struct {
	Name        string `toml:"name"`
	MetricsAddr string `toml:"metrics_addr"`
}

type SerialConfig struct {
	Enabled  bool   `toml:"enabled"`
	Port     int    `toml:"port"` // 0 or 1
	Device   string `toml:"device"`
	BaudRate int    `toml:"baud_rate"`
	DataBits int    `toml:"data_bits"`
	Parity   string `toml:"parity"`    // none | odd | even
	StopBits int    `toml:"stop_bits"` // 1 | 2
	// FlowControl is none or hardware.
	FlowControl string `toml:"flow_control"`
	// Pin overrides; 0 or absent leaves the default mux.
	RxPin int `toml:"rx_pin"`
	TxPin int `toml:"tx_pin"`
}

type ConsoleConfig struct {
	Enabled bool `toml:"enabled"`
}

type TransportConfig struct {
	QueueCapacity  int `toml:"queue_capacity"`
	SendIntervalMS int `toml:"send_interval_ms"`
	MaxPacketSize  int `toml:"max_packet_size"`
}

type LogConfig struct {
	Level string `toml:"level"` // trace | debug | info | warn | error
}

// Load reads, defaults, and validates a bridge configuration file.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills absent fields with the device defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Bridge.Name == "" {
		cfg.Bridge.Name = "linkctl"
	}
	if cfg.Serial.BaudRate == 0 {
		cfg.Serial.BaudRate = 115200
	}
	if cfg.Serial.DataBits == 0 {
		cfg.Serial.DataBits = 8
	}
	if cfg.Serial.Parity == "" {
		cfg.Serial.Parity = "none"
	}
	if cfg.Serial.StopBits == 0 {
		cfg.Serial.StopBits = 1
	}
	if cfg.Serial.FlowControl == "" {
		cfg.Serial.FlowControl = "none"
	}
	if cfg.Transport.QueueCapacity == 0 {
		cfg.Transport.QueueCapacity = 16
	}
	if cfg.Transport.SendIntervalMS == 0 {
		cfg.Transport.SendIntervalMS = 20
	}
	if cfg.Transport.MaxPacketSize == 0 {
		cfg.Transport.MaxPacketSize = packet.MaxMTU
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate rejects configurations the adapters cannot honor.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Bridge.Name) == "" {
		return fmt.Errorf("bridge config missing name")
	}
	if cfg.Serial.Port != 0 && cfg.Serial.Port != 1 {
		return fmt.Errorf("serial port must be 0 or 1, got %d", cfg.Serial.Port)
	}
	switch cfg.Serial.Parity {
	case "none", "odd", "even":
	default:
		return fmt.Errorf("serial parity %q invalid (none|odd|even)", cfg.Serial.Parity)
	}
	if cfg.Serial.StopBits != 1 && cfg.Serial.StopBits != 2 {
		return fmt.Errorf("serial stop_bits must be 1 or 2, got %d", cfg.Serial.StopBits)
	}
	switch cfg.Serial.FlowControl {
	case "none", "hardware":
	default:
		return fmt.Errorf("serial flow_control %q invalid (none|hardware)", cfg.Serial.FlowControl)
	}
	if cfg.Serial.Enabled && strings.TrimSpace(cfg.Serial.Device) == "" {
		return fmt.Errorf("serial enabled but no device path configured")
	}
	if cfg.Transport.QueueCapacity < 1 {
		return fmt.Errorf("transport queue_capacity must be positive")
	}
	if cfg.Transport.SendIntervalMS < 1 {
		return fmt.Errorf("transport send_interval_ms must be positive")
	}
	if cfg.Transport.MaxPacketSize < 1 || cfg.Transport.MaxPacketSize > packet.MaxMTU {
		return fmt.Errorf("transport max_packet_size must be within (0, %d]", packet.MaxMTU)
	}
	return nil
}
