package config

import (
	"time"

	"packetlink/internal/serial"
	"packetlink/internal/transport"
)

// Runtime converts the TOML transport section into the queue/pacing tuning
// the transport machinery consumes.
func (t TransportConfig) Runtime() transport.Config {
	return transport.Config{
		MaxPacketSize: t.MaxPacketSize,
		QueueCapacity: t.QueueCapacity,
		SendInterval:  time.Duration(t.SendIntervalMS) * time.Millisecond,
	}
}

// PortID maps the configured port number onto a hardware identity.
func (s SerialConfig) PortID() serial.PortID {
	if s.Port == 1 {
		return serial.Port1
	}
	return serial.Port0
}

// Line converts the TOML serial section into the adapter's line
// configuration. A pin value of 0 is treated as unassigned.
func (s SerialConfig) Line() serial.Config {
	cfg := serial.Config{
		Device:   s.Device,
		BaudRate: s.BaudRate,
		DataBits: s.DataBits,
		RxPin:    s.RxPin,
		TxPin:    s.TxPin,
	}
	if cfg.RxPin == 0 {
		cfg.RxPin = -1
	}
	if cfg.TxPin == 0 {
		cfg.TxPin = -1
	}
	switch s.Parity {
	case "odd":
		cfg.Parity = serial.OddParity
	case "even":
		cfg.Parity = serial.EvenParity
	default:
		cfg.Parity = serial.NoParity
	}
	if s.StopBits == 2 {
		cfg.StopBits = serial.TwoStopBits
	}
	if s.FlowControl == "hardware" {
		cfg.FlowControl = serial.HardwareFlowControl
	}
	return cfg
}
