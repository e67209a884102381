package serial

import (
	"errors"
	"time"

	"go.bug.st/serial"
)

var errNotOpen = errors.New("serial: port not open")

// hostDriver adapts go.bug.st/serial to the Driver contract for development
// hosts. Pin assignment has no meaning here and is ignored.
type hostDriver struct {
	port    serial.Port
	pending []byte // bytes drained while answering Available
}

// NewHostDriver returns a Driver backed by the operating system serial
// stack.
func NewHostDriver() Driver { return &hostDriver{} }

func (d *hostDriver) Open(cfg Config) error {
	if cfg.Device == "" {
		return errors.New("serial: host driver requires a device path")
	}
	if cfg.FlowControl != NoFlowControl {
		return errors.New("serial: host driver does not support hardware flow control")
	}
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		Parity:   hostParity(cfg.Parity),
		StopBits: hostStopBits(cfg.StopBits),
	}
	port, err := serial.Open(cfg.Device, mode)
	if err != nil {
		return err
	}
	d.port = port
	return nil
}

// Available polls the port briefly and stashes whatever arrived so the next
// Read returns it first. The OS serial API has no buffered-byte query.
func (d *hostDriver) Available() (int, error) {
	if d.port == nil {
		return 0, errNotOpen
	}
	if len(d.pending) > 0 {
		return len(d.pending), nil
	}
	if err := d.port.SetReadTimeout(time.Millisecond); err != nil {
		return 0, err
	}
	buf := make([]byte, 512)
	n, err := d.port.Read(buf)
	if err != nil {
		return 0, err
	}
	d.pending = append(d.pending, buf[:n]...)
	return len(d.pending), nil
}

func (d *hostDriver) Read(p []byte, timeout time.Duration) (int, error) {
	if d.port == nil {
		return 0, errNotOpen
	}
	if len(d.pending) > 0 {
		n := copy(p, d.pending)
		d.pending = d.pending[n:]
		return n, nil
	}
	if err := d.port.SetReadTimeout(timeout); err != nil {
		return 0, err
	}
	return d.port.Read(p)
}

func (d *hostDriver) Write(p []byte) (int, error) {
	if d.port == nil {
		return 0, errNotOpen
	}
	return d.port.Write(p)
}

func (d *hostDriver) Close() error {
	if d.port == nil {
		return nil
	}
	err := d.port.Close()
	d.port = nil
	d.pending = nil
	return err
}

func hostParity(p Parity) serial.Parity {
	switch p {
	case OddParity:
		return serial.OddParity
	case EvenParity:
		return serial.EvenParity
	default:
		return serial.NoParity
	}
}

func hostStopBits(s StopBits) serial.StopBits {
	if s == TwoStopBits {
		return serial.TwoStopBits
	}
	return serial.OneStopBit
}
