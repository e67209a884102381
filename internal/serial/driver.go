// Package serial implements the serial-port transport adapter and the
// driver seam separating it from the underlying hardware. The adapter
// assumes one read yields one logical packet; there is no length prefix or
// delimiter reconciling fragmented or coalesced reads on the byte stream.
package serial

import "time"

// Driver is everything the adapter requires from a hardware serial layer.
type Driver interface {
	// Open configures and claims the port. It is called once.
	Open(cfg Config) error

	// Available returns the number of buffered inbound bytes.
	Available() (int, error)

	// Read fills p with inbound bytes, waiting up to timeout.
	Read(p []byte, timeout time.Duration) (int, error)

	// Write pushes p to the port and returns the byte count accepted.
	Write(p []byte) (int, error)

	// Close releases the port.
	Close() error
}

// PortID selects one of the two hardware port identities.
type PortID int

const (
	Port0 PortID = iota
	Port1
)

func (id PortID) String() string {
	if id == Port1 {
		return "uart1"
	}
	return "uart0"
}

type Parity int

const (
	NoParity Parity = iota
	OddParity
	EvenParity
)

type StopBits int

const (
	OneStopBit StopBits = iota
	TwoStopBits
)

type FlowControl int

const (
	NoFlowControl FlowControl = iota
	HardwareFlowControl
)

// Config carries the line configuration for one port.
type Config struct {
	// Device is the host device path. On-chip drivers ignore it.
	Device      string
	BaudRate    int
	DataBits    int
	Parity      Parity
	StopBits    StopBits
	FlowControl FlowControl

	// RxPin and TxPin override the default pin mux; -1 leaves it alone.
	// Host drivers ignore pin assignment.
	RxPin int
	TxPin int
}

// DefaultConfig returns the 115200 8N1 line configuration.
func DefaultConfig() Config {
	return Config{
		BaudRate:    115200,
		DataBits:    8,
		Parity:      NoParity,
		StopBits:    OneStopBit,
		FlowControl: NoFlowControl,
		RxPin:       -1,
		TxPin:       -1,
	}
}
