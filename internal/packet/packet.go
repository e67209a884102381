// Package packet defines the fixed-layout data unit exchanged over every
// transport medium.
package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// MaxMTU is the largest payload a single packet can carry. It matches
	// the largest negotiated BLE 5.0 link payload the system has to support.
	MaxMTU = 517

	// WireSize is the encoded size of a packet: id(2) + size(2) + buffer.
	WireSize = 4 + MaxMTU
)

var (
	ErrShortBuffer      = errors.New("packet: buffer too short")
	ErrOversizedPayload = errors.New("packet: payload exceeds MTU")
)

// Packet is a plain value copied into and out of send queues; it holds no
// references and is safe to hand across goroutines by copy. The field order
// and widths are a wire compatibility contract with peers and must not
// change.
type Packet struct {
	// ID identifies the sender or connection context. 0 means broadcast.
	ID uint16
	// Size is the count of meaningful bytes in Buffer. Bytes at index
	// >= Size are undefined.
	Size uint16
	// Buffer holds the payload.
	Buffer [MaxMTU]byte
}

// Valid reports whether the packet carries a usable payload.
func (p *Packet) Valid() bool {
	return p.Size > 0 && p.Size <= MaxMTU
}

// SetPayload copies data into the packet buffer and records its length.
// Nil, empty, and oversized input is rejected without mutating the packet.
func (p *Packet) SetPayload(data []byte) bool {
	if len(data) == 0 || len(data) > MaxMTU {
		return false
	}
	copy(p.Buffer[:], data)
	p.Size = uint16(len(data))
	return true
}

// Payload returns the meaningful prefix of the buffer. The returned slice
// aliases the packet's storage.
func (p *Packet) Payload() []byte {
	if !p.Valid() {
		return nil
	}
	return p.Buffer[:p.Size]
}

// Clear resets the packet to the zero state. The result is invalid.
func (p *Packet) Clear() {
	p.ID = 0
	p.Size = 0
	p.Buffer = [MaxMTU]byte{}
}

// HeaderInfo returns a short diagnostic description of the header.
func (p *Packet) HeaderInfo() string {
	return fmt.Sprintf("Packet[id=%d, size=%d, valid=%t]", p.ID, p.Size, p.Valid())
}

func (p *Packet) String() string { return p.HeaderInfo() }

// MarshalBinary encodes the packet as the packed little-endian wire record.
// The output is always exactly WireSize bytes.
func (p *Packet) MarshalBinary() ([]byte, error) {
	if p.Size > MaxMTU {
		return nil, fmt.Errorf("%w: size %d", ErrOversizedPayload, p.Size)
	}
	out := make([]byte, WireSize)
	binary.LittleEndian.PutUint16(out[0:2], p.ID)
	binary.LittleEndian.PutUint16(out[2:4], p.Size)
	copy(out[4:], p.Buffer[:])
	return out, nil
}

// UnmarshalBinary decodes a packed wire record produced by MarshalBinary.
// The packet is left untouched on error.
func (p *Packet) UnmarshalBinary(data []byte) error {
	if len(data) < WireSize {
		return fmt.Errorf("%w: have %d, want %d", ErrShortBuffer, len(data), WireSize)
	}
	size := binary.LittleEndian.Uint16(data[2:4])
	if size > MaxMTU {
		return fmt.Errorf("%w: size %d", ErrOversizedPayload, size)
	}
	p.ID = binary.LittleEndian.Uint16(data[0:2])
	p.Size = size
	copy(p.Buffer[:], data[4:WireSize])
	return nil
}
