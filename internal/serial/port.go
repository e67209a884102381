package serial

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"packetlink/internal/packet"
	"packetlink/internal/transport"
)

// readTimeout bounds a single driver read so the worker loop never stalls.
const readTimeout = 100 * time.Millisecond

// Port is the serial-port transport adapter.
type Port struct {
	*transport.Transport

	id  PortID
	cfg Config
	drv Driver
	log zerolog.Logger

	mu sync.Mutex // serializes driver access
}

// Open claims the port through drv and returns a ready-to-start transport.
// A failed hardware setup is returned as an error; no half-open port
// escapes.
func Open(id PortID, cfg Config, drv Driver, tcfg transport.Config, log zerolog.Logger) (*Port, error) {
	p := &Port{
		id:  id,
		cfg: cfg,
		drv: drv,
		log: log.With().Str("transport", id.String()).Logger(),
	}
	p.log.Info().Int("baud", cfg.BaudRate).Msg("initializing serial port")
	if err := drv.Open(cfg); err != nil {
		p.log.Error().Err(err).Msg("serial port setup failed")
		return nil, fmt.Errorf("serial: open %s: %w", id, err)
	}
	p.Transport = transport.New(p, tcfg, log)
	p.Transport.MarkReady()
	p.log.Info().Msg("serial port initialized")
	return p, nil
}

// ID returns the hardware port identity.
func (p *Port) ID() PortID { return p.id }

// BaudRate returns the configured line speed, or 0 when the transport is
// not initialized.
func (p *Port) BaudRate() int {
	if !p.IsInitialized() {
		return 0
	}
	return p.cfg.BaudRate
}

// Available returns the number of inbound bytes the driver has buffered.
func (p *Port) Available() int {
	if !p.IsInitialized() {
		return 0
	}
	p.mu.Lock()
	n, err := p.drv.Available()
	p.mu.Unlock()
	if err != nil {
		p.log.Error().Err(err).Msg("available query failed")
		return 0
	}
	return n
}

// Read fills buffer with inbound bytes, waiting up to the internal bounded
// timeout. Returns 0 on bad arguments or an uninitialized port, never an
// error.
func (p *Port) Read(buffer []byte) int {
	if len(buffer) == 0 || !p.IsInitialized() {
		p.log.Warn().Msg("invalid read parameters")
		return 0
	}
	p.mu.Lock()
	n, err := p.drv.Read(buffer, readTimeout)
	p.mu.Unlock()
	if err != nil {
		p.log.Error().Err(err).Msg("read failed")
		return 0
	}
	return n
}

// Write pushes data to the port. Returns the byte count actually accepted;
// 0 on bad arguments or an uninitialized port.
func (p *Port) Write(data []byte) int {
	if len(data) == 0 || !p.IsInitialized() {
		p.log.Warn().Msg("invalid write parameters")
		return 0
	}
	p.mu.Lock()
	n, err := p.drv.Write(data)
	p.mu.Unlock()
	if err != nil {
		p.log.Error().Err(err).Msg("write failed")
		return 0
	}
	return n
}

// Close stops the worker and releases the port hardware, in that order.
func (p *Port) Close() error {
	p.Stop()
	if err := p.drv.Close(); err != nil {
		p.log.Error().Err(err).Msg("driver teardown failed")
		return fmt.Errorf("serial: close %s: %w", p.id, err)
	}
	return nil
}

// Tag implements transport.Adapter.
func (p *Port) Tag() string { return p.id.String() }

// MTU implements transport.Adapter.
func (p *Port) MTU() int { return packet.MaxMTU }

// WritePacket implements transport.Adapter. A short write is fatal for this
// attempt; the packet is not partially re-sent.
func (p *Port) WritePacket(pkt *packet.Packet) error {
	written := p.Write(pkt.Buffer[:pkt.Size])
	if written != int(pkt.Size) {
		p.log.Error().Int("written", written).Uint16("want", pkt.Size).Msg("short packet write")
		return fmt.Errorf("%w: %d/%d bytes", transport.ErrShortWrite, written, pkt.Size)
	}
	return nil
}

// Poll implements transport.Adapter. At most one packet's worth of bytes is
// read per iteration; whatever one read returns is treated as one logical
// packet (see the package doc for the framing caveat).
func (p *Port) Poll(d transport.Dispatcher) {
	if !d.Bound() || p.Available() == 0 {
		return
	}
	var pkt packet.Packet
	pkt.Size = uint16(p.Read(pkt.Buffer[:]))
	if pkt.Size == 0 {
		return
	}
	d.Dispatch(pkt)
}
