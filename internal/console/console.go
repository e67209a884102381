// Package console implements the debug-console transport adapter: a
// byte-stream channel over the process's console I/O with fixed buffer
// sizing and no line configuration. Like every byte-stream adapter it
// treats one read as one logical packet; nothing reconciles fragmented or
// coalesced reads.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"packetlink/internal/packet"
	"packetlink/internal/transport"
)

const (
	// TxBufferSize bounds bytes buffered toward the console per write.
	TxBufferSize = 1024
	// RxBufferSize bounds inbound bytes held until the worker drains them.
	RxBufferSize = 1536

	tag = "console"
)

// Channel is the debug-console transport adapter.
type Channel struct {
	*transport.Transport

	log zerolog.Logger
	rx  chan byte

	mu  sync.Mutex // serializes writes
	out *bufio.Writer
}

// Open wires a channel over the given console streams and returns a
// ready-to-start transport. Nil streams select the process stdio.
func Open(in io.Reader, out io.Writer, tcfg transport.Config, log zerolog.Logger) *Channel {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	c := &Channel{
		log: log.With().Str("transport", tag).Logger(),
		rx:  make(chan byte, RxBufferSize),
		out: bufio.NewWriterSize(out, TxBufferSize),
	}
	c.Transport = transport.New(c, tcfg, log)
	c.Transport.MarkReady()
	go c.pump(in)
	c.log.Info().Int("tx_buffer", TxBufferSize).Int("rx_buffer", RxBufferSize).Msg("console channel initialized")
	return c
}

// pump moves console bytes into the bounded rx buffer. Bytes arriving while
// the buffer is full are dropped, as a fixed-size driver RX buffer would.
func (c *Channel) pump(in io.Reader) {
	buf := make([]byte, 256)
	for {
		n, err := in.Read(buf)
		for _, b := range buf[:n] {
			select {
			case c.rx <- b:
			default:
				c.log.Warn().Msg("rx buffer overflow, byte dropped")
			}
		}
		if err != nil {
			if err != io.EOF {
				c.log.Error().Err(err).Msg("console input closed")
			}
			return
		}
	}
}

// Available returns the number of buffered inbound bytes.
func (c *Channel) Available() int {
	if !c.IsInitialized() {
		return 0
	}
	return len(c.rx)
}

// Read drains up to len(buffer) buffered bytes without blocking. Returns 0
// on bad arguments or an uninitialized channel, never an error.
func (c *Channel) Read(buffer []byte) int {
	if len(buffer) == 0 || !c.IsInitialized() {
		c.log.Warn().Msg("invalid read parameters")
		return 0
	}
	n := 0
	for n < len(buffer) {
		select {
		case b := <-c.rx:
			buffer[n] = b
			n++
		default:
			return n
		}
	}
	return n
}

// Write pushes data toward the console and flushes it. Returns the byte
// count delivered; 0 on bad arguments or an uninitialized channel.
func (c *Channel) Write(data []byte) int {
	if len(data) == 0 || !c.IsInitialized() {
		c.log.Warn().Msg("invalid write parameters")
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n, err := c.out.Write(data)
	if err != nil {
		c.log.Error().Err(err).Msg("write failed")
		return n
	}
	if err := c.out.Flush(); err != nil {
		c.log.Error().Err(err).Msg("flush failed")
		return 0
	}
	return n
}

// Close stops the worker and flushes anything still buffered.
func (c *Channel) Close() error {
	c.Stop()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Flush()
}

// Tag implements transport.Adapter.
func (c *Channel) Tag() string { return tag }

// MTU implements transport.Adapter.
func (c *Channel) MTU() int { return packet.MaxMTU }

// WritePacket implements transport.Adapter. A short write is fatal for this
// attempt.
func (c *Channel) WritePacket(pkt *packet.Packet) error {
	written := c.Write(pkt.Buffer[:pkt.Size])
	if written != int(pkt.Size) {
		c.log.Error().Int("written", written).Uint16("want", pkt.Size).Msg("short packet write")
		return fmt.Errorf("%w: %d/%d bytes", transport.ErrShortWrite, written, pkt.Size)
	}
	return nil
}

// Poll implements transport.Adapter: one buffered read becomes one packet.
func (c *Channel) Poll(d transport.Dispatcher) {
	if !d.Bound() || c.Available() == 0 {
		return
	}
	var pkt packet.Packet
	pkt.Size = uint16(c.Read(pkt.Buffer[:]))
	if pkt.Size == 0 {
		return
	}
	d.Dispatch(pkt)
}
