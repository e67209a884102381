// Package transport implements the shared machinery every physical link
// adapter plugs into: a bounded outbound queue drained by a single worker
// goroutine, fixed-interval send pacing, and a retry policy that separates
// self-healing failures from fatal ones. Medium-specific I/O lives behind
// the Adapter interface.
package transport

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"packetlink/internal/observability"
	"packetlink/internal/packet"
)

// ReceiveFunc handles one inbound packet. reply enqueues a response on the
// same transport and may be called zero or more times before returning.
type ReceiveFunc func(pkt packet.Packet, reply func(packet.Packet) error)

// ErrorFunc is notified of every failed send attempt, retried or not.
type ErrorFunc func(pkt packet.Packet, err error)

// Config carries construction-time tuning for a transport instance.
type Config struct {
	MaxPacketSize int           // largest payload Send accepts
	QueueCapacity int           // outbound queue bound
	SendInterval  time.Duration // minimum spacing between send attempts
}

// DefaultConfig returns the tuning used on device builds.
func DefaultConfig() Config {
	return Config{
		MaxPacketSize: packet.MaxMTU,
		QueueCapacity: 16,
		SendInterval:  20 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxPacketSize <= 0 {
		c.MaxPacketSize = def.MaxPacketSize
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = def.QueueCapacity
	}
	if c.SendInterval <= 0 {
		c.SendInterval = def.SendInterval
	}
	return c
}

// Adapter is the medium-specific surface the shared machinery drives.
type Adapter interface {
	// Tag identifies the adapter in logs and metrics.
	Tag() string

	// MTU returns the largest single-packet payload the medium carries.
	MTU() int

	// WritePacket pushes one packet onto the medium. It must not block
	// beyond a short bounded timeout.
	WritePacket(pkt *packet.Packet) error

	// Poll runs one receive step. Byte-stream adapters read at most one
	// packet's worth of available bytes and dispatch them; media that
	// deliver data through an out-of-band event path embed NopPoller.
	Poll(d Dispatcher)
}

// Dispatcher hands inbound packets to whatever receive callback is bound.
type Dispatcher interface {
	// Bound reports whether a receive callback is currently bound.
	Bound() bool

	// Dispatch invokes the bound receive callback synchronously with a
	// reply closure feeding this transport's send queue.
	Dispatch(pkt packet.Packet)
}

// NopPoller provides the no-op receive step for event-driven adapters.
type NopPoller struct{}

func (NopPoller) Poll(Dispatcher) {}

// idleYield bounds the worker's spin when an iteration had nothing to send.
const idleYield = time.Millisecond

// Transport owns the outbound queue and the worker goroutine draining it.
// One worker exists per instance, so receive callbacks are invoked strictly
// sequentially. All exported methods are safe for concurrent use.
type Transport struct {
	adapter Adapter
	cfg     Config
	log     zerolog.Logger

	queue *sendQueue

	mu        sync.Mutex
	onReceive ReceiveFunc
	onError   ErrorFunc
	ready     bool // hardware setup succeeded
	running   bool
	stop      chan struct{}
	done      chan struct{}

	nextSend time.Time // touched by the worker only
}

// New builds the shared machinery around an adapter. The transport reports
// not-initialized until the adapter's constructor calls MarkReady and Start
// has been called.
func New(adapter Adapter, cfg Config, log zerolog.Logger) *Transport {
	cfg = cfg.withDefaults()
	return &Transport{
		adapter: adapter,
		cfg:     cfg,
		log:     log.With().Str("transport", adapter.Tag()).Logger(),
		queue:   newSendQueue(cfg.QueueCapacity),
	}
}

// MarkReady records that the adapter's hardware setup succeeded. Adapter
// constructors call this once after a successful open; it is not meant for
// transport consumers.
func (t *Transport) MarkReady() {
	t.mu.Lock()
	t.ready = true
	t.mu.Unlock()
}

// Bind atomically replaces the receive and error callbacks. Safe to call
// while the worker runs; the worker observes the update on its next
// iteration.
func (t *Transport) Bind(onReceive ReceiveFunc, onError ErrorFunc) {
	t.mu.Lock()
	t.onReceive = onReceive
	t.onError = onError
	t.mu.Unlock()
}

// Start launches the worker. Starting a running transport is a no-op.
func (t *Transport) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return nil
	}
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	t.running = true
	t.nextSend = time.Time{}
	go t.run(t.stop, t.done)
	t.log.Debug().Msg("worker started")
	return nil
}

// Stop empties the send queue and terminates the worker, blocking until it
// has exited. Idempotent. After Stop the transport reports not-initialized
// until Start succeeds again.
func (t *Transport) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	stop, done := t.stop, t.done
	t.mu.Unlock()

	t.queue.reset()
	close(stop)
	<-done
	observability.SetQueueDepth(t.adapter.Tag(), 0)
	t.log.Debug().Msg("worker stopped")
}

// Send validates and enqueues one packet. It never blocks: a full queue is
// reported as ErrQueueFull rather than dropping older traffic.
func (t *Transport) Send(pkt packet.Packet) error {
	t.mu.Lock()
	initialized := t.ready && t.running
	t.mu.Unlock()

	if !initialized {
		t.log.Error().Str("packet", pkt.HeaderInfo()).Msg("send rejected: not initialized")
		return ErrNotInitialized
	}
	if !pkt.Valid() || int(pkt.Size) > t.cfg.MaxPacketSize || int(pkt.Size) > t.adapter.MTU() {
		t.log.Error().Str("packet", pkt.HeaderInfo()).
			Int("max", min(t.cfg.MaxPacketSize, t.adapter.MTU())).
			Msg("send rejected: invalid packet")
		return ErrInvalidPacket
	}
	if !t.queue.tryPush(pkt) {
		return ErrQueueFull
	}
	observability.SetQueueDepth(t.adapter.Tag(), t.queue.len())
	return nil
}

// QueueSize returns a snapshot of the outbound queue occupancy. Advisory
// under concurrency.
func (t *Transport) QueueSize() int { return t.queue.len() }

// ClearQueue discards all queued packets and returns how many were removed.
func (t *Transport) ClearQueue() int {
	n := t.queue.reset()
	observability.SetQueueDepth(t.adapter.Tag(), 0)
	return n
}

// IsInitialized reports whether hardware setup succeeded and the worker is
// running. A stopped transport reports false even after a successful setup.
func (t *Transport) IsInitialized() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ready && t.running
}

// Bound implements Dispatcher.
func (t *Transport) Bound() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.onReceive != nil
}

// Dispatch implements Dispatcher. The callback runs outside the instance
// lock so it can re-enter Send through the reply closure.
func (t *Transport) Dispatch(pkt packet.Packet) {
	t.mu.Lock()
	cb := t.onReceive
	t.mu.Unlock()
	if cb == nil {
		return
	}
	cb(pkt, t.Send)
}

func (t *Transport) run(stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}
		sent := t.processSendQueue()
		t.adapter.Poll(t)
		if !sent {
			// Nothing was due this iteration; yield instead of spinning.
			time.Sleep(idleYield)
		}
	}
}

// processSendQueue performs at most one send attempt, spaced no closer than
// the configured interval. It reports whether an attempt was made.
func (t *Transport) processSendQueue() bool {
	if time.Now().Before(t.nextSend) {
		return false
	}
	pkt, ok := t.queue.tryPop()
	if !ok {
		return false
	}
	observability.SetQueueDepth(t.adapter.Tag(), t.queue.len())

	if err := t.adapter.WritePacket(&pkt); err != nil {
		t.handleSendError(pkt, err)
		return true
	}
	t.nextSend = time.Now().Add(t.cfg.SendInterval)
	observability.PacketSent(t.adapter.Tag())
	t.log.Trace().Uint16("id", pkt.ID).Uint16("size", pkt.Size).Msg("packet sent")
	return true
}

// handleSendError applies the recovery policy: temporary failures are
// re-enqueued for another attempt, anything else drops the packet. The error
// callback, when bound, sees every failure either way.
func (t *Transport) handleSendError(pkt packet.Packet, err error) {
	t.mu.Lock()
	cb := t.onError
	t.mu.Unlock()
	if cb != nil {
		cb(pkt, err)
	}
	observability.SendError(t.adapter.Tag())

	if IsTemporary(err) {
		t.log.Warn().Err(err).Str("packet", pkt.HeaderInfo()).Msg("temporary send failure, retrying")
		if t.queue.tryPush(pkt) {
			observability.SendRetried(t.adapter.Tag())
			observability.SetQueueDepth(t.adapter.Tag(), t.queue.len())
		} else {
			// The queue refilled behind us; the retry is lost.
			observability.PacketDropped(t.adapter.Tag())
		}
		return
	}
	t.log.Error().Err(err).Str("packet", pkt.HeaderInfo()).Msg("fatal send failure, packet dropped")
	observability.PacketDropped(t.adapter.Tag())
}
