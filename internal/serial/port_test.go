package serial

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"packetlink/internal/packet"
	"packetlink/internal/transport"
)

// fakeDriver is an in-memory Driver with injectable inbound bytes and
// recorded outbound bytes.
type fakeDriver struct {
	mu         sync.Mutex
	opened     bool
	openErr    error
	openCfg    Config
	closed     bool
	rx         []byte
	tx         []byte
	writeLimit int // when > 0, writes are truncated to this many bytes
}

func (d *fakeDriver) Open(cfg Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return d.openErr
	}
	d.opened = true
	d.openCfg = cfg
	return nil
}

func (d *fakeDriver) Available() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rx), nil
}

func (d *fakeDriver) Read(p []byte, _ time.Duration) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := copy(p, d.rx)
	d.rx = d.rx[n:]
	return n, nil
}

func (d *fakeDriver) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(p)
	if d.writeLimit > 0 && n > d.writeLimit {
		n = d.writeLimit
	}
	d.tx = append(d.tx, p[:n]...)
	return n, nil
}

func (d *fakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDriver) inject(p []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rx = append(d.rx, p...)
}

func (d *fakeDriver) written() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.tx...)
}

func fastConfig() transport.Config {
	return transport.Config{QueueCapacity: 16, SendInterval: time.Millisecond}
}

func openPort(t *testing.T, drv *fakeDriver) *Port {
	t.Helper()
	p, err := Open(Port0, DefaultConfig(), drv, fastConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestOpenPropagatesDriverFailure(t *testing.T) {
	drv := &fakeDriver{openErr: errors.New("no such device")}
	if _, err := Open(Port1, DefaultConfig(), drv, fastConfig(), zerolog.Nop()); err == nil {
		t.Fatal("Open succeeded with failing driver")
	}
}

func TestOpenPassesLineConfig(t *testing.T) {
	drv := &fakeDriver{}
	cfg := DefaultConfig()
	cfg.BaudRate = 460800
	cfg.StopBits = TwoStopBits
	p, err := Open(Port1, cfg, drv, fastConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer p.Close()
	if drv.openCfg.BaudRate != 460800 || drv.openCfg.StopBits != TwoStopBits {
		t.Fatalf("driver saw config %+v", drv.openCfg)
	}
	if p.ID() != Port1 || p.Tag() != "uart1" {
		t.Fatalf("port identity: id=%v tag=%q", p.ID(), p.Tag())
	}
}

func TestReadWriteRequireInitialized(t *testing.T) {
	drv := &fakeDriver{}
	p := openPort(t, drv)

	// Worker not started yet: the transport reports not-initialized.
	if n := p.Write([]byte{1, 2, 3}); n != 0 {
		t.Fatalf("Write on stopped port returned %d", n)
	}
	if n := p.Read(make([]byte, 4)); n != 0 {
		t.Fatalf("Read on stopped port returned %d", n)
	}
	if p.BaudRate() != 0 {
		t.Fatalf("BaudRate on stopped port = %d", p.BaudRate())
	}

	if err := p.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if n := p.Write([]byte{1, 2, 3}); n != 3 {
		t.Fatalf("Write returned %d, want 3", n)
	}
	if n := p.Write(nil); n != 0 {
		t.Fatalf("Write(nil) returned %d", n)
	}
	if p.BaudRate() != DefaultConfig().BaudRate {
		t.Fatalf("BaudRate = %d", p.BaudRate())
	}
}

func TestShortWriteIsFatal(t *testing.T) {
	drv := &fakeDriver{writeLimit: 4}
	p := openPort(t, drv)
	if err := p.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	var gotErr error
	errSeen := make(chan struct{})
	p.Bind(nil, func(_ packet.Packet, err error) {
		gotErr = err
		close(errSeen)
	})

	var pkt packet.Packet
	pkt.SetPayload([]byte("ten bytes!"))
	if err := p.Send(pkt); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case <-errSeen:
	case <-time.After(time.Second):
		t.Fatal("error callback never invoked")
	}
	if !errors.Is(gotErr, transport.ErrShortWrite) {
		t.Fatalf("expected ErrShortWrite, got %v", gotErr)
	}
	// Fatal: the packet must not be retried.
	time.Sleep(50 * time.Millisecond)
	if p.QueueSize() != 0 {
		t.Fatalf("queue size = %d after fatal short write", p.QueueSize())
	}
	if got := drv.written(); len(got) != 4 {
		t.Fatalf("driver saw %d bytes, want the single truncated attempt", len(got))
	}
}

func TestPollDispatchesOnePacketPerRead(t *testing.T) {
	drv := &fakeDriver{}
	p := openPort(t, drv)
	if err := p.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	var mu sync.Mutex
	var received []packet.Packet
	p.Bind(func(pkt packet.Packet, _ func(packet.Packet) error) {
		mu.Lock()
		received = append(received, pkt)
		mu.Unlock()
	}, nil)

	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	drv.inject(payload)

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	})
	mu.Lock()
	got := received[0]
	mu.Unlock()
	if int(got.Size) != len(payload) || !bytes.Equal(got.Payload(), payload) {
		t.Fatalf("received %s payload=%v", got.HeaderInfo(), got.Payload())
	}
}

func TestEchoThroughReplyClosure(t *testing.T) {
	drv := &fakeDriver{}
	p := openPort(t, drv)
	if err := p.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	p.Bind(func(pkt packet.Packet, reply func(packet.Packet) error) {
		if err := reply(pkt); err != nil {
			t.Errorf("reply: %v", err)
		}
	}, nil)

	payload := []byte("0123456789")
	drv.inject(payload)

	waitFor(t, time.Second, func() bool {
		return bytes.Equal(drv.written(), payload)
	})
}

func TestCloseStopsWorkerBeforeTeardown(t *testing.T) {
	drv := &fakeDriver{}
	p := openPort(t, drv)
	if err := p.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !drv.closed {
		t.Fatal("driver not released on close")
	}
	if p.IsInitialized() {
		t.Fatal("closed port reports initialized")
	}
}
