package transport

import "errors"

// Sentinel errors for the send pipeline. Callers classify with errors.Is.
var (
	// Invalid-argument family: the caller handed us something unusable.
	ErrNotInitialized = errors.New("transport: not initialized")
	ErrInvalidPacket  = errors.New("transport: invalid packet")

	// Invalid-state family: the transport is momentarily unable to take work.
	ErrQueueFull = errors.New("transport: send queue full")
	ErrBusy      = errors.New("transport: device busy")

	// ErrTimeout reports a bounded I/O wait that expired.
	ErrTimeout = errors.New("transport: timeout")

	// ErrShortWrite reports a medium write that transferred fewer bytes than
	// requested. Short writes are fatal for that send attempt; no partial
	// progress is tracked.
	ErrShortWrite = errors.New("transport: short write")
)

// IsTemporary reports whether a send failure is self-healing and the packet
// is worth re-enqueueing. Resource and timeout conditions clear on their own;
// anything else is a protocol or parameter error and will not.
func IsTemporary(err error) bool {
	return errors.Is(err, ErrQueueFull) ||
		errors.Is(err, ErrBusy) ||
		errors.Is(err, ErrTimeout)
}
