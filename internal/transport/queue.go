package transport

import "packetlink/internal/packet"

// sendQueue is a bounded FIFO of packets. The buffered channel provides the
// synchronization; push and pop never block.
type sendQueue struct {
	ch chan packet.Packet
}

func newSendQueue(capacity int) *sendQueue {
	return &sendQueue{ch: make(chan packet.Packet, capacity)}
}

// tryPush enqueues p if there is room.
func (q *sendQueue) tryPush(p packet.Packet) bool {
	select {
	case q.ch <- p:
		return true
	default:
		return false
	}
}

// tryPop dequeues the oldest packet if one is queued.
func (q *sendQueue) tryPop() (packet.Packet, bool) {
	select {
	case p := <-q.ch:
		return p, true
	default:
		return packet.Packet{}, false
	}
}

func (q *sendQueue) len() int { return len(q.ch) }

// reset drains the queue and returns the number of packets discarded.
func (q *sendQueue) reset() int {
	n := 0
	for {
		if _, ok := q.tryPop(); !ok {
			return n
		}
		n++
	}
}
