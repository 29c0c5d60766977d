package p2p

import (
	"sync"

	"github.com/canopy-network/dpos/lib"
)

// Mailbox is an unbounded FIFO inbox of a single participant.
// Delivery never blocks the sender, so two actors messaging each other cannot deadlock.
type Mailbox struct {
	mux    sync.Mutex
	queue  []*lib.MessageAndMetadata
	signal chan struct{} // holds at most one pending wake-up
	closed bool
}

// NewMailbox() creates an empty, open mailbox
func NewMailbox() *Mailbox {
	return &Mailbox{signal: make(chan struct{}, 1)}
}

// push() enqueues a message and wakes the reader; false if the mailbox is closed
func (m *Mailbox) push(msg *lib.MessageAndMetadata) bool {
	m.mux.Lock()
	if m.closed {
		m.mux.Unlock()
		return false
	}
	m.queue = append(m.queue, msg)
	m.mux.Unlock()
	select {
	case m.signal <- struct{}{}:
	default:
	}
	return true
}

// Signal() fires when messages may be waiting; drain with Pop() until it reports empty
func (m *Mailbox) Signal() <-chan struct{} { return m.signal }

// Pop() dequeues the oldest message
func (m *Mailbox) Pop() (*lib.MessageAndMetadata, bool) {
	m.mux.Lock()
	defer m.mux.Unlock()
	if len(m.queue) == 0 {
		return nil, false
	}
	msg := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	return msg, true
}

// Len() is the number of queued messages
func (m *Mailbox) Len() int {
	m.mux.Lock()
	defer m.mux.Unlock()
	return len(m.queue)
}

// Close() rejects further deliveries; queued messages can still be popped
func (m *Mailbox) Close() {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.closed = true
}
