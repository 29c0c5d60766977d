package p2p

import (
	"sync"

	"github.com/canopy-network/dpos/lib"
)

/*
	Bus is the in-process broadcast channel between participants.
	- Broadcast() delivers to every currently registered participant, the sender included
	- Send() delivers to a single participant
	- each sender's messages arrive in the order they were sent, at every recipient
	Payloads are shared, not copied; recipients treat them as read-only and copy what they keep.
*/

// Bus routes messages between registered participants
type Bus struct {
	mux       sync.RWMutex
	mailboxes map[string]*Mailbox
	order     []string // registration order
	log       lib.LoggerI
}

// NewBus() creates a bus without participants
func NewBus(log lib.LoggerI) *Bus {
	return &Bus{mailboxes: make(map[string]*Mailbox), log: log}
}

// Register() adds participants, each with its own mailbox
func (b *Bus) Register(ids ...string) lib.ErrorI {
	b.mux.Lock()
	defer b.mux.Unlock()
	for _, id := range ids {
		if _, ok := b.mailboxes[id]; ok {
			return ErrDuplicateParticipant(id)
		}
	}
	for _, id := range ids {
		b.mailboxes[id] = NewMailbox()
		b.order = append(b.order, id)
	}
	return nil
}

// Inbox() returns the mailbox of a participant
func (b *Bus) Inbox(id string) (*Mailbox, lib.ErrorI) {
	b.mux.RLock()
	defer b.mux.RUnlock()
	mb, ok := b.mailboxes[id]
	if !ok {
		return nil, ErrUnknownParticipant(id)
	}
	return mb, nil
}

// Participants() lists the registered ids in registration order
func (b *Bus) Participants() []string {
	b.mux.RLock()
	defer b.mux.RUnlock()
	return append([]string(nil), b.order...)
}

// Broadcast() delivers the message to every registered participant
func (b *Bus) Broadcast(from string, msg lib.Message) {
	b.mux.RLock()
	defer b.mux.RUnlock()
	b.log.Debugf("%s broadcasts %s", from, msg.Type())
	for _, id := range b.order {
		if !b.mailboxes[id].push(&lib.MessageAndMetadata{Message: msg, Sender: from}) {
			b.log.Debugf("Dropped %s for closed mailbox of %s", msg.Type(), id)
		}
	}
}

// Send() delivers the message to a single participant
func (b *Bus) Send(from, to string, msg lib.Message) lib.ErrorI {
	b.mux.RLock()
	defer b.mux.RUnlock()
	mb, ok := b.mailboxes[to]
	if !ok {
		return ErrUnknownParticipant(to)
	}
	b.log.Debugf("%s sends %s to %s", from, msg.Type(), to)
	if !mb.push(&lib.MessageAndMetadata{Message: msg, Sender: from}) {
		return ErrMailboxClosed(to)
	}
	return nil
}

// Close() closes every mailbox
func (b *Bus) Close() {
	b.mux.RLock()
	defer b.mux.RUnlock()
	for _, mb := range b.mailboxes {
		mb.Close()
	}
}
