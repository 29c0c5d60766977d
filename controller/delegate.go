package controller

import (
	"bytes"
	"sync/atomic"
	"time"

	"github.com/canopy-network/dpos/bft"
	"github.com/canopy-network/dpos/lib"
	"github.com/canopy-network/dpos/store"
)

/*
	A Delegate accumulates posted transactions into its block-in-progress, proposes that block when it is a
	candidate of the round, and commits the block only when the authority stamps it as the committer.

	Chain view invariant: exactly one block-in-progress exists and it follows the last committed block.
	The account mirror is replaced wholesale by the authority and never mutated locally.
*/

// Delegate is the state of a single delegate, owned by its actor goroutine
type Delegate struct {
	ID        string // the participant id
	authority string // where proposals go

	accounts   lib.Accounts // read-only mirror of the ledger
	last       *lib.Block   // last committed block, nil before the first commit
	inProgress *lib.Block   // the block accumulating pending transactions
	candidates []string     // candidates last announced by the authority
	round      uint64       // last round announced by the authority

	store     *store.BlockStore              // committed blocks by height and hash
	network   bft.Network                    // the bus
	published atomic.Pointer[DelegateStatus] // last snapshot for observers
	now       func() time.Time               // block timestamps
	metrics   *lib.Metrics
	log       lib.LoggerI
}

// DelegateStatus is a read-only snapshot of a delegate
type DelegateStatus struct {
	ID         string       `json:"id"`
	Round      uint64       `json:"round"`
	LastHeight uint64       `json:"lastHeight"`
	LastHash   lib.HexBytes `json:"lastHash,omitempty"`
	Committer  string       `json:"lastCommitter,omitempty"`
	Pending    int          `json:"pending"`
	InProgress *lib.Block   `json:"inProgress"`
	Candidates []string     `json:"candidates,omitempty"`
	Accounts   lib.Accounts `json:"accounts"`
}

// NewDelegate() creates a delegate with an empty chain
func NewDelegate(id, authority string, accounts lib.Accounts, s *store.BlockStore, network bft.Network, m *lib.Metrics, l lib.LoggerI) *Delegate {
	d := &Delegate{
		ID:        id,
		authority: authority,
		accounts:  accounts.Copy(),
		store:     s,
		network:   network,
		now:       time.Now,
		metrics:   m,
		log:       l,
	}
	d.inProgress = lib.NewBlock(nil, d.now())
	d.publish()
	return d
}

// AddTransaction() appends a posted transaction to the block-in-progress after structural checks only
func (d *Delegate) AddTransaction(tx *lib.Transaction) lib.ErrorI {
	if tx == nil {
		return lib.ErrNilTransaction()
	}
	return d.inProgress.AddTransaction(tx.Copy())
}

// OnProposeInstruction() sends the block-in-progress to the authority if this delegate is a candidate
func (d *Delegate) OnProposeInstruction(candidates []string) lib.ErrorI {
	d.candidates = append([]string(nil), candidates...)
	if !lib.IsMember(d.ID, d.candidates) {
		return nil
	}
	d.log.Debugf("Proposing height %d with %d txs", d.inProgress.Height, len(d.inProgress.Transactions))
	return d.network.Send(d.ID, d.authority, &lib.ProposeCandidateBlock{Name: d.ID, Block: d.inProgress.Bytes()})
}

// OnCommitInstruction() commits a block stamped with this delegate as committer and broadcasts it
func (d *Delegate) OnCommitInstruction(serialized []byte) lib.ErrorI {
	block, err := lib.UnmarshalBlock(serialized)
	if err != nil {
		return err
	}
	if block.Committer != d.ID {
		return ErrNotMyCommit(block.Committer, d.ID)
	}
	// a repeated instruction for the block already committed only repeats the broadcast
	if sameProposal(block, d.last) {
		d.log.Debugf("Repeating broadcast of committed height %d", d.last.Height)
		d.network.Broadcast(d.ID, &lib.BroadcastCommittedBlock{Block: d.last.Bytes()})
		return nil
	}
	block.Link(d.last)
	if err = d.adopt(block, true); err != nil {
		return err
	}
	d.log.Infof("Committed height %d with %d txs", block.Height, len(block.Transactions))
	d.network.Broadcast(d.ID, &lib.BroadcastCommittedBlock{Block: block.Bytes()})
	return nil
}

// OnCommittedBlockBroadcast() adopts a newly committed chain head; echoes, stale blocks and blocks that
// do not extend the local head are ignored
func (d *Delegate) OnCommittedBlockBroadcast(serialized []byte) lib.ErrorI {
	block, err := lib.UnmarshalBlock(serialized)
	if err != nil {
		return err
	}
	if d.last != nil && block.Height <= d.last.Height {
		d.log.Debugf("Ignoring committed height %d at height %d", block.Height, d.last.Height)
		return nil
	}
	if e := block.CheckLink(d.last); e != nil {
		d.log.Warnf("Ignoring unlinked committed height %d: %s", block.Height, e.Error())
		return nil
	}
	return d.adopt(block, false)
}

// OnAccountsUpdate() replaces the ledger mirror
func (d *Delegate) OnAccountsUpdate(accounts lib.Accounts) {
	d.accounts = accounts.Copy()
}

// HandleMessage() routes an inbound message to the matching operation
func (d *Delegate) HandleMessage(msg *lib.MessageAndMetadata) (err lib.ErrorI) {
	defer d.publish()
	switch m := msg.Message.(type) {
	case *lib.PostTransaction:
		return d.AddTransaction(m.Transaction)
	case *lib.NewVotingRound:
		d.round = m.Round
		return nil
	case *lib.ProposeBlock:
		d.round = m.Round
		return d.OnProposeInstruction(m.Candidates)
	case *lib.CommitBlock:
		return d.OnCommitInstruction(m.Block)
	case *lib.BroadcastCommittedBlock:
		return d.OnCommittedBlockBroadcast(m.Block)
	case *lib.AcceptRewards:
		d.OnAccountsUpdate(m.Accounts)
		return nil
	case *lib.AcceptVotes, *lib.ProposeCandidateBlock, *lib.StartRound, *lib.CancelRound:
		return nil
	default:
		return lib.ErrUnknownMessage(msg.Message)
	}
}

// Snapshot() returns the last published status; safe for concurrent use
func (d *Delegate) Snapshot() *DelegateStatus { return d.published.Load() }

// Store() exposes the committed chain
func (d *Delegate) Store() *store.BlockStore { return d.store }

// adopt() makes the block the chain head and starts the next block-in-progress with the pending
// transactions the block did not include
func (d *Delegate) adopt(block *lib.Block, committed bool) lib.ErrorI {
	if err := d.store.IndexBlock(block); err != nil {
		return err
	}
	pending := pendingDifference(d.inProgress.Transactions, block.Transactions)
	d.last = block
	d.inProgress = lib.NewBlock(block, d.now())
	d.inProgress.Transactions = pending
	d.metrics.UpdateChain(d.ID, block.Height, committed)
	return nil
}

func (d *Delegate) publish() {
	s := &DelegateStatus{
		ID:         d.ID,
		Round:      d.round,
		Pending:    len(d.inProgress.Transactions),
		InProgress: d.inProgress.Copy(),
		Candidates: append([]string(nil), d.candidates...),
		Accounts:   d.accounts.Copy(),
	}
	if d.last != nil {
		s.LastHeight, s.LastHash, s.Committer = d.last.Height, d.last.Hash(), d.last.Committer
	}
	d.published.Store(s)
}

// pendingDifference() removes the committed transactions from pending, once per occurrence
func pendingDifference(pending, committed []*lib.Transaction) (remaining []*lib.Transaction) {
	counts := make(map[string]int, len(committed))
	for _, tx := range committed {
		counts[tx.HashString()]++
	}
	for _, tx := range pending {
		if h := tx.HashString(); counts[h] > 0 {
			counts[h]--
			continue
		}
		remaining = append(remaining, tx)
	}
	return
}

// sameProposal() reports whether two blocks carry the same stamped proposal regardless of linkage
func sameProposal(a, b *lib.Block) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Committer == b.Committer && a.Timestamp == b.Timestamp && bytes.Equal(a.TransactionRoot(), b.TransactionRoot())
}
