package controller

import (
	"sync"
	"sync/atomic"

	"github.com/canopy-network/dpos/bft"
	"github.com/canopy-network/dpos/fsm"
	"github.com/canopy-network/dpos/lib"
	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Client is a stake holder that posts transactions and, if allowed, votes once per round
type Client struct {
	ID      string
	CanVote bool

	authority string
	accounts  lib.Accounts       // read-only mirror of the ledger
	reserved  lib.Amount         // cost of the unsettled transactions
	unsettled []*lib.Transaction // posted but not yet in a settled block
	committed map[string]int     // hashes of own transactions in the latest committed block
	head      uint64             // height of the latest committed block seen
	settled   uint64             // height of the latest block released by a settlement
	voted     uint64             // last round voted in
	rates     lib.Rates
	source    xrand.Source // vote draws
	network   bft.Network
	mux       sync.Mutex // PostTransaction() is called from outside the actor
	published atomic.Pointer[ClientStatus]
	log       lib.LoggerI
}

// ClientStatus is a read-only snapshot of a client
type ClientStatus struct {
	ID       string     `json:"id"`
	CanVote  bool       `json:"canVote"`
	Balance  lib.Amount `json:"balance"`
	Reserved lib.Amount `json:"reserved"`
	LastVote string     `json:"lastVote,omitempty"`
}

// NewClient() creates a client with the genesis mirror
func NewClient(id string, canVote bool, authority string, accounts lib.Accounts, rates lib.Rates, seed int64, network bft.Network, l lib.LoggerI) *Client {
	c := &Client{
		ID:        id,
		CanVote:   canVote,
		authority: authority,
		accounts:  accounts.Copy(),
		rates:     rates,
		committed: make(map[string]int),
		source:    xrand.NewSource(uint64(seed)),
		network:   network,
		log:       l,
	}
	c.publish("")
	return c
}

// PostTransaction() builds a transfer with the configured rates and broadcasts it if affordable
func (c *Client) PostTransaction(to string, amount lib.Amount) (*lib.Transaction, lib.ErrorI) {
	c.mux.Lock()
	defer c.mux.Unlock()
	tx, err := lib.NewTransaction(c.ID, to, amount, c.rates)
	if err != nil {
		return nil, err
	}
	if err = fsm.CheckAffordable(c.accounts[c.ID]-c.reserved, tx); err != nil {
		return nil, err
	}
	c.unsettled = append(c.unsettled, tx)
	c.reserved += tx.Cost()
	c.network.Broadcast(c.ID, &lib.PostTransaction{Transaction: tx})
	c.publish("")
	return tx, nil
}

// Vote() casts a single vote for a delegate drawn proportionally to the mirrored delegate balances
func (c *Client) Vote(round uint64, delegates []string) lib.ErrorI {
	if !c.CanVote || len(delegates) == 0 {
		return nil
	}
	choice := c.chooseDelegate(delegates)
	c.publish(choice)
	return c.network.Send(c.ID, c.authority, &lib.AcceptVotes{Round: round, Name: choice})
}

// OnCommittedBlock() notes which of the client's transactions the new chain head includes; their
// reservation is released once the matching settlement arrives
func (c *Client) OnCommittedBlock(serialized []byte) lib.ErrorI {
	block, err := lib.UnmarshalBlock(serialized)
	if err != nil {
		return err
	}
	// repeated broadcasts of an already settled block change nothing
	if block.Height <= c.settled {
		return nil
	}
	c.head, c.committed = block.Height, make(map[string]int)
	for _, tx := range block.Transactions {
		if tx.From == c.ID {
			c.committed[tx.HashString()]++
		}
	}
	return nil
}

// OnAccountsUpdate() replaces the mirror and releases the reservation of the transactions it settled;
// transactions carried over to a later block stay reserved
func (c *Client) OnAccountsUpdate(accounts lib.Accounts) {
	c.accounts = accounts.Copy()
	remaining, reserved := c.unsettled[:0], lib.Amount(0)
	for _, tx := range c.unsettled {
		if h := tx.HashString(); c.committed[h] > 0 {
			c.committed[h]--
			continue
		}
		remaining = append(remaining, tx)
		reserved += tx.Cost()
	}
	c.unsettled, c.reserved = remaining, reserved
	c.settled, c.committed = c.head, make(map[string]int)
	c.publish("")
}

// Balance() is the mirrored balance less the reserved cost of unsettled transactions
func (c *Client) Balance() lib.Amount {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.accounts[c.ID] - c.reserved
}

// HandleMessage() routes an inbound message to the matching operation
func (c *Client) HandleMessage(msg *lib.MessageAndMetadata) lib.ErrorI {
	c.mux.Lock()
	defer c.mux.Unlock()
	switch m := msg.Message.(type) {
	case *lib.NewVotingRound:
		// a repeated announcement does not earn a second vote
		if m.Round <= c.voted {
			return nil
		}
		c.voted = m.Round
		return c.Vote(m.Round, m.Delegates)
	case *lib.BroadcastCommittedBlock:
		return c.OnCommittedBlock(m.Block)
	case *lib.AcceptRewards:
		c.OnAccountsUpdate(m.Accounts)
		return nil
	case *lib.AcceptVotes, *lib.ProposeBlock, *lib.ProposeCandidateBlock, *lib.CommitBlock,
		*lib.PostTransaction, *lib.StartRound, *lib.CancelRound:
		return nil
	default:
		return lib.ErrUnknownMessage(msg.Message)
	}
}

// Snapshot() returns the last published status; safe for concurrent use
func (c *Client) Snapshot() *ClientStatus { return c.published.Load() }

// chooseDelegate() draws from a categorical distribution over the delegates' balances;
// uniform when no delegate holds a positive balance
func (c *Client) chooseDelegate(delegates []string) string {
	weights, total := make([]float64, len(delegates)), 0.0
	for i, d := range delegates {
		if b := c.accounts[d]; b > 0 {
			weights[i] = b.Float64()
			total += weights[i]
		}
	}
	if total == 0 {
		for i := range weights {
			weights[i] = 1
		}
	}
	return delegates[int(distuv.NewCategorical(weights, c.source).Rand())]
}

func (c *Client) publish(vote string) {
	prev := c.published.Load()
	if vote == "" && prev != nil {
		vote = prev.LastVote
	}
	c.published.Store(&ClientStatus{
		ID:       c.ID,
		CanVote:  c.CanVote,
		Balance:  c.accounts[c.ID],
		Reserved: c.reserved,
		LastVote: vote,
	})
}
