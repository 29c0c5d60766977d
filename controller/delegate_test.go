package controller

import (
	"testing"
	"time"

	"github.com/canopy-network/dpos/lib"
	"github.com/canopy-network/dpos/store"
	"github.com/stretchr/testify/require"
)

type sent struct {
	to  string // empty for broadcasts
	msg lib.Message
}

// testNetwork records what an actor emits
type testNetwork struct{ out []sent }

func (n *testNetwork) Broadcast(_ string, msg lib.Message) { n.out = append(n.out, sent{msg: msg}) }

func (n *testNetwork) Send(_, to string, msg lib.Message) lib.ErrorI {
	n.out = append(n.out, sent{to: to, msg: msg})
	return nil
}

func (n *testNetwork) reset() { n.out = nil }

func newTestDelegate(t *testing.T, id string) (*Delegate, *testNetwork) {
	bs, err := store.NewBlockStore(lib.DefaultStoreConfig(), lib.NewNullLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = bs.Close() })
	net := &testNetwork{}
	d := NewDelegate(id, "gov", lib.Accounts{"alice": lib.NewAmount(100)}, bs, net, nil, lib.NewNullLogger())
	clock := time.Unix(1700000000, 0)
	d.now = func() time.Time { clock = clock.Add(time.Second); return clock }
	return d, net
}

func newTestTx(t *testing.T, to string, amount int64) *lib.Transaction {
	tx, err := lib.NewTransaction("alice", to, lib.NewAmount(amount), lib.DefaultConsensusConfig().Rates())
	require.NoError(t, err)
	return tx
}

// stamp returns the delegate's block-in-progress as the authority would send it to the committer
func stamp(d *Delegate, committer string) []byte {
	b := d.inProgress.Copy()
	b.Committer = committer
	return b.Bytes()
}

func TestProposeOnlyAsCandidate(t *testing.T) {
	d, net := newTestDelegate(t, "d1")
	require.NoError(t, d.AddTransaction(newTestTx(t, "bob", 1)))
	require.NoError(t, d.OnProposeInstruction([]string{"d2", "d3"}))
	require.Empty(t, net.out)
	require.NoError(t, d.OnProposeInstruction([]string{"d2", "d1"}))
	require.Len(t, net.out, 1)
	require.Equal(t, "gov", net.out[0].to)
	proposal := net.out[0].msg.(*lib.ProposeCandidateBlock)
	require.Equal(t, "d1", proposal.Name)
	block, err := lib.UnmarshalBlock(proposal.Block)
	require.NoError(t, err)
	require.True(t, block.Equals(d.inProgress))
}

func TestCommitInstruction(t *testing.T) {
	d, net := newTestDelegate(t, "d1")
	require.NoError(t, d.AddTransaction(newTestTx(t, "bob", 1)))
	// a commit stamped for another delegate is refused without any effect
	err := d.OnCommitInstruction(stamp(d, "d2"))
	require.Equal(t, lib.CodeNotMyCommit, err.Code())
	require.Nil(t, d.last)
	require.Empty(t, net.out)
	// the committer commits, starts the next block and broadcasts
	bz := stamp(d, "d1")
	require.NoError(t, d.OnCommitInstruction(bz))
	require.Equal(t, uint64(1), d.last.Height)
	require.Equal(t, "d1", d.last.Committer)
	require.Equal(t, uint64(2), d.inProgress.Height)
	require.Equal(t, []byte(d.last.Hash()), []byte(d.inProgress.PrevBlockHash))
	require.Empty(t, d.inProgress.Transactions)
	require.Len(t, net.out, 1)
	broadcast := net.out[0].msg.(*lib.BroadcastCommittedBlock)
	require.Empty(t, net.out[0].to)
	stored, e := d.store.GetBlockByHeight(1)
	require.NoError(t, e)
	require.Equal(t, broadcast.Block, stored.Bytes())
	// the echo of its own broadcast is a no-op
	require.NoError(t, d.OnCommittedBlockBroadcast(broadcast.Block))
	require.Equal(t, uint64(1), d.last.Height)
	require.Equal(t, uint64(2), d.inProgress.Height)
	// a repeated instruction repeats the broadcast without committing twice
	net.reset()
	require.NoError(t, d.OnCommitInstruction(bz))
	require.Equal(t, uint64(1), d.last.Height)
	require.Len(t, net.out, 1)
	require.Equal(t, broadcast.Block, net.out[0].msg.(*lib.BroadcastCommittedBlock).Block)
}

func TestCommitRelinks(t *testing.T) {
	d, _ := newTestDelegate(t, "d1")
	require.NoError(t, d.OnCommitInstruction(stamp(d, "d1")))
	// a winning block built on a stale head is relinked onto the local chain
	stale := lib.NewBlock(nil, time.Unix(1800000000, 0))
	stale.Committer = "d1"
	require.NoError(t, d.OnCommitInstruction(stale.Bytes()))
	require.Equal(t, uint64(2), d.last.Height)
	first, err := d.store.GetBlockByHeight(1)
	require.NoError(t, err)
	require.NoError(t, d.last.CheckLink(first))
}

func TestCommittedBlockBroadcast(t *testing.T) {
	committer, net := newTestDelegate(t, "d1")
	follower, _ := newTestDelegate(t, "d2")
	var heads [][]byte
	for i := 0; i < 3; i++ {
		require.NoError(t, committer.OnCommitInstruction(stamp(committer, "d1")))
		heads = append(heads, net.out[len(net.out)-1].msg.(*lib.BroadcastCommittedBlock).Block)
	}
	tests := []struct {
		name   string
		detail string
		block  []byte
		height uint64
	}{
		{name: "first", detail: "adopts height 1", block: heads[0], height: 1},
		{name: "duplicate", detail: "the same height twice is a no-op", block: heads[0], height: 1},
		{name: "gap", detail: "a block skipping a height does not extend the head and is ignored", block: heads[2], height: 1},
		{name: "next", detail: "adopts height 2", block: heads[1], height: 2},
		{name: "stale", detail: "a lower height is ignored", block: heads[0], height: 2},
		{name: "last", detail: "adopts height 3", block: heads[2], height: 3},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.NoError(t, follower.OnCommittedBlockBroadcast(test.block))
			require.Equal(t, test.height, follower.last.Height)
			require.Equal(t, test.height+1, follower.inProgress.Height)
		})
	}
	require.Equal(t, committer.last.Hash(), follower.last.Hash())
	height, err := follower.store.LastHeight()
	require.NoError(t, err)
	require.Equal(t, uint64(3), height)
}

func TestPendingCarryOver(t *testing.T) {
	committer, net := newTestDelegate(t, "d1")
	follower, _ := newTestDelegate(t, "d2")
	a, b := newTestTx(t, "bob", 1), newTestTx(t, "carol", 2)
	for _, d := range []*Delegate{committer, follower} {
		require.NoError(t, d.AddTransaction(a))
		require.NoError(t, d.AddTransaction(a))
	}
	// the committer proposed before the second copy of a and b arrived
	proposal := committer.inProgress.Copy()
	proposal.Transactions = proposal.Transactions[:1]
	proposal.Committer = "d1"
	for _, d := range []*Delegate{committer, follower} {
		require.NoError(t, d.AddTransaction(b))
	}
	require.NoError(t, committer.OnCommitInstruction(proposal.Bytes()))
	committed := net.out[len(net.out)-1].msg.(*lib.BroadcastCommittedBlock).Block
	require.NoError(t, follower.OnCommittedBlockBroadcast(committed))
	for _, d := range []*Delegate{committer, follower} {
		require.Len(t, d.inProgress.Transactions, 2, d.ID)
		require.Equal(t, a.HashString(), d.inProgress.Transactions[0].HashString())
		require.Equal(t, b.HashString(), d.inProgress.Transactions[1].HashString())
	}
}

func TestDelegateHandleMessage(t *testing.T) {
	d, net := newTestDelegate(t, "d1")
	handle := func(m lib.Message) lib.ErrorI {
		return d.HandleMessage(&lib.MessageAndMetadata{Message: m, Sender: "gov"})
	}
	require.NoError(t, handle(&lib.NewVotingRound{Round: 4, Delegates: []string{"d1"}}))
	require.NoError(t, handle(&lib.PostTransaction{Transaction: newTestTx(t, "bob", 3)}))
	require.NoError(t, handle(&lib.ProposeBlock{Round: 4, Candidates: []string{"d1"}}))
	require.Len(t, net.out, 1)
	accounts := lib.Accounts{"alice": lib.NewAmount(1), "bob": lib.NewAmount(2)}
	require.NoError(t, handle(&lib.AcceptRewards{Accounts: accounts}))
	// the mirror is a copy
	accounts["bob"] = 0
	s := d.Snapshot()
	require.Equal(t, uint64(4), s.Round)
	require.Equal(t, 1, s.Pending)
	require.Equal(t, []string{"d1"}, s.Candidates)
	require.Equal(t, lib.NewAmount(2), s.Accounts["bob"])
	require.Equal(t, lib.CodeUnknownMessage, handle(nil).Code())
}
