package controller

import (
	"testing"
	"time"

	"github.com/canopy-network/dpos/lib"
	"github.com/stretchr/testify/require"
	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

func newTestClient(t *testing.T, canVote bool, accounts lib.Accounts, seed int64) (*Client, *testNetwork) {
	net := &testNetwork{}
	return NewClient("alice", canVote, "gov", accounts, lib.DefaultConsensusConfig().Rates(), seed, net, lib.NewNullLogger()), net
}

func TestPostTransaction(t *testing.T) {
	tests := []struct {
		name    string
		detail  string
		amounts []string
		posted  int
	}{
		{
			name:    "affordable",
			detail:  "20 costs 21.82 out of 100",
			amounts: []string{"20"},
			posted:  1,
		},
		{
			name:    "exact balance",
			detail:  "amount + tax + fee may equal the balance",
			amounts: []string{"91.659029"},
			posted:  1,
		},
		{
			name:    "unaffordable",
			detail:  "92 costs 100.372",
			amounts: []string{"92"},
			posted:  0,
		},
		{
			name:    "reserved",
			detail:  "the second 50 is refused because the first is not settled yet",
			amounts: []string{"50", "50"},
			posted:  1,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c, net := newTestClient(t, true, lib.Accounts{"alice": lib.NewAmount(100)}, 1)
			posted := 0
			for _, amount := range test.amounts {
				tx, err := c.PostTransaction("bob", lib.MustParseAmount(amount))
				if err != nil {
					require.True(t, lib.IsCode(err, lib.StateMachineModule, lib.CodeInsufficientFunds))
					continue
				}
				posted++
				require.Equal(t, "alice", tx.From)
			}
			require.Equal(t, test.posted, posted)
			require.Len(t, net.out, test.posted)
			for _, s := range net.out {
				require.Empty(t, s.to)
				require.Equal(t, lib.PostTransactionType, s.msg.Type())
			}
		})
	}
}

// settle delivers a committed block with the transactions and the resulting ledger, in the order the bus does
func settle(t *testing.T, c *Client, accounts lib.Accounts, txs ...*lib.Transaction) {
	block := lib.NewBlock(nil, time.UnixMicro(1))
	block.Committer = "del1"
	for _, tx := range txs {
		require.NoError(t, block.AddTransaction(tx))
	}
	require.NoError(t, c.HandleMessage(&lib.MessageAndMetadata{
		Message: &lib.BroadcastCommittedBlock{Block: block.Bytes()},
		Sender:  "del1",
	}))
	require.NoError(t, c.HandleMessage(&lib.MessageAndMetadata{
		Message: &lib.AcceptRewards{Accounts: accounts},
		Sender:  "gov",
	}))
}

func TestReservationClearedBySettlement(t *testing.T) {
	c, _ := newTestClient(t, false, lib.Accounts{"alice": lib.NewAmount(100)}, 1)
	tx, err := c.PostTransaction("bob", lib.NewAmount(50))
	require.NoError(t, err)
	require.Equal(t, lib.MustParseAmount("45.45"), c.Balance())
	settle(t, c, lib.Accounts{"alice": lib.MustParseAmount("45.45")}, tx)
	require.Equal(t, lib.MustParseAmount("45.45"), c.Balance())
	require.Zero(t, c.Snapshot().Reserved)
}

func TestRepeatedCommitBroadcast(t *testing.T) {
	c, _ := newTestClient(t, false, lib.Accounts{"alice": lib.NewAmount(100)}, 1)
	tx, err := c.PostTransaction("bob", lib.NewAmount(10))
	require.NoError(t, err)
	settle(t, c, lib.Accounts{"alice": lib.NewAmount(100) - tx.Cost()}, tx)
	// the same transfer posted again is not released by a late echo of the settled block
	_, err = c.PostTransaction("bob", lib.NewAmount(10))
	require.NoError(t, err)
	settle(t, c, lib.Accounts{"alice": lib.NewAmount(100) - tx.Cost()}, tx)
	require.Equal(t, tx.Cost(), c.Snapshot().Reserved)
}

func TestReservationKeptUntilIncluded(t *testing.T) {
	tests := []struct {
		name     string
		detail   string
		included bool
		reserved lib.Amount
	}{
		{
			name:     "carried over",
			detail:   "a settlement of a block without the transaction keeps its cost reserved",
			included: false,
			reserved: lib.MustParseAmount("87.28"),
		},
		{
			name:     "included",
			detail:   "the settlement of the block holding the transaction releases it",
			included: true,
			reserved: 0,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c, _ := newTestClient(t, false, lib.Accounts{"alice": lib.NewAmount(100)}, 1)
			tx, err := c.PostTransaction("bob", lib.NewAmount(80))
			require.NoError(t, err)
			accounts := lib.Accounts{"alice": lib.NewAmount(100)}
			var settled []*lib.Transaction
			if test.included {
				accounts["alice"] -= tx.Cost()
				settled = append(settled, tx)
			}
			settle(t, c, accounts, settled...)
			require.Equal(t, test.reserved, c.Snapshot().Reserved)
			require.Equal(t, lib.MustParseAmount("12.72"), c.Balance())
			// a second transfer of 80 would overdraw the account
			_, err = c.PostTransaction("bob", lib.NewAmount(80))
			require.True(t, lib.IsCode(err, lib.StateMachineModule, lib.CodeInsufficientFunds))
		})
	}
}

func TestVote(t *testing.T) {
	delegates := []string{"del1", "del2", "del3"}
	t.Run("non voter", func(t *testing.T) {
		c, net := newTestClient(t, false, lib.Accounts{}, 1)
		require.NoError(t, c.Vote(1, delegates))
		require.Empty(t, net.out)
	})
	t.Run("single vote to the authority", func(t *testing.T) {
		c, net := newTestClient(t, true, lib.Accounts{"del1": lib.NewAmount(1)}, 1)
		require.NoError(t, c.Vote(3, delegates))
		require.Len(t, net.out, 1)
		require.Equal(t, "gov", net.out[0].to)
		vote := net.out[0].msg.(*lib.AcceptVotes)
		require.Equal(t, uint64(3), vote.Round)
		// del1 holds the only positive balance
		require.Equal(t, "del1", vote.Name)
		require.Equal(t, "del1", c.Snapshot().LastVote)
	})
	t.Run("stake weighted", func(t *testing.T) {
		accounts := lib.Accounts{"del1": lib.NewAmount(900), "del2": lib.NewAmount(100), "del3": 0}
		c, net := newTestClient(t, true, accounts, 42)
		counts := map[string]int{}
		for i := 0; i < 2000; i++ {
			require.NoError(t, c.Vote(1, delegates))
			counts[net.out[i].msg.(*lib.AcceptVotes).Name]++
		}
		require.Zero(t, counts["del3"])
		require.Greater(t, counts["del1"], 1600)
		require.Greater(t, counts["del2"], 100)
	})
	t.Run("uniform without stake", func(t *testing.T) {
		c, net := newTestClient(t, true, lib.Accounts{}, 7)
		counts := map[string]int{}
		for i := 0; i < 3000; i++ {
			require.NoError(t, c.Vote(1, delegates))
			counts[net.out[i].msg.(*lib.AcceptVotes).Name]++
		}
		for _, d := range delegates {
			require.Greater(t, counts[d], 800, d)
		}
	})
	t.Run("categorical draw", func(t *testing.T) {
		accounts := lib.Accounts{"del1": lib.NewAmount(3), "del2": lib.NewAmount(1), "del3": lib.NewAmount(6)}
		c, net := newTestClient(t, true, accounts, 11)
		dist := distuv.NewCategorical([]float64{3, 1, 6}, xrand.NewSource(11))
		for i := 0; i < 50; i++ {
			require.NoError(t, c.Vote(1, delegates))
			require.Equal(t, delegates[int(dist.Rand())], net.out[i].msg.(*lib.AcceptVotes).Name)
		}
	})
	t.Run("deterministic", func(t *testing.T) {
		accounts := lib.Accounts{"del1": lib.NewAmount(5), "del2": lib.NewAmount(5), "del3": lib.NewAmount(5)}
		a, netA := newTestClient(t, true, accounts, 99)
		b, netB := newTestClient(t, true, accounts, 99)
		for i := 0; i < 20; i++ {
			require.NoError(t, a.Vote(1, delegates))
			require.NoError(t, b.Vote(1, delegates))
		}
		require.Equal(t, netA.out, netB.out)
	})
}

func TestClientHandleMessage(t *testing.T) {
	c, net := newTestClient(t, true, lib.Accounts{"del1": lib.NewAmount(1)}, 1)
	require.NoError(t, c.HandleMessage(&lib.MessageAndMetadata{Message: &lib.NewVotingRound{Round: 2, Delegates: []string{"del1"}}}))
	require.Len(t, net.out, 1)
	require.NoError(t, c.HandleMessage(&lib.MessageAndMetadata{Message: &lib.ProposeBlock{Round: 2}}))
	require.Len(t, net.out, 1)
	require.Equal(t, lib.CodeUnknownMessage, c.HandleMessage(&lib.MessageAndMetadata{}).Code())
}

func TestOneVotePerRound(t *testing.T) {
	c, net := newTestClient(t, true, lib.Accounts{"del1": lib.NewAmount(1)}, 1)
	announce := &lib.MessageAndMetadata{Message: &lib.NewVotingRound{Round: 1, Delegates: []string{"del1"}}, Sender: "gov"}
	require.NoError(t, c.HandleMessage(announce))
	require.NoError(t, c.HandleMessage(announce))
	require.Len(t, net.out, 1)
	require.NoError(t, c.HandleMessage(&lib.MessageAndMetadata{Message: &lib.NewVotingRound{Round: 2, Delegates: []string{"del1"}}}))
	require.Len(t, net.out, 2)
}
