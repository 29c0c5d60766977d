package fsm

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/canopy-network/dpos/lib"
	"github.com/nsf/jsondiff"
	"github.com/stretchr/testify/require"
)

const testAuthority = "gov"

func newTestLedger(accounts lib.Accounts) *Ledger {
	return NewLedger(accounts, testAuthority, lib.NewNullLogger())
}

func newTestBlock(t *testing.T, txs ...*lib.Transaction) *lib.Block {
	b := lib.NewBlock(nil, time.UnixMicro(1))
	for _, tx := range txs {
		require.NoError(t, b.AddTransaction(tx))
	}
	return b
}

// requireAccountsJSON compares mappings through their JSON form to print a readable diff on failure
func requireAccountsJSON(t *testing.T, expected, got lib.Accounts) {
	e, err := json.Marshal(expected)
	require.NoError(t, err)
	g, err := json.Marshal(got)
	require.NoError(t, err)
	opts := jsondiff.DefaultConsoleOptions()
	diff, explanation := jsondiff.Compare(e, g, &opts)
	require.Equal(t, jsondiff.FullMatch, diff, explanation)
}

func TestApplyBlock(t *testing.T) {
	rates := lib.DefaultConsensusConfig().Rates()
	transfer, err := lib.NewTransaction("A", "B", lib.NewAmount(20), rates)
	require.NoError(t, err)
	tests := []struct {
		name       string
		detail     string
		accounts   lib.Accounts
		txs        []*lib.Transaction
		candidates []string
		expected   lib.Accounts
		result     *SettlementResult
	}{
		{
			name:       "single transfer",
			detail:     "the sender pays amount, tax and fee; tax goes to the authority; fees split over three candidates",
			accounts:   lib.Accounts{"A": lib.NewAmount(100), "B": lib.NewAmount(50)},
			txs:        []*lib.Transaction{transfer},
			candidates: []string{"d1", "d2", "d3"},
			expected: lib.Accounts{
				// the sender pays amount + tax + fee (20 + 1.8 + 0.02) so the total supply is conserved
				"A":   lib.MustParseAmount("78.18"),
				"B":   lib.NewAmount(70),
				"gov": lib.MustParseAmount("1.800002"),
				"d1":  lib.MustParseAmount("0.006666"),
				"d2":  lib.MustParseAmount("0.006666"),
				"d3":  lib.MustParseAmount("0.006666"),
			},
			result: &SettlementResult{
				Height:       1,
				Transactions: 1,
				TotalTax:     lib.MustParseAmount("1.8"),
				TotalFee:     lib.MustParseAmount("0.02"),
				FeeShare:     lib.MustParseAmount("0.006666"),
				Remainder:    lib.Amount(2),
				Candidates:   []string{"d1", "d2", "d3"},
			},
		},
		{
			name:       "empty block",
			detail:     "a block without transactions changes nothing",
			accounts:   lib.Accounts{"A": lib.NewAmount(1)},
			candidates: []string{"d1"},
			expected:   lib.Accounts{"A": lib.NewAmount(1), "gov": 0, "d1": 0},
			result: &SettlementResult{
				Height:     1,
				Candidates: []string{"d1"},
			},
		},
		{
			name:       "overdraft",
			detail:     "affordability is not re-checked, the sender goes negative and is reported",
			accounts:   lib.Accounts{"A": lib.NewAmount(10)},
			txs:        []*lib.Transaction{transfer},
			candidates: []string{"d1", "d2"},
			expected: lib.Accounts{
				"A":   lib.MustParseAmount("-11.82"),
				"B":   lib.NewAmount(20),
				"gov": lib.MustParseAmount("1.8"),
				"d1":  lib.MustParseAmount("0.01"),
				"d2":  lib.MustParseAmount("0.01"),
			},
			result: &SettlementResult{
				Height:       1,
				Transactions: 1,
				TotalTax:     lib.MustParseAmount("1.8"),
				TotalFee:     lib.MustParseAmount("0.02"),
				FeeShare:     lib.MustParseAmount("0.01"),
				Candidates:   []string{"d1", "d2"},
				Overdrawn:    []string{"A"},
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ledger := newTestLedger(test.accounts)
			before := ledger.Total()
			result, e := ledger.ApplyBlock(newTestBlock(t, test.txs...), test.candidates)
			require.NoError(t, e)
			require.Equal(t, test.result, result)
			requireAccountsJSON(t, test.expected, ledger.Accounts())
			// value is conserved
			require.Equal(t, before, ledger.Total())
		})
	}
}

func TestApplyBlockErrors(t *testing.T) {
	ledger := newTestLedger(lib.Accounts{"A": lib.NewAmount(1)})
	before := ledger.Accounts()
	_, err := ledger.ApplyBlock(nil, []string{"d1"})
	require.True(t, lib.IsCode(err, lib.MainModule, lib.CodeNilBlock))
	_, err = ledger.ApplyBlock(newTestBlock(t), nil)
	require.True(t, lib.IsCode(err, lib.StateMachineModule, lib.CodeNoCandidates))
	// a malformed transaction aborts the block without partial effects
	b := newTestBlock(t)
	b.Transactions = []*lib.Transaction{{From: "A", To: "B", Amount: 1}, {From: "", To: "B"}}
	_, err = ledger.ApplyBlock(b, []string{"d1"})
	require.Error(t, err)
	require.Equal(t, before, ledger.Accounts())
}

func TestApplyBlockConservation(t *testing.T) {
	rates := lib.DefaultConsensusConfig().Rates()
	rng := rand.New(rand.NewSource(7))
	ids := []string{"alice", "bob", "carol", "del1", "del2", "del3", testAuthority}
	ledger := newTestLedger(DefaultGenesisState(testAuthority).Accounts)
	total := ledger.Total()
	for round := 0; round < 50; round++ {
		var txs []*lib.Transaction
		for i := rng.Intn(6); i > 0; i-- {
			from, to := ids[rng.Intn(len(ids))], ids[rng.Intn(len(ids))]
			tx, err := lib.NewTransaction(from, to, lib.Amount(rng.Int63n(int64(lib.NewAmount(50)))), rates)
			require.NoError(t, err)
			txs = append(txs, tx)
		}
		candidates := ids[3 : 3+1+rng.Intn(3)]
		_, err := ledger.ApplyBlock(newTestBlock(t, txs...), candidates)
		require.NoError(t, err)
		require.Equal(t, total, ledger.Total(), "round %d", round)
	}
}

func TestLedgerAccountsIsACopy(t *testing.T) {
	ledger := newTestLedger(lib.Accounts{"A": lib.NewAmount(1)})
	mirror := ledger.Accounts()
	mirror["A"] = 0
	require.Equal(t, lib.NewAmount(1), ledger.Balance("A"))
	require.Equal(t, testAuthority, ledger.Authority())
}

func TestCheckAffordable(t *testing.T) {
	tx, err := lib.NewTransaction("A", "B", lib.NewAmount(20), lib.DefaultConsensusConfig().Rates())
	require.NoError(t, err)
	require.NoError(t, CheckAffordable(lib.MustParseAmount("21.82"), tx))
	e := CheckAffordable(lib.MustParseAmount("21.819999"), tx)
	require.True(t, lib.IsCode(e, lib.StateMachineModule, lib.CodeInsufficientFunds))
}
