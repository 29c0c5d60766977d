package fsm

import (
	"github.com/canopy-network/dpos/lib"
)

/*
	The Ledger is the authoritative account mapping. Only the authority owns one; every other participant
	holds a read-only mirror that is replaced by the mapping the authority broadcasts after settlement.

	Settlement of a committed block, per transaction in block order:
	  - the sender pays amount + tax + fee
	  - the recipient receives amount
	  - tax accumulates to the authority account
	  - fees accumulate and are split evenly across the round's candidates; the indivisible remainder goes to
	    the authority account so the total supply is unchanged
	Affordability is not re-checked here, it is the submitting client's responsibility.
*/

// Ledger maps account ids to balances
type Ledger struct {
	accounts  lib.Accounts // the balances
	authority string       // the account credited with tax
	log       lib.LoggerI
}

// SettlementResult summarizes the effects of a settled block
type SettlementResult struct {
	Height       uint64     `json:"height"`
	Committer    string     `json:"committer"`
	Transactions int        `json:"transactions"`
	TotalTax     lib.Amount `json:"totalTax"`
	TotalFee     lib.Amount `json:"totalFee"`
	FeeShare     lib.Amount `json:"feeShare"`  // credited to each candidate
	Remainder    lib.Amount `json:"remainder"` // fee dust credited to the authority
	Candidates   []string   `json:"candidates"`
	Overdrawn    []string   `json:"overdrawn,omitempty"` // senders left with a negative balance
}

// NewLedger() creates a ledger over a copy of the accounts, ensuring the authority account exists
func NewLedger(accounts lib.Accounts, authority string, log lib.LoggerI) *Ledger {
	cp := accounts.Copy()
	if _, ok := cp[authority]; !ok {
		cp[authority] = 0
	}
	return &Ledger{accounts: cp, authority: authority, log: log}
}

// Accounts() returns a copy of the full mapping, safe to broadcast
func (l *Ledger) Accounts() lib.Accounts { return l.accounts.Copy() }

// Balance() returns the balance of an account (zero if unknown)
func (l *Ledger) Balance(id string) lib.Amount { return l.accounts[id] }

// Total() is the sum of every balance
func (l *Ledger) Total() lib.Amount { return l.accounts.Total() }

// Authority() is the account credited with tax
func (l *Ledger) Authority() string { return l.authority }

// ApplyBlock() settles a committed block against the ledger and rewards the candidates of the round.
// The ledger is only modified if the whole block settles.
func (l *Ledger) ApplyBlock(block *lib.Block, candidates []string) (*SettlementResult, lib.ErrorI) {
	if block == nil {
		return nil, lib.ErrNilBlock()
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates()
	}
	next := l.accounts.Copy()
	result := &SettlementResult{
		Height:       block.Height,
		Committer:    block.Committer,
		Transactions: len(block.Transactions),
		Candidates:   append([]string(nil), candidates...),
	}
	for _, tx := range block.Transactions {
		if err := tx.Check(); err != nil {
			return nil, err
		}
		next[tx.From] -= tx.Cost()
		next[tx.To] += tx.Amount
		result.TotalTax += tx.Tax
		result.TotalFee += tx.Fee
	}
	next[l.authority] += result.TotalTax
	// split the fees evenly across the candidates of the round
	n := lib.Amount(len(candidates))
	result.FeeShare, result.Remainder = result.TotalFee/n, result.TotalFee%n
	for _, c := range candidates {
		next[c] += result.FeeShare
	}
	next[l.authority] += result.Remainder
	// surface overdrafts, settlement does not prevent them
	for _, tx := range block.Transactions {
		if next[tx.From] < 0 && !lib.IsMember(tx.From, result.Overdrawn) {
			result.Overdrawn = append(result.Overdrawn, tx.From)
			l.log.Warnf("Account %s overdrawn to %s at height %d", tx.From, next[tx.From], block.Height)
		}
	}
	l.accounts = next
	return result, nil
}

// CheckAffordable() is the client side check that the sender can pay for the transaction
func CheckAffordable(balance lib.Amount, tx *lib.Transaction) lib.ErrorI {
	if tx.Cost() > balance {
		return ErrInsufficientFunds(tx.From, balance, tx.Cost())
	}
	return nil
}
