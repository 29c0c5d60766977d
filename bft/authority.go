package bft

import (
	"bytes"
	"time"

	"github.com/canopy-network/dpos/fsm"
	"github.com/canopy-network/dpos/lib"
)

/*
	The Authority is the single trusted coordinator of a round:

	IDLE -> VOTING -> CANDIDATE_SELECTED -> PROPOSALS_COLLECTING -> WINNER_SELECTED -> SETTLING -> IDLE

	It owns the vote tallies, the candidate set and the ledger. Other participants only learn about them
	through the messages it broadcasts. It is not safe for concurrent use: the owning actor feeds it one
	message at a time.
*/

// Network is the transport the authority speaks through
type Network interface {
	Broadcast(from string, msg lib.Message)
	Send(from, to string, msg lib.Message) lib.ErrorI
}

// RandI is the source of the winner selection, injectable so tests can force an outcome
type RandI interface {
	Intn(n int) int
}

// Authority runs consensus rounds over the registered delegates
type Authority struct {
	ID     string // the participant id, also the account credited with tax
	Phase  Phase  // current step of the round
	Round  uint64 // current round number, incremented by each StartVotingRound()
	Config lib.ConsensusConfig

	delegates     []string              // registration order
	tallies       map[string]int        // votes per delegate this round
	votesReceived int                   // votes accepted this round
	numVoters     int                   // clients allowed to vote
	quorum        int                   // votes that close the voting phase
	candidates    []string              // ranked candidates of this round
	proposals     map[string]*lib.Block // proposed block per candidate
	winner        string                // the candidate stamped as committer
	winningBlock  *lib.Block            // the stamped block sent to the winner
	roundStart    time.Time             // when the voting phase opened

	ledger  *fsm.Ledger
	network Network
	rand    RandI
	metrics *lib.Metrics
	log     lib.LoggerI
}

// RoundResult is the outcome of a settled round
type RoundResult struct {
	Round      uint64                `json:"round"`
	Winner     string                `json:"winner"`
	Candidates []string              `json:"candidates"`
	Settlement *fsm.SettlementResult `json:"settlement"`
	Duration   time.Duration         `json:"duration"`
}

// Status is a read-only snapshot of the authority
type Status struct {
	Round         uint64         `json:"round"`
	Phase         Phase          `json:"phase"`
	Delegates     []string       `json:"delegates"`
	Tallies       map[string]int `json:"tallies"`
	VotesReceived int            `json:"votesReceived"`
	Quorum        int            `json:"quorum"`
	Candidates    []string       `json:"candidates,omitempty"`
	Proposed      []string       `json:"proposed,omitempty"`
	Winner        string         `json:"winner,omitempty"`
}

// NewAuthority() creates an idle authority; delegates are registered in the order given
func NewAuthority(c lib.ConsensusConfig, delegates []string, numVoters int, ledger *fsm.Ledger, network Network,
	rand RandI, m *lib.Metrics, l lib.LoggerI) (*Authority, lib.ErrorI) {
	a := &Authority{
		ID:        c.AuthorityAccount,
		Phase:     Idle,
		Config:    c,
		tallies:   make(map[string]int),
		numVoters: numVoters,
		ledger:    ledger,
		network:   network,
		rand:      rand,
		metrics:   m,
		log:       l,
	}
	for _, d := range delegates {
		if err := a.RegisterDelegate(d); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// RegisterDelegate() appends a delegate to the registration order
func (a *Authority) RegisterDelegate(id string) lib.ErrorI {
	if id == "" {
		return lib.ErrEmptyAccountID()
	}
	if a.isDelegate(id) {
		return ErrDuplicateDelegate(id)
	}
	a.delegates = append(a.delegates, id)
	return nil
}

// StartVotingRound() opens a new round and announces the eligible delegates
func (a *Authority) StartVotingRound() lib.ErrorI {
	if a.Phase != Idle {
		return ErrOutOfPhase(lib.StartRoundType, a.Phase)
	}
	if len(a.delegates) == 0 {
		return lib.ErrConfiguration("no delegates registered")
	}
	if err := a.Config.Validate(); err != nil {
		return err
	}
	quorum, err := a.Config.Quorum(a.numVoters)
	if err != nil {
		return err
	}
	a.resetRound()
	a.quorum = quorum
	a.Round++
	a.roundStart = time.Now()
	a.setPhase(Voting)
	a.log.Infof("Round %d: voting opened over %d delegates, quorum %d", a.Round, len(a.delegates), a.quorum)
	a.network.Broadcast(a.ID, a.newVotingRound())
	return nil
}

// AcceptVote() tallies a single vote; reaching quorum closes voting and selects the candidates
func (a *Authority) AcceptVote(round uint64, delegate string) lib.ErrorI {
	if a.Phase != Voting {
		return ErrOutOfPhase(lib.AcceptVotesType, a.Phase)
	}
	if round != a.Round {
		return ErrStaleRound(a.Round, round)
	}
	if !a.isDelegate(delegate) {
		return ErrUnknownDelegate(delegate)
	}
	a.tallies[delegate]++
	a.votesReceived++
	a.metrics.IncVotes()
	a.log.Debugf("Round %d: vote for %s (%d/%d)", a.Round, delegate, a.votesReceived, a.quorum)
	if a.votesReceived < a.quorum {
		return nil
	}
	a.setPhase(CandidateSelected)
	return a.SelectCandidates()
}

// SelectCandidates() ranks the delegates and instructs the top ones to propose
func (a *Authority) SelectCandidates() lib.ErrorI {
	if a.Phase != CandidateSelected {
		return ErrOutOfPhase(lib.ProposeBlockType, a.Phase)
	}
	candidates := RankCandidates(a.delegates, a.tallies, a.Config.NumCandidates)
	if len(candidates) == 0 {
		return ErrInsufficientCandidates()
	}
	a.candidates = candidates
	a.proposals = make(map[string]*lib.Block, len(candidates))
	a.setPhase(ProposalsCollecting)
	a.log.Infof("Round %d: candidates %v", a.Round, a.candidates)
	a.network.Broadcast(a.ID, a.proposeBlock())
	return nil
}

// ReceiveProposal() stores a candidate's block; the last missing block triggers winner selection.
// Proposals from non-candidates and repeated proposals are ignored.
func (a *Authority) ReceiveProposal(delegate string, serialized []byte) lib.ErrorI {
	if a.Phase != ProposalsCollecting {
		return ErrOutOfPhase(lib.ProposeCandidateBlockType, a.Phase)
	}
	if !lib.IsMember(delegate, a.candidates) {
		a.log.Debugf("Round %d: ignoring proposal from non-candidate %s", a.Round, delegate)
		return nil
	}
	if _, filled := a.proposals[delegate]; filled {
		a.log.Debugf("Round %d: ignoring repeated proposal from %s", a.Round, delegate)
		return nil
	}
	block, err := lib.UnmarshalBlock(serialized)
	if err != nil {
		return err
	}
	if err = block.Check(); err != nil {
		return err
	}
	a.proposals[delegate] = block
	a.log.Debugf("Round %d: proposal from %s with %d txs (%d/%d)", a.Round, delegate, len(block.Transactions), len(a.proposals), len(a.candidates))
	if len(a.proposals) < len(a.candidates) {
		return nil
	}
	a.setPhase(WinnerSelected)
	return a.SelectWinner()
}

// SelectWinner() picks a candidate uniformly, stamps its block and instructs it alone to commit
func (a *Authority) SelectWinner() lib.ErrorI {
	if a.Phase != WinnerSelected {
		return ErrOutOfPhase(lib.CommitBlockType, a.Phase)
	}
	if len(a.candidates) == 0 {
		return ErrInsufficientCandidates()
	}
	winner := a.candidates[a.rand.Intn(len(a.candidates))]
	block := a.proposals[winner]
	if block == nil {
		return ErrNoCandidateBlocks(winner)
	}
	block.Committer = winner
	a.winner, a.winningBlock = winner, block
	a.setPhase(Settling)
	a.log.Infof("Round %d: %s wins with %d txs", a.Round, winner, len(block.Transactions))
	return a.network.Send(a.ID, winner, &lib.CommitBlock{Block: block.Bytes()})
}

// OnBlockCommitted() verifies the winner's committed block, settles it, broadcasts the new balances
// and closes the round
func (a *Authority) OnBlockCommitted(serialized []byte) (*RoundResult, lib.ErrorI) {
	if a.Phase != Settling {
		return nil, ErrOutOfPhase(lib.BroadcastCommittedBlockType, a.Phase)
	}
	block, err := lib.UnmarshalBlock(serialized)
	if err != nil {
		return nil, err
	}
	if block.Committer != a.winner {
		return nil, ErrCommittedBlockMismatch("committer " + block.Committer + " is not " + a.winner)
	}
	if !bytes.Equal(block.TransactionRoot(), a.winningBlock.TransactionRoot()) {
		return nil, ErrCommittedBlockMismatch("transactions differ")
	}
	settlement, err := a.ledger.ApplyBlock(block, a.candidates)
	if err != nil {
		return nil, err
	}
	result := &RoundResult{
		Round:      a.Round,
		Winner:     a.winner,
		Candidates: a.candidates,
		Settlement: settlement,
		Duration:   time.Since(a.roundStart),
	}
	accounts := a.ledger.Accounts()
	a.network.Broadcast(a.ID, &lib.AcceptRewards{Accounts: accounts})
	a.metrics.UpdateLedger(settlement.Transactions, settlement.TotalTax, settlement.TotalFee, accounts)
	a.metrics.RoundCompleted(result.Duration)
	a.log.Infof("Round %d: settled height %d, tax %s, fee %s", a.Round, block.Height, settlement.TotalTax, settlement.TotalFee)
	a.resetRound()
	a.setPhase(Idle)
	return result, nil
}

// Cancel() abandons the current round, discarding tallies and the partial candidate set
func (a *Authority) Cancel() {
	if a.Phase == Idle {
		return
	}
	a.log.Warnf("Round %d: cancelled in phase %s", a.Round, a.Phase)
	a.resetRound()
	a.setPhase(Idle)
	a.metrics.RoundCancelled()
}

// Resend() repeats the instruction the current phase is waiting on
func (a *Authority) Resend() lib.ErrorI {
	switch a.Phase {
	case Voting:
		a.network.Broadcast(a.ID, a.newVotingRound())
	case ProposalsCollecting:
		a.network.Broadcast(a.ID, a.proposeBlock())
	case Settling:
		return a.network.Send(a.ID, a.winner, &lib.CommitBlock{Block: a.winningBlock.Bytes()})
	}
	return nil
}

// HandleMessage() routes an inbound message to the matching operation.
// A non-nil RoundResult is returned when the message closed a round.
func (a *Authority) HandleMessage(msg *lib.MessageAndMetadata) (*RoundResult, lib.ErrorI) {
	switch m := msg.Message.(type) {
	case *lib.StartRound:
		return nil, a.StartVotingRound()
	case *lib.CancelRound:
		a.Cancel()
		return nil, nil
	case *lib.AcceptVotes:
		return nil, a.AcceptVote(m.Round, m.Name)
	case *lib.ProposeCandidateBlock:
		return nil, a.ReceiveProposal(m.Name, m.Block)
	case *lib.BroadcastCommittedBlock:
		return a.OnBlockCommitted(m.Block)
	case *lib.NewVotingRound, *lib.ProposeBlock, *lib.CommitBlock, *lib.AcceptRewards, *lib.PostTransaction:
		// own broadcasts and traffic addressed to other participants
		return nil, nil
	default:
		return nil, lib.ErrUnknownMessage(msg.Message)
	}
}

// Status() snapshots the authority
func (a *Authority) Status() *Status {
	s := &Status{
		Round:         a.Round,
		Phase:         a.Phase,
		Delegates:     append([]string(nil), a.delegates...),
		Tallies:       make(map[string]int, len(a.tallies)),
		VotesReceived: a.votesReceived,
		Quorum:        a.quorum,
		Candidates:    append([]string(nil), a.candidates...),
		Winner:        a.winner,
	}
	for d, n := range a.tallies {
		s.Tallies[d] = n
	}
	for _, c := range a.candidates {
		if a.proposals[c] != nil {
			s.Proposed = append(s.Proposed, c)
		}
	}
	return s
}

// Delegates() is the registration order
func (a *Authority) Delegates() []string { return append([]string(nil), a.delegates...) }

// Ledger() is the authoritative account mapping
func (a *Authority) Ledger() *fsm.Ledger { return a.ledger }

func (a *Authority) newVotingRound() *lib.NewVotingRound {
	return &lib.NewVotingRound{Round: a.Round, Delegates: append([]string(nil), a.delegates...)}
}

func (a *Authority) proposeBlock() *lib.ProposeBlock {
	return &lib.ProposeBlock{Round: a.Round, Candidates: append([]string(nil), a.candidates...)}
}

// resetRound() zeroes every per-round field
func (a *Authority) resetRound() {
	a.tallies = make(map[string]int, len(a.delegates))
	for _, d := range a.delegates {
		a.tallies[d] = 0
	}
	a.votesReceived, a.quorum = 0, 0
	a.candidates, a.proposals = nil, nil
	a.winner, a.winningBlock = "", nil
}

func (a *Authority) setPhase(p Phase) {
	a.Phase = p
	a.metrics.UpdateRound(a.Round, int(p))
}

func (a *Authority) isDelegate(id string) bool { return lib.IsMember(id, a.delegates) }
