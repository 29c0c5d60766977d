package lib

import "fmt"

/*
	Every protocol message is a concrete type implementing the sealed Message interface.
	Actors consume them with a type switch; the default branch rejects anything unexpected.
*/

// MessageType names a protocol message
type MessageType int

const (
	NewVotingRoundType MessageType = iota
	AcceptVotesType
	ProposeBlockType
	ProposeCandidateBlockType
	CommitBlockType
	BroadcastCommittedBlockType
	AcceptRewardsType
	PostTransactionType
	StartRoundType
	CancelRoundType
)

func (t MessageType) String() string {
	switch t {
	case NewVotingRoundType:
		return "NEW_VOTING_ROUND"
	case AcceptVotesType:
		return "ACCEPT_VOTES"
	case ProposeBlockType:
		return "PROPOSE_BLOCK"
	case ProposeCandidateBlockType:
		return "PROPOSE_CANDIDATE_BLOCK"
	case CommitBlockType:
		return "COMMIT_BLOCK"
	case BroadcastCommittedBlockType:
		return "BROADCAST_COMMITTED_BLOCK"
	case AcceptRewardsType:
		return "ACCEPT_REWARDS"
	case PostTransactionType:
		return "POST_TRANSACTION"
	case StartRoundType:
		return "START_ROUND"
	case CancelRoundType:
		return "CANCEL_ROUND"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(t))
	}
}

// Message is the sealed set of payloads exchanged between participants
type Message interface {
	Type() MessageType
	isMessage()
}

// NewVotingRound announces a round and the delegates eligible for votes (authority -> all)
type NewVotingRound struct {
	Round     uint64   `json:"round"`
	Delegates []string `json:"delegates"`
}

// AcceptVotes is a single vote for a delegate (client -> authority)
type AcceptVotes struct {
	Round uint64 `json:"round"`
	Name  string `json:"name"`
}

// ProposeBlock instructs the round's candidates to propose (authority -> all, candidates act)
type ProposeBlock struct {
	Round      uint64   `json:"round"`
	Candidates []string `json:"candidates"`
}

// ProposeCandidateBlock carries a candidate's serialized block-in-progress (delegate -> authority)
type ProposeCandidateBlock struct {
	Name  string `json:"name"`
	Block []byte `json:"block"`
}

// CommitBlock carries the committer-stamped winning block (authority -> winning delegate only)
type CommitBlock struct {
	Block []byte `json:"block"`
}

// BroadcastCommittedBlock carries the newly committed chain head (delegate -> all)
type BroadcastCommittedBlock struct {
	Block []byte `json:"block"`
}

// AcceptRewards carries the full settled account mapping (authority -> all)
type AcceptRewards struct {
	Accounts Accounts `json:"accounts"`
}

// PostTransaction submits a transaction for inclusion (client -> all, delegates act)
type PostTransaction struct {
	Transaction *Transaction `json:"transaction"`
}

// StartRound asks the authority to open a voting round (operator -> authority)
type StartRound struct{}

// CancelRound asks the authority to abandon the current round (operator -> authority)
type CancelRound struct{}

func (*NewVotingRound) Type() MessageType          { return NewVotingRoundType }
func (*AcceptVotes) Type() MessageType             { return AcceptVotesType }
func (*ProposeBlock) Type() MessageType            { return ProposeBlockType }
func (*ProposeCandidateBlock) Type() MessageType   { return ProposeCandidateBlockType }
func (*CommitBlock) Type() MessageType             { return CommitBlockType }
func (*BroadcastCommittedBlock) Type() MessageType { return BroadcastCommittedBlockType }
func (*AcceptRewards) Type() MessageType           { return AcceptRewardsType }
func (*PostTransaction) Type() MessageType         { return PostTransactionType }
func (*StartRound) Type() MessageType              { return StartRoundType }
func (*CancelRound) Type() MessageType             { return CancelRoundType }

func (*NewVotingRound) isMessage()          {}
func (*AcceptVotes) isMessage()             {}
func (*ProposeBlock) isMessage()            {}
func (*ProposeCandidateBlock) isMessage()   {}
func (*CommitBlock) isMessage()             {}
func (*BroadcastCommittedBlock) isMessage() {}
func (*AcceptRewards) isMessage()           {}
func (*PostTransaction) isMessage()         {}
func (*StartRound) isMessage()              {}
func (*CancelRound) isMessage()             {}

// MessageAndMetadata is a message as delivered to an inbox, with the id of the participant that sent it
type MessageAndMetadata struct {
	Message Message // the payload
	Sender  string  // the sender id
}

// IsMember() reports whether id is contained in ids
func IsMember(id string, ids []string) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}
