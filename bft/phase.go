package bft

import "fmt"

// Phase is a step of the authority's round
type Phase int

const (
	Idle                Phase = iota // waiting for the next round
	Voting                           // collecting client votes until quorum
	CandidateSelected                // quorum reached, ranking delegates
	ProposalsCollecting              // waiting for a block from every candidate
	WinnerSelected                   // all blocks proposed, choosing the committer
	Settling                         // waiting for the winner's committed block
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "IDLE"
	case Voting:
		return "VOTING"
	case CandidateSelected:
		return "CANDIDATE_SELECTED"
	case ProposalsCollecting:
		return "PROPOSALS_COLLECTING"
	case WinnerSelected:
		return "WINNER_SELECTED"
	case Settling:
		return "SETTLING"
	default:
		return fmt.Sprintf("PHASE(%d)", int(p))
	}
}

// MarshalText() renders the phase by name in JSON
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText() parses a phase name
func (p *Phase) UnmarshalText(text []byte) error {
	for candidate := Idle; candidate <= Settling; candidate++ {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}
