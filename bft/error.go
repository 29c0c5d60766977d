package bft

import (
	"fmt"

	"github.com/canopy-network/dpos/lib"
)

func ErrUnknownDelegate(id string) lib.ErrorI {
	return lib.NewError(lib.CodeUnknownDelegate, lib.ConsensusModule, fmt.Sprintf("unknown delegate: %s", id))
}

func ErrDuplicateDelegate(id string) lib.ErrorI {
	return lib.NewError(lib.CodeDuplicateDelegate, lib.ConsensusModule, fmt.Sprintf("delegate %s already registered", id))
}

func ErrInsufficientCandidates() lib.ErrorI {
	return lib.NewError(lib.CodeInsufficientCandidates, lib.ConsensusModule, "no delegates to select candidates from")
}

func ErrNoCandidateBlocks(winner string) lib.ErrorI {
	return lib.NewError(lib.CodeNoCandidateBlocks, lib.ConsensusModule, fmt.Sprintf("winner %s has no proposed block", winner))
}

func ErrOutOfPhase(t lib.MessageType, p Phase) lib.ErrorI {
	return lib.NewError(lib.CodeOutOfPhase, lib.ConsensusModule, fmt.Sprintf("%s is not valid in phase %s", t, p))
}

func ErrCommittedBlockMismatch(reason string) lib.ErrorI {
	return lib.NewError(lib.CodeCommittedBlockMismatch, lib.ConsensusModule, "committed block does not match the winning block: "+reason)
}

func ErrStaleRound(current, got uint64) lib.ErrorI {
	return lib.NewError(lib.CodeStaleRound, lib.ConsensusModule, fmt.Sprintf("message for round %d received in round %d", got, current))
}
