package controller

import (
	"fmt"

	"github.com/canopy-network/dpos/lib"
)

func ErrNotMyCommit(committer, self string) lib.ErrorI {
	return lib.NewError(lib.CodeNotMyCommit, lib.ConsensusModule, fmt.Sprintf("commit for %s delivered to %s", committer, self))
}

func ErrUnknownDelegate(id string) lib.ErrorI {
	return lib.NewError(lib.CodeUnknownDelegate, lib.ConsensusModule, fmt.Sprintf("unknown delegate: %s", id))
}

func ErrUnknownClient(id string) lib.ErrorI {
	return lib.NewError(lib.CodeUnknownParticipant, lib.P2PModule, fmt.Sprintf("unknown client: %s", id))
}
