package p2p

import (
	"fmt"

	"github.com/canopy-network/dpos/lib"
)

func ErrUnknownParticipant(id string) lib.ErrorI {
	return lib.NewError(lib.CodeUnknownParticipant, lib.P2PModule, fmt.Sprintf("participant %s is not registered", id))
}

func ErrDuplicateParticipant(id string) lib.ErrorI {
	return lib.NewError(lib.CodeDuplicateParticipant, lib.P2PModule, fmt.Sprintf("participant %s is already registered", id))
}

func ErrMailboxClosed(id string) lib.ErrorI {
	return lib.NewError(lib.CodeMailboxClosed, lib.P2PModule, fmt.Sprintf("mailbox of %s is closed", id))
}
