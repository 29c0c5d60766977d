package fsm

import (
	"fmt"

	"github.com/canopy-network/dpos/lib"
)

// This file defines error objects for the State Machine module

func ErrInsufficientFunds(account string, balance, cost lib.Amount) lib.ErrorI {
	return lib.NewError(lib.CodeInsufficientFunds, lib.StateMachineModule, fmt.Sprintf("account %s holds %s but the transfer costs %s", account, balance, cost))
}

func ErrInvalidGenesis(reason string) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidGenesis, lib.StateMachineModule, fmt.Sprintf("invalid genesis: %s", reason))
}

func ErrNoCandidates() lib.ErrorI {
	return lib.NewError(lib.CodeNoCandidates, lib.StateMachineModule, "no candidates to split the fees across")
}
