package cli

import (
	"fmt"

	"github.com/canopy-network/dpos/lib"
)

func ErrRoundTimeout(round int, err error) lib.ErrorI {
	return lib.NewError(lib.CodeRoundTimeout, lib.MainModule, fmt.Sprintf("round %d did not settle: %s", round, err.Error()))
}

func ErrSimulation(err error) lib.ErrorI {
	return lib.NewError(lib.CodeSimulation, lib.MainModule, fmt.Sprintf("simulation stopped with err: %s", err.Error()))
}
