package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "query the api of a running simulation",
}

func init() {
	queryCmd.AddCommand(healthCmd)
	queryCmd.AddCommand(accountsCmd)
	queryCmd.AddCommand(roundCmd)
	queryCmd.AddCommand(lastRoundCmd)
	queryCmd.AddCommand(delegatesCmd)
	queryCmd.AddCommand(delegateCmd)
	queryCmd.AddCommand(clientsCmd)
	queryCmd.AddCommand(blockCmd)
	queryCmd.AddCommand(stateDiffCmd)
}

var (
	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "query the liveness of the simulation",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Health())
		},
	}

	accountsCmd = &cobra.Command{
		Use:   "accounts",
		Short: "query the settled ledger",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Accounts())
		},
	}

	roundCmd = &cobra.Command{
		Use:   "round",
		Short: "query the current round of the authority",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Round())
		},
	}

	lastRoundCmd = &cobra.Command{
		Use:   "last-round",
		Short: "query the outcome of the last settled round",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.LastRound())
		},
	}

	delegatesCmd = &cobra.Command{
		Use:   "delegates",
		Short: "query every delegate",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Delegates())
		},
	}

	delegateCmd = &cobra.Command{
		Use:   "delegate <id>",
		Short: "query a delegate",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Delegate(args[0]))
		},
	}

	clientsCmd = &cobra.Command{
		Use:   "clients",
		Short: "query every client",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Clients())
		},
	}

	blockCmd = &cobra.Command{
		Use:   "block <delegate> [height]",
		Short: "query a committed block from a delegate's chain, the head if no height is given",
		Args:  cobra.RangeArgs(1, 2),
		Run: func(cmd *cobra.Command, args []string) {
			height := uint64(0)
			if len(args) == 2 {
				h, err := strconv.ParseUint(args[1], 10, 64)
				if err != nil {
					l.Fatal(err.Error())
				}
				height = h
			}
			writeToConsole(client.Block(args[0], height))
		},
	}

	stateDiffCmd = &cobra.Command{
		Use:   "state-diff <delegate>",
		Short: "compare a delegate's mirror of the accounts with the settled ledger",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.StateDiff(args[0]))
		},
	}
)
