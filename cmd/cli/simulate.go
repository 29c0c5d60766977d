package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/canopy-network/dpos/controller"
	"github.com/canopy-network/dpos/fsm"
	"github.com/canopy-network/dpos/lib"
	"github.com/spf13/cobra"
	"github.com/tjarratt/babble"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	rounds, txs, extraClients = 0, 0, 0
	clientBalance             = ""
	seed                      = int64(0)
)

// clientWords are the building blocks of generated client names
var clientWords = []string{
	"amber", "birch", "cedar", "delta", "ember", "fjord", "grove", "haven", "indigo", "juniper",
	"kestrel", "lumen", "maple", "nova", "onyx", "pine", "quartz", "raven", "sable", "tundra",
}

func init() {
	simulateCmd.Flags().IntVar(&rounds, "rounds", 10, "number of rounds to run")
	simulateCmd.Flags().IntVar(&txs, "txs", 5, "random transactions posted before each round")
	simulateCmd.Flags().IntVar(&extraClients, "clients", 0, "voting clients to add to the genesis")
	simulateCmd.Flags().StringVar(&clientBalance, "client-balance", "100", "starting balance of each added client")
	simulateCmd.Flags().Int64Var(&seed, "seed", 0, "random seed; 0 uses the configured seed")
}

var simulateCmd = &cobra.Command{
	Use:   "simulate --rounds=10 --txs=5 --clients=0",
	Short: "run a fixed number of rounds in process and print the resulting balances",
	Run: func(cmd *cobra.Command, args []string) {
		c := config
		c.MetricsConfig.Enabled = false
		if seed != 0 {
			c.RandomSeed = seed
		}
		genesis, err := fsm.ReadGenesisFromFile(c.DataDirPath, c.AuthorityAccount)
		if err != nil {
			l.Fatal(err.Error())
		}
		balance, err := lib.ParseAmount(clientBalance)
		if err != nil {
			l.Fatal(err.Error())
		}
		AddClients(genesis, extraClients, balance)
		if err = Simulate(c, genesis, rounds, txs, os.Stdout); err != nil {
			l.Fatal(err.Error())
		}
	},
}

// Simulate() runs the rounds to completion and writes a balance table after each one
func Simulate(c lib.Config, genesis *fsm.GenesisState, rounds, txs int, w io.Writer) lib.ErrorI {
	sim, err := controller.NewSimulation(c, genesis, nil, l)
	if err != nil {
		return err
	}
	defer sim.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- sim.Run(ctx) }()
	printer := message.NewPrinter(language.English)
	printBalances(printer, w, "genesis", sim.Accounts())
	for i := 0; i < rounds; i++ {
		sim.PostRandomTransactions(txs)
		timeout := time.Duration(c.MaxRoundElapsedMS)*time.Millisecond + 5*time.Second
		roundCtx, roundCancel := context.WithTimeout(ctx, timeout)
		result, e := sim.RunRound(roundCtx)
		roundCancel()
		if e != nil {
			return ErrRoundTimeout(i+1, e)
		}
		title := fmt.Sprintf("round %d: winner %s, candidates %v, %d txs, tax %s, fee share %s",
			result.Round, result.Winner, result.Candidates, result.Settlement.Transactions,
			result.Settlement.TotalTax, result.Settlement.FeeShare)
		printBalances(printer, w, title, sim.Accounts())
	}
	cancel()
	if e := <-done; e != nil {
		return ErrSimulation(e)
	}
	return nil
}

// AddClients() registers n voting clients with generated names and the given starting balance
func AddClients(genesis *fsm.GenesisState, n int, balance lib.Amount) {
	if n <= 0 {
		return
	}
	namer := babble.Babbler{Count: 2, Separator: "-", Words: clientWords}
	taken := make(map[string]bool)
	for _, id := range genesis.Accounts.IDs() {
		taken[id] = true
	}
	for _, d := range genesis.Delegates {
		taken[d] = true
	}
	for i := 0; n > 0; i++ {
		name := namer.Babble()
		if taken[name] {
			name = fmt.Sprintf("%s-%d", name, i)
		}
		if taken[name] {
			continue
		}
		taken[name] = true
		genesis.AddClient(name, true, balance)
		n--
	}
}

// printBalances() writes the accounts as an aligned table with grouped digits
func printBalances(p *message.Printer, w io.Writer, title string, accounts lib.Accounts) {
	_, _ = p.Fprintf(w, "%s\n", title)
	for _, id := range accounts.IDs() {
		_, _ = p.Fprintf(w, "  %-24s %16.6f\n", id, accounts[id].Float64())
	}
	_, _ = p.Fprintf(w, "  %-24s %16.6f\n", "total", accounts.Total().Float64())
}
