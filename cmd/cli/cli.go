package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/canopy-network/dpos/cmd/rpc"
	"github.com/canopy-network/dpos/controller"
	"github.com/canopy-network/dpos/fsm"
	"github.com/canopy-network/dpos/lib"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var rootCmd = &cobra.Command{
	Use:   "dpos",
	Short: "a delegated proof of stake ledger simulation",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(rpc.SoftwareVersion)
	},
}

var (
	client, config, l = &rpc.Client{}, lib.Config{}, (*lib.Logger)(nil)
	DataDir           = ""
	roundInterval     = time.Duration(0)
	txsPerRound       = 0
)

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.PersistentFlags().StringVar(&DataDir, "data-dir", lib.DefaultDataDirPath(), "custom data directory location")
	startCmd.Flags().DurationVar(&roundInterval, "interval", time.Second, "pause between rounds")
	startCmd.Flags().IntVar(&txsPerRound, "txs", 5, "random transactions posted before each round")
	cobra.OnInitialize(func() {
		config = InitializeDataDirectory(DataDir, lib.NewDefaultLogger())
		l = config.MainConfig.NewLogger()
		client = rpc.NewClient(config.RPCUrl, config.TimeoutS)
	})
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

var startCmd = &cobra.Command{
	Use:   "start --interval=1s --txs=5",
	Short: "run rounds continuously, serving the query api and metrics until interrupted",
	Run: func(cmd *cobra.Command, args []string) {
		Start()
	},
}

// Start() is the entrypoint of the long-running simulation
func Start() {
	genesis, err := fsm.ReadGenesisFromFile(config.DataDirPath, config.AuthorityAccount)
	if err != nil {
		l.Fatal(err.Error())
	}
	// initialize the metrics server
	metrics := lib.NewMetricsServer(config.MetricsConfig, l)
	// create the participants
	sim, err := controller.NewSimulation(config, genesis, metrics, l)
	if err != nil {
		l.Fatal(err.Error())
	}
	defer sim.Close()
	// initialize and start the rpc server
	rpcServer := rpc.NewServer(sim, config.RPCConfig, l)
	if err = rpcServer.Start(); err != nil {
		l.Fatal(err.Error())
	}
	defer rpcServer.Stop()
	// run until a kill signal is received
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer stop()
	done := make(chan error, 1)
	go func() { done <- sim.Run(ctx) }()
	go runRounds(ctx, sim)
	if e := <-done; e != nil {
		l.Error(e.Error())
	}
	l.Info("Exit command received")
}

// runRounds() posts random transactions and runs a round every interval until the context is done
func runRounds(ctx context.Context, sim *controller.Simulation) {
	for {
		sim.PostRandomTransactions(txsPerRound)
		result, err := sim.RunRound(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				l.Error(err.Error())
			}
			return
		}
		l.Infof("Round %d settled by %s at height %d (%d txs)", result.Round, result.Winner,
			result.Settlement.Height, result.Settlement.Transactions)
		select {
		case <-ctx.Done():
			return
		case <-time.After(roundInterval):
		}
	}
}

// InitializeDataDirectory() populates the data directory with configuration and genesis files if missing
func InitializeDataDirectory(dataDirPath string, log lib.LoggerI) (c lib.Config) {
	// make the data dir if missing
	if err := os.MkdirAll(dataDirPath, os.ModePerm); err != nil {
		log.Fatal(err.Error())
	}
	// make the config.json file if missing
	configFilePath := filepath.Join(dataDirPath, lib.ConfigFilePath)
	if _, err := os.Stat(configFilePath); errors.Is(err, os.ErrNotExist) {
		log.Infof("Creating %s file", lib.ConfigFilePath)
		if err = lib.DefaultConfig().WriteToFile(configFilePath); err != nil {
			log.Fatal(err.Error())
		}
	}
	// load the config
	c, err := lib.NewConfigFromFile(configFilePath)
	if err != nil {
		log.Fatal(err.Error())
	}
	c.DataDirPath = dataDirPath
	// make the genesis.json file if missing
	if _, e := fsm.ReadGenesisFromFile(dataDirPath, c.AuthorityAccount); e != nil {
		log.Fatal(e.Error())
	}
	return
}

// writeToConsole() prints numbers with grouping, strings as is and everything else as indented JSON
func writeToConsole(a any, err error) {
	if err != nil {
		l.Fatal(err.Error())
	}
	switch v := a.(type) {
	case int, uint32, uint64:
		p := message.NewPrinter(language.English)
		if _, err := p.Printf("%d\n", v); err != nil {
			l.Fatal(err.Error())
		}
	case string:
		fmt.Println(v)
	case *string:
		fmt.Println(*v)
	default:
		s, err := lib.MarshalJSONIndentString(a)
		if err != nil {
			l.Fatal(err.Error())
		}
		fmt.Println(s)
	}
}
