package lib

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/units"
)

/* This file implements logic for 'user controlled' global configurations of each module of the simulation */

const (
	// FILE NAMES in the 'data directory'
	ConfigFilePath  = "config.json"  // the file path for the simulation configuration
	GenesisFilePath = "genesis.json" // the file path for the genesis accounts, delegates and clients
)

// Config is the structure of the user configuration options for a simulation
type Config struct {
	MainConfig      // main options spanning over all modules
	ConsensusConfig // round options
	StoreConfig     // chain store options
	RPCConfig       // query api options
	MetricsConfig   // telemetry options
}

// DefaultConfig() returns a Config with developer set options
func DefaultConfig() Config {
	return Config{
		MainConfig:      DefaultMainConfig(),
		ConsensusConfig: DefaultConsensusConfig(),
		StoreConfig:     DefaultStoreConfig(),
		RPCConfig:       DefaultRPCConfig(),
		MetricsConfig:   DefaultMetricsConfig(),
	}
}

// Validate() checks the options a round cannot start without
func (c Config) Validate() ErrorI {
	if err := c.ConsensusConfig.Validate(); err != nil {
		return err
	}
	if c.StoreConfig.MemTableSize <= 0 {
		return ErrConfiguration("store mem table size must be positive")
	}
	return nil
}

// MAIN CONFIG BELOW

type MainConfig struct {
	LogLevel    string `json:"logLevel"`    // any level includes the levels above it: debug < info < warning < error
	DataDirPath string `json:"dataDirPath"` // path of the designated folder where config, genesis and logs live
	LogToFile   bool   `json:"logToFile"`   // additionally write logs to an auto-rotating file in the data directory
	LogFileSize int64  `json:"logFileSize"` // rotation threshold of the log file in bytes
}

// DefaultMainConfig() sets log level to 'info'
func DefaultMainConfig() MainConfig {
	return MainConfig{
		LogLevel:    "info", // everything but debug is the default
		DataDirPath: DefaultDataDirPath(),
		LogToFile:   false,
		LogFileSize: int64(10 * units.MiB),
	}
}

// GetLogLevel() parses the log string in the config file into a LogLevel Enum
func (m *MainConfig) GetLogLevel() int32 {
	switch {
	case strings.Contains(strings.ToLower(m.LogLevel), "deb"):
		return DebugLevel
	case strings.Contains(strings.ToLower(m.LogLevel), "inf"):
		return InfoLevel
	case strings.Contains(strings.ToLower(m.LogLevel), "war"):
		return WarnLevel
	case strings.Contains(strings.ToLower(m.LogLevel), "err"):
		return ErrorLevel
	default:
		return DebugLevel
	}
}

// NewLogger() builds the process logger described by the main config
func (m *MainConfig) NewLogger() *Logger {
	if !m.LogToFile {
		return NewLogger(LoggerConfig{Level: m.GetLogLevel(), Out: os.Stdout})
	}
	return NewLogger(LoggerConfig{Level: m.GetLogLevel(), MaxSizeMB: int(m.LogFileSize / int64(units.MiB))}, m.DataDirPath)
}

// DefaultDataDirPath() is $USERHOME/.dpos
func DefaultDataDirPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dpos"
	}
	return filepath.Join(home, ".dpos")
}

// CONSENSUS CONFIG BELOW

// ConsensusConfig defines the round parameters of the authority and the economics of settlement
// NOTES:
// - quorum = floor(numVoters * EffectiveVotesFraction)
// - tax and fee are derived per transaction from the amount using TaxRate and FeeRate
// - the watchdog re-sends an outstanding instruction after RoundTimeoutMS (with exponential backoff)
//   and restarts the round once MaxRoundElapsedMS has passed without progress
type ConsensusConfig struct {
	NumCandidates          int     `json:"numCandidates"`          // how many top-voted delegates propose each round
	EffectiveVotesFraction float64 `json:"effectiveVotesFraction"` // share of voters that closes the voting phase, in (0,1]
	TaxRate                float64 `json:"taxRate"`                // share of each amount paid to the authority account
	FeeRate                float64 `json:"feeRate"`                // share of each amount split across the round's candidates
	AuthorityAccount       string  `json:"authorityAccount"`       // the account credited with tax
	RoundTimeoutMS         int     `json:"roundTimeoutMS"`         // initial phase timeout of the watchdog; 0 disables it
	MaxRoundElapsedMS      int     `json:"maxRoundElapsedMS"`      // time after which a stalled round is cancelled and restarted
	RandomSeed             int64   `json:"randomSeed"`             // winner selection seed; 0 seeds from the clock
}

// DefaultConsensusConfig() mirrors the economics of the reference network
func DefaultConsensusConfig() ConsensusConfig {
	return ConsensusConfig{
		NumCandidates:          3,
		EffectiveVotesFraction: 1.0,
		TaxRate:                0.09,
		FeeRate:                0.001,
		AuthorityAccount:       "gov",
		RoundTimeoutMS:         2000,  // 2 seconds
		MaxRoundElapsedMS:      30000, // 30 seconds
		RandomSeed:             0,
	}
}

// Validate() ensures the consensus parameters describe a runnable round
func (c ConsensusConfig) Validate() ErrorI {
	switch {
	case c.NumCandidates < 1:
		return ErrConfiguration("numCandidates must be at least 1")
	case !(c.EffectiveVotesFraction > 0 && c.EffectiveVotesFraction <= 1):
		return ErrConfiguration(fmt.Sprintf("effectiveVotesFraction %v not in (0,1]", c.EffectiveVotesFraction))
	case c.TaxRate < 0 || c.TaxRate >= 1:
		return ErrConfiguration(fmt.Sprintf("taxRate %v not in [0,1)", c.TaxRate))
	case c.FeeRate < 0 || c.FeeRate >= 1:
		return ErrConfiguration(fmt.Sprintf("feeRate %v not in [0,1)", c.FeeRate))
	case c.AuthorityAccount == "":
		return ErrConfiguration("authorityAccount is empty")
	case c.RoundTimeoutMS < 0 || c.MaxRoundElapsedMS < 0:
		return ErrConfiguration("watchdog timeouts must not be negative")
	}
	return nil
}

// Quorum() returns the number of votes that closes the voting phase
func (c ConsensusConfig) Quorum(numVoters int) (int, ErrorI) {
	if !(c.EffectiveVotesFraction > 0 && c.EffectiveVotesFraction <= 1) {
		return 0, ErrConfiguration(fmt.Sprintf("effectiveVotesFraction %v not in (0,1]", c.EffectiveVotesFraction))
	}
	// a tiny epsilon keeps e.g. 3 * 0.1 * 10 from flooring below an exact integer
	quorum := int(math.Floor(float64(numVoters)*c.EffectiveVotesFraction + 1e-9))
	if quorum < 1 {
		return 0, ErrConfiguration(fmt.Sprintf("quorum of %d voters at fraction %v is zero", numVoters, c.EffectiveVotesFraction))
	}
	return quorum, nil
}

// Rates() converts the configured decimal rates into parts-per-million
func (c ConsensusConfig) Rates() Rates {
	return Rates{TaxPPM: RateToPPM(c.TaxRate), FeePPM: RateToPPM(c.FeeRate)}
}

// STORE CONFIG BELOW

// StoreConfig is user configurations for the per-delegate chain store; the store is always in memory
type StoreConfig struct {
	MemTableSize int64 `json:"memTableSize"` // badger mem-table size in bytes
}

// DefaultStoreConfig() returns the developer recommended store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		MemTableSize: int64(16 * units.MiB),
	}
}

// RPC CONFIG BELOW

type RPCConfig struct {
	RPCPort        string `json:"rpcPort"`        // the port where the query server is hosted
	RPCUrl         string `json:"rpcURL"`         // the url the query client dials
	TimeoutS       int    `json:"timeoutS"`       // the rpc request timeout in seconds
	MaxConnections int    `json:"maxConnections"` // the concurrent connection limit of the listener
}

// DefaultRPCConfig() serves the query api on localhost:50002
func DefaultRPCConfig() RPCConfig {
	return RPCConfig{
		RPCPort:        "50002",
		RPCUrl:         "http://localhost:50002",
		TimeoutS:       3,
		MaxConnections: 64,
	}
}

// METRICS CONFIG BELOW

// MetricsConfig represents the configuration for the metrics server
type MetricsConfig struct {
	Enabled           bool   `json:"enabled"`           // if the metrics are enabled
	PrometheusAddress string `json:"prometheusAddress"` // the address of the server
	UpdateIntervalS   int    `json:"updateIntervalS"`   // how often process resource gauges refresh
}

// DefaultMetricsConfig() returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:           true,
		PrometheusAddress: "0.0.0.0:9090",
		UpdateIntervalS:   5,
	}
}

// WriteToFile() saves the Config object to a JSON file
func (c Config) WriteToFile(filepath string) error {
	jsonBytes, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, jsonBytes, os.ModePerm)
}

// NewConfigFromFile() populates a Config object from a JSON file, defaults fill in any blanks
func NewConfigFromFile(filepath string) (Config, error) {
	fileBytes, err := os.ReadFile(filepath)
	if err != nil {
		return Config{}, err
	}
	c := DefaultConfig()
	if err = json.Unmarshal(fileBytes, &c); err != nil {
		return Config{}, err
	}
	return c, nil
}
