package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/canopy-network/dpos/fsm"
	"github.com/canopy-network/dpos/lib"
	"github.com/stretchr/testify/require"
)

func TestInitializeDataDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	c := InitializeDataDirectory(dir, lib.NewNullLogger())
	require.Equal(t, dir, c.DataDirPath)
	require.Equal(t, lib.DefaultConsensusConfig(), c.ConsensusConfig)
	for _, file := range []string{lib.ConfigFilePath, lib.GenesisFilePath} {
		_, err := os.Stat(filepath.Join(dir, file))
		require.NoError(t, err, file)
	}
	genesis, err := fsm.ReadGenesisFromFile(dir, c.AuthorityAccount)
	require.NoError(t, err)
	require.Equal(t, fsm.DefaultGenesisState(c.AuthorityAccount), genesis)
}

func TestAddClients(t *testing.T) {
	genesis := fsm.DefaultGenesisState("gov")
	before := genesis.Accounts.Total()
	AddClients(genesis, 5, lib.NewAmount(100))
	require.Len(t, genesis.Clients, 8)
	require.Equal(t, 8, genesis.NumVoters())
	require.NoError(t, genesis.Validate("gov"))
	require.Equal(t, before+lib.NewAmount(500), genesis.Accounts.Total())
	for _, c := range genesis.Clients[3:] {
		require.Contains(t, c.Name, "-")
		require.Equal(t, lib.NewAmount(100), genesis.Accounts[c.Name])
	}
}

func TestSimulate(t *testing.T) {
	l = lib.NewNullLogger()
	c := lib.DefaultConfig()
	c.RandomSeed, c.MetricsConfig.Enabled = 3, false
	genesis := fsm.DefaultGenesisState(c.AuthorityAccount)
	AddClients(genesis, 2, lib.NewAmount(50))
	buf := new(bytes.Buffer)
	require.NoError(t, Simulate(c, genesis, 3, 5, buf))
	out := buf.String()
	require.True(t, strings.HasPrefix(out, "genesis\n"))
	require.Contains(t, out, "round 3: winner del")
	// 1311 at genesis plus two added clients; settlement only moves value around
	require.Equal(t, 4, strings.Count(out, "1,411.000000"))
}
