package fsm

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/canopy-network/dpos/lib"
)

// GenesisState is the starting point of a simulation: balances, the delegates in registration order,
// and the clients that hold a balance and possibly a vote
type GenesisState struct {
	Accounts  lib.Accounts     `json:"accounts"`
	Delegates []string         `json:"delegates"`
	Clients   []*GenesisClient `json:"clients"`
}

// GenesisClient is a participant that submits transactions and, if allowed, votes
type GenesisClient struct {
	Name    string `json:"name"`
	CanVote bool   `json:"canVote"`
}

// DefaultGenesisState() is a three delegate, three voter network
func DefaultGenesisState(authority string) *GenesisState {
	return &GenesisState{
		Accounts: lib.Accounts{
			"alice":   lib.NewAmount(133),
			"bob":     lib.NewAmount(99),
			"carol":   lib.NewAmount(355),
			"del1":    lib.NewAmount(434),
			"del2":    lib.NewAmount(34),
			"del3":    lib.NewAmount(22),
			authority: lib.NewAmount(234),
		},
		Delegates: []string{"del1", "del2", "del3"},
		Clients: []*GenesisClient{
			{Name: "alice", CanVote: true},
			{Name: "bob", CanVote: true},
			{Name: "carol", CanVote: true},
		},
	}
}

// ReadGenesisFromFile() reads a GenesisState from the data directory, writing the default one if absent
func ReadGenesisFromFile(dataDirPath, authority string) (*GenesisState, lib.ErrorI) {
	path := filepath.Join(dataDirPath, lib.GenesisFilePath)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		genesis := DefaultGenesisState(authority)
		if err = os.MkdirAll(dataDirPath, os.ModePerm); err != nil {
			return nil, lib.ErrWriteFile(err)
		}
		if e := lib.SaveJSONToFile(genesis, dataDirPath, lib.GenesisFilePath); e != nil {
			return nil, e
		}
		return genesis, nil
	}
	genesis := new(GenesisState)
	if err := lib.NewJSONFromFile(genesis, dataDirPath, lib.GenesisFilePath); err != nil {
		return nil, err
	}
	return genesis, genesis.Validate(authority)
}

// Validate() checks the genesis describes a runnable network
func (g *GenesisState) Validate(authority string) lib.ErrorI {
	if len(g.Delegates) == 0 {
		return ErrInvalidGenesis("no delegates")
	}
	seen := map[string]struct{}{authority: {}}
	for _, d := range g.Delegates {
		if _, dup := seen[d]; dup || d == "" {
			return ErrInvalidGenesis("delegate " + d + " is empty or not unique")
		}
		seen[d] = struct{}{}
	}
	for _, c := range g.Clients {
		if _, dup := seen[c.Name]; dup || c.Name == "" {
			return ErrInvalidGenesis("client " + c.Name + " is empty or not unique")
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// NumVoters() counts the clients allowed to vote
func (g *GenesisState) NumVoters() (n int) {
	for _, c := range g.Clients {
		if c.CanVote {
			n++
		}
	}
	return
}

// AddClient() registers a new client with a starting balance
func (g *GenesisState) AddClient(name string, canVote bool, balance lib.Amount) {
	g.Clients = append(g.Clients, &GenesisClient{Name: name, CanVote: canVote})
	if g.Accounts == nil {
		g.Accounts = lib.Accounts{}
	}
	g.Accounts[name] += balance
}
