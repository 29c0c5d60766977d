package controller

import (
	"github.com/canopy-network/dpos/bft"
	"github.com/canopy-network/dpos/lib"
)

/* This file implements the read-only views of a running simulation served by the query api */

// Accounts() is the settled ledger as of the last round
func (s *Simulation) Accounts() lib.Accounts { return s.Authority.Accounts() }

// RoundStatus() is the authority's view of the current round
func (s *Simulation) RoundStatus() *bft.Status { return s.Authority.Status() }

// LastResult() is the outcome of the last settled round, nil before the first settlement
func (s *Simulation) LastResult() *bft.RoundResult { return s.Authority.LastResult() }

// DelegateStatuses() lists the delegate snapshots in registration order
func (s *Simulation) DelegateStatuses() []*DelegateStatus {
	statuses := make([]*DelegateStatus, 0, len(s.Delegates))
	for _, d := range s.Delegates {
		statuses = append(statuses, d.Snapshot())
	}
	return statuses
}

// ClientStatuses() lists the client snapshots in genesis order
func (s *Simulation) ClientStatuses() []*ClientStatus {
	statuses := make([]*ClientStatus, 0, len(s.Clients))
	for _, c := range s.Clients {
		statuses = append(statuses, c.Snapshot())
	}
	return statuses
}

// DelegateStatus() is the snapshot of a single delegate
func (s *Simulation) DelegateStatus(id string) (*DelegateStatus, lib.ErrorI) {
	d, err := s.Delegate(id)
	if err != nil {
		return nil, err
	}
	return d.Snapshot(), nil
}

// Block() reads a committed block from a delegate's chain; height 0 is the head
func (s *Simulation) Block(delegate string, height uint64) (*lib.Block, lib.ErrorI) {
	d, err := s.Delegate(delegate)
	if err != nil {
		return nil, err
	}
	if height == 0 {
		if height, err = d.Store().LastHeight(); err != nil {
			return nil, err
		}
	}
	return d.Store().GetBlockByHeight(height)
}
