package controller

import (
	"context"
	"math/rand"
	"time"

	"github.com/canopy-network/dpos/bft"
	"github.com/canopy-network/dpos/fsm"
	"github.com/canopy-network/dpos/lib"
	"github.com/canopy-network/dpos/p2p"
	"github.com/canopy-network/dpos/store"
	"golang.org/x/sync/errgroup"
)

// Operator is the sender id of control messages
const Operator = "operator"

// Simulation wires the authority, delegates and clients of a genesis state over a single bus
type Simulation struct {
	Config    lib.Config
	Genesis   *fsm.GenesisState
	Bus       *p2p.Bus
	Authority *AuthorityActor
	Delegates []*Delegate // registration order
	Clients   []*Client

	delegates map[string]*Delegate
	clients   map[string]*Client
	rand      *rand.Rand // transaction generation
	metrics   *lib.Metrics
	log       lib.LoggerI
}

// NewSimulation() creates every participant and registers it on the bus
func NewSimulation(c lib.Config, genesis *fsm.GenesisState, m *lib.Metrics, l *lib.Logger) (*Simulation, lib.ErrorI) {
	authority := c.AuthorityAccount
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := genesis.Validate(authority); err != nil {
		return nil, err
	}
	seed := c.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &Simulation{
		Config:    c,
		Genesis:   genesis,
		Bus:       p2p.NewBus(l.WithPrefix("bus")),
		delegates: make(map[string]*Delegate),
		clients:   make(map[string]*Client),
		rand:      rand.New(rand.NewSource(seed)),
		metrics:   m,
		log:       l,
	}
	if err := s.Bus.Register(authority); err != nil {
		return nil, err
	}
	ledger := fsm.NewLedger(genesis.Accounts, authority, l.WithPrefix(authority))
	a, err := bft.NewAuthority(c.ConsensusConfig, genesis.Delegates, genesis.NumVoters(), ledger, s.Bus,
		rand.New(rand.NewSource(seed)), m, l.WithPrefix(authority))
	if err != nil {
		return nil, err
	}
	inbox, err := s.Bus.Inbox(authority)
	if err != nil {
		return nil, err
	}
	s.Authority = NewAuthorityActor(a, inbox, m, l.WithPrefix(authority))
	for _, id := range genesis.Delegates {
		if err = s.Bus.Register(id); err != nil {
			return nil, err
		}
		bs, e := store.NewBlockStore(c.StoreConfig, l)
		if e != nil {
			return nil, e
		}
		d := NewDelegate(id, authority, genesis.Accounts, bs, s.Bus, m, l.WithPrefix(id))
		s.Delegates, s.delegates[id] = append(s.Delegates, d), d
	}
	for i, gc := range genesis.Clients {
		if err = s.Bus.Register(gc.Name); err != nil {
			return nil, err
		}
		cl := NewClient(gc.Name, gc.CanVote, authority, genesis.Accounts, c.Rates(), seed+int64(i)+1, s.Bus, l.WithPrefix(gc.Name))
		s.Clients, s.clients[gc.Name] = append(s.Clients, cl), cl
	}
	return s, nil
}

// Run() runs every actor until the context is done or one of them fails
func (s *Simulation) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Authority.Run(ctx) })
	for _, d := range s.Delegates {
		d := d
		inbox, err := s.Bus.Inbox(d.ID)
		if err != nil {
			return err
		}
		g.Go(func() error { return listen(ctx, inbox, d.HandleMessage, d.log) })
	}
	for _, c := range s.Clients {
		c := c
		inbox, err := s.Bus.Inbox(c.ID)
		if err != nil {
			return err
		}
		g.Go(func() error { return listen(ctx, inbox, c.HandleMessage, c.log) })
	}
	s.metrics.Start()
	defer s.metrics.Stop()
	return g.Wait()
}

// StartRound() asks the authority to open a round
func (s *Simulation) StartRound() lib.ErrorI {
	return s.Bus.Send(Operator, s.Config.AuthorityAccount, &lib.StartRound{})
}

// CancelRound() asks the authority to abandon the current round
func (s *Simulation) CancelRound() lib.ErrorI {
	return s.Bus.Send(Operator, s.Config.AuthorityAccount, &lib.CancelRound{})
}

// RunRound() opens a round and waits for its settlement
func (s *Simulation) RunRound(ctx context.Context) (*bft.RoundResult, error) {
	if err := s.StartRound(); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-s.Authority.Results():
		return result, nil
	}
}

// PostRandomTransactions() has random clients send random affordable amounts to random accounts;
// it returns the transactions that were posted
func (s *Simulation) PostRandomTransactions(n int) (posted []*lib.Transaction) {
	if len(s.Clients) == 0 {
		return nil
	}
	recipients := s.Genesis.Accounts.IDs()
	for i := 0; i < n; i++ {
		c := s.Clients[s.rand.Intn(len(s.Clients))]
		to := recipients[s.rand.Intn(len(recipients))]
		if to == c.ID {
			continue
		}
		// at most a tenth of the available balance
		available := c.Balance()
		if available <= 0 {
			continue
		}
		amount := lib.Amount(s.rand.Int63n(int64(available)/10 + 1))
		tx, err := c.PostTransaction(to, amount)
		if err != nil {
			s.log.Debugf("%s skipped a transaction: %s", c.ID, err.Error())
			continue
		}
		posted = append(posted, tx)
	}
	return
}

// Delegate() looks up a delegate by id
func (s *Simulation) Delegate(id string) (*Delegate, lib.ErrorI) {
	d, ok := s.delegates[id]
	if !ok {
		return nil, ErrUnknownDelegate(id)
	}
	return d, nil
}

// Client() looks up a client by id
func (s *Simulation) Client(id string) (*Client, lib.ErrorI) {
	c, ok := s.clients[id]
	if !ok {
		return nil, ErrUnknownClient(id)
	}
	return c, nil
}

// Close() stops delivery and releases the delegates' stores
func (s *Simulation) Close() {
	s.Bus.Close()
	for _, d := range s.Delegates {
		if err := d.Store().Close(); err != nil {
			s.log.Error(err.Error())
		}
	}
}

// listen() drains an actor's inbox one message at a time until the context is done
func listen(ctx context.Context, inbox *p2p.Mailbox, handle func(*lib.MessageAndMetadata) lib.ErrorI, log lib.LoggerI) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-inbox.Signal():
			for msg, ok := inbox.Pop(); ok; msg, ok = inbox.Pop() {
				if err := handle(msg); err != nil {
					log.Warnf("Dropped message from %s: %s", msg.Sender, err.Error())
				}
			}
		}
	}
}
