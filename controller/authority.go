package controller

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/canopy-network/dpos/bft"
	"github.com/canopy-network/dpos/lib"
	"github.com/canopy-network/dpos/p2p"
	"github.com/cenkalti/backoff/v4"
)

const (
	watchdogResend  = "resend"
	watchdogRestart = "restart"
)

/*
	AuthorityActor drives the bft.Authority from its inbox and keeps stalled rounds alive.

	Watchdog: every time the round makes progress the backoff schedule is reset and a timer is armed.
	When the timer fires without progress the outstanding instruction is repeated and the timer re-armed
	with the next, longer interval. Once the schedule exceeds MaxRoundElapsedMS the round is cancelled and
	a new one started.
*/

// AuthorityActor is the goroutine owning the authority state machine
type AuthorityActor struct {
	*bft.Authority

	inbox      *p2p.Mailbox
	watchdog   *backoff.ExponentialBackOff // nil when RoundTimeoutMS is 0
	timer      *time.Timer
	results    chan *bft.RoundResult
	status     atomic.Pointer[bft.Status]
	accounts   atomic.Pointer[lib.Accounts]
	lastResult atomic.Pointer[bft.RoundResult]
	metrics    *lib.Metrics
	log        lib.LoggerI
}

// NewAuthorityActor() wraps the authority; settled rounds are delivered on Results()
func NewAuthorityActor(a *bft.Authority, inbox *p2p.Mailbox, m *lib.Metrics, l lib.LoggerI) *AuthorityActor {
	actor := &AuthorityActor{
		Authority: a,
		inbox:     inbox,
		timer:     lib.NewTimer(),
		results:   make(chan *bft.RoundResult, 64),
		metrics:   m,
		log:       l,
	}
	if a.Config.RoundTimeoutMS > 0 {
		w := backoff.NewExponentialBackOff()
		w.InitialInterval = time.Duration(a.Config.RoundTimeoutMS) * time.Millisecond
		w.MaxInterval = 8 * w.InitialInterval
		w.MaxElapsedTime = time.Duration(a.Config.MaxRoundElapsedMS) * time.Millisecond
		w.RandomizationFactor = 0.2
		actor.watchdog = w
	}
	actor.publish()
	return actor
}

// Run() processes the inbox until the context is done
func (a *AuthorityActor) Run(ctx context.Context) error {
	defer lib.StopTimer(a.timer)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.inbox.Signal():
			for msg, ok := a.inbox.Pop(); ok; msg, ok = a.inbox.Pop() {
				a.handle(msg)
			}
		case <-a.timer.C:
			a.onTimeout()
		}
	}
}

// Results() delivers every settled round
func (a *AuthorityActor) Results() <-chan *bft.RoundResult { return a.results }

// Status() returns the last published snapshot; safe for concurrent use
func (a *AuthorityActor) Status() *bft.Status { return a.status.Load() }

// Accounts() returns the last published ledger; safe for concurrent use
func (a *AuthorityActor) Accounts() lib.Accounts { return *a.accounts.Load() }

// LastResult() returns the last settled round or nil; safe for concurrent use
func (a *AuthorityActor) LastResult() *bft.RoundResult { return a.lastResult.Load() }

// handle() applies one message and re-arms the watchdog if the round moved
func (a *AuthorityActor) handle(msg *lib.MessageAndMetadata) {
	defer lib.CatchPanic(a.log)
	phase, round := a.Phase, a.Round
	result, err := a.HandleMessage(msg)
	if err != nil {
		a.logError(msg, err)
	}
	if result != nil {
		a.lastResult.Store(result)
		select {
		case a.results <- result:
		default:
			a.log.Warnf("Round %d result dropped, nobody is reading", result.Round)
		}
	}
	if a.Phase != phase || a.Round != round || result != nil {
		a.armWatchdog()
	}
	a.publish()
}

// onTimeout() repeats the outstanding instruction or, once the schedule is exhausted, restarts the round
func (a *AuthorityActor) onTimeout() {
	if a.watchdog == nil || a.Phase == bft.Idle {
		return
	}
	next := a.watchdog.NextBackOff()
	if next == backoff.Stop {
		a.log.Warnf("Round %d stalled in %s, restarting", a.Round, a.Phase)
		a.metrics.WatchdogFired(watchdogRestart)
		a.Cancel()
		if err := a.StartVotingRound(); err != nil {
			a.log.Error(err.Error())
		}
		a.armWatchdog()
		a.publish()
		return
	}
	a.log.Debugf("Round %d waiting in %s, repeating instruction", a.Round, a.Phase)
	a.metrics.WatchdogFired(watchdogResend)
	if err := a.Resend(); err != nil {
		a.log.Warn(err.Error())
	}
	lib.ResetTimer(a.timer, next)
}

// armWatchdog() restarts the schedule for the current phase or disarms it when idle
func (a *AuthorityActor) armWatchdog() {
	if a.watchdog == nil || a.Phase == bft.Idle {
		lib.StopTimer(a.timer)
		return
	}
	a.watchdog.Reset()
	lib.ResetTimer(a.timer, a.watchdog.NextBackOff())
}

// logError() keeps expected protocol noise at debug level
func (a *AuthorityActor) logError(msg *lib.MessageAndMetadata, err lib.ErrorI) {
	expected := lib.IsCode(err, lib.ConsensusModule, lib.CodeStaleRound)
	if lib.IsCode(err, lib.ConsensusModule, lib.CodeOutOfPhase) {
		switch msg.Message.(type) {
		case *lib.AcceptVotes, *lib.ProposeCandidateBlock, *lib.BroadcastCommittedBlock:
			expected = true
		}
	}
	if expected {
		a.log.Debugf("Dropped %s from %s: %s", msg.Message.Type(), msg.Sender, err.Error())
		return
	}
	a.log.Warnf("Dropped message from %s: %s", msg.Sender, err.Error())
}

func (a *AuthorityActor) publish() {
	accounts := a.Ledger().Accounts()
	a.status.Store(a.Authority.Status())
	a.accounts.Store(&accounts)
}
