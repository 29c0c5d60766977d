package lib

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/process"
)

/* This file implements dev-ops telemetry for the simulation in the form of prometheus metrics */

const metricsPattern = "/metrics"

// Metrics represents a server that exposes Prometheus metrics
// A nil *Metrics is valid and records nothing
type Metrics struct {
	server   *http.Server         // the http prometheus server
	config   MetricsConfig        // the configuration
	registry *prometheus.Registry // collectors of this instance
	stop     chan struct{}        // stops the resource updater
	log      LoggerI              // the logger

	NodeMetrics   // process health
	RoundMetrics  // authority round telemetry
	ChainMetrics  // per-delegate chain telemetry
	LedgerMetrics // settlement telemetry
}

// NodeMetrics represents general telemetry for the process
type NodeMetrics struct {
	NodeStatus prometheus.Gauge // is the simulation alive?
	MemoryRSS  prometheus.Gauge // resident memory of the process in bytes
	CPUPercent prometheus.Gauge // cpu usage of the process
	NumThreads prometheus.Gauge // number of OS threads of the process
}

// RoundMetrics represents the telemetry of the authority state machine
type RoundMetrics struct {
	Round           prometheus.Gauge       // the current round number
	Phase           prometheus.Gauge       // the current phase as its enum value
	VotesReceived   prometheus.Counter     // how many votes were accepted?
	RoundsCompleted prometheus.Counter     // how many rounds settled?
	RoundsCancelled prometheus.Counter     // how many rounds were abandoned?
	WatchdogFires   *prometheus.CounterVec // how often did the watchdog act, by action?
	RoundDuration   prometheus.Histogram   // seconds from voting to settlement
}

// ChainMetrics represents the telemetry of the delegates' chains
type ChainMetrics struct {
	Height  *prometheus.GaugeVec   // last committed height by delegate
	Commits *prometheus.CounterVec // blocks committed by delegate
}

// LedgerMetrics represents the telemetry of settlement
type LedgerMetrics struct {
	TransactionsSettled prometheus.Counter   // how many transactions were applied to the ledger?
	TaxCollected        prometheus.Counter   // sum of tax in units
	FeesDistributed     prometheus.Counter   // sum of fees in units
	AccountBalance      *prometheus.GaugeVec // balance by account in units
}

// NewMetricsServer() creates a new telemetry server with its own registry
func NewMetricsServer(config MetricsConfig, log LoggerI) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	mux := http.NewServeMux()
	mux.Handle(metricsPattern, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return &Metrics{
		server:   &http.Server{Addr: config.PrometheusAddress, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		config:   config,
		registry: registry,
		stop:     make(chan struct{}),
		log:      log,
		NodeMetrics: NodeMetrics{
			NodeStatus: factory.NewGauge(prometheus.GaugeOpts{
				Name: "dpos_node_status",
				Help: "The simulation is alive and processing rounds",
			}),
			MemoryRSS: factory.NewGauge(prometheus.GaugeOpts{
				Name: "dpos_process_memory_rss_bytes",
				Help: "Resident memory of the process",
			}),
			CPUPercent: factory.NewGauge(prometheus.GaugeOpts{
				Name: "dpos_process_cpu_percent",
				Help: "CPU usage of the process",
			}),
			NumThreads: factory.NewGauge(prometheus.GaugeOpts{
				Name: "dpos_process_threads",
				Help: "Number of OS threads of the process",
			}),
		},
		RoundMetrics: RoundMetrics{
			Round: factory.NewGauge(prometheus.GaugeOpts{
				Name: "dpos_round",
				Help: "Current round number",
			}),
			Phase: factory.NewGauge(prometheus.GaugeOpts{
				Name: "dpos_round_phase",
				Help: "Current phase (0: Idle, 1: Voting, 2: CandidateSelected, 3: ProposalsCollecting, 4: WinnerSelected, 5: Settling)",
			}),
			VotesReceived: factory.NewCounter(prometheus.CounterOpts{
				Name: "dpos_votes_received_total",
				Help: "Total number of votes accepted",
			}),
			RoundsCompleted: factory.NewCounter(prometheus.CounterOpts{
				Name: "dpos_rounds_completed_total",
				Help: "Total number of settled rounds",
			}),
			RoundsCancelled: factory.NewCounter(prometheus.CounterOpts{
				Name: "dpos_rounds_cancelled_total",
				Help: "Total number of cancelled rounds",
			}),
			WatchdogFires: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "dpos_watchdog_fires_total",
				Help: "Watchdog interventions by action (resend, restart)",
			}, []string{"action"}),
			RoundDuration: factory.NewHistogram(prometheus.HistogramOpts{
				Name: "dpos_round_duration_seconds",
				Help: "Time from the voting announcement to settlement",
			}),
		},
		ChainMetrics: ChainMetrics{
			Height: factory.NewGaugeVec(prometheus.GaugeOpts{
				Name: "dpos_chain_height",
				Help: "Last committed height by delegate",
			}, []string{"delegate"}),
			Commits: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "dpos_blocks_committed_total",
				Help: "Blocks committed by delegate",
			}, []string{"delegate"}),
		},
		LedgerMetrics: LedgerMetrics{
			TransactionsSettled: factory.NewCounter(prometheus.CounterOpts{
				Name: "dpos_transactions_settled_total",
				Help: "Total number of transactions applied to the ledger",
			}),
			TaxCollected: factory.NewCounter(prometheus.CounterOpts{
				Name: "dpos_tax_collected_total",
				Help: "Total tax credited to the authority account",
			}),
			FeesDistributed: factory.NewCounter(prometheus.CounterOpts{
				Name: "dpos_fees_distributed_total",
				Help: "Total fees split across candidates",
			}),
			AccountBalance: factory.NewGaugeVec(prometheus.GaugeOpts{
				Name: "dpos_account_balance",
				Help: "Settled balance by account",
			}, []string{"account"}),
		},
	}
}

// Registry() exposes the collectors, mainly to tests
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Start() starts the telemetry server and the process resource updater
func (m *Metrics) Start() {
	if m == nil || !m.config.Enabled {
		return
	}
	m.NodeStatus.Set(1)
	go func() {
		m.log.Infof("Starting metrics server on %s", m.config.PrometheusAddress)
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.log.Errorf("Metrics server failed with err: %s", err.Error())
		}
	}()
	go m.updateResources()
}

// Stop() gracefully stops the telemetry server
func (m *Metrics) Stop() {
	if m == nil || !m.config.Enabled {
		return
	}
	close(m.stop)
	if err := m.server.Shutdown(context.Background()); err != nil {
		m.log.Error(err.Error())
	}
}

// updateResources() samples the process every UpdateIntervalS seconds until Stop()
func (m *Metrics) updateResources() {
	interval := time.Duration(m.config.UpdateIntervalS) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		m.log.Warnf("Process metrics unavailable: %s", err.Error())
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if mem, e := p.MemoryInfo(); e == nil {
				m.MemoryRSS.Set(float64(mem.RSS))
			}
			if cpu, e := p.CPUPercent(); e == nil {
				m.CPUPercent.Set(cpu)
			}
			if threads, e := p.NumThreads(); e == nil {
				m.NumThreads.Set(float64(threads))
			}
		}
	}
}

// UpdateRound() records the round number and phase of the authority
func (m *Metrics) UpdateRound(round uint64, phase int) {
	if m == nil {
		return
	}
	m.Round.Set(float64(round))
	m.Phase.Set(float64(phase))
}

// IncVotes() counts an accepted vote
func (m *Metrics) IncVotes() {
	if m == nil {
		return
	}
	m.VotesReceived.Inc()
}

// RoundCompleted() records a settled round and how long it took
func (m *Metrics) RoundCompleted(duration time.Duration) {
	if m == nil {
		return
	}
	m.RoundsCompleted.Inc()
	m.RoundDuration.Observe(duration.Seconds())
}

// RoundCancelled() counts an abandoned round
func (m *Metrics) RoundCancelled() {
	if m == nil {
		return
	}
	m.RoundsCancelled.Inc()
}

// WatchdogFired() counts a watchdog intervention
func (m *Metrics) WatchdogFired(action string) {
	if m == nil {
		return
	}
	m.WatchdogFires.WithLabelValues(action).Inc()
}

// UpdateChain() records the new head of a delegate and whether it committed it
func (m *Metrics) UpdateChain(delegate string, height uint64, committed bool) {
	if m == nil {
		return
	}
	m.Height.WithLabelValues(delegate).Set(float64(height))
	if committed {
		m.Commits.WithLabelValues(delegate).Inc()
	}
}

// UpdateLedger() records a settlement and the resulting balances
func (m *Metrics) UpdateLedger(txCount int, tax, fees Amount, accounts Accounts) {
	if m == nil {
		return
	}
	m.TransactionsSettled.Add(float64(txCount))
	m.TaxCollected.Add(tax.Float64())
	m.FeesDistributed.Add(fees.Float64())
	for id, balance := range accounts {
		m.AccountBalance.WithLabelValues(id).Set(balance.Float64())
	}
}
