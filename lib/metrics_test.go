package lib

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.Start()
		m.UpdateRound(1, 1)
		m.IncVotes()
		m.RoundCompleted(time.Second)
		m.RoundCancelled()
		m.WatchdogFired("resend")
		m.UpdateChain("del1", 1, true)
		m.UpdateLedger(1, 1, 1, Accounts{"a": 1})
		m.Stop()
	})
}

func TestMetricsRecord(t *testing.T) {
	// instances carry their own registry so several can coexist in one process
	m := NewMetricsServer(MetricsConfig{Enabled: false}, NewNullLogger())
	_ = NewMetricsServer(MetricsConfig{Enabled: false}, NewNullLogger())
	m.UpdateRound(7, 3)
	m.IncVotes()
	m.IncVotes()
	m.UpdateChain("del1", 4, true)
	m.UpdateChain("del2", 4, false)
	m.UpdateLedger(2, MustParseAmount("1.8"), MustParseAmount("0.02"), Accounts{"gov": NewAmount(235)})
	require.Equal(t, float64(7), testutil.ToFloat64(m.Round))
	require.Equal(t, float64(3), testutil.ToFloat64(m.Phase))
	require.Equal(t, float64(2), testutil.ToFloat64(m.VotesReceived))
	require.Equal(t, float64(4), testutil.ToFloat64(m.Height.WithLabelValues("del2")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Commits.WithLabelValues("del1")))
	require.Equal(t, 1.8, testutil.ToFloat64(m.TaxCollected))
	require.Equal(t, float64(235), testutil.ToFloat64(m.AccountBalance.WithLabelValues("gov")))
	require.Equal(t, 2, testutil.CollectAndCount(m.Height))
}
