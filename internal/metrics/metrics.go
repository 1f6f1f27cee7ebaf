package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/congo-pay/walletd/internal/ledger"
)

var (
	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletd_commands_total",
			Help: "Money-movement commands by command and outcome",
		},
		[]string{"command", "outcome"},
	)

	commandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "walletd_command_duration_seconds",
			Help:    "Latency of money-movement commands",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"command"},
	)

	// SettlementEvents counts settlement deliveries by outcome (settled, not_found, retry).
	SettlementEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletd_settlement_events_total",
			Help: "Settlement events handled by outcome",
		},
		[]string{"outcome"},
	)

	PublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "walletd_settlement_publish_failures_total",
			Help: "Settlement events that could not be published after commit",
		},
	)

	Republished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "walletd_reconciler_republished_total",
			Help: "Stale pending transfers re-published by the reconciler",
		},
	)
)

// ObserveCommand records one command execution.
func ObserveCommand(command ledger.Type, res ledger.Result, err error, elapsed time.Duration) {
	cmd := strings.ToLower(string(command))
	commandsTotal.WithLabelValues(cmd, Outcome(res, err)).Inc()
	commandDuration.WithLabelValues(cmd).Observe(elapsed.Seconds())
}

// Outcome maps a command result to a low-cardinality label.
func Outcome(res ledger.Result, err error) string {
	if err != nil {
		if kind, ok := ledger.KindOf(err); ok {
			return strings.ToLower(string(kind))
		}
		return "error"
	}
	if res.Replayed {
		return "replayed"
	}
	return "ok"
}

// CommandCount reads the counter for tests and diagnostics.
func CommandCount(command ledger.Type, outcome string) prometheus.Counter {
	return commandsTotal.WithLabelValues(strings.ToLower(string(command)), outcome)
}
