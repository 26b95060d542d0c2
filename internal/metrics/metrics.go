// Package metrics exposes Prometheus counters for the DiciPoints ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dicilo",
		Subsystem: "ledger",
		Name:      "operations_total",
		Help:      "Ledger operations by name and outcome.",
	}, []string{"op", "outcome"})

	pointsCredited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dicilo",
		Subsystem: "ledger",
		Name:      "points_credited_total",
		Help:      "DiciPoints credited across all wallets.",
	})

	pointsDebited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dicilo",
		Subsystem: "ledger",
		Name:      "points_debited_total",
		Help:      "DiciPoints debited across all wallets.",
	})
)

// ObserveOp records one ledger operation outcome.
func ObserveOp(op string, success bool) {
	outcome := "ok"
	if !success {
		outcome = "error"
	}
	ledgerOps.WithLabelValues(op, outcome).Inc()
}

// AddCredited records points credited to a wallet.
func AddCredited(points int64) {
	if points > 0 {
		pointsCredited.Add(float64(points))
	}
}

// AddDebited records points debited from a wallet.
func AddDebited(points int64) {
	if points > 0 {
		pointsDebited.Add(float64(points))
	}
}
