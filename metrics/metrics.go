// Package metrics exposes Prometheus counters for claim traffic and
// reconciliation repairs. They are observability only; claim statistics are
// always computed from the participant table.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "meals"

// Claim outcomes recorded on ClaimAttempts.
const (
	OutcomeClaimed        = "claimed"
	OutcomeAlreadyClaimed = "already_claimed"
	OutcomeUnclaimed      = "unclaimed"
	OutcomeNotClaimed     = "not_claimed"
	OutcomeNotFound       = "not_found"
	OutcomeInvalid        = "invalid"
	OutcomeError          = "error"
)

// Metrics groups the counters registered for one process.
type Metrics struct {
	ClaimAttempts    *prometheus.CounterVec
	ReconcileRepairs *prometheus.CounterVec
}

// New creates the counters and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ClaimAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claim_attempts_total",
			Help:      "Claim and unclaim requests by meal, outcome and entry point.",
		}, []string{"meal", "outcome", "source"}),
		ReconcileRepairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_repairs_total",
			Help:      "History entries removed or recreated by reconciliation.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.ClaimAttempts, m.ReconcileRepairs)
	return m
}

// ObserveClaim counts one claim-path outcome. A nil receiver is a no-op.
func (m *Metrics) ObserveClaim(meal, outcome, source string) {
	if m == nil {
		return
	}
	if meal == "" {
		meal = "unknown"
	}
	m.ClaimAttempts.WithLabelValues(meal, outcome, source).Inc()
}

// ObserveRepairs adds n repairs of the given kind. A nil receiver is a no-op.
func (m *Metrics) ObserveRepairs(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.ReconcileRepairs.WithLabelValues(kind).Add(float64(n))
}
