// Package metrics exposes Prometheus counters for the fulfillment coordinator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Claim outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeConflict  = "conflict"
	OutcomeNotFound  = "not_found"
	OutcomeForbidden = "forbidden"
	OutcomeNoop      = "noop"
	OutcomeError     = "error"
)

// Fulfillment holds the coordinator counters. A nil *Fulfillment is valid and
// records nothing.
type Fulfillment struct {
	claims      *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	aborts      *prometheus.CounterVec
}

// NewFulfillment registers the counters with reg.
func NewFulfillment(reg prometheus.Registerer) *Fulfillment {
	m := &Fulfillment{
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reliefhub",
			Name:      "claims_total",
			Help:      "Self-assign attempts by outcome.",
		}, []string{"outcome"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reliefhub",
			Name:      "resolutions_total",
			Help:      "Resolution calls by path and outcome.",
		}, []string{"path", "outcome"}),
		aborts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reliefhub",
			Name:      "txn_aborts_total",
			Help:      "Atomic units aborted by a concurrent writer.",
		}, []string{"op"}),
	}
	reg.MustRegister(m.claims, m.resolutions, m.aborts)
	return m
}

// Claim counts one self-assign call.
func (m *Fulfillment) Claim(outcome string) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(outcome).Inc()
}

// Resolution counts one resolve or complete call.
func (m *Fulfillment) Resolution(path, outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(path, outcome).Inc()
}

// Abort counts one aborted atomic unit.
func (m *Fulfillment) Abort(op string) {
	if m == nil {
		return
	}
	m.aborts.WithLabelValues(op).Inc()
}

// Handler serves the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
