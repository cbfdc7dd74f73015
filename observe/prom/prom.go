// Package prom implements ki.Observer using real Prometheus collectors.
package prom

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sundew-dev/go-ki/ki"
)

// Metrics is a ki.Observer backed by github.com/prometheus/client_golang
// collectors. Register it with a prometheus.Registerer (for example
// prometheus.DefaultRegisterer) to expose it over /metrics.
type Metrics struct {
	scopesOpened     prometheus.Counter
	scopesClosed     prometheus.Counter
	childrenAdmitted prometheus.Counter
	childrenStarted  prometheus.Counter
	childrenFinished *prometheus.CounterVec
	childDuration    prometheus.Histogram
	joinWait         prometheus.Histogram
}

// New creates a Metrics observer and registers its collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		scopesOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ki",
			Name:      "scopes_opened_total",
			Help:      "Scopes opened via ki.Scoped.",
		}),
		scopesClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ki",
			Name:      "scopes_closed_total",
			Help:      "Scopes that have fully quiesced and returned.",
		}),
		childrenAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ki",
			Name:      "children_admitted_total",
			Help:      "Children admitted into a scope via a fork variant.",
		}),
		childrenStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ki",
			Name:      "children_started_total",
			Help:      "Children that completed admission and became live.",
		}),
		childrenFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ki",
			Name:      "children_finished_total",
			Help:      "Children that finished, labeled by outcome.",
		}, []string{"outcome"}),
		childDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ki",
			Name:      "child_duration_seconds",
			Help:      "Duration of a child task from start to finish.",
			Buckets:   prometheus.DefBuckets,
		}),
		joinWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ki",
			Name:      "scope_join_wait_seconds",
			Help:      "Time a scope's shutdown spent waiting for its join fence.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.scopesOpened,
		m.scopesClosed,
		m.childrenAdmitted,
		m.childrenStarted,
		m.childrenFinished,
		m.childDuration,
		m.joinWait,
	)
	return m
}

// ScopeOpened implements ki.Observer.
func (m *Metrics) ScopeOpened(_ context.Context) { m.scopesOpened.Inc() }

// ScopeClosing implements ki.Observer.
func (m *Metrics) ScopeClosing(_ context.Context, _ error) {}

// ScopeClosed implements ki.Observer.
func (m *Metrics) ScopeClosed(_ context.Context, joinWait time.Duration) {
	m.scopesClosed.Inc()
	m.joinWait.Observe(joinWait.Seconds())
}

// ChildAdmitted implements ki.Observer.
func (m *Metrics) ChildAdmitted(_ context.Context, _ int64) { m.childrenAdmitted.Inc() }

// ChildStarted implements ki.Observer.
func (m *Metrics) ChildStarted(_ context.Context, _ int64) { m.childrenStarted.Inc() }

// ChildFinished implements ki.Observer.
func (m *Metrics) ChildFinished(_ context.Context, _ int64, dur time.Duration, err error) {
	outcome := "value"
	if err != nil {
		outcome = "raised"
	}
	m.childrenFinished.WithLabelValues(outcome).Inc()
	m.childDuration.Observe(dur.Seconds())
}

var _ ki.Observer = (*Metrics)(nil)
