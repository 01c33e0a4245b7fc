package observability

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors fed by the engine hooks.
type Metrics struct {
	NodeVisits   *prometheus.CounterVec
	LeafOutcomes *prometheus.CounterVec
	LeafDuration *prometheus.HistogramVec
	TreeOutcomes *prometheus.CounterVec
	ActiveLeaves prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_node_visits_total",
				Help: "Total number of tree node evaluations",
			},
			[]string{"tree", "kind"},
		),
		LeafOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_leaf_outcomes_total",
				Help: "Leaf executions by outcome",
			},
			[]string{"leaf", "status"},
		),
		LeafDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arbor_leaf_duration_seconds",
				Help:    "Duration of leaf executions",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
			},
			[]string{"leaf"},
		),
		TreeOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_tree_outcomes_total",
				Help: "Tree runs by outcome",
			},
			[]string{"tree", "status"},
		),
		ActiveLeaves: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arbor_active_leaves",
			Help: "Number of leaves currently executing",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.NodeVisits, m.LeafOutcomes, m.LeafDuration, m.TreeOutcomes, m.ActiveLeaves)
	}
	return m
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.Tree, e.Kind).Inc()
		},
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			if e.Depth == 0 && e.Outcome != nil {
				m.TreeOutcomes.WithLabelValues(e.Tree, e.Outcome.Status.String()).Inc()
			}
		},
		OnLeafCall: func(context.Context, *domain.LeafEvent) {
			m.ActiveLeaves.Inc()
		},
		OnLeafReturn: func(_ context.Context, e *domain.LeafEvent) {
			m.ActiveLeaves.Dec()
			status := "unknown"
			if e.Outcome != nil {
				status = e.Outcome.Status.String()
			}
			m.LeafOutcomes.WithLabelValues(e.Leaf, status).Inc()
			m.LeafDuration.WithLabelValues(e.Leaf).Observe(e.Duration.Seconds())
		},
	}
}
