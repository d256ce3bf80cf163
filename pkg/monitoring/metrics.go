package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

// Domain-specific metric collectors.
//
// These complement the generic controller-runtime metrics (reconcile counts,
// durations, work queue depth, etc.) with operator-specific state that the
// framework cannot know about.
var (
	guestbookInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "guestbook_operator_guestbook_info",
			Help: "Info-style metric for GuestBook discovery and phase tracking. Always 1.",
		},
		[]string{"name", "namespace", "phase"},
	)

	guestbookReplicas = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "guestbook_operator_replicas",
			Help: "Frontend replica counts for a GuestBook.",
		},
		[]string{"name", "namespace", "state"},
	)

	actionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guestbook_operator_actions_total",
			Help: "Total number of convergence actions applied, by child kind and operation.",
		},
		[]string{"kind", "op", "result"},
	)
)

func init() {
	metrics.Registry.MustRegister(
		guestbookInfo,
		guestbookReplicas,
		actionTotal,
	)
}

// Collectors returns all registered metric collectors. This is useful for
// testing that metrics are properly registered.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		guestbookInfo,
		guestbookReplicas,
		actionTotal,
	}
}
