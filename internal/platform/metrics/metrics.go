package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aidsim"

var (
	deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Count of delivery attempts by outcome.",
		},
		[]string{"outcome"},
	)
	breakdowns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breakdowns_total",
			Help:      "Count of vehicle breakdowns.",
		},
	)
	roundsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_completed_total",
			Help:      "Count of rounds drivers finished back at a depot.",
		},
	)
	routingFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routing_failures_total",
			Help:      "Count of failed route requests by reason.",
		},
		[]string{"reason"},
	)
	bayWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bay_wait_ticks",
			Help:      "Ticks drivers spent waiting for a loading bay.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100, 200},
		},
	)
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Count of simulation runs by result.",
		},
		[]string{"result"},
	)
)

var registerMetrics sync.Once

// Register all metrics with the default registry.
func Register() {
	RegisterWith(prometheus.DefaultRegisterer)
}

// RegisterWith registers all metrics with r. Only the first call has any effect.
func RegisterWith(r prometheus.Registerer) {
	registerMetrics.Do(func() {
		r.MustRegister(deliveries)
		r.MustRegister(breakdowns)
		r.MustRegister(roundsCompleted)
		r.MustRegister(routingFailures)
		r.MustRegister(bayWait)
		r.MustRegister(runsTotal)
	})
}

func RecordDelivery(ok bool) {
	if ok {
		deliveries.WithLabelValues("delivered").Inc()
		return
	}
	deliveries.WithLabelValues("failed").Inc()
}

func RecordBreakdown() { breakdowns.Inc() }

func RecordRound() { roundsCompleted.Inc() }

func RecordRoutingFailure(reason string) { routingFailures.WithLabelValues(reason).Inc() }

func RecordBayWait(ticks float64) { bayWait.Observe(ticks) }

func RecordRun(err error) {
	if err != nil {
		runsTotal.WithLabelValues("error").Inc()
		return
	}
	runsTotal.WithLabelValues("ok").Inc()
}
