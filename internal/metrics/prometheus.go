package metrics

import (
	"errors"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// Registration errors are logged, never propagated.
type PrometheusSink struct {
	pendingRecords  prometheus.Gauge
	settledRecords  prometheus.Gauge
	transfersTotal  *prometheus.CounterVec
	failuresTotal   *prometheus.CounterVec
	attemptDuration prometheus.Histogram
	runsTotal       prometheus.Counter
}

func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		pendingRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "airdrop_pending_records",
			Help: "Records without a confirmation link still to be processed in this run.",
		}),
		settledRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "airdrop_settled_records",
			Help: "Records already settled when the run started.",
		}),
		transfersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airdrop_transfers_total",
			Help: "Transfer attempts by outcome.",
		}, []string{"outcome"}),
		failuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airdrop_transfer_failures_total",
			Help: "Failed transfer attempts by failure kind.",
		}, []string{"kind"}),
		attemptDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "airdrop_attempt_duration_seconds",
			Help:    "Time from submission start to persisted outcome.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		}),
		runsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "airdrop_runs_completed_total",
			Help: "Runs that reached the end of the pending list.",
		}),
	}

	s.pendingRecords = register(reg, s.pendingRecords)
	s.settledRecords = register(reg, s.settledRecords)
	s.transfersTotal = register(reg, s.transfersTotal)
	s.failuresTotal = register(reg, s.failuresTotal)
	s.attemptDuration = register(reg, s.attemptDuration)
	s.runsTotal = register(reg, s.runsTotal)
	return s
}

// register returns the already registered collector on duplicates so that
// repeated sinks on one registry keep working.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		log.Printf("[metrics] register: %v", err)
	}
	return c
}

func (s *PrometheusSink) RunStarted(pending, settled int) {
	s.pendingRecords.Set(float64(pending))
	s.settledRecords.Set(float64(settled))
}

func (s *PrometheusSink) AttemptCompleted(outcome string, kind string, d time.Duration) {
	s.transfersTotal.WithLabelValues(outcome).Inc()
	if kind != "" {
		s.failuresTotal.WithLabelValues(kind).Inc()
	}
	s.attemptDuration.Observe(d.Seconds())
	s.pendingRecords.Dec()
}

func (s *PrometheusSink) RunFinished(succeeded, failed int) {
	s.runsTotal.Inc()
}
