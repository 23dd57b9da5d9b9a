// Package metrics exposes engine activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
)

const namespace = "batchexec"

// Collector records engine events. It satisfies app.EventEmitter.
type Collector struct {
	runs          *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	statusQueries *prometheus.CounterVec
	steps         prometheus.Counter
	state         prometheus.Gauge
	duration      *prometheus.HistogramVec
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Runs that settled or were reset, by outcome.",
		}, []string{"outcome", "path"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Switches from atomic to sequential execution, by reason.",
		}, []string{"reason"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Execution state transitions.",
		}, []string{"from", "to"}),
		statusQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_status_queries_total",
			Help:      "Batch status queries, by result.",
		}, []string{"result"}),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sequential_steps_confirmed_total",
			Help:      "Sequential steps confirmed on-chain.",
		}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "execution_state",
			Help:      "Current execution state (0 idle, 1 pending, 2 confirming, 3 success, 4 error).",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time from Execute to settlement.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"path"}),
	}
	reg.MustRegister(c.runs, c.fallbacks, c.transitions, c.statusQueries, c.steps, c.state, c.duration)
	return c
}

func (c *Collector) OnStateChange(runID string, previous, current domain.ExecutionState, reason string) {
	c.transitions.WithLabelValues(previous.String(), current.String()).Inc()
	c.state.Set(float64(current))
}

func (c *Collector) OnFallback(runID string, reason domain.FallbackReason, cause error) {
	c.fallbacks.WithLabelValues(string(reason)).Inc()
}

func (c *Collector) OnStatusQuery(runID string, status domain.BatchStatus, err error) {
	result := status.String()
	if err != nil {
		result = "error"
	}
	c.statusQueries.WithLabelValues(result).Inc()
}

func (c *Collector) OnStepConfirmed(runID string, step int, receipt domain.Receipt) {
	c.steps.Inc()
}

func (c *Collector) OnRunFinished(rec domain.RunRecord) {
	path := string(rec.Path)
	if path == "" {
		path = "none"
	}
	c.runs.WithLabelValues(string(rec.Outcome), path).Inc()
	if rec.Outcome != domain.OutcomeAbandoned {
		c.duration.WithLabelValues(path).Observe(rec.Duration().Seconds())
	}
}
