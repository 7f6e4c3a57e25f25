package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cyclesTotal    *prometheus.CounterVec
	cycleDuration  *prometheus.HistogramVec
	learningEvents *prometheus.CounterVec
	graphVersion   prometheus.Gauge
	mae            prometheus.Gauge
	accuracy       prometheus.Gauge
	replayProgress prometheus.Gauge
	replaysTotal   *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New creates a recorder registered on reg. A nil reg uses the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Recorder{
		cyclesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oracle_cycles_total",
				Help: "Prediction cycles completed, by mode",
			},
			[]string{"mode"},
		),
		cycleDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oracle_cycle_duration_seconds",
				Help:    "Wall time of a prediction cycle",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"mode"},
		),
		learningEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oracle_learning_events_total",
				Help: "Learning events emitted, by type",
			},
			[]string{"type"},
		),
		graphVersion: f.NewGauge(prometheus.GaugeOpts{
			Name: "oracle_causal_graph_version",
			Help: "Current causal graph version",
		}),
		mae: f.NewGauge(prometheus.GaugeOpts{
			Name: "oracle_overall_mae",
			Help: "Cumulative mean absolute error of 1h forecasts",
		}),
		accuracy: f.NewGauge(prometheus.GaugeOpts{
			Name: "oracle_directional_accuracy",
			Help: "Cumulative directional accuracy of 1h forecasts",
		}),
		replayProgress: f.NewGauge(prometheus.GaugeOpts{
			Name: "oracle_replay_progress_pct",
			Help: "Progress of the most recently updated replay run",
		}),
		replaysTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oracle_replays_total",
				Help: "Replay runs finished, by terminal status",
			},
			[]string{"status"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oracle_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oracle_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordCycle(mode string, seconds float64) {
	r.cyclesTotal.WithLabelValues(mode).Inc()
	r.cycleDuration.WithLabelValues(mode).Observe(seconds)
}

func (r *Recorder) RecordLearningEvent(eventType string) {
	r.learningEvents.WithLabelValues(eventType).Inc()
}

func (r *Recorder) RecordGraphVersion(version int) {
	r.graphVersion.Set(float64(version))
}

func (r *Recorder) RecordAccuracy(mae, directionalAccuracy float64) {
	r.mae.Set(mae)
	r.accuracy.Set(directionalAccuracy)
}

func (r *Recorder) RecordReplayProgress(pct float64) {
	r.replayProgress.Set(pct)
}

func (r *Recorder) RecordReplayFinished(status string) {
	r.replaysTotal.WithLabelValues(status).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
