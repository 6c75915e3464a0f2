// Package metrics provides Prometheus metrics collection for the regression service.
// It defines the training, prediction and session lifecycle metrics that are
// exposed via the Prometheus metrics endpoint for monitoring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the regression service.
type Metrics struct {
	// Training metrics
	TrainingRuns          prometheus.Counter   // Total number of training runs started
	TrainingFailures      prometheus.Counter   // Total number of training runs that failed
	TrainingCancellations prometheus.Counter   // Total number of training runs cancelled
	TrainingDuration      prometheus.Histogram // Wall time of completed training runs
	TrainingLoss          prometheus.Gauge     // Final loss of the current model
	TrainingRSquared      prometheus.Gauge     // Coefficient of determination of the current model

	// Prediction metrics
	Predictions        prometheus.Counter   // Total number of predictions served
	PredictionFailures prometheus.Counter   // Total number of rejected or failed predictions
	PredictionLatency  prometheus.Histogram // Prediction latency in seconds

	// Session and data metrics
	Transitions     *prometheus.CounterVec // Session status transitions by target status
	TrainingSetSize prometheus.Gauge       // Number of pairs in the current training set
	EditRejections  prometheus.Counter     // Edits rejected at the input boundary
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		TrainingRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "training_runs_total",
			Help: "Total number of training runs started",
		}),
		TrainingFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "training_failures_total",
			Help: "Total number of training runs that failed",
		}),
		TrainingCancellations: factory.NewCounter(prometheus.CounterOpts{
			Name: "training_cancellations_total",
			Help: "Total number of training runs cancelled before completion",
		}),
		TrainingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "training_duration_seconds",
			Help:    "Wall time of completed training runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		TrainingLoss: factory.NewGauge(prometheus.GaugeOpts{
			Name: "training_final_loss",
			Help: "Mean squared error of the current model on its training set",
		}),
		TrainingRSquared: factory.NewGauge(prometheus.GaugeOpts{
			Name: "training_r_squared",
			Help: "Coefficient of determination of the current model on its training set",
		}),
		Predictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of predictions served",
		}),
		PredictionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of predictions rejected or failed",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "Prediction latency in seconds",
			Buckets: []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01, 0.1},
		}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "session_transitions_total",
			Help: "Session status transitions by target status",
		}, []string{"to"}),
		TrainingSetSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "training_set_pairs",
			Help: "Number of pairs in the current training set",
		}),
		EditRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "edit_rejections_total",
			Help: "Total number of edits rejected at the input boundary",
		}),
	}
}
