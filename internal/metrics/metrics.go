// Package metrics provides Prometheus metrics collection for the gait
// analysis pipeline: dataset download and join counters, model training
// counters and timing histograms, exposed on the optional /metrics
// endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for a pipeline run.
type Metrics struct {
	// Dataset metrics
	DownloadsTotal   prometheus.Counter // Dataset files fetched over HTTP
	DownloadFailures prometheus.Counter // Failed dataset downloads
	CacheHits        prometheus.Counter // Dataset files served from the BoltDB cache
	RowsLoaded       prometheus.Counter // CSV rows parsed across all tables
	RowsRejected     prometheus.Counter // CSV rows dropped (malformed or unmatched)
	TrialsJoined     prometheus.Counter // Trials present in all three force tables

	// Model metrics
	ModelsTrained    prometheus.Counter   // Classifier fits (including CV folds)
	PredictionsTotal prometheus.Counter   // Test-set predictions made
	FeatureErrors    prometheus.Counter   // Feature extraction failures
	TrainingDuration prometheus.Histogram // Wall time per classifier fit in seconds
	CVAccuracy       prometheus.Histogram // Cross-validation fold accuracy distribution
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		DownloadsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "dataset_downloads_total",
			Help: "Total number of dataset files fetched over HTTP",
		}),
		DownloadFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "dataset_download_failures_total",
			Help: "Total number of failed dataset downloads",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "dataset_cache_hits_total",
			Help: "Total number of dataset files served from the local cache",
		}),
		RowsLoaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "dataset_rows_loaded_total",
			Help: "Total number of CSV rows parsed across all tables",
		}),
		RowsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "dataset_rows_rejected_total",
			Help: "Total number of CSV rows dropped as malformed or unmatched",
		}),
		TrialsJoined: factory.NewCounter(prometheus.CounterOpts{
			Name: "dataset_trials_joined_total",
			Help: "Total number of trials joined across all three force tables",
		}),
		ModelsTrained: factory.NewCounter(prometheus.CounterOpts{
			Name: "models_trained_total",
			Help: "Total number of classifier fits, including cross-validation folds",
		}),
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of test-set predictions made",
		}),
		FeatureErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "feature_errors_total",
			Help: "Total number of feature extraction failures",
		}),
		TrainingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "training_duration_seconds",
			Help:    "Wall time per classifier fit in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		CVAccuracy: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cv_fold_accuracy",
			Help:    "Distribution of cross-validation fold accuracies",
			Buckets: prometheus.LinearBuckets(0, 0.05, 21),
		}),
	}
}
