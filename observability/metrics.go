package observability

import (
	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProjectEvaluationsTotal counts project evaluations by status
	ProjectEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slngen_project_evaluations_total",
			Help: "Total number of project evaluations by status",
		},
		[]string{"status"}, // success, failure
	)

	// ProjectEvaluationDuration tracks project evaluation duration in seconds
	ProjectEvaluationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slngen_project_evaluation_duration_seconds",
			Help:    "Project evaluation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to 16s
		},
		[]string{"extension"},
	)

	// ImportCacheLookupsTotal counts lookups in the shared import cache
	ImportCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slngen_import_cache_lookups_total",
			Help: "Total number of shared import cache lookups by result",
		},
		[]string{"result"}, // hit, miss
	)

	// DiagnosticsTotal counts logged diagnostics by severity
	DiagnosticsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slngen_diagnostics_total",
			Help: "Total number of logged diagnostics by severity",
		},
		[]string{"severity"},
	)

	// SolutionProjects tracks the number of projects written to the last solution
	SolutionProjects = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slngen_solution_projects",
			Help: "Number of projects in the generated solution",
		},
	)

	// SolutionFolders tracks the number of folders written to the last solution
	SolutionFolders = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slngen_solution_folders",
			Help: "Number of solution folders in the generated solution",
		},
	)
)

// WriteMetricsFile writes all registered metrics in the text exposition format,
// suitable for a node exporter textfile collector.
func WriteMetricsFile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

// GetCounterValue retrieves the current value of a counter metric with the given labels
// This is primarily intended for testing
func GetCounterValue(counter *prometheus.CounterVec, labels ...string) (float64, error) {
	metric, err := counter.GetMetricWithLabelValues(labels...)
	if err != nil {
		return 0, err
	}

	var pb dto.Metric
	if err := metric.Write(&pb); err != nil {
		return 0, err
	}

	if pb.Counter != nil {
		return pb.Counter.GetValue(), nil
	}

	return 0, nil
}

// GetGaugeValue retrieves the current value of a gauge.
func GetGaugeValue(gauge prometheus.Gauge) (float64, error) {
	var pb dto.Metric
	if err := gauge.Write(&pb); err != nil {
		return 0, err
	}
	if pb.Gauge != nil {
		return pb.Gauge.GetValue(), nil
	}
	return 0, nil
}
