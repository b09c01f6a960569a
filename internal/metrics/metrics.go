package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	// OperationsSubmitted counts transactions submitted to the network by kind
	OperationsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provisioner_operations_submitted_total",
			Help: "Total number of transactions submitted",
		},
		[]string{"kind"},
	)

	// ReceiptsTotal counts receipts by transaction kind and consensus status
	ReceiptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provisioner_receipts_total",
			Help: "Total number of receipts received",
		},
		[]string{"kind", "status"},
	)

	// OperationDuration tracks submit-to-receipt latency
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provisioner_operation_duration_seconds",
			Help:    "Time from submission to receipt in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"kind"},
	)

	// QueriesTotal counts account state queries by outcome
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provisioner_account_queries_total",
			Help: "Total number of account state queries",
		},
		[]string{"outcome"},
	)

	// ResolutionRetries counts alias resolutions retried because the account was not yet visible
	ResolutionRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "provisioner_alias_resolution_retries_total",
			Help: "Total number of alias resolution retries",
		},
	)

	// StepDuration tracks the duration of each provisioning step
	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provisioner_step_duration_seconds",
			Help:    "Provisioning step duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	// ErrorsTotal counts errors by component and category
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provisioner_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "category"},
	)

	// RunsTotal counts provisioning runs by result
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provisioner_runs_total",
			Help: "Total number of provisioning runs",
		},
		[]string{"result"},
	)
)

// Push sends the default registry to a Prometheus Pushgateway under the job name.
// The run is short-lived, so metrics are pushed once at the end instead of scraped.
func Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(prometheus.DefaultGatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
