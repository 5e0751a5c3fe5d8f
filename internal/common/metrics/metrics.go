// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collections_runs_total",
			Help: "Total number of reminder runs by trigger and result",
		},
		[]string{"trigger", "result"},
	)

	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collections_run_duration_seconds",
			Help:    "Duration of reminder runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"trigger"},
	)

	Dispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collections_dispatch_total",
			Help: "Debtor groups dispatched by path and outcome",
		},
		[]string{"path", "outcome"},
	)

	UnitFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collections_unit_failures_total",
			Help: "Tenant, rule or group failures that did not abort a run",
		},
		[]string{"stage", "error_code"},
	)

	SchedulerRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "collections_scheduler_running",
			Help: "1 while a scheduled sweep is in progress",
		},
	)
)
