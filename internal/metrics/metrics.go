// Package metrics exposes Prometheus collectors for agent executions.
// Collectors register on the default registry; embedding applications serve
// them through their own promhttp handler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExecutionsTotal counts finished executions by provider and status
	// (ok, timeout, exit, decode).
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentcmd_executions_total",
			Help: "Total number of agent executions",
		},
		[]string{"provider", "status"},
	)

	// ExecutionDuration tracks wall-clock execution time.
	ExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentcmd_execution_duration_seconds",
			Help:    "Agent execution duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"provider"},
	)

	// DecodeErrors counts malformed protocol records that were skipped.
	DecodeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentcmd_decode_errors_total",
			Help: "Total number of malformed provider records skipped",
		},
		[]string{"provider"},
	)

	// ActiveProcesses tracks currently running agent subprocesses.
	ActiveProcesses = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agentcmd_active_processes",
			Help: "Number of running agent subprocesses",
		},
		[]string{"provider"},
	)

	// MessagesParsed counts normalized messages produced.
	MessagesParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentcmd_messages_parsed_total",
			Help: "Total number of unified messages parsed",
		},
		[]string{"provider"},
	)
)
