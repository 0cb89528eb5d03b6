package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videoproc_runs_total",
		Help: "Total number of pipeline runs, by status",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "videoproc_stage_duration_seconds",
		Help:    "Duration of pipeline stages",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	FramesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videoproc_frames_extracted_total",
		Help: "Total number of frames extracted across all runs",
	})

	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "videoproc_active_runs",
		Help: "Number of pipeline runs currently in flight",
	})

	MessagesReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videoproc_queue_messages_received_total",
		Help: "Total number of queue messages received",
	})

	MessagesDiscardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videoproc_queue_messages_discarded_total",
		Help: "Total number of malformed queue messages discarded",
	})
)
