package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streetpass_pipeline_runs_total",
		Help: "Pipeline runs by final status.",
	}, []string{"status"})
	failuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streetpass_pipeline_failures_total",
		Help: "Pipeline failures by step.",
	}, []string{"step"})
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "streetpass_pipeline_run_seconds",
		Help:    "Duration of pipeline runs that reached the load step.",
		Buckets: prometheus.DefBuckets,
	})
	summariesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streetpass_pipeline_summaries_forwarded_total",
		Help: "Contact summaries handed to the forwarder.",
	})
)
