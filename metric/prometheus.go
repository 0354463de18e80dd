package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var RunningJobsGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "merchantagg_running_jobs",
	Help: "The current number of running jobs",
})

var JobDurationSummary = promauto.NewSummary(prometheus.SummaryOpts{
	Name: "merchantagg_job_duration_sec",
	Help: "Job execution duration in seconds",
})

// RecordsCounter counts transaction lines by outcome: parsed, header or malformed.
var RecordsCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "merchantagg_records_total",
		Help: "The number of transaction lines read, by outcome",
	},
	[]string{"result"},
)

var UnresolvedMerchantsCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "merchantagg_unresolved_merchants_total",
	Help: "The number of transactions whose merchant was not found in the lookup",
})

var LookupEntriesGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "merchantagg_lookup_entries",
	Help: "The number of merchants in the most recently loaded lookup",
})

var LookupSkippedLinesCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "merchantagg_lookup_skipped_lines_total",
	Help: "The number of malformed lookup lines skipped",
})

var LookupEmptyCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "merchantagg_lookup_empty_total",
	Help: "The number of times an empty merchant lookup was loaded",
})

// TaskRetriesCounter counts re-executions of failed map or reduce units.
var TaskRetriesCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "merchantagg_task_retries_total",
		Help: "The number of task re-executions, by stage",
	},
	[]string{"stage"},
)
