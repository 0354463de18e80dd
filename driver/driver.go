package driver

import (
	"context"

	"github.com/ab180/merchantagg/executor"
	"github.com/ab180/merchantagg/lrdd"
	"github.com/ab180/merchantagg/metric"
)

type Driver interface {
	RunSync(context.Context) (*CollectResult, error)
	CollectMetrics(context.Context) (metric.Metrics, error)
}

// CollectResult is the outcome of a successful run.
type CollectResult struct {
	// Outputs are the reduced rows of every partition, sorted by key.
	Outputs []*lrdd.Row
	Metrics metric.Metrics

	// Skipped holds the first skipped records. Metrics count all of them.
	Skipped []executor.SkippedRecord
}
