package executor

import (
	"context"
	"sort"

	"github.com/ab180/merchantagg/job"
	"github.com/ab180/merchantagg/lrdd"
	"github.com/ab180/merchantagg/metric"
	"github.com/ab180/merchantagg/output"
	"github.com/ab180/merchantagg/transformation"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/therne/errorist"
)

const (
	InputRowsMetric = "input_rows"
	OutputKeyMetric = "output_keys"
)

// Groups holds every value of a partition grouped by key.
type Groups struct {
	PartitionID string
	Keys        []string
	Values      map[string][]lrdd.MarshalUnmarshaler
	NumRows     int
}

// Group decodes rows of a shard and groups their values by key.
func Group(shard *output.Shard) (*Groups, error) {
	rows, err := shard.Rows()
	if err != nil {
		return nil, err
	}
	values := lo.GroupBy(rows, func(r *lrdd.Row) string {
		return r.Key
	})
	g := &Groups{
		PartitionID: shard.ID,
		Keys:        lo.Keys(values),
		Values:      make(map[string][]lrdd.MarshalUnmarshaler, len(values)),
		NumRows:     len(rows),
	}
	sort.Strings(g.Keys)
	for k, rr := range values {
		g.Values[k] = lo.Map(rr, func(r *lrdd.Row, _ int) lrdd.MarshalUnmarshaler {
			return r.Value
		})
	}
	return g, nil
}

// Reduce folds the values of each key with a fresh reducer instance, starting from its initial value.
// Rows are returned in key order.
func Reduce(ctx context.Context, jobID string, g *Groups, reducer transformation.Reducer) (rows []*lrdd.Row, m metric.Metrics, err error) {
	defer func() {
		if panicErr := errorist.WrapPanic(recover()); panicErr != nil {
			rows, m, err = nil, nil, errors.Wrapf(panicErr, "reduce partition %s", g.PartitionID)
		}
	}()

	tid := job.TaskID{JobID: jobID, StageName: job.ReduceStage, PartitionID: g.PartitionID}
	tctx := newTaskContext(ctx, tid, Broadcasts{})

	rows = make([]*lrdd.Row, 0, len(g.Keys))
	for _, key := range g.Keys {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		r, err := Instantiate(reducer)
		if err != nil {
			return nil, nil, err
		}
		acc := r.InitialValue()
		for _, v := range g.Values[key] {
			if acc, err = r.Reduce(tctx, acc, v); err != nil {
				return nil, nil, errors.Wrapf(err, "reduce %q", key)
			}
		}
		rows = append(rows, lrdd.KeyValue(key, acc))
	}
	tctx.metrics.AddMetric(InputRowsMetric, int64(g.NumRows))
	tctx.metrics.AddMetric(OutputKeyMetric, int64(len(rows)))
	return rows, tctx.metrics.Collect(), nil
}
