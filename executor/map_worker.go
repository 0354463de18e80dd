package executor

import (
	"context"
	"fmt"
	"sort"

	"github.com/ab180/merchantagg/input"
	"github.com/ab180/merchantagg/job"
	"github.com/ab180/merchantagg/lrdd"
	"github.com/ab180/merchantagg/metric"
	"github.com/ab180/merchantagg/transformation"
	"github.com/pkg/errors"
	"github.com/therne/errorist"
)

const (
	InputRecordsMetric  = "input_records"
	OutputRowsMetric    = "output_rows"
	SkippedRecordMetric = "skipped_records"
)

// SkippedRecord is an input line dropped because of a record-level error.
type SkippedRecord struct {
	Split string
	Line  int
	Err   error
}

func (s SkippedRecord) Error() string {
	return fmt.Sprintf("%s:%d: %v", s.Split, s.Line, s.Err)
}

// MapResult is the output of a map task: rows pre-combined per key, sorted by key.
type MapResult struct {
	Rows    []*lrdd.Row
	Skipped []SkippedRecord
	Metrics metric.Metrics
}

// MapWorker runs map tasks sequentially with its own mapper and combiner instances.
type MapWorker struct {
	ID         string
	jobID      string
	mapper     transformation.Mapper
	combiner   transformation.Reducer
	broadcasts Broadcasts
}

// NewMapWorker instantiates the transformations and runs mapper setup before any record.
func NewMapWorker(ctx context.Context, jobID, workerID string, mapper transformation.Mapper, combiner transformation.Reducer, b Broadcasts) (w *MapWorker, err error) {
	defer func() {
		if panicErr := errorist.WrapPanic(recover()); panicErr != nil {
			err = errors.Wrapf(panicErr, "set up worker %s", workerID)
		}
	}()

	m, err := Instantiate(mapper)
	if err != nil {
		return nil, err
	}
	c, err := Instantiate(combiner)
	if err != nil {
		return nil, err
	}
	if s, ok := m.(transformation.Setupper); ok {
		tid := job.TaskID{JobID: jobID, StageName: job.MapStage, PartitionID: workerID}
		if err := s.Setup(newTaskContext(ctx, tid, b)); err != nil {
			return nil, errors.Wrapf(err, "set up worker %s", workerID)
		}
	}
	return &MapWorker{
		ID:         workerID,
		jobID:      jobID,
		mapper:     m,
		combiner:   c,
		broadcasts: b,
	}, nil
}

// Run maps every line of the split. Nothing is published by Run itself,
// so a failed split can be run again from the start.
func (w *MapWorker) Run(ctx context.Context, split input.Split) (result *MapResult, err error) {
	defer func() {
		if panicErr := errorist.WrapPanic(recover()); panicErr != nil {
			result, err = nil, errors.Wrapf(panicErr, "map %s", split.ID())
		}
	}()

	tid := job.TaskID{JobID: w.jobID, StageName: job.MapStage, PartitionID: split.ID()}
	tctx := newTaskContext(ctx, tid, w.broadcasts)

	combined := make(map[string]lrdd.MarshalUnmarshaler)
	var skipped []SkippedRecord
	var numRecords int64

	err = input.Scan(split, func(lineNo int, line string, lineErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		numRecords++
		if lineErr != nil {
			skipped = append(skipped, SkippedRecord{Split: split.ID(), Line: lineNo, Err: lineErr})
			return nil
		}

		row, err := w.mapper.Map(tctx, line)
		if err != nil {
			if s, ok := transformation.IsSkipped(err); ok {
				skipped = append(skipped, SkippedRecord{Split: split.ID(), Line: lineNo, Err: s.Err})
				return nil
			}
			return errors.Wrapf(err, "map %s:%d", split.ID(), lineNo)
		}
		if row == nil {
			return nil
		}
		prev, ok := combined[row.Key]
		if !ok {
			prev = w.combiner.InitialValue()
		}
		next, err := w.combiner.Reduce(tctx, prev, row.Value)
		if err != nil {
			return errors.Wrapf(err, "combine %q", row.Key)
		}
		combined[row.Key] = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(combined))
	for k := range combined {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([]*lrdd.Row, len(keys))
	for i, k := range keys {
		rows[i] = lrdd.KeyValue(k, combined[k])
	}

	tctx.metrics.AddMetric(InputRecordsMetric, numRecords)
	tctx.metrics.AddMetric(OutputRowsMetric, int64(len(rows)))
	tctx.metrics.AddMetric(SkippedRecordMetric, int64(len(skipped)))
	return &MapResult{
		Rows:    rows,
		Skipped: skipped,
		Metrics: tctx.metrics.Collect(),
	}, nil
}
