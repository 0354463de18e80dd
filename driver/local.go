package driver

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ab180/merchantagg/coordinator"
	"github.com/ab180/merchantagg/executor"
	"github.com/ab180/merchantagg/input"
	"github.com/ab180/merchantagg/internal/cpuaffinity"
	"github.com/ab180/merchantagg/internal/errgroup"
	"github.com/ab180/merchantagg/internal/serialization"
	"github.com/ab180/merchantagg/job"
	"github.com/ab180/merchantagg/lrdd"
	"github.com/ab180/merchantagg/metric"
	"github.com/ab180/merchantagg/output"
	"github.com/ab180/merchantagg/partitions"
	"github.com/ab180/merchantagg/pkg/retry"
	"github.com/ab180/merchantagg/transformation"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/therne/errorist"
)

// Local runs a job in the current process. Phases are separated by barriers:
// every map task finishes before the shuffle, and every partition is grouped before reducing.
type Local struct {
	Job         *job.Job
	Input       input.Feeder
	Mapper      transformation.Mapper
	Reducer     transformation.Reducer
	Partitioner partitions.Partitioner
	Broadcast   serialization.Broadcast
	Sinks       []output.Sink
	Coordinator coordinator.Coordinator
	Options     executor.Options

	statusManager *job.StatusManager

	mu      sync.Mutex
	skipped []executor.SkippedRecord
}

func NewLocal(j *job.Job, crd coordinator.Coordinator, in input.Feeder, m transformation.Mapper, r transformation.Reducer, opt executor.Options) *Local {
	if opt.Concurrency < 1 {
		opt.Concurrency = 1
	}
	return &Local{
		Job:         j,
		Input:       in,
		Mapper:      m,
		Reducer:     r,
		Partitioner: partitions.NewHashKeyPartitioner(),
		Coordinator: crd,
		Options:     opt,
	}
}

func (l *Local) RunSync(ctx context.Context) (*CollectResult, error) {
	metric.RunningJobsGauge.Inc()
	defer metric.RunningJobsGauge.Dec()
	startedAt := time.Now()

	l.statusManager = job.NewStatusManager(l.Coordinator, l.Job)
	if err := l.statusManager.Create(ctx); err != nil {
		return nil, err
	}
	trackCtx, stopTracking := context.WithCancel(ctx)
	tracked := job.Track(trackCtx, l.Coordinator, l.Job.ID, func(st *job.Status) {
		log.Info().Str("job_id", l.Job.ID).Str("phase", string(st.Phase)).Msg("job progress")
	})
	defer func() {
		stopTracking()
		<-tracked
	}()

	collector := output.NewCollector()
	if err := l.run(ctx, collector); err != nil {
		l.fail(err)
		return nil, err
	}

	metrics, err := l.CollectMetrics(ctx)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(startedAt)
	metric.JobDurationSummary.Observe(elapsed.Seconds())
	log.Info().
		Str("job_id", l.Job.ID).
		Dur("elapsed", elapsed).
		Msgf("job finished. metrics:\n%s", metrics)

	rows := collector.Rows()
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Key < rows[j].Key
	})
	return &CollectResult{
		Outputs: rows,
		Metrics: metrics,
		Skipped: l.Skipped(),
	}, nil
}

func (l *Local) run(ctx context.Context, collector *output.Collector) error {
	broadcasts, err := executor.NewBroadcasts(l.Broadcast)
	if err != nil {
		return err
	}
	shards := output.Shards(partitions.IDs(l.Job.Partitions))

	workers, err := l.newMapWorkers(ctx, broadcasts)
	if err != nil {
		return err
	}
	if err := l.statusManager.Transition(ctx, job.Mapping); err != nil {
		return err
	}
	mapResults, err := l.runMapStage(ctx, workers)
	if err != nil {
		return err
	}

	if err := l.statusManager.Transition(ctx, job.Shuffling); err != nil {
		return err
	}
	if err := l.shuffle(ctx, mapResults, shards); err != nil {
		return errors.Wrap(err, "shuffle")
	}

	if err := l.statusManager.Transition(ctx, job.Grouping); err != nil {
		return err
	}
	groups, err := l.group(ctx, shards)
	if err != nil {
		return errors.Wrap(err, "group")
	}

	if err := l.statusManager.Transition(ctx, job.Reducing); err != nil {
		return err
	}
	if err := l.runReduceStage(ctx, groups, collector); err != nil {
		return err
	}
	for _, s := range l.Sinks {
		if c, ok := s.(output.Committer); ok {
			if err := c.Commit(); err != nil {
				return errors.Wrap(err, "commit output")
			}
		}
	}
	return l.statusManager.Transition(ctx, job.Done)
}

type mapResult struct {
	splitID string
	*executor.MapResult
}

// newMapWorkers sets up one map worker per concurrency slot. Mapper setup,
// such as decoding broadcasts, happens here before any split is mapped.
func (l *Local) newMapWorkers(ctx context.Context, broadcasts executor.Broadcasts) ([]*executor.MapWorker, error) {
	workers := make([]*executor.MapWorker, l.Options.Concurrency)
	wg, _ := errgroup.WithContext(ctx)
	for i := range workers {
		i := i
		wg.Go(func() error {
			w, err := executor.NewMapWorker(ctx, l.Job.ID, "worker-"+strconv.Itoa(i), l.Mapper, l.Reducer, broadcasts)
			if err != nil {
				return err
			}
			workers[i] = w
			return nil
		})
	}
	if err := wg.Wait(); err != nil {
		return nil, err
	}
	return workers, nil
}

// runMapStage feeds splits to the map workers.
func (l *Local) runMapStage(ctx context.Context, workers []*executor.MapWorker) ([]mapResult, error) {
	reader := input.NewReader(l.Options.Input.QueueLength)
	wg, wctx := errgroup.WithContext(ctx)

	wg.Go(func() error {
		defer reader.Close()
		if err := l.Input.FeedInput(wctx, reader); err != nil {
			return errors.Wrap(err, "feed input")
		}
		return nil
	})

	var (
		results []mapResult
		mu      sync.Mutex
	)
	var scheduler *cpuaffinity.Scheduler
	if l.Options.ExperimentalCPUAffinity {
		scheduler = cpuaffinity.NewScheduler()
	}
	for _, w := range workers {
		w := w
		wg.Go(func() error {
			if scheduler != nil {
				occupation := scheduler.Occupy(w.ID)
				defer scheduler.Release(occupation)
			}
			for split := range reader.C {
				if wctx.Err() != nil {
					return wctx.Err()
				}
				res, err := l.runMapTask(wctx, w, split)
				if err != nil {
					return err
				}
				mu.Lock()
				results = append(results, mapResult{splitID: split.ID(), MapResult: res})
				mu.Unlock()
			}
			return nil
		})
	}
	if err := wg.Wait(); err != nil {
		// drain so that the feeder is never blocked on a full queue
		for range reader.C {
		}
		return nil, err
	}
	log.Debug().Str("job_id", l.Job.ID).Int64("splits", reader.NumFed()).Msg("map stage finished")

	sort.Slice(results, func(i, j int) bool {
		return results[i].splitID < results[j].splitID
	})
	return results, nil
}

func (l *Local) runMapTask(ctx context.Context, w *executor.MapWorker, split input.Split) (*executor.MapResult, error) {
	tid := job.TaskID{JobID: l.Job.ID, StageName: job.MapStage, PartitionID: split.ID()}

	var attempts int
	res, err := retry.DoWithResult(ctx, func() (*executor.MapResult, error) {
		attempts++
		return w.Run(ctx, split)
	}, l.retryOptions(tid)...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if reportErr := l.statusManager.MarkTaskAsFailed(context.Background(), tid, attempts, err); reportErr != nil {
			log.Error().Err(reportErr).Str("task", tid.String()).Msg("failed to report task failure")
		}
		return nil, errors.Wrapf(err, "task %s", tid)
	}
	l.addSkipped(res.Skipped)
	if _, err := l.statusManager.MarkTaskAsSucceed(ctx, tid, attempts, res.Metrics); err != nil {
		return nil, err
	}
	return res, nil
}

// shuffle publishes the combined rows of successful map tasks into the shards.
func (l *Local) shuffle(ctx context.Context, results []mapResult, shards map[string]*output.Shard) error {
	outputs := make(map[string]output.Output, len(shards))
	for id, s := range shards {
		outputs[id] = s
	}
	wg, _ := errgroup.WithContext(ctx)
	wg.SetLimit(l.Options.Concurrency)
	for _, res := range results {
		res := res
		wg.Go(func() (err error) {
			w := output.NewWriter(partitions.NewContext(res.splitID), l.Partitioner, outputs, l.Options.Output)
			defer errorist.CloseWithErrCapture(w, &err, errorist.Wrapf("close writer of %s", res.splitID))
			return w.Write(res.Rows...)
		})
	}
	return wg.Wait()
}

func (l *Local) group(ctx context.Context, shards map[string]*output.Shard) ([]*executor.Groups, error) {
	groups := make([]*executor.Groups, len(l.Job.Partitions))
	wg, _ := errgroup.WithContext(ctx)
	for i, p := range l.Job.Partitions {
		i, shard := i, shards[p.ID]
		wg.Go(func() error {
			g, err := executor.Group(shard)
			if err != nil {
				return err
			}
			groups[i] = g
			return nil
		})
	}
	if err := wg.Wait(); err != nil {
		return nil, err
	}
	return groups, nil
}

// runReduceStage reduces every partition in parallel and writes the results to the sinks.
// Cancellations of sibling partitions caused by a failed one are not reported.
func (l *Local) runReduceStage(ctx context.Context, groups []*executor.Groups, collector *output.Collector) error {
	var (
		errs *multierror.Error
		mu   sync.Mutex
	)
	wg, wctx := errgroup.WithContext(ctx)
	for _, g := range groups {
		g := g
		wg.Go(func() error {
			if err := l.runReduceTask(wctx, g, collector); err != nil {
				if wctx.Err() == nil || !errors.Is(err, context.Canceled) {
					mu.Lock()
					errs = multierror.Append(errs, err)
					mu.Unlock()
				}
				return err
			}
			return nil
		})
	}
	if err := wg.Wait(); err != nil {
		mu.Lock()
		defer mu.Unlock()
		if errs.ErrorOrNil() != nil {
			return errs
		}
		return err
	}
	return nil
}

// runReduceTask reduces and publishes a partition as one retried unit. Rows reach
// the collector only after the sinks took them.
func (l *Local) runReduceTask(ctx context.Context, g *executor.Groups, collector *output.Collector) error {
	tid := job.TaskID{JobID: l.Job.ID, StageName: job.ReduceStage, PartitionID: g.PartitionID}

	var (
		attempts int
		metrics  metric.Metrics
	)
	rows, err := retry.DoWithResult(ctx, func() ([]*lrdd.Row, error) {
		attempts++
		rows, m, err := executor.Reduce(ctx, l.Job.ID, g, l.Reducer)
		if err != nil {
			return nil, err
		}
		if err := publish(g.PartitionID, rows, l.Sinks, l.Options.Output); err != nil {
			return nil, err
		}
		metrics = m
		return rows, nil
	}, l.retryOptions(tid)...)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if reportErr := l.statusManager.MarkTaskAsFailed(context.Background(), tid, attempts, err); reportErr != nil {
			log.Error().Err(reportErr).Str("task", tid.String()).Msg("failed to report task failure")
		}
		return errors.Wrapf(err, "task %s", tid)
	}
	if err := collector.Write(rows...); err != nil {
		return err
	}
	_, err = l.statusManager.MarkTaskAsSucceed(ctx, tid, attempts, metrics)
	return err
}

// publish writes reduced rows of a partition to every sink in batches. On failure
// nothing written by this attempt is kept, so publishing can be retried.
func publish(partitionID string, rows []*lrdd.Row, sinks []output.Sink, opt output.Options) error {
	outs := make([]output.Output, 0, len(sinks))
	for _, s := range sinks {
		o, err := s.Open(partitionID)
		if err != nil {
			output.Abort(outs...)
			return errors.Wrapf(err, "open output of partition %s", partitionID)
		}
		outs = append(outs, o)
	}
	out := output.NewBufferedOutput(output.NewComposed(outs...), opt.BufferLength)
	if err := out.Write(rows...); err != nil {
		output.Abort(outs...)
		return errors.Wrapf(err, "write output of partition %s", partitionID)
	}
	if err := out.Flush(); err != nil {
		output.Abort(outs...)
		return errors.Wrapf(err, "write output of partition %s", partitionID)
	}
	if err := output.CloseAll(outs...); err != nil {
		return errors.Wrapf(err, "close output of partition %s", partitionID)
	}
	return nil
}

func (l *Local) retryOptions(tid job.TaskID) []retry.OptionFunc {
	return []retry.OptionFunc{
		retry.WithRetryCount(l.Options.MaxTaskAttempts),
		retry.WithDelay(l.Options.RetryDelay),
		retry.OnRetry(func(attempt int, err error) {
			metric.TaskRetriesCounter.WithLabelValues(tid.StageName).Inc()
			log.Warn().
				Err(err).
				Str("task", tid.String()).
				Int("attempt", attempt).
				Msg("task failed. retrying")
		}),
	}
}

func (l *Local) addSkipped(records []executor.SkippedRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, r := range records {
		if len(l.skipped) >= l.Options.MaxSkippedRecords {
			return
		}
		l.skipped = append(l.skipped, r)
	}
}

// Skipped returns the skipped records kept so far.
func (l *Local) Skipped() []executor.SkippedRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	skipped := make([]executor.SkippedRecord, len(l.skipped))
	copy(skipped, l.skipped)
	return skipped
}

func (l *Local) fail(cause error) {
	log.Error().Err(cause).Str("job_id", l.Job.ID).Msg("job failed")
	if err := l.statusManager.Fail(context.Background(), job.Error{
		Task:    l.Job.ID,
		Message: cause.Error(),
	}); err != nil {
		log.Error().Err(err).Str("job_id", l.Job.ID).Msg("failed to report job failure")
	}
}

func (l *Local) CollectMetrics(ctx context.Context) (metric.Metrics, error) {
	if l.statusManager == nil {
		return nil, errors.New("job has not been started")
	}
	return l.statusManager.CollectMetrics(ctx)
}

var _ Driver = (*Local)(nil)
