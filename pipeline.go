package merchantagg

import (
	"context"

	"github.com/ab180/merchantagg/driver"
	"github.com/ab180/merchantagg/input"
	"github.com/ab180/merchantagg/internal/serialization"
	"github.com/ab180/merchantagg/internal/util"
	"github.com/ab180/merchantagg/job"
	"github.com/ab180/merchantagg/output"
	"github.com/ab180/merchantagg/partitions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultShardCount is the number of shuffle partitions when Repartition is not called.
const DefaultShardCount = 5

var (
	ErrNoMapper  = errors.New("pipeline has no mapper")
	ErrNoReducer = errors.New("pipeline has no reducer")
)

// Pipeline describes a map/reduce job over lines of input.
type Pipeline struct {
	input       input.Feeder
	mapper      Mapper
	reducer     Reducer
	partitioner partitions.Partitioner
	numShards   int
	sinks       []output.Sink

	broadcasts serialization.Broadcast
	options    PipelineOptions
}

func NewPipeline(in input.Feeder, opts ...PipelineOption) *Pipeline {
	return &Pipeline{
		input:       in,
		partitioner: partitions.NewHashKeyPartitioner(),
		numShards:   DefaultShardCount,
		broadcasts:  make(serialization.Broadcast),
		options:     buildPipelineOptions(opts),
	}
}

// Broadcast shares given value with every worker. The data broadcast this way
// is cached in serialized form and deserialized by each worker on setup.
func (p *Pipeline) Broadcast(key string, val interface{}) *Pipeline {
	p.broadcasts[key] = val
	return p
}

func (p *Pipeline) Map(m Mapper) *Pipeline {
	p.mapper = m
	return p
}

// Reduce sets the reducer. It also pre-combines the output of each map task.
func (p *Pipeline) Reduce(r Reducer) *Pipeline {
	p.reducer = r
	return p
}

// Repartition sets the number of shuffle partitions.
func (p *Pipeline) Repartition(n int) *Pipeline {
	p.numShards = n
	return p
}

func (p *Pipeline) PartitionedBy(partitioner partitions.Partitioner) *Pipeline {
	p.partitioner = partitioner
	return p
}

// WithOutput adds sinks receiving the reduced rows of every partition.
func (p *Pipeline) WithOutput(sinks ...output.Sink) *Pipeline {
	p.sinks = append(p.sinks, sinks...)
	return p
}

func (p *Pipeline) createJob() (*job.Job, error) {
	if p.mapper == nil {
		return nil, ErrNoMapper
	}
	if p.reducer == nil {
		return nil, ErrNoReducer
	}
	if p.numShards <= 0 {
		return nil, errors.Errorf("invalid number of partitions: %d", p.numShards)
	}
	jobID := util.GenerateID("J")
	name := p.options.Name
	if name == "" {
		name = util.NameOfType(p.mapper)
	}
	return &job.Job{
		ID:          jobID,
		Name:        name,
		Partitions:  p.partitioner.PlanNext(p.numShards),
		SubmittedAt: p.options.Clock(),
	}, nil
}

// Run starts the pipeline in background.
func (p *Pipeline) Run(ctx context.Context) (*RunningJob, error) {
	j, err := p.createJob()
	if err != nil {
		return nil, err
	}
	crd, ownsCrd := p.options.Coordinator, false
	if crd == nil {
		crd, err = ConnectCoordinator(DefaultOptions())
		if err != nil {
			return nil, err
		}
		ownsCrd = true
	}
	log.Info().
		Str("job_id", j.ID).
		Str("name", j.Name).
		Int("partitions", len(j.Partitions)).
		Int("concurrency", p.options.Executor.Concurrency).
		Msg("starting job")

	d := driver.NewLocal(j, crd, p.input, p.mapper, p.reducer, p.options.Executor)
	d.Partitioner = p.partitioner
	d.Broadcast = p.broadcasts
	d.Sinks = p.sinks
	return startJob(ctx, j, crd, d, ownsCrd), nil
}

// RunAndCollect runs the pipeline until every partition is reduced, and returns the reduced rows.
func (p *Pipeline) RunAndCollect(ctx context.Context) (*driver.CollectResult, error) {
	running, err := p.Run(ctx)
	if err != nil {
		return nil, err
	}
	return running.Wait()
}
