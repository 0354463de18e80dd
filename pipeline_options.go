package merchantagg

import (
	"time"

	"github.com/ab180/merchantagg/coordinator"
	"github.com/ab180/merchantagg/executor"
)

type PipelineOptions struct {
	Name     string
	Executor executor.Options

	// Coordinator stores job status. An in-memory coordinator is used when it is nil.
	Coordinator coordinator.Coordinator

	Clock func() time.Time
}

type PipelineOption func(o *PipelineOptions)

func WithName(n string) PipelineOption {
	return func(o *PipelineOptions) {
		o.Name = n
	}
}

// WithConcurrency sets the number of map workers.
func WithConcurrency(n int) PipelineOption {
	return func(o *PipelineOptions) {
		o.Executor.Concurrency = n
	}
}

// WithMaxTaskAttempts sets how many times a failed task is tried.
func WithMaxTaskAttempts(n int) PipelineOption {
	return func(o *PipelineOptions) {
		o.Executor.MaxTaskAttempts = n
	}
}

func WithExecutorOptions(opt executor.Options) PipelineOption {
	return func(o *PipelineOptions) {
		o.Executor = opt
	}
}

func WithCoordinator(crd coordinator.Coordinator) PipelineOption {
	return func(o *PipelineOptions) {
		o.Coordinator = crd
	}
}

func buildPipelineOptions(opts []PipelineOption) (o PipelineOptions) {
	o.Executor = executor.DefaultOptions()
	o.Clock = time.Now
	for _, optFn := range opts {
		optFn(&o)
	}
	return o
}
