package executor

import (
	"runtime"
	"time"

	"github.com/ab180/merchantagg/output"
	"github.com/creasty/defaults"
)

type Options struct {
	// Concurrency is desired number of map workers.
	// By default, it will be number of CPUs in the machine.
	Concurrency int `default:"-"`

	// MaxTaskAttempts is the number of times a map or reduce task is tried before failing the job.
	MaxTaskAttempts int           `default:"3"`
	RetryDelay      time.Duration `default:"100ms"`

	// MaxSkippedRecords bounds the number of skipped records kept in the result.
	// Every skipped record is still counted in metrics.
	MaxSkippedRecords int `default:"1000"`

	Input struct {
		QueueLength int `default:"16"`
	}
	Output output.Options

	ExperimentalCPUAffinity bool `default:"false"`
}

func DefaultOptions() (o Options) {
	if err := defaults.Set(&o); err != nil {
		panic(err)
	}
	o.SetDefaults()
	return
}

func (o *Options) SetDefaults() {
	if defaults.CanUpdate(o.Concurrency) {
		o.Concurrency = runtime.NumCPU()
	}
}
