package analytics

import (
	"github.com/ab180/merchantagg"
	"github.com/ab180/merchantagg/executor"
	"github.com/creasty/defaults"
	"github.com/pkg/errors"
)

type Options struct {
	// InputPaths are transaction files or directories.
	InputPaths []string

	// LookupPaths are merchant lookup files or directories.
	LookupPaths []string

	// OutputPath is the base directory. Each run writes into its own subdirectory.
	OutputPath string

	ShardCount int  `default:"5"`
	Compress   bool `default:"false"`

	Executor executor.Options `default:"-"`
	Store    merchantagg.Options
}

func DefaultOptions() (o Options) {
	if err := defaults.Set(&o); err != nil {
		panic(err)
	}
	o.Executor = executor.DefaultOptions()
	return
}

func (o Options) validate() error {
	if len(o.InputPaths) == 0 {
		return errors.New("no input path")
	}
	if len(o.LookupPaths) == 0 {
		return errors.New("no merchant lookup path")
	}
	if o.OutputPath == "" {
		return errors.New("no output path")
	}
	if o.ShardCount <= 0 {
		return errors.Errorf("shard count must be positive, got %d", o.ShardCount)
	}
	return nil
}
