package test

import (
	"github.com/ab180/merchantagg"
	"github.com/ab180/merchantagg/input"
	"github.com/ab180/merchantagg/lrdd"
	"github.com/ab180/merchantagg/transformation"
)

type panickingMapper struct{}

func (panickingMapper) Map(transformation.Context, string) (*lrdd.Row, error) {
	panic("station")
}

type noopReducer struct{}

func (noopReducer) InitialValue() lrdd.MarshalUnmarshaler { return nil }

func (noopReducer) Reduce(_ transformation.Context, prev, _ lrdd.MarshalUnmarshaler) (lrdd.MarshalUnmarshaler, error) {
	return prev, nil
}

// FailingJob panics on every record.
func FailingJob(options ...merchantagg.PipelineOption) *merchantagg.Pipeline {
	return merchantagg.NewPipeline(input.Splits(input.Lines("numbers", "1", "2", "3", "4", "5")), options...).
		Map(panickingMapper{}).
		Reduce(noopReducer{})
}
