package executor

import (
	"context"

	"github.com/ab180/merchantagg/internal/serialization"
	"github.com/ab180/merchantagg/job"
	"github.com/ab180/merchantagg/metric"
	"github.com/ab180/merchantagg/transformation"
)

// Broadcasts carries broadcast values in both original and serialized form.
type Broadcasts struct {
	Values     serialization.Broadcast
	Serialized serialization.SerializedBroadcast
}

// NewBroadcasts serializes given broadcast values.
func NewBroadcasts(b serialization.Broadcast) (Broadcasts, error) {
	serialized, err := serialization.SerializeBroadcast(b)
	if err != nil {
		return Broadcasts{}, err
	}
	return Broadcasts{Values: b, Serialized: serialized}, nil
}

type taskContext struct {
	context.Context
	task       job.TaskID
	broadcasts Broadcasts
	metrics    metric.Repository
}

func newTaskContext(ctx context.Context, task job.TaskID, b Broadcasts) *taskContext {
	return &taskContext{
		Context:    ctx,
		task:       task,
		broadcasts: b,
		metrics:    metric.NewRepository(),
	}
}

func (c *taskContext) PartitionID() string {
	return c.task.PartitionID
}

func (c *taskContext) JobID() string {
	return c.task.JobID
}

func (c *taskContext) Broadcast(key string) interface{} {
	return c.broadcasts.Values[key]
}

func (c *taskContext) DecodeBroadcast(key string, ptr interface{}) error {
	return c.broadcasts.Serialized.Unmarshal(key, ptr)
}

func (c *taskContext) AddMetric(name string, delta int) {
	c.metrics.AddMetric(name, int64(delta))
}

func (c *taskContext) SetMetric(name string, val int) {
	c.metrics.SetMetric(name, int64(val))
}

// taskContext implements transformation.Context.
var _ transformation.Context = (*taskContext)(nil)
