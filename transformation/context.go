package transformation

import (
	"context"
)

// Context is given to user transformations while a task is running.
type Context interface {
	context.Context

	// Broadcast returns the value broadcast under the key, or nil.
	Broadcast(key string) interface{}

	// DecodeBroadcast decodes a private copy of the broadcast value into ptr.
	DecodeBroadcast(key string, ptr interface{}) error

	PartitionID() string
	JobID() string

	AddMetric(name string, delta int)
	SetMetric(name string, val int)
}
