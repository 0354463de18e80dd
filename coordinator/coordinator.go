package coordinator

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrNotFound   = errors.New("key not found")
	ErrNotCounter = errors.New("key is not a counter")
)

// Coordinator is a key-value store holding job state. Values are stored as JSON.
type Coordinator interface {
	Get(ctx context.Context, key string, valuePtr interface{}) error
	Scan(ctx context.Context, prefix string) (results []RawItem, err error)
	Put(ctx context.Context, key string, value interface{}) error
	Commit(ctx context.Context, txn *Txn) ([]TxnResult, error)

	// Watch subscribes modification events of the keys starting with given prefix.
	// The channel is closed when ctx is done or the coordinator is closed.
	Watch(ctx context.Context, prefix string) <-chan WatchEvent

	// IncrementCounter is an atomic operation increasing the counter in given key.
	// returns a increased value of the counter right after the operation.
	IncrementCounter(ctx context.Context, key string) (count int64, err error)
	ReadCounter(ctx context.Context, key string) (count int64, err error)

	// Delete removes all keys starting with given prefix.
	Delete(ctx context.Context, prefix string) (deleted int64, err error)
	Close() error
}
