package transformation

import (
	"github.com/ab180/merchantagg/lrdd"
)

// Mapper turns an input line into at most one row. A nil row emits nothing.
type Mapper interface {
	Map(ctx Context, line string) (*lrdd.Row, error)
}

// Setupper is implemented by transformations which need per-worker initialization.
// Setup is called once on each worker's own instance before any record.
type Setupper interface {
	Setup(ctx Context) error
}
