package transformation

import (
	"github.com/ab180/merchantagg/lrdd"
)

// Reducer folds all values of a key, starting from InitialValue.
// Reduce must be associative and commutative and must not modify its arguments;
// it also serves as the map-side combiner.
type Reducer interface {
	InitialValue() lrdd.MarshalUnmarshaler
	Reduce(ctx Context, prev, cur lrdd.MarshalUnmarshaler) (next lrdd.MarshalUnmarshaler, err error)
}
